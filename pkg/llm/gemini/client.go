package gemini

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"knowledge-chat-be/pkg/llm"

	"google.golang.org/genai"
)

const (
	roleUser  = "user"
	roleModel = "model"
)

// contentGenerator is the slice of genai.Models the client depends on.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// fileUploader is the slice of genai.Files the client depends on.
type fileUploader interface {
	UploadFromPath(ctx context.Context, path string, config *genai.UploadFileConfig) (*genai.File, error)
}

// Client implements llm.ChatClient and llm.FileStore on the Gemini API.
type Client struct {
	models      contentGenerator
	files       fileUploader
	model       string
	temperature float64
}

var (
	_ llm.ChatClient = &Client{}
	_ llm.FileStore  = &Client{}
)

func NewClient(ctx context.Context, apiKey, model string, temperature float64) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, gc.Files, model, temperature), nil
}

func newClient(models contentGenerator, files fileUploader, model string, temperature float64) *Client {
	return &Client{
		models:      models,
		files:       files,
		model:       model,
		temperature: temperature,
	}
}

func (c *Client) CreateSession(ctx context.Context, systemInstruction string, seed []llm.Turn) (llm.Session, error) {
	if err := llm.ValidateSeed(seed); err != nil {
		return nil, err
	}
	return &session{
		client:            c,
		systemInstruction: systemInstruction,
		history:           toContents(seed),
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: c.temperature}, opts...)
	contents := []*genai.Content{{
		Role:  roleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := c.models.GenerateContent(ctx, c.modelFor(options), contents, c.config(options, ""))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	content := firstCandidate(resp)
	if content == nil {
		return "", llm.ErrEmptyResponse
	}
	return extractText(content), nil
}

func (c *Client) Upload(ctx context.Context, path, mimeType, displayName string) (*llm.FileRef, error) {
	f, err := c.files.UploadFromPath(ctx, path, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini upload %s: %w", displayName, err)
	}
	return &llm.FileRef{
		URI:         f.URI,
		MIMEType:    f.MIMEType,
		DisplayName: displayName,
	}, nil
}

func (c *Client) modelFor(options llm.Options) string {
	if options.Model != "" {
		return options.Model
	}
	return c.model
}

func (c *Client) config(options llm.Options, systemInstruction string) *genai.GenerateContentConfig {
	temp := float32(options.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if options.SystemInstruction != "" {
		systemInstruction = options.SystemInstruction
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: systemInstruction}}}
	}
	if options.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(options.MaxTokens)
	}
	return cfg
}

// session keeps the curated history locally and replays it on every send,
// which is what the SDK's own chat helper does.
type session struct {
	mu                sync.Mutex
	client            *Client
	systemInstruction string
	history           []*genai.Content
}

func (s *session) Send(ctx context.Context, parts []llm.Part, opts ...llm.Option) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("gemini send: no parts")
	}
	options := llm.ApplyOptions(llm.Options{Temperature: s.client.temperature}, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	userContent := &genai.Content{Role: roleUser, Parts: toParts(parts)}
	contents := make([]*genai.Content, 0, len(s.history)+1)
	contents = append(contents, s.history...)
	contents = append(contents, userContent)

	resp, err := s.client.models.GenerateContent(ctx, s.client.modelFor(options), contents, s.client.config(options, s.systemInstruction))
	if err != nil {
		return "", fmt.Errorf("gemini send: %w", err)
	}
	reply := firstCandidate(resp)
	if reply == nil {
		return "", llm.ErrEmptyResponse
	}
	if reply.Role == "" {
		reply.Role = roleModel
	}

	s.history = append(s.history, userContent, reply)
	return extractText(reply), nil
}

func (s *session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return toTurns(s.history)
}

func firstCandidate(resp *genai.GenerateContentResponse) *genai.Content {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	return resp.Candidates[0].Content
}

func extractText(c *genai.Content) string {
	var sb strings.Builder
	for _, p := range c.Parts {
		if p != nil && p.Text != "" {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func toParts(parts []llm.Part) []*genai.Part {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if p.IsFile() {
			out = append(out, &genai.Part{FileData: &genai.FileData{FileURI: p.FileURI, MIMEType: p.MIMEType}})
			continue
		}
		out = append(out, &genai.Part{Text: p.Text})
	}
	return out
}

func toContents(turns []llm.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := roleUser
		if t.Role == llm.RoleAssistant {
			role = roleModel
		}
		out = append(out, &genai.Content{Role: role, Parts: toParts(t.Parts)})
	}
	return out
}

func toTurns(contents []*genai.Content) []llm.Turn {
	out := make([]llm.Turn, 0, len(contents))
	for _, c := range contents {
		role := llm.RoleUser
		if c.Role == roleModel {
			role = llm.RoleAssistant
		}
		turn := llm.Turn{Role: role}
		for _, p := range c.Parts {
			if p == nil {
				continue
			}
			switch {
			case p.FileData != nil:
				turn.Parts = append(turn.Parts, llm.FilePart(p.FileData.FileURI, p.FileData.MIMEType))
			case p.Text != "":
				turn.Parts = append(turn.Parts, llm.TextPart(p.Text))
			}
		}
		out = append(out, turn)
	}
	return out
}
