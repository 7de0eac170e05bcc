package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"knowledge-chat-be/pkg/llm"
)

type OllamaProvider struct {
	BaseURL     string
	ModelName   string
	Temperature float64
	Client      *http.Client
}

// Ensure OllamaProvider implements the llm contracts
var (
	_ llm.ChatClient = &OllamaProvider{}
	_ llm.FileStore  = &OllamaProvider{}
)

func NewOllamaProvider(baseURL, modelName string, temperature float64) *OllamaProvider {
	return &OllamaProvider{
		BaseURL:     baseURL,
		ModelName:   modelName,
		Temperature: temperature,
		Client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// --- Request/Response structs (Internal to this package) ---

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *ollamaOptions  `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// --- Interface Implementation ---

func (o *OllamaProvider) CreateSession(ctx context.Context, systemInstruction string, seed []llm.Turn) (llm.Session, error) {
	if err := llm.ValidateSeed(seed); err != nil {
		return nil, err
	}
	return &session{
		provider:          o,
		systemInstruction: systemInstruction,
		history:           llm.CloneTurns(seed),
	}, nil
}

func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return o.chat(ctx, []ollamaMessage{{Role: "user", Content: prompt}}, opts...)
}

// Upload always fails: Ollama has no file store, so attachments get skipped upstream.
func (o *OllamaProvider) Upload(ctx context.Context, path, mimeType, displayName string) (*llm.FileRef, error) {
	return nil, llm.ErrFilesUnsupported
}

func (o *OllamaProvider) chat(ctx context.Context, messages []ollamaMessage, opts ...llm.Option) (string, error) {
	options := llm.ApplyOptions(llm.Options{Temperature: o.Temperature}, opts...)

	if options.SystemInstruction != "" {
		if len(messages) > 0 && messages[0].Role == "system" {
			messages[0].Content = options.SystemInstruction
		} else {
			messages = append([]ollamaMessage{{Role: "system", Content: options.SystemInstruction}}, messages...)
		}
	}

	model := o.ModelName
	if options.Model != "" {
		model = options.Model
	}

	reqPayload := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: &ollamaOptions{
			Temperature: options.Temperature,
		},
	}

	if options.MaxTokens > 0 {
		reqPayload.Options.NumPredict = options.MaxTokens
	}

	payloadBytes, err := json.Marshal(reqPayload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := o.BaseURL + "/api/chat"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if ollamaResp.Message.Content == "" {
		return "", llm.ErrEmptyResponse
	}

	return ollamaResp.Message.Content, nil
}

type session struct {
	mu                sync.Mutex
	provider          *OllamaProvider
	systemInstruction string
	history           []llm.Turn
}

func (s *session) Send(ctx context.Context, parts []llm.Part, opts ...llm.Option) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("ollama send: no parts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	userTurn := llm.Turn{Role: llm.RoleUser, Parts: append([]llm.Part(nil), parts...)}

	messages := make([]ollamaMessage, 0, len(s.history)+2)
	if s.systemInstruction != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: s.systemInstruction})
	}
	for _, t := range append(s.history, userTurn) {
		messages = append(messages, toMessage(t))
	}

	reply, err := s.provider.chat(ctx, messages, opts...)
	if err != nil {
		return "", err
	}

	s.history = append(s.history, userTurn, llm.Turn{
		Role:  llm.RoleAssistant,
		Parts: []llm.Part{llm.TextPart(reply)},
	})
	return reply, nil
}

func (s *session) History() []llm.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return llm.CloneTurns(s.history)
}

// toMessage flattens a turn; file parts become a marker since Ollama only takes text.
func toMessage(t llm.Turn) ollamaMessage {
	lines := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if p.IsFile() {
			lines = append(lines, fmt.Sprintf("[attachment %s: %s]", p.MIMEType, p.FileURI))
			continue
		}
		lines = append(lines, p.Text)
	}
	return ollamaMessage{Role: string(t.Role), Content: strings.Join(lines, "\n")}
}
