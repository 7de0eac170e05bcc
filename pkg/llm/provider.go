package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Role is the author of a turn in provider-agnostic form.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

var (
	ErrInvalidSeedHistory = errors.New("invalid seed history")
	ErrFilesUnsupported   = errors.New("file upload is not supported by this provider")
	ErrEmptyResponse      = errors.New("model returned an empty response")
)

// Part is either a text fragment or a reference to an uploaded file.
type Part struct {
	Text     string
	FileURI  string
	MIMEType string
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func FilePart(uri, mimeType string) Part {
	return Part{FileURI: uri, MIMEType: mimeType}
}

func (p Part) IsFile() bool {
	return p.FileURI != ""
}

// Turn is one role-tagged unit of conversation history.
type Turn struct {
	Role  Role
	Parts []Part
}

// Text joins the turn's text parts with a single space.
func (t Turn) Text() string {
	texts := make([]string, 0, len(t.Parts))
	for _, p := range t.Parts {
		if p.IsFile() || p.Text == "" {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// FileRef is the store's handle for an uploaded file.
type FileRef struct {
	URI         string
	MIMEType    string
	DisplayName string
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature       float64
	MaxTokens         int
	Model             string // Override default model
	SystemInstruction string // Override the session's instruction for one call
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithSystemInstruction(instruction string) Option {
	return func(o *Options) {
		o.SystemInstruction = instruction
	}
}

// ApplyOptions folds opts over base.
func ApplyOptions(base Options, opts ...Option) Options {
	for _, opt := range opts {
		opt(&base)
	}
	return base
}

// Session is a stateful conversation bound to a system instruction.
// Every successful Send appends the sent turn and the reply to its history.
type Session interface {
	Send(ctx context.Context, parts []Part, options ...Option) (string, error)
	History() []Turn
}

// ChatClient defines the contract for any LLM backend
type ChatClient interface {
	// CreateSession starts a session seeded with history. Seeds that do not
	// start with a user turn are rejected with ErrInvalidSeedHistory.
	CreateSession(ctx context.Context, systemInstruction string, seed []Turn) (Session, error)

	// Generate sends a single stateless prompt to the model
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// FileStore uploads local files so they can be referenced from parts.
type FileStore interface {
	Upload(ctx context.Context, path, mimeType, displayName string) (*FileRef, error)
}

// ValidateSeed enforces what chat backends require of a starting history.
func ValidateSeed(seed []Turn) error {
	for i, turn := range seed {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return fmt.Errorf("%w: turn %d has role %q", ErrInvalidSeedHistory, i, turn.Role)
		}
		if len(turn.Parts) == 0 {
			return fmt.Errorf("%w: turn %d has no parts", ErrInvalidSeedHistory, i)
		}
		if i == 0 && turn.Role != RoleUser {
			return fmt.Errorf("%w: first turn must be from the user", ErrInvalidSeedHistory)
		}
	}
	return nil
}

// CloneTurns deep-copies turns so callers cannot mutate session state.
func CloneTurns(turns []Turn) []Turn {
	if turns == nil {
		return nil
	}
	out := make([]Turn, len(turns))
	for i, t := range turns {
		out[i] = Turn{Role: t.Role, Parts: append([]Part(nil), t.Parts...)}
	}
	return out
}
