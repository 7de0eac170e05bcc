package factory

import (
	"context"
	"fmt"

	"knowledge-chat-be/pkg/llm"
	"knowledge-chat-be/pkg/llm/gemini"
	"knowledge-chat-be/pkg/llm/ollama"
)

type Config struct {
	Provider    string // "gemini" or "ollama"
	Model       string
	Temperature float64
	APIKey      string
	BaseURL     string
}

// Provider bundles the chat and file capabilities of one backend.
type Provider struct {
	Chat  llm.ChatClient
	Files llm.FileStore
}

func NewLLMProvider(ctx context.Context, cfg Config) (*Provider, error) {
	switch cfg.Provider {
	case "", "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini provider requires an API key")
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.0-flash"
		}
		c, err := gemini.NewClient(ctx, cfg.APIKey, model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return &Provider{Chat: c, Files: c}, nil
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		p := ollama.NewOllamaProvider(baseURL, cfg.Model, cfg.Temperature)
		return &Provider{Chat: p, Files: p}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
