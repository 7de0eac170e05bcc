package dto

import (
	"encoding/json"
	"time"
)

type ChatRequest struct {
	ConvId int64 `json:"conv_id"`
}

type PromptRequest struct {
	Prompt  string          `json:"prompt" validate:"required"`
	ConvId  int64           `json:"conv_id"`
	History json.RawMessage `json:"history,omitempty"`
}

type CreateChatResponse struct {
	ConvId  int64 `json:"conv_id"`
	Created bool  `json:"created"`
}

type DeleteChatResponse struct {
	ConvId int64 `json:"conv_id"`
}

type ResultResponse struct {
	Result string `json:"result"`
}

// UploadedFile is one multipart file read into memory.
type UploadedFile struct {
	Filename string
	Content  []byte
}

type ChatEventResponse struct {
	Type       string                 `json:"type"`
	Instance   string                 `json:"instance"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

type HealthResponse struct {
	Status         string `json:"status"`
	ActiveSessions int    `json:"active_sessions"`
	KnowledgeFiles int    `json:"knowledge_files"`
	RefreshRunning bool   `json:"refresh_running"`
	Instance       string `json:"instance"`
}
