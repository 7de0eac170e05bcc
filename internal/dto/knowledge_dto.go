package dto

import "time"

type RefreshKnowledgeRequest struct {
	Force bool `json:"force"`
}

type RefreshKnowledgeResponse struct {
	Status string `json:"status"`
	// CurrentFiles is the size of the document set in use right now.
	CurrentFiles int `json:"current_files"`
}

type RefreshStatusResponse struct {
	IsRunning      bool       `json:"is_running"`
	LastRefresh    *time.Time `json:"last_refresh"`
	FilesProcessed int        `json:"files_processed"`
	Error          *string    `json:"error"`
	StartTime      *time.Time `json:"start_time"`
	EndTime        *time.Time `json:"end_time"`
	Titles         []string   `json:"titles,omitempty"`
}

type RefreshRunResponse struct {
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	FilesProcessed int        `json:"files_processed"`
	Error          *string    `json:"error"`
	Titles         []string   `json:"titles"`
}

// PublishRefreshMessage is the payload on the in-process refresh topic.
type PublishRefreshMessage struct {
	Force       bool      `json:"force"`
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source"`
}
