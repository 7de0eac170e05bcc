package entity

import (
	"time"

	"github.com/google/uuid"
)

type RefreshRun struct {
	Id             uuid.UUID
	StartedAt      *time.Time
	EndedAt        *time.Time
	LastRefresh    *time.Time
	FilesProcessed int
	Error          *string
	Titles         []string
	CreatedAt      time.Time
}

func (r *RefreshRun) Succeeded() bool {
	return r.Error == nil
}
