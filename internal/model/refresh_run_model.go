package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RefreshRun struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StartedAt      *time.Time     `gorm:"type:timestamptz"`
	EndedAt        *time.Time     `gorm:"type:timestamptz"`
	LastRefresh    *time.Time     `gorm:"type:timestamptz"`
	FilesProcessed int            `gorm:"not null;default:0"`
	Error          *string        `gorm:"type:text"`
	Titles         datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime;index"`
}

func (RefreshRun) TableName() string {
	return "knowledge_refresh_runs"
}
