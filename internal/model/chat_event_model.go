package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatEvent struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Type       string         `gorm:"type:varchar(50);not null;index"`
	ConvId     *int64         `gorm:"index"`
	Instance   string         `gorm:"type:varchar(100)"`
	Payload    datatypes.JSON `gorm:"type:jsonb"`
	OccurredAt time.Time      `gorm:"not null;index"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
}

func (ChatEvent) TableName() string {
	return "chat_events"
}
