package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatEvent is one audited session lifecycle event.
type ChatEvent struct {
	Id         uuid.UUID
	Type       string
	ConvId     *int64
	Instance   string
	Payload    map[string]interface{}
	OccurredAt time.Time
	CreatedAt  time.Time
}
