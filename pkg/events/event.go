package events

import (
	"context"
	"time"
)

const (
	SessionCreated     = "SESSION_CREATED"
	SessionRehydrated  = "SESSION_REHYDRATED"
	SessionDeleted     = "SESSION_DELETED"
	SessionTitled      = "SESSION_TITLED"
	KnowledgeRefreshed = "KNOWLEDGE_REFRESHED"
)

// Event is anything that can be put on the bus.
type Event interface {
	// EventType returns the event code, e.g. "SESSION_CREATED".
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Sink accepts events for delivery.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
