package service

import (
	"context"
	"fmt"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/pkg/events"
	pktNats "knowledge-chat-be/pkg/nats"
)

// auditedEvents are persisted to the chat event log.
var auditedEvents = []string{
	events.SessionCreated,
	events.SessionRehydrated,
	events.SessionDeleted,
	events.SessionTitled,
	events.KnowledgeRefreshed,
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, eventType, durableName string, handler pktNats.EventHandler) error
}

type IAuditService interface {
	Start(ctx context.Context) error
	Handle(ctx context.Context, event events.Event) error
}

type auditService struct {
	subscriber EventSubscriber
	repo       contract.ChatEventRepository
	logger     logger.ILogger
}

func NewAuditService(subscriber EventSubscriber, repo contract.ChatEventRepository, log logger.ILogger) IAuditService {
	return &auditService{
		subscriber: subscriber,
		repo:       repo,
		logger:     log,
	}
}

func (s *auditService) Start(ctx context.Context) error {
	for _, eventType := range auditedEvents {
		durable := "chat-audit-" + eventType
		if err := s.subscriber.Subscribe(ctx, eventType, durable, s.Handle); err != nil {
			return fmt.Errorf("subscribe %s: %w", eventType, err)
		}
	}
	return nil
}

func (s *auditService) Handle(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	record := &entity.ChatEvent{
		Type:       event.EventType(),
		ConvId:     convIDFromPayload(payload),
		Payload:    payload,
		OccurredAt: event.Timestamp(),
	}
	if instance, ok := payload["instance"].(string); ok {
		record.Instance = instance
	}

	if err := s.repo.Create(ctx, record); err != nil {
		s.logger.Error("Audit", "Failed to store chat event", map[string]interface{}{
			"type":  record.Type,
			"error": err.Error(),
		})
		return err
	}
	return nil
}

// convIDFromPayload accepts the number types JSON decoding and direct
// publishing produce.
func convIDFromPayload(payload map[string]interface{}) *int64 {
	var id int64
	switch v := payload["conv_id"].(type) {
	case int64:
		id = v
	case int:
		id = int64(v)
	case float64:
		id = int64(v)
	default:
		return nil
	}
	return &id
}
