package events

import (
	"context"

	"knowledge-chat-be/internal/pkg/logger"
)

// ChatPublisher emits chat lifecycle events. A nil sink turns every method
// into a no-op.
type ChatPublisher struct {
	sink     Sink
	logger   logger.ILogger
	instance string
}

func NewChatPublisher(sink Sink, log logger.ILogger, instance string) *ChatPublisher {
	return &ChatPublisher{
		sink:     sink,
		logger:   log,
		instance: instance,
	}
}

func (p *ChatPublisher) publish(ctx context.Context, eventType string, data map[string]interface{}) {
	if p == nil || p.sink == nil {
		return
	}
	data["instance"] = p.instance

	if err := p.sink.Publish(ctx, New(eventType, data)); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+eventType+" event", map[string]interface{}{"error": err.Error()})
	}
}

func (p *ChatPublisher) PublishSessionCreated(ctx context.Context, convID int64, created bool) {
	p.publish(ctx, SessionCreated, map[string]interface{}{
		"conv_id": convID,
		"created": created,
	})
}

func (p *ChatPublisher) PublishSessionRehydrated(ctx context.Context, convID int64, seedTurns int, grounded bool) {
	p.publish(ctx, SessionRehydrated, map[string]interface{}{
		"conv_id":    convID,
		"seed_turns": seedTurns,
		"grounded":   grounded,
	})
}

func (p *ChatPublisher) PublishSessionDeleted(ctx context.Context, convID int64) {
	p.publish(ctx, SessionDeleted, map[string]interface{}{
		"conv_id": convID,
	})
}

func (p *ChatPublisher) PublishSessionTitled(ctx context.Context, convID int64, title string) {
	p.publish(ctx, SessionTitled, map[string]interface{}{
		"conv_id": convID,
		"title":   title,
	})
}

func (p *ChatPublisher) PublishKnowledgeRefreshed(ctx context.Context, filesProcessed int, refreshErr string) {
	p.publish(ctx, KnowledgeRefreshed, map[string]interface{}{
		"files_processed": filesProcessed,
		"error":           refreshErr,
	})
}
