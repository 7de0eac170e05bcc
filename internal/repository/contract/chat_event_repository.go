package contract

import (
	"context"

	"knowledge-chat-be/internal/entity"
)

type ChatEventRepository interface {
	Create(ctx context.Context, event *entity.ChatEvent) error
	// ListByConversation returns newest first. An empty eventType matches all types.
	ListByConversation(ctx context.Context, convID int64, eventType string, limit int) ([]*entity.ChatEvent, error)
	Count(ctx context.Context) (int64, error)
}
