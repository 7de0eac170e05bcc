package memory

import (
	"context"
	"sync"
	"time"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ChatEventRepository struct {
	mu     sync.RWMutex
	events []*entity.ChatEvent
}

func NewChatEventRepository() contract.ChatEventRepository {
	return &ChatEventRepository{}
}

func (r *ChatEventRepository) Create(ctx context.Context, event *entity.ChatEvent) error {
	if event.Id == uuid.Nil {
		event.Id = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events = append(r.events, &cp)
	return nil
}

// ListByConversation returns newest first.
func (r *ChatEventRepository) ListByConversation(ctx context.Context, convID int64, eventType string, limit int) ([]*entity.ChatEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.ChatEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		e := r.events[i]
		if e.ConvId == nil || *e.ConvId != convID {
			continue
		}
		if eventType != "" && e.Type != eventType {
			continue
		}
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (r *ChatEventRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.events)), nil
}
