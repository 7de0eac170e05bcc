package contract

import (
	"context"

	"knowledge-chat-be/internal/entity"
)

type RefreshRunRepository interface {
	Create(ctx context.Context, run *entity.RefreshRun) error
	// Latest returns nil when no run was recorded.
	Latest(ctx context.Context) (*entity.RefreshRun, error)
	List(ctx context.Context, limit int) ([]*entity.RefreshRun, error)
}
