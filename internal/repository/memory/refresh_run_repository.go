package memory

import (
	"context"
	"sync"
	"time"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/repository/contract"

	"github.com/google/uuid"
)

// RefreshRunRepository keeps refresh history for deployments without a database.
type RefreshRunRepository struct {
	mu   sync.RWMutex
	runs []*entity.RefreshRun
	max  int
}

func NewRefreshRunRepository(max int) contract.RefreshRunRepository {
	if max <= 0 {
		max = 50
	}
	return &RefreshRunRepository{max: max}
}

func (r *RefreshRunRepository) Create(ctx context.Context, run *entity.RefreshRun) error {
	if run.Id == uuid.Nil {
		run.Id = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *run
	r.runs = append(r.runs, &cp)
	if len(r.runs) > r.max {
		r.runs = r.runs[len(r.runs)-r.max:]
	}
	return nil
}

func (r *RefreshRunRepository) Latest(ctx context.Context) (*entity.RefreshRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.runs) == 0 {
		return nil, nil
	}
	cp := *r.runs[len(r.runs)-1]
	return &cp, nil
}

// List returns newest first.
func (r *RefreshRunRepository) List(ctx context.Context, limit int) ([]*entity.RefreshRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entity.RefreshRun, 0, len(r.runs))
	for i := len(r.runs) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *r.runs[i]
		out = append(out, &cp)
	}
	return out, nil
}
