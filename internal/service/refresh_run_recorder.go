package service

import (
	"context"

	"knowledge-chat-be/internal/mapper"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/pkg/knowledge"
)

// RefreshRunRecorder stores knowledge refresh runs through the repository.
type RefreshRunRecorder struct {
	repo   contract.RefreshRunRepository
	mapper *mapper.KnowledgeMapper
}

func NewRefreshRunRecorder(repo contract.RefreshRunRepository) *RefreshRunRecorder {
	return &RefreshRunRecorder{
		repo:   repo,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *RefreshRunRecorder) Record(ctx context.Context, status knowledge.Status) error {
	return r.repo.Create(ctx, r.mapper.StatusToRefreshRun(status))
}

func (r *RefreshRunRecorder) Last(ctx context.Context) (*knowledge.Status, error) {
	run, err := r.repo.Latest(ctx)
	if err != nil {
		return nil, err
	}
	return r.mapper.RefreshRunToStatus(run), nil
}
