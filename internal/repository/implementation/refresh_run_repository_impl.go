package implementation

import (
	"context"
	"errors"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/mapper"
	"knowledge-chat-be/internal/model"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RefreshRunRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeMapper
}

func NewRefreshRunRepository(db *gorm.DB) contract.RefreshRunRepository {
	return &RefreshRunRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *RefreshRunRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RefreshRunRepositoryImpl) Create(ctx context.Context, run *entity.RefreshRun) error {
	m := r.mapper.RefreshRunToModel(run)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*run = *r.mapper.RefreshRunToEntity(m)
	return nil
}

func (r *RefreshRunRepositoryImpl) Latest(ctx context.Context) (*entity.RefreshRun, error) {
	var m model.RefreshRun
	query := r.applySpecifications(r.db.WithContext(ctx), specification.Newest{})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RefreshRunToEntity(&m), nil
}

func (r *RefreshRunRepositoryImpl) List(ctx context.Context, limit int) ([]*entity.RefreshRun, error) {
	var models []*model.RefreshRun
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.Newest{},
		specification.Pagination{Limit: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	runs := make([]*entity.RefreshRun, len(models))
	for i, m := range models {
		runs[i] = r.mapper.RefreshRunToEntity(m)
	}
	return runs, nil
}
