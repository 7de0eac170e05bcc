package implementation

import (
	"context"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/mapper"
	"knowledge-chat-be/internal/model"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type ChatEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeMapper
}

func NewChatEventRepository(db *gorm.DB) contract.ChatEventRepository {
	return &ChatEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *ChatEventRepositoryImpl) Create(ctx context.Context, event *entity.ChatEvent) error {
	m := r.mapper.ChatEventToModel(event)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*event = *r.mapper.ChatEventToEntity(m)
	return nil
}

func (r *ChatEventRepositoryImpl) ListByConversation(ctx context.Context, convID int64, eventType string, limit int) ([]*entity.ChatEvent, error) {
	var models []*model.ChatEvent
	specs := []specification.Specification{specification.ByConvID{ConvID: convID}}
	if eventType != "" {
		specs = append(specs, specification.ByEventType{Type: eventType})
	}
	specs = append(specs,
		specification.OrderBy{Field: "occurred_at", Desc: true},
		specification.Pagination{Limit: limit},
	)

	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	events := make([]*entity.ChatEvent, len(models))
	for i, m := range models {
		events[i] = r.mapper.ChatEventToEntity(m)
	}
	return events, nil
}

func (r *ChatEventRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ChatEvent{}).Count(&count).Error
	return count, err
}
