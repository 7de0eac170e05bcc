package mapper

import (
	"encoding/json"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/internal/model"
	"knowledge-chat-be/pkg/knowledge"

	"gorm.io/datatypes"
)

type KnowledgeMapper struct{}

func NewKnowledgeMapper() *KnowledgeMapper {
	return &KnowledgeMapper{}
}

func (m *KnowledgeMapper) RefreshRunToModel(r *entity.RefreshRun) *model.RefreshRun {
	if r == nil {
		return nil
	}

	titles, _ := json.Marshal(r.Titles)
	return &model.RefreshRun{
		Id:             r.Id,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		LastRefresh:    r.LastRefresh,
		FilesProcessed: r.FilesProcessed,
		Error:          r.Error,
		Titles:         datatypes.JSON(titles),
		CreatedAt:      r.CreatedAt,
	}
}

func (m *KnowledgeMapper) RefreshRunToEntity(r *model.RefreshRun) *entity.RefreshRun {
	if r == nil {
		return nil
	}

	var titles []string
	if len(r.Titles) > 0 {
		_ = json.Unmarshal(r.Titles, &titles)
	}
	return &entity.RefreshRun{
		Id:             r.Id,
		StartedAt:      r.StartedAt,
		EndedAt:        r.EndedAt,
		LastRefresh:    r.LastRefresh,
		FilesProcessed: r.FilesProcessed,
		Error:          r.Error,
		Titles:         titles,
		CreatedAt:      r.CreatedAt,
	}
}

func (m *KnowledgeMapper) StatusToRefreshRun(s knowledge.Status) *entity.RefreshRun {
	return &entity.RefreshRun{
		StartedAt:      s.StartTime,
		EndedAt:        s.EndTime,
		LastRefresh:    s.LastRefresh,
		FilesProcessed: s.FilesProcessed,
		Error:          s.Error,
		Titles:         s.Titles,
	}
}

func (m *KnowledgeMapper) RefreshRunToStatus(r *entity.RefreshRun) *knowledge.Status {
	if r == nil {
		return nil
	}
	return &knowledge.Status{
		LastRefresh:    r.LastRefresh,
		FilesProcessed: r.FilesProcessed,
		Error:          r.Error,
		StartTime:      r.StartedAt,
		EndTime:        r.EndedAt,
		Titles:         r.Titles,
	}
}

func (m *KnowledgeMapper) ChatEventToModel(e *entity.ChatEvent) *model.ChatEvent {
	if e == nil {
		return nil
	}

	payload, _ := json.Marshal(e.Payload)
	return &model.ChatEvent{
		Id:         e.Id,
		Type:       e.Type,
		ConvId:     e.ConvId,
		Instance:   e.Instance,
		Payload:    datatypes.JSON(payload),
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
	}
}

func (m *KnowledgeMapper) ChatEventToEntity(e *model.ChatEvent) *entity.ChatEvent {
	if e == nil {
		return nil
	}

	var payload map[string]interface{}
	if len(e.Payload) > 0 {
		_ = json.Unmarshal(e.Payload, &payload)
	}
	return &entity.ChatEvent{
		Id:         e.Id,
		Type:       e.Type,
		ConvId:     e.ConvId,
		Instance:   e.Instance,
		Payload:    payload,
		OccurredAt: e.OccurredAt,
		CreatedAt:  e.CreatedAt,
	}
}
