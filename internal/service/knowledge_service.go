package service

import (
	"context"
	"encoding/json"
	"time"

	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/internal/repository/contract"
	"knowledge-chat-be/pkg/knowledge"
)

const (
	RefreshStatusProcessing     = "processing"
	RefreshStatusAlreadyRunning = "already_running"
)

type IKnowledgeService interface {
	TriggerRefresh(ctx context.Context, req *dto.RefreshKnowledgeRequest) (*dto.RefreshKnowledgeResponse, error)
	// RefreshLocal queues a refresh on this instance only.
	RefreshLocal(ctx context.Context, source string) error
	Status() *dto.RefreshStatusResponse
	GetRuns(ctx context.Context, limit int) ([]*dto.RefreshRunResponse, error)
	DocumentCount() int
}

// RefreshBroadcaster asks peer instances to refresh too.
type RefreshBroadcaster interface {
	KnowledgeRefreshed(ctx context.Context)
}

type knowledgeService struct {
	manager   *knowledge.Manager
	publisher IPublisherService
	cluster   RefreshBroadcaster
	runRepo   contract.RefreshRunRepository
	logger    logger.ILogger
}

func NewKnowledgeService(
	manager *knowledge.Manager,
	publisher IPublisherService,
	cluster RefreshBroadcaster,
	runRepo contract.RefreshRunRepository,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		manager:   manager,
		publisher: publisher,
		cluster:   cluster,
		runRepo:   runRepo,
		logger:    log,
	}
}

// TriggerRefresh answers immediately; the refresh itself runs in the consumer.
func (s *knowledgeService) TriggerRefresh(ctx context.Context, req *dto.RefreshKnowledgeRequest) (*dto.RefreshKnowledgeResponse, error) {
	if s.manager.IsRunning() {
		return &dto.RefreshKnowledgeResponse{
			Status:       RefreshStatusAlreadyRunning,
			CurrentFiles: s.manager.Count(),
		}, nil
	}

	if err := s.enqueue(ctx, req.Force, "api"); err != nil {
		return nil, err
	}
	if s.cluster != nil {
		s.cluster.KnowledgeRefreshed(ctx)
	}

	return &dto.RefreshKnowledgeResponse{
		Status:       RefreshStatusProcessing,
		CurrentFiles: s.manager.Count(),
	}, nil
}

func (s *knowledgeService) RefreshLocal(ctx context.Context, source string) error {
	return s.enqueue(ctx, false, source)
}

func (s *knowledgeService) enqueue(ctx context.Context, force bool, source string) error {
	payload, err := json.Marshal(dto.PublishRefreshMessage{
		Force:       force,
		RequestedAt: time.Now(),
		Source:      source,
	})
	if err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Error("KnowledgeService", "Failed to queue refresh", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

func (s *knowledgeService) Status() *dto.RefreshStatusResponse {
	st := s.manager.Status()
	return &dto.RefreshStatusResponse{
		IsRunning:      st.IsRunning,
		LastRefresh:    st.LastRefresh,
		FilesProcessed: st.FilesProcessed,
		Error:          st.Error,
		StartTime:      st.StartTime,
		EndTime:        st.EndTime,
		Titles:         st.Titles,
	}
}

func (s *knowledgeService) GetRuns(ctx context.Context, limit int) ([]*dto.RefreshRunResponse, error) {
	runs, err := s.runRepo.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.RefreshRunResponse, len(runs))
	for i, r := range runs {
		res[i] = &dto.RefreshRunResponse{
			StartedAt:      r.StartedAt,
			EndedAt:        r.EndedAt,
			FilesProcessed: r.FilesProcessed,
			Error:          r.Error,
			Titles:         r.Titles,
		}
	}
	return res, nil
}

func (s *knowledgeService) DocumentCount() int {
	return s.manager.Count()
}
