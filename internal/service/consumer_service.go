package service

import (
	"context"
	"encoding/json"
	"errors"

	"knowledge-chat-be/internal/dto"
	"knowledge-chat-be/internal/pkg/logger"
	"knowledge-chat-be/pkg/knowledge"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	manager    *knowledge.Manager
	logger     logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	manager *knowledge.Manager,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		manager:    manager,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks: a refresh is never retried from the queue, the
// outcome lives in the refresh status instead.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.PublishRefreshMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("Consumer", "Failed to unmarshal refresh message", map[string]interface{}{"error": err.Error()})
		return
	}

	cs.logger.Info("Consumer", "Starting background knowledge refresh", map[string]interface{}{
		"source": payload.Source,
		"force":  payload.Force,
	})

	count, err := cs.manager.Refresh(ctx)
	switch {
	case errors.Is(err, knowledge.ErrRefreshRunning):
		cs.logger.Info("Consumer", "Refresh already in progress", nil)
	case err != nil:
		cs.logger.Error("Consumer", "Error in background knowledge refresh", map[string]interface{}{"error": err.Error()})
	default:
		cs.logger.Info("Consumer", "Background knowledge refresh completed", map[string]interface{}{"files_processed": count})
	}
}
