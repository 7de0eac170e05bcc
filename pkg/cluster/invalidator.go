package cluster

import (
	"context"
	"encoding/json"

	"knowledge-chat-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultChannel = "chat_cluster_events"

	ActionSessionDeleted   = "session_deleted"
	ActionKnowledgeRefresh = "knowledge_refresh"
)

// Message is the payload exchanged between instances.
type Message struct {
	Origin string `json:"origin"`
	Action string `json:"action"`
	ConvID int64  `json:"conv_id,omitempty"`
}

// Handlers react to messages from other instances. Nil handlers are skipped.
type Handlers struct {
	SessionDeleted   func(convID int64)
	KnowledgeRefresh func()
}

// Invalidator keeps per-instance session caches consistent by fanning
// lifecycle changes out over redis pub/sub. With a nil client it only acts
// locally.
type Invalidator struct {
	rdb      *redis.Client
	channel  string
	instance string
	handlers Handlers
	logger   logger.ILogger
}

func NewInvalidator(rdb *redis.Client, channel, instance string, handlers Handlers, log logger.ILogger) *Invalidator {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Invalidator{
		rdb:      rdb,
		channel:  channel,
		instance: instance,
		handlers: handlers,
		logger:   log,
	}
}

func (i *Invalidator) SessionDeleted(ctx context.Context, convID int64) {
	i.broadcast(ctx, Message{Action: ActionSessionDeleted, ConvID: convID})
}

func (i *Invalidator) KnowledgeRefreshed(ctx context.Context) {
	i.broadcast(ctx, Message{Action: ActionKnowledgeRefresh})
}

func (i *Invalidator) broadcast(ctx context.Context, msg Message) {
	if i.rdb == nil {
		return
	}
	msg.Origin = i.instance

	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := i.rdb.Publish(ctx, i.channel, payload).Err(); err != nil {
		i.logger.Warn("Cluster", "Failed to broadcast", map[string]interface{}{
			"action": msg.Action,
			"error":  err.Error(),
		})
	}
}

// Run listens until ctx is done.
func (i *Invalidator) Run(ctx context.Context) {
	if i.rdb == nil {
		return
	}

	pubsub := i.rdb.Subscribe(ctx, i.channel)
	defer pubsub.Close()

	i.logger.Info("Cluster", "Subscribed to cluster channel", map[string]interface{}{
		"channel":  i.channel,
		"instance": i.instance,
	})

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			i.Handle(msg.Payload)
		}
	}
}

// Handle applies one raw message. Messages from this instance are ignored.
func (i *Invalidator) Handle(payload string) {
	var msg Message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		i.logger.Error("Cluster", "Failed to decode cluster message", map[string]interface{}{"error": err.Error()})
		return
	}
	if msg.Origin == i.instance {
		return
	}

	switch msg.Action {
	case ActionSessionDeleted:
		if i.handlers.SessionDeleted != nil {
			i.handlers.SessionDeleted(msg.ConvID)
		}
	case ActionKnowledgeRefresh:
		if i.handlers.KnowledgeRefresh != nil {
			i.handlers.KnowledgeRefresh()
		}
	default:
		i.logger.Warn("Cluster", "Unknown cluster action", map[string]interface{}{"action": msg.Action})
	}
}
