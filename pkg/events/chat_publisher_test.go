package events

import (
	"context"
	"errors"
	"testing"

	"knowledge-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	events []Event
	err    error
}

func (m *memorySink) Publish(ctx context.Context, event Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func TestChatPublisher(t *testing.T) {
	sink := &memorySink{}
	p := NewChatPublisher(sink, logger.NewNopLogger(), "node-a")
	ctx := context.Background()

	p.PublishSessionCreated(ctx, 4, true)
	p.PublishSessionDeleted(ctx, 4)

	require.Len(t, sink.events, 2)
	assert.Equal(t, SessionCreated, sink.events[0].EventType())
	assert.Equal(t, int64(4), sink.events[0].Payload()["conv_id"])
	assert.Equal(t, "node-a", sink.events[1].Payload()["instance"])
	assert.False(t, sink.events[1].Timestamp().IsZero())
}

func TestChatPublisherNilSafe(t *testing.T) {
	var nilPublisher *ChatPublisher
	assert.NotPanics(t, func() {
		nilPublisher.PublishSessionDeleted(context.Background(), 1)
		NewChatPublisher(nil, logger.NewNopLogger(), "x").PublishKnowledgeRefreshed(context.Background(), 2, "")
	})
}

func TestChatPublisherSwallowsSinkErrors(t *testing.T) {
	p := NewChatPublisher(&memorySink{err: errors.New("down")}, logger.NewNopLogger(), "x")
	assert.NotPanics(t, func() {
		p.PublishSessionTitled(context.Background(), 3, "Budget")
	})
}
