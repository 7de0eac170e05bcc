package cluster

import (
	"context"
	"testing"

	"knowledge-chat-be/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func TestHandle(t *testing.T) {
	var deleted []int64
	refreshes := 0
	inv := NewInvalidator(nil, "", "node-a", Handlers{
		SessionDeleted:   func(id int64) { deleted = append(deleted, id) },
		KnowledgeRefresh: func() { refreshes++ },
	}, logger.NewNopLogger())

	inv.Handle(`{"origin":"node-b","action":"session_deleted","conv_id":17}`)
	inv.Handle(`{"origin":"node-a","action":"session_deleted","conv_id":18}`)
	inv.Handle(`{"origin":"node-b","action":"knowledge_refresh"}`)
	inv.Handle(`{"origin":"node-b","action":"reboot"}`)
	inv.Handle(`garbage`)

	assert.Equal(t, []int64{17}, deleted)
	assert.Equal(t, 1, refreshes)
}

func TestWithoutRedisIsLocalOnly(t *testing.T) {
	inv := NewInvalidator(nil, "", "node-a", Handlers{}, logger.NewNopLogger())
	assert.Equal(t, DefaultChannel, inv.channel)
	assert.NotPanics(t, func() {
		inv.SessionDeleted(context.Background(), 1)
		inv.KnowledgeRefreshed(context.Background())
		inv.Run(context.Background())
	})
}
