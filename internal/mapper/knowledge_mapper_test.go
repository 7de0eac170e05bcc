package mapper

import (
	"testing"
	"time"

	"knowledge-chat-be/internal/entity"
	"knowledge-chat-be/pkg/knowledge"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshRunRoundTrip(t *testing.T) {
	m := NewKnowledgeMapper()
	start := time.Now().Add(-time.Minute)
	end := time.Now()
	status := knowledge.Status{
		IsRunning:      true,
		StartTime:      &start,
		EndTime:        &end,
		LastRefresh:    &end,
		FilesProcessed: 2,
		Titles:         []string{"Guide", "FAQ"},
	}

	run := m.StatusToRefreshRun(status)
	run.Id = uuid.New()
	back := m.RefreshRunToEntity(m.RefreshRunToModel(run))
	require.NotNil(t, back)
	assert.Equal(t, []string{"Guide", "FAQ"}, back.Titles)
	assert.True(t, back.Succeeded())

	restored := m.RefreshRunToStatus(back)
	assert.False(t, restored.IsRunning)
	assert.Equal(t, 2, restored.FilesProcessed)
	assert.Equal(t, &end, restored.LastRefresh)
}

func TestChatEventPayloadJSON(t *testing.T) {
	m := NewKnowledgeMapper()
	id := int64(9)
	e := &entity.ChatEvent{Type: "SESSION_DELETED", ConvId: &id, Payload: map[string]interface{}{"conv_id": 9}}

	mdl := m.ChatEventToModel(e)
	assert.JSONEq(t, `{"conv_id":9}`, string(mdl.Payload))

	back := m.ChatEventToEntity(mdl)
	assert.EqualValues(t, 9, back.Payload["conv_id"])
	assert.Nil(t, m.ChatEventToEntity(nil))
}
