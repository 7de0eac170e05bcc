package memory

import (
	"context"
	"testing"

	"knowledge-chat-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshRunRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewRefreshRunRepository(2)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i := 1; i <= 3; i++ {
		require.NoError(t, repo.Create(ctx, &entity.RefreshRun{FilesProcessed: i}))
	}

	latest, err = repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.FilesProcessed)
	assert.NotEmpty(t, latest.Id)

	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 3, runs[0].FilesProcessed)
	assert.Equal(t, 2, runs[1].FilesProcessed)
}

func TestChatEventRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewChatEventRepository()
	one, two := int64(1), int64(2)

	require.NoError(t, repo.Create(ctx, &entity.ChatEvent{Type: "SESSION_CREATED", ConvId: &one}))
	require.NoError(t, repo.Create(ctx, &entity.ChatEvent{Type: "SESSION_CREATED", ConvId: &two}))
	require.NoError(t, repo.Create(ctx, &entity.ChatEvent{Type: "SESSION_DELETED", ConvId: &one}))
	require.NoError(t, repo.Create(ctx, &entity.ChatEvent{Type: "KNOWLEDGE_REFRESHED"}))

	events, err := repo.ListByConversation(ctx, 1, "", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "SESSION_DELETED", events[0].Type)

	limited, err := repo.ListByConversation(ctx, 1, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	created, err := repo.ListByConversation(ctx, 1, "SESSION_CREATED", 10)
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "SESSION_CREATED", created[0].Type)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}
