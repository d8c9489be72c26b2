package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
)

func TestOutboxCleanup_KeepsRecentAndUnprocessed(t *testing.T) {
	ctx := context.Background()
	store := repotest.NewStore()
	repo := store.Outbox()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		e, err := model.NewOutboxEvent(model.EventChatMessage, uuid.New(), map[string]int{"n": i})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, e))
		ids = append(ids, e.ID)
	}
	require.NoError(t, repo.UpdateStatus(ctx, ids[0], model.OutboxStatusProcessed, nil, nil))
	require.NoError(t, repo.UpdateStatus(ctx, ids[1], model.OutboxStatusProcessed, nil, nil))

	w := NewOutboxCleanupWorker(repo, time.Hour, time.Minute, nil)

	n, err := w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "processed rows inside the retention window stay")

	w.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = w.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left := store.OutboxEvents()
	require.Len(t, left, 1)
	assert.Equal(t, ids[2], left[0].ID)
	assert.Equal(t, model.OutboxStatusPending, left[0].Status)
}
