// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AccelByte/extend-account-sync/pkg/cache"
	"github.com/AccelByte/extend-account-sync/pkg/model"
	"github.com/AccelByte/extend-account-sync/pkg/remote"
	"github.com/AccelByte/extend-account-sync/pkg/remote/mock"
	"github.com/AccelByte/extend-account-sync/pkg/schedule"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

func newScore(t *testing.T, accountID string, score int64) model.AppendEntry {
	t.Helper()
	e, err := model.NewScoreEntry(model.ScoreRecord{AccountID: accountID, Score: score, Region: "asia", Rounds: 5})
	require.NoError(t, err)
	return e
}

func persistedCount(t *testing.T, q *Queue, accountID string) int {
	t.Helper()
	entries, err := q.Persisted(context.Background(), accountID)
	require.NoError(t, err)
	return len(entries)
}

func TestQueue_DeliversAndForgets(t *testing.T) {
	store := mock.NewStore()
	q := NewQueue(Config{}, store, cache.NewMemoryCache(), schedule.NewManualScheduler())
	q.Start()
	defer q.Close()

	queued, err := q.Enqueue(context.Background(), newScore(t, "acc-1", 700))
	require.NoError(t, err)
	assert.True(t, queued)

	assert.Eventually(t, func() bool {
		return len(store.Records("acc-1", model.CollectionScores)) == 1 && q.Depth() == 0
	}, waitFor, tick)
	assert.Equal(t, 0, persistedCount(t, q, "acc-1"))
}

func TestQueue_TransientFailureRetries(t *testing.T) {
	store := mock.NewStore()
	store.SetError(remote.ErrUnavailable)
	sched := schedule.NewManualScheduler()
	q := NewQueue(Config{InitialInterval: 10 * time.Millisecond}, store, cache.NewMemoryCache(), sched)
	q.Start()
	defer q.Close()

	_, err := q.Enqueue(context.Background(), newScore(t, "acc-1", 10))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return sched.Pending() == 1 }, waitFor, tick)
	assert.Equal(t, 1, persistedCount(t, q, "acc-1"))
	assert.Equal(t, 1, q.Depth())

	store.SetError(nil)
	sched.RunPending()

	assert.Eventually(t, func() bool {
		return len(store.Records("acc-1", model.CollectionScores)) == 1 && q.Depth() == 0
	}, waitFor, tick)
	assert.Equal(t, 0, persistedCount(t, q, "acc-1"))
}

func TestQueue_LostAckReplayDoesNotDuplicate(t *testing.T) {
	store := mock.NewStore()
	store.AfterAppend(func(model.AppendEntry) error { return remote.ErrUnavailable })
	localCache := cache.NewMemoryCache()

	first := NewQueue(Config{MaxAttempts: 1}, store, localCache, schedule.NewManualScheduler())
	first.Start()
	entry := newScore(t, "acc-1", 300)
	_, err := first.Enqueue(context.Background(), entry)
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return first.Depth() == 0 }, waitFor, tick)
	first.Close()

	assert.Equal(t, 1, persistedCount(t, first, "acc-1"), "unacknowledged entry must stay persisted")

	// next session
	store.AfterAppend(nil)
	second := NewQueue(Config{}, store, localCache, schedule.NewManualScheduler())
	second.Start()
	defer second.Close()

	n, err := second.Replay(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Eventually(t, func() bool { return second.Depth() == 0 }, waitFor, tick)
	assert.Len(t, store.Records("acc-1", model.CollectionScores), 1)
	assert.Equal(t, 2, store.AppendCount())
	assert.Equal(t, 0, persistedCount(t, second, "acc-1"))
}

func TestQueue_FullQueueKeepsEntryPersisted(t *testing.T) {
	store := mock.NewStore()
	q := NewQueue(Config{Capacity: 1}, store, cache.NewMemoryCache(), schedule.NewManualScheduler())
	defer q.Close()

	a, b := newScore(t, "acc-1", 1), newScore(t, "acc-1", 2)
	ok, err := q.Enqueue(context.Background(), a)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = q.Enqueue(context.Background(), b)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, persistedCount(t, q, "acc-1"))

	q.Start()
	assert.Eventually(t, func() bool { return q.Depth() == 0 }, waitFor, tick)

	n, err := q.Replay(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Eventually(t, func() bool {
		return len(store.Records("acc-1", model.CollectionScores)) == 2
	}, waitFor, tick)
}

func TestQueue_PermanentFailureDropped(t *testing.T) {
	store := mock.NewStore()
	store.OnAppend(func(ctx context.Context, entry model.AppendEntry) error {
		return errors.New("unknown collection")
	})
	q := NewQueue(Config{}, store, cache.NewMemoryCache(), schedule.NewManualScheduler())
	q.Start()
	defer q.Close()

	_, err := q.Enqueue(context.Background(), newScore(t, "acc-1", 5))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.Depth() == 0 }, waitFor, tick)
	assert.Equal(t, 0, persistedCount(t, q, "acc-1"))
	assert.Equal(t, 1, store.AppendCount())
}

func TestQueue_UnauthorizedLeftForNextSession(t *testing.T) {
	store := mock.NewStore()
	store.SetError(remote.ErrUnauthorized)
	q := NewQueue(Config{}, store, cache.NewMemoryCache(), schedule.NewManualScheduler())
	q.Start()
	defer q.Close()

	_, err := q.Enqueue(context.Background(), newScore(t, "acc-1", 5))
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return q.Depth() == 0 }, waitFor, tick)
	assert.Equal(t, 1, persistedCount(t, q, "acc-1"))
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := NewQueue(Config{}, mock.NewStore(), cache.NewMemoryCache(), schedule.NewManualScheduler())
	q.Start()
	q.Close()
	q.Close()

	_, err := q.Enqueue(context.Background(), newScore(t, "acc-1", 5))
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_EnqueueValidatesEntry(t *testing.T) {
	q := NewQueue(Config{}, mock.NewStore(), cache.NewMemoryCache(), schedule.NewManualScheduler())
	defer q.Close()

	if _, err := q.Enqueue(context.Background(), model.AppendEntry{}); err == nil {
		t.Error("Enqueue() with empty entry should fail")
	}
}
