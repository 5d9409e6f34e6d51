package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workday/internal/core"
	"workday/internal/docstore"
	"workday/internal/log"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := New(context.Background(), Options{Addr: mr.Addr()}, log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestProfileDocuments(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	_, err := s.GetProfile(ctx, "u1")
	require.ErrorIs(t, err, docstore.ErrNotFound)

	name := "Ana"
	require.NoError(t, s.MergeProfile(ctx, "u1", core.ProfilePatch{WorkerName: &name}))
	assert.True(t, mr.Exists("workday:users:u1"))

	sp, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", sp.WorkerName)
	assert.False(t, sp.HasPaymentReminderDays)

	require.NoError(t, s.SetProfile(ctx, core.NewProfile(core.User{ID: "u2"}, core.DefaultInitialSetup(core.User{ID: "u2"}))))
	list, err := s.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestWorkDaysUseLexIndex(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	for _, key := range []string{"2023-12-31", "2024-01-01", "2024-01-31", "2024-02-01"} {
		require.NoError(t, s.SetWorkDay(ctx, "u1", key, core.WorkDay{PaymentPending: core.Bool(true)}))
	}
	assert.True(t, mr.Exists("workday:users:u1:work_sessions:2024-01-01"))

	jan, err := s.GetWorkDays(ctx, "u1", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Len(t, jan, 2)

	open, err := s.GetWorkDays(ctx, "u1", "2024-01-15", "")
	require.NoError(t, err)
	assert.Len(t, open, 2)

	require.NoError(t, s.MergeWorkDay(ctx, "u1", "2024-01-31", core.MarkPaid()))
	jan, err = s.GetWorkDays(ctx, "u1", "2024-01-31", "2024-01-31")
	require.NoError(t, err)
	assert.False(t, jan["2024-01-31"].IsPaymentPending())

	require.ErrorIs(t, s.SetWorkDay(ctx, "u1", "31/01/2024", core.WorkDay{}), core.ErrInvalidDateKey)
}

func TestChangeFeedReachesWatchersOfAnotherStore(t *testing.T) {
	ctx := context.Background()
	writer, mr := newTestStore(t)

	reader, err := NewWithClient(ctx, redis.NewClient(&redis.Options{Addr: mr.Addr()}), log.Discard())
	require.NoError(t, err)
	defer reader.Close()

	var mu sync.Mutex
	var snap docstore.ProfileSnapshot
	unsub, err := reader.WatchProfile(ctx, "u1", func(ps docstore.ProfileSnapshot, err error) {
		mu.Lock()
		defer mu.Unlock()
		snap = ps
	})
	require.NoError(t, err)
	defer unsub()

	rate := 30.0
	require.NoError(t, writer.Commit(ctx, "u1", docstore.Batch{
		Profile: core.ProfilePatch{HourlyRate: &rate},
		Days:    core.WorkSessionsMap{"2024-05-01": {}},
	}))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return snap.Exists && snap.Profile.HourlyRate == 30
	}, 2*time.Second, 10*time.Millisecond)
}
