package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*MemoryStore, *time.Time) {
	store := NewMemory("test")
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })
	return store, &now
}

func TestIncrementCounter_WindowReset(t *testing.T) {
	store, now := newTestStore()
	ctx := context.Background()
	key := RequestCountKey("test", "203.0.113.9")

	for i := int64(1); i <= 3; i++ {
		assert.Equal(t, i, store.IncrementCounter(ctx, key, 60*time.Second))
	}

	// 61 seconds later the window has expired and the counter restarts at 1.
	*now = now.Add(61 * time.Second)
	assert.Equal(t, int64(1), store.IncrementCounter(ctx, key, 60*time.Second))
}

func TestBlockIP_ExistenceIsAuthoritative(t *testing.T) {
	store, now := newTestStore()
	ctx := context.Background()

	assert.False(t, store.IsBlocked(ctx, "198.51.100.4"))

	require.True(t, store.BlockIP(ctx, "198.51.100.4", "sql_injection", 10*time.Minute))
	assert.True(t, store.IsBlocked(ctx, "198.51.100.4"))

	record, ok := store.BlockRecordFor("sql_injection", "198.51.100.4")
	require.True(t, ok)
	assert.Equal(t, "sql_injection", record.Reason)
	assert.Equal(t, 10, record.DurationMinutes)
	assert.Equal(t, now.Add(10*time.Minute), record.BlockedUntil)

	// TTL elapsed: the record disappears on its own, no cleanup job.
	*now = now.Add(11 * time.Minute)
	assert.False(t, store.IsBlocked(ctx, "198.51.100.4"))
}

func TestIsBlocked_MatchesAnyReasonButOnlyThatIP(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	store.BlockIP(ctx, "198.51.100.4", "path_traversal", time.Hour)

	assert.True(t, store.IsBlocked(ctx, "198.51.100.4"))
	assert.False(t, store.IsBlocked(ctx, "198.51.100.40"))
	assert.False(t, store.IsBlocked(ctx, "8.51.100.4"))
}

func TestFailedLoginLifecycle(t *testing.T) {
	store, now := newTestStore()
	ctx := context.Background()

	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.5", "admin@example.com"))

	for i := int64(1); i <= 3; i++ {
		assert.Equal(t, i, store.IncrementFailedLogins(ctx, "203.0.113.5", "admin@example.com", FailedLoginWindow))
	}
	assert.Equal(t, int64(3), store.FailedLoginCount(ctx, "203.0.113.5", "admin@example.com"))

	// Counters are scoped per (ip, email).
	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.5", "other@example.com"))

	store.ResetFailedLogins(ctx, "203.0.113.5", "admin@example.com")
	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.5", "admin@example.com"))

	// Double reset on an already-clean counter is a no-op, not an error.
	store.ResetFailedLogins(ctx, "203.0.113.5", "admin@example.com")
	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.5", "admin@example.com"))

	// The counter also expires on its own after the window.
	store.IncrementFailedLogins(ctx, "203.0.113.5", "admin@example.com", FailedLoginWindow)
	*now = now.Add(FailedLoginWindow + time.Minute)
	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.5", "admin@example.com"))
}

func TestRecordRequestStats_NeverSurfaces(t *testing.T) {
	store, _ := newTestStore()

	// Reporting counters are fire-and-forget; repeated calls just work.
	for i := 0; i < 5; i++ {
		store.RecordRequestStats(context.Background(), "203.0.113.7")
	}
}

func TestPing(t *testing.T) {
	store, _ := newTestStore()
	assert.NoError(t, store.Ping(context.Background()))
}
