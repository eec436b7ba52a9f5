package security

import (
	"context"
	"sync"
	"time"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/storage"
)

func testConfig() *config.Config {
	return &config.Config{
		KeyNamespace: "test",
		Thresholds: config.Thresholds{
			RapidRequests:       100,
			FailedLogins:        5,
			UniqueUserAgents:    5,
			RequestSizeBytes:    10 * 1024 * 1024,
			ResponseTimeSeconds: 30,
		},
		Durations: config.BlockDurations{
			SuspiciousIP:   60 * time.Minute,
			BruteForce:     120 * time.Minute,
			SQLInjection:   1440 * time.Minute,
			PathTraversal:  720 * time.Minute,
			CriticalThreat: 1440 * time.Minute,
			HighThreat:     120 * time.Minute,
		},
		Whitelist: map[string]struct{}{"127.0.0.1": {}, "::1": {}},
	}
}

// countingStore wraps a MemoryStore and counts every storage touch so tests
// can assert the whitelist's zero-storage guarantee.
type countingStore struct {
	inner *storage.MemoryStore
	calls int
}

func newCountingStore() *countingStore {
	return &countingStore{inner: storage.NewMemory("test")}
}

func (s *countingStore) IncrementCounter(ctx context.Context, key string, window time.Duration) int64 {
	s.calls++
	return s.inner.IncrementCounter(ctx, key, window)
}

func (s *countingStore) IsBlocked(ctx context.Context, ip string) bool {
	s.calls++
	return s.inner.IsBlocked(ctx, ip)
}

func (s *countingStore) BlockIP(ctx context.Context, ip, reason string, duration time.Duration) bool {
	s.calls++
	return s.inner.BlockIP(ctx, ip, reason, duration)
}

func (s *countingStore) FailedLoginCount(ctx context.Context, ip, email string) int64 {
	s.calls++
	return s.inner.FailedLoginCount(ctx, ip, email)
}

func (s *countingStore) IncrementFailedLogins(ctx context.Context, ip, email string, window time.Duration) int64 {
	s.calls++
	return s.inner.IncrementFailedLogins(ctx, ip, email, window)
}

func (s *countingStore) ResetFailedLogins(ctx context.Context, ip, email string) {
	s.calls++
	s.inner.ResetFailedLogins(ctx, ip, email)
}

func (s *countingStore) RecordRequestStats(ctx context.Context, ip string) {
	s.calls++
	s.inner.RecordRequestStats(ctx, ip)
}

func (s *countingStore) Ping(ctx context.Context) error {
	s.calls++
	return s.inner.Ping(ctx)
}

// testClock pins a MemoryStore to a fixed time and returns a pointer tests
// can advance.
func testClock(s *storage.MemoryStore) *time.Time {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return now })
	return &now
}

// fakeNotifier captures notification payloads for assertions.
type fakeNotifier struct {
	mu       sync.Mutex
	types    []string
	payloads []map[string]interface{}
}

func (n *fakeNotifier) Notify(notificationType string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, notificationType)
	n.payloads = append(n.payloads, payload)
}

func (n *fakeNotifier) sent() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.types...)
}
