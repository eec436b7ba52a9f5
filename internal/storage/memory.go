package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and as a degraded
// single-instance fallback when no shared backend is configured. Expiry is
// evaluated lazily on access, so no cleanup goroutine is needed.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*memEntry
	blocks   map[string]memBlock
	keys     keys

	// now is injectable so tests can step through counter windows.
	now func() time.Time
}

type memEntry struct {
	value     int64
	expiresAt time.Time
}

type memBlock struct {
	record    BlockRecord
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemory returns an empty in-memory store for the given key namespace.
func NewMemory(namespace string) *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*memEntry),
		blocks:   make(map[string]memBlock),
		keys:     keys{ns: namespace},
		now:      time.Now,
	}
}

// SetClock replaces the store's time source. Test use only.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) IncrementCounter(_ context.Context, key string, window time.Duration) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.counters[key]
	if !ok || now.After(entry.expiresAt) {
		s.counters[key] = &memEntry{value: 1, expiresAt: now.Add(window)}
		return 1
	}
	entry.value++
	return entry.value
}

func (s *MemoryStore) IsBlocked(_ context.Context, ip string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, blk := range s.blocks {
		if now.After(blk.expiresAt) {
			delete(s.blocks, key)
			continue
		}
		if blk.record.BlockedUntil.After(now) && keyMatchesIP(key, ip) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) BlockIP(_ context.Context, ip, reason string, duration time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.blocks[s.keys.blocked(reason, ip)] = memBlock{
		record: BlockRecord{
			BlockedAt:       now,
			Reason:          reason,
			DurationMinutes: int(duration / time.Minute),
			BlockedUntil:    now.Add(duration),
		},
		expiresAt: now.Add(duration),
	}
	return true
}

func (s *MemoryStore) FailedLoginCount(_ context.Context, ip, email string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.counters[s.keys.failedLogins(ip, email)]
	if !ok || s.now().After(entry.expiresAt) {
		return 0
	}
	return entry.value
}

func (s *MemoryStore) IncrementFailedLogins(ctx context.Context, ip, email string, window time.Duration) int64 {
	return s.IncrementCounter(ctx, s.keys.failedLogins(ip, email), window)
}

func (s *MemoryStore) ResetFailedLogins(_ context.Context, ip, email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, s.keys.failedLogins(ip, email))
}

func (s *MemoryStore) RecordRequestStats(ctx context.Context, ip string) {
	now := s.clockNow()
	s.IncrementCounter(ctx, s.keys.hourlyStats(now), 2*time.Hour)
	s.IncrementCounter(ctx, s.keys.dailyIPStats(ip, now), 48*time.Hour)
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// BlockRecordFor returns the stored record for (reason, ip) when an
// unexpired block exists. Test helper mirroring what audit readers see.
func (s *MemoryStore) BlockRecordFor(reason, ip string) (BlockRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blk, ok := s.blocks[s.keys.blocked(reason, ip)]
	if !ok || s.now().After(blk.expiresAt) {
		return BlockRecord{}, false
	}
	return blk.record, true
}

func (s *MemoryStore) clockNow() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now()
}

// keyMatchesIP checks the trailing ":<ip>" segment of a block key, the
// in-memory equivalent of the ns:blocked:*:ip pattern scan.
func keyMatchesIP(key, ip string) bool {
	suffix := ":" + ip
	return len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix
}
