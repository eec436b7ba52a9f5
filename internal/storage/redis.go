package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/metrics"
)

// RedisStore implements Store on a shared Redis backend. Correctness under
// concurrent workers relies on Redis's atomic INCR and SET-with-TTL
// primitives, not on any in-process lock.
type RedisStore struct {
	client *redis.Client
	keys   keys
}

var _ Store = (*RedisStore)(nil)

// NewRedis connects to Redis and verifies liveness before returning.
func NewRedis(cfg config.RedisConfig, namespace string) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, keys: keys{ns: namespace}}, nil
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) IncrementCounter(ctx context.Context, key string, window time.Duration) int64 {
	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		s.failOpen("increment_counter", key, err)
		return 0
	}
	if count == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			s.failOpen("increment_counter_expire", key, err)
		}
	}
	return count
}

func (s *RedisStore) IsBlocked(ctx context.Context, ip string) bool {
	iter := s.client.Scan(ctx, 0, s.keys.blockedPattern(ip), 64).Iterator()
	if iter.Next(ctx) {
		return true
	}
	if err := iter.Err(); err != nil {
		s.failOpen("is_blocked", ip, err)
	}
	return false
}

func (s *RedisStore) BlockIP(ctx context.Context, ip, reason string, duration time.Duration) bool {
	now := time.Now().UTC()
	record := BlockRecord{
		BlockedAt:       now,
		Reason:          reason,
		DurationMinutes: int(duration / time.Minute),
		BlockedUntil:    now.Add(duration),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		s.failOpen("block_ip_marshal", ip, err)
		return false
	}
	if err := s.client.Set(ctx, s.keys.blocked(reason, ip), payload, duration).Err(); err != nil {
		s.failOpen("block_ip", ip, err)
		return false
	}
	return true
}

func (s *RedisStore) FailedLoginCount(ctx context.Context, ip, email string) int64 {
	count, err := s.client.Get(ctx, s.keys.failedLogins(ip, email)).Int64()
	if err != nil {
		if err != redis.Nil {
			s.failOpen("failed_login_count", ip, err)
		}
		return 0
	}
	return count
}

func (s *RedisStore) IncrementFailedLogins(ctx context.Context, ip, email string, window time.Duration) int64 {
	return s.IncrementCounter(ctx, s.keys.failedLogins(ip, email), window)
}

func (s *RedisStore) ResetFailedLogins(ctx context.Context, ip, email string) {
	if err := s.client.Del(ctx, s.keys.failedLogins(ip, email)).Err(); err != nil {
		s.failOpen("reset_failed_logins", ip, err)
	}
}

func (s *RedisStore) RecordRequestStats(ctx context.Context, ip string) {
	now := time.Now()
	// Reporting-only counters; errors are swallowed without even the
	// fail-open log to keep the hot path quiet.
	pipe := s.client.Pipeline()
	hourly := s.keys.hourlyStats(now)
	daily := s.keys.dailyIPStats(ip, now)
	pipe.Incr(ctx, hourly)
	pipe.Expire(ctx, hourly, 2*time.Hour)
	pipe.Incr(ctx, daily)
	pipe.Expire(ctx, daily, 48*time.Hour)
	_, _ = pipe.Exec(ctx)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// failOpen records a backend failure without letting it surface to the
// caller. One hiccup degrades exactly one signal.
func (s *RedisStore) failOpen(op, subject string, err error) {
	metrics.IncStorageError()
	logger.WithFields(map[string]interface{}{
		"event":     "storage_error",
		"operation": op,
		"subject":   subject,
	}).WithError(err).Error("storage backend failure, failing open")
}
