// Package storage abstracts the shared key-value store the threat engine
// keeps its rolling counters, failed-login counters and blocklist in.
//
// Every operation is best-effort and fail-open: a backend failure is caught
// at this boundary, logged, and converted to a safe default (0, false or a
// no-op). A store outage degrades detection; it never denies traffic and it
// never raises into the request path.
package storage

import (
	"context"
	"time"
)

// Store is the contract the detector, event handler and login tracker
// program against. Implementations must keep each method individually
// failure-isolated so one backend hiccup degrades exactly one signal.
type Store interface {
	// IncrementCounter atomically increments key and sets its expiry only
	// when the post-increment value is 1 (first write in a window).
	// Returns 0 on backend failure.
	IncrementCounter(ctx context.Context, key string, window time.Duration) int64

	// IsBlocked reports whether any unexpired block record exists for the
	// IP, across all reason categories. Returns false on backend failure.
	IsBlocked(ctx context.Context, ip string) bool

	// BlockIP writes a block record whose own TTL equals the duration.
	// Record existence is the authoritative "is blocked" truth; no cleanup
	// job is needed. Returns false on backend failure.
	BlockIP(ctx context.Context, ip, reason string, duration time.Duration) bool

	// FailedLoginCount returns the current failure count for (ip, email),
	// 0 when absent or on backend failure.
	FailedLoginCount(ctx context.Context, ip, email string) int64

	// IncrementFailedLogins bumps the failure counter for (ip, email) with
	// the given window. Returns 0 on backend failure.
	IncrementFailedLogins(ctx context.Context, ip, email string, window time.Duration) int64

	// ResetFailedLogins deletes the failure counter. Idempotent; deleting
	// an absent key is not an error.
	ResetFailedLogins(ctx context.Context, ip, email string)

	// RecordRequestStats bumps fire-and-forget aggregate counters (hourly
	// global, per-IP daily) used only for reporting. Failures are swallowed
	// entirely.
	RecordRequestStats(ctx context.Context, ip string)

	// Ping probes backend liveness for health checks.
	Ping(ctx context.Context) error
}

// BlockRecord is the value stored under a block key. The key's own expiry
// carries the enforcement deadline; the fields exist for audit readers.
type BlockRecord struct {
	BlockedAt       time.Time `json:"blocked_at"`
	Reason          string    `json:"reason"`
	DurationMinutes int       `json:"duration_minutes"`
	BlockedUntil    time.Time `json:"blocked_until"`
}

// FailedLoginWindow is how long authentication failures accumulate before
// the counter expires on its own.
const FailedLoginWindow = time.Hour

// keys builds namespaced store keys so several processes sharing one
// backend cannot collide.
type keys struct {
	ns string
}

func (k keys) requestCount(ip string) string {
	return k.ns + ":request_count:" + ip
}

func (k keys) failedLogins(ip, email string) string {
	return k.ns + ":failed_logins:" + ip + ":" + email
}

func (k keys) blocked(reason, ip string) string {
	return k.ns + ":blocked:" + reason + ":" + ip
}

func (k keys) blockedPattern(ip string) string {
	return k.ns + ":blocked:*:" + ip
}

func (k keys) hourlyStats(t time.Time) string {
	return k.ns + ":stats:requests:" + t.UTC().Format("2006010215")
}

func (k keys) dailyIPStats(ip string, t time.Time) string {
	return k.ns + ":stats:ip:" + t.UTC().Format("20060102") + ":" + ip
}

// RequestCountKey exposes the rolling rate-counter key for an IP so the
// detector can feed it to IncrementCounter.
func RequestCountKey(namespace, ip string) string {
	return keys{ns: namespace}.requestCount(ip)
}
