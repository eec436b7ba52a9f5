package security

import (
	"context"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/storage"
)

// LoginTracker converts repeated authentication failures into brute-force
// events. Per (ip, email) the conceptual state machine is Clean →
// Accumulating(n) on each failure, with the failure reaching the threshold
// emitting brute_force (which blocks the IP), and any success resetting the
// counter back to Clean. A success resets only the counter, never an
// already-issued IP block.
type LoginTracker struct {
	cfg    *config.Config
	store  storage.Store
	events *EventHandler
}

// NewLoginTracker wires the tracker to the shared store and policy layer.
func NewLoginTracker(cfg *config.Config, store storage.Store, events *EventHandler) *LoginTracker {
	return &LoginTracker{cfg: cfg, store: store, events: events}
}

// TrackLoginAttempt records one authentication attempt and routes the
// resulting login event.
func (t *LoginTracker) TrackLoginAttempt(ctx context.Context, ip, email string, success bool, userAgent string) {
	evt := Event{IP: ip, Email: email, UserAgent: userAgent}

	if success {
		t.store.ResetFailedLogins(ctx, ip, email)
		t.events.HandleLoginThreat(ctx, LoginEventSuccessfulLogin, evt)
		return
	}

	count := t.store.IncrementFailedLogins(ctx, ip, email, storage.FailedLoginWindow)
	evt.FailedCount = count

	if count >= int64(t.cfg.Thresholds.FailedLogins) {
		t.events.HandleLoginThreat(ctx, LoginEventBruteForce, evt)
		return
	}
	t.events.HandleLoginThreat(ctx, LoginEventFailedLogin, evt)
}

// IsLoginBlocked lets the authentication caller pre-check a credential pair
// before doing expensive verification. It reports only the failure-counter
// state; IP-level block enforcement belongs to the web layer and an issued
// block does not change this answer.
func (t *LoginTracker) IsLoginBlocked(ctx context.Context, ip, email string) bool {
	return t.store.FailedLoginCount(ctx, ip, email) >= int64(t.cfg.Thresholds.FailedLogins)
}

// FailedCount reports the current failure count for (ip, email).
func (t *LoginTracker) FailedCount(ctx context.Context, ip, email string) int64 {
	return t.store.FailedLoginCount(ctx, ip, email)
}

// ResetFailures clears the failure counter. Idempotent.
func (t *LoginTracker) ResetFailures(ctx context.Context, ip, email string) {
	t.store.ResetFailedLogins(ctx, ip, email)
}
