package security

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/notify"
	"github.com/wardenhq/warden/internal/storage"
)

// Login event vocabulary accepted by HandleLoginThreat.
const (
	LoginEventBruteForce      = "brute_force"
	LoginEventSuccessfulLogin = "successful_login"
	LoginEventFailedLogin     = "failed_login"
)

// Event carries the request or login context an enforcement decision is
// made from. Severity may be supplied explicitly; when left unspecified it
// is derived from Threats.
type Event struct {
	IP          string
	Email       string
	Path        string
	Method      string
	UserAgent   string
	Threats     TagSet
	Severity    Severity
	FailedCount int64
}

// EventHandler is the policy layer mapping a severity or login threat type
// to its enforcement action: block, log, notify. It owns the single seam
// where external paging integrations attach.
type EventHandler struct {
	cfg      *config.Config
	store    storage.Store
	notifier notify.Notifier
}

// NewEventHandler wires the policy layer. notifier may be nil, in which
// case notifications are log-only.
func NewEventHandler(cfg *config.Config, store storage.Store, notifier notify.Notifier) *EventHandler {
	return &EventHandler{cfg: cfg, store: store, notifier: notifier}
}

// eventLevels is the static log-level lookup for decision records.
var eventLevels = map[string]logrus.Level{
	"critical_threat_blocked": logrus.FatalLevel,
	"critical_threat":         logrus.FatalLevel,
	"brute_force_blocked":     logrus.ErrorLevel,
	"brute_force_detected":    logrus.ErrorLevel,
	"high_threat_blocked":     logrus.ErrorLevel,
	"failed_login":            logrus.WarnLevel,
	"suspicious_activity":     logrus.WarnLevel,
	"medium_threat":           logrus.WarnLevel,
}

func levelFor(event string) logrus.Level {
	if lvl, ok := eventLevels[event]; ok {
		return lvl
	}
	return logrus.InfoLevel
}

// HandleThreat dispatches the enforcement response for a detected request
// threat. Critical severities block for the threat type's dedicated
// duration (injection and traversal have their own; anything else critical
// uses the generic critical duration), high blocks for the high-threat
// duration, medium only logs and notifies.
func (h *EventHandler) HandleThreat(ctx context.Context, threatType string, evt Event) {
	severity := evt.Severity
	if severity == SeverityUnspecified {
		severity = DetermineSeverity(evt.Threats)
	}

	switch severity {
	case SeverityCritical:
		h.block(ctx, threatType, h.criticalDuration(threatType), evt, "critical_threat_blocked")
		h.notifySecurityTeam("critical_threat", h.payload(threatType, severity, evt))
	case SeverityHigh:
		h.block(ctx, threatType, h.cfg.Durations.HighThreat, evt, "high_threat_blocked")
		h.notifySecurityTeam("high_threat", h.payload(threatType, severity, evt))
	default:
		h.logDecision("medium_threat", evt, logrus.Fields{
			"threat_type":  threatType,
			"severity":     severity.String(),
			"action_taken": "logged",
		})
		h.notifySecurityTeam("medium_threat", h.payload(threatType, severity, evt))
	}
}

// HandleLoginThreat dispatches the independent login-event vocabulary.
// The brute-force block is triggered here, but the decision to emit
// brute_force belongs to the login tracker.
func (h *EventHandler) HandleLoginThreat(ctx context.Context, threatType string, evt Event) {
	switch threatType {
	case LoginEventBruteForce:
		h.block(ctx, "brute_force", h.cfg.Durations.BruteForce, evt, "brute_force_blocked")
		h.notifySecurityTeam("brute_force_detected", h.payload(threatType, SeverityHigh, evt))
	case LoginEventSuccessfulLogin:
		h.store.ResetFailedLogins(ctx, evt.IP, evt.Email)
		h.logDecision("successful_login", evt, logrus.Fields{"action_taken": "reset_failed_logins"})
	case LoginEventFailedLogin:
		h.logDecision("failed_login", evt, logrus.Fields{
			"failed_count": evt.FailedCount,
			"action_taken": "logged",
		})
		// Secondary alert path: the block itself comes from the tracker
		// emitting brute_force at this same threshold.
		if evt.FailedCount >= int64(h.cfg.Thresholds.FailedLogins) {
			h.notifySecurityTeam("failed_login_threshold", h.payload(threatType, SeverityUnspecified, evt))
		}
	}
}

func (h *EventHandler) criticalDuration(threatType string) time.Duration {
	switch threatType {
	case "sql_injection":
		return h.cfg.Durations.SQLInjection
	case "path_traversal":
		return h.cfg.Durations.PathTraversal
	default:
		return h.cfg.Durations.CriticalThreat
	}
}

func (h *EventHandler) block(ctx context.Context, reason string, duration time.Duration, evt Event, event string) {
	blocked := h.store.BlockIP(ctx, evt.IP, reason, duration)
	if blocked {
		metrics.IncIPBlocked(reason)
	}
	action := "blocked"
	if !blocked {
		action = "block_failed"
	}
	h.logDecision(event, evt, logrus.Fields{
		"threat_type":      reason,
		"action_taken":     action,
		"duration_minutes": int(duration / time.Minute),
	})
}

func (h *EventHandler) logDecision(event string, evt Event, extra logrus.Fields) {
	fields := logrus.Fields{
		"event":      event,
		"ip_address": evt.IP,
	}
	if evt.Path != "" {
		fields["path"] = evt.Path
	}
	if evt.Method != "" {
		fields["method"] = evt.Method
	}
	if evt.Email != "" {
		fields["email"] = evt.Email
	}
	if len(evt.Threats) > 0 {
		fields["threats"] = evt.Threats.Strings()
	}
	for k, v := range extra {
		fields[k] = v
	}
	logger.WithFields(fields).Log(levelFor(event), "security decision")
}

func (h *EventHandler) payload(threatType string, severity Severity, evt Event) map[string]interface{} {
	p := map[string]interface{}{
		"threat_type": threatType,
		"ip_address":  evt.IP,
	}
	if severity != SeverityUnspecified {
		p["severity"] = severity.String()
	}
	if evt.Path != "" {
		p["path"] = evt.Path
	}
	if evt.Method != "" {
		p["method"] = evt.Method
	}
	if evt.UserAgent != "" {
		p["user_agent"] = evt.UserAgent
	}
	if evt.Email != "" {
		p["email"] = evt.Email
	}
	if len(evt.Threats) > 0 {
		p["threats"] = evt.Threats.Strings()
	}
	if evt.FailedCount > 0 {
		p["failed_count"] = evt.FailedCount
	}
	return p
}

// notifySecurityTeam writes the structured payload to the log sink and
// hands it to the external dispatcher when one is attached. It never
// panics and never blocks the caller; retry discipline belongs to the
// dispatcher, not here.
func (h *EventHandler) notifySecurityTeam(notificationType string, details map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithFields(map[string]interface{}{
				"event": "notification_panic",
			}).Errorf("security notification panicked: %v", r)
		}
	}()

	details["notification_type"] = notificationType
	details["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	details["notification_id"] = uuid.NewString()

	logger.WithFields(logrus.Fields(details)).Info("security team notification")
	metrics.IncNotification()

	if h.notifier != nil {
		h.notifier.Notify(notificationType, details)
	}
}
