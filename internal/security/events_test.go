package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenhq/warden/internal/storage"
)

func TestHandleThreat_CriticalSQLInjection(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	h.HandleThreat(context.Background(), "sql_injection", Event{
		IP:      "198.51.100.9",
		Path:    "/search",
		Method:  "GET",
		Threats: NewTagSet(TagSQLInjection),
	})

	assert.True(t, store.IsBlocked(context.Background(), "198.51.100.9"))
	record, ok := store.BlockRecordFor("sql_injection", "198.51.100.9")
	require.True(t, ok)
	assert.Equal(t, 1440, record.DurationMinutes)
	assert.Equal(t, []string{"critical_threat"}, notifier.sent())
}

func TestHandleThreat_PathTraversalScenario(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	tags := NewTagSet(TagPathTraversal)
	require.Equal(t, SeverityCritical, DetermineSeverity(tags))

	h.HandleThreat(context.Background(), "path_traversal", Event{
		IP:      "198.51.100.10",
		Path:    "/../../etc/passwd.csv",
		Method:  "GET",
		Threats: tags,
	})

	record, ok := store.BlockRecordFor("path_traversal", "198.51.100.10")
	require.True(t, ok)
	assert.Equal(t, 720, record.DurationMinutes)
}

func TestHandleThreat_GenericCriticalUsesCriticalDuration(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	h := NewEventHandler(cfg, store, nil)

	h.HandleThreat(context.Background(), "suspicious_activity", Event{
		IP:       "198.51.100.11",
		Severity: SeverityCritical,
	})

	record, ok := store.BlockRecordFor("suspicious_activity", "198.51.100.11")
	require.True(t, ok)
	assert.Equal(t, 1440, record.DurationMinutes)
}

func TestHandleThreat_HighBlocksForHighThreatDuration(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	tags := NewTagSet(TagRapidRequests, TagSuspiciousUserAgent)
	h.HandleThreat(context.Background(), string(tags.Dominant()), Event{
		IP:      "198.51.100.12",
		Threats: tags,
	})

	record, ok := store.BlockRecordFor("rapid_requests", "198.51.100.12")
	require.True(t, ok)
	assert.Equal(t, 120, record.DurationMinutes)
	assert.Equal(t, []string{"high_threat"}, notifier.sent())
}

func TestHandleThreat_MediumLogsAndNotifiesWithoutBlocking(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	h.HandleThreat(context.Background(), "rapid_requests", Event{
		IP:      "198.51.100.13",
		Threats: NewTagSet(TagRapidRequests),
	})

	assert.False(t, store.IsBlocked(context.Background(), "198.51.100.13"))
	assert.Equal(t, []string{"medium_threat"}, notifier.sent())
}

func TestHandleThreat_ExplicitSeverityWins(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	h := NewEventHandler(cfg, store, nil)

	// Tags alone would derive medium; the caller supplied high.
	h.HandleThreat(context.Background(), "large_request", Event{
		IP:       "198.51.100.14",
		Threats:  NewTagSet(TagLargeRequest),
		Severity: SeverityHigh,
	})

	record, ok := store.BlockRecordFor("large_request", "198.51.100.14")
	require.True(t, ok)
	assert.Equal(t, 120, record.DurationMinutes)
}

func TestHandleLoginThreat_BruteForceBlocks(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	h.HandleLoginThreat(context.Background(), LoginEventBruteForce, Event{
		IP:          "203.0.113.5",
		Email:       "admin@example.com",
		FailedCount: 5,
	})

	record, ok := store.BlockRecordFor("brute_force", "203.0.113.5")
	require.True(t, ok)
	assert.Equal(t, 120, record.DurationMinutes)
	assert.Equal(t, []string{"brute_force_detected"}, notifier.sent())
}

func TestHandleLoginThreat_SuccessfulLoginResetsCounter(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	h := NewEventHandler(cfg, store, nil)
	ctx := context.Background()

	store.IncrementFailedLogins(ctx, "203.0.113.6", "user@example.com", time.Hour)
	store.IncrementFailedLogins(ctx, "203.0.113.6", "user@example.com", time.Hour)

	h.HandleLoginThreat(ctx, LoginEventSuccessfulLogin, Event{
		IP:    "203.0.113.6",
		Email: "user@example.com",
	})

	assert.Equal(t, int64(0), store.FailedLoginCount(ctx, "203.0.113.6", "user@example.com"))
}

func TestHandleLoginThreat_FailedLoginNotifiesOnlyAtThreshold(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	h.HandleLoginThreat(context.Background(), LoginEventFailedLogin, Event{
		IP:          "203.0.113.7",
		Email:       "user@example.com",
		FailedCount: 2,
	})
	assert.Empty(t, notifier.sent())

	h.HandleLoginThreat(context.Background(), LoginEventFailedLogin, Event{
		IP:          "203.0.113.7",
		Email:       "user@example.com",
		FailedCount: 5,
	})
	assert.Equal(t, []string{"failed_login_threshold"}, notifier.sent())

	// The secondary alert path never blocks on its own.
	assert.False(t, store.IsBlocked(context.Background(), "203.0.113.7"))
}

func TestNotifyPayloadShape(t *testing.T) {
	cfg := testConfig()
	store := storage.NewMemory("test")
	notifier := &fakeNotifier{}
	h := NewEventHandler(cfg, store, notifier)

	h.HandleThreat(context.Background(), "sql_injection", Event{
		IP:      "198.51.100.15",
		Path:    "/search",
		Method:  "GET",
		Threats: NewTagSet(TagSQLInjection),
	})

	require.Len(t, notifier.payloads, 1)
	payload := notifier.payloads[0]
	assert.Equal(t, "critical_threat", payload["notification_type"])
	assert.Equal(t, "198.51.100.15", payload["ip_address"])
	assert.NotEmpty(t, payload["timestamp"])
	assert.NotEmpty(t, payload["notification_id"])

	ts, ok := payload["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestLevelMapping(t *testing.T) {
	assert.Equal(t, "fatal", levelFor("critical_threat_blocked").String())
	assert.Equal(t, "fatal", levelFor("critical_threat").String())
	assert.Equal(t, "error", levelFor("brute_force_blocked").String())
	assert.Equal(t, "error", levelFor("brute_force_detected").String())
	assert.Equal(t, "error", levelFor("high_threat_blocked").String())
	assert.Equal(t, "warning", levelFor("failed_login").String())
	assert.Equal(t, "warning", levelFor("suspicious_activity").String())
	assert.Equal(t, "warning", levelFor("medium_threat").String())
	assert.Equal(t, "info", levelFor("successful_login").String())
}
