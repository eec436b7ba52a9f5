// Package config centralizes loading and validation of the threat engine
// configuration. Everything is read once at boot from environment variables
// and is immutable afterwards; a broken security configuration is fatal, not
// degraded.
package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationError marks a configuration value that failed validation. It is
// returned from Load and must abort process startup.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: invalid %s=%q: %s", e.Field, e.Value, e.Reason)
}

// Thresholds holds the detection thresholds. All fields are positive.
type Thresholds struct {
	// RapidRequests is the allowed number of requests per IP per minute.
	RapidRequests int
	// FailedLogins is the failure count that turns into a brute-force event.
	FailedLogins int
	// UniqueUserAgents caps distinct user agents per IP before the traffic
	// is considered automated.
	UniqueUserAgents int
	// RequestSizeBytes is the declared content length above which a request
	// is tagged large_request.
	RequestSizeBytes int64
	// ResponseTimeSeconds marks abnormally slow responses in reporting.
	ResponseTimeSeconds float64
}

// BlockDurations holds per-reason block durations.
type BlockDurations struct {
	SuspiciousIP   time.Duration
	BruteForce     time.Duration
	SQLInjection   time.Duration
	PathTraversal  time.Duration
	CriticalThreat time.Duration
	HighThreat     time.Duration
}

// ForReason returns the block duration for a reason string, falling back to
// the generic critical duration for unknown reasons.
func (b BlockDurations) ForReason(reason string) time.Duration {
	switch reason {
	case "suspicious_ip":
		return b.SuspiciousIP
	case "brute_force":
		return b.BruteForce
	case "sql_injection":
		return b.SQLInjection
	case "path_traversal":
		return b.PathTraversal
	case "high_threat":
		return b.HighThreat
	default:
		return b.CriticalThreat
	}
}

// RedisConfig carries connection settings for the shared store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config is the process-wide engine configuration. Construct via Load and
// pass by reference into the storage, detector, event handler and tracker
// constructors. Never mutate after boot.
type Config struct {
	Environment string
	HTTPPort    string
	Debug       bool
	LogDir      string

	// KeyNamespace prefixes every key written to the shared store.
	KeyNamespace string

	Thresholds Thresholds
	Durations  BlockDurations

	// Whitelist is the set of IPs exempt from all evaluation. Loopback
	// addresses are always present.
	Whitelist map[string]struct{}

	Redis RedisConfig

	// NotifyURLs are shoutrrr service URLs for the security-team
	// notification seam. Empty means notifications are log-only.
	NotifyURLs []string
}

// defaultWhitelist is merged into every loaded whitelist.
var defaultWhitelist = []string{"127.0.0.1", "::1"}

// Load reads env vars, applies documented defaults and validates eagerly.
// Any invalid threshold or duration returns a *ValidationError.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment:  getEnv("WARDEN_ENV", "development"),
		HTTPPort:     getEnv("WARDEN_HTTP_PORT", "8080"),
		Debug:        strings.EqualFold(getEnv("WARDEN_DEBUG", "false"), "true"),
		LogDir:       getEnv("WARDEN_LOG_DIR", "data/logs"),
		KeyNamespace: getEnv("WARDEN_KEY_NAMESPACE", "warden"),
	}

	var err error
	if cfg.Thresholds, err = loadThresholds(); err != nil {
		return nil, err
	}
	if cfg.Durations, err = loadDurations(); err != nil {
		return nil, err
	}
	cfg.Whitelist = loadWhitelist()

	if cfg.Redis, err = loadRedis(); err != nil {
		return nil, err
	}

	if raw := strings.TrimSpace(os.Getenv("WARDEN_NOTIFY_URLS")); raw != "" {
		for _, u := range strings.Split(raw, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.NotifyURLs = append(cfg.NotifyURLs, u)
			}
		}
	}

	return cfg, nil
}

// Reload re-reads and re-validates the full configuration. It exists for
// test harnesses; production processes load once at boot.
func Reload() (*Config, error) {
	return Load()
}

func loadThresholds() (Thresholds, error) {
	rapid, err := positiveInt("WARDEN_THRESHOLD_RAPID_REQUESTS", 100)
	if err != nil {
		return Thresholds{}, err
	}
	failed, err := positiveInt("WARDEN_THRESHOLD_FAILED_LOGINS", 5)
	if err != nil {
		return Thresholds{}, err
	}
	agents, err := positiveInt("WARDEN_THRESHOLD_UNIQUE_USER_AGENTS", 5)
	if err != nil {
		return Thresholds{}, err
	}
	size, err := positiveInt64("WARDEN_THRESHOLD_REQUEST_SIZE_BYTES", 10*1024*1024)
	if err != nil {
		return Thresholds{}, err
	}
	respTime, err := positiveFloat("WARDEN_THRESHOLD_RESPONSE_TIME_SECONDS", 30)
	if err != nil {
		return Thresholds{}, err
	}

	return Thresholds{
		RapidRequests:       rapid,
		FailedLogins:        failed,
		UniqueUserAgents:    agents,
		RequestSizeBytes:    size,
		ResponseTimeSeconds: respTime,
	}, nil
}

func loadDurations() (BlockDurations, error) {
	var d BlockDurations
	specs := []struct {
		env      string
		fallback int
		dst      *time.Duration
	}{
		{"WARDEN_BLOCK_SUSPICIOUS_IP_MINUTES", 60, &d.SuspiciousIP},
		{"WARDEN_BLOCK_BRUTE_FORCE_MINUTES", 120, &d.BruteForce},
		{"WARDEN_BLOCK_SQL_INJECTION_MINUTES", 1440, &d.SQLInjection},
		{"WARDEN_BLOCK_PATH_TRAVERSAL_MINUTES", 720, &d.PathTraversal},
		{"WARDEN_BLOCK_CRITICAL_THREAT_MINUTES", 1440, &d.CriticalThreat},
		{"WARDEN_BLOCK_HIGH_THREAT_MINUTES", 120, &d.HighThreat},
	}

	for _, spec := range specs {
		minutes, err := positiveInt(spec.env, spec.fallback)
		if err != nil {
			return BlockDurations{}, err
		}
		*spec.dst = time.Duration(minutes) * time.Minute
	}
	return d, nil
}

func loadWhitelist() map[string]struct{} {
	wl := make(map[string]struct{})
	for _, ip := range defaultWhitelist {
		wl[ip] = struct{}{}
	}
	for _, ip := range strings.Split(os.Getenv("WARDEN_IP_WHITELIST"), ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			wl[ip] = struct{}{}
		}
	}
	return wl
}

func loadRedis() (RedisConfig, error) {
	db := 0
	if raw := strings.TrimSpace(os.Getenv("WARDEN_REDIS_DB")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return RedisConfig{}, &ValidationError{Field: "WARDEN_REDIS_DB", Value: raw, Reason: "must be a non-negative integer"}
		}
		db = parsed
	}
	return RedisConfig{
		Addr:     getEnv("WARDEN_REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("WARDEN_REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

// Whitelisted reports whether the IP is exempt from all evaluation.
func (c *Config) Whitelisted(ip string) bool {
	_, ok := c.Whitelist[ip]
	return ok
}

// Introspect returns a human-readable view of every tunable for operational
// dashboards. The Redis password is omitted.
func (c *Config) Introspect() map[string]string {
	wl := make([]string, 0, len(c.Whitelist))
	for ip := range c.Whitelist {
		wl = append(wl, ip)
	}
	sort.Strings(wl)

	return map[string]string{
		"environment":                    c.Environment,
		"key_namespace":                  c.KeyNamespace,
		"whitelist":                      strings.Join(wl, ", "),
		"threshold.rapid_requests":       fmt.Sprintf("%d/min", c.Thresholds.RapidRequests),
		"threshold.failed_logins":        strconv.Itoa(c.Thresholds.FailedLogins),
		"threshold.unique_user_agents":   strconv.Itoa(c.Thresholds.UniqueUserAgents),
		"threshold.request_size_bytes":   strconv.FormatInt(c.Thresholds.RequestSizeBytes, 10),
		"threshold.response_time":        fmt.Sprintf("%.0fs", c.Thresholds.ResponseTimeSeconds),
		"block.suspicious_ip":            c.Durations.SuspiciousIP.String(),
		"block.brute_force":              c.Durations.BruteForce.String(),
		"block.sql_injection":            c.Durations.SQLInjection.String(),
		"block.path_traversal":           c.Durations.PathTraversal.String(),
		"block.critical_threat":          c.Durations.CriticalThreat.String(),
		"block.high_threat":              c.Durations.HighThreat.String(),
		"redis.addr":                     c.Redis.Addr,
		"notifications.external_targets": strconv.Itoa(len(c.NotifyURLs)),
	}
}

func positiveInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be an integer"}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be positive"}
	}
	return v, nil
}

func positiveInt64(key string, fallback int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be an integer"}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be positive"}
	}
	return v, nil
}

func positiveFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be a number"}
	}
	if v <= 0 {
		return 0, &ValidationError{Field: key, Value: raw, Reason: "must be positive"}
	}
	return v, nil
}

func getEnv(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}
