package security

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/storage"
)

// maxInspectBytes bounds how much of a request body is read for injection
// inspection. Bodies declaring more than this are skipped entirely.
const maxInspectBytes = 1 << 20

// rateWindow is the sliding window for the per-IP rolling request counter.
const rateWindow = 60 * time.Second

// Detector classifies a single request into a set of threat tags. It is
// stateless; the only shared state it touches is the rolling rate counter
// in the store. Detect never returns an error and never panics so the
// calling request pipeline cannot be crashed by its own defenses.
type Detector struct {
	cfg   *config.Config
	store storage.Store
}

// NewDetector wires a detector to its configuration and shared store.
func NewDetector(cfg *config.Config, store storage.Store) *Detector {
	return &Detector{cfg: cfg, store: store}
}

// ClientIP resolves the client address with forwarded-for priority: first
// entry of X-Forwarded-For, else X-Real-IP, else the transport peer.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Detect evaluates every signal for the request and unions the results.
// Whitelisted IPs get the empty set immediately with zero storage access.
// All other checks run unconditionally; none short-circuits another.
func (d *Detector) Detect(ctx context.Context, r *http.Request) TagSet {
	tags := make(TagSet)

	ip := ClientIP(r)
	if d.cfg.Whitelisted(ip) {
		return tags
	}

	if d.rapidRequests(ctx, ip) {
		tags.Add(TagRapidRequests)
	}
	if suspiciousUserAgent(r.UserAgent()) {
		tags.Add(TagSuspiciousUserAgent)
	}
	if matchesAny(traversalPatterns, requestTarget(r)) {
		tags.Add(TagPathTraversal)
	}
	if d.sqlInjection(r) {
		tags.Add(TagSQLInjection)
	}
	if r.ContentLength > d.cfg.Thresholds.RequestSizeBytes {
		tags.Add(TagLargeRequest)
	}

	return tags
}

func (d *Detector) rapidRequests(ctx context.Context, ip string) bool {
	key := storage.RequestCountKey(d.cfg.KeyNamespace, ip)
	count := d.store.IncrementCounter(ctx, key, rateWindow)
	return count > int64(d.cfg.Thresholds.RapidRequests)
}

func suspiciousUserAgent(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	return matchesAny(suspiciousAgentPatterns, ua)
}

// requestTarget is the path plus raw query, so percent-encoded traversal
// sequences smuggled through either part are visible to the pattern table.
func requestTarget(r *http.Request) string {
	if r.URL.RawQuery == "" {
		return r.URL.Path
	}
	return r.URL.Path + "?" + r.URL.RawQuery
}

func (d *Detector) sqlInjection(r *http.Request) bool {
	var sb strings.Builder
	sb.WriteString(r.URL.RawQuery)
	sb.WriteString(" ")
	// Form encoding hides keyword spacing behind '+' and %xx escapes;
	// inspect the decoded query as well.
	if decoded, err := url.QueryUnescape(r.URL.RawQuery); err == nil && decoded != r.URL.RawQuery {
		sb.WriteString(decoded)
		sb.WriteString(" ")
	}
	sb.WriteString(d.inspectableBody(r))
	sb.WriteString(" ")
	sb.WriteString(r.URL.Path)
	return matchesAny(sqlInjectionPatterns, sb.String())
}

// inspectableBody reads at most maxInspectBytes of the request body and
// restores the stream so downstream handlers still see the full payload.
// A read failure degrades this one signal only: it is logged at warn and
// treated as "no body available".
func (d *Detector) inspectableBody(r *http.Request) string {
	if r.Body == nil || r.ContentLength == 0 || r.ContentLength > maxInspectBytes {
		return ""
	}

	buf, err := io.ReadAll(io.LimitReader(r.Body, maxInspectBytes))
	if len(buf) > 0 || err == nil {
		r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(buf), r.Body))
	}
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"event": "body_read_failed",
			"path":  r.URL.Path,
		}).WithError(err).Warn("request body unavailable for inspection")
		return ""
	}
	return string(buf)
}
