package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/security"
	"github.com/wardenhq/warden/internal/storage"
)

// Guard adapts the threat engine to the request path: deny already-blocked
// IPs, classify everything else, and hand detected threats to the policy
// layer. Whitelisted IPs pass straight through with zero storage access.
func Guard(cfg *config.Config, store storage.Store, det *security.Detector, events *security.EventHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := security.ClientIP(c.Request)

		if cfg.Whitelisted(ip) {
			c.Next()
			return
		}

		if store.IsBlocked(ctx, ip) {
			GetRequestLogger(c).WithFields(map[string]interface{}{
				"event":      "request_denied",
				"ip_address": ip,
				"path":       c.Request.URL.Path,
			}).Warn("request from blocked IP denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		metrics.IncRequestEvaluated()
		store.RecordRequestStats(ctx, ip)

		tags := det.Detect(ctx, c.Request)
		if len(tags) == 0 {
			c.Next()
			return
		}
		for tag := range tags {
			metrics.IncThreatDetected(string(tag))
		}

		severity := security.DetermineSeverity(tags)
		events.HandleThreat(ctx, string(tags.Dominant()), security.Event{
			IP:        ip,
			Path:      c.Request.URL.Path,
			Method:    c.Request.Method,
			UserAgent: c.Request.UserAgent(),
			Threats:   tags,
			Severity:  severity,
		})

		// A critical or high event has just written a block record; the
		// triggering request itself is denied as well.
		if severity >= security.SeverityHigh && store.IsBlocked(ctx, ip) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}

		c.Next()
	}
}
