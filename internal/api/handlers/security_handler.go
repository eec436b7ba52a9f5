package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/storage"
)

// SecurityHandler exposes the engine's operational surface: configuration
// introspection, blocklist queries, manual blocks and failed-login counter
// management.
type SecurityHandler struct {
	cfg   *config.Config
	store storage.Store
}

// NewSecurityHandler wires the ops endpoints.
func NewSecurityHandler(cfg *config.Config, store storage.Store) *SecurityHandler {
	return &SecurityHandler{cfg: cfg, store: store}
}

// GetConfig returns the human-readable configuration view.
func (h *SecurityHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.cfg.Introspect())
}

// GetBlocked reports whether an IP currently has an unexpired block record.
func (h *SecurityHandler) GetBlocked(c *gin.Context) {
	ip := c.Param("ip")
	c.JSON(http.StatusOK, gin.H{
		"ip":      ip,
		"blocked": h.store.IsBlocked(c.Request.Context(), ip),
	})
}

type blockRequest struct {
	IP     string `json:"ip" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// Block writes a manual block record for the reason's configured duration.
func (h *SecurityHandler) Block(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip and reason are required"})
		return
	}

	duration := h.cfg.Durations.ForReason(req.Reason)
	if !h.store.BlockIP(c.Request.Context(), req.IP, req.Reason, duration) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "block could not be written"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ip":               req.IP,
		"reason":           req.Reason,
		"duration_minutes": int(duration.Minutes()),
	})
}

// GetFailedLogins reports the failure counter for (ip, email).
func (h *SecurityHandler) GetFailedLogins(c *gin.Context) {
	ip := c.Query("ip")
	email := c.Query("email")
	if ip == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip and email query params are required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ip":           ip,
		"email":        email,
		"failed_count": h.store.FailedLoginCount(c.Request.Context(), ip, email),
	})
}

// ResetFailedLogins clears the failure counter. Idempotent.
func (h *SecurityHandler) ResetFailedLogins(c *gin.Context) {
	ip := c.Query("ip")
	email := c.Query("email")
	if ip == "" || email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ip and email query params are required"})
		return
	}
	h.store.ResetFailedLogins(c.Request.Context(), ip, email)
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}
