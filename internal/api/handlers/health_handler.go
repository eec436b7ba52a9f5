package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wardenhq/warden/internal/storage"
	"github.com/wardenhq/warden/internal/version"
)

// HealthHandler reports process and store liveness.
type HealthHandler struct {
	store storage.Store
}

// NewHealthHandler wires the health endpoint to the shared store.
func NewHealthHandler(store storage.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Healthz probes the storage backend. The engine itself fails open on
// store outage, so a degraded store reports 503 here without affecting
// request handling.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := gin.H{"status": "ok", "version": version.Full()}
	if err := h.store.Ping(c.Request.Context()); err != nil {
		status["status"] = "degraded"
		status["storage"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	status["storage"] = "ok"
	c.JSON(http.StatusOK, status)
}
