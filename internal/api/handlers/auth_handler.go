// Package handlers holds the thin HTTP layer around the threat engine: a
// demo authentication endpoint standing in for the real credential service,
// and operational endpoints for dashboards.
package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/internal/security"
)

// AuthHandler demonstrates the authentication-caller contract: pre-check
// the credential pair before expensive verification, then feed every
// outcome into the login tracker. IP-level blocks are enforced earlier by
// the guard middleware.
type AuthHandler struct {
	tracker *security.LoginTracker

	mu    sync.RWMutex
	users map[string]string // email -> bcrypt hash
}

// NewAuthHandler returns a handler backed by an in-memory credential set.
func NewAuthHandler(tracker *security.LoginTracker) *AuthHandler {
	return &AuthHandler{tracker: tracker, users: make(map[string]string)}
}

// RegisterUser stores a bcrypt hash for the email. Demo seeding only.
func (h *AuthHandler) RegisterUser(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.users[email] = string(hash)
	h.mu.Unlock()
	return nil
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login verifies credentials and reports the attempt to the tracker. A
// pair at the failure threshold is denied before any credential work
// happens.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := c.Request.Context()
	ip := security.ClientIP(c.Request)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	if h.tracker.IsLoginBlocked(ctx, ip, req.Email) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return
	}

	h.mu.RLock()
	hash, exists := h.users[req.Email]
	h.mu.RUnlock()

	ok := exists && bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) == nil
	h.tracker.TrackLoginAttempt(ctx, ip, req.Email, ok, c.Request.UserAgent())

	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "authenticated"})
}
