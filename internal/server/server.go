// Package server wires the gin engine, middleware chain and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardenhq/warden/internal/api/handlers"
	"github.com/wardenhq/warden/internal/api/middleware"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/metrics"
	"github.com/wardenhq/warden/internal/notify"
	"github.com/wardenhq/warden/internal/security"
	"github.com/wardenhq/warden/internal/storage"
)

// Server bundles the HTTP engine with the threat engine components so tests
// can drive the full stack through httptest.
type Server struct {
	Engine  *gin.Engine
	Tracker *security.LoginTracker
	Auth    *handlers.AuthHandler
}

// New constructs the engine components on top of the given store and
// registers the middleware chain and routes.
func New(cfg *config.Config, store storage.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	var notifier notify.Notifier
	if len(cfg.NotifyURLs) > 0 {
		notifier = notify.NewShoutrrr(cfg.NotifyURLs)
	}

	detector := security.NewDetector(cfg, store)
	events := security.NewEventHandler(cfg, store, notifier)
	tracker := security.NewLoginTracker(cfg, store, events)

	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(cfg.Debug),
		middleware.Guard(cfg, store, detector, events),
	)

	authHandler := handlers.NewAuthHandler(tracker)
	securityHandler := handlers.NewSecurityHandler(cfg, store)
	healthHandler := handlers.NewHealthHandler(store)

	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")
	{
		api.POST("/auth/login", authHandler.Login)

		sec := api.Group("/security")
		sec.GET("/config", securityHandler.GetConfig)
		sec.GET("/blocked/:ip", securityHandler.GetBlocked)
		sec.POST("/block", securityHandler.Block)
		sec.GET("/failed-logins", securityHandler.GetFailedLogins)
		sec.DELETE("/failed-logins", securityHandler.ResetFailedLogins)
	}

	return &Server{Engine: router, Tracker: tracker, Auth: authHandler}
}
