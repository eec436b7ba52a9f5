package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/logger"
	"github.com/wardenhq/warden/internal/server"
	"github.com/wardenhq/warden/internal/storage"
	"github.com/wardenhq/warden/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// A broken security config is fatal, never degraded.
		log.Fatalf("load config: %v", err)
	}

	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		log.Fatalf("ensure log directory: %v", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.LogDir, "warden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}
	logger.Init(cfg.Debug, io.MultiWriter(os.Stdout, rotator))

	logger.Log().Infof("starting %s %s", version.Name, version.Full())

	var store storage.Store
	redisStore, err := storage.NewRedis(cfg.Redis, cfg.KeyNamespace)
	if err != nil {
		// Shared state is unavailable; run fail-open on the in-process
		// store rather than refusing traffic. Counters and blocks will
		// not be shared across workers until Redis returns.
		logger.Log().WithError(err).Warn("redis unavailable, falling back to in-memory store")
		store = storage.NewMemory(cfg.KeyNamespace)
	} else {
		defer redisStore.Close()
		store = redisStore
	}

	srv := server.New(cfg, store)

	addr := fmt.Sprintf(":%s", cfg.HTTPPort)
	logger.Log().Infof("listening on %s", addr)
	if err := srv.Engine.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
