package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/lungscan/internal/bootstrap"
	"github.com/bryanwahyu/lungscan/internal/config"
	"github.com/bryanwahyu/lungscan/internal/infra/httpserver"
	"github.com/bryanwahyu/lungscan/internal/middleware"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		logger.Error("config load error", "path", path, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	app, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup error", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.PerMinute)
	defer limiter.Stop()

	handler := httpserver.NewRouter(app.Scans, app.Reports, httpserver.Options{
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		APIKeys:        middleware.KeysFromList(cfg.Auth.APIKeys),
		Limiter:        limiter,
		HealthCheckers: app.Checkers,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// advisory call is bounded by ai.timeout; leave room for it
		WriteTimeout: cfg.AI.Timeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
