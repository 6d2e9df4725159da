// Package main is the entry point for the pheezes API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pheezes/internal/app"
	"pheezes/internal/infrastructure/cache"
	v1 "pheezes/internal/infrastructure/http/v1"
	"pheezes/internal/infrastructure/http/v1/dto"
	"pheezes/pkg/logger"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: !cfg.IsProduction(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting pheezes server", "env", cfg.AppEnv, "storage", cfg.StorageDriver)

	if err := dto.RegisterValidators(); err != nil {
		log.Fatalw("failed to register validators", "error", err)
	}

	services, err := app.NewServices(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to initialize storage", "error", err)
	}
	defer services.Close()

	// --- View cache (optional) ---
	var views *cache.Cache
	if cfg.RedisAddr != "" {
		client, err := cache.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warnw("redis unavailable, response caching disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			defer func() { _ = client.Close() }()
			views = cache.New(client, cfg.CacheTTL)
			log.Infow("response caching enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
		}
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Catalog:    services.Catalog,
		Orders:     services.Orders,
		Cash:       services.Cash,
		Storage:    services.Storage,
		Views:      views,
		Logger:     log,
		Production: cfg.IsProduction(),

		Idempotency: services.Idempotency,
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  2 * cfg.HTTPReadTimeout,
	}

	go func() {
		log.Infow("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
