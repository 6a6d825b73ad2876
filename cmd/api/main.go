// Command api is the Mercato Data query API server.
//
// Usage:
//
//	mercato-api
//	API_PORT=8080 mercato-api

// @title Mercato Data API
// @version 1.0.0
// @description Fantasy football transfer-market data scraped from LaLiga Fantasy market pages: players, market values, statistics, and the scrape run log.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Mercato Data
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/mercato-data/internal/api"
	"github.com/albapepper/mercato-data/internal/api/handler"
	"github.com/albapepper/mercato-data/internal/cache"
	"github.com/albapepper/mercato-data/internal/config"
	"github.com/albapepper/mercato-data/internal/db"
	"github.com/albapepper/mercato-data/internal/listener"
	"github.com/albapepper/mercato-data/internal/runlog"
	"github.com/albapepper/mercato-data/internal/store/postgres"

	_ "github.com/albapepper/mercato-data/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	appCache := cache.New(cfg.CacheEnabled)
	defer appCache.Close()
	logger.Info("Cache initialized", "enabled", cfg.CacheEnabled, "ttl", cfg.CacheTTL)

	// Drop cached player responses whenever ingest changes the collection
	go listener.Start(ctx, cfg.DatabaseURL, func(ev listener.ChangeEvent) {
		n := appCache.Flush()
		logger.Info("Cache flushed", "reason", ev.Reason, "count", ev.Count, "entries", n)
	}, logger)

	h := handler.New(
		postgres.New(pool),
		runlog.NewPostgres(pool, cfg.RunLogLimit),
		pool,
		appCache,
	).WithTTL(cfg.CacheTTL)
	router := api.NewRouter(h, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Mercato Data API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
