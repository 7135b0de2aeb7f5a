package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-quake-heatmap/internal/api"
	"github.com/mr1hm/go-quake-heatmap/internal/cache"
	"github.com/mr1hm/go-quake-heatmap/internal/config"
	"github.com/mr1hm/go-quake-heatmap/internal/feed"
	"github.com/mr1hm/go-quake-heatmap/internal/journal"
	"github.com/mr1hm/go-quake-heatmap/internal/logging"
	"github.com/mr1hm/go-quake-heatmap/internal/repository"
	"github.com/mr1hm/go-quake-heatmap/internal/stream"
	"github.com/mr1hm/go-quake-heatmap/internal/viewer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	if cfg.DB.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			logging.Fatalf("Failed to create database directory: %v", err)
		}
	}
	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fetch outcomes are journaled off the request path
	fetchJournal := journal.New(cfg, db)
	fetchJournal.Start(ctx)

	broadcaster := stream.NewBroadcaster()

	sessions := cache.New[*viewer.Session](cfg.Session.TTL, time.Minute,
		cache.WithEvictHook[*viewer.Session](func(id string, _ *viewer.Session) {
			broadcaster.CloseSession(id)
			slog.Info("session expired", "session", id)
		}),
	)

	client := feed.NewClient(cfg.Feed.Timeout)
	periods := feed.NewPeriods(cfg.Feed.BaseURL)
	newSession := func() *viewer.Session {
		return viewer.NewSession(viewer.Options{
			Fetcher:      client,
			Periods:      periods,
			Publisher:    broadcaster,
			Recorder:     fetchJournal,
			MapboxAPIKey: cfg.Map.MapboxAPIKey,
		})
	}

	limiter := api.NewRateLimiter(cfg.RateLimit.RPS, 10*time.Minute)

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(limiter.Middleware())

	handler := api.NewHandler(sessions, newSession, periods, db, broadcaster)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	broadcaster.Close() // Close all streams gracefully

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	sessions.Close()
	limiter.Close()
	fetchJournal.Stop()
	cancel()

	stats := fetchJournal.Stats()
	slog.Info("shutdown complete", "fetches_recorded", stats.Processed, "fetches_dropped", stats.Dropped)
}
