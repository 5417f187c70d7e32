package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nirmalyamohanty/redfitchat/internal/api"
	"github.com/nirmalyamohanty/redfitchat/internal/auth"
	"github.com/nirmalyamohanty/redfitchat/internal/chat"
	"github.com/nirmalyamohanty/redfitchat/internal/config"
	"github.com/nirmalyamohanty/redfitchat/internal/moderation"
	"github.com/nirmalyamohanty/redfitchat/internal/ratelimit"
	"github.com/nirmalyamohanty/redfitchat/internal/socket"
	"github.com/nirmalyamohanty/redfitchat/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize store: PostgreSQL when configured, SQLite otherwise
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Rate limiter: Redis-backed when configured, in-memory otherwise
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		limiter = ratelimit.NewRedisLimiter(client, cfg.MessageRateLimit, time.Minute)
		logger.Info().Msg("connected to Redis")
	} else {
		memLimiter := ratelimit.NewMemoryLimiter(cfg.MessageRateLimit, time.Minute)
		go func() {
			ticker := time.NewTicker(5 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memLimiter.Prune()
			}
		}()
		limiter = memLimiter
	}

	// Wire delivery core: verifier, service, hub
	verifier := auth.NewVerifier(cfg.JWTSecret, dataStore)
	filter := moderation.NewWordFilter(nil)
	svc := chat.NewService(dataStore, limiter, filter, logger)
	hub := socket.NewHub(svc, verifier, logger)
	svc.SetBroadcaster(hub)

	// Retention job
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	janitor := chat.NewJanitor(dataStore, time.Duration(cfg.RetentionDays)*24*time.Hour, time.Hour, logger)
	go janitor.Run(janitorCtx)

	// Create router
	router := api.NewRouter(logger, svc, dataStore, hub, verifier)

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting redfitchat server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
