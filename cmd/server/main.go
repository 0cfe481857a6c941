package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Techmee-Digital/arkane/internal/api"
	"github.com/Techmee-Digital/arkane/internal/auth"
	"github.com/Techmee-Digital/arkane/internal/config"
	"github.com/Techmee-Digital/arkane/internal/database"
	"github.com/Techmee-Digital/arkane/internal/dedupe"
	"github.com/Techmee-Digital/arkane/internal/lead"
	"github.com/Techmee-Digital/arkane/internal/staging"
	"github.com/Techmee-Digital/arkane/internal/team"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	db, err := database.New(ctx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	teamRepo := team.NewRepository(db.Pool())
	userRepo := auth.NewRepository(db.Pool())
	leadRepo := lead.NewRepository(db.Pool())

	authService := auth.NewService(userRepo, teamRepo, cfg.BcryptCost)
	if _, err := authService.BootstrapAdmin(context.Background()); err != nil {
		slog.Error("failed to bootstrap admin user", "error", err)
		os.Exit(1)
	}

	cache := staging.NewRedisCache(redisClient, time.Duration(cfg.StagingTTLHours)*time.Hour)
	dedupeService := dedupe.NewService(cache, leadRepo, cfg.AllowedExtensions())

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		CachePinger:    redisPinger{redisClient},
		Version:        cfg.Version,
		AuthService:    authService,
		UserRepo:       userRepo,
		TeamRepo:       teamRepo,
		LeadRepo:       leadRepo,
		DedupeService:  dedupeService,
		MaxUploadBytes: int64(cfg.MaxContentMB) << 20,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting arkane server", "port", cfg.Port, "version", cfg.Version)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

func initRedis(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return client, nil
}

// redisPinger adapts a redis client to the health handler's Pinger.
type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
