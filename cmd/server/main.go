package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/facepass/internal/api"
	"github.com/iconidentify/facepass/internal/api/handler"
	"github.com/iconidentify/facepass/internal/config"
	"github.com/iconidentify/facepass/internal/repository"
	"github.com/iconidentify/facepass/internal/service"
	"github.com/iconidentify/facepass/internal/worker"
	"github.com/iconidentify/facepass/pkg/gemini"
	"github.com/iconidentify/facepass/pkg/twitter"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("facepass %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting facepass",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Open storage
	db, err := repository.OpenSQLite(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	cacheRepo := repository.NewSQLiteMediaCacheRepository(db, cfg.Cache.TTL)
	identityRepo := repository.NewSQLiteIdentityRepository(db)
	tokenRepo := repository.NewSQLiteTokenRepository(db, cfg.Database.TokenSealKey)
	jobRepo := repository.NewInMemoryJobRepository()

	// Initialize external clients
	tokenSource := service.NewOverrideTokenSource(tokenRepo, cfg.Twitter.BearerToken)
	twitterClient := twitter.NewClient(twitter.Config{
		BaseURL:       cfg.Twitter.BaseURL,
		Timeout:       cfg.Twitter.Timeout,
		RatePerSecond: cfg.Twitter.RatePerSecond,
		UserAgent:     "facepass/" + Version,
	}, tokenSource)
	geminiClient := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		Timeout: cfg.Gemini.Timeout,
	})

	retryCfg := service.RetryConfig{
		MaxAttempts:   cfg.Retry.MaxAttempts,
		InitialDelay:  cfg.Retry.InitialDelay,
		MaxDelay:      cfg.Retry.MaxDelay,
		BackoffFactor: cfg.Retry.BackoffFactor,
	}

	// Initialize services
	eventSvc := service.NewEventService(service.DefaultEventServiceConfig(), db, logger)
	filter := service.NewPersonalContentFilter(geminiClient, retryCfg, logger)
	mediaSvc := service.NewMediaService(
		cacheRepo,
		identityRepo,
		twitterClient,
		filter,
		eventSvc,
		service.MediaServiceConfig{
			FetchLimit: cfg.Cache.FetchLimit,
			Retry:      retryCfg,
		},
		logger,
	)

	// Initialize handlers
	mediaHandler := handler.NewMediaHandler(mediaSvc, logger)
	adminHandler := handler.NewAdminHandler(mediaSvc, jobRepo, tokenRepo, identityRepo, cfg.Worker.MaxRetries, logger)
	healthHandler := handler.NewHealthHandler(db, jobRepo, eventSvc, Version)

	// Setup router
	router := api.NewRouter(mediaHandler, adminHandler, healthHandler, cfg.Server.APIKey)

	// Initialize worker pool
	pool := worker.NewPool(
		worker.Config{
			Workers:      cfg.Worker.Count,
			PollInterval: cfg.Worker.PollInterval,
		},
		jobRepo,
		mediaSvc,
		logger,
	)
	pool.Start()

	// Periodic cleanup of expired cache rows and old events
	janitorCtx, cancelJanitor := context.WithCancel(context.Background())
	go runJanitor(janitorCtx, cfg.Cache, cacheRepo, eventSvc, logger)

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	cancelJanitor()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Stop accepting new requests
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	// Stop workers (allow in-flight jobs to complete)
	if err := pool.Stop(25 * time.Second); err != nil {
		logger.Error("worker pool shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

// runJanitor periodically deletes expired cache rows (when a TTL is
// configured) and old persisted events.
func runJanitor(
	ctx context.Context,
	cacheCfg config.CacheConfig,
	cacheRepo repository.MediaCacheRepository,
	events *service.EventService,
	logger *slog.Logger,
) {
	interval := cacheCfg.SweepInterval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if cacheCfg.TTL > 0 {
				cutoff := time.Now().UTC().Add(-cacheCfg.TTL)
				deleted, err := cacheRepo.DeleteExpired(ctx, cutoff)
				if err != nil {
					logger.Warn("cache sweep failed", "error", err)
				} else if deleted > 0 {
					logger.Info("swept expired cache entries", "deleted", deleted)
				}
			}
			if err := events.CleanupOldEvents(ctx); err != nil {
				logger.Warn("event cleanup failed", "error", err)
			}
		}
	}
}
