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

	"github.com/dkotenko/newsmill/app/api"
	"github.com/dkotenko/newsmill/app/cfg"
	"github.com/dkotenko/newsmill/app/database"
	"github.com/dkotenko/newsmill/app/jobs"
	"github.com/dkotenko/newsmill/app/pipeline"
	"github.com/dkotenko/newsmill/app/publish"
	"github.com/dkotenko/newsmill/app/ratelimit"
	"github.com/dkotenko/newsmill/app/registry"
	"github.com/dkotenko/newsmill/app/sources"
	"github.com/dkotenko/newsmill/app/tasks"
	"github.com/dkotenko/newsmill/app/transform"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting Newsmill server", "version", appCfg.Version)

	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database")

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations applied", "version", version, "dirty", dirty)

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source configurations", "count", configCache.GetConfigCount())

	sourceRepo := database.NewSourceRepository(db)
	itemRepo := database.NewRawItemRepository(db)
	articleRepo := database.NewArticleRepository(db)
	usageRepo := database.NewUsageRepository(db)
	runRepo := database.NewRunRepository(db)

	intakeRegistry := registry.New(sourceRepo, itemRepo)
	transformer := transform.NewService(appCfg.OpenAIAPIKey, appCfg.OpenAIModel, usageRepo)
	publisher := publish.NewPublisher(appCfg.TelegramBotToken, appCfg.TelegramChatID, appCfg.SiteURL, articleRepo)

	orchestrator := pipeline.New(intakeRegistry, configCache, transformer, publisher,
		articleRepo, usageRepo, runRepo, appCfg.UserAgent, appCfg.BatchSize)

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)
	scheduler := tasks.NewScheduler(orchestrator)
	scheduler.Start()
	defer scheduler.Stop()

	var dedup jobs.DedupStore
	if appCfg.RedisAddr != "" {
		store, err := jobs.NewRedisDedupStore(appCfg.RedisAddr, appCfg.RedisPassword)
		if err != nil {
			slog.Warn("Redis unavailable, external triggers degrade to dry-run", "error", err)
		} else {
			dedup = store
			defer store.Close()
		}
	} else {
		slog.Warn("No Redis configured, external triggers degrade to dry-run")
	}

	bridge := jobs.NewBridge(scheduler, orchestrator, dedup, appCfg.BatchSize)

	limiter := ratelimit.NewLimiter(appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RateLimit, appCfg.RateWindow)
	defer limiter.Close()

	apiHandler := api.NewHandler(bridge, configCache, sourceRepo, itemRepo, articleRepo, runRepo, usageRepo)
	server := api.NewServer(apiHandler, limiter, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	slog.Info("Newsmill server started")

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	// Scheduler is stopped via defer
	slog.Info("Newsmill server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
