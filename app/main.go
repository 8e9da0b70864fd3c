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

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/adetobi/trendpulse/app/api"
	"github.com/adetobi/trendpulse/app/cache"
	"github.com/adetobi/trendpulse/app/cfg"
	"github.com/adetobi/trendpulse/app/content"
	"github.com/adetobi/trendpulse/app/database"
	"github.com/adetobi/trendpulse/app/enrich"
	"github.com/adetobi/trendpulse/app/monitor"
	"github.com/adetobi/trendpulse/app/normalize"
	"github.com/adetobi/trendpulse/app/sources"
	"github.com/adetobi/trendpulse/app/tasks"
	"github.com/adetobi/trendpulse/app/trends"
)

func main() {
	// Local overrides for development, ignored when the file is absent
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting TrendPulse server", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "migration_version", version, "dirty", dirty)

	configCache := sources.NewConfigCache(appCfg.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appCfg.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded source configurations", "count", configCache.GetConfigCount())

	// Repositories
	contentRepo := database.NewContentRepo(db)
	enrichRepo := database.NewEnrichmentRepo(db)
	sourceRepo := database.NewSourceRepo(db)
	aggRepo := database.NewAggregateRepo(db)

	sourceMon := monitor.NewSourceMonitor(sourceRepo, appCfg.DegradeThreshold, appCfg.FailThreshold)

	var analyzer enrich.Analyzer
	if appCfg.AnalyzerURL != "" {
		analyzer = enrich.NewHTTPAnalyzer(appCfg.AnalyzerURL, 30*time.Second)
		slog.Info("Using remote text analyzer", "url", appCfg.AnalyzerURL)
	} else {
		analyzer = enrich.NewLexiconAnalyzer()
		slog.Info("Using built-in lexicon analyzer")
	}
	batcher := enrich.NewBatcher(enrichRepo, analyzer, appCfg.EnrichBatchSize)

	trendWindow := time.Duration(appCfg.TrendWindowHours) * time.Hour
	scorer := trends.NewScorer(contentRepo, trendWindow)
	aggregator := trends.NewAggregator(contentRepo, aggRepo)

	normalizer := normalize.NewNormalizer()
	httpClient := &http.Client{Timeout: 60 * time.Second}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(configCache, contentRepo, sourceMon, httpClient, normalizer)
	scheduler.Start()
	defer scheduler.Stop()

	var respCache *cache.Cache
	if appCfg.RedisAddr != "" {
		respCache, err = cache.NewCache(appCfg.RedisAddr)
		if err != nil {
			slog.Warn("Redis unavailable, trend responses will not be cached", "error", err)
		}
	}
	defer respCache.Close()

	// Periodic jobs that are not driven by per-source frequencies. Sweep
	// overlap is handled by the batcher: a sweep still running when the
	// next trigger fires makes the duplicate a no-op.
	cronRunner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	cronRunner.AddFunc("@every 10m", func() {
		for _, task := range content.AllTasks {
			sweep := tasks.NewEnrichmentSweepTask(task, batcher, appCfg.EnrichLimit)
			if err := scheduler.EnqueueTask(sweep); err != nil {
				slog.Warn("Failed to enqueue enrichment sweep", "task", task, "error", err)
			}
		}
	})
	cronRunner.AddFunc("@hourly", func() {
		agg := tasks.NewAggregateTrendsTask(aggregator, 2*time.Hour)
		if err := scheduler.EnqueueTask(agg); err != nil {
			slog.Warn("Failed to enqueue trend aggregation", "error", err)
		}
	})
	cronRunner.AddFunc("@midnight", func() {
		if err := sourceRepo.ResetDailyCounts(); err != nil {
			slog.Warn("Failed to reset daily fetch counts", "error", err)
		}
	})
	cronRunner.Start()
	defer cronRunner.Stop()

	apiHandler := api.NewHandler(configCache, contentRepo, sourceMon, batcher,
		scorer, aggregator, scheduler, respCache)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

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

	slog.Info("TrendPulse server started")

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

	// Scheduler, cron and cache are stopped via defer
	slog.Info("Shutdown complete")
}
