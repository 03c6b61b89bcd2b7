package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/amodvardhan/project-pipeline/internal/events"
	"github.com/amodvardhan/project-pipeline/internal/repository"
	"github.com/amodvardhan/project-pipeline/internal/scheduler"
	"github.com/amodvardhan/project-pipeline/internal/service"
	"github.com/amodvardhan/project-pipeline/pkg/cache"
	"github.com/amodvardhan/project-pipeline/pkg/config"
	"github.com/amodvardhan/project-pipeline/pkg/database"
	"github.com/amodvardhan/project-pipeline/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("postgres unavailable", zap.Error(err))
	}
	defer db.Close()

	rdb, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Fatal("redis unavailable", zap.Error(err))
	}
	defer rdb.Close()

	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(rdb, cfg.Lifecycle.CacheNamespace, logger.Component(logr, "cache")),
		metrics,
		cfg.Lifecycle.AnalyticsCacheTTL,
		logger.Component(logr, "cache"),
		cfg.Lifecycle.EnableAnalyticsCache,
	)

	params := service.ProfileLifecycleServiceParams{
		Profiles: repository.NewProfileRepository(db),
		History:  repository.NewStatusHistoryRepository(db),
		Projects: repository.NewProjectRepository(db),
		Tx:       db,
		Cache:    cacheSvc,
		Metrics:  metrics,
		Logger:   logger.Component(logr, "lifecycle"),
		Config:   service.LifecycleConfig{OverdueDays: cfg.Lifecycle.OverdueDays},
	}

	var dispatcher *events.Dispatcher
	if cfg.Events.Enabled {
		dispatcher = events.NewDispatcher(
			repository.NewEventRepository(rdb, cfg.Events.ChannelPrefix),
			events.Config{
				Workers:    cfg.Events.Workers,
				BufferSize: cfg.Events.BufferSize,
				MaxRetries: cfg.Events.MaxRetries,
				RetryDelay: cfg.Events.RetryDelay,
				Logger:     logger.Component(logr, "events"),
				Recorder:   metrics,
			},
		)
		dispatcher.Start(ctx)
		params.Events = dispatcher
	}

	lifecycle := service.NewProfileLifecycleService(params)

	jobs := scheduler.New(lifecycle, scheduler.Config{
		ReconcileSpec: cfg.Worker.ReconcileSchedule,
		OverdueSpec:   cfg.Worker.OverdueSchedule,
		RunOnStart:    cfg.Worker.ReconcileOnStart,
		JobTimeout:    cfg.Worker.JobTimeout,
	}, logger.Component(logr, "scheduler"))
	if err := jobs.Start(ctx); err != nil {
		logr.Fatal("scheduler failed to start", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Worker.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logr.Info("metrics listener starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("metrics listener failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("metrics listener shutdown", zap.Error(err))
	}
	jobs.Stop()
	if dispatcher != nil {
		dispatcher.Stop()
	}
	logr.Info("pipeline worker stopped")
}
