package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineflow/console/internal/api"
	"cineflow/console/internal/auth"
	"cineflow/console/internal/config"
	"cineflow/console/internal/job"
	"cineflow/console/internal/provider"
	"cineflow/console/internal/store"
	"cineflow/console/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	envFile := config.LoadDotEnv()
	cfg := config.LoadServer()
	logger := telemetry.NewLoggerTo(os.Stdout, "json", cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	st := store.NewMemoryStore()
	if cfg.Seed {
		if _, err := st.SeedDemo(); err != nil {
			logger.Error("seed demo storyboard failed", "error", err)
			os.Exit(1)
		}
	}
	authSvc := auth.NewService(st, cfg.JWTSecret, cfg.AccessTTL)
	if err := authSvc.SeedAPIKey("default", cfg.APIKey); err != nil {
		logger.Error("seed api key failed", "error", err)
		os.Exit(1)
	}

	gen := provider.NewMockGenerator(cfg.TaskDuration, cfg.FailureRate, 0)
	jobSvc := job.NewService(st, gen, logger, metrics, job.Options{
		MaxConcurrency:   cfg.MaxRunConcurrency,
		MaxActiveRuns:    cfg.MaxActiveRuns,
		DownloadFailRate: cfg.DownloadFailRate,
	})

	srv := api.NewServer(authSvc, st, jobSvc, logger, metrics, reg)
	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		logger.Info("server_stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
		jobSvc.Close()
	}()

	logger.Info("server_start",
		"addr", cfg.Addr,
		"env_file", envFile,
		"seed", cfg.Seed,
		"task_duration", cfg.TaskDuration.String(),
		"failure_rate", cfg.FailureRate,
		"max_active_runs", cfg.MaxActiveRuns,
	)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}
