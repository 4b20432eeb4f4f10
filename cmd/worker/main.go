package main

import (
	"context"
	"fmt"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/collector-appraisal/internal/bootstrap"
	"github.com/kirillkom/collector-appraisal/internal/config"
	"github.com/kirillkom/collector-appraisal/internal/observability/logging"
	"github.com/kirillkom/collector-appraisal/internal/observability/metrics"
)

const serviceName = "collector-worker"

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger(serviceName, cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	app, err := bootstrap.New(ctx, cfg, workerMetrics.Appraisal)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	slog.Info("worker_subscribed", "subject", cfg.NATSSubject, "queue_group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeScanCaptured(ctx, func(handlerCtx context.Context, scanID string) error {
		if scan, err := app.Repo.GetByID(handlerCtx, scanID); err == nil {
			workerMetrics.ObserveQueueLag(serviceName, time.Since(scan.CreatedAt))
		}

		workerMetrics.StartScan()
		start := time.Now()
		err := app.ProcessUC.ProcessByID(handlerCtx, scanID)
		duration := time.Since(start)
		workerMetrics.FinishScan(serviceName, duration, err)
		if err == nil {
			workerMetrics.Appraisal.ObserveAppraisal("scan", duration)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("subscribe scans: %w", err)
	}
	return nil
}
