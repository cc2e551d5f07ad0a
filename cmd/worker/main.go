package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veslabs/litscreen/internal/bootstrap"
	"github.com/veslabs/litscreen/internal/config"
	"github.com/veslabs/litscreen/internal/core/domain"
	"github.com/veslabs/litscreen/internal/observability/logging"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("litscreen-worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", app.Metrics.Handler())
		server := &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: mux}
		logger.Info("metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics_server_error", "error", err)
		}
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSBatchSubject)
	err = app.Broker.SubscribeBatchSubmitted(ctx, func(handlerCtx context.Context, sub domain.BatchSubmission) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, cfg.BatchTimeout())
		defer cancel()

		if !sub.SubmittedAt.IsZero() {
			app.Metrics.ObserveQueueLag(time.Since(sub.SubmittedAt))
		}

		app.Metrics.StartBatch()
		start := time.Now()
		processErr := app.ProcessUC.ProcessBatch(processCtx, sub)
		app.Metrics.FinishBatch(time.Since(start), processErr)
		return processErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
