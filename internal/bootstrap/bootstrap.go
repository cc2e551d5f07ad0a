package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veslabs/litscreen/internal/config"
	"github.com/veslabs/litscreen/internal/core/normalize"
	"github.com/veslabs/litscreen/internal/core/ports"
	"github.com/veslabs/litscreen/internal/core/scoring"
	"github.com/veslabs/litscreen/internal/core/usecase"
	"github.com/veslabs/litscreen/internal/infrastructure/queue/nats"
	"github.com/veslabs/litscreen/internal/infrastructure/repository/postgres"
	"github.com/veslabs/litscreen/internal/infrastructure/resilience"
	"github.com/veslabs/litscreen/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Broker  *nats.Broker
	Records ports.RecordRepository
	Metrics *metrics.WorkerMetrics

	SubmitUC  ports.BatchSubmitter
	ProcessUC ports.BatchProcessor
	StatusUC  ports.TaskPoller

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	records := postgres.NewRecordRepository(db)
	if err := records.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	tasks := postgres.NewTaskRepository(db)
	jobs := postgres.NewJobRepository(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	broker, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSBatchSubject, cfg.NATSQueuePrefix, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init job broker: %w", err)
	}

	rubric, err := loadRubric(cfg.RubricPath)
	if err != nil {
		return nil, err
	}
	engine, err := scoring.NewEngine(rubric)
	if err != nil {
		return nil, fmt.Errorf("build scoring engine: %w", err)
	}
	log.Info("rubric_loaded", "version", engine.Version(), "denominator", engine.Denominator())

	workerMetrics := metrics.NewWorkerMetrics("litscreen-worker")
	normalizer := normalize.New()

	submitUC := usecase.NewSubmitBatchUseCase(tasks, broker)
	processUC := usecase.NewProcessBatchUseCase(
		records, tasks, jobs, broker, normalizer, engine, workerMetrics,
		usecase.ProcessBatchConfig{
			ExtractionQueue: cfg.ExtractionQueue,
			ChunkSize:       cfg.ChunkSize,
			ChunkPause:      cfg.ChunkPause(),
			ChunkRetries:    cfg.ChunkRetries,
			ChunkBackoff:    cfg.ChunkBackoff(),
			OpTimeout:       cfg.OpTimeout(),
		},
		log,
	)
	statusUC := usecase.NewStatusUseCase(tasks, jobs, log)

	return &App{
		Config:  cfg,
		Broker:  broker,
		Records: records,
		Metrics: workerMetrics,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		StatusUC:  statusUC,

		closeFn: func() {
			broker.Close()
			_ = db.Close()
		},
	}, nil
}

// loadRubric prefers the configured rubric file and falls back to the
// embedded revision. A rubric failing validation is fatal at startup.
func loadRubric(path string) (scoring.Rubric, error) {
	if path == "" {
		return scoring.DefaultRubric(), nil
	}
	rubric, err := scoring.LoadFile(path)
	if err != nil {
		return scoring.Rubric{}, fmt.Errorf("load rubric: %w", err)
	}
	return rubric, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
