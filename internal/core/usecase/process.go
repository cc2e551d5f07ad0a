package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/veslabs/litscreen/internal/core/domain"
	"github.com/veslabs/litscreen/internal/core/normalize"
	"github.com/veslabs/litscreen/internal/core/ports"
	"github.com/veslabs/litscreen/internal/core/scoring"
)

// PipelineObserver receives per-record pipeline events. The metrics
// package implements it; a nil observer disables observation.
type PipelineObserver interface {
	RecordOutcome(outcome string)
	ScoreComputed(score int)
	ChunkRetried(queue string)
}

// ProcessBatchConfig bounds the enqueue phase.
type ProcessBatchConfig struct {
	ExtractionQueue string
	ChunkSize       int
	ChunkPause      time.Duration
	ChunkRetries    int
	ChunkBackoff    time.Duration
	OpTimeout       time.Duration
}

func (c ProcessBatchConfig) normalize() ProcessBatchConfig {
	out := c
	if out.ExtractionQueue == "" {
		out.ExtractionQueue = "extraction"
	}
	if out.ChunkSize <= 0 {
		out.ChunkSize = 10
	}
	if out.ChunkPause <= 0 {
		out.ChunkPause = 200 * time.Millisecond
	}
	if out.ChunkRetries <= 0 {
		out.ChunkRetries = 3
	}
	if out.ChunkBackoff <= 0 {
		out.ChunkBackoff = 500 * time.Millisecond
	}
	if out.OpTimeout <= 0 {
		out.OpTimeout = 10 * time.Second
	}
	return out
}

// ProcessBatchUseCase runs the ingestion pipeline for one submitted
// batch: normalize, dedup, score, persist, then chunked extraction-job
// submission. Single-threaded per task; many tasks run concurrently
// across projects.
type ProcessBatchUseCase struct {
	records    ports.RecordRepository
	tasks      ports.TaskRepository
	jobs       ports.JobStatusStore
	broker     ports.JobBroker
	normalizer *normalize.Normalizer
	engine     *scoring.Engine
	observer   PipelineObserver
	cfg        ProcessBatchConfig
	log        *slog.Logger
}

func NewProcessBatchUseCase(
	records ports.RecordRepository,
	tasks ports.TaskRepository,
	jobs ports.JobStatusStore,
	broker ports.JobBroker,
	normalizer *normalize.Normalizer,
	engine *scoring.Engine,
	observer PipelineObserver,
	cfg ProcessBatchConfig,
	log *slog.Logger,
) *ProcessBatchUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &ProcessBatchUseCase{
		records:    records,
		tasks:      tasks,
		jobs:       jobs,
		broker:     broker,
		normalizer: normalizer,
		engine:     engine,
		observer:   observer,
		cfg:        cfg.normalize(),
		log:        log,
	}
}

// ProcessBatch drives the task through queued -> running -> completed or
// failed. A single malformed item degrades to skip-and-count; only a
// broker outage that survives chunk retries, or an unexpected storage
// error, fails the task.
func (uc *ProcessBatchUseCase) ProcessBatch(ctx context.Context, sub domain.BatchSubmission) error {
	task, err := uc.loadTask(ctx, sub.TaskID)
	if err != nil {
		return err
	}
	if task.State.Terminal() {
		uc.log.Info("batch_already_finished", "task_id", task.ID, "state", task.State)
		return nil
	}

	if err := uc.markRunning(ctx, task.ID); err != nil {
		return err
	}

	accepted, counts := uc.screenItems(ctx, sub)
	task.DuplicateCount = counts.duplicates
	task.RejectedCount = counts.rejected

	stored, storeErr := uc.persistRecords(ctx, accepted)
	queued, enqueueErr := uc.enqueueExtraction(ctx, sub.ProjectID, stored)
	task.AcceptedCount = queued

	if err := firstError(storeErr, enqueueErr); err != nil {
		return uc.finishFailed(ctx, task, err)
	}
	return uc.finishCompleted(ctx, task)
}

type screenCounts struct {
	duplicates int
	rejected   int
}

// screenItems normalizes, dedups and scores the batch in source order.
// Scoring never fails; normalizer skips are counted, not raised.
func (uc *ProcessBatchUseCase) screenItems(ctx context.Context, sub domain.BatchSubmission) ([]scoredRecord, screenCounts) {
	var counts screenCounts

	existing, err := uc.existingIDs(ctx, sub.ProjectID)
	if err != nil {
		// Degrade to an empty seed set: the storage constraint still
		// guarantees at-most-once persistence.
		uc.log.Warn("dedup_seed_unavailable", "task_id", sub.TaskID, "error", err)
		existing = map[string]struct{}{}
	}
	gate := NewGate(existing)

	accepted := make([]scoredRecord, 0, len(sub.Items))
	for i, item := range sub.Items {
		rec, skip := uc.normalizer.Normalize(item, i+1)
		if skip != nil {
			counts.rejected++
			uc.observe(func(o PipelineObserver) { o.RecordOutcome("skipped") })
			uc.log.Debug("item_skipped", "task_id", sub.TaskID, "position", skip.Position, "reason", skip.Reason)
			continue
		}

		if gate.Decide(rec.SourceID) != Accept {
			counts.duplicates++
			uc.observe(func(o PipelineObserver) { o.RecordOutcome("duplicate") })
			continue
		}

		rec.ID = uuid.NewString()
		rec.ProjectID = sub.ProjectID
		assessment := uc.engine.Score(rec)
		uc.observe(func(o PipelineObserver) {
			o.RecordOutcome("accepted")
			o.ScoreComputed(assessment.TotalScore)
		})
		accepted = append(accepted, scoredRecord{record: rec, assessment: assessment})
	}
	return accepted, counts
}

type scoredRecord struct {
	record     *domain.BibliographicRecord
	assessment domain.RelevanceAssessment
}

// persistRecords stores accepted records with store-if-absent semantics.
// A row lost to a concurrent batch is dropped here and shows up in that
// batch's counts instead; it must not receive a duplicate downstream job.
func (uc *ProcessBatchUseCase) persistRecords(ctx context.Context, accepted []scoredRecord) ([]scoredRecord, error) {
	stored := make([]scoredRecord, 0, len(accepted))
	for _, sr := range accepted {
		inserted, err := uc.insertRecord(ctx, sr.record)
		if err != nil {
			return stored, fmt.Errorf("persist record %s: %w", sr.record.SourceID, err)
		}
		if !inserted {
			continue
		}
		if err := uc.saveAssessment(ctx, &sr.assessment); err != nil {
			return stored, fmt.Errorf("persist assessment for %s: %w", sr.record.SourceID, err)
		}
		stored = append(stored, sr)
	}
	return stored, nil
}

// enqueueExtraction submits one extraction job per stored record in
// bounded chunks, pacing between chunks as a load-shedding measure.
// Returns how many jobs were actually queued.
func (uc *ProcessBatchUseCase) enqueueExtraction(ctx context.Context, projectID string, stored []scoredRecord) (int, error) {
	limiter := rate.NewLimiter(rate.Every(uc.cfg.ChunkPause), 1)
	queuedTotal := 0

	for start := 0; start < len(stored); start += uc.cfg.ChunkSize {
		end := start + uc.cfg.ChunkSize
		if end > len(stored) {
			end = len(stored)
		}
		if err := limiter.Wait(ctx); err != nil {
			return queuedTotal, fmt.Errorf("chunk pacing: %w", err)
		}

		queued, err := uc.submitChunk(ctx, projectID, stored[start:end])
		queuedTotal += queued
		if err != nil {
			return queuedTotal, fmt.Errorf("submit extraction chunk [%d:%d]: %w", start, end, err)
		}
	}
	return queuedTotal, nil
}

// submitChunk enqueues each record of the chunk, retrying the failed
// remainder a bounded number of times with backoff. Already-queued
// records are never re-submitted on retry.
func (uc *ProcessBatchUseCase) submitChunk(ctx context.Context, projectID string, chunk []scoredRecord) (int, error) {
	pending := chunk
	queued := 0
	backoff := uc.cfg.ChunkBackoff

	for attempt := 1; ; attempt++ {
		var failed []scoredRecord
		var lastErr error
		for _, sr := range pending {
			if err := uc.enqueueJob(ctx, projectID, sr.record.ID); err != nil {
				failed = append(failed, sr)
				lastErr = err
				continue
			}
			queued++
		}
		if len(failed) == 0 {
			return queued, nil
		}
		if attempt > uc.cfg.ChunkRetries {
			return queued, lastErr
		}

		uc.observe(func(o PipelineObserver) { o.ChunkRetried(uc.cfg.ExtractionQueue) })
		uc.log.Warn("chunk_retry",
			"queue", uc.cfg.ExtractionQueue,
			"attempt", attempt,
			"pending", len(failed),
			"error", lastErr,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return queued, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		pending = failed
	}
}

func (uc *ProcessBatchUseCase) enqueueJob(ctx context.Context, projectID, recordID string) error {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()

	jobID, err := uc.broker.Enqueue(opCtx, uc.cfg.ExtractionQueue, domain.JobDescriptor{
		ProjectID: projectID,
		RecordID:  recordID,
	})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	job := &domain.JobRecord{
		ID:        jobID,
		Queue:     uc.cfg.ExtractionQueue,
		ProjectID: projectID,
		RecordID:  recordID,
		State:     domain.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.jobs.CreateQueued(opCtx, job); err != nil {
		// The job is on the queue; a missing mirror row degrades
		// observability, not correctness.
		uc.log.Warn("job_record_write_failed", "job_id", jobID, "error", err)
	}
	return nil
}

func (uc *ProcessBatchUseCase) loadTask(ctx context.Context, taskID string) (*domain.IngestionTask, error) {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	task, err := uc.tasks.GetByID(opCtx, taskID)
	if err != nil {
		return nil, fmt.Errorf("fetch task by id: %w", err)
	}
	return task, nil
}

func (uc *ProcessBatchUseCase) markRunning(ctx context.Context, taskID string) error {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	if err := uc.tasks.MarkRunning(opCtx, taskID); err != nil {
		return fmt.Errorf("set task state=running: %w", err)
	}
	return nil
}

func (uc *ProcessBatchUseCase) existingIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	return uc.records.ExistingSourceIDs(opCtx, projectID)
}

func (uc *ProcessBatchUseCase) insertRecord(ctx context.Context, rec *domain.BibliographicRecord) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	return uc.records.InsertIfAbsent(opCtx, rec)
}

func (uc *ProcessBatchUseCase) saveAssessment(ctx context.Context, a *domain.RelevanceAssessment) error {
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	return uc.records.SaveAssessment(opCtx, a)
}

func (uc *ProcessBatchUseCase) finishCompleted(ctx context.Context, task *domain.IngestionTask) error {
	task.State = domain.TaskCompleted
	return uc.finish(ctx, task)
}

func (uc *ProcessBatchUseCase) finishFailed(ctx context.Context, task *domain.IngestionTask, cause error) error {
	task.State = domain.TaskFailed
	task.ErrorDetail = cause.Error()
	if err := uc.finish(ctx, task); err != nil {
		return fmt.Errorf("%w; record failure state: %v", cause, err)
	}
	return cause
}

func (uc *ProcessBatchUseCase) finish(ctx context.Context, task *domain.IngestionTask) error {
	now := time.Now().UTC()
	task.FinishedAt = &now
	opCtx, cancel := context.WithTimeout(ctx, uc.cfg.OpTimeout)
	defer cancel()
	if err := uc.tasks.Finish(opCtx, task); err != nil {
		return fmt.Errorf("finish task %s: %w", task.ID, err)
	}
	uc.log.Info("batch_finished",
		"task_id", task.ID,
		"project_id", task.ProjectID,
		"state", task.State,
		"accepted", task.AcceptedCount,
		"duplicates", task.DuplicateCount,
		"rejected", task.RejectedCount,
	)
	return nil
}

func (uc *ProcessBatchUseCase) observe(fn func(PipelineObserver)) {
	if uc.observer != nil {
		fn(uc.observer)
	}
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
