package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/veslabs/litscreen/internal/core/domain"
	"github.com/veslabs/litscreen/internal/core/ports"
)

// StatusUseCase is the read-only polling surface for tasks and their
// downstream jobs. Polling happens from low-trust contexts (external
// monitoring loops) that must never crash on a single failed poll, so a
// transient storage failure returns the last-known snapshot instead of
// an error.
type StatusUseCase struct {
	tasks ports.TaskRepository
	jobs  ports.JobStatusStore
	log   *slog.Logger

	mu        sync.RWMutex
	lastTasks map[string]domain.IngestionTask
	lastJobs  map[string]domain.JobRecord
}

func NewStatusUseCase(tasks ports.TaskRepository, jobs ports.JobStatusStore, log *slog.Logger) *StatusUseCase {
	if log == nil {
		log = slog.Default()
	}
	return &StatusUseCase{
		tasks:     tasks,
		jobs:      jobs,
		log:       log,
		lastTasks: make(map[string]domain.IngestionTask),
		lastJobs:  make(map[string]domain.JobRecord),
	}
}

// PollTask returns the task's current state, or its last-known state
// when storage is transiently unreachable. ErrTaskNotFound is returned
// only for tasks this process has never seen.
func (uc *StatusUseCase) PollTask(ctx context.Context, taskID string) (*domain.IngestionTask, error) {
	task, err := uc.tasks.GetByID(ctx, taskID)
	if err != nil {
		if domain.IsKind(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		uc.mu.RLock()
		cached, ok := uc.lastTasks[taskID]
		uc.mu.RUnlock()
		if ok {
			uc.log.Warn("task_poll_degraded", "task_id", taskID, "error", err)
			snapshot := cached
			return &snapshot, nil
		}
		return nil, err
	}

	uc.mu.Lock()
	uc.lastTasks[taskID] = *task
	uc.mu.Unlock()
	return task, nil
}

// PollJob mirrors PollTask for downstream sub-jobs.
func (uc *StatusUseCase) PollJob(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	job, err := uc.jobs.GetByID(ctx, jobID)
	if err != nil {
		if domain.IsKind(err, domain.ErrTaskNotFound) {
			return nil, err
		}
		uc.mu.RLock()
		cached, ok := uc.lastJobs[jobID]
		uc.mu.RUnlock()
		if ok {
			uc.log.Warn("job_poll_degraded", "job_id", jobID, "error", err)
			snapshot := cached
			return &snapshot, nil
		}
		return nil, err
	}

	uc.mu.Lock()
	uc.lastJobs[jobID] = *job
	uc.mu.Unlock()
	return job, nil
}
