package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/veslabs/litscreen/internal/core/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordRepoFake struct {
	mu          sync.Mutex
	existing    map[string]struct{}
	existingErr error
	// conflictIDs simulates a concurrent batch winning the insert race:
	// absent from the dedup seed, but InsertIfAbsent reports a conflict.
	conflictIDs map[string]struct{}
	inserted    []*domain.BibliographicRecord
	insertErr   error
	assessments []*domain.RelevanceAssessment
	saveErr     error
}

func newRecordRepoFake(existing ...string) *recordRepoFake {
	set := make(map[string]struct{}, len(existing))
	for _, id := range existing {
		set[id] = struct{}{}
	}
	return &recordRepoFake{existing: set, conflictIDs: map[string]struct{}{}}
}

func (f *recordRepoFake) ExistingSourceIDs(_ context.Context, _ string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	out := make(map[string]struct{}, len(f.existing))
	for id := range f.existing {
		out[id] = struct{}{}
	}
	return out, nil
}

func (f *recordRepoFake) InsertIfAbsent(_ context.Context, rec *domain.BibliographicRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return false, f.insertErr
	}
	if _, dup := f.existing[rec.SourceID]; dup {
		return false, nil
	}
	if _, conflict := f.conflictIDs[rec.SourceID]; conflict {
		return false, nil
	}
	f.existing[rec.SourceID] = struct{}{}
	f.inserted = append(f.inserted, rec)
	return true, nil
}

func (f *recordRepoFake) SaveAssessment(_ context.Context, a *domain.RelevanceAssessment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.assessments = append(f.assessments, a)
	return nil
}

func (f *recordRepoFake) ListScored(_ context.Context, _ string) ([]domain.ScoredRecord, error) {
	return nil, errors.New("not implemented")
}

type taskRepoFake struct {
	mu        sync.Mutex
	tasks     map[string]*domain.IngestionTask
	getErr    error
	createErr error
	finishErr error
	running   []string
	finished  []*domain.IngestionTask
}

func newTaskRepoFake(tasks ...*domain.IngestionTask) *taskRepoFake {
	byID := make(map[string]*domain.IngestionTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	return &taskRepoFake{tasks: byID}
}

func (f *taskRepoFake) Create(_ context.Context, task *domain.IngestionTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *taskRepoFake) GetByID(_ context.Context, taskID string) (*domain.IngestionTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	task, ok := f.tasks[taskID]
	if !ok {
		return nil, domain.WrapError(domain.ErrTaskNotFound, "fetch task", errors.New(taskID))
	}
	copied := *task
	return &copied, nil
}

func (f *taskRepoFake) MarkRunning(_ context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = append(f.running, taskID)
	if task, ok := f.tasks[taskID]; ok {
		task.State = domain.TaskRunning
	}
	return nil
}

func (f *taskRepoFake) Finish(_ context.Context, task *domain.IngestionTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finishErr != nil {
		return f.finishErr
	}
	copied := *task
	f.tasks[task.ID] = &copied
	f.finished = append(f.finished, &copied)
	return nil
}

func (f *taskRepoFake) lastFinished() *domain.IngestionTask {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.finished) == 0 {
		return nil
	}
	return f.finished[len(f.finished)-1]
}

type jobStoreFake struct {
	mu        sync.Mutex
	created   []*domain.JobRecord
	createErr error
	getErr    error
}

func (f *jobStoreFake) CreateQueued(_ context.Context, job *domain.JobRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *job
	f.created = append(f.created, &copied)
	return nil
}

func (f *jobStoreFake) GetByID(_ context.Context, jobID string) (*domain.JobRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, job := range f.created {
		if job.ID == jobID {
			copied := *job
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrTaskNotFound, "fetch job", errors.New(jobID))
}

// brokerFake succeeds until enqueueCap successful enqueues have happened,
// then fails every further Enqueue. A negative cap never fails.
type brokerFake struct {
	mu         sync.Mutex
	published  []domain.BatchSubmission
	publishErr error
	enqueued   []domain.JobDescriptor
	enqueueCap int
}

func newBrokerFake() *brokerFake {
	return &brokerFake{enqueueCap: -1}
}

func (f *brokerFake) PublishBatchSubmitted(_ context.Context, sub domain.BatchSubmission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, sub)
	return nil
}

func (f *brokerFake) SubscribeBatchSubmitted(_ context.Context, _ func(context.Context, domain.BatchSubmission) error) error {
	return errors.New("not implemented")
}

func (f *brokerFake) Enqueue(_ context.Context, _ string, descriptor domain.JobDescriptor) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.enqueueCap >= 0 && len(f.enqueued) >= f.enqueueCap {
		return "", errors.New("broker unreachable")
	}
	f.enqueued = append(f.enqueued, descriptor)
	return fmt.Sprintf("job-%d", len(f.enqueued)), nil
}

type observerFake struct {
	mu       sync.Mutex
	outcomes map[string]int
	scores   []int
	retries  int
}

func newObserverFake() *observerFake {
	return &observerFake{outcomes: make(map[string]int)}
}

func (f *observerFake) RecordOutcome(outcome string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[outcome]++
}

func (f *observerFake) ScoreComputed(score int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scores = append(f.scores, score)
}

func (f *observerFake) ChunkRetried(_ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
}
