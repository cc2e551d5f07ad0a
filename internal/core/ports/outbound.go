package ports

import (
	"context"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// RecordRepository persists normalized records and their assessments.
type RecordRepository interface {
	// ExistingSourceIDs returns the set of source identifiers already
	// accepted for the project.
	ExistingSourceIDs(ctx context.Context, projectID string) (map[string]struct{}, error)

	// InsertIfAbsent stores the record unless (project_id, source_id)
	// already exists. Returns false without error on conflict so
	// concurrent ingestion batches never raise integrity errors.
	InsertIfAbsent(ctx context.Context, rec *domain.BibliographicRecord) (bool, error)

	SaveAssessment(ctx context.Context, a *domain.RelevanceAssessment) error
	ListScored(ctx context.Context, projectID string) ([]domain.ScoredRecord, error)
}

// TaskRepository persists ingestion task state transitions.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.IngestionTask) error
	GetByID(ctx context.Context, taskID string) (*domain.IngestionTask, error)
	MarkRunning(ctx context.Context, taskID string) error
	Finish(ctx context.Context, task *domain.IngestionTask) error
}

// JobStatusStore reflects downstream sub-job state.
type JobStatusStore interface {
	CreateQueued(ctx context.Context, job *domain.JobRecord) error
	GetByID(ctx context.Context, jobID string) (*domain.JobRecord, error)
}

// JobBroker is the minimal broker contract: any message broker providing
// enqueue semantics per named queue is substitutable.
type JobBroker interface {
	PublishBatchSubmitted(ctx context.Context, sub domain.BatchSubmission) error
	SubscribeBatchSubmitted(ctx context.Context, handler func(context.Context, domain.BatchSubmission) error) error
	Enqueue(ctx context.Context, queue string, descriptor domain.JobDescriptor) (string, error)
}
