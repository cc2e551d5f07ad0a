package ports

import (
	"context"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// BatchSubmitter is the inbound accept-and-enqueue contract: the caller
// gets a task id immediately, all real work happens asynchronously.
type BatchSubmitter interface {
	Submit(ctx context.Context, projectID string, items []domain.SourceItem) (string, error)
}

// BatchProcessor runs the ingestion pipeline for one submitted batch.
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, sub domain.BatchSubmission) error
}

// TaskPoller is the only sanctioned way to observe async progress.
type TaskPoller interface {
	PollTask(ctx context.Context, taskID string) (*domain.IngestionTask, error)
	PollJob(ctx context.Context, jobID string) (*domain.JobRecord, error)
}
