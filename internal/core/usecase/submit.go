package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/veslabs/litscreen/internal/core/domain"
	"github.com/veslabs/litscreen/internal/core/ports"
)

// SubmitBatchUseCase implements the accept-and-enqueue contract: the
// caller gets a task id immediately and all real work happens behind the
// broker. The only synchronous failures are a missing project id and an
// unreachable broker.
type SubmitBatchUseCase struct {
	tasks  ports.TaskRepository
	broker ports.JobBroker
}

func NewSubmitBatchUseCase(tasks ports.TaskRepository, broker ports.JobBroker) *SubmitBatchUseCase {
	return &SubmitBatchUseCase{tasks: tasks, broker: broker}
}

func (uc *SubmitBatchUseCase) Submit(ctx context.Context, projectID string, items []domain.SourceItem) (string, error) {
	if strings.TrimSpace(projectID) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("project_id is required"))
	}

	task := &domain.IngestionTask{
		ID:             uuid.NewString(),
		ProjectID:      projectID,
		SubmittedCount: len(items),
		State:          domain.TaskQueued,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.tasks.Create(ctx, task); err != nil {
		return "", fmt.Errorf("create ingestion task: %w", err)
	}

	sub := domain.BatchSubmission{
		TaskID:      task.ID,
		ProjectID:   projectID,
		Items:       items,
		SubmittedAt: task.CreatedAt,
	}
	if err := uc.broker.PublishBatchSubmitted(ctx, sub); err != nil {
		return "", fmt.Errorf("publish batch submission: %w", err)
	}
	return task.ID, nil
}
