package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/veslabs/litscreen/internal/core/domain"
)

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.IngestionTask) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO ingestion_tasks (id, project_id, submitted_count, accepted_count, duplicate_count, rejected_count, state, error_detail, created_at, started_at, finished_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`, task.ID, task.ProjectID, task.SubmittedCount, task.AcceptedCount, task.DuplicateCount, task.RejectedCount,
		string(task.State), task.ErrorDetail, task.CreatedAt, task.StartedAt, task.FinishedAt)
	if err != nil {
		return fmt.Errorf("create ingestion task: %w", err)
	}
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, taskID string) (*domain.IngestionTask, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, project_id, submitted_count, accepted_count, duplicate_count, rejected_count, state, error_detail, created_at, started_at, finished_at
FROM ingestion_tasks
WHERE id = $1
`, taskID)

	var task domain.IngestionTask
	var state string
	var errDetail sql.NullString
	err := row.Scan(
		&task.ID, &task.ProjectID,
		&task.SubmittedCount, &task.AcceptedCount, &task.DuplicateCount, &task.RejectedCount,
		&state, &errDetail, &task.CreatedAt, &task.StartedAt, &task.FinishedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTaskNotFound, "get task", fmt.Errorf("id=%s", taskID))
		}
		return nil, fmt.Errorf("scan ingestion task: %w", err)
	}
	task.State = domain.TaskState(state)
	task.ErrorDetail = errDetail.String
	return &task, nil
}

// MarkRunning transitions queued -> running. Terminal states are final:
// the guard makes a redelivered batch a no-op transition.
func (r *TaskRepository) MarkRunning(ctx context.Context, taskID string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE ingestion_tasks
SET state = $2, started_at = $3
WHERE id = $1 AND state = $4
`, taskID, string(domain.TaskRunning), time.Now().UTC(), string(domain.TaskQueued))
	if err != nil {
		return fmt.Errorf("mark task running: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark task running rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrTaskNotFound, "mark task running", fmt.Errorf("id=%s not in queued state", taskID))
	}
	return nil
}

// Finish writes the terminal state and counts, refusing to overwrite an
// already-terminal row.
func (r *TaskRepository) Finish(ctx context.Context, task *domain.IngestionTask) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE ingestion_tasks
SET state = $2, accepted_count = $3, duplicate_count = $4, rejected_count = $5, error_detail = $6, finished_at = $7
WHERE id = $1 AND state NOT IN ($8, $9)
`, task.ID, string(task.State), task.AcceptedCount, task.DuplicateCount, task.RejectedCount,
		task.ErrorDetail, task.FinishedAt, string(domain.TaskCompleted), string(domain.TaskFailed))
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish task rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrTaskNotFound, "finish task", fmt.Errorf("id=%s not updatable", task.ID))
	}
	return nil
}
