package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// JobRepository mirrors downstream sub-job state. This core only writes
// the queued row; extraction and synthesis workers advance it.
type JobRepository struct {
	db *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) CreateQueued(ctx context.Context, job *domain.JobRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (id, queue, project_id, record_id, state, detail, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO NOTHING
`, job.ID, job.Queue, job.ProjectID, job.RecordID, string(job.State), job.Detail, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job record: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, queue, project_id, record_id, state, detail, created_at, updated_at
FROM jobs
WHERE id = $1
`, jobID)

	var job domain.JobRecord
	var state string
	var detail sql.NullString
	err := row.Scan(&job.ID, &job.Queue, &job.ProjectID, &job.RecordID, &state, &detail, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrTaskNotFound, "get job", fmt.Errorf("id=%s", jobID))
		}
		return nil, fmt.Errorf("scan job record: %w", err)
	}
	job.State = domain.JobState(state)
	job.Detail = detail.String
	return &job, nil
}
