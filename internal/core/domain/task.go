package domain

import "time"

type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed"
)

// Terminal reports whether no further transition is allowed out of s.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// IngestionTask tracks one asynchronous ingestion-and-scoring run for a
// batch of records submitted to a project. Owned by the orchestrator;
// the status tracker only reads it.
type IngestionTask struct {
	ID             string     `json:"id"`
	ProjectID      string     `json:"project_id"`
	SubmittedCount int        `json:"submitted_count"`
	AcceptedCount  int        `json:"accepted_count"`
	DuplicateCount int        `json:"duplicate_count"`
	RejectedCount  int        `json:"rejected_count"`
	State          TaskState  `json:"state"`
	ErrorDetail    string     `json:"error_detail,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

type JobState string

const (
	JobQueued   JobState = "queued"
	JobStarted  JobState = "started"
	JobFinished JobState = "finished"
	JobFailed   JobState = "failed"
)

// JobDescriptor is the full addressing contract toward downstream
// stages: extraction and synthesis workers need nothing else.
type JobDescriptor struct {
	ProjectID string `json:"project_id"`
	RecordID  string `json:"record_id"`
}

// JobRecord mirrors one downstream sub-job (extraction, synthesis,
// discussion). This core writes the queued row on enqueue; external
// workers advance the state.
type JobRecord struct {
	ID        string    `json:"id"`
	Queue     string    `json:"queue"`
	ProjectID string    `json:"project_id"`
	RecordID  string    `json:"record_id"`
	State     JobState  `json:"state"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
