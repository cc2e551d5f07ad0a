package domain

import "time"

// SourceItem is one loosely-typed bibliographic item as exported by an
// upstream reference manager. Keys and value shapes vary per dialect;
// the normalizer sorts that out.
type SourceItem map[string]any

// BatchSubmission is the wire payload carried from Submit to the worker.
type BatchSubmission struct {
	TaskID      string       `json:"task_id"`
	ProjectID   string       `json:"project_id"`
	Items       []SourceItem `json:"items"`
	SubmittedAt time.Time    `json:"submitted_at"`
}
