package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veslabs/litscreen/internal/core/domain"
)

type RecordRepository struct {
	db *sql.DB
}

func NewRecordRepository(db *sql.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RecordRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026061702)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS records (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	source_id TEXT NOT NULL,
	title TEXT NOT NULL,
	abstract TEXT,
	journal_name TEXT,
	authors JSONB NOT NULL DEFAULT '[]'::jsonb,
	publication_year INTEGER NOT NULL,
	doi TEXT,
	external_url TEXT,
	keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
	has_attachment_candidate BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (project_id, source_id)
);

CREATE TABLE IF NOT EXISTS assessments (
	record_id TEXT NOT NULL REFERENCES records(id),
	project_id TEXT NOT NULL,
	total_score INTEGER NOT NULL,
	category TEXT NOT NULL,
	breakdown JSONB NOT NULL DEFAULT '[]'::jsonb,
	engine_version TEXT NOT NULL,
	computed_at TIMESTAMPTZ NOT NULL,
	UNIQUE (record_id, engine_version)
);

CREATE TABLE IF NOT EXISTS ingestion_tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	submitted_count INTEGER NOT NULL DEFAULT 0,
	accepted_count INTEGER NOT NULL DEFAULT 0,
	duplicate_count INTEGER NOT NULL DEFAULT 0,
	rejected_count INTEGER NOT NULL DEFAULT 0,
	state TEXT NOT NULL,
	error_detail TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	started_at TIMESTAMPTZ,
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	queue TEXT NOT NULL,
	project_id TEXT NOT NULL,
	record_id TEXT NOT NULL,
	state TEXT NOT NULL,
	detail TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_project ON records(project_id);
CREATE INDEX IF NOT EXISTS idx_assessments_project ON assessments(project_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project_state ON ingestion_tasks(project_id, state);
CREATE INDEX IF NOT EXISTS idx_jobs_project ON jobs(project_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RecordRepository) ExistingSourceIDs(ctx context.Context, projectID string) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT source_id FROM records WHERE project_id = $1
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list source ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var sourceID string
		if err := rows.Scan(&sourceID); err != nil {
			return nil, fmt.Errorf("scan source id: %w", err)
		}
		out[sourceID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source ids: %w", err)
	}
	return out, nil
}

// InsertIfAbsent relies on the (project_id, source_id) constraint with
// DO NOTHING semantics, so concurrent ingestion batches for the same
// project never raise integrity errors.
func (r *RecordRepository) InsertIfAbsent(ctx context.Context, rec *domain.BibliographicRecord) (bool, error) {
	authorsJSON, err := json.Marshal(rec.Authors)
	if err != nil {
		return false, fmt.Errorf("marshal authors: %w", err)
	}
	keywordsJSON, err := json.Marshal(rec.Keywords)
	if err != nil {
		return false, fmt.Errorf("marshal keywords: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
INSERT INTO records (
	id, project_id, source_id, title, abstract, journal_name, authors,
	publication_year, doi, external_url, keywords, has_attachment_candidate, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (project_id, source_id) DO NOTHING
`,
		rec.ID, rec.ProjectID, rec.SourceID, rec.Title, rec.Abstract, rec.JournalName, authorsJSON,
		rec.PublicationYear, rec.DOI, rec.ExternalURL, keywordsJSON, rec.HasAttachmentCandidate, rec.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert record rows affected: %w", err)
	}
	return rows == 1, nil
}

// SaveAssessment appends one assessment per (record, engine_version);
// re-scoring with the same rubric revision is a no-op.
func (r *RecordRepository) SaveAssessment(ctx context.Context, a *domain.RelevanceAssessment) error {
	breakdownJSON, err := json.Marshal(a.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO assessments (record_id, project_id, total_score, category, breakdown, engine_version, computed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (record_id, engine_version) DO NOTHING
`, a.RecordID, a.ProjectID, a.TotalScore, string(a.Category), breakdownJSON, a.EngineVersion, a.ComputedAt)
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// ListScored returns each record of the project with its most recent
// assessment, highest score first.
func (r *RecordRepository) ListScored(ctx context.Context, projectID string) ([]domain.ScoredRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.project_id, r.source_id, r.title, r.abstract, r.journal_name, r.authors,
	r.publication_year, r.doi, r.external_url, r.keywords, r.has_attachment_candidate, r.created_at,
	a.total_score, a.category, a.breakdown, a.engine_version, a.computed_at
FROM records r
JOIN LATERAL (
	SELECT total_score, category, breakdown, engine_version, computed_at
	FROM assessments
	WHERE record_id = r.id
	ORDER BY computed_at DESC
	LIMIT 1
) a ON TRUE
WHERE r.project_id = $1
ORDER BY a.total_score DESC, r.title ASC
`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list scored records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScoredRecord, 0)
	for rows.Next() {
		var sr domain.ScoredRecord
		var authorsRaw, keywordsRaw, breakdownRaw []byte
		var abstract, journal, doi, externalURL, category sql.NullString

		err := rows.Scan(
			&sr.Record.ID, &sr.Record.ProjectID, &sr.Record.SourceID, &sr.Record.Title,
			&abstract, &journal, &authorsRaw, &sr.Record.PublicationYear,
			&doi, &externalURL, &keywordsRaw, &sr.Record.HasAttachmentCandidate, &sr.Record.CreatedAt,
			&sr.Assessment.TotalScore, &category, &breakdownRaw,
			&sr.Assessment.EngineVersion, &sr.Assessment.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan scored record: %w", err)
		}
		sr.Record.Abstract = abstract.String
		sr.Record.JournalName = journal.String
		sr.Record.DOI = doi.String
		sr.Record.ExternalURL = externalURL.String
		sr.Assessment.Category = domain.RelevanceCategory(category.String)
		sr.Assessment.RecordID = sr.Record.ID
		sr.Assessment.ProjectID = sr.Record.ProjectID
		if err := json.Unmarshal(authorsRaw, &sr.Record.Authors); err != nil {
			return nil, fmt.Errorf("unmarshal authors: %w", err)
		}
		if err := json.Unmarshal(keywordsRaw, &sr.Record.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords: %w", err)
		}
		if err := json.Unmarshal(breakdownRaw, &sr.Assessment.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scored records: %w", err)
	}
	return out, nil
}
