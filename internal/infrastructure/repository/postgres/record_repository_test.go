package postgres

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/veslabs/litscreen/internal/core/domain"
)

func newMock(t *testing.T) (*RecordRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRecordRepository(db), mock
}

func sampleRecord() *domain.BibliographicRecord {
	return &domain.BibliographicRecord{
		ID:                     "rec-1",
		ProjectID:              "proj-1",
		SourceID:               "10.1/a",
		Title:                  "A title",
		Abstract:               "An abstract",
		JournalName:            "A journal",
		Authors:                []string{"Ada Lovelace"},
		PublicationYear:        2024,
		DOI:                    "10.1/a",
		ExternalURL:            "https://doi.org/10.1/a",
		Keywords:               []string{"chatbot"},
		HasAttachmentCandidate: true,
		CreatedAt:              time.Now().UTC(),
	}
}

func TestExistingSourceIDs(t *testing.T) {
	repo, mock := newMock(t)

	rows := sqlmock.NewRows([]string{"source_id"}).
		AddRow("10.1/a").
		AddRow("pmid:42")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT source_id FROM records WHERE project_id = $1")).
		WithArgs("proj-1").
		WillReturnRows(rows)

	got, err := repo.ExistingSourceIDs(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ExistingSourceIDs() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ids = %d, want 2", len(got))
	}
	if _, ok := got["pmid:42"]; !ok {
		t.Fatalf("missing pmid:42 in %v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertIfAbsentInserted(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := repo.InsertIfAbsent(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if !inserted {
		t.Fatalf("inserted = false, want true")
	}
}

func TestInsertIfAbsentConflictIsNotAnError(t *testing.T) {
	repo, mock := newMock(t)

	// ON CONFLICT DO NOTHING surfaces as zero affected rows.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := repo.InsertIfAbsent(context.Background(), sampleRecord())
	if err != nil {
		t.Fatalf("InsertIfAbsent() error = %v", err)
	}
	if inserted {
		t.Fatalf("inserted = true, want false on conflict")
	}
}

func TestSaveAssessment(t *testing.T) {
	repo, mock := newMock(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assessments")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	a := &domain.RelevanceAssessment{
		RecordID:      "rec-1",
		ProjectID:     "proj-1",
		TotalScore:    74,
		Category:      domain.CategoryHighlyRelevant,
		EngineVersion: "dta-rubric-v3",
		ComputedAt:    time.Now().UTC(),
	}
	if err := repo.SaveAssessment(context.Background(), a); err != nil {
		t.Fatalf("SaveAssessment() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListScored(t *testing.T) {
	repo, mock := newMock(t)

	authors, _ := json.Marshal([]string{"Ada Lovelace"})
	keywords, _ := json.Marshal([]string{"chatbot"})
	breakdown, _ := json.Marshal([]domain.CriterionScore{
		{Name: "therapeutic_alliance", Points: 25, MaxPoints: 25},
	})
	now := time.Now().UTC()

	rows := sqlmock.NewRows([]string{
		"id", "project_id", "source_id", "title", "abstract", "journal_name", "authors",
		"publication_year", "doi", "external_url", "keywords", "has_attachment_candidate", "created_at",
		"total_score", "category", "breakdown", "engine_version", "computed_at",
	}).AddRow(
		"rec-1", "proj-1", "10.1/a", "A title", "An abstract", "A journal", authors,
		2024, "10.1/a", nil, keywords, true, now,
		74, "highly_relevant", breakdown, "dta-rubric-v3", now,
	)
	mock.ExpectQuery("SELECT r.id, r.project_id").
		WithArgs("proj-1").
		WillReturnRows(rows)

	got, err := repo.ListScored(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("ListScored() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("records = %d, want 1", len(got))
	}
	sr := got[0]
	if sr.Record.Title != "A title" || sr.Assessment.TotalScore != 74 {
		t.Fatalf("scored record = %+v", sr)
	}
	if sr.Assessment.Category != domain.CategoryHighlyRelevant {
		t.Fatalf("category = %s", sr.Assessment.Category)
	}
	if sr.Assessment.RecordID != "rec-1" {
		t.Fatalf("assessment record id = %q", sr.Assessment.RecordID)
	}
	if len(sr.Assessment.Breakdown) != 1 {
		t.Fatalf("breakdown = %v", sr.Assessment.Breakdown)
	}
	if sr.Record.ExternalURL != "" {
		t.Fatalf("null external url must scan to empty string")
	}
}
