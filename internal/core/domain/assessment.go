package domain

import "time"

// RelevanceCategory is one of the fixed ordered relevance tiers.
type RelevanceCategory string

const (
	CategoryHighlyRelevant     RelevanceCategory = "highly_relevant"
	CategoryRelevant           RelevanceCategory = "relevant"
	CategoryModeratelyRelevant RelevanceCategory = "moderately_relevant"
	CategoryMarginal           RelevanceCategory = "marginal"
	CategoryLowRelevance       RelevanceCategory = "low_relevance"
)

// CriterionScore is one line of the auditable scoring breakdown. Bonus
// contributions (recency, study design) appear as breakdown entries with
// a justification in Reason.
type CriterionScore struct {
	Name         string   `json:"name"`
	Points       int      `json:"points"`
	MaxPoints    int      `json:"max_points"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
	Reason       string   `json:"reason,omitempty"`
}

// ScoredRecord pairs a record with its most recent assessment for
// read-side consumers (screening reports).
type ScoredRecord struct {
	Record     BibliographicRecord `json:"record"`
	Assessment RelevanceAssessment `json:"assessment"`
}

// RelevanceAssessment is the output of scoring, one per
// (record, engine_version) pair. Assessments are append-only: a rubric
// revision produces a new assessment, prior ones stay for audit.
type RelevanceAssessment struct {
	RecordID      string            `json:"record_id"`
	ProjectID     string            `json:"project_id"`
	TotalScore    int               `json:"total_score"`
	Category      RelevanceCategory `json:"category"`
	Breakdown     []CriterionScore  `json:"criterion_breakdown"`
	EngineVersion string            `json:"engine_version"`
	ComputedAt    time.Time         `json:"computed_at"`
}
