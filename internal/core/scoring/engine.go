package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// Breakdown entry names for the bonus contributions. Criterion names from
// the rubric share the same namespace, so the validator could reject them;
// in practice rubric authors have no reason to use these.
const (
	recencyEntryName      = "recency_bonus"
	longitudinalEntryName = "longitudinal_bonus"
)

// Engine computes relevance assessments against one fixed rubric
// revision. Scoring is a pure function of record content: the same input
// always yields the same assessment for a given rubric version.
type Engine struct {
	rubric      Rubric
	denominator int
}

// NewEngine validates the rubric and builds an engine bound to it. A
// rubric that fails its consistency check never scores anything.
func NewEngine(rubric Rubric) (*Engine, error) {
	if err := rubric.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		rubric:      rubric,
		denominator: rubric.Denominator(),
	}, nil
}

// Version is the rubric revision tag stamped onto every assessment.
func (e *Engine) Version() string {
	return e.rubric.Version
}

// Denominator exposes the derived normalization denominator.
func (e *Engine) Denominator() int {
	return e.denominator
}

// Score computes the relevance assessment for one record. Malformed
// content never fails scoring: absent fields contribute an empty string
// to the match blob and nothing else.
func (e *Engine) Score(rec *domain.BibliographicRecord) domain.RelevanceAssessment {
	blob := matchBlob(rec)

	raw := 0
	breakdown := make([]domain.CriterionScore, 0, len(e.rubric.Criteria)+2)

	for _, criterion := range e.rubric.Criteria {
		entry := scoreCriterion(criterion, blob)
		raw += entry.Points
		breakdown = append(breakdown, entry)
	}

	if band := e.rubric.recencyBandFor(rec.PublicationYear); band != nil && band.Points > 0 {
		raw += band.Points
		breakdown = append(breakdown, domain.CriterionScore{
			Name:      recencyEntryName,
			Points:    band.Points,
			MaxPoints: e.rubric.maxRecencyPoints(),
			Reason:    band.Reason,
		})
	}

	if term, ok := firstMatch(e.rubric.LongitudinalBonus.Terms, blob); ok && e.rubric.LongitudinalBonus.Points > 0 {
		raw += e.rubric.LongitudinalBonus.Points
		breakdown = append(breakdown, domain.CriterionScore{
			Name:         longitudinalEntryName,
			Points:       e.rubric.LongitudinalBonus.Points,
			MaxPoints:    e.rubric.LongitudinalBonus.Points,
			MatchedTerms: []string{term},
			Reason:       "longitudinal or prospective study design",
		})
	}

	total := normalize(raw, e.denominator)

	return domain.RelevanceAssessment{
		RecordID:      rec.ID,
		ProjectID:     rec.ProjectID,
		TotalScore:    total,
		Category:      e.rubric.categoryFor(total),
		Breakdown:     breakdown,
		EngineVersion: e.rubric.Version,
		ComputedAt:    time.Now().UTC(),
	}
}

// matchBlob concatenates title, abstract, journal and keywords in that
// fixed order. The order only matters for matched-term provenance when
// debugging, never for the scoring outcome.
func matchBlob(rec *domain.BibliographicRecord) string {
	parts := []string{rec.Title, rec.Abstract, rec.JournalName, strings.Join(rec.Keywords, " ")}
	return strings.ToLower(strings.Join(parts, "\n"))
}

// scoreCriterion sums points for every matched term, capped at the
// criterion's maximum. Re-matching a term in a saturated criterion can
// never change the contribution.
func scoreCriterion(criterion Criterion, blob string) domain.CriterionScore {
	points := 0
	var matched []string
	for _, t := range criterion.Terms {
		if strings.Contains(blob, strings.ToLower(t.Term)) {
			points += t.Points
			matched = append(matched, t.Term)
		}
	}
	if points > criterion.MaxPoints {
		points = criterion.MaxPoints
	}
	return domain.CriterionScore{
		Name:         criterion.Name,
		Points:       points,
		MaxPoints:    criterion.MaxPoints,
		MatchedTerms: matched,
	}
}

func firstMatch(terms []string, blob string) (string, bool) {
	for _, term := range terms {
		if strings.Contains(blob, strings.ToLower(term)) {
			return term, true
		}
	}
	return "", false
}

func normalize(raw, denominator int) int {
	if denominator <= 0 {
		return 0
	}
	score := int(math.Round(100 * float64(raw) / float64(denominator)))
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
