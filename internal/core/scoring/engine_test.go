package scoring

import (
	"testing"

	"github.com/veslabs/litscreen/internal/core/domain"
)

func defaultEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultRubric())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func TestNewEngineRejectsInvalidRubric(t *testing.T) {
	rubric := validRubric()
	rubric.Criteria = nil
	if _, err := NewEngine(rubric); err == nil {
		t.Fatalf("expected error")
	}
}

func TestScoreRecentAllianceStudyLandsInTopTier(t *testing.T) {
	engine := defaultEngine(t)

	rec := &domain.BibliographicRecord{
		ID:              "rec-1",
		ProjectID:       "proj-1",
		Title:           "Artificial empathy and the digital therapeutic alliance in chatbot-delivered counseling",
		Abstract:        "A randomized controlled trial evaluating conversational AI support for underrepresented populations.",
		PublicationYear: 2024,
	}

	got := engine.Score(rec)

	if got.Category != domain.CategoryHighlyRelevant {
		t.Fatalf("category = %s, want %s (score %d)", got.Category, domain.CategoryHighlyRelevant, got.TotalScore)
	}
	if got.TotalScore < 70 || got.TotalScore > 100 {
		t.Fatalf("score = %d, want within top band", got.TotalScore)
	}

	matchedCriteria := 0
	sawRecency := false
	for _, entry := range got.Breakdown {
		if entry.Name == recencyEntryName {
			sawRecency = true
			continue
		}
		if entry.Name == longitudinalEntryName {
			continue
		}
		if len(entry.MatchedTerms) > 0 {
			matchedCriteria++
		}
	}
	if matchedCriteria < 3 {
		t.Fatalf("matched criteria = %d, want at least 3", matchedCriteria)
	}
	if !sawRecency {
		t.Fatalf("expected a recency entry for a 2024 publication")
	}
	if got.EngineVersion != engine.Version() {
		t.Fatalf("engine version = %q, want %q", got.EngineVersion, engine.Version())
	}
}

func TestScoreOffTopicOlderRecordScoresZero(t *testing.T) {
	engine := defaultEngine(t)

	rec := &domain.BibliographicRecord{
		ID:              "rec-2",
		ProjectID:       "proj-1",
		Title:           "Crop rotation yields under drought stress",
		Abstract:        "Field measurements of soil moisture in maize plots.",
		PublicationYear: 2010,
	}

	got := engine.Score(rec)

	if got.TotalScore != 0 {
		t.Fatalf("score = %d, want 0", got.TotalScore)
	}
	if got.Category != domain.CategoryLowRelevance {
		t.Fatalf("category = %s, want %s", got.Category, domain.CategoryLowRelevance)
	}
	for _, entry := range got.Breakdown {
		if entry.Points != 0 {
			t.Fatalf("breakdown entry %q has %d points, want 0", entry.Name, entry.Points)
		}
	}
}

func TestScoreCriterionContributionNeverExceedsCap(t *testing.T) {
	engine := defaultEngine(t)

	// Saturates therapeutic_alliance several times over.
	rec := &domain.BibliographicRecord{
		Title:           "Digital therapeutic alliance, working alliance, artificial empathy, empathy, rapport",
		Abstract:        "Therapeutic alliance revisited.",
		PublicationYear: 2024,
	}

	got := engine.Score(rec)

	for _, entry := range got.Breakdown {
		if entry.Points > entry.MaxPoints {
			t.Fatalf("entry %q: %d points exceeds cap %d", entry.Name, entry.Points, entry.MaxPoints)
		}
	}
}

func TestScoreStaysWithinBounds(t *testing.T) {
	engine := defaultEngine(t)

	// Matches every criterion, the top recency band and the
	// longitudinal bonus at once.
	rec := &domain.BibliographicRecord{
		Title: "Digital therapeutic alliance with conversational AI chatbots in mental health",
		Abstract: "A longitudinal randomized controlled trial and systematic review of psychotherapy " +
			"chatbots for underserved and underrepresented populations facing health disparities.",
		JournalName:     "Journal of Digital Health",
		Keywords:        []string{"large language model", "counseling", "health equity"},
		PublicationYear: 2025,
	}

	got := engine.Score(rec)
	if got.TotalScore < 0 || got.TotalScore > 100 {
		t.Fatalf("score = %d, out of bounds", got.TotalScore)
	}
	if got.Category != domain.CategoryHighlyRelevant {
		t.Fatalf("category = %s, want %s", got.Category, domain.CategoryHighlyRelevant)
	}
}

func TestScoreLongitudinalBonusDoesNotStack(t *testing.T) {
	engine := defaultEngine(t)

	rec := &domain.BibliographicRecord{
		Title:           "A longitudinal cohort study with a prospective study arm",
		PublicationYear: 2024,
	}

	got := engine.Score(rec)

	bonuses := 0
	for _, entry := range got.Breakdown {
		if entry.Name == longitudinalEntryName {
			bonuses++
			if entry.Points != engine.rubric.LongitudinalBonus.Points {
				t.Fatalf("bonus points = %d, want %d", entry.Points, engine.rubric.LongitudinalBonus.Points)
			}
		}
	}
	if bonuses != 1 {
		t.Fatalf("longitudinal bonus entries = %d, want exactly 1", bonuses)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := defaultEngine(t)

	rec := &domain.BibliographicRecord{
		Title:           "Chatbot empathy in depression care",
		Abstract:        "Mixed methods evaluation.",
		PublicationYear: 2021,
	}

	first := engine.Score(rec)
	second := engine.Score(rec)

	if first.TotalScore != second.TotalScore || first.Category != second.Category {
		t.Fatalf("scores differ across runs: %d/%s vs %d/%s",
			first.TotalScore, first.Category, second.TotalScore, second.Category)
	}
	if len(first.Breakdown) != len(second.Breakdown) {
		t.Fatalf("breakdown lengths differ: %d vs %d", len(first.Breakdown), len(second.Breakdown))
	}
}

func TestNormalizeClampsAndRounds(t *testing.T) {
	cases := []struct {
		raw, denom, want int
	}{
		{0, 100, 0},
		{50, 100, 50},
		{74, 100, 74},
		{1, 3, 33},
		{2, 3, 67},
		{150, 100, 100},
		{10, 0, 0},
	}
	for _, tc := range cases {
		if got := normalize(tc.raw, tc.denom); got != tc.want {
			t.Fatalf("normalize(%d, %d) = %d, want %d", tc.raw, tc.denom, got, tc.want)
		}
	}
}
