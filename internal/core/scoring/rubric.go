package scoring

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// WeightedTerm is one lexical trigger inside a criterion.
type WeightedTerm struct {
	Term   string `yaml:"term"`
	Points int    `yaml:"points"`
}

// Criterion is one named, capped scoring dimension. The per-criterion
// contribution never exceeds MaxPoints regardless of how many terms match.
type Criterion struct {
	Name      string         `yaml:"name"`
	MaxPoints int            `yaml:"max_points"`
	Terms     []WeightedTerm `yaml:"terms"`
}

// RecencyBand awards a fixed bonus to publication years at or above
// MinYear. Bands are rubric configuration, not scoring logic.
type RecencyBand struct {
	MinYear int    `yaml:"min_year"`
	Points  int    `yaml:"points"`
	Reason  string `yaml:"reason"`
}

// LongitudinalBonus is a non-stacking flag bonus triggered by study-design
// markers anywhere in the match blob.
type LongitudinalBonus struct {
	Points int      `yaml:"points"`
	Terms  []string `yaml:"terms"`
}

// CategoryBand maps a minimum normalized score to a relevance tier label.
type CategoryBand struct {
	MinScore int                      `yaml:"min_score"`
	Label    domain.RelevanceCategory `yaml:"label"`
}

// Rubric is the versioned, immutable configuration driving the scoring
// engine. Callers must run Validate before constructing an Engine.
type Rubric struct {
	Version           string            `yaml:"version"`
	Criteria          []Criterion       `yaml:"criteria"`
	RecencyBands      []RecencyBand     `yaml:"recency_bands"`
	LongitudinalBonus LongitudinalBonus `yaml:"longitudinal_bonus"`
	Categories        []CategoryBand    `yaml:"categories"`
}

// Load parses a YAML rubric definition.
func Load(r io.Reader) (Rubric, error) {
	var rubric Rubric
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rubric); err != nil {
		return Rubric{}, domain.WrapError(domain.ErrRubricConfig, "decode rubric yaml", err)
	}
	return rubric, nil
}

// LoadFile reads and parses a rubric definition from disk.
func LoadFile(path string) (Rubric, error) {
	f, err := os.Open(path)
	if err != nil {
		return Rubric{}, domain.WrapError(domain.ErrRubricConfig, "open rubric file", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate runs the rubric's internal consistency check. A rubric that
// fails validation must never reach the engine.
func (r Rubric) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Version) == "" {
		problems = append(problems, "version is empty")
	}
	if len(r.Criteria) == 0 {
		problems = append(problems, "rubric has no criteria")
	}
	seenNames := make(map[string]struct{}, len(r.Criteria))
	for i, c := range r.Criteria {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			problems = append(problems, fmt.Sprintf("criterion %d has no name", i))
			continue
		}
		if _, dup := seenNames[name]; dup {
			problems = append(problems, fmt.Sprintf("duplicate criterion name %q", name))
		}
		seenNames[name] = struct{}{}
		if c.MaxPoints <= 0 {
			problems = append(problems, fmt.Sprintf("criterion %q: max_points must be positive", name))
		}
		if len(c.Terms) == 0 {
			problems = append(problems, fmt.Sprintf("criterion %q has no terms", name))
		}
		for _, t := range c.Terms {
			if strings.TrimSpace(t.Term) == "" {
				problems = append(problems, fmt.Sprintf("criterion %q has an empty term", name))
			}
			if t.Points <= 0 {
				problems = append(problems, fmt.Sprintf("criterion %q term %q: points must be positive", name, t.Term))
			}
		}
	}

	if len(r.RecencyBands) == 0 {
		problems = append(problems, "rubric has no recency bands")
	}
	seenYears := make(map[int]struct{}, len(r.RecencyBands))
	for _, b := range r.RecencyBands {
		if b.Points < 0 {
			problems = append(problems, fmt.Sprintf("recency band min_year=%d: negative points", b.MinYear))
		}
		if _, dup := seenYears[b.MinYear]; dup {
			problems = append(problems, fmt.Sprintf("duplicate recency band min_year=%d", b.MinYear))
		}
		seenYears[b.MinYear] = struct{}{}
	}

	if r.LongitudinalBonus.Points < 0 {
		problems = append(problems, "longitudinal bonus: negative points")
	}
	if r.LongitudinalBonus.Points > 0 && len(r.LongitudinalBonus.Terms) == 0 {
		problems = append(problems, "longitudinal bonus has points but no trigger terms")
	}

	if len(r.Categories) == 0 {
		problems = append(problems, "rubric has no category bands")
	} else {
		hasFloor := false
		seenLabels := make(map[domain.RelevanceCategory]struct{}, len(r.Categories))
		seenMins := make(map[int]struct{}, len(r.Categories))
		for _, c := range r.Categories {
			if c.Label == "" {
				problems = append(problems, "category band with empty label")
			}
			if _, dup := seenLabels[c.Label]; dup {
				problems = append(problems, fmt.Sprintf("duplicate category label %q", c.Label))
			}
			seenLabels[c.Label] = struct{}{}
			if _, dup := seenMins[c.MinScore]; dup {
				problems = append(problems, fmt.Sprintf("overlapping category bands at min_score=%d", c.MinScore))
			}
			seenMins[c.MinScore] = struct{}{}
			if c.MinScore == 0 {
				hasFloor = true
			}
		}
		if !hasFloor {
			problems = append(problems, "category bands do not cover score 0")
		}
	}

	if len(problems) > 0 {
		return domain.WrapError(domain.ErrRubricConfig, "validate rubric", errors.New(strings.Join(problems, "; ")))
	}
	return nil
}

// Denominator is the documented normalization denominator: the sum of all
// criterion caps plus the maximum possible bonus total. It is always
// derived from the rubric structure, never stored alongside it, so it
// cannot drift out of sync with rubric edits.
func (r Rubric) Denominator() int {
	total := 0
	for _, c := range r.Criteria {
		total += c.MaxPoints
	}
	total += r.maxRecencyPoints()
	total += r.LongitudinalBonus.Points
	return total
}

func (r Rubric) maxRecencyPoints() int {
	maxPoints := 0
	for _, b := range r.RecencyBands {
		if b.Points > maxPoints {
			maxPoints = b.Points
		}
	}
	return maxPoints
}

// recencyBandFor returns the band with the highest MinYear not exceeding
// year, or nil when the year predates every band.
func (r Rubric) recencyBandFor(year int) *RecencyBand {
	bands := make([]RecencyBand, len(r.RecencyBands))
	copy(bands, r.RecencyBands)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinYear > bands[j].MinYear })
	for i := range bands {
		if year >= bands[i].MinYear {
			return &bands[i]
		}
	}
	return nil
}

// categoryFor maps a normalized score to its tier label.
func (r Rubric) categoryFor(score int) domain.RelevanceCategory {
	bands := make([]CategoryBand, len(r.Categories))
	copy(bands, r.Categories)
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinScore > bands[j].MinScore })
	for _, b := range bands {
		if score >= b.MinScore {
			return b.Label
		}
	}
	return bands[len(bands)-1].Label
}
