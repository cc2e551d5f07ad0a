package normalize

import (
	"strings"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// cslAdapter reads CSL-JSON shaped items (Citation Style Language, the
// interchange format emitted by Zotero's JSON export, Pandoc and most
// reference managers). It is also the terminal fallback for manual
// entries, which reuse the same key names.
type cslAdapter struct{}

func (cslAdapter) name() string { return "csl-json" }

func (cslAdapter) matches(item domain.SourceItem) bool {
	if _, ok := item["issued"]; ok {
		return true
	}
	if _, ok := item["container-title"]; ok {
		return true
	}
	_, hasType := item["type"]
	_, hasTitle := item["title"]
	return hasType && hasTitle
}

func (a cslAdapter) extract(item domain.SourceItem) fields {
	f := fields{
		title:    firstString(item, "title"),
		abstract: firstString(item, "abstract"),
		journal:  firstString(item, "container-title", "journal", "publication"),
		doi:      firstString(item, "DOI", "doi"),
		url:      firstString(item, "URL", "url"),
		authors:  cslAuthors(item["author"]),
		keywords: splitKeywords(firstString(item, "keyword", "keywords")),
	}
	if list := stringList(item["keywords"]); len(list) > 0 {
		f.keywords = append(f.keywords, list...)
	}
	if note := firstString(item, "note", "annote"); note != "" {
		f.notes = append(f.notes, note)
	}

	f.year, f.dateTexts = cslIssued(item["issued"])
	if raw := firstString(item, "date", "year"); raw != "" {
		f.dateTexts = append(f.dateTexts, raw)
	}
	return f
}

// cslIssued attempts structured date-parts extraction and collects free
// text date candidates for the regex tier.
func cslIssued(v any) (int, []string) {
	issued, ok := v.(map[string]any)
	if !ok {
		return 0, nil
	}

	var texts []string
	if raw := asString(issued["raw"]); raw != "" {
		texts = append(texts, raw)
	}
	if literal := asString(issued["literal"]); literal != "" {
		texts = append(texts, literal)
	}

	parts, ok := issued["date-parts"].([]any)
	if !ok || len(parts) == 0 {
		return 0, texts
	}
	first, ok := parts[0].([]any)
	if !ok || len(first) == 0 {
		return 0, texts
	}
	if year, ok := asInt(first[0]); ok && year > 0 {
		return year, texts
	}
	// Exporters have been seen emitting date-parts as strings.
	if yearText := asString(first[0]); yearText != "" {
		texts = append(texts, yearText)
	}
	return 0, texts
}

func cslAuthors(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, entry := range list {
		contributor, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if literal := asString(contributor["literal"]); literal != "" {
			out = append(out, literal)
			continue
		}
		if display := displayName(asString(contributor["given"]), asString(contributor["family"])); display != "" {
			out = append(out, display)
		}
	}
	return out
}

// displayName joins to "Given Family" with either part optional.
func displayName(given, family string) string {
	return strings.TrimSpace(strings.TrimSpace(given) + " " + strings.TrimSpace(family))
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	split := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ','
	})
	out := make([]string, 0, len(split))
	for _, kw := range split {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
