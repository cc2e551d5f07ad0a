package normalize

import (
	"strings"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// zoteroAdapter reads subject-node views of Zotero RDF exports, either
// produced by ParseRDF or fed in directly as loosely-typed mappings with
// Zotero's native key names.
type zoteroAdapter struct{}

func (zoteroAdapter) name() string { return "zotero-rdf" }

func (zoteroAdapter) matches(item domain.SourceItem) bool {
	if _, ok := item["itemType"]; ok {
		return true
	}
	if _, ok := item["abstractNote"]; ok {
		return true
	}
	if _, ok := item["publicationTitle"]; ok {
		return true
	}
	for key := range item {
		if strings.HasPrefix(key, "z:") || strings.HasPrefix(key, "dc:") {
			return true
		}
	}
	return false
}

func (a zoteroAdapter) extract(item domain.SourceItem) fields {
	f := fields{
		title:    firstString(item, "title", "dc:title"),
		abstract: firstString(item, "abstractNote", "dcterms:abstract"),
		journal:  firstString(item, "publicationTitle", "prism:publicationName"),
		url:      firstString(item, "url", "URL"),
		authors:  zoteroAuthors(item["authors"], item["creators"]),
		keywords: stringList(item["tags"]),
	}

	identifiers := stringList(item["identifiers"])
	if id := firstString(item, "DOI", "doi", "dc:identifier"); id != "" {
		identifiers = append(identifiers, id)
	}
	f.doi = pickDOI(identifiers)
	if f.url == "" {
		f.url = pickURL(identifiers)
	}

	// Zotero keeps PMID markers in the free-text "extra" field.
	for _, key := range []string{"extra", "notes", "note", "dc:description"} {
		switch v := item[key].(type) {
		case string:
			if v != "" {
				f.notes = append(f.notes, v)
			}
		case []any:
			f.notes = append(f.notes, stringList(v)...)
		}
	}

	if raw := firstString(item, "date", "dc:date", "issued"); raw != "" {
		if year, ok := asInt(raw); ok && year >= 1000 && year <= 9999 {
			f.year = year
		} else {
			f.dateTexts = append(f.dateTexts, raw)
		}
	}
	return f
}

// zoteroAuthors handles both the subject-node "authors" list
// ({firstName, lastName} maps) and Zotero's native "creators" list,
// which adds a creatorType discriminator.
func zoteroAuthors(nodeAuthors, creators any) []string {
	if list, ok := nodeAuthors.([]any); ok && len(list) > 0 {
		return contributorNames(list, false)
	}
	if list, ok := creators.([]any); ok {
		return contributorNames(list, true)
	}
	return nil
}

func contributorNames(list []any, filterType bool) []string {
	out := make([]string, 0, len(list))
	for _, entry := range list {
		contributor, ok := entry.(map[string]any)
		if !ok {
			if literal := asString(entry); literal != "" {
				out = append(out, literal)
			}
			continue
		}
		if filterType {
			if ct := asString(contributor["creatorType"]); ct != "" && ct != "author" {
				continue
			}
		}
		if name := asString(contributor["name"]); name != "" {
			out = append(out, name)
			continue
		}
		given := firstOf(contributor, "firstName", "givenName", "given")
		family := firstOf(contributor, "lastName", "surname", "family")
		if display := displayName(given, family); display != "" {
			out = append(out, display)
		}
	}
	return out
}

func firstOf(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := asString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func pickDOI(identifiers []string) string {
	for _, id := range identifiers {
		if doi := normalizeDOI(id); doi != "" {
			return doi
		}
	}
	return ""
}

func pickURL(identifiers []string) string {
	for _, id := range identifiers {
		lowered := strings.ToLower(id)
		if strings.HasPrefix(lowered, "http://") || strings.HasPrefix(lowered, "https://") {
			if strings.Contains(lowered, "doi.org/") {
				continue
			}
			return id
		}
	}
	return ""
}
