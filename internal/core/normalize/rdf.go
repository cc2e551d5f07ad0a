package normalize

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/veslabs/litscreen/internal/core/domain"
)

// ParseRDF reads a Zotero RDF/XML export and returns one subject-node
// view per bibliographic entry. Attachment and memo nodes are dropped;
// entries that fail to decode are skipped, never fatal, matching the
// best-effort contract of the normalizer. Only a stream-level XML error
// before any entry is read is reported.
func ParseRDF(r io.Reader) ([]domain.SourceItem, error) {
	var root rdfNode
	dec := xml.NewDecoder(r)
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode rdf export: %w", err)
	}

	items := make([]domain.SourceItem, 0, len(root.Children))
	for _, node := range root.Children {
		if skipRDFNode(node) {
			continue
		}
		if item := subjectNode(node); len(item) > 0 {
			items = append(items, item)
		}
	}
	return items, nil
}

// rdfNode is a generic element view; Zotero exports mix bib:, dc:,
// dcterms:, foaf:, prism: and z: vocabularies too freely for a typed
// schema to stay honest.
type rdfNode struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []rdfNode  `xml:",any"`
	Text     string     `xml:",chardata"`
}

func (n rdfNode) local() string {
	return n.XMLName.Local
}

func (n rdfNode) text() string {
	return strings.TrimSpace(n.Text)
}

func (n rdfNode) attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return strings.TrimSpace(a.Value)
		}
	}
	return ""
}

func (n rdfNode) child(local string) *rdfNode {
	for i := range n.Children {
		if n.Children[i].local() == local {
			return &n.Children[i]
		}
	}
	return nil
}

func (n rdfNode) childText(local string) string {
	if c := n.child(local); c != nil {
		return c.text()
	}
	return ""
}

func skipRDFNode(node rdfNode) bool {
	switch node.local() {
	case "Attachment", "Memo", "Person", "Organization", "Collection":
		return true
	}
	// Attachments sometimes surface as plain rdf:Description nodes
	// carrying only a link type.
	if node.local() == "Description" && node.childText("title") == "" && node.child("itemType") == nil {
		return true
	}
	return false
}

// subjectNode flattens one RDF entry into the loosely-typed mapping the
// Zotero adapter consumes.
func subjectNode(node rdfNode) domain.SourceItem {
	item := domain.SourceItem{}

	itemType := node.childText("itemType")
	if itemType == "" {
		itemType = strings.ToLower(node.local()[:1]) + node.local()[1:]
	}
	item["itemType"] = itemType

	setIfPresent(item, "title", node.childText("title"))
	setIfPresent(item, "abstractNote", node.childText("abstract"))
	setIfPresent(item, "date", node.childText("date"))
	setIfPresent(item, "extra", node.childText("description"))

	if journal := containerTitle(node); journal != "" {
		item["publicationTitle"] = journal
	}

	if authors := personNodes(node); len(authors) > 0 {
		item["authors"] = authors
	}

	if ids := identifierTexts(node); len(ids) > 0 {
		item["identifiers"] = ids
	}

	if tags := subjectTexts(node); len(tags) > 0 {
		item["tags"] = tags
	}

	if about := node.attr("about"); strings.HasPrefix(about, "http") {
		if _, has := item["url"]; !has {
			item["url"] = about
		}
	}
	return item
}

func setIfPresent(item domain.SourceItem, key, value string) {
	if value != "" {
		item[key] = value
	}
}

// containerTitle digs the journal name out of dcterms:isPartOf, falling
// back to prism:publicationName.
func containerTitle(node rdfNode) string {
	if part := node.child("isPartOf"); part != nil {
		if journal := part.child("Journal"); journal != nil {
			if title := journal.childText("title"); title != "" {
				return title
			}
		}
		for _, c := range part.Children {
			if title := c.childText("title"); title != "" {
				return title
			}
		}
	}
	return node.childText("publicationName")
}

// personNodes collects foaf:Person descendants under bib:authors (and
// the editor/contributor sequences, in document order) as
// {firstName, lastName} maps.
func personNodes(node rdfNode) []any {
	var out []any
	var walk func(n rdfNode)
	walk = func(n rdfNode) {
		if n.local() == "Person" {
			person := map[string]any{}
			if given := n.childText("givenName"); given != "" {
				person["firstName"] = given
			}
			if surname := n.childText("surname"); surname != "" {
				person["lastName"] = surname
			}
			if name := n.childText("name"); name != "" {
				person["name"] = name
			}
			if len(person) > 0 {
				out = append(out, person)
			}
			return
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	if authors := node.child("authors"); authors != nil {
		walk(*authors)
	}
	return out
}

// identifierTexts flattens dc:identifier values, including the nested
// dcterms:URI/rdf:value form Zotero uses for links and DOIs.
func identifierTexts(node rdfNode) []string {
	var out []string
	for _, c := range node.Children {
		if c.local() != "identifier" {
			continue
		}
		if text := c.text(); text != "" {
			out = append(out, text)
		}
		var walk func(n rdfNode)
		walk = func(n rdfNode) {
			if n.local() == "value" {
				if text := n.text(); text != "" {
					out = append(out, text)
				}
			}
			for _, child := range n.Children {
				walk(child)
			}
		}
		walk(c)
	}
	return out
}

func subjectTexts(node rdfNode) []any {
	var out []any
	for _, c := range node.Children {
		if c.local() != "subject" {
			continue
		}
		if text := c.text(); text != "" {
			out = append(out, text)
			continue
		}
		// z:AutomaticTag wraps the tag text in an rdf:value child.
		for _, child := range c.Children {
			if value := child.childText("value"); value != "" {
				out = append(out, value)
			}
		}
	}
	return out
}
