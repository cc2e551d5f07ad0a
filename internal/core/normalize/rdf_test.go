package normalize

import (
	"strings"
	"testing"
)

const rdfExport = `<?xml version="1.0" encoding="utf-8"?>
<rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"
         xmlns:z="http://www.zotero.org/namespaces/export#"
         xmlns:dc="http://purl.org/dc/elements/1.1/"
         xmlns:dcterms="http://purl.org/dc/terms/"
         xmlns:bib="http://purl.org/net/biblio#"
         xmlns:foaf="http://xmlns.com/foaf/0.1/">
  <bib:Article rdf:about="https://www.example.org/alpha">
    <z:itemType>journalArticle</z:itemType>
    <dc:title>Alpha study of chatbot rapport</dc:title>
    <dcterms:abstract>An abstract.</dcterms:abstract>
    <dc:date>2022-03-01</dc:date>
    <dcterms:isPartOf>
      <bib:Journal>
        <dc:title>JMIR Mental Health</dc:title>
      </bib:Journal>
    </dcterms:isPartOf>
    <bib:authors>
      <rdf:Seq>
        <rdf:li>
          <foaf:Person>
            <foaf:surname>Curie</foaf:surname>
            <foaf:givenName>Marie</foaf:givenName>
          </foaf:Person>
        </rdf:li>
        <rdf:li>
          <foaf:Person>
            <foaf:surname>Bohr</foaf:surname>
            <foaf:givenName>Niels</foaf:givenName>
          </foaf:Person>
        </rdf:li>
      </rdf:Seq>
    </bib:authors>
    <dc:identifier>DOI 10.2196/alpha</dc:identifier>
    <dc:subject>digital health</dc:subject>
    <dc:subject>
      <z:AutomaticTag>
        <rdf:value>alliance</rdf:value>
      </z:AutomaticTag>
    </dc:subject>
  </bib:Article>
  <z:Attachment rdf:about="#item_22">
    <dc:title>Full Text PDF</dc:title>
  </z:Attachment>
  <bib:Memo rdf:about="#item_23">
    <rdf:value>a note</rdf:value>
  </bib:Memo>
</rdf:RDF>`

func TestParseRDFFlattensSubjectNodes(t *testing.T) {
	items, err := ParseRDF(strings.NewReader(rdfExport))
	if err != nil {
		t.Fatalf("ParseRDF() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (attachments and memos dropped)", len(items))
	}

	item := items[0]
	if item["itemType"] != "journalArticle" {
		t.Fatalf("itemType = %v", item["itemType"])
	}
	if item["title"] != "Alpha study of chatbot rapport" {
		t.Fatalf("title = %v", item["title"])
	}
	if item["publicationTitle"] != "JMIR Mental Health" {
		t.Fatalf("publicationTitle = %v", item["publicationTitle"])
	}
	if item["url"] != "https://www.example.org/alpha" {
		t.Fatalf("url = %v", item["url"])
	}

	authors, ok := item["authors"].([]any)
	if !ok || len(authors) != 2 {
		t.Fatalf("authors = %v, want 2 person maps", item["authors"])
	}
	first, ok := authors[0].(map[string]any)
	if !ok || first["firstName"] != "Marie" || first["lastName"] != "Curie" {
		t.Fatalf("first author = %v", authors[0])
	}

	ids, ok := item["identifiers"].([]string)
	if !ok || len(ids) == 0 || ids[0] != "DOI 10.2196/alpha" {
		t.Fatalf("identifiers = %v", item["identifiers"])
	}

	tags, ok := item["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("tags = %v, want plain and automatic tag", item["tags"])
	}
}

func TestParseRDFThenNormalize(t *testing.T) {
	items, err := ParseRDF(strings.NewReader(rdfExport))
	if err != nil {
		t.Fatalf("ParseRDF() error = %v", err)
	}

	n := fixedNormalizer()
	rec, skip := n.Normalize(items[0], 1)
	if skip != nil {
		t.Fatalf("unexpected skip: %+v", skip)
	}

	if rec.DOI != "10.2196/alpha" {
		t.Fatalf("doi = %q", rec.DOI)
	}
	if rec.SourceID != "10.2196/alpha" {
		t.Fatalf("source id = %q", rec.SourceID)
	}
	if rec.PublicationYear != 2022 {
		t.Fatalf("year = %d, want 2022", rec.PublicationYear)
	}
	if len(rec.Authors) != 2 || rec.Authors[0] != "Marie Curie" {
		t.Fatalf("authors = %v", rec.Authors)
	}
	if rec.JournalName != "JMIR Mental Health" {
		t.Fatalf("journal = %q", rec.JournalName)
	}
	if !rec.HasAttachmentCandidate {
		t.Fatalf("DOI-bearing record must be an attachment candidate")
	}
}

func TestParseRDFRejectsBrokenStream(t *testing.T) {
	if _, err := ParseRDF(strings.NewReader("<rdf:RDF")); err == nil {
		t.Fatalf("expected stream error")
	}
}
