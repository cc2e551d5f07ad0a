package domain

import "time"

// UnspecifiedAuthor is stored instead of an empty author list because
// downstream display code works with author strings, not collections.
const UnspecifiedAuthor = "Author unspecified"

// MaxAuthors bounds contributor extraction; malformed exports have been
// seen with thousands of spurious contributor nodes.
const MaxAuthors = 50

// BibliographicRecord is the canonical unit of work produced by the
// normalizer. Records are immutable after creation except for attaching
// a computed assessment.
type BibliographicRecord struct {
	ID              string    `json:"id"`
	ProjectID       string    `json:"project_id"`
	SourceID        string    `json:"source_id"`
	Title           string    `json:"title"`
	Abstract        string    `json:"abstract,omitempty"`
	JournalName     string    `json:"journal_name,omitempty"`
	Authors         []string  `json:"authors"`
	PublicationYear int       `json:"publication_year"`
	DOI             string    `json:"doi,omitempty"`
	ExternalURL     string    `json:"external_url,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`

	// HasAttachmentCandidate is a heuristic hint for later PDF retrieval,
	// never a correctness guarantee.
	HasAttachmentCandidate bool `json:"has_attachment_candidate"`

	CreatedAt time.Time `json:"created_at"`
}

// SkipReason explains why the normalizer rejected a source item.
type SkipReason struct {
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}
