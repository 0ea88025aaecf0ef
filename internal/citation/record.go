// Package citation defines the core domain types for bibliography entries.
package citation

// Category is the kind of scholarly output an entry represents.
type Category string

const (
	Publication      Category = "publication"
	BookChapter      Category = "book_chapter"
	Patent           Category = "patent"
	OralPresentation Category = "oral_presentation"
	PosterAbstract   Category = "poster_abstract"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Publication, BookChapter, Patent, OralPresentation, PosterAbstract:
		return true
	}
	return false
}

// Record is the canonical structured form of a parsed citation.
//
// Authors are ordered; position is authorship order and is significant.
// FirstAuthorPositions holds 1-based positions flagged as co-first authors.
// A Record without a title is invalid and must not be persisted.
type Record struct {
	Category Category `json:"category"`
	Title    string   `json:"title"`

	Authors              []string `json:"authors,omitempty"`
	FirstAuthorPositions []int    `json:"first_author_positions,omitempty"`

	// Publication locus
	Year   int    `json:"year,omitempty"`
	Venue  string `json:"venue,omitempty"`
	Volume string `json:"volume,omitempty"`
	Issue  string `json:"issue,omitempty"`
	Pages  string `json:"pages,omitempty"`

	// DOI stored without URL scheme or "doi:" prefix.
	DOI string `json:"doi,omitempty"`

	// Enrichment fields, populated only by external providers.
	Abstract      string `json:"abstract,omitempty"`
	URL           string `json:"url,omitempty"`
	Keywords      string `json:"keywords,omitempty"` // comma-joined
	SubjectArea   string `json:"subject_area,omitempty"`
	CitationCount *int   `json:"citation_count,omitempty"`

	// Presentation-only fields
	EventDate      string `json:"event_date,omitempty"`      // e.g. "October 2025"
	EventLocation  string `json:"event_location,omitempty"`  // e.g. "Seattle, WA"
	AbstractNumber string `json:"abstract_number,omitempty"` // poster/oral only

	// Patent-only field
	Status string `json:"status,omitempty"`

	// OwnerPosition is the 1-based position of the owner author among
	// Authors, or 0 when the owner is not an author.
	OwnerPosition int `json:"owner_position,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Authors = append([]string(nil), r.Authors...)
	out.FirstAuthorPositions = append([]int(nil), r.FirstAuthorPositions...)
	if r.CitationCount != nil {
		c := *r.CitationCount
		out.CitationCount = &c
	}
	return &out
}

// HasFirstAuthor reports whether the 1-based position is flagged co-first.
func (r *Record) HasFirstAuthor(position int) bool {
	for _, p := range r.FirstAuthorPositions {
		if p == position {
			return true
		}
	}
	return false
}

// Metadata is a partial record returned by an external provider.
// Zero-valued fields mean "not supplied".
type Metadata struct {
	Title   string
	Authors []string
	Venue   string
	Year    int
	Volume  string
	Issue   string
	Pages   string
	DOI     string

	Abstract      string
	URL           string
	Keywords      string
	SubjectArea   string
	CitationCount *int
}
