// Package fusion orchestrates the citation pipeline: it tries extraction
// strategies in order of reliability (full-text parser, DOI registry,
// title search, regex fallback) and merges their partial results into one
// record. Merging is fill-only-if-missing: a field populated by an earlier
// stage is never overwritten by a later one, with citation count as the
// sole always-refresh exception handled by the enrich pass.
package fusion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/anumlab/bibdb/internal/authorname"
	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/doi"
	"github.com/anumlab/bibdb/internal/freetext"
)

// ErrUnparseable is returned when no strategy produced a title. It marks
// uninterpretable input, not a pipeline failure; batch callers tally it
// and continue.
var ErrUnparseable = errors.New("citation could not be parsed")

// FullTextParser is the structured-extraction capability (e.g. GROBID).
type FullTextParser interface {
	Parse(ctx context.Context, citationText string) (*citation.Metadata, error)
}

// RegistryLookup is the DOI-keyed metadata capability (e.g. Crossref).
type RegistryLookup interface {
	Lookup(ctx context.Context, rawDOI string) (*citation.Metadata, error)
}

// SearchProvider is the title-keyed fuzzy capability (e.g. OpenAlex).
type SearchProvider interface {
	Search(ctx context.Context, title string) (*citation.Metadata, error)
}

// Pipeline runs the strategy cascade. Each capability may be nil, meaning
// that stage is skipped; a pipeline with no capabilities still works via
// the regex fallback.
type Pipeline struct {
	parser   FullTextParser
	registry RegistryLookup
	search   SearchProvider
	owner    *authorname.Matcher
	logw     io.Writer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFullTextParser enables the full-text parsing stage.
func WithFullTextParser(p FullTextParser) Option {
	return func(pl *Pipeline) {
		pl.parser = p
	}
}

// WithRegistryLookup enables DOI-based lookup and enrichment.
func WithRegistryLookup(r RegistryLookup) Option {
	return func(pl *Pipeline) {
		pl.registry = r
	}
}

// WithSearchProvider enables title-search enrichment.
func WithSearchProvider(s SearchProvider) Option {
	return func(pl *Pipeline) {
		pl.search = s
	}
}

// WithOwnerMatcher sets the owner-author alias matcher.
func WithOwnerMatcher(m *authorname.Matcher) Option {
	return func(pl *Pipeline) {
		pl.owner = m
	}
}

// WithLogWriter sets the sink for provider-failure messages.
func WithLogWriter(w io.Writer) Option {
	return func(pl *Pipeline) {
		pl.logw = w
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	pl := &Pipeline{
		owner: authorname.NewMatcher(authorname.DefaultOwnerAliases),
		logw:  io.Discard,
	}
	for _, opt := range opts {
		opt(pl)
	}
	return pl
}

func (p *Pipeline) logf(format string, args ...any) {
	fmt.Fprintf(p.logw, format+"\n", args...)
}

var patentStatusPattern = regexp.MustCompile(`(?i)(pending|granted|issued)`)

// Process parses one citation string into a structured record. The default
// category is the caller's preference, honored unless the text clearly
// indicates otherwise. Returns ErrUnparseable when no strategy yields a
// title.
func (p *Pipeline) Process(ctx context.Context, citationText string, defaultCategory citation.Category) (*citation.Record, error) {
	citationText = strings.TrimSpace(citationText)
	if len(citationText) < freetext.MinLength {
		return nil, ErrUnparseable
	}

	if rec := p.fullTextPath(ctx, citationText, defaultCategory); rec != nil {
		return p.finalize(rec, citationText), nil
	}
	if rec := p.directDOIPath(ctx, citationText, defaultCategory); rec != nil {
		return p.finalize(rec, citationText), nil
	}

	skeleton := freetext.Parse(citationText)
	if rec := p.searchAssistedPath(ctx, citationText, skeleton, defaultCategory); rec != nil {
		return p.finalize(rec, citationText), nil
	}
	if rec := p.fallbackPath(ctx, citationText, skeleton, defaultCategory); rec != nil {
		return p.finalize(rec, citationText), nil
	}

	return nil, ErrUnparseable
}

// fullTextPath accepts the full-text parser's record as the base, then
// enriches it: registry lookup when a DOI is resolvable, search lookup for
// whatever is still missing.
func (p *Pipeline) fullTextPath(ctx context.Context, citationText string, defaultCategory citation.Category) *citation.Record {
	if p.parser == nil {
		return nil
	}
	meta, err := p.parser.Parse(ctx, citationText)
	if err != nil {
		p.logf("full-text parse failed: %v", err)
		return nil
	}
	if meta == nil || meta.Title == "" {
		return nil
	}

	rec := recordFrom(meta, DetermineCategory(citationText, defaultCategory))

	id := rec.DOI
	if id == "" {
		id = doi.ExtractFromText(citationText)
	}
	if id == "" {
		id = doi.ExtractFromURL(rec.URL)
	}
	if id != "" {
		rec.DOI = doi.Clean(id)
		p.enrichFromRegistry(ctx, rec, rec.DOI)
	}

	if p.search != nil && rec.Title != "" {
		found, err := p.search.Search(ctx, rec.Title)
		if err != nil {
			p.logf("search lookup failed: %v", err)
		} else if found != nil {
			searchDOI := found.DOI
			if searchDOI == "" {
				searchDOI = doi.ExtractFromURL(found.URL)
			}
			if rec.DOI == "" && searchDOI != "" {
				rec.DOI = doi.Clean(searchDOI)
				p.enrichFromRegistry(ctx, rec, rec.DOI)
			}
			fillEnrichment(rec, found)
		}
	}

	return rec
}

// directDOIPath builds the record straight from the registry when the raw
// text carries a DOI and the full-text stage did not run or produced
// nothing.
func (p *Pipeline) directDOIPath(ctx context.Context, citationText string, defaultCategory citation.Category) *citation.Record {
	if p.registry == nil {
		return nil
	}
	id := doi.ExtractFromText(citationText)
	if id == "" {
		return nil
	}
	meta, err := p.registry.Lookup(ctx, id)
	if err != nil {
		p.logf("registry lookup failed: %v", err)
		return nil
	}
	if meta == nil || meta.Title == "" {
		return nil
	}
	return recordFrom(meta, DetermineCategory(citationText, defaultCategory))
}

// searchAssistedPath runs the regex skeleton through title search. Search
// results are considered more authoritative than raw-text heuristics, so
// its title, venue, year, and enrichment fields win; the skeleton's volume
// and issue survive because search does not supply them.
func (p *Pipeline) searchAssistedPath(ctx context.Context, citationText string, skeleton *citation.Record, defaultCategory citation.Category) *citation.Record {
	if p.search == nil || skeleton == nil || skeleton.Title == "" {
		return nil
	}

	found, err := p.search.Search(ctx, skeleton.Title)
	if err != nil {
		p.logf("search lookup failed: %v", err)
		return nil
	}
	if found == nil {
		return nil
	}

	rec := skeleton.Clone()
	rec.Category = DetermineCategory(citationText, defaultCategory)
	if found.Title != "" {
		rec.Title = found.Title
	}
	if found.Venue != "" {
		rec.Venue = found.Venue
	}
	if found.Year != 0 {
		rec.Year = found.Year
	}
	if found.Pages != "" {
		rec.Pages = found.Pages
	}
	if len(found.Authors) > 0 {
		rec.Authors = found.Authors
		rec.FirstAuthorPositions = nil
	}
	rec.Abstract = found.Abstract
	rec.URL = found.URL
	rec.Keywords = found.Keywords
	rec.CitationCount = found.CitationCount

	id := found.DOI
	if id == "" {
		id = skeleton.DOI
	}
	if id == "" {
		id = doi.ExtractFromText(citationText)
	}
	if id == "" {
		id = doi.ExtractFromURL(found.URL)
	}
	if id != "" {
		rec.DOI = doi.Clean(id)
		p.enrichFromRegistry(ctx, rec, rec.DOI)
	}

	return rec
}

// fallbackPath is the last resort: the regex skeleton alone, with one
// registry lookup for enrichment when a DOI is derivable.
func (p *Pipeline) fallbackPath(ctx context.Context, citationText string, skeleton *citation.Record, defaultCategory citation.Category) *citation.Record {
	if skeleton == nil {
		return nil
	}

	rec := skeleton.Clone()
	if rec.Category == "" {
		rec.Category = DetermineCategory(citationText, defaultCategory)
	}

	id := rec.DOI
	if id == "" {
		id = doi.ExtractFromText(citationText)
	}
	if id == "" {
		id = doi.ExtractFromURL(rec.URL)
	}
	if id != "" {
		rec.DOI = doi.Clean(id)
		p.enrichFromRegistry(ctx, rec, rec.DOI)
	}

	return rec
}

// enrichFromRegistry merges registry enrichment fields into rec under the
// fill-only-if-missing policy, and adopts a DOI encoded in the registry's
// URL when rec lacks one (registries answer superseded DOIs with the
// current one in their canonical URL).
func (p *Pipeline) enrichFromRegistry(ctx context.Context, rec *citation.Record, id string) {
	if p.registry == nil || id == "" {
		return
	}
	meta, err := p.registry.Lookup(ctx, id)
	if err != nil {
		p.logf("registry lookup failed: %v", err)
		return
	}
	if meta == nil {
		return
	}

	fillEnrichment(rec, meta)
	if meta.SubjectArea != "" && rec.SubjectArea == "" {
		rec.SubjectArea = meta.SubjectArea
	}
	if urlDOI := doi.ExtractFromURL(meta.URL); urlDOI != "" && urlDOI != rec.DOI {
		rec.DOI = doi.Clean(urlDOI)
	}
}

// fillEnrichment copies abstract, url, keywords, and citation count from
// src into rec where rec has none.
func fillEnrichment(rec *citation.Record, src *citation.Metadata) {
	if rec.Abstract == "" {
		rec.Abstract = src.Abstract
	}
	if rec.URL == "" {
		rec.URL = src.URL
	}
	if rec.Keywords == "" {
		rec.Keywords = src.Keywords
	}
	if rec.CitationCount == nil {
		rec.CitationCount = src.CitationCount
	}
}

// recordFrom builds a record from one provider's metadata.
func recordFrom(meta *citation.Metadata, category citation.Category) *citation.Record {
	var count *int
	if meta.CitationCount != nil {
		c := *meta.CitationCount
		count = &c
	}
	return &citation.Record{
		Category:      category,
		Title:         meta.Title,
		Authors:       append([]string(nil), meta.Authors...),
		Year:          meta.Year,
		Venue:         meta.Venue,
		Volume:        meta.Volume,
		Issue:         meta.Issue,
		Pages:         meta.Pages,
		DOI:           doi.Clean(meta.DOI),
		Abstract:      meta.Abstract,
		URL:           meta.URL,
		Keywords:      meta.Keywords,
		SubjectArea:   meta.SubjectArea,
		CitationCount: count,
	}
}

// finalize computes the derived fields every path shares: first-author
// positions, owner position, and the patent status when detectable.
func (p *Pipeline) finalize(rec *citation.Record, citationText string) *citation.Record {
	if len(rec.FirstAuthorPositions) == 0 {
		rec.FirstAuthorPositions = markedFirstAuthors(rec.Authors, citationText, rec.Title)
	}

	rec.OwnerPosition = 0
	for i, name := range rec.Authors {
		if p.owner.Matches(name) {
			rec.OwnerPosition = i + 1
			break
		}
	}

	if rec.Category == citation.Patent && rec.Status == "" {
		if m := patentStatusPattern.FindString(strings.ToLower(citationText)); m != "" {
			rec.Status = m
		}
	}

	return rec
}

// markedFirstAuthors flags authors whose surname sits in a comma-delimited
// span of the author block (the text before the title) that carries an
// asterisk, checking the span and its successor so a star after the
// initials still counts. No marker means position 1, when authors exist.
func markedFirstAuthors(authors []string, citationText, title string) []int {
	section := ""
	if title != "" {
		if idx := strings.Index(citationText, title); idx > 0 {
			section = citationText[:idx]
		}
	}
	spans := strings.Split(section, ",")

	var positions []int
	for i, author := range authors {
		surname := strings.TrimSpace(strings.SplitN(author, ",", 2)[0])
		if surname == "" {
			continue
		}
		for j, span := range spans {
			if !strings.Contains(span, surname) {
				continue
			}
			if strings.Contains(span, "*") || (j+1 < len(spans) && strings.Contains(spans[j+1], "*")) {
				positions = append(positions, i+1)
			}
			break
		}
	}

	if len(positions) == 0 && len(authors) > 0 {
		return []int{1}
	}
	return positions
}

// Meeting-type keywords that reclassify a generic citation as a
// presentation of some kind.
var meetingKeywords = []string{"meeting", "symposium", "conference", "workshop", "retreat", "annual"}

// DetermineCategory classifies a citation from its lowercased text and the
// caller's preferred category. An explicit presentation-type preference is
// honored unless the text names the opposite kind; otherwise meeting
// keywords, then patent and chapter markers, then the preference.
func DetermineCategory(citationText string, preferred citation.Category) citation.Category {
	lower := strings.ToLower(citationText)
	posterHint := strings.Contains(lower, "poster") || strings.Contains(lower, "abstract")
	oralHint := strings.Contains(lower, "oral") || strings.Contains(lower, "presentation")

	switch preferred {
	case citation.OralPresentation:
		if posterHint {
			return citation.PosterAbstract
		}
		return preferred
	case citation.PosterAbstract:
		if oralHint {
			return citation.OralPresentation
		}
		return preferred
	}

	for _, kw := range meetingKeywords {
		if strings.Contains(lower, kw) {
			if posterHint && !oralHint {
				return citation.PosterAbstract
			}
			return citation.OralPresentation
		}
	}

	switch {
	case strings.Contains(lower, "patent"):
		return citation.Patent
	case strings.Contains(lower, "chapter"):
		return citation.BookChapter
	}
	return preferred
}
