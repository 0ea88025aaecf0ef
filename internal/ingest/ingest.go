// Package ingest ties the parsing pipeline to the store: it resolves a
// fused record against existing entries (by DOI, then title+year, then
// title) and either reuses or creates one, attaching ordered author links.
// Re-submitting a known citation is idempotent: the existing id comes back
// and no author links are written.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/anumlab/bibdb/internal/authorname"
	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/csljson"
	"github.com/anumlab/bibdb/internal/fusion"
	"github.com/anumlab/bibdb/internal/storage"
)

// minAuthorNameLength filters out stray initials and split artifacts that
// are not real author names.
const minAuthorNameLength = 3

// Service coordinates parsing, duplicate resolution, and persistence.
type Service struct {
	store    *storage.Store
	pipeline *fusion.Pipeline
	registry fusion.RegistryLookup
	owner    *authorname.Matcher
	logw     io.Writer
}

// Option configures a Service.
type Option func(*Service)

// WithRegistry enables the enrich refresh pass.
func WithRegistry(r fusion.RegistryLookup) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithOwnerMatcher sets the owner-author alias matcher.
func WithOwnerMatcher(m *authorname.Matcher) Option {
	return func(s *Service) {
		s.owner = m
	}
}

// WithLogWriter sets the sink for per-record failure messages.
func WithLogWriter(w io.Writer) Option {
	return func(s *Service) {
		s.logw = w
	}
}

// New creates a Service over a store and a fusion pipeline.
func New(store *storage.Store, pipeline *fusion.Pipeline, opts ...Option) *Service {
	s := &Service{
		store:    store,
		pipeline: pipeline,
		owner:    authorname.NewMatcher(authorname.DefaultOwnerAliases),
		logw:     io.Discard,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logf(format string, args ...any) {
	fmt.Fprintf(s.logw, format+"\n", args...)
}

// ResolveOrCreate persists a record unless an equivalent entry already
// exists. The duplicate test runs DOI, then normalized title plus year,
// then title alone; the first hit wins and is returned with isNew=false,
// with no author-link writes. A new entry gets its authors linked in
// order and, when the owner is among them, its owner position patched.
func (s *Service) ResolveOrCreate(rec *citation.Record, projectArea string) (int64, bool, error) {
	if strings.TrimSpace(rec.Title) == "" {
		return 0, false, errors.New("record has no title")
	}

	if existing, err := s.findDuplicate(rec); err != nil {
		return 0, false, err
	} else if existing != nil {
		return existing.ID, false, nil
	}

	entry := &storage.Entry{Record: *rec, ProjectArea: projectArea}
	id, err := s.store.CreateEntry(entry)
	if err != nil {
		return 0, false, err
	}

	ownerPos := 0
	for i, raw := range rec.Authors {
		name := authorname.Normalize(raw)
		if len(name) < minAuthorNameLength {
			continue
		}
		position := i + 1
		isOwner := s.owner.Matches(name)

		authorID, err := s.store.FindOrCreateAuthor(name, isOwner)
		if err != nil {
			return 0, false, fmt.Errorf("resolving author %q: %w", name, err)
		}
		if err := s.store.LinkAuthor(id, authorID, position, rec.HasFirstAuthor(position), false); err != nil {
			return 0, false, err
		}
		if isOwner && ownerPos == 0 {
			ownerPos = position
		}
	}

	if ownerPos != 0 {
		if err := s.store.SetOwnerPosition(id, ownerPos); err != nil {
			return 0, false, err
		}
	}

	return id, true, nil
}

func (s *Service) findDuplicate(rec *citation.Record) (*storage.Entry, error) {
	if e, err := s.store.FindByDOI(rec.DOI); err != nil || e != nil {
		return e, err
	}
	if e, err := s.store.FindByTitleYear(rec.Title, rec.Year); err != nil || e != nil {
		return e, err
	}
	return s.store.FindByTitle(rec.Title)
}

// AddCitation parses one citation string and persists the result.
func (s *Service) AddCitation(ctx context.Context, citationText string, defaultCategory citation.Category, projectArea string) (int64, bool, error) {
	rec, err := s.pipeline.Process(ctx, citationText, defaultCategory)
	if err != nil {
		return 0, false, err
	}
	return s.ResolveOrCreate(rec, projectArea)
}

// Summary tallies a batch operation. Errors holds one message per failed
// item; a failure never aborts the batch.
type Summary struct {
	Created    int      `json:"created"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// BulkAddCitations processes citation lines in order. Blank lines are
// skipped without counting.
func (s *Service) BulkAddCitations(ctx context.Context, lines []string, defaultCategory citation.Category, projectArea string) Summary {
	var sum Summary
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		_, isNew, err := s.AddCitation(ctx, line, defaultCategory, projectArea)
		if err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("line %d: %v", i+1, err))
			s.logf("line %d: %v", i+1, err)
			continue
		}
		if isNew {
			sum.Created++
		} else {
			sum.Duplicates++
		}
	}
	return sum
}

// ImportCSL persists every parseable item of a CSL-JSON payload. Items
// without a title are dropped by the decoder before they reach the
// tally, so they appear in no count.
func (s *Service) ImportCSL(data []byte, projectArea string) Summary {
	var sum Summary
	for _, rec := range csljson.Parse(data) {
		_, isNew, err := s.ResolveOrCreate(rec, projectArea)
		if err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("%q: %v", rec.Title, err))
			s.logf("import %q: %v", rec.Title, err)
			continue
		}
		if isNew {
			sum.Created++
		} else {
			sum.Duplicates++
		}
	}
	return sum
}

// Enrich refreshes one entry from the registry by its DOI. Enrichment and
// bibliographic fields fill only when missing; citation count always takes
// the fresh value, it is a time-varying fact. Returns false when the entry
// has no DOI or the registry knows nothing about it.
func (s *Service) Enrich(ctx context.Context, entryID int64) (bool, error) {
	if s.registry == nil {
		return false, errors.New("no registry configured")
	}

	entry, err := s.store.GetEntry(entryID)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, fmt.Errorf("entry %d not found", entryID)
	}
	if entry.DOI == "" {
		return false, nil
	}

	meta, err := s.registry.Lookup(ctx, entry.DOI)
	if err != nil {
		return false, err
	}
	if meta == nil {
		return false, nil
	}

	changed := false
	if entry.Abstract == "" && meta.Abstract != "" {
		entry.Abstract = meta.Abstract
		changed = true
	}
	if entry.URL == "" && meta.URL != "" {
		entry.URL = meta.URL
		changed = true
	}
	if entry.Keywords == "" && meta.Keywords != "" {
		entry.Keywords = meta.Keywords
		changed = true
	}
	if entry.SubjectArea == "" && meta.SubjectArea != "" {
		entry.SubjectArea = meta.SubjectArea
		changed = true
	}
	if entry.Venue == "" && meta.Venue != "" {
		entry.Venue = meta.Venue
		changed = true
	}
	if entry.Volume == "" && meta.Volume != "" {
		entry.Volume = meta.Volume
		changed = true
	}
	if entry.Pages == "" && meta.Pages != "" {
		entry.Pages = meta.Pages
		changed = true
	}
	if meta.CitationCount != nil {
		if entry.CitationCount == nil || *entry.CitationCount != *meta.CitationCount {
			entry.CitationCount = meta.CitationCount
			changed = true
		}
	}

	if !changed {
		return false, nil
	}
	if _, err := s.store.UpdateEntry(entry); err != nil {
		return false, err
	}
	return true, nil
}

// EnrichSummary tallies a re-enrichment pass.
type EnrichSummary struct {
	Enriched int      `json:"enriched"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// EnrichAll refreshes every entry that has a DOI, one at a time.
func (s *Service) EnrichAll(ctx context.Context) (EnrichSummary, error) {
	entries, err := s.store.ListEntries("", "")
	if err != nil {
		return EnrichSummary{}, err
	}

	var sum EnrichSummary
	for _, e := range entries {
		if e.DOI == "" {
			sum.Skipped++
			continue
		}
		updated, err := s.Enrich(ctx, e.ID)
		if err != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, fmt.Sprintf("entry %d: %v", e.ID, err))
			s.logf("enrich entry %d: %v", e.ID, err)
			continue
		}
		if updated {
			sum.Enriched++
		} else {
			sum.Skipped++
		}
	}
	return sum, nil
}
