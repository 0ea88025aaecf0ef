package storage

import (
	"testing"

	"github.com/anumlab/bibdb/internal/citation"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleEntry() *Entry {
	return &Entry{
		Record: citation.Record{
			Category: citation.Publication,
			Title:    "A novel method",
			Year:     2021,
			Venue:    "Journal of Testing",
			Volume:   "12",
			Pages:    "345",
			DOI:      "10.1/abc",
		},
	}
}

func TestCreateAndGetEntry(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateEntry(sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if id == 0 {
		t.Fatal("CreateEntry returned id 0")
	}

	got, err := s.GetEntry(id)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got == nil {
		t.Fatal("GetEntry returned nil")
	}
	if got.Title != "A novel method" || got.Year != 2021 || got.DOI != "10.1/abc" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Category != citation.Publication {
		t.Errorf("Category = %q", got.Category)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestCreateEntry_RequiresTitle(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreateEntry(&Entry{Record: citation.Record{Category: citation.Publication}}); err == nil {
		t.Error("expected error creating titleless entry")
	}
}

func TestDuplicateLookups(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateEntry(sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	t.Run("by DOI", func(t *testing.T) {
		e, err := s.FindByDOI("10.1/abc")
		if err != nil {
			t.Fatalf("FindByDOI: %v", err)
		}
		if e == nil || e.ID != id {
			t.Errorf("FindByDOI = %+v, want id %d", e, id)
		}
		if e, _ := s.FindByDOI("10.9/other"); e != nil {
			t.Errorf("FindByDOI(unknown) = %+v, want nil", e)
		}
	})

	t.Run("by title and year", func(t *testing.T) {
		e, err := s.FindByTitleYear("  a NOVEL method ", 2021)
		if err != nil {
			t.Fatalf("FindByTitleYear: %v", err)
		}
		if e == nil || e.ID != id {
			t.Errorf("FindByTitleYear = %+v, want id %d (case/space-insensitive)", e, id)
		}
		if e, _ := s.FindByTitleYear("A novel method", 1999); e != nil {
			t.Errorf("FindByTitleYear(wrong year) = %+v, want nil", e)
		}
	})

	t.Run("by title alone", func(t *testing.T) {
		e, err := s.FindByTitle("A NOVEL METHOD")
		if err != nil {
			t.Fatalf("FindByTitle: %v", err)
		}
		if e == nil || e.ID != id {
			t.Errorf("FindByTitle = %+v, want id %d", e, id)
		}
	})
}

func TestUpdateEntry(t *testing.T) {
	s := newTestStore(t)
	e := sampleEntry()
	if _, err := s.CreateEntry(e); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	count := 42
	e.CitationCount = &count
	e.Abstract = "Now with an abstract."
	ok, err := s.UpdateEntry(e)
	if err != nil {
		t.Fatalf("UpdateEntry: %v", err)
	}
	if !ok {
		t.Fatal("UpdateEntry = false for existing entry")
	}

	got, err := s.GetEntry(e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.CitationCount == nil || *got.CitationCount != 42 {
		t.Errorf("CitationCount = %v, want 42", got.CitationCount)
	}
	if got.Abstract != "Now with an abstract." {
		t.Errorf("Abstract = %q", got.Abstract)
	}

	missing := sampleEntry()
	missing.ID = 9999
	if ok, _ := s.UpdateEntry(missing); ok {
		t.Error("UpdateEntry = true for missing id")
	}
}

func TestAuthorsAndLinks(t *testing.T) {
	s := newTestStore(t)
	entryID, err := s.CreateEntry(sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	smithID, err := s.FindOrCreateAuthor("Smith, J.", false)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor: %v", err)
	}
	ownerID, err := s.FindOrCreateAuthor("Kazerouni, A. S.", true)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor: %v", err)
	}

	// Same name reuses the row.
	again, err := s.FindOrCreateAuthor("Smith, J.", false)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor (again): %v", err)
	}
	if again != smithID {
		t.Errorf("FindOrCreateAuthor reused = %d, want %d", again, smithID)
	}

	if err := s.LinkAuthor(entryID, smithID, 1, true, false); err != nil {
		t.Fatalf("LinkAuthor: %v", err)
	}
	if err := s.LinkAuthor(entryID, ownerID, 2, false, true); err != nil {
		t.Fatalf("LinkAuthor: %v", err)
	}

	linked, err := s.EntryAuthors(entryID)
	if err != nil {
		t.Fatalf("EntryAuthors: %v", err)
	}
	if len(linked) != 2 {
		t.Fatalf("EntryAuthors returned %d, want 2", len(linked))
	}
	if linked[0].Name != "Smith, J." || !linked[0].IsFirstAuthor {
		t.Errorf("link 1 = %+v", linked[0])
	}
	if linked[1].Name != "Kazerouni, A. S." || !linked[1].IsOwner || !linked[1].IsCorresponding {
		t.Errorf("link 2 = %+v", linked[1])
	}

	// Re-linking the same pair replaces the old link.
	if err := s.LinkAuthor(entryID, smithID, 3, false, false); err != nil {
		t.Fatalf("LinkAuthor (relink): %v", err)
	}

	n, err := s.CountEntryAuthors(entryID)
	if err != nil {
		t.Fatalf("CountEntryAuthors: %v", err)
	}
	if n != 2 {
		t.Errorf("CountEntryAuthors = %d, want 2", n)
	}

	relinked, err := s.EntryAuthors(entryID)
	if err != nil {
		t.Fatalf("EntryAuthors: %v", err)
	}
	if relinked[1].Name != "Smith, J." || relinked[1].Position != 3 || relinked[1].IsFirstAuthor {
		t.Errorf("relinked author = %+v, want Smith, J. at position 3 without first-author flag", relinked[1])
	}
}

func TestDeleteEntryCascades(t *testing.T) {
	s := newTestStore(t)
	entryID, err := s.CreateEntry(sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	authorID, err := s.FindOrCreateAuthor("Smith, J.", false)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor: %v", err)
	}
	if err := s.LinkAuthor(entryID, authorID, 1, true, false); err != nil {
		t.Fatalf("LinkAuthor: %v", err)
	}

	ok, err := s.DeleteEntry(entryID)
	if err != nil {
		t.Fatalf("DeleteEntry: %v", err)
	}
	if !ok {
		t.Fatal("DeleteEntry = false")
	}

	if e, _ := s.GetEntry(entryID); e != nil {
		t.Errorf("entry still present after delete: %+v", e)
	}
	n, err := s.CountEntryAuthors(entryID)
	if err != nil {
		t.Fatalf("CountEntryAuthors: %v", err)
	}
	if n != 0 {
		t.Errorf("author links survived delete: %d", n)
	}
	// The author record itself is not deleted.
	if a, _ := s.GetAuthorByName("Smith, J."); a == nil {
		t.Error("author deleted along with entry")
	}
}

func TestListEntries(t *testing.T) {
	s := newTestStore(t)

	pub := sampleEntry()
	if _, err := s.CreateEntry(pub); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	talk := &Entry{
		Record: citation.Record{
			Category: citation.OralPresentation,
			Title:    "Imaging biomarkers of early response",
			Year:     2024,
		},
		ProjectArea: "imaging",
	}
	if _, err := s.CreateEntry(talk); err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	all, err := s.ListEntries("", "")
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("ListEntries = %d entries, want 2", len(all))
	}
	if all[0].Year != 2024 {
		t.Errorf("expected newest year first, got %d", all[0].Year)
	}

	talks, err := s.ListEntries(citation.OralPresentation, "")
	if err != nil {
		t.Fatalf("ListEntries(category): %v", err)
	}
	if len(talks) != 1 || talks[0].Category != citation.OralPresentation {
		t.Errorf("category filter returned %+v", talks)
	}

	area, err := s.ListEntries("", "imaging")
	if err != nil {
		t.Fatalf("ListEntries(project area): %v", err)
	}
	if len(area) != 1 || area[0].ProjectArea != "imaging" {
		t.Errorf("project-area filter returned %+v", area)
	}

	n, err := s.CountEntries()
	if err != nil {
		t.Fatalf("CountEntries: %v", err)
	}
	if n != 2 {
		t.Errorf("CountEntries = %d, want 2", n)
	}
}

func TestListAuthorsAndEntriesByAuthor(t *testing.T) {
	s := newTestStore(t)

	first, err := s.CreateEntry(sampleEntry())
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	second, err := s.CreateEntry(&Entry{
		Record: citation.Record{
			Category: citation.Publication,
			Title:    "A second study",
			Year:     2023,
		},
	})
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}

	smith, err := s.FindOrCreateAuthor("Smith, J.", false)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor: %v", err)
	}
	doe, err := s.FindOrCreateAuthor("Doe, A.", false)
	if err != nil {
		t.Fatalf("FindOrCreateAuthor: %v", err)
	}

	for _, link := range []struct {
		entry, author int64
		pos           int
	}{
		{first, smith, 1},
		{first, doe, 2},
		{second, smith, 1},
	} {
		if err := s.LinkAuthor(link.entry, link.author, link.pos, false, false); err != nil {
			t.Fatalf("LinkAuthor: %v", err)
		}
	}

	authors, err := s.ListAuthors()
	if err != nil {
		t.Fatalf("ListAuthors: %v", err)
	}
	if len(authors) != 2 {
		t.Fatalf("ListAuthors = %d authors, want 2", len(authors))
	}
	if authors[0].Name != "Smith, J." || authors[0].EntryCount != 2 {
		t.Errorf("most-linked author = %+v, want Smith, J. with 2 entries", authors[0])
	}
	if authors[1].EntryCount != 1 {
		t.Errorf("second author count = %d, want 1", authors[1].EntryCount)
	}

	entries, err := s.EntriesByAuthor("Smith, J.")
	if err != nil {
		t.Fatalf("EntriesByAuthor: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("EntriesByAuthor = %d entries, want 2", len(entries))
	}
	if entries[0].Year != 2023 {
		t.Errorf("expected newest year first, got %d", entries[0].Year)
	}

	only, err := s.EntriesByAuthor("Doe, A.")
	if err != nil {
		t.Fatalf("EntriesByAuthor: %v", err)
	}
	if len(only) != 1 || only[0].ID != first {
		t.Errorf("EntriesByAuthor(Doe) = %+v", only)
	}

	none, err := s.EntriesByAuthor("Nobody, X.")
	if err != nil {
		t.Fatalf("EntriesByAuthor: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no entries for unknown author, got %d", len(none))
	}
}
