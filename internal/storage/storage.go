// Package storage persists bibliography entries and their author links in
// a SQLite database. Entries hold the bibliographic fields; authors are
// shared across entries through the entry_authors link table, which
// records authorship order and first-author flags.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anumlab/bibdb/internal/citation"
)

// Entry is a persisted citation record plus its database identity.
// Authors and FirstAuthorPositions on the embedded record are not entry
// columns; authorship lives in the link table and is loaded separately.
type Entry struct {
	ID int64
	citation.Record
	ProjectArea string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Author is a persisted author, shared across entries.
type Author struct {
	ID      int64
	Name    string
	IsOwner bool

	// EntryCount is populated only by ListAuthors.
	EntryCount int
}

// LinkedAuthor is an author joined with their link to one entry.
type LinkedAuthor struct {
	Author
	Position        int
	IsFirstAuthor   bool
	IsCorresponding bool
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS entries (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  category TEXT NOT NULL,
  title TEXT NOT NULL,
  year INTEGER,
  venue TEXT,
  volume TEXT,
  issue TEXT,
  pages TEXT,
  doi TEXT,
  abstract TEXT,
  url TEXT,
  keywords TEXT,
  subject_area TEXT,
  citation_count INTEGER,
  event_date TEXT,
  event_location TEXT,
  abstract_number TEXT,
  status TEXT,
  owner_position INTEGER,
  project_area TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_doi ON entries(doi);
CREATE INDEX IF NOT EXISTS idx_entries_title ON entries(title);
CREATE INDEX IF NOT EXISTS idx_entries_category ON entries(category);

CREATE TABLE IF NOT EXISTS authors (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  is_owner INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS entry_authors (
  entry_id INTEGER NOT NULL REFERENCES entries(id) ON DELETE CASCADE,
  author_id INTEGER NOT NULL REFERENCES authors(id) ON DELETE CASCADE,
  position INTEGER NOT NULL,
  is_first_author INTEGER NOT NULL DEFAULT 0,
  is_corresponding INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (entry_id, author_id),
  UNIQUE (entry_id, position)
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the database at path. Use
// ":memory:" for an ephemeral store in tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// normalizeTitle is the comparison form used for duplicate detection.
func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// FindByDOI returns the entry with the exact DOI, or nil.
func (s *Store) FindByDOI(doi string) (*Entry, error) {
	if doi == "" {
		return nil, nil
	}
	return s.queryOne("SELECT "+entryColumns+" FROM entries WHERE doi = ? LIMIT 1", doi)
}

// FindByTitleYear returns an entry matching the normalized title and year,
// or nil.
func (s *Store) FindByTitleYear(title string, year int) (*Entry, error) {
	if title == "" || year == 0 {
		return nil, nil
	}
	return s.queryOne(
		"SELECT "+entryColumns+" FROM entries WHERE LOWER(TRIM(title)) = ? AND year = ? LIMIT 1",
		normalizeTitle(title), year)
}

// FindByTitle returns an entry matching the normalized title alone, or
// nil. This is the weakest duplicate test and can conflate distinct works
// that share a title.
func (s *Store) FindByTitle(title string) (*Entry, error) {
	if title == "" {
		return nil, nil
	}
	return s.queryOne(
		"SELECT "+entryColumns+" FROM entries WHERE LOWER(TRIM(title)) = ? LIMIT 1",
		normalizeTitle(title))
}

const entryColumns = `id, category, title, year, venue, volume, issue, pages, doi,
 abstract, url, keywords, subject_area, citation_count,
 event_date, event_location, abstract_number, status, owner_position,
 project_area, created_at, updated_at`

const qualifiedEntryColumns = `e.id, e.category, e.title, e.year, e.venue, e.volume, e.issue,
 e.pages, e.doi, e.abstract, e.url, e.keywords, e.subject_area, e.citation_count,
 e.event_date, e.event_location, e.abstract_number, e.status, e.owner_position,
 e.project_area, e.created_at, e.updated_at`

// CreateEntry inserts a new entry and returns its id. The entry must have
// a title; persisting a titleless record is a caller bug.
func (s *Store) CreateEntry(e *Entry) (int64, error) {
	if strings.TrimSpace(e.Title) == "" {
		return 0, fmt.Errorf("entry has no title")
	}

	now := time.Now().UTC()
	e.CreatedAt = now
	e.UpdatedAt = now

	res, err := s.db.Exec(`INSERT INTO entries
		(category, title, year, venue, volume, issue, pages, doi,
		 abstract, url, keywords, subject_area, citation_count,
		 event_date, event_location, abstract_number, status, owner_position,
		 project_area, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Category), e.Title, nullInt(e.Year), nullStr(e.Venue),
		nullStr(e.Volume), nullStr(e.Issue), nullStr(e.Pages), nullStr(e.DOI),
		nullStr(e.Abstract), nullStr(e.URL), nullStr(e.Keywords), nullStr(e.SubjectArea),
		nullIntPtr(e.CitationCount), nullStr(e.EventDate), nullStr(e.EventLocation),
		nullStr(e.AbstractNumber), nullStr(e.Status), nullInt(e.OwnerPosition),
		nullStr(e.ProjectArea),
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting entry: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading entry id: %w", err)
	}
	e.ID = id
	return id, nil
}

// UpdateEntry rewrites all mutable columns of an existing entry. Returns
// false when no row has that id.
func (s *Store) UpdateEntry(e *Entry) (bool, error) {
	now := time.Now().UTC()
	e.UpdatedAt = now

	res, err := s.db.Exec(`UPDATE entries SET
		category = ?, title = ?, year = ?, venue = ?, volume = ?, issue = ?,
		pages = ?, doi = ?, abstract = ?, url = ?, keywords = ?,
		subject_area = ?, citation_count = ?, event_date = ?,
		event_location = ?, abstract_number = ?, status = ?,
		owner_position = ?, project_area = ?, updated_at = ?
		WHERE id = ?`,
		string(e.Category), e.Title, nullInt(e.Year), nullStr(e.Venue),
		nullStr(e.Volume), nullStr(e.Issue), nullStr(e.Pages), nullStr(e.DOI),
		nullStr(e.Abstract), nullStr(e.URL), nullStr(e.Keywords), nullStr(e.SubjectArea),
		nullIntPtr(e.CitationCount), nullStr(e.EventDate), nullStr(e.EventLocation),
		nullStr(e.AbstractNumber), nullStr(e.Status), nullInt(e.OwnerPosition),
		nullStr(e.ProjectArea), now.Format(time.RFC3339), e.ID)
	if err != nil {
		return false, fmt.Errorf("updating entry %d: %w", e.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetOwnerPosition patches just the owner-position column.
func (s *Store) SetOwnerPosition(entryID int64, position int) error {
	_, err := s.db.Exec(
		"UPDATE entries SET owner_position = ?, updated_at = ? WHERE id = ?",
		nullInt(position), time.Now().UTC().Format(time.RFC3339), entryID)
	if err != nil {
		return fmt.Errorf("setting owner position on entry %d: %w", entryID, err)
	}
	return nil
}

// GetEntry returns the entry with the given id, or nil.
func (s *Store) GetEntry(id int64) (*Entry, error) {
	return s.queryOne("SELECT "+entryColumns+" FROM entries WHERE id = ?", id)
}

// ListEntries returns entries, optionally filtered by category and/or
// project area, newest year first.
func (s *Store) ListEntries(category citation.Category, projectArea string) ([]*Entry, error) {
	query := "SELECT " + entryColumns + " FROM entries"
	var conds []string
	var args []any
	if category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(category))
	}
	if projectArea != "" {
		conds = append(conds, "project_area = ?")
		args = append(args, projectArea)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY year DESC, id DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteEntry removes an entry; its author links cascade. Returns false
// when no row had that id.
func (s *Store) DeleteEntry(id int64) (bool, error) {
	res, err := s.db.Exec("DELETE FROM entries WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("deleting entry %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindOrCreateAuthor reuses an author by exact name or creates one.
func (s *Store) FindOrCreateAuthor(name string, isOwner bool) (int64, error) {
	var id int64
	err := s.db.QueryRow("SELECT id FROM authors WHERE name = ?", name).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("looking up author %q: %w", name, err)
	}

	res, err := s.db.Exec("INSERT INTO authors (name, is_owner) VALUES (?, ?)",
		name, boolInt(isOwner))
	if err != nil {
		return 0, fmt.Errorf("creating author %q: %w", name, err)
	}
	return res.LastInsertId()
}

// GetAuthorByName returns the author with the exact name, or nil.
func (s *Store) GetAuthorByName(name string) (*Author, error) {
	var a Author
	var isOwner int
	err := s.db.QueryRow("SELECT id, name, is_owner FROM authors WHERE name = ?", name).
		Scan(&a.ID, &a.Name, &isOwner)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up author %q: %w", name, err)
	}
	a.IsOwner = isOwner != 0
	return &a, nil
}

// LinkAuthor attaches an author to an entry at a position. Re-linking an
// already-linked pair replaces the old link, so a record that lists the
// same name twice keeps the later position and flags.
func (s *Store) LinkAuthor(entryID, authorID int64, position int, isFirst, isCorresponding bool) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO entry_authors
		(entry_id, author_id, position, is_first_author, is_corresponding)
		VALUES (?, ?, ?, ?, ?)`,
		entryID, authorID, position, boolInt(isFirst), boolInt(isCorresponding))
	if err != nil {
		return fmt.Errorf("linking author %d to entry %d: %w", authorID, entryID, err)
	}
	return nil
}

// EntryAuthors returns an entry's authors in position order.
func (s *Store) EntryAuthors(entryID int64) ([]LinkedAuthor, error) {
	rows, err := s.db.Query(`SELECT a.id, a.name, a.is_owner,
		ea.position, ea.is_first_author, ea.is_corresponding
		FROM entry_authors ea
		JOIN authors a ON a.id = ea.author_id
		WHERE ea.entry_id = ?
		ORDER BY ea.position`, entryID)
	if err != nil {
		return nil, fmt.Errorf("loading authors for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	var out []LinkedAuthor
	for rows.Next() {
		var la LinkedAuthor
		var isOwner, isFirst, isCorr int
		if err := rows.Scan(&la.ID, &la.Name, &isOwner, &la.Position, &isFirst, &isCorr); err != nil {
			return nil, err
		}
		la.IsOwner = isOwner != 0
		la.IsFirstAuthor = isFirst != 0
		la.IsCorresponding = isCorr != 0
		out = append(out, la)
	}
	return out, rows.Err()
}

// ListAuthors returns all authors with their entry counts, most-linked first.
func (s *Store) ListAuthors() ([]Author, error) {
	rows, err := s.db.Query(`SELECT a.id, a.name, a.is_owner, COUNT(ea.entry_id)
		FROM authors a
		LEFT JOIN entry_authors ea ON ea.author_id = a.id
		GROUP BY a.id
		ORDER BY COUNT(ea.entry_id) DESC, a.name`)
	if err != nil {
		return nil, fmt.Errorf("listing authors: %w", err)
	}
	defer rows.Close()

	var out []Author
	for rows.Next() {
		var a Author
		var isOwner int
		if err := rows.Scan(&a.ID, &a.Name, &isOwner, &a.EntryCount); err != nil {
			return nil, err
		}
		a.IsOwner = isOwner != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

// EntriesByAuthor returns every entry linked to the named author,
// newest year first.
func (s *Store) EntriesByAuthor(name string) ([]*Entry, error) {
	rows, err := s.db.Query("SELECT "+qualifiedEntryColumns+` FROM entries e
		JOIN entry_authors ea ON ea.entry_id = e.id
		JOIN authors a ON a.id = ea.author_id
		WHERE a.name = ?
		ORDER BY e.year DESC, e.id DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("listing entries for author %q: %w", name, err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// CountEntries returns the total number of entries.
func (s *Store) CountEntries() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n)
	return n, err
}

// CountEntryAuthors returns the number of author links for an entry.
func (s *Store) CountEntryAuthors(entryID int64) (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM entry_authors WHERE entry_id = ?", entryID).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) queryOne(query string, args ...any) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRow(query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func scanEntry(row rowScanner) (*Entry, error) {
	var e Entry
	var category string
	var year, citationCount, ownerPos sql.NullInt64
	var venue, volume, issue, pages, doi sql.NullString
	var abstract, url, keywords, subjectArea sql.NullString
	var eventDate, eventLocation, abstractNumber, status, projectArea sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&e.ID, &category, &e.Title, &year, &venue, &volume, &issue,
		&pages, &doi, &abstract, &url, &keywords, &subjectArea, &citationCount,
		&eventDate, &eventLocation, &abstractNumber, &status, &ownerPos,
		&projectArea, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	e.Category = citation.Category(category)
	e.Year = int(year.Int64)
	e.Venue = venue.String
	e.Volume = volume.String
	e.Issue = issue.String
	e.Pages = pages.String
	e.DOI = doi.String
	e.Abstract = abstract.String
	e.URL = url.String
	e.Keywords = keywords.String
	e.SubjectArea = subjectArea.String
	if citationCount.Valid {
		c := int(citationCount.Int64)
		e.CitationCount = &c
	}
	e.EventDate = eventDate.String
	e.EventLocation = eventLocation.String
	e.AbstractNumber = abstractNumber.String
	e.Status = status.String
	e.OwnerPosition = int(ownerPos.Int64)
	e.ProjectArea = projectArea.String

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		e.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
		e.UpdatedAt = t
	}
	return &e, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullIntPtr(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
