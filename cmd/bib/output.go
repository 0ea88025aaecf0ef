package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/storage"
)

// ErrorResponse is the standard JSON error output
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is the standard JSON status output
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// outputJSON writes a value as JSON to stdout
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError writes an error as JSON to stderr and returns the exit code
func outputError(code int, format string, args ...interface{}) int {
	resp := ErrorResponse{Error: fmt.Sprintf(format, args...)}
	enc := json.NewEncoder(os.Stderr)
	enc.SetIndent("", "  ")
	_ = enc.Encode(resp)
	return code
}

// exitWithError outputs an error and exits
func exitWithError(code int, format string, args ...interface{}) {
	os.Exit(outputError(code, format, args...))
}

// entryResponse is the JSON shape for a single database entry.
type entryResponse struct {
	ID int64 `json:"id"`
	citation.Record
	Authors     []authorResponse `json:"authors,omitempty"`
	ProjectArea string           `json:"project_area,omitempty"`
	CreatedAt   string           `json:"created_at,omitempty"`
	UpdatedAt   string           `json:"updated_at,omitempty"`
}

type authorResponse struct {
	Name          string `json:"name"`
	Position      int    `json:"position"`
	IsFirstAuthor bool   `json:"is_first_author,omitempty"`
	IsOwner       bool   `json:"is_owner,omitempty"`
}

func newEntryResponse(e *storage.Entry, authors []storage.LinkedAuthor) entryResponse {
	resp := entryResponse{
		ID:          e.ID,
		Record:      e.Record,
		ProjectArea: e.ProjectArea,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	if !e.UpdatedAt.IsZero() {
		resp.UpdatedAt = e.UpdatedAt.Format(time.RFC3339)
	}
	for _, a := range authors {
		resp.Authors = append(resp.Authors, authorResponse{
			Name:          a.Name,
			Position:      a.Position,
			IsFirstAuthor: a.IsFirstAuthor,
			IsOwner:       a.IsOwner,
		})
	}
	return resp
}

// printEntryHuman writes a human-readable rendering of an entry.
func printEntryHuman(e *storage.Entry, authors []storage.LinkedAuthor) {
	fmt.Printf("[%d] %s\n", e.ID, e.Title)
	fmt.Printf("    Category: %s\n", e.Category)
	if len(authors) > 0 {
		names := make([]string, len(authors))
		for i, a := range authors {
			names[i] = a.Name
			if a.IsFirstAuthor {
				names[i] += "*"
			}
		}
		fmt.Printf("    Authors:  %s\n", strings.Join(names, "; "))
	} else if len(e.Authors) > 0 {
		fmt.Printf("    Authors:  %s\n", strings.Join(e.Authors, "; "))
	}
	if e.Venue != "" {
		fmt.Printf("    Venue:    %s\n", e.Venue)
	}
	if e.Year != 0 {
		fmt.Printf("    Year:     %d\n", e.Year)
	}
	if e.DOI != "" {
		fmt.Printf("    DOI:      %s\n", e.DOI)
	}
	if e.ProjectArea != "" {
		fmt.Printf("    Project:  %s\n", e.ProjectArea)
	}
	if e.CitationCount != nil {
		fmt.Printf("    Cited by: %d\n", *e.CitationCount)
	}
}

// truncateString shortens a string for table display
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
