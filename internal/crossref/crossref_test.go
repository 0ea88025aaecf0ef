package crossref

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

const worksJSON = `{
	"message": {
		"title": ["Quantitative imaging of treatment response"],
		"author": [
			{"family": "Smith", "given": "Jane"},
			{"family": "Doe", "given": "A."}
		],
		"container-title": ["Journal of Testing"],
		"published-print": {"date-parts": [[2021, 3]]},
		"volume": "12",
		"issue": "3",
		"page": "345-360",
		"abstract": "<jats:p>We measured <jats:italic>things</jats:italic>.</jats:p>",
		"URL": "http://dx.doi.org/10.1/abc",
		"subject": ["Radiology", "Oncology"],
		"is-referenced-by-count": 42
	}
}`

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/works/10.1/abc" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(worksJSON))
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	meta, err := client.Lookup(context.Background(), "https://doi.org/10.1/abc")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil {
		t.Fatal("Lookup returned nil metadata")
	}

	if meta.Title != "Quantitative imaging of treatment response" {
		t.Errorf("Title = %q", meta.Title)
	}
	if meta.Venue != "Journal of Testing" {
		t.Errorf("Venue = %q", meta.Venue)
	}
	if meta.Year != 2021 {
		t.Errorf("Year = %d, want 2021", meta.Year)
	}
	if meta.Volume != "12" || meta.Issue != "3" || meta.Pages != "345-360" {
		t.Errorf("locus = %q/%q/%q", meta.Volume, meta.Issue, meta.Pages)
	}
	if meta.DOI != "10.1/abc" {
		t.Errorf("DOI = %q, want cleaned form", meta.DOI)
	}
	if meta.Abstract != "We measured things." {
		t.Errorf("Abstract = %q, want markup stripped", meta.Abstract)
	}
	if meta.Keywords != "Radiology, Oncology" {
		t.Errorf("Keywords = %q", meta.Keywords)
	}
	if meta.SubjectArea != "Radiology" {
		t.Errorf("SubjectArea = %q", meta.SubjectArea)
	}
	if meta.CitationCount == nil || *meta.CitationCount != 42 {
		t.Errorf("CitationCount = %v, want 42", meta.CitationCount)
	}
	if len(meta.Authors) != 2 || meta.Authors[0] != "Smith, Jane" {
		t.Errorf("Authors = %v", meta.Authors)
	}
}

func TestLookup_RedirectToCorrectedDOI(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/works/10.1/old":
			w.Header().Set("Location", srv.URL+"/works/10.1/new")
			w.WriteHeader(http.StatusMovedPermanently)
		case "/works/10.1/new":
			resp := worksResponse{Message: message{Title: []string{"Corrected record"}}}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	meta, err := client.Lookup(context.Background(), "10.1/old")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta == nil {
		t.Fatal("Lookup returned nil after redirect")
	}
	if meta.Title != "Corrected record" {
		t.Errorf("Title = %q, want result from corrected DOI", meta.Title)
	}
	if meta.DOI != "10.1/new" {
		t.Errorf("DOI = %q, want corrected 10.1/new", meta.DOI)
	}
}

func TestLookup_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(WithBaseURL(srv.URL))
	meta, err := client.Lookup(context.Background(), "10.1/missing")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if meta != nil {
		t.Errorf("expected nil metadata for unknown DOI, got %+v", meta)
	}
}

func TestLookup_EmptyDOI(t *testing.T) {
	client := NewClient()
	meta, err := client.Lookup(context.Background(), "")
	if err != nil || meta != nil {
		t.Errorf("Lookup(\"\") = (%v, %v), want (nil, nil)", meta, err)
	}
}

func TestAPIErrorHelpers(t *testing.T) {
	notFound := &APIError{StatusCode: 404, Message: "gone"}
	if !IsNotFound(notFound) {
		t.Error("IsNotFound(404) = false")
	}
	if IsRateLimited(notFound) {
		t.Error("IsRateLimited(404) = true")
	}
	limited := &APIError{StatusCode: 429, Message: "slow down"}
	if !IsRateLimited(limited) {
		t.Error("IsRateLimited(429) = false")
	}
}
