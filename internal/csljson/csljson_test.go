package csljson

import (
	"encoding/json"
	"testing"

	"github.com/anumlab/bibdb/internal/citation"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string", `"12"`, "12"},
		{"integer", `12`, "12"},
		{"float", `4.5`, "4.5"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("unmarshal %s: %v", tt.input, err)
			}
			if f.String() != tt.want {
				t.Errorf("got %q, want %q", f.String(), tt.want)
			}
		})
	}
}

func TestStringList(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`"Radiology"`), &l); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if l.First() != "Radiology" {
		t.Errorf("First() = %q, want Radiology", l.First())
	}

	var l2 StringList
	if err := json.Unmarshal([]byte(`["One", "Two"]`), &l2); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(l2) != 2 || l2.First() != "One" {
		t.Errorf("got %v, want [One Two]", l2)
	}
}

func TestParseItem_JournalArticle(t *testing.T) {
	data := []byte(`{
		"type": "article-journal",
		"title": "Quantitative imaging of treatment response",
		"author": [
			{"family": "Smith", "given": "Jane"},
			{"family": "Doe", "given": "A."}
		],
		"issued": {"date-parts": [[2021, 3]]},
		"container-title": "Journal of Testing",
		"volume": 12,
		"issue": "3",
		"page": "345-360",
		"DOI": "https://doi.org/10.1/abc",
		"abstract": "We measured things.",
		"URL": "https://example.org/paper",
		"keyword": ["MRI", "DCE"],
		"subject": ["Radiology"]
	}`)

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}

	rec := ParseItem(&item)
	if rec == nil {
		t.Fatal("ParseItem returned nil")
	}
	if rec.Category != citation.Publication {
		t.Errorf("Category = %q, want publication", rec.Category)
	}
	if rec.Title != "Quantitative imaging of treatment response" {
		t.Errorf("Title = %q", rec.Title)
	}
	wantAuthors := []string{"Smith, Jane", "Doe, A."}
	if len(rec.Authors) != len(wantAuthors) {
		t.Fatalf("Authors = %v, want %v", rec.Authors, wantAuthors)
	}
	for i, a := range wantAuthors {
		if rec.Authors[i] != a {
			t.Errorf("Authors[%d] = %q, want %q", i, rec.Authors[i], a)
		}
	}
	if rec.Year != 2021 {
		t.Errorf("Year = %d, want 2021", rec.Year)
	}
	if rec.Venue != "Journal of Testing" {
		t.Errorf("Venue = %q", rec.Venue)
	}
	if rec.Volume != "12" || rec.Issue != "3" || rec.Pages != "345-360" {
		t.Errorf("locus = %q/%q/%q", rec.Volume, rec.Issue, rec.Pages)
	}
	if rec.DOI != "10.1/abc" {
		t.Errorf("DOI = %q, want cleaned 10.1/abc", rec.DOI)
	}
	if rec.Keywords != "MRI, DCE" {
		t.Errorf("Keywords = %q", rec.Keywords)
	}
	if rec.SubjectArea != "Radiology" {
		t.Errorf("SubjectArea = %q", rec.SubjectArea)
	}
}

func TestParseItem_YearFallback(t *testing.T) {
	item := &Item{Title: "Some work without issued date", Year: "2019"}
	rec := ParseItem(item)
	if rec == nil {
		t.Fatal("ParseItem returned nil")
	}
	if rec.Year != 2019 {
		t.Errorf("Year = %d, want 2019", rec.Year)
	}
}

func TestParseItem_NoTitle(t *testing.T) {
	item := &Item{Type: "article-journal"}
	if rec := ParseItem(item); rec != nil {
		t.Errorf("expected nil for item without title, got %+v", rec)
	}
}

func TestParseItem_PosterAbstractNumberFromNote(t *testing.T) {
	data := []byte(`{
		"type": "poster",
		"title": "Early biomarkers of tumor response",
		"event": "Annual Imaging Symposium",
		"event-date": {"date-parts": [[2023, 10]]},
		"event-place": "Seattle, WA",
		"note": "Presented as Abstract #4521"
	}`)

	var item Item
	if err := json.Unmarshal(data, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}

	rec := ParseItem(&item)
	if rec == nil {
		t.Fatal("ParseItem returned nil")
	}
	if rec.Category != citation.PosterAbstract {
		t.Errorf("Category = %q, want poster_abstract", rec.Category)
	}
	if rec.Venue != "Annual Imaging Symposium" {
		t.Errorf("Venue = %q", rec.Venue)
	}
	if rec.EventDate != "October 2023" {
		t.Errorf("EventDate = %q, want October 2023", rec.EventDate)
	}
	if rec.EventLocation != "Seattle, WA" {
		t.Errorf("EventLocation = %q", rec.EventLocation)
	}
	if rec.AbstractNumber != "4521" {
		t.Errorf("AbstractNumber = %q, want 4521", rec.AbstractNumber)
	}
}

func TestParseItem_PatentStatus(t *testing.T) {
	item := &Item{
		Title:  "Method for quantitative image registration",
		Type:   "patent",
		Status: "pending",
	}
	rec := ParseItem(item)
	if rec == nil {
		t.Fatal("ParseItem returned nil")
	}
	if rec.Category != citation.Patent {
		t.Errorf("Category = %q, want patent", rec.Category)
	}
	if rec.Status != "pending" {
		t.Errorf("Status = %q, want pending", rec.Status)
	}
}

func TestParse_ArrayAndSingle(t *testing.T) {
	array := []byte(`[
		{"title": "First item", "type": "article-journal"},
		{"type": "article-journal"},
		{"title": "Second item", "type": "chapter"}
	]`)
	recs := Parse(array)
	if len(recs) != 2 {
		t.Fatalf("Parse(array) returned %d records, want 2 (untitled skipped)", len(recs))
	}
	if recs[1].Category != citation.BookChapter {
		t.Errorf("Category = %q, want book_chapter", recs[1].Category)
	}

	single := []byte(`{"title": "Lone item"}`)
	recs = Parse(single)
	if len(recs) != 1 || recs[0].Title != "Lone item" {
		t.Fatalf("Parse(single) = %+v, want one record", recs)
	}

	if recs := Parse([]byte(`not json`)); recs != nil {
		t.Errorf("Parse(garbage) = %+v, want nil", recs)
	}
}
