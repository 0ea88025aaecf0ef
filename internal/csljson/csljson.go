// Package csljson imports CSL-JSON items (Zotero and other reference
// manager exports) into citation records. Extraction here is structural,
// not heuristic: fields map one-to-one from the interchange format.
package csljson

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/doi"
)

// FlexibleString unmarshals from either a string or a number JSON value.
// Reference manager exports are inconsistent about which one they emit.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

// StringList unmarshals from either a single string or an array of strings;
// CSL emits container-title and keyword both ways.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*l = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "" {
			*l = StringList{s}
		}
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = StringList(list)
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into StringList", string(data))
}

// First returns the first entry, or "".
func (l StringList) First() string {
	if len(l) == 0 {
		return ""
	}
	return l[0]
}

// Date is a CSL date field: {"date-parts": [[year, month, day]]}.
type Date struct {
	DateParts [][]int `json:"date-parts"`
}

// Year returns the year component, or 0.
func (d Date) Year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

// Month returns the month component, or 0.
func (d Date) Month() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) < 2 {
		return 0
	}
	return d.DateParts[0][1]
}

// Name is a CSL structured personal name.
type Name struct {
	Family string `json:"family"`
	Given  string `json:"given"`
}

// Item is a single CSL-JSON item with the fields this pipeline recognizes.
type Item struct {
	Title          string         `json:"title"`
	Author         []Name         `json:"author"`
	Type           string         `json:"type"`
	Issued         Date           `json:"issued"`
	Year           FlexibleString `json:"year"`
	ContainerTitle StringList     `json:"container-title"`
	Journal        string         `json:"journal"`
	Event          string         `json:"event"`
	Volume         FlexibleString `json:"volume"`
	Issue          FlexibleString `json:"issue"`
	Page           string         `json:"page"`
	Pages          string         `json:"pages"`
	DOI            string         `json:"DOI"`
	DOILower       string         `json:"doi"`
	Abstract       string         `json:"abstract"`
	URL            string         `json:"URL"`
	URLLower       string         `json:"url"`
	Keyword        StringList     `json:"keyword"`
	Subject        StringList     `json:"subject"`
	CitationCount  FlexibleString `json:"citation-count"`
	EventDate      Date           `json:"event-date"`
	EventPlace     string         `json:"event-place"`
	PublisherPlace string         `json:"publisher-place"`
	Status         string         `json:"status"`
	Number         FlexibleString `json:"number"`
	Note           string         `json:"note"`
}

// categoryByType maps the CSL type vocabulary onto entry categories.
// Unknown types default to publication.
var categoryByType = map[string]citation.Category{
	"article":         citation.Publication,
	"article-journal": citation.Publication,
	"paper-conference": citation.OralPresentation,
	"presentation":    citation.OralPresentation,
	"poster":          citation.PosterAbstract,
	"chapter":         citation.BookChapter,
	"patent":          citation.Patent,
	"book":            citation.Publication,
}

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var abstractNumberPattern = regexp.MustCompile(`(?i)(?:abstract|poster)[\s#:]*(\d+)`)

// ParseItem converts one CSL item into a citation record. Items without a
// title are rejected with nil; a batch caller skips them and continues.
func ParseItem(item *Item) *citation.Record {
	if item == nil || item.Title == "" {
		return nil
	}

	rec := &citation.Record{
		Category: mapCategory(item.Type),
		Title:    item.Title,
		Volume:   item.Volume.String(),
		Issue:    item.Issue.String(),
		Abstract: item.Abstract,
	}

	// Authors in list order, formatted "Family, Given". Normalization into
	// canonical names happens later, when records become persisted authors.
	for _, a := range item.Author {
		if a.Family == "" {
			continue
		}
		if a.Given != "" {
			rec.Authors = append(rec.Authors, a.Family+", "+a.Given)
		} else {
			rec.Authors = append(rec.Authors, a.Family)
		}
	}

	rec.Year = item.Issued.Year()
	if rec.Year == 0 && item.Year != "" {
		if y, err := strconv.Atoi(item.Year.String()); err == nil {
			rec.Year = y
		}
	}

	switch {
	case item.ContainerTitle.First() != "":
		rec.Venue = item.ContainerTitle.First()
	case item.Journal != "":
		rec.Venue = item.Journal
	case item.Event != "":
		rec.Venue = item.Event
	}

	rec.Pages = item.Page
	if rec.Pages == "" {
		rec.Pages = item.Pages
	}

	rawDOI := item.DOI
	if rawDOI == "" {
		rawDOI = item.DOILower
	}
	rec.DOI = doi.Clean(rawDOI)

	rec.URL = item.URL
	if rec.URL == "" {
		rec.URL = item.URLLower
	}

	rec.Keywords = strings.Join(item.Keyword, ", ")
	rec.SubjectArea = item.Subject.First()

	if item.CitationCount != "" {
		if n, err := strconv.Atoi(item.CitationCount.String()); err == nil {
			rec.CitationCount = &n
		}
	}

	rec.EventDate = formatEventDate(item.EventDate)
	rec.EventLocation = item.EventPlace
	if rec.EventLocation == "" {
		rec.EventLocation = item.PublisherPlace
	}

	if rec.Category == citation.Patent {
		rec.Status = item.Status
	}

	if rec.Category == citation.PosterAbstract || rec.Category == citation.OralPresentation {
		rec.AbstractNumber = item.Number.String()
		if rec.AbstractNumber == "" && item.Note != "" {
			if m := abstractNumberPattern.FindStringSubmatch(item.Note); m != nil {
				rec.AbstractNumber = m[1]
			}
		}
	}

	return rec
}

// Parse decodes a CSL-JSON payload holding a single item or an array of
// items. Items that fail to convert are skipped; a malformed top-level
// payload yields an empty result, not an error.
func Parse(data []byte) []*citation.Record {
	var items []*Item
	if err := json.Unmarshal(data, &items); err != nil {
		var single Item
		if err := json.Unmarshal(data, &single); err != nil {
			return nil
		}
		items = []*Item{&single}
	}

	var records []*citation.Record
	for _, item := range items {
		if rec := ParseItem(item); rec != nil {
			records = append(records, rec)
		}
	}
	return records
}

func mapCategory(cslType string) citation.Category {
	if c, ok := categoryByType[strings.ToLower(cslType)]; ok {
		return c
	}
	return citation.Publication
}

// formatEventDate renders an event date as "Month Year" when a valid month
// is present, else the bare year, else "".
func formatEventDate(d Date) string {
	year := d.Year()
	if year == 0 {
		return ""
	}
	month := d.Month()
	if month >= 1 && month <= 12 {
		return fmt.Sprintf("%s %d", monthNames[month-1], year)
	}
	return strconv.Itoa(year)
}
