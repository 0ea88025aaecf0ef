// Package grobid parses free-form citation strings against a GROBID server.
// GROBID is the most reliable of the three extraction strategies but needs
// a running server, so the client exposes an availability probe and callers
// treat an absent server as "strategy unavailable".
package grobid

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anumlab/bibdb/internal/citation"
)

const (
	// DefaultBaseURL is the conventional GROBID server address.
	DefaultBaseURL = "http://localhost:8070"

	// DefaultTimeout covers citation processing; consolidation can be slow.
	DefaultTimeout = 30 * time.Second

	// ProbeTimeout bounds the isalive check so startup stays snappy when
	// no server is running.
	ProbeTimeout = 2 * time.Second
)

// Client talks to a GROBID server's citation-processing API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom server URL.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a GROBID client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the server answers its isalive endpoint.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/isalive", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// TEI response shapes. GROBID answers processCitation with a biblStruct;
// unqualified field names match with or without the TEI namespace.
type biblStruct struct {
	Analytic struct {
		Titles  []teiTitle  `xml:"title"`
		Authors []teiAuthor `xml:"author"`
		IDNOs   []teiIDNO   `xml:"idno"`
	} `xml:"analytic"`
	Monogr struct {
		Titles  []teiTitle  `xml:"title"`
		Authors []teiAuthor `xml:"author"`
		IDNOs   []teiIDNO   `xml:"idno"`
		Imprint struct {
			Date       teiDate        `xml:"date"`
			BiblScopes []teiBiblScope `xml:"biblScope"`
			Publisher  string         `xml:"publisher"`
		} `xml:"imprint"`
	} `xml:"monogr"`
}

type teiTitle struct {
	Level string `xml:"level,attr"`
	Value string `xml:",chardata"`
}

type teiAuthor struct {
	PersName struct {
		Forenames []string `xml:"forename"`
		Surname   string   `xml:"surname"`
	} `xml:"persName"`
}

type teiIDNO struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type teiDate struct {
	When  string `xml:"when,attr"`
	Value string `xml:",chardata"`
}

type teiBiblScope struct {
	Unit  string `xml:"unit,attr"`
	Value string `xml:",chardata"`
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// Parse submits one citation string for structured extraction. A response
// without a usable title yields (nil, nil): the caller falls through to the
// next strategy.
func (c *Client) Parse(ctx context.Context, citationText string) (*citation.Metadata, error) {
	form := url.Values{"citations": {citationText}}
	endpoint := c.baseURL + "/api/processCitation?consolidateCitations=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building GROBID request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling GROBID: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GROBID returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading GROBID response: %w", err)
	}

	var bibl biblStruct
	if err := xml.Unmarshal(body, &bibl); err != nil {
		return nil, fmt.Errorf("decoding TEI response: %w", err)
	}

	meta := extract(&bibl)
	if meta == nil {
		return nil, nil
	}
	fixChapterTitle(meta, citationText)
	if meta.Title == "" {
		return nil, nil
	}
	return meta, nil
}

// extract maps the TEI biblStruct onto a flat metadata record. Analytic
// title (level "a") is the work title; the monograph title is the venue,
// journal level "j" preferred over book level "m".
func extract(bibl *biblStruct) *citation.Metadata {
	meta := &citation.Metadata{}

	for _, t := range bibl.Analytic.Titles {
		if t.Level == "a" && strings.TrimSpace(t.Value) != "" {
			meta.Title = strings.TrimSpace(t.Value)
			break
		}
	}

	var bookTitle string
	for _, t := range bibl.Monogr.Titles {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			continue
		}
		switch t.Level {
		case "j":
			meta.Venue = v
		case "m":
			bookTitle = v
		}
	}
	if meta.Venue == "" {
		meta.Venue = bookTitle
	}

	authors := bibl.Analytic.Authors
	if len(authors) == 0 {
		authors = bibl.Monogr.Authors
	}
	for _, a := range authors {
		surname := strings.TrimSpace(a.PersName.Surname)
		if surname == "" {
			continue
		}
		given := strings.TrimSpace(strings.Join(a.PersName.Forenames, " "))
		if given != "" {
			meta.Authors = append(meta.Authors, surname+", "+given)
		} else {
			meta.Authors = append(meta.Authors, surname)
		}
	}

	date := bibl.Monogr.Imprint.Date
	if len(date.When) >= 4 {
		if y, err := strconv.Atoi(date.When[:4]); err == nil {
			meta.Year = y
		}
	}
	if meta.Year == 0 && date.Value != "" {
		if m := yearPattern.FindString(date.Value); m != "" {
			meta.Year, _ = strconv.Atoi(m)
		}
	}

	for _, scope := range bibl.Monogr.Imprint.BiblScopes {
		v := strings.TrimSpace(scope.Value)
		switch scope.Unit {
		case "volume":
			meta.Volume = v
		case "issue":
			meta.Issue = v
		case "page":
			meta.Pages = v
		}
	}

	idnos := append(bibl.Analytic.IDNOs, bibl.Monogr.IDNOs...)
	for _, id := range idnos {
		if strings.EqualFold(id.Type, "DOI") && strings.TrimSpace(id.Value) != "" {
			meta.DOI = strings.TrimSpace(id.Value)
			break
		}
	}

	if meta.Title == "" && len(meta.Authors) == 0 {
		return nil
	}
	return meta
}

var bookVenuePattern = regexp.MustCompile(`^([^(]+)`)

// fixChapterTitle repairs a common GROBID misread of book chapters, where
// the returned title begins with "in " and is really the book reference.
// The chapter title is the clause before " in " in the raw citation; the
// book title follows it up to the publisher parenthesis.
func fixChapterTitle(meta *citation.Metadata, citationText string) {
	if meta.Title == "" || !strings.HasPrefix(strings.ToLower(meta.Title), "in ") {
		return
	}

	inPos := strings.Index(strings.ToLower(citationText), " in ")
	if inPos <= 0 {
		return
	}

	var parts []string
	for _, p := range strings.Split(citationText[:inPos], ".") {
		p = strings.TrimSpace(p)
		if len(p) > 5 {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return
	}

	chapterTitle := parts[len(parts)-1]
	if len(strings.Fields(chapterTitle)) < 3 {
		return
	}

	meta.Title = chapterTitle
	afterIn := strings.TrimSpace(citationText[inPos+4:])
	if m := bookVenuePattern.FindStringSubmatch(afterIn); m != nil {
		if book := strings.TrimSpace(m[1]); book != "" {
			meta.Venue = book
		}
	}
}
