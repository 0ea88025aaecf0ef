// Package crossref looks up work metadata by DOI against the Crossref
// REST API. It is the registry-lookup stage of the fusion pipeline and
// the sole source of enrichment fields when a DOI is known.
package crossref

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/doi"
)

const (
	// BaseURL is the Crossref REST API base URL.
	BaseURL = "https://api.crossref.org"

	// DefaultTimeout is the first-attempt request timeout; a transient
	// timeout is retried once with double this budget.
	DefaultTimeout = 30 * time.Second

	// RateLimit keeps us inside Crossref's polite-pool expectations.
	RateLimit = 5.0
)

// Client is a rate-limited HTTP client for the Crossref works API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	timeout    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithMailto sets the polite-pool contact address sent with each request.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// WithTimeout sets the first-attempt timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// NewClient creates a Crossref client. Redirect following is disabled so
// the DOI-moved case can be handled explicitly: Crossref answers a lookup
// of a superseded DOI with a 301 whose Location names the current one.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		limiter: rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL: BaseURL,
		timeout: DefaultTimeout,
	}

	if addr := os.Getenv("CROSSREF_MAILTO"); addr != "" {
		c.mailto = addr
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	return c
}

// worksResponse is the envelope Crossref wraps every works answer in.
type worksResponse struct {
	Message message `json:"message"`
}

type message struct {
	Title               []string       `json:"title"`
	Author              []contributor  `json:"author"`
	ContainerTitle      []string       `json:"container-title"`
	PublishedPrint      datePartsField `json:"published-print"`
	PublishedOnline     datePartsField `json:"published-online"`
	Issued              datePartsField `json:"issued"`
	Volume              string         `json:"volume"`
	Issue               string         `json:"issue"`
	Page                string         `json:"page"`
	Abstract            string         `json:"abstract"`
	URL                 string         `json:"URL"`
	Subject             []string       `json:"subject"`
	IsReferencedByCount *int           `json:"is-referenced-by-count"`
}

type contributor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type datePartsField struct {
	DateParts [][]int `json:"date-parts"`
}

func (d datePartsField) year() int {
	if len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

var (
	redirectDOIPattern = regexp.MustCompile(`/works/(.+)$`)
	htmlTagPattern     = regexp.MustCompile(`<[^>]+>`)
)

// Lookup fetches metadata for a DOI. Retry policy: a 301 redirect carries
// a corrected DOI in its Location and is followed once by re-querying with
// that DOI; a timeout is retried once with a doubled budget. A missing DOI
// is (nil, nil), not an error.
func (c *Client) Lookup(ctx context.Context, rawDOI string) (*citation.Metadata, error) {
	cleanDOI := doi.Clean(rawDOI)
	if cleanDOI == "" {
		return nil, nil
	}

	timeout := c.timeout
	redirected := false

	for attempt := 0; attempt < 2; attempt++ {
		meta, newDOI, err := c.lookupOnce(ctx, cleanDOI, timeout)
		switch {
		case err == nil:
			return meta, nil
		case errors.Is(err, errMoved):
			if redirected || newDOI == "" || newDOI == cleanDOI {
				return nil, nil
			}
			cleanDOI = newDOI
			redirected = true
			attempt--
		case isTimeout(err):
			timeout *= 2
		case IsNotFound(err):
			return nil, nil
		default:
			return nil, err
		}
	}
	return nil, nil
}

var errMoved = errors.New("crossref: DOI moved")

func (c *Client) lookupOnce(ctx context.Context, cleanDOI string, timeout time.Duration) (*citation.Metadata, string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/works/%s", c.baseURL, url.PathEscape(cleanDOI))
	if c.mailto != "" {
		endpoint += "?mailto=" + url.QueryEscape(c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("building Crossref request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("calling Crossref: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// decoded below
	case http.StatusMovedPermanently, http.StatusPermanentRedirect:
		loc := resp.Header.Get("Location")
		if m := redirectDOIPattern.FindStringSubmatch(loc); m != nil {
			if unescaped, uerr := url.PathUnescape(m[1]); uerr == nil {
				return nil, unescaped, errMoved
			}
			return nil, m[1], errMoved
		}
		return nil, "", errMoved
	case http.StatusNotFound:
		return nil, "", &APIError{StatusCode: resp.StatusCode, DOI: cleanDOI, Message: "DOI not found"}
	case http.StatusTooManyRequests:
		return nil, "", &APIError{StatusCode: resp.StatusCode, DOI: cleanDOI, Message: "rate limited"}
	default:
		return nil, "", &APIError{StatusCode: resp.StatusCode, DOI: cleanDOI, Message: "unexpected status"}
	}

	var envelope worksResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("decoding Crossref response: %w", err)
	}

	return toMetadata(&envelope.Message, cleanDOI), "", nil
}

// toMetadata flattens a works message into the pipeline's metadata shape.
func toMetadata(msg *message, cleanDOI string) *citation.Metadata {
	meta := &citation.Metadata{
		DOI:    cleanDOI,
		Volume: msg.Volume,
		Issue:  msg.Issue,
		Pages:  msg.Page,
		URL:    msg.URL,
	}

	if len(msg.Title) > 0 {
		meta.Title = msg.Title[0]
	}
	if len(msg.ContainerTitle) > 0 {
		meta.Venue = msg.ContainerTitle[0]
	}

	for _, a := range msg.Author {
		if a.Family == "" {
			continue
		}
		if a.Given != "" {
			meta.Authors = append(meta.Authors, a.Family+", "+a.Given)
		} else {
			meta.Authors = append(meta.Authors, a.Family)
		}
	}

	// Print date preferred over online over issued, matching how Crossref
	// records republished works.
	for _, d := range []datePartsField{msg.PublishedPrint, msg.PublishedOnline, msg.Issued} {
		if y := d.year(); y != 0 {
			meta.Year = y
			break
		}
	}

	// Abstracts arrive as JATS XML fragments; strip markup to plain text.
	if msg.Abstract != "" {
		meta.Abstract = strings.TrimSpace(htmlTagPattern.ReplaceAllString(msg.Abstract, ""))
	}

	if len(msg.Subject) > 0 {
		meta.Keywords = strings.Join(msg.Subject, ", ")
		meta.SubjectArea = msg.Subject[0]
	}

	meta.CitationCount = msg.IsReferencedByCount
	return meta
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
