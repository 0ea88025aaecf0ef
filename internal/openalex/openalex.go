// Package openalex searches the OpenAlex catalog by title. It is the
// fuzzy-search stage of the fusion pipeline: useful when no DOI exists,
// expected to miss often, and never trusted over the registry lookup.
package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/doi"
)

const (
	// BaseURL is the OpenAlex API base URL.
	BaseURL = "https://api.openalex.org"

	// DefaultTimeout is the request timeout.
	DefaultTimeout = 20 * time.Second

	// RateLimit stays inside OpenAlex's 10 req/s polite-pool ceiling.
	RateLimit = 10.0

	// MinTitleLength is the shortest title worth searching for; anything
	// shorter matches too much to be useful.
	MinTitleLength = 10

	// maxQueryLength caps the search phrase; very long titles trip the
	// query parser on the server side.
	maxQueryLength = 200

	// maxKeywordConcepts is how many tagged concepts become keywords.
	maxKeywordConcepts = 5
)

// Client is a rate-limited HTTP client for the OpenAlex works API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL (for testing).
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

// WithMailto sets the polite-pool contact address sent with each request.
func WithMailto(addr string) ClientOption {
	return func(c *Client) {
		c.mailto = addr
	}
}

// NewClient creates an OpenAlex client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:    BaseURL,
	}

	if addr := os.Getenv("OPENALEX_MAILTO"); addr != "" {
		c.mailto = addr
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

type searchResponse struct {
	Results []work `json:"results"`
}

type work struct {
	Title           string       `json:"title"`
	PublicationYear int          `json:"publication_year"`
	DOI             string       `json:"doi"`
	CitedByCount    *int         `json:"cited_by_count"`
	Authorships     []authorship `json:"authorships"`
	PrimaryLocation struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	OpenAccess struct {
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
	Concepts []concept `json:"concepts"`
	Biblio   struct {
		Volume    string `json:"volume"`
		Issue     string `json:"issue"`
		FirstPage string `json:"first_page"`
		LastPage  string `json:"last_page"`
	} `json:"biblio"`
}

type authorship struct {
	Author struct {
		DisplayName string `json:"display_name"`
	} `json:"author"`
}

type concept struct {
	DisplayName string `json:"display_name"`
}

// Search looks a work up by title phrase. No results, a rejected query, or
// a too-short title all yield (nil, nil); misses are routine here. Only
// transport-level failures surface as errors, for the caller to log.
func (c *Client) Search(ctx context.Context, title string) (*citation.Metadata, error) {
	title = strings.TrimSpace(title)
	if len(title) <= MinTitleLength {
		return nil, nil
	}
	if len(title) > maxQueryLength {
		title = title[:maxQueryLength]
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{
		"search":   {title},
		"per-page": {"1"},
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building OpenAlex request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling OpenAlex: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// decoded below
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusForbidden:
		// Malformed-query rejections are expected for odd titles.
		return nil, nil
	default:
		return nil, fmt.Errorf("OpenAlex returned status %d", resp.StatusCode)
	}

	var envelope searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decoding OpenAlex response: %w", err)
	}
	if len(envelope.Results) == 0 {
		return nil, nil
	}

	return toMetadata(&envelope.Results[0]), nil
}

func toMetadata(w *work) *citation.Metadata {
	meta := &citation.Metadata{
		Title:         w.Title,
		Year:          w.PublicationYear,
		Venue:         w.PrimaryLocation.Source.DisplayName,
		DOI:           doi.Clean(w.DOI),
		URL:           w.OpenAccess.OAURL,
		CitationCount: w.CitedByCount,
		Volume:        w.Biblio.Volume,
		Issue:         w.Biblio.Issue,
	}

	if w.Biblio.FirstPage != "" {
		meta.Pages = w.Biblio.FirstPage
		if w.Biblio.LastPage != "" && w.Biblio.LastPage != w.Biblio.FirstPage {
			meta.Pages += "-" + w.Biblio.LastPage
		}
	}

	for _, a := range w.Authorships {
		if a.Author.DisplayName != "" {
			meta.Authors = append(meta.Authors, a.Author.DisplayName)
		}
	}

	var names []string
	for i, con := range w.Concepts {
		if i == maxKeywordConcepts {
			break
		}
		if con.DisplayName != "" {
			names = append(names, con.DisplayName)
		}
	}
	meta.Keywords = strings.Join(names, ", ")

	return meta
}
