// Package doi extracts and canonicalizes Digital Object Identifiers.
//
// The canonical form carries no URL scheme, host, or "doi:" prefix:
// "10.1093/jbi/wbae089", never "https://doi.org/10.1093/jbi/wbae089".
package doi

import (
	"regexp"
	"strings"
)

var (
	prefixPattern = regexp.MustCompile(`(?i)doi:\s*([^\s)]+)`)
	urlPattern    = regexp.MustCompile(`(?i)https?://(?:dx\.)?doi\.org/([^\s)]+)`)
)

// ExtractFromText returns the first DOI found in free text, matching either
// a literal "doi:" token or a doi.org URL. Returns "" when no DOI is present.
func ExtractFromText(text string) string {
	if m := prefixPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := urlPattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// ExtractFromURL returns the DOI suffix of a doi.org URL, or "" when the
// URL does not resolve through the DOI system.
func ExtractFromURL(url string) string {
	if url == "" {
		return ""
	}
	if m := urlPattern.FindStringSubmatch(url); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// Clean strips URL and "doi:" prefixes from an identifier. Idempotent:
// an already-clean DOI is returned unchanged.
func Clean(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi.org/",
	} {
		if strings.HasPrefix(strings.ToLower(id), prefix) {
			id = id[len(prefix):]
		}
	}
	if len(id) >= 4 && strings.EqualFold(id[:4], "doi:") {
		id = id[4:]
	}
	return strings.TrimSpace(id)
}
