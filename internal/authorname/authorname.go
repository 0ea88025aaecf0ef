// Package authorname provides author name normalization and owner-author
// detection for the bibliography pipeline.
package authorname

import (
	"regexp"
	"strings"
)

// DefaultOwnerAliases are the known spellings of the owner author's name.
// Matching is case-insensitive after normalization.
var DefaultOwnerAliases = []string{
	"Kazerouni, A. S.",
	"Kazerouni, A.S.",
	"Syed, A. K.",
	"Syed, A.K.",
	"Syed A. K.",
	"Syed A.K.",
}

var (
	asteriskRun   = regexp.MustCompile(`\*+`)
	whitespaceRun = regexp.MustCompile(`\s+`)
)

// Normalize strips co-first-author asterisk markers, trims the name, and
// collapses internal whitespace runs to single spaces.
func Normalize(raw string) string {
	name := asteriskRun.ReplaceAllString(raw, "")
	name = strings.TrimSpace(name)
	return whitespaceRun.ReplaceAllString(name, " ")
}

// Matcher tests names against a fixed alias list for the owner author.
type Matcher struct {
	normalized []string
}

// NewMatcher builds a Matcher from alias spellings. Each alias is itself
// normalized before comparison.
func NewMatcher(aliases []string) *Matcher {
	m := &Matcher{normalized: make([]string, 0, len(aliases))}
	for _, a := range aliases {
		if n := strings.ToLower(Normalize(a)); n != "" {
			m.normalized = append(m.normalized, n)
		}
	}
	return m
}

// Matches reports whether raw names the owner author.
func (m *Matcher) Matches(raw string) bool {
	name := strings.ToLower(Normalize(raw))
	for _, alias := range m.normalized {
		if name == alias {
			return true
		}
	}
	return false
}

var defaultMatcher = NewMatcher(DefaultOwnerAliases)

// IsOwner reports whether raw names the owner author under the default
// alias list. Marker- and case-insensitive.
func IsOwner(raw string) bool {
	return defaultMatcher.Matches(raw)
}
