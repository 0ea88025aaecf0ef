// Package freetext is the heuristic fallback parser for free-form citation
// strings. It is used when no structured or external source succeeds, so it
// never populates enrichment fields.
//
// Extraction is organized as an ordered set of independent rules per field;
// within a field the first rule that matches wins.
package freetext

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/anumlab/bibdb/internal/authorname"
	"github.com/anumlab/bibdb/internal/citation"
	"github.com/anumlab/bibdb/internal/doi"
)

// MinLength is the shortest citation string worth attempting. Anything
// shorter cannot yield a reliable title.
const MinLength = 20

// Parse extracts a structured record from a single citation string.
// It returns nil when the input is uninterpretable; that is the expected
// signal for "no parse", not an error condition.
func Parse(text string) *citation.Record {
	text = strings.TrimSpace(text)
	if len(text) < MinLength {
		return nil
	}
	if len(splitSegments(text)) < 2 {
		return nil
	}

	year := extractYear(text)
	id := doi.ExtractFromText(text)
	locus := extractLocus(text, year)

	block, rest := splitAuthorBlock(text)
	if block == "" {
		parts := splitSegments(text)
		block = parts[0]
		rest = strings.TrimSpace(text[strings.Index(text, ".")+1:])
	}
	authors, firstPos := parseAuthors(block)

	// Book chapters have their own sentence shape and carry the book title
	// as venue; volume/issue/venue refinement does not apply.
	if ch := matchBookChapter(text); ch != nil {
		return &citation.Record{
			Category:             citation.BookChapter,
			Title:                ch.title,
			Venue:                ch.book,
			Year:                 ch.year,
			DOI:                  id,
			Authors:              authors,
			FirstAuthorPositions: defaultFirstPositions(firstPos, authors),
		}
	}

	segments := splitSegments(rest)
	title, titleIdx := selectTitle(segments)
	if title == "" {
		return nil
	}

	venue := deriveVenue(segments, titleIdx)
	if venue == "" {
		venue = locus.venueHint
	}

	return &citation.Record{
		Title:                title,
		Authors:              authors,
		FirstAuthorPositions: defaultFirstPositions(firstPos, authors),
		Year:                 year,
		Venue:                venue,
		Volume:               locus.volume,
		Issue:                locus.issue,
		Pages:                locus.pages,
		DOI:                  id,
		EventDate:            extractEventDate(text),
		EventLocation:        extractLocation(text),
	}
}

var yearPattern = regexp.MustCompile(`\((\d{4})\)`)

func extractYear(text string) int {
	m := yearPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	y, _ := strconv.Atoi(m[1])
	return y
}

// locus holds volume/issue/pages plus a venue guess that some rules
// discover as a side effect. The guess is only used when the segment-based
// venue derivation fails.
type locus struct {
	volume    string
	issue     string
	pages     string
	venueHint string
}

var (
	// "Radiology 316, e241629" - venue, volume, article identifier.
	venueVolArticle = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+)*)\s+(\d+)\s*,\s*([A-Za-z]?\d+)`)
	// Conventional "vol. 12, no. 3" or bare "12, 3".
	volNoPair = regexp.MustCompile(`(?i)(?:vol\.?\s*)?(\d+)\s*,\s*(?:no\.?\s*)?(\d+)`)
	// Bare 3-4 digit volume followed by a comma.
	bareVolume   = regexp.MustCompile(`\b(\d{3,4})\s*,`)
	pagesPattern = regexp.MustCompile(`(?i)pp\.\s*([^,\s]+)`)
)

func extractLocus(text string, year int) locus {
	var l locus
	yearPos := len(text)
	if year != 0 {
		if p := strings.Index(text, "("+strconv.Itoa(year)+")"); p >= 0 {
			yearPos = p
		}
	}

	if m := venueVolArticle.FindStringSubmatchIndex(text); m != nil {
		venue := text[m[2]:m[3]]
		if m[0] < yearPos && len(strings.Fields(venue)) <= 3 {
			l.venueHint = venue
			l.volume = text[m[4]:m[5]]
			articleID := text[m[6]:m[7]]
			// Article-page tokens start with a letter (e241629, a0012);
			// plain digit runs here are issue numbers.
			if articleID[0] >= 'a' && articleID[0] <= 'z' || articleID[0] >= 'A' && articleID[0] <= 'Z' {
				l.pages = articleID
			} else {
				l.issue = articleID
			}
		}
	}

	if l.volume == "" {
		if m := volNoPair.FindStringSubmatch(text); m != nil {
			l.volume = m[1]
			l.issue = m[2]
		}
	}

	if l.volume == "" && year != 0 {
		if m := bareVolume.FindStringSubmatchIndex(text); m != nil && m[0] < yearPos {
			l.volume = text[m[2]:m[3]]
		}
	}

	if l.pages == "" {
		if m := pagesPattern.FindStringSubmatch(text); m != nil {
			l.pages = m[1]
		}
	}

	return l
}

// bookChapter is the parsed "<chapter>. in <book> (<publisher>, <year>)" shape.
type bookChapter struct {
	title string
	book  string
	year  int
}

var bookChapterPattern = regexp.MustCompile(`(?i)\.\s+([^.]{10,}?)\s*\.\s+in\s+([^(]+?)\s*\(([^)]+),\s*(\d{4})\)`)

func matchBookChapter(text string) *bookChapter {
	m := bookChapterPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	year, _ := strconv.Atoi(m[4])
	return &bookChapter{
		title: strings.TrimSpace(m[1]),
		book:  strings.TrimSpace(m[2]),
		year:  year,
	}
}

// authorListPattern anchors a run of "Surname, I. I.," author tokens at the
// start of the citation, tolerating co-first asterisks and a final "&".
var authorListPattern = regexp.MustCompile(`^\s*((?:[A-Z][\w'-]+(?:\s+[A-Z][\w'-]+)*\s*,\s*(?:[A-Z]\.\s*)+\*?\s*,?\s*(?:&\s*)?)+)`)

// titleBoundary finds a period followed by a long capitalized run - the
// usual seam between the author block and the title.
var titleBoundary = regexp.MustCompile(`\.\s+([A-Z][^.]{19,})`)

// splitAuthorBlock separates the leading author block from the remainder.
// Returns ("", "") when no author shape is recognizable; the caller falls
// back to a plain period split.
func splitAuthorBlock(text string) (block, rest string) {
	if m := authorListPattern.FindStringSubmatch(text); m != nil {
		block = strings.TrimSpace(m[1])
		rest = strings.TrimLeft(text[len(m[0]):], " ,")
		if rest != "" {
			return block, rest
		}
	}
	if m := titleBoundary.FindStringIndex(text); m != nil {
		block = strings.TrimSpace(text[:m[0]])
		rest = strings.TrimSpace(strings.TrimLeft(text[m[0]:], ". "))
		return block, rest
	}
	return "", ""
}

// parseAuthors reconstructs "Surname, Initials." names from the author
// block. Comma-delimited spans keep their asterisk markers so co-first
// positions can be flagged without rescanning the whole block.
func parseAuthors(block string) (names []string, firstPositions []int) {
	block = strings.ReplaceAll(block, " & ", ", ")

	var parts []string
	var starred []bool
	for _, p := range strings.Split(block, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		starred = append(starred, strings.Contains(p, "*"))
		parts = append(parts, strings.Trim(p, "*"))
	}

	add := func(name string, star bool) {
		n := authorname.Normalize(name)
		if n == "" {
			return
		}
		names = append(names, n)
		if star {
			firstPositions = append(firstPositions, len(names))
		}
	}

	i := 0
	for i < len(parts) {
		cur := parts[i]
		if i+1 >= len(parts) {
			if len(cur) >= 2 {
				add(cur, starred[i])
			}
			i++
			continue
		}

		next := parts[i+1]
		switch {
		case strings.HasSuffix(next, "."):
			add(cur+", "+next, starred[i] || starred[i+1])
			i += 2
		case strings.Contains(next, ".") && len(next) <= 6 && i+2 >= len(parts):
			// Final author whose trailing period was consumed by the split.
			add(cur+", "+next+".", starred[i] || starred[i+1])
			i += 2
		case i+2 < len(parts) && strings.HasSuffix(parts[i+2], "."):
			// Multi-word surname split across segments: surname, particle,
			// initials. Rejoin the surname with a space.
			add(cur+" "+next+", "+parts[i+2], starred[i] || starred[i+1] || starred[i+2])
			i += 3
		default:
			if len(cur) >= 2 {
				add(cur, starred[i])
			}
			i++
		}
	}

	return names, firstPositions
}

func defaultFirstPositions(found []int, authors []string) []int {
	if len(found) > 0 {
		return found
	}
	if len(authors) > 0 {
		return []int{1}
	}
	return nil
}

// splitSegments splits on periods and drops trivial fragments.
func splitSegments(text string) []string {
	var segments []string
	for _, s := range strings.Split(text, ".") {
		s = strings.TrimSpace(s)
		if len(s) > 1 {
			segments = append(segments, s)
		}
	}
	return segments
}

var (
	initialsShape = regexp.MustCompile(`^[A-Z]\.?\s*[A-Z]\.?$`)
	parenYear     = regexp.MustCompile(`\(\d{4}\)`)
)

// selectTitle ranks the segments following the author block and picks the
// most title-like one: more words win, ties go to the longer segment.
func selectTitle(segments []string) (string, int) {
	bestIdx := -1
	bestWords, bestLen := 0, 0

	for i, seg := range segments {
		if len(seg) < 10 ||
			strings.HasPrefix(seg, "(") ||
			strings.Contains(strings.ToLower(seg), "doi:") ||
			seg[0] >= '0' && seg[0] <= '9' ||
			initialsShape.MatchString(seg) ||
			parenYear.MatchString(seg) {
			continue
		}
		words := len(strings.Fields(seg))
		if words < 2 {
			continue
		}
		if words > bestWords || words == bestWords && len(seg) > bestLen {
			bestIdx, bestWords, bestLen = i, words, len(seg)
		}
	}

	if bestIdx < 0 {
		return "", -1
	}
	return segments[bestIdx], bestIdx
}

var (
	articleIDToken = regexp.MustCompile(`(?i)\s+[a-z]+\.?\d+`)
	volToken       = regexp.MustCompile(`(?i)\s+vol\.?\s*\d+`)
	digitRun       = regexp.MustCompile(`\s+\d+`)
)

// venueKeywords mark phrases that are journals, societies, or meetings.
var venueKeywords = []string{
	"Journal", "Radiology", "Cancer", "Meeting", "Symposium", "Conference",
	"Society", "Press", "Engineering", "Science", "Medicine", "Proceedings",
}

// deriveVenue cleans the segment after the title and accepts it only when
// it resembles a venue name.
func deriveVenue(segments []string, titleIdx int) string {
	if titleIdx < 0 || titleIdx+1 >= len(segments) {
		return ""
	}
	v := segments[titleIdx+1]
	v = parenYear.ReplaceAllString(v, "")
	v = articleIDToken.ReplaceAllString(v, "")
	v = volToken.ReplaceAllString(v, "")
	v = digitRun.ReplaceAllString(v, "")
	v = strings.Trim(v, " ,;:")
	if v == "" {
		return ""
	}

	for _, kw := range venueKeywords {
		if strings.Contains(v, kw) {
			return v
		}
	}

	words := strings.Fields(v)
	if len(words) >= 2 && len(words) <= 4 && isUpperStart(v) {
		return v
	}
	if len(words) == 1 && len(v) > 3 && isUpperStart(v) {
		return v
	}
	return ""
}

func isUpperStart(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

var (
	eventDatePattern = regexp.MustCompile(`(January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{4}`)
	locationPattern  = regexp.MustCompile(`,\s*([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?),\s*([A-Z]{2}|[A-Z][a-z]+)\.?$`)
)

func extractEventDate(text string) string {
	return eventDatePattern.FindString(text)
}

func extractLocation(text string) string {
	m := locationPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1] + ", " + m[2]
}
