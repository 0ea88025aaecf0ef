// Package pdftext pulls the citation-relevant scraps out of a PDF: a DOI
// when one is printed on the opening pages, a best-guess title line, and
// citation-shaped lines from a references list. Each feeds the fusion
// pipeline; a PDF without any of them is simply a miss, not an error.
package pdftext

import (
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// doiPattern matches 10.XXXX/... suffix identifiers as printed in article
// headers and footers.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// doiSearchPages is how many leading pages to scan; the DOI is nearly
// always on the first page.
const doiSearchPages = 3

// ExtractDOI scans the leading pages of a PDF for a printed DOI.
// No DOI found is ("", nil).
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	maxPages := doiSearchPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if doi := findDOI(text); doi != "" {
			return doi, nil
		}
	}

	return "", nil
}

// ExtractTitle guesses the title as the first substantial line of the
// first page that does not look like a running header.
func ExtractTitle(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", nil
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", nil
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", nil
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) > 20 && !isHeaderLine(line) {
			return line, nil
		}
	}
	return "", nil
}

// yearPattern marks a line as citation-shaped when paired with enough text.
var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// minCitationLineLength filters out page numbers, headers, and list
// markers when scanning a references PDF.
const minCitationLineLength = 40

// CitationLines extracts citation-shaped lines from a references PDF.
// Wrapped lines are rejoined: a line is appended to its predecessor until
// a line ends the reference (terminal period or a new numbered item
// starts). A line counts as a citation when it is long enough and
// carries a plausible year.
func CitationLines(filePath string) ([]string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []string
	var current string

	flush := func() {
		current = strings.TrimSpace(current)
		if len(current) >= minCitationLineLength && yearPattern.MatchString(current) {
			refs = append(refs, current)
		}
		current = ""
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				flush()
				continue
			}
			if startsReference(line) {
				flush()
			}
			if current != "" {
				current += " "
			}
			current += line
		}
	}
	flush()

	return refs, nil
}

// refItemPattern matches the start of a numbered reference-list item,
// e.g. "12.", "[12]", "12)".
var refItemPattern = regexp.MustCompile(`^(\[\d+\]|\d+[.)])\s`)

func startsReference(line string) bool {
	return refItemPattern.MatchString(line)
}

func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	return slashIdx != -1 && slashIdx < len(doi)-1
}

// isHeaderLine flags running headers and copyright lines that beat the
// title to the top of page one.
func isHeaderLine(line string) bool {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "journal"):
		return true
	case strings.Contains(lower, "volume") && strings.Contains(lower, "issue"):
		return true
	case strings.Contains(lower, "copyright"), strings.Contains(lower, "©"):
		return true
	case strings.Contains(lower, "downloaded from"):
		return true
	}
	return false
}
