package doi

import "testing"

func TestExtractFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"doi prefix", "Some paper. doi:10.1/abc", "10.1/abc"},
		{"doi prefix uppercase", "DOI:10.1038/nature12373", "10.1038/nature12373"},
		{"https url", "See https://doi.org/10.1/X for details", "10.1/X"},
		{"http url", "http://doi.org/10.1093/jbi/wbae089", "10.1093/jbi/wbae089"},
		{"dx host", "https://dx.doi.org/10.1234/test", "10.1234/test"},
		{"trailing parenthesis excluded", "(doi:10.1/abc)", "10.1/abc"},
		{"no doi", "Smith, J. A paper. Journal 12 (2021).", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFromText(tt.text); got != tt.want {
				t.Errorf("ExtractFromText(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractFromText_PrefixAndURLAgree(t *testing.T) {
	// The same identifier must come out of both spellings.
	a := ExtractFromText("doi:10.1/X")
	b := ExtractFromText("https://doi.org/10.1/X")
	if a != "10.1/X" || b != "10.1/X" {
		t.Errorf("prefix form = %q, url form = %q, want both 10.1/X", a, b)
	}
}

func TestExtractFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"doi.org url", "https://doi.org/10.1093/jbi/wbae089", "10.1093/jbi/wbae089"},
		{"dx.doi.org url", "http://dx.doi.org/10.1/abc", "10.1/abc"},
		{"publisher url", "https://journals.example.org/article/42", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractFromURL(tt.url); got != tt.want {
				t.Errorf("ExtractFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"already clean", "10.1/abc", "10.1/abc"},
		{"doi prefix", "doi:10.1/abc", "10.1/abc"},
		{"https url", "https://doi.org/10.1/abc", "10.1/abc"},
		{"dx url", "http://dx.doi.org/10.1/abc", "10.1/abc"},
		{"bare host", "doi.org/10.1/abc", "10.1/abc"},
		{"whitespace", "  10.1/abc ", "10.1/abc"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.id); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestClean_Idempotent(t *testing.T) {
	once := Clean("https://doi.org/10.1/abc")
	twice := Clean(once)
	if once != twice {
		t.Errorf("Clean not idempotent: %q then %q", once, twice)
	}
}
