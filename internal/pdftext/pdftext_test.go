package pdftext

import "testing"

func TestFindDOI(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain", "doi: 10.1093/jbi/wbae089 published online", "10.1093/jbi/wbae089"},
		{"trailing punctuation", "see 10.1148/radiol.2021203517. for details", "10.1148/radiol.2021203517"},
		{"no doi", "nothing identifying here", ""},
		{"too short", "10.1/x", ""},
		{"prefix without suffix", "10.1093/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findDOI(tt.text); got != tt.want {
				t.Errorf("findDOI(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestIsHeaderLine(t *testing.T) {
	headers := []string{
		"Journal of Breast Imaging Advance Access",
		"Volume 12, Issue 3, 2021",
		"Copyright 2021 The Authors",
		"Downloaded from academic.oup.com on January 5",
	}
	for _, line := range headers {
		if !isHeaderLine(line) {
			t.Errorf("isHeaderLine(%q) = false, want true", line)
		}
	}
	if isHeaderLine("Quantitative imaging of treatment response in breast tumors") {
		t.Error("title line misclassified as header")
	}
}

func TestStartsReference(t *testing.T) {
	tests := []struct {
		line string
		want bool
	}{
		{"1. Smith J, Doe A. A method. Journal. 2021.", true},
		{"[12] Smith J, Doe A. A method. Journal. 2021.", true},
		{"12) Smith J, Doe A. A method. Journal. 2021.", true},
		{"Smith J, Doe A. A method. Journal. 2021.", false},
		{"2021 was a year of change for imaging labs", false},
		{"1.5 mm isotropic resolution was used", false},
	}
	for _, tt := range tests {
		if got := startsReference(tt.line); got != tt.want {
			t.Errorf("startsReference(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}
