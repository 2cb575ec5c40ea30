package pdf

import (
	"strings"
	"testing"

	"resumate/internal/config"
	"resumate/internal/resume"
)

func sampleContent() resume.Content {
	return resume.Content{
		Title:    "Backend Engineer",
		FullName: "Ada Lovelace",
		Email:    "ada@example.com",
		Summary:  "Engineer with a taste for <b>analytical</b> engines.",
		WorkExperiences: []resume.WorkExperience{
			{
				Company:     "Analytical Engines Ltd",
				Position:    "Lead Engineer",
				StartDate:   "2021-03-01",
				EndDate:     "2030-01-01",
				Current:     true,
				Description: []string{"Built the mill", "  ", "Wrote the first program"},
			},
			{
				Company:   "Difference Co",
				Position:  "Engineer",
				StartDate: "2018-01",
				EndDate:   "2021-02",
			},
		},
		Skills: []string{"Go", "PostgreSQL"},
		Certifications: []resume.Certification{
			{Name: "CKA", Issuer: "CNCF", IssueDate: "2019-05-01", ExpiryDate: "2022-05-01"},
		},
	}
}

func TestResumeHTMLIsDeterministic(t *testing.T) {
	first, err := ResumeHTML(sampleContent())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	second, err := ResumeHTML(sampleContent())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if first != second {
		t.Fatal("expected identical html for identical input")
	}
}

func TestResumeHTMLFormatsDatesAndPage(t *testing.T) {
	html, err := ResumeHTML(sampleContent())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"@page { size: A4; margin: 1cm; }",
		"Mar 2021 - Present",
		"Jan 2018 - Feb 2021",
		"May 2019 - May 2022",
		"Go, PostgreSQL",
		"&lt;b&gt;analytical&lt;/b&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected html to contain %q", want)
		}
	}
	if strings.Contains(html, "Jan 2030") {
		t.Error("current role must not render its submitted end date")
	}
	if strings.Count(html, "<li>") != 2 {
		t.Errorf("expected blank bullets to be dropped, got %d items", strings.Count(html, "<li>"))
	}
}

func TestResumeHTMLOmitsEmptySections(t *testing.T) {
	html, err := ResumeHTML(resume.Content{FullName: "Ada Lovelace"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, heading := range []string{"<h2>Experience</h2>", "<h2>Education</h2>", "<h2>Skills</h2>", "<h2>Certifications</h2>", "<h2>Summary</h2>"} {
		if strings.Contains(html, heading) {
			t.Errorf("expected %s to be omitted", heading)
		}
	}
}

func TestCoverLetterHTML(t *testing.T) {
	html, err := CoverLetterHTML(resume.CoverLetter{
		FullName:   "Ada Lovelace",
		Company:    "Acme",
		Greeting:   "Dear Team,",
		Paragraphs: []string{"First.", "Second."},
		Closing:    "Regards,",
		Signature:  "Ada",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "<p>First.</p>") || !strings.Contains(html, "<div>Acme</div>") {
		t.Fatalf("unexpected html: %s", html)
	}
}

func TestDateRange(t *testing.T) {
	cases := []struct {
		start, end string
		current    bool
		want       string
	}{
		{"2020-01-15", "", true, "Jan 2020 - Present"},
		{"2020-01-15", "2021-06-30", false, "Jan 2020 - Jun 2021"},
		{"2020", "", false, "Jan 2020"},
		{"", "", false, ""},
		{"spring term", "", false, "spring term"},
	}
	for _, tc := range cases {
		if got := dateRange(tc.start, tc.end, tc.current); got != tc.want {
			t.Errorf("dateRange(%q, %q, %v) = %q, want %q", tc.start, tc.end, tc.current, got, tc.want)
		}
	}
}

func TestNewRendererSelectsEngine(t *testing.T) {
	r, err := NewRenderer(config.PDFConfig{Engine: "chromedp"})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, ok := r.(*ChromedpRenderer); !ok {
		t.Fatalf("expected chromedp renderer, got %T", r)
	}
	r, err = NewRenderer(config.PDFConfig{})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	if _, ok := r.(*RodRenderer); !ok {
		t.Fatalf("expected rod renderer, got %T", r)
	}
	if _, err := NewRenderer(config.PDFConfig{Engine: "prince"}); err == nil {
		t.Fatal("expected error for unknown engine")
	}
}
