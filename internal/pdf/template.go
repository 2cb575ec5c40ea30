package pdf

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"resumate/internal/resume"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("pdf").Funcs(template.FuncMap{
	"dateRange": dateRange,
	"certRange": certRange,
	"join":      strings.Join,
}).ParseFS(templateFS, "templates/*.html"))

// ResumeHTML renders resume content into a standalone HTML document. The output depends
// only on content, so equal input yields byte-identical HTML.
func ResumeHTML(content resume.Content) (string, error) {
	content.Normalize()
	return execute("resume.html", content)
}

// CoverLetterHTML renders a cover letter into a standalone HTML document.
func CoverLetterHTML(letter resume.CoverLetter) (string, error) {
	return execute("cover_letter.html", letter)
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.String(), nil
}

func dateRange(start, end string, current bool) string {
	from := resume.FormatMonthYear(start)
	var to string
	switch {
	case current:
		to = "Present"
	case strings.TrimSpace(end) != "":
		to = resume.FormatMonthYear(end)
	}
	switch {
	case from == "" && to == "":
		return ""
	case from == "":
		return to
	case to == "":
		return from
	}
	return from + " - " + to
}

// certRange shows the expiry whenever one is recorded.
func certRange(issued, expires string) string {
	return dateRange(issued, expires, false)
}
