package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resumate/internal/database"
)

type stubLLM struct {
	reply   string
	err     error
	prompts []string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

type stubLookup map[string]*database.Job

func (s stubLookup) FindByURL(_ context.Context, url string) (*database.Job, error) {
	return s[url], nil
}

const extracted = "```json\n{\"companyName\":\" Acme \",\"position\":\"Go Engineer\",\"description\":\"Build APIs\",\"requirements\":[\"Go\",\" \",\"SQL\"],\"salary\":\"\"}\n```"

func TestAnalyzeText(t *testing.T) {
	llm := &stubLLM{reply: extracted}
	svc := NewService(llm, stubLookup{}, NewFetcher(nil))

	got, err := svc.Analyze(context.Background(), "We are hiring a Go engineer", TypeText)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.CompanyName != "Acme" || got.Position != "Go Engineer" {
		t.Fatalf("unexpected analysis %+v", got)
	}
	if len(got.Requirements) != 2 || got.Requirements[1] != "SQL" {
		t.Fatalf("unexpected requirements %v", got.Requirements)
	}
	if got.Salary != nil || got.Location != nil {
		t.Fatalf("expected null salary and location, got %v %v", got.Salary, got.Location)
	}
	if !strings.Contains(llm.prompts[0], "We are hiring a Go engineer") {
		t.Fatal("prompt must embed the posting")
	}
}

func TestAnalyzeDefaultsMissingRequirements(t *testing.T) {
	svc := NewService(&stubLLM{reply: `{"companyName":"Acme","position":"Dev","description":"x"}`}, nil, nil)
	got, err := svc.Analyze(context.Background(), "posting", TypeText)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Requirements == nil || len(got.Requirements) != 0 {
		t.Fatalf("expected empty requirements, got %#v", got.Requirements)
	}
}

func TestAnalyzeURLShortCircuitsOnStoredJob(t *testing.T) {
	url := "https://jobs.example/1"
	stored := &database.Job{Title: "Stored", CompanyName: "Acme", URL: &url, Requirements: []string{"Go"}}
	stored.ID = 42
	llm := &stubLLM{}
	svc := NewService(llm, stubLookup{url: stored}, NewFetcher(nil))

	got, err := svc.Analyze(context.Background(), url, TypeURL)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.JobID == nil || *got.JobID != 42 || got.Position != "Stored" {
		t.Fatalf("expected stored job, got %+v", got)
	}
	if len(llm.prompts) != 0 {
		t.Fatal("stored job must not reach the model")
	}
}

func TestAnalyzeURLFetchesAndStripsHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><script>track()</script></head><body><h1>Go Engineer</h1><p>Acme &amp; Co</p></body></html>`))
	}))
	defer srv.Close()

	llm := &stubLLM{reply: `{"companyName":"Acme & Co","position":"Go Engineer","description":"d","requirements":[]}`}
	svc := NewService(llm, stubLookup{}, NewFetcher(srv.Client()))

	got, err := svc.Analyze(context.Background(), srv.URL, TypeURL)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.URL == nil || *got.URL != srv.URL {
		t.Fatalf("expected source url on result, got %v", got.URL)
	}
	prompt := llm.prompts[0]
	if !strings.Contains(prompt, "Go Engineer\nAcme & Co") {
		t.Fatalf("expected stripped text in prompt, got %q", prompt)
	}
	if strings.Contains(prompt, "track()") || strings.Contains(prompt, "<h1>") {
		t.Fatalf("markup leaked into prompt: %q", prompt)
	}
}

func TestAnalyzeURLFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	svc := NewService(&stubLLM{}, stubLookup{}, NewFetcher(srv.Client()))
	_, err := svc.Analyze(context.Background(), srv.URL, TypeURL)
	if !errors.Is(err, ErrFetch) || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected fetch error naming the status, got %v", err)
	}
}

func TestAnalyzeParseFailure(t *testing.T) {
	svc := NewService(&stubLLM{reply: "Sorry, I cannot help with that."}, nil, nil)
	if _, err := svc.Analyze(context.Background(), "posting", TypeText); !errors.Is(err, ErrParse) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	svc := NewService(&stubLLM{}, nil, nil)
	if _, err := svc.Analyze(context.Background(), "x", "pdf"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected invalid type, got %v", err)
	}
	if _, err := svc.Analyze(context.Background(), "  ", TypeText); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected empty content, got %v", err)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	if got := truncate("héllo", 2); got != "h" {
		t.Fatalf("expected cut before multibyte rune, got %q", got)
	}
}

func TestAnalyzeRejectsBlankExtraction(t *testing.T) {
	replies := map[string]string{
		"null":          "null",
		"empty object":  "{}",
		"blank fields":  `{"companyName":"  ","position":"","description":null,"requirements":[]}`,
		"array":         `["Acme"]`,
		"unrelated key": `{"title":"Go Engineer"}`,
	}
	for name, reply := range replies {
		t.Run(name, func(t *testing.T) {
			svc := NewService(&stubLLM{reply: reply}, nil, nil)
			got, err := svc.Analyze(context.Background(), "posting", TypeText)
			if !errors.Is(err, ErrParse) {
				t.Fatalf("expected parse error, got %v (%+v)", err, got)
			}
		})
	}
}

func TestAnalyzeAcceptsSingleField(t *testing.T) {
	svc := NewService(&stubLLM{reply: `{"position":"Go Engineer","salary":null,"requirements":"Go"}`}, nil, nil)
	got, err := svc.Analyze(context.Background(), "posting", TypeText)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if got.Position != "Go Engineer" || len(got.Requirements) != 1 {
		t.Fatalf("unexpected analysis %+v", got)
	}
}
