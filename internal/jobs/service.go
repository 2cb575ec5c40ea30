package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"resumate/internal/database"
	"resumate/internal/llm"
)

// Content types accepted by Analyze.
const (
	TypeText = "text"
	TypeURL  = "url"
)

// maxPromptChars keeps very long postings within a sensible prompt size.
const maxPromptChars = 60000

var (
	ErrInvalidType  = errors.New("type must be text or url")
	ErrEmptyContent = errors.New("content is required")
	ErrFetch        = errors.New("fetch job posting")
	ErrParse        = errors.New("parse job extraction")
)

// Analysis is the normalized result of Analyze. JobID is set when an existing job was reused.
type Analysis struct {
	JobID        *uint    `json:"jobId,omitempty"`
	URL          *string  `json:"url,omitempty"`
	CompanyName  string   `json:"companyName"`
	Position     string   `json:"position"`
	Description  string   `json:"description"`
	Requirements []string `json:"requirements"`
	Salary       *string  `json:"salary"`
	Location     *string  `json:"location"`
}

// Lookup finds a stored job by its exact URL; nil means none.
type Lookup interface {
	FindByURL(ctx context.Context, url string) (*database.Job, error)
}

// PageFetcher returns the text of a posting URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Service turns postings into structured job fields.
type Service struct {
	llm     llm.Client
	lookup  Lookup
	fetcher PageFetcher
}

// NewService wires the collaborators.
func NewService(client llm.Client, lookup Lookup, fetcher PageFetcher) *Service {
	return &Service{llm: client, lookup: lookup, fetcher: fetcher}
}

// Analyze extracts job fields from pasted text or a URL. A URL that matches a stored job
// returns that job without calling the model.
func (s *Service) Analyze(ctx context.Context, content, contentType string) (Analysis, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Analysis{}, ErrEmptyContent
	}

	var sourceURL *string
	switch contentType {
	case TypeText:
	case TypeURL:
		if s.lookup != nil {
			job, err := s.lookup.FindByURL(ctx, content)
			if err != nil {
				return Analysis{}, fmt.Errorf("lookup job by url: %w", err)
			}
			if job != nil {
				return fromJob(job), nil
			}
		}
		text, err := s.fetcher.Fetch(ctx, content)
		if err != nil {
			return Analysis{}, fmt.Errorf("%w %s: %w", ErrFetch, content, err)
		}
		if strings.TrimSpace(text) == "" {
			return Analysis{}, fmt.Errorf("%w %s: page has no text", ErrFetch, content)
		}
		u := content
		sourceURL = &u
		content = text
	default:
		return Analysis{}, ErrInvalidType
	}

	content = truncate(content, maxPromptChars)

	raw, err := s.llm.Complete(ctx, buildExtractionPrompt(content))
	if err != nil {
		return Analysis{}, fmt.Errorf("extract job fields: %w", err)
	}

	analysis, err := parseExtraction(raw)
	if err != nil {
		return Analysis{}, err
	}
	analysis.URL = sourceURL
	return analysis, nil
}

type extraction struct {
	CompanyName  string          `json:"companyName"`
	Position     string          `json:"position"`
	Description  string          `json:"description"`
	Requirements json.RawMessage `json:"requirements"`
	Salary       *string         `json:"salary"`
	Location     *string         `json:"location"`
}

func parseExtraction(raw string) (Analysis, error) {
	body := llm.StripCodeFence(raw)
	if body == "" {
		return Analysis{}, fmt.Errorf("%w: empty response", ErrParse)
	}

	if err := validateExtraction([]byte(body)); err != nil {
		return Analysis{}, err
	}

	var ex extraction
	if err := json.Unmarshal([]byte(body), &ex); err != nil {
		return Analysis{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return Analysis{
		CompanyName:  strings.TrimSpace(ex.CompanyName),
		Position:     strings.TrimSpace(ex.Position),
		Description:  strings.TrimSpace(ex.Description),
		Requirements: normalizeRequirements(ex.Requirements),
		Salary:       nonBlank(ex.Salary),
		Location:     nonBlank(ex.Location),
	}, nil
}

// normalizeRequirements accepts an array of strings or a single string and always
// returns a non-nil slice.
func normalizeRequirements(raw json.RawMessage) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		return out
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single != "" {
			out = append(out, single)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func fromJob(job *database.Job) Analysis {
	id := job.ID
	reqs := make([]string, 0, len(job.Requirements))
	reqs = append(reqs, job.Requirements...)
	return Analysis{
		JobID:        &id,
		URL:          job.URL,
		CompanyName:  job.CompanyName,
		Position:     job.Title,
		Description:  job.Description,
		Requirements: reqs,
		Salary:       job.Salary,
		Location:     job.Location,
	}
}
