// Package generation produces tailored resumes and cover letters with the language model
// and renders them to PDF.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resumate/internal/auth"
	"resumate/internal/database"
	"resumate/internal/llm"
	"resumate/internal/pdf"
	"resumate/internal/resume"
)

var (
	// ErrEmptyResponse is returned when the model answers with nothing usable.
	ErrEmptyResponse = errors.New("model returned an empty response")
	// ErrInvalidResponse wraps schema or JSON failures in model output.
	ErrInvalidResponse = errors.New("model returned an invalid document")
	// ErrCompletion wraps transport or provider failures.
	ErrCompletion = errors.New("model completion failed")
)

// ResumeStore persists generated resumes.
type ResumeStore interface {
	CreateFromContent(ctx context.Context, userID uint, jobID, applicationID *uint, content resume.Content) (*database.Resume, error)
}

// Request describes one resume generation. Profile must have its sections preloaded.
type Request struct {
	Profile       database.Profile
	Job           *JobInfo
	JobID         *uint
	ApplicationID *uint
}

// Result is a persisted and rendered resume.
type Result struct {
	Resume  *database.Resume
	Content resume.Content
	PDF     []byte
}

// Service generates documents. The model and renderer are injected so callers can stub them.
type Service struct {
	llm      llm.Client
	renderer pdf.Renderer
	resumes  ResumeStore
	now      func() time.Time
}

// NewService wires the collaborators.
func NewService(client llm.Client, renderer pdf.Renderer, resumes ResumeStore) *Service {
	return &Service{llm: client, renderer: renderer, resumes: resumes, now: time.Now}
}

// GenerateResume asks the model for a resume, validates it, renders the PDF and stores it
// for the session's user, linked to the application when one is given.
func (s *Service) GenerateResume(ctx context.Context, session auth.Session, req Request) (Result, error) {
	if !session.Valid() {
		return Result{}, auth.ErrNoSession
	}

	content, err := s.DraftResume(ctx, req.Profile, req.Job)
	if err != nil {
		return Result{}, err
	}

	// Render before storing so a failed print leaves no orphan row.
	data, err := pdf.RenderResume(ctx, s.renderer, content)
	if err != nil {
		return Result{}, err
	}

	stored, err := s.resumes.CreateFromContent(ctx, session.UserID, req.JobID, req.ApplicationID, content)
	if err != nil {
		return Result{}, fmt.Errorf("store generated resume: %w", err)
	}
	return Result{Resume: stored, Content: content, PDF: data}, nil
}

// DraftResume runs the model and returns validated content without persisting it.
func (s *Service) DraftResume(ctx context.Context, profile database.Profile, job *JobInfo) (resume.Content, error) {
	prompt, err := buildResumePrompt(profile, job)
	if err != nil {
		return resume.Content{}, fmt.Errorf("build resume prompt: %w", err)
	}

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return resume.Content{}, err
	}

	content, err := resume.Decode([]byte(raw))
	if err != nil {
		return resume.Content{}, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	// Contact details come from the profile, not from the model.
	content.FullName = firstNonEmpty(profile.FullName, content.FullName)
	content.Email = firstNonEmpty(profile.Email, content.Email)
	content.Phone = firstNonEmpty(profile.Phone, content.Phone)
	content.Location = firstNonEmpty(profile.Location, content.Location)
	content.Website = firstNonEmpty(profile.Website, content.Website)
	content.LinkedIn = firstNonEmpty(profile.LinkedIn, content.LinkedIn)
	content.GitHub = firstNonEmpty(profile.GitHub, content.GitHub)

	capBullets(&content)
	return content, nil
}

// GenerateCoverLetter asks the model for a letter and renders it. Letters are not stored.
func (s *Service) GenerateCoverLetter(ctx context.Context, profile database.Profile, job JobInfo) ([]byte, error) {
	prompt, err := buildCoverLetterPrompt(profile, job)
	if err != nil {
		return nil, fmt.Errorf("build cover letter prompt: %w", err)
	}

	raw, err := s.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	letter, err := resume.DecodeCoverLetter([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	letter.FullName = firstNonEmpty(profile.FullName, letter.FullName)
	letter.Email = firstNonEmpty(profile.Email, letter.Email)
	letter.Phone = firstNonEmpty(profile.Phone, letter.Phone)
	letter.Location = firstNonEmpty(profile.Location, letter.Location)
	letter.Company = firstNonEmpty(letter.Company, job.CompanyName)
	if letter.Signature == "" {
		letter.Signature = letter.FullName
	}
	letter.Date = s.now().Format("January 2, 2006")

	return pdf.RenderCoverLetter(ctx, s.renderer, letter)
}

// Render prints existing content without calling the model.
func (s *Service) Render(ctx context.Context, content resume.Content) ([]byte, error) {
	return pdf.RenderResume(ctx, s.renderer, content)
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	raw, err := s.llm.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return "", ErrEmptyResponse
		}
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}
	raw = llm.StripCodeFence(raw)
	if raw == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
