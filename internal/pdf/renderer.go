package pdf

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resumate/internal/config"
	"resumate/internal/metrics"
	"resumate/internal/resume"
)

// A4 paper and the 1cm margin, in inches as the DevTools protocol expects.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.3937
)

const defaultTimeout = 30 * time.Second

// ErrRender wraps every browser failure so callers can map it to an upstream error.
var ErrRender = errors.New("render pdf")

// Renderer turns a standalone HTML document into PDF bytes.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// NewRenderer selects the engine named in cfg. Each call to RenderPDF starts and tears
// down its own browser process.
func NewRenderer(cfg config.PDFConfig) (Renderer, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	switch cfg.Engine {
	case "", "rod":
		return &RodRenderer{bin: cfg.BrowserBin, timeout: timeout}, nil
	case "chromedp":
		return &ChromedpRenderer{bin: cfg.BrowserBin, timeout: timeout}, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.Engine)
	}
}

// RenderResume renders content with the resume template and prints it.
func RenderResume(ctx context.Context, r Renderer, content resume.Content) ([]byte, error) {
	html, err := ResumeHTML(content)
	if err != nil {
		return nil, err
	}
	data, err := r.RenderPDF(ctx, html)
	metrics.ObservePDFRender("resume", err)
	return data, err
}

// RenderCoverLetter renders letter with the cover-letter template and prints it.
func RenderCoverLetter(ctx context.Context, r Renderer, letter resume.CoverLetter) ([]byte, error) {
	html, err := CoverLetterHTML(letter)
	if err != nil {
		return nil, err
	}
	data, err := r.RenderPDF(ctx, html)
	metrics.ObservePDFRender("cover_letter", err)
	return data, err
}

func renderErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrRender, step, err)
}
