// Package llm is the boundary to the text completion provider. Callers send one prompt and
// receive the model's raw text, which they parse themselves.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"resumate/internal/config"
	"resumate/internal/llm/anthropic"
	"resumate/internal/llm/openai"
	"resumate/internal/metrics"
)

// ErrEmptyCompletion is returned when the provider answers with no text.
var ErrEmptyCompletion = errors.New("llm returned an empty completion")

// Client completes a single prompt.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the provider named in cfg.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		c, err := openai.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return instrumented{name: "openai", next: c}, nil
	case "anthropic":
		c, err := anthropic.NewClient(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		return instrumented{name: "anthropic", next: c}, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
}

// Lazy defers provider construction until the first completion so the API can boot
// without credentials. A construction error is returned on every call.
type Lazy struct {
	once   sync.Once
	build  func() (Client, error)
	client Client
	err    error
}

// NewLazy wraps build.
func NewLazy(build func() (Client, error)) *Lazy {
	return &Lazy{build: build}
}

// Complete initializes the client once and delegates to it.
func (l *Lazy) Complete(ctx context.Context, prompt string) (string, error) {
	l.once.Do(func() {
		l.client, l.err = l.build()
	})
	if l.err != nil {
		return "", fmt.Errorf("init llm client: %w", l.err)
	}
	return l.client.Complete(ctx, prompt)
}

type instrumented struct {
	name string
	next Client
}

func (i instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	out, err := i.next.Complete(ctx, prompt)
	if err == nil && strings.TrimSpace(out) == "" {
		err = ErrEmptyCompletion
	}
	metrics.ObserveLLMCall(i.name, err)
	return out, err
}

// StripCodeFence unwraps output wrapped in a markdown code block such as ```json ... ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
