// Package llm holds the text-completion backends used to classify chat
// commands: Claude over its HTTP API and Groq through its OpenAI-compatible API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/omriShneor/calpal/internal/metrics"
)

const (
	ProviderClaude = "claude"
	ProviderGroq   = "groq"
	ProviderNone   = "none"
)

// ErrEmptyResponse is returned when the provider answered with no text.
var ErrEmptyResponse = errors.New("empty response from API")

// Completer turns a prompt into model text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Instrumented records the latency of every completion under provider.
func Instrumented(c Completer, provider string, m *metrics.Metrics) Completer {
	return &instrumented{next: c, provider: provider, metrics: m}
}

type instrumented struct {
	next     Completer
	provider string
	metrics  *metrics.Metrics
}

func (i *instrumented) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := i.next.Complete(ctx, prompt)
	i.metrics.RecordCompletion(i.provider, time.Since(start))
	return text, err
}

// Config selects and configures the completion backend.
type Config struct {
	Provider string

	AnthropicAPIKey   string
	ClaudeModel       string
	ClaudeTemperature float64

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	RatePerMinute float64
	Burst         int
}

// ResolveProvider returns the configured provider, or the first one with a key
// when none is set.
func (c Config) ResolveProvider() string {
	if c.Provider != "" {
		return c.Provider
	}
	switch {
	case c.AnthropicAPIKey != "":
		return ProviderClaude
	case c.GroqAPIKey != "":
		return ProviderGroq
	default:
		return ProviderNone
	}
}

// New builds the completer for cfg. A nil Completer with a nil error means no
// provider is configured and classification runs on keywords alone.
func New(cfg Config, system string, m *metrics.Metrics) (Completer, error) {
	provider := cfg.ResolveProvider()

	var c Completer
	switch provider {
	case ProviderClaude:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("llm provider %q needs ANTHROPIC_API_KEY", provider)
		}
		c = NewClaudeClient(cfg.AnthropicAPIKey, cfg.ClaudeModel, cfg.ClaudeTemperature, system)
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, fmt.Errorf("llm provider %q needs GROQ_API_KEY", provider)
		}
		c = NewGroqClient(GroqConfig{APIKey: cfg.GroqAPIKey, BaseURL: cfg.GroqBaseURL, Model: cfg.GroqModel, System: system})
	case ProviderNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}

	c = Instrumented(c, provider, m)
	if cfg.RatePerMinute > 0 {
		c = NewRateLimited(c, cfg.RatePerMinute, cfg.Burst)
	}
	return c, nil
}
