// Package llm hides the completion provider behind a single prompt-in,
// text-out interface used by the extraction pipeline.
package llm

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// Provider names accepted by New.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Request is one single-turn completion.
type Request struct {
	// Step labels the call in usage logs ("classify", "extract").
	Step        string
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	// JSON asks the provider for a JSON body when it supports doing so.
	JSON bool
}

// Completer returns the raw text the model produced for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Config selects and tunes the provider.
type Config struct {
	Provider string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// New builds the Completer for cfg.Provider. An empty provider means
// Anthropic.
func New(ctx context.Context, cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, eris.New("llm: anthropic api key is required")
		}
		return newAnthropicFromConfig(cfg), nil
	case ProviderGemini:
		c, err := newGeminiFromConfig(ctx, cfg)
		if err != nil {
			return nil, eris.Wrap(err, "llm: create gemini client")
		}
		return c, nil
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
