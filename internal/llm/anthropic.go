package llm

import (
	"context"

	"github.com/salaheddineelazouti/Projet-innovation/pkg/anthropic"
)

// Anthropic adapts the Messages API client to Completer.
type Anthropic struct {
	client anthropic.Client
}

// NewAnthropic wraps an existing client.
func NewAnthropic(client anthropic.Client) *Anthropic {
	return &Anthropic{client: client}
}

func newAnthropicFromConfig(cfg Config) *Anthropic {
	return NewAnthropic(anthropic.NewClient(cfg.APIKey, anthropic.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}))
}

// Complete sends the prompt as a single user turn.
func (a *Anthropic) Complete(ctx context.Context, req Request) (string, error) {
	out, err := a.client.Complete(ctx, anthropic.Prompt{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		System:      req.System,
		User:        req.Prompt,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", err
	}
	out.Usage.Log(req.Model, req.Step)
	return out.Text, nil
}
