package llm

import (
	"context"

	"github.com/salaheddineelazouti/Projet-innovation/pkg/gemini"
)

// Gemini adapts the genai client to Completer.
type Gemini struct {
	client gemini.Client
}

// NewGemini wraps an existing client.
func NewGemini(client gemini.Client) *Gemini {
	return &Gemini{client: client}
}

func newGeminiFromConfig(ctx context.Context, cfg Config) (*Gemini, error) {
	c, err := gemini.NewClient(ctx, cfg.APIKey, gemini.Options{
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return NewGemini(c), nil
}

// Complete runs one generation. JSON requests set the response MIME type.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	temp := float32(req.Temperature)
	resp, err := g.client.Generate(ctx, gemini.GenerateRequest{
		Model:           req.Model,
		System:          req.System,
		Prompt:          req.Prompt,
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     &temp,
		JSON:            req.JSON,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(req.Model, req.Step)
	return resp.Text, nil
}
