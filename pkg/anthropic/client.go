// Package anthropic is a thin single-turn client over anthropic-sdk-go.
package anthropic

import (
	"context"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Client sends one prompt and returns the model's text.
type Client interface {
	Complete(ctx context.Context, p Prompt) (*Completion, error)
}

// Prompt is a single user turn with an optional system prompt.
type Prompt struct {
	Model       string
	MaxTokens   int64
	System      string
	User        string
	Temperature float64
}

// Completion is the text part of a response plus its token usage.
type Completion struct {
	Text       string
	StopReason string
	Usage      Usage
}

// Truncated reports whether the model stopped on the token limit.
func (c *Completion) Truncated() bool {
	return c != nil && c.StopReason == string(sdk.StopReasonMaxTokens)
}

// Options tunes the SDK transport. MaxRetries zero disables SDK retries.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type sdkClient struct {
	client sdk.Client
}

// NewClient returns a Client backed by the official SDK.
func NewClient(apiKey string, opts Options) Client {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(opts.MaxRetries),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(opts.Timeout))
	}
	return &sdkClient{client: sdk.NewClient(reqOpts...)}
}

func (c *sdkClient) Complete(ctx context.Context, p Prompt) (*Completion, error) {
	params := sdk.MessageNewParams{
		Model:       sdk.Model(p.Model),
		MaxTokens:   p.MaxTokens,
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(p.User))},
		Temperature: sdk.Float(p.Temperature),
	}
	if sys := systemParam(p.System); sys != nil {
		params.System = sys
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, eris.Wrapf(err, "anthropic: complete (%s)", p.Model)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	out := &Completion{
		Text:       text.String(),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			Input:      msg.Usage.InputTokens,
			Output:     msg.Usage.OutputTokens,
			CacheWrite: msg.Usage.CacheCreationInputTokens,
			CacheRead:  msg.Usage.CacheReadInputTokens,
		},
	}
	if out.Truncated() {
		zap.L().Warn("anthropic: response truncated at max_tokens",
			zap.String("model", p.Model),
			zap.Int64("max_tokens", p.MaxTokens),
		)
	}
	return out, nil
}

// minCacheableChars approximates the 1024-token floor below which the API
// ignores cache breakpoints.
const minCacheableChars = 4000

// systemParam builds the system prompt. Only prompts of at least
// minCacheableChars get an ephemeral cache breakpoint; the one-line
// classifier and extractor prompts stay below it and are sent uncached.
func systemParam(text string) []sdk.TextBlockParam {
	if text == "" {
		return nil
	}
	block := sdk.TextBlockParam{Text: text}
	if len(text) >= minCacheableChars {
		block.CacheControl = sdk.NewCacheControlEphemeralParam()
	}
	return []sdk.TextBlockParam{block}
}
