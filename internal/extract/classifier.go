package extract

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Classifier decides whether a message asks to repeat a previous order.
type Classifier struct {
	llm llm.Completer
	cfg Config
}

// NewClassifier creates a classifier using the classifier settings of cfg.
func NewClassifier(c llm.Completer, cfg Config) *Classifier {
	return &Classifier{llm: c, cfg: cfg.withDefaults()}
}

type rawSignal struct {
	IsReorder  flexBool   `json:"is_reorder"`
	Indicators []string   `json:"reorder_indicators"`
	ClientName flexString `json:"client_name"`
	Confidence flexNumber `json:"confidence"`
}

// Classify returns the reorder signal for content. On any failure it
// returns the zero signal together with an *Error; callers that only need
// the signal can ignore the error.
func (c *Classifier) Classify(ctx context.Context, content string) (model.ReorderSignal, error) {
	text, err := c.llm.Complete(ctx, llm.Request{
		Step:        "classify",
		Model:       c.cfg.ClassifierModel,
		System:      classifierSystemPrompt,
		Prompt:      classifierPrompt(model.Truncate(content, c.cfg.ReorderContextChars)),
		MaxTokens:   c.cfg.ClassifierMaxTokens,
		Temperature: *c.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		return model.ReorderSignal{}, callError("classify", err)
	}

	var raw rawSignal
	if err := decodeObject(text, &raw); err != nil {
		return model.ReorderSignal{}, malformedError("classify", err)
	}

	sig := model.ReorderSignal{
		IsReorder:  bool(raw.IsReorder),
		ClientName: raw.ClientName.Value,
		Confidence: clampConfidence(raw.Confidence.Value),
	}
	for _, ind := range raw.Indicators {
		if ind = strings.TrimSpace(ind); ind != "" {
			sig.Indicators = append(sig.Indicators, ind)
		}
	}

	zap.L().Debug("extract: reorder signal",
		zap.Bool("is_reorder", sig.IsReorder),
		zap.String("client_name", sig.Candidate()),
		zap.Strings("indicators", sig.Indicators),
		zap.Int("confidence", sig.Confidence),
	)
	return sig, nil
}
