package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Outcome is the terminal state of processing one message.
type Outcome string

const (
	// OutcomeReorderFilled: reorder detected and the client's history
	// filled the record.
	OutcomeReorderFilled Outcome = "reorder_filled"
	// OutcomeReorderNoHistory: reorder suspected but no client or order
	// history was found, so only standard extraction ran.
	OutcomeReorderNoHistory Outcome = "reorder_no_history"
	// OutcomeStandard: no reorder signal.
	OutcomeStandard Outcome = "standard"
)

// HistorySource finds the order a reorder request refers to. It returns
// the order (nil when there is none) and the stored client name the
// free-text name resolved to ("" when no client matched).
type HistorySource interface {
	LastOrder(ctx context.Context, clientName string) (*model.Order, string, error)
}

// Result is what Process produced for one message. Order is nil when
// extraction failed.
type Result struct {
	Order   *model.OrderRecord
	Outcome Outcome
	Signal  model.ReorderSignal
	// History is the order used for the fill, if any.
	History *model.Order
}

// Pipeline runs reorder detection, extraction and history fill.
type Pipeline struct {
	classifier *Classifier
	extractor  *Extractor
	history    HistorySource
	floor      int
}

// NewPipeline wires a pipeline. A nil history disables reorder filling.
func NewPipeline(c llm.Completer, history HistorySource, cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		classifier: NewClassifier(c, cfg),
		extractor:  NewExtractor(c, cfg),
		history:    history,
		floor:      cfg.ConfidenceFloor,
	}
}

// Process handles one message. The returned error is the extraction
// failure, if any; classifier and history failures only downgrade the
// outcome and are logged.
func (p *Pipeline) Process(ctx context.Context, msg model.Message) (*Result, error) {
	content := msg.Content()
	log := zap.L().With(zap.String("message_id", msg.ID), zap.String("source", string(msg.Source)))

	signal, err := p.classifier.Classify(ctx, content)
	if err != nil {
		kind, _ := KindOf(err)
		log.Warn("extract: reorder check failed", zap.String("kind", string(kind)), zap.Error(err))
	}

	res := &Result{Outcome: OutcomeStandard, Signal: signal}
	if signal.IsReorder && signal.Candidate() != "" {
		res.Outcome = OutcomeReorderNoHistory
		if hist, name := p.lookup(ctx, log, signal.Candidate()); hist != nil {
			return p.reorder(ctx, log, res, content, hist, name)
		}
	}

	rec, err := p.extractor.Extract(ctx, content)
	if err != nil {
		kind, _ := KindOf(err)
		log.Warn("extract: extraction failed", zap.String("outcome", string(res.Outcome)), zap.String("kind", string(kind)), zap.Error(err))
		return res, err
	}
	res.Order = rec

	log.Info("extract: message processed",
		zap.String("outcome", string(res.Outcome)),
		zap.Bool("purchase_order", rec.IsPurchaseOrder),
		zap.Int("confidence", rec.Confidence),
	)
	return res, nil
}

func (p *Pipeline) lookup(ctx context.Context, log *zap.Logger, candidate string) (*model.Order, string) {
	if p.history == nil {
		return nil, ""
	}
	hist, name, err := p.history.LastOrder(ctx, candidate)
	if err != nil {
		log.Warn("extract: history lookup failed", zap.String("candidate", candidate), zap.Error(err))
		return nil, ""
	}
	if hist == nil {
		log.Info("extract: no history for reorder", zap.String("candidate", candidate), zap.String("client", name))
		return nil, ""
	}
	return hist, name
}

// reorder extracts the explicit details of a reorder request and fills the
// rest from hist. A failed extraction is final.
func (p *Pipeline) reorder(ctx context.Context, log *zap.Logger, res *Result, content string, hist *model.Order, clientName string) (*Result, error) {
	res.History = hist

	rec, err := p.extractor.Extract(ctx, content)
	if err != nil {
		kind, _ := KindOf(err)
		log.Warn("extract: extraction failed", zap.String("outcome", string(OutcomeReorderFilled)), zap.String("kind", string(kind)), zap.Error(err))
		res.Outcome = OutcomeReorderFilled
		return res, err
	}

	rec.ClientName = clientName
	merged := Reconcile(rec, hist, p.floor)
	merged.IsPurchaseOrder = true
	merged.IsReorder = true

	res.Outcome = OutcomeReorderFilled
	res.Order = merged

	log.Info("extract: reorder filled from history",
		zap.String("client", clientName),
		zap.String("history_order", hist.SourceRef()),
		zap.Strings("fields", merged.HistoryFields),
		zap.Int("confidence", merged.Confidence),
	)
	return res, nil
}

// ExtractFromMessage is the single entry point for callers that only need
// the record: it returns nil when no order could be identified and never
// returns an error.
func (p *Pipeline) ExtractFromMessage(ctx context.Context, msg model.Message) (rec *model.OrderRecord) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("extract: panic while processing message",
				zap.String("message_id", msg.ID),
				zap.Any("panic", r),
			)
			rec = nil
		}
	}()

	res, err := p.Process(ctx, msg)
	if err != nil || res == nil {
		return nil
	}
	return res.Order
}
