// Package intake turns inbound messages into stored orders: attachments
// are read, the extraction pipeline runs, purchase orders are persisted and
// the sender is acknowledged.
package intake

import (
	"context"
	"slices"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salaheddineelazouti/Projet-innovation/internal/attach"
	"github.com/salaheddineelazouti/Projet-innovation/internal/extract"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/notify"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

// Status summarizes what happened to one message.
type Status string

const (
	StatusSaved     Status = "saved"
	StatusExtracted Status = "extracted"
	StatusNotOrder  Status = "not_order"
	StatusFailed    Status = "failed"
)

// Outcome is the result of processing one message.
type Outcome struct {
	MessageID string
	Source    model.Source
	// Result is the pipeline result; nil when the message never reached it.
	Result *extract.Result
	// Order is the persisted order, nil when nothing was saved.
	Order *model.Order
	// Reply is the acknowledgement for the sender.
	Reply notify.Text
	// Err is the failure that stopped processing, if any.
	Err error
}

// Record returns the extracted order record, or nil.
func (o *Outcome) Record() *model.OrderRecord {
	if o.Result == nil {
		return nil
	}
	return o.Result.Order
}

// Status classifies the outcome.
func (o *Outcome) Status() Status {
	switch {
	case o.Order != nil:
		return StatusSaved
	case o.Err != nil:
		return StatusFailed
	case o.Record() != nil && o.Record().IsPurchaseOrder:
		return StatusExtracted
	default:
		return StatusNotOrder
	}
}

// Processor handles inbound messages. A nil store runs extraction without
// persisting; a nil notifier sends nothing.
type Processor struct {
	store    store.Store
	pipeline *extract.Pipeline
	attach   attach.TextExtractor
	notifier *notify.Notifier
	company  string
}

// NewProcessor creates a processor.
func NewProcessor(st store.Store, p *extract.Pipeline, ax attach.TextExtractor, n *notify.Notifier) *Processor {
	pr := &Processor{store: st, pipeline: p, attach: ax, notifier: n, company: "Service Commandes"}
	if n != nil {
		pr.company = n.Company()
	}
	return pr
}

// Process extracts and persists msg without notifying the sender. The
// returned error is a persistence failure; extraction failures are reported
// in Outcome.Err and produce the fallback reply.
func (p *Processor) Process(ctx context.Context, msg model.Message) (*Outcome, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Source == "" {
		msg.Source = model.SourceEmail
	}
	out := &Outcome{MessageID: msg.ID, Source: msg.Source}
	log := zap.L().With(zap.String("message_id", msg.ID), zap.String("source", string(msg.Source)))

	if p.attach != nil && len(msg.Attachments) > 0 {
		msg.Attachments = slices.Clone(msg.Attachments)
		n := attach.Fill(ctx, p.attach, &msg)
		log.Debug("intake: attachments read", zap.Int("count", n))
	}

	res, err := p.pipeline.Process(ctx, msg)
	out.Result = res
	if err != nil {
		out.Err = err
		out.Reply = notify.FallbackText(p.company)
		return out, nil
	}

	rec := res.Order
	if rec == nil || !rec.IsPurchaseOrder {
		out.Reply = notify.FallbackText(p.company)
		log.Info("intake: message is not a purchase order")
		return out, nil
	}

	if p.store == nil {
		out.Reply = notify.ReceivedText(p.company, &model.Order{ID: msg.ID, Source: msg.Source, MessageFrom: msg.From, OrderRecord: *rec})
		return out, nil
	}

	o, err := p.store.CreateOrder(ctx, rec, store.MetaFor(msg))
	if err != nil {
		out.Err = eris.Wrap(err, "intake: save order")
		return out, out.Err
	}
	out.Order = o
	out.Reply = notify.ReceivedText(p.company, o)

	log.Info("intake: order saved",
		zap.String("order_id", o.ID),
		zap.String("client", o.ClientName),
		zap.String("outcome", string(res.Outcome)),
	)
	return out, nil
}

// Handle processes msg and sends the acknowledgement on its channel.
// Notification failures are logged, not returned.
func (p *Processor) Handle(ctx context.Context, msg model.Message) (*Outcome, error) {
	out, err := p.Process(ctx, msg)
	if err != nil || p.notifier == nil {
		return out, err
	}

	if out.Order != nil {
		err = p.notifier.Received(ctx, out.Order)
	} else {
		msg.ID = out.MessageID
		msg.Source = out.Source
		err = p.notifier.Fallback(ctx, msg)
	}
	if err != nil {
		zap.L().Warn("intake: acknowledgement failed", zap.String("message_id", out.MessageID), zap.Error(err))
	}
	return out, nil
}

// ProcessBatch handles msgs with at most limit in flight. A failed message
// is recorded in its outcome and never stops the others. Outcomes are in
// input order.
func (p *Processor) ProcessBatch(ctx context.Context, msgs []model.Message, limit int) ([]*Outcome, error) {
	if limit <= 0 {
		limit = 1
	}
	outcomes := make([]*Outcome, len(msgs))
	if len(msgs) == 0 {
		zap.L().Info("intake: no messages to process")
		return outcomes, nil
	}

	zap.L().Info("intake: processing batch",
		zap.Int("messages", len(msgs)),
		zap.Int("concurrency", limit),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	var saved, failed atomic.Int64

	for i, msg := range msgs {
		g.Go(func() error {
			out, err := p.Handle(gctx, msg)
			if out == nil {
				out = &Outcome{MessageID: msg.ID, Source: msg.Source}
			}
			if err != nil {
				out.Err = err
			}
			switch out.Status() {
			case StatusSaved:
				saved.Add(1)
			case StatusFailed:
				failed.Add(1)
				zap.L().Error("intake: message failed", zap.String("message_id", out.MessageID), zap.Error(out.Err))
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, eris.Wrap(err, "intake: batch")
	}

	zap.L().Info("intake: batch complete",
		zap.Int("messages", len(msgs)),
		zap.Int64("saved", saved.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return outcomes, nil
}
