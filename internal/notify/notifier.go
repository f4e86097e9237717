package notify

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// ErrInvalidRecipient is returned when the sender address cannot receive
// a reply on its channel.
var ErrInvalidRecipient = eris.New("notify: invalid recipient")

// Sender delivers one text to one recipient.
type Sender interface {
	Send(ctx context.Context, to string, t Text) error
}

// Notifier picks the channel from the order's source. A nil channel
// disables notifications on it.
type Notifier struct {
	company  string
	email    Sender
	whatsapp Sender
}

// NewNotifier creates a notifier.
func NewNotifier(company string, email, whatsapp Sender) *Notifier {
	if company == "" {
		company = "Service Commandes"
	}
	return &Notifier{company: company, email: email, whatsapp: whatsapp}
}

// Company returns the signature used in texts.
func (n *Notifier) Company() string {
	return n.company
}

// Received acknowledges a newly stored order.
func (n *Notifier) Received(ctx context.Context, o *model.Order) error {
	return n.send(ctx, o.Source, o.MessageFrom, ReceivedText(n.company, o), "received")
}

// Validated confirms a validated order.
func (n *Notifier) Validated(ctx context.Context, o *model.Order) error {
	return n.send(ctx, o.Source, o.MessageFrom, ValidatedText(n.company, o), "validated")
}

// Rejected informs the customer of a rejected order.
func (n *Notifier) Rejected(ctx context.Context, o *model.Order, reason string) error {
	return n.send(ctx, o.Source, o.MessageFrom, RejectedText(n.company, o, reason), "rejected")
}

// Fallback asks the sender of msg to restate their order.
func (n *Notifier) Fallback(ctx context.Context, msg model.Message) error {
	return n.send(ctx, msg.Source, msg.From, FallbackText(n.company), "fallback")
}

// Enabled reports whether a channel is configured for source.
func (n *Notifier) Enabled(source model.Source) bool {
	return n.channel(source) != nil
}

func (n *Notifier) channel(source model.Source) Sender {
	switch source {
	case model.SourceWhatsApp:
		return n.whatsapp
	case model.SourceEmail:
		return n.email
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, source model.Source, to string, t Text, kind string) error {
	ch := n.channel(source)
	if ch == nil {
		zap.L().Debug("notify: no channel for source",
			zap.String("source", string(source)),
			zap.String("kind", kind),
		)
		return nil
	}

	if err := ch.Send(ctx, to, t); err != nil {
		return eris.Wrapf(err, "notify: %s via %s", kind, source)
	}
	zap.L().Info("notify: sent",
		zap.String("source", string(source)),
		zap.String("kind", kind),
		zap.String("to", to),
	)
	return nil
}
