// Package history finds the prior order a reorder message refers to.
package history

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salaheddineelazouti/Projet-innovation/internal/match"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
	"github.com/salaheddineelazouti/Projet-innovation/internal/store"
)

// Lookup resolves a free-text client name to a stored client and returns
// that client's most relevant past order. It only reads from the store.
type Lookup struct {
	reader  store.HistoryReader
	matcher *match.Matcher
}

// NewLookup creates a Lookup over reader.
func NewLookup(reader store.HistoryReader, matcher *match.Matcher) *Lookup {
	if matcher == nil {
		matcher = match.NewMatcher(match.DefaultConfig())
	}
	return &Lookup{reader: reader, matcher: matcher}
}

// ResolveClient returns the stored client name that best matches name, or
// "" when no known client clears the match threshold.
func (l *Lookup) ResolveClient(ctx context.Context, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil
	}
	names, err := l.reader.ListClientNames(ctx)
	if err != nil {
		return "", eris.Wrap(err, "history: list clients")
	}
	best, ok := l.matcher.Best(name, names)
	if !ok {
		zap.L().Debug("history: no client match", zap.String("candidate", name), zap.Int("known", len(names)))
		return "", nil
	}
	zap.L().Debug("history: client matched",
		zap.String("candidate", name),
		zap.String("client", best.Name),
		zap.Float64("score", best.Score),
	)
	return best.Name, nil
}

// LastOrder returns the client's latest validated order, falling back to
// its latest order of any status, along with the resolved stored name.
// It returns (nil, "", nil) when the name matches no client, and
// (nil, name, nil) when the client has no orders.
func (l *Lookup) LastOrder(ctx context.Context, clientName string) (*model.Order, string, error) {
	resolved, err := l.ResolveClient(ctx, clientName)
	if err != nil || resolved == "" {
		return nil, "", err
	}

	o, err := l.reader.LatestValidatedOrder(ctx, resolved)
	if err != nil {
		return nil, resolved, eris.Wrapf(err, "history: latest validated order for %s", resolved)
	}
	if o != nil {
		return o, resolved, nil
	}

	o, err = l.reader.LatestOrder(ctx, resolved)
	if err != nil {
		return nil, resolved, eris.Wrapf(err, "history: latest order for %s", resolved)
	}
	return o, resolved, nil
}
