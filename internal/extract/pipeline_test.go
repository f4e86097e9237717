package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/salaheddineelazouti/Projet-innovation/internal/history"
	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/match"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

func chhiwatHistory() *fakeHistory {
	return &fakeHistory{
		names: []string{"Restaurant Atlas", "Chhiwat Fes", "Boulangerie Amal"},
		validated: map[string]*model.Order{
			"Chhiwat Fes": {
				ID:     "h-1",
				Status: model.OrderStatusValidated,
				OrderRecord: model.OrderRecord{
					OrderNumber: model.Ptr("BC-0042"),
					ClientName:  "Chhiwat Fes",
					ProductType: model.Ptr(model.ProductFlatBottomPouch),
					Quantity:    model.Ptr(2000.0),
					Unit:        model.Ptr("pièces"),
				},
			},
		},
	}
}

func newPipeline(c *mockCompleter, h *fakeHistory) *Pipeline {
	var src HistorySource
	if h != nil {
		src = history.NewLookup(h, match.NewMatcher(match.DefaultConfig()))
	}
	return NewPipeline(c, src, DefaultConfig())
}

func TestPipeline_ReorderFilledFromHistory(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{
		"is_reorder": true,
		"reorder_indicators": ["comme d'habitude"],
		"client_name": "chhiwat fes",
		"confidence": 90
	}`, nil).Once()
	c.On("Complete", mock.Anything, step("extract")).Return(`{
		"entreprise_cliente": "chhiwat fes",
		"type_produit": null,
		"quantite": null,
		"unite": null,
		"confiance": 40,
		"est_bon_commande": false
	}`, nil).Once()

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("commande chhiwat fes comme d'habitude"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorderFilled, res.Outcome)
	assert.True(t, res.Signal.IsReorder)
	require.NotNil(t, res.History)
	assert.Equal(t, "h-1", res.History.ID)

	rec := res.Order
	require.NotNil(t, rec)
	assert.Equal(t, "Chhiwat Fes", rec.ClientName)
	assert.InDelta(t, 2000.0, *rec.Quantity, 0.001)
	assert.Equal(t, "pièces", *rec.Unit)
	assert.Equal(t, model.ProductFlatBottomPouch, *rec.ProductType)
	assert.True(t, rec.FilledFromHistory)
	assert.True(t, rec.IsReorder)
	assert.True(t, rec.IsPurchaseOrder)
	assert.GreaterOrEqual(t, rec.Confidence, 85)
	assert.Equal(t, "BC-0042", rec.HistorySourceOrder)
	c.AssertExpectations(t)
}

func TestPipeline_ExplicitDetailsBeatHistory(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": "Chhiwat Fès", "confidence": 80}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{"quantite": 500, "confiance": 92}`, nil)

	rec := newPipeline(c, chhiwatHistory()).ExtractFromMessage(context.Background(), message("kif dima chhiwat fès mais 500 pièces"))
	require.NotNil(t, rec)
	assert.InDelta(t, 500.0, *rec.Quantity, 0.001)
	assert.NotContains(t, rec.HistoryFields, FieldQuantity)
	assert.Contains(t, rec.HistoryFields, FieldUnit)
	assert.Equal(t, 92, rec.Confidence)
}

func TestPipeline_ReorderWithoutMatchingClient(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{
		"is_reorder": true,
		"reorder_indicators": ["même commande"],
		"client_name": "Société Inconnue",
		"confidence": 85
	}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{
		"entreprise_cliente": "Société Inconnue",
		"quantite": 300,
		"confiance": 60,
		"est_bon_commande": true
	}`, nil).Once()

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("même commande pour Société Inconnue"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorderNoHistory, res.Outcome)
	assert.Nil(t, res.History)
	require.NotNil(t, res.Order)
	assert.False(t, res.Order.IsReorder)
	assert.False(t, res.Order.FilledFromHistory)
	assert.Empty(t, res.Order.HistoryFields)
	assert.Equal(t, "Société Inconnue", res.Order.ClientName)
	assert.Equal(t, 60, res.Order.Confidence)
}

func TestPipeline_MatchedClientWithoutOrders(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": "boulangerie amal"}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{"confiance": 50}`, nil)

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("comme d'habitude, boulangerie amal"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorderNoHistory, res.Outcome)
	assert.Empty(t, res.Order.HistoryFields)
}

func TestPipeline_StandardExtraction(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": false, "client_name": "Chhiwat Fes", "confidence": 95}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(fullOrderJSON, nil)

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("bon de commande BC-2024-117"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStandard, res.Outcome)
	assert.Equal(t, "Restaurant Atlas", res.Order.ClientName)
	assert.False(t, res.Order.FilledFromHistory)
}

func TestPipeline_ReorderWithoutClientName(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": null}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{"confiance": 30}`, nil)

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("comme d'habitude"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStandard, res.Outcome)
}

func TestPipeline_ClassifierFailureFallsThrough(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return("", context.DeadlineExceeded)
	c.On("Complete", mock.Anything, step("extract")).Return(fullOrderJSON, nil)

	res, err := newPipeline(c, chhiwatHistory()).Process(context.Background(), message("commande chhiwat fes comme d'habitude"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeStandard, res.Outcome)
	assert.False(t, res.Signal.IsReorder)
	require.NotNil(t, res.Order)
}

func TestPipeline_HistoryErrorDegrades(t *testing.T) {
	h := chhiwatHistory()
	h.err = errors.New("database is locked")

	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": "chhiwat fes"}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{"confiance": 55}`, nil)

	res, err := newPipeline(c, h).Process(context.Background(), message("comme d'habitude"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorderNoHistory, res.Outcome)
	assert.False(t, res.Order.FilledFromHistory)
}

func TestPipeline_NoHistorySource(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": "chhiwat fes"}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return(`{"confiance": 55}`, nil)

	res, err := newPipeline(c, nil).Process(context.Background(), message("comme d'habitude"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeReorderNoHistory, res.Outcome)
}

func TestPipeline_ReorderExtractionFailureIsFinal(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return(`{"is_reorder": true, "client_name": "chhiwat fes"}`, nil)
	c.On("Complete", mock.Anything, step("extract")).Return("pas du json", nil)

	p := newPipeline(c, chhiwatHistory())
	res, err := p.Process(context.Background(), message("commande chhiwat fes comme d'habitude"))
	require.Error(t, err)
	kind, _ := KindOf(err)
	assert.Equal(t, KindMalformed, kind)
	assert.Equal(t, OutcomeReorderFilled, res.Outcome)
	assert.Nil(t, res.Order)
	c.AssertNumberOfCalls(t, "Complete", 2)
}

func TestExtractFromMessage_NilOnFailure(t *testing.T) {
	c := &mockCompleter{}
	c.On("Complete", mock.Anything, step("classify")).Return("", errors.New("connection reset by peer"))
	c.On("Complete", mock.Anything, step("extract")).Return("", errors.New("connection reset by peer"))

	rec := newPipeline(c, chhiwatHistory()).ExtractFromMessage(context.Background(), message("bonjour"))
	assert.Nil(t, rec)
}

type panicCompleter struct{}

func (panicCompleter) Complete(context.Context, llm.Request) (string, error) {
	panic("boom")
}

func TestExtractFromMessage_RecoversPanic(t *testing.T) {
	p := NewPipeline(panicCompleter{}, nil, DefaultConfig())
	assert.NotPanics(t, func() {
		assert.Nil(t, p.ExtractFromMessage(context.Background(), message("x")))
	})
}
