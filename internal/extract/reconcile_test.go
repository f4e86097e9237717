package extract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

func historical() *model.Order {
	return &model.Order{
		ID:     "7f3c",
		Status: model.OrderStatusValidated,
		OrderRecord: model.OrderRecord{
			OrderNumber:        model.Ptr("BC-2024-0042"),
			ClientName:         "Chhiwat Fes",
			ProductType:        model.Ptr(model.ProductFlatBottomPouch),
			ProductDescription: model.Ptr("Kraft blanc 20x30"),
			Quantity:           model.Ptr(1000.0),
			Unit:               model.Ptr("pièces"),
			UnitPrice:          model.Ptr(0.5),
			TotalPrice:         model.Ptr(500.0),
			Currency:           model.Ptr("MAD"),
		},
	}
}

func TestReconcile_NilHistory(t *testing.T) {
	rec := &model.OrderRecord{ClientName: "X", Confidence: 40}
	assert.Same(t, rec, Reconcile(rec, nil, DefaultConfidenceFloor))
	assert.Nil(t, Reconcile(nil, historical(), DefaultConfidenceFloor))
}

func TestReconcile_NeverOverwrites(t *testing.T) {
	rec := &model.OrderRecord{Quantity: model.Ptr(500.0), Confidence: 60}

	out := Reconcile(rec, historical(), DefaultConfidenceFloor)
	require.NotNil(t, out.Quantity)
	assert.InDelta(t, 500.0, *out.Quantity, 0.001)
	assert.NotContains(t, out.HistoryFields, FieldQuantity)
}

func TestReconcile_FillsMissing(t *testing.T) {
	rec := &model.OrderRecord{ClientName: "Chhiwat Fes", Confidence: 40}

	out := Reconcile(rec, historical(), DefaultConfidenceFloor)
	assert.True(t, out.FilledFromHistory)
	assert.Equal(t, []string{
		FieldProductType, FieldProductDescription, FieldQuantity, FieldUnit,
		FieldUnitPrice, FieldTotalPrice, FieldCurrency,
	}, out.HistoryFields)
	assert.Equal(t, model.ProductFlatBottomPouch, *out.ProductType)
	assert.Equal(t, "Kraft blanc 20x30", *out.ProductDescription)
	assert.InDelta(t, 1000.0, *out.Quantity, 0.001)
	assert.Equal(t, "pièces", *out.Unit)
	assert.InDelta(t, 0.5, *out.UnitPrice, 0.001)
	assert.InDelta(t, 500.0, *out.TotalPrice, 0.001)
	assert.Equal(t, "MAD", *out.Currency)
	assert.Equal(t, "BC-2024-0042", out.HistorySourceOrder)
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	rec := &model.OrderRecord{Notes: "urgent", Confidence: 40}
	hist := historical()

	out := Reconcile(rec, hist, DefaultConfidenceFloor)
	assert.NotSame(t, rec, out)
	assert.Nil(t, rec.Quantity)
	assert.False(t, rec.FilledFromHistory)
	assert.Empty(t, rec.HistoryFields)
	assert.Equal(t, "urgent", rec.Notes)
	assert.Equal(t, 40, rec.Confidence)

	// The copy does not alias the history either.
	*out.Quantity = 1
	assert.InDelta(t, 1000.0, *hist.Quantity, 0.001)
}

func TestReconcile_ConfidenceFloor(t *testing.T) {
	low := Reconcile(&model.OrderRecord{Confidence: 40}, historical(), DefaultConfidenceFloor)
	assert.Equal(t, 85, low.Confidence)

	high := Reconcile(&model.OrderRecord{Confidence: 92}, historical(), DefaultConfidenceFloor)
	assert.Equal(t, 92, high.Confidence)

	custom := Reconcile(&model.OrderRecord{Confidence: 10}, historical(), 70)
	assert.Equal(t, 70, custom.Confidence)
}

func TestReconcile_NothingToFill(t *testing.T) {
	hist := historical()
	rec := hist.OrderRecord.Clone()
	rec.Quantity = model.Ptr(3000.0)
	rec.Confidence = 30

	out := Reconcile(rec, hist, DefaultConfidenceFloor)
	assert.False(t, out.FilledFromHistory)
	assert.Empty(t, out.HistoryFields)
	assert.Empty(t, out.HistorySourceOrder)
	assert.Equal(t, 30, out.Confidence)
	assert.Empty(t, out.Notes)
}

func TestReconcile_EmptyValuesCountAsMissing(t *testing.T) {
	rec := &model.OrderRecord{
		ProductType: model.Ptr(model.ProductType("")),
		Unit:        model.Ptr("  "),
		Quantity:    model.Ptr(0.0),
	}
	out := Reconcile(rec, historical(), DefaultConfidenceFloor)
	assert.Contains(t, out.HistoryFields, FieldProductType)
	assert.Contains(t, out.HistoryFields, FieldUnit)
	assert.Contains(t, out.HistoryFields, FieldQuantity)
}

func TestReconcile_SkipsEmptyHistoryValues(t *testing.T) {
	hist := historical()
	hist.UnitPrice = nil
	hist.TotalPrice = model.Ptr(0.0)
	hist.Currency = model.Ptr("")

	out := Reconcile(&model.OrderRecord{}, hist, DefaultConfidenceFloor)
	assert.NotContains(t, out.HistoryFields, FieldUnitPrice)
	assert.NotContains(t, out.HistoryFields, FieldTotalPrice)
	assert.NotContains(t, out.HistoryFields, FieldCurrency)
	assert.Nil(t, out.UnitPrice)
}

func TestReconcile_ProvenanceNote(t *testing.T) {
	hist := historical()
	hist.OrderNumber = nil
	rec := &model.OrderRecord{
		ProductType:        model.Ptr(model.ProductFlatBottomPouch),
		ProductDescription: model.Ptr("idem"),
		UnitPrice:          model.Ptr(0.6),
		TotalPrice:         model.Ptr(600.0),
		Currency:           model.Ptr("EUR"),
		Notes:              "livrer lundi",
	}

	out := Reconcile(rec, hist, DefaultConfidenceFloor)
	assert.Equal(t, "ID-7f3c", out.HistorySourceOrder)
	assert.Equal(t, []string{FieldQuantity, FieldUnit}, out.HistoryFields)
	assert.Equal(t, "[auto-rempli depuis l'historique ID-7f3c: quantite, unite] livrer lundi", out.Notes)
}

func TestReconcile_CompleteRecordUnchanged(t *testing.T) {
	rec := &model.OrderRecord{
		ClientName:         "Chhiwat Fes",
		ProductType:        model.Ptr(model.ProductSquareBottomFlatHandles),
		ProductDescription: model.Ptr("Kraft brun 32x42"),
		Quantity:           model.Ptr(500.0),
		Unit:               model.Ptr("pièces"),
		UnitPrice:          model.Ptr(1.2),
		TotalPrice:         model.Ptr(600.0),
		Currency:           model.Ptr("MAD"),
		Confidence:         40,
		Notes:              "livraison urgente",
		IsPurchaseOrder:    true,
	}

	out := Reconcile(rec, historical(), 85)
	require.NotSame(t, rec, out)
	if diff := cmp.Diff(rec, out); diff != "" {
		t.Errorf("Reconcile changed a complete record (-want +got):\n%s", diff)
	}
}
