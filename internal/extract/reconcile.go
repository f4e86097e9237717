package extract

import (
	"fmt"
	"strings"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Field names recorded in OrderRecord.HistoryFields.
const (
	FieldProductType        = "type_produit"
	FieldProductDescription = "nature_produit"
	FieldQuantity           = "quantite"
	FieldUnit               = "unite"
	FieldUnitPrice          = "prix_unitaire"
	FieldTotalPrice         = "prix_total"
	FieldCurrency           = "devise"
)

// Reconcile fills the fields rec is missing from hist and returns the
// result as a new record; rec is never modified. A value already present in
// rec always wins. Numbers equal to zero and blank strings count as missing.
// When at least one field is copied the record is marked as filled from
// history, the notes get a provenance prefix and the confidence is raised
// to floor.
func Reconcile(rec *model.OrderRecord, hist *model.Order, floor int) *model.OrderRecord {
	if rec == nil || hist == nil {
		return rec
	}

	out := rec.Clone()
	var filled []string

	if emptyProduct(out.ProductType) && !emptyProduct(hist.ProductType) {
		out.ProductType = model.Ptr(*hist.ProductType)
		filled = append(filled, FieldProductType)
	}
	fillString(&out.ProductDescription, hist.ProductDescription, FieldProductDescription, &filled)
	fillNumber(&out.Quantity, hist.Quantity, FieldQuantity, &filled)
	fillString(&out.Unit, hist.Unit, FieldUnit, &filled)
	fillNumber(&out.UnitPrice, hist.UnitPrice, FieldUnitPrice, &filled)
	fillNumber(&out.TotalPrice, hist.TotalPrice, FieldTotalPrice, &filled)
	fillString(&out.Currency, hist.Currency, FieldCurrency, &filled)

	if len(filled) == 0 {
		return out
	}

	src := hist.SourceRef()
	out.FilledFromHistory = true
	out.HistoryFields = filled
	out.HistorySourceOrder = src

	note := fmt.Sprintf("[auto-rempli depuis l'historique %s: %s]", src, strings.Join(filled, ", "))
	if notes := strings.TrimSpace(out.Notes); notes != "" {
		note += " " + notes
	}
	out.Notes = note

	if out.Confidence < floor {
		out.Confidence = floor
	}
	return out
}

func fillString(dst **string, src *string, field string, filled *[]string) {
	if emptyString(*dst) && !emptyString(src) {
		*dst = model.Ptr(*src)
		*filled = append(*filled, field)
	}
}

func fillNumber(dst **float64, src *float64, field string, filled *[]string) {
	if emptyNumber(*dst) && !emptyNumber(src) {
		*dst = model.Ptr(*src)
		*filled = append(*filled, field)
	}
}

func emptyString(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

func emptyNumber(f *float64) bool {
	return f == nil || *f == 0
}

func emptyProduct(p *model.ProductType) bool {
	return p == nil || *p == ""
}
