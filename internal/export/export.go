// Package export writes the order book to spreadsheets and reads client
// lists from them.
package export

import (
	"strconv"
	"strings"
	"time"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Columns is the header row shared by every export format.
var Columns = []string{
	"ID",
	"N° commande",
	"Client",
	"Type produit",
	"Nature produit",
	"Quantité",
	"Unité",
	"Prix unitaire",
	"Prix total",
	"Devise",
	"Date commande",
	"Date livraison",
	"Statut",
	"Source",
	"Expéditeur",
	"Recommande",
	"Rempli depuis historique",
	"Champs historique",
	"Commande source",
	"Confiance",
	"Créée le",
	"Validée le",
	"Notes",
}

// numeric column indexes, written as numbers in XLSX.
const (
	colQuantity   = 5
	colUnitPrice  = 7
	colTotalPrice = 8
	colConfidence = 19
)

const timeLayout = "2006-01-02 15:04"

func row(o *model.Order) []string {
	return []string{
		o.ID,
		str(o.OrderNumber),
		o.ClientName,
		str(o.ProductType),
		str(o.ProductDescription),
		num(o.Quantity),
		str(o.Unit),
		num(o.UnitPrice),
		num(o.TotalPrice),
		str(o.Currency),
		str(o.OrderDate),
		str(o.DeliveryDate),
		string(o.Status),
		string(o.Source),
		o.MessageFrom,
		yesNo(o.IsReorder),
		yesNo(o.FilledFromHistory),
		strings.Join(o.HistoryFields, ", "),
		o.HistorySourceOrder,
		strconv.Itoa(o.Confidence),
		formatTime(&o.CreatedAt),
		formatTime(o.ValidatedAt),
		o.Notes,
	}
}

func str[T ~string](p *T) string {
	if p == nil {
		return ""
	}
	return string(*p)
}

func num(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "oui"
	}
	return "non"
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}
