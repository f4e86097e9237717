package extract

import (
	"context"
	"strings"

	"github.com/salaheddineelazouti/Projet-innovation/internal/llm"
	"github.com/salaheddineelazouti/Projet-innovation/internal/match"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// Extractor turns message content into an order record.
type Extractor struct {
	llm llm.Completer
	cfg Config
}

// NewExtractor creates an extractor using the extractor settings of cfg.
func NewExtractor(c llm.Completer, cfg Config) *Extractor {
	return &Extractor{llm: c, cfg: cfg.withDefaults()}
}

type rawOrder struct {
	OrderNumber        flexString `json:"numero_commande"`
	ClientName         flexString `json:"entreprise_cliente"`
	ProductType        flexString `json:"type_produit"`
	ProductDescription flexString `json:"nature_produit"`
	Quantity           flexNumber `json:"quantite"`
	Unit               flexString `json:"unite"`
	UnitPrice          flexNumber `json:"prix_unitaire"`
	TotalPrice         flexNumber `json:"prix_total"`
	Currency           flexString `json:"devise"`
	DeliveryDate       flexString `json:"date_livraison"`
	OrderDate          flexString `json:"date_commande"`
	Notes              flexString `json:"informations_supplementaires"`
	Confidence         flexNumber `json:"confiance"`
	IsPurchaseOrder    flexBool   `json:"est_bon_commande"`
}

// Extract runs one completion call. There is no retry: an *Error means no
// order could be identified.
func (e *Extractor) Extract(ctx context.Context, content string) (*model.OrderRecord, error) {
	text, err := e.llm.Complete(ctx, llm.Request{
		Step:        "extract",
		Model:       e.cfg.ExtractorModel,
		System:      extractorSystemPrompt,
		Prompt:      extractorPrompt(model.Truncate(content, e.cfg.ExtractContextChars)),
		MaxTokens:   e.cfg.ExtractorMaxTokens,
		Temperature: *e.cfg.Temperature,
		JSON:        true,
	})
	if err != nil {
		return nil, callError("extract", err)
	}

	var raw rawOrder
	if err := decodeObject(text, &raw); err != nil {
		return nil, malformedError("extract", err)
	}
	return raw.record(), nil
}

func (r rawOrder) record() *model.OrderRecord {
	return &model.OrderRecord{
		OrderNumber:        r.OrderNumber.Value,
		ClientName:         r.ClientName.String(),
		ProductType:        CanonicalProduct(r.ProductType.String()),
		ProductDescription: r.ProductDescription.Value,
		Quantity:           r.Quantity.Value,
		Unit:               r.Unit.Value,
		UnitPrice:          r.UnitPrice.Value,
		TotalPrice:         r.TotalPrice.Value,
		Currency:           upper(r.Currency.Value),
		DeliveryDate:       r.DeliveryDate.Value,
		OrderDate:          r.OrderDate.Value,
		Notes:              r.Notes.String(),
		Confidence:         clampConfidence(r.Confidence.Value),
		IsPurchaseOrder:    bool(r.IsPurchaseOrder),
	}
}

// CanonicalProduct maps a free-text product type onto the catalog,
// ignoring case, accents and punctuation. Unknown types return nil.
func CanonicalProduct(raw string) *model.ProductType {
	key := productKey(raw)
	if key == "" {
		return nil
	}
	for _, p := range model.ProductCatalog {
		if productKey(string(p)) == key {
			return model.Ptr(p)
		}
	}
	return nil
}

func productKey(s string) string {
	return strings.Join(strings.Fields(match.Normalize(s)), " ")
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	return model.Ptr(strings.ToUpper(*s))
}
