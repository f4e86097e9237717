package model

import (
	"slices"
	"time"
)

// OrderStatus is the review state of a persisted order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusValidated OrderStatus = "validated"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusValidated, OrderStatusRejected:
		return true
	default:
		return false
	}
}

// OrderRecord is the structured result of extracting a purchase order from
// one inbound message. Optional fields are nil when the extractor could not
// find them. The JSON keys are shared with the extraction prompt and the API.
type OrderRecord struct {
	OrderNumber        *string      `json:"numero_commande"`
	ClientName         string       `json:"entreprise_cliente"`
	ProductType        *ProductType `json:"type_produit"`
	ProductDescription *string      `json:"nature_produit"`
	Quantity           *float64     `json:"quantite"`
	Unit               *string      `json:"unite"`
	UnitPrice          *float64     `json:"prix_unitaire"`
	TotalPrice         *float64     `json:"prix_total"`
	Currency           *string      `json:"devise"`
	DeliveryDate       *string      `json:"date_livraison"`
	OrderDate          *string      `json:"date_commande"`
	Notes              string       `json:"informations_supplementaires"`
	Confidence         int          `json:"confiance"`
	IsPurchaseOrder    bool         `json:"est_bon_commande"`

	// Provenance, set by reorder handling.
	IsReorder          bool     `json:"is_reorder,omitempty"`
	FilledFromHistory  bool     `json:"filled_from_history,omitempty"`
	HistoryFields      []string `json:"history_fields,omitempty"`
	HistorySourceOrder string   `json:"history_source_order,omitempty"`
}

// Clone returns a deep copy so callers can derive a new record without
// touching one that may already be handed to persistence.
func (r *OrderRecord) Clone() *OrderRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.OrderNumber = clonePtr(r.OrderNumber)
	c.ProductType = clonePtr(r.ProductType)
	c.ProductDescription = clonePtr(r.ProductDescription)
	c.Quantity = clonePtr(r.Quantity)
	c.Unit = clonePtr(r.Unit)
	c.UnitPrice = clonePtr(r.UnitPrice)
	c.TotalPrice = clonePtr(r.TotalPrice)
	c.Currency = clonePtr(r.Currency)
	c.DeliveryDate = clonePtr(r.DeliveryDate)
	c.OrderDate = clonePtr(r.OrderDate)
	c.HistoryFields = slices.Clone(r.HistoryFields)
	return &c
}

// ReorderSignal is the classifier's judgment on whether a message asks to
// repeat a previous order. It lives only for the duration of one request.
type ReorderSignal struct {
	IsReorder  bool     `json:"is_reorder"`
	Indicators []string `json:"reorder_indicators"`
	ClientName *string  `json:"client_name"`
	Confidence int      `json:"confidence"`
}

// Candidate returns the client name mentioned in the message, or "".
func (s ReorderSignal) Candidate() string {
	if s.ClientName == nil {
		return ""
	}
	return *s.ClientName
}

// Client is a known customer.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"nom"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"telephone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Order is a persisted OrderRecord together with its review state and the
// metadata of the message it came from. The extraction pipeline reads
// orders as client history.
type Order struct {
	ID             string      `json:"id"`
	ClientID       string      `json:"client_id,omitempty"`
	Status         OrderStatus `json:"statut"`
	Source         Source      `json:"source"`
	MessageID      string      `json:"message_id,omitempty"`
	MessageSubject string      `json:"message_subject,omitempty"`
	MessageFrom    string      `json:"message_from,omitempty"`
	ValidatedBy    string      `json:"validated_by,omitempty"`
	ValidatedAt    *time.Time  `json:"validated_at,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	OrderRecord
}

// SourceRef identifies the order in provenance notes: its order number when
// the customer gave one, otherwise "ID-<id>".
func (o *Order) SourceRef() string {
	if o.OrderNumber != nil && *o.OrderNumber != "" {
		return *o.OrderNumber
	}
	return "ID-" + o.ID
}

// Stats summarizes the order book for the dashboard API.
type Stats struct {
	Total             int `json:"total"`
	Pending           int `json:"pending"`
	Validated         int `json:"validated"`
	Rejected          int `json:"rejected"`
	Reorders          int `json:"reorders"`
	FilledFromHistory int `json:"filled_from_history"`
	Clients           int `json:"clients"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
