package store

import (
	"context"
	"errors"
	"time"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// ErrNotFound is returned by mutations that target a missing row.
var ErrNotFound = errors.New("store: not found")

// ClientReader lists the names of known clients.
type ClientReader interface {
	ListClientNames(ctx context.Context) ([]string, error)
}

// HistoryReader is the read-only view of past orders used by reorder
// handling. Both order lookups return (nil, nil) when nothing matches.
type HistoryReader interface {
	ClientReader
	// LatestValidatedOrder returns the client's most recently validated
	// order (validated_at DESC, then created_at DESC).
	LatestValidatedOrder(ctx context.Context, clientName string) (*model.Order, error)
	// LatestOrder returns the client's most recent order of any status.
	LatestOrder(ctx context.Context, clientName string) (*model.Order, error)
}

// MessageMeta identifies the inbound message an order was extracted from.
type MessageMeta struct {
	ID      string       `json:"id,omitempty"`
	Source  model.Source `json:"source"`
	Subject string       `json:"subject,omitempty"`
	From    string       `json:"from,omitempty"`
}

// MetaFor builds the MessageMeta of msg.
func MetaFor(msg model.Message) MessageMeta {
	return MessageMeta{ID: msg.ID, Source: msg.Source, Subject: msg.Subject, From: msg.From}
}

// OrderFilter specifies criteria for listing orders.
type OrderFilter struct {
	Status model.OrderStatus `json:"status,omitempty"`
	Source model.Source      `json:"source,omitempty"`
	From   time.Time         `json:"from,omitempty"`
	To     time.Time         `json:"to,omitempty"`
	Limit  int               `json:"limit,omitempty"`
	Offset int               `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f OrderFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// OrderPatch holds reviewer corrections. Nil fields are left unchanged.
type OrderPatch struct {
	OrderNumber        *string            `json:"numero_commande,omitempty"`
	ProductType        *model.ProductType `json:"type_produit,omitempty"`
	ProductDescription *string            `json:"nature_produit,omitempty"`
	Quantity           *float64           `json:"quantite,omitempty"`
	Unit               *string            `json:"unite,omitempty"`
	UnitPrice          *float64           `json:"prix_unitaire,omitempty"`
	TotalPrice         *float64           `json:"prix_total,omitempty"`
	Currency           *string            `json:"devise,omitempty"`
	DeliveryDate       *string            `json:"date_livraison,omitempty"`
	Notes              *string            `json:"informations_supplementaires,omitempty"`
}

// Apply writes the non-nil fields of p into rec.
func (p OrderPatch) Apply(rec *model.OrderRecord) {
	if p.OrderNumber != nil {
		rec.OrderNumber = model.Ptr(*p.OrderNumber)
	}
	if p.ProductType != nil {
		rec.ProductType = model.Ptr(*p.ProductType)
	}
	if p.ProductDescription != nil {
		rec.ProductDescription = model.Ptr(*p.ProductDescription)
	}
	if p.Quantity != nil {
		rec.Quantity = model.Ptr(*p.Quantity)
	}
	if p.Unit != nil {
		rec.Unit = model.Ptr(*p.Unit)
	}
	if p.UnitPrice != nil {
		rec.UnitPrice = model.Ptr(*p.UnitPrice)
	}
	if p.TotalPrice != nil {
		rec.TotalPrice = model.Ptr(*p.TotalPrice)
	}
	if p.Currency != nil {
		rec.Currency = model.Ptr(*p.Currency)
	}
	if p.DeliveryDate != nil {
		rec.DeliveryDate = model.Ptr(*p.DeliveryDate)
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
}

// Empty reports whether the patch changes nothing.
func (p OrderPatch) Empty() bool {
	return p == OrderPatch{}
}

// Store defines the persistence interface for order intake.
type Store interface {
	HistoryReader

	// Orders
	CreateOrder(ctx context.Context, rec *model.OrderRecord, meta MessageMeta) (*model.Order, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, by string) error
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*model.Order, error)
	Stats(ctx context.Context) (*model.Stats, error)

	// Clients
	ListClients(ctx context.Context) ([]model.Client, error)
	GetClient(ctx context.Context, id string) (*model.Client, error)
	ClientOrders(ctx context.Context, clientID string, limit int) ([]model.Order, error)
	ImportClients(ctx context.Context, clients []model.Client) (int64, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}
