package store

import (
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// orderColumns is the select list every order query shares; scanOrder reads
// it in this order.
const orderColumns = `o.id, o.client_id, o.status, o.source, o.message_id, o.message_subject, o.message_from, o.record, o.validated_by, o.validated_at, o.created_at, o.updated_at`

const clientColumns = `id, nom, email, telephone, created_at`

type scannable interface {
	Scan(dest ...any) error
}

func scanOrder(row scannable) (*model.Order, error) {
	var (
		o           model.Order
		clientID    *string
		record      []byte
		validatedAt *time.Time
	)
	if err := row.Scan(
		&o.ID, &clientID, &o.Status, &o.Source,
		&o.MessageID, &o.MessageSubject, &o.MessageFrom,
		&record, &o.ValidatedBy, &validatedAt, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if clientID != nil {
		o.ClientID = *clientID
	}
	if validatedAt != nil {
		t := validatedAt.UTC()
		o.ValidatedAt = &t
	}
	if err := json.Unmarshal(record, &o.OrderRecord); err != nil {
		return nil, eris.Wrapf(err, "unmarshal order record %s", o.ID)
	}
	return &o, nil
}

func scanClient(row scannable) (*model.Client, error) {
	var c model.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func marshalRecord(rec *model.OrderRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "marshal order record")
	}
	return data, nil
}

// statusStamp returns the validated_at value for a status change.
func statusStamp(status model.OrderStatus, now time.Time) *time.Time {
	if status == model.OrderStatusValidated {
		return &now
	}
	return nil
}

const statsQuery = `SELECT
	COUNT(*),
	COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'validated' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN is_reorder THEN 1 ELSE 0 END), 0),
	COALESCE(SUM(CASE WHEN filled_from_history THEN 1 ELSE 0 END), 0),
	(SELECT COUNT(*) FROM clients)
FROM orders`

func scanStats(row scannable) (*model.Stats, error) {
	var s model.Stats
	if err := row.Scan(&s.Total, &s.Pending, &s.Validated, &s.Rejected, &s.Reorders, &s.FilledFromHistory, &s.Clients); err != nil {
		return nil, err
	}
	return &s, nil
}
