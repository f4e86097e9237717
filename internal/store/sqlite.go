package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, path: dsn}, nil
}

// DB exposes the handle for backups.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Path returns the database file the store was opened on.
func (s *SQLiteStore) Path() string {
	return s.path
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY,
	nom        TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL DEFAULT '',
	telephone  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_clients_nom_nocase ON clients(nom COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS orders (
	id                  TEXT PRIMARY KEY,
	client_id           TEXT REFERENCES clients(id),
	numero_commande     TEXT,
	status              TEXT NOT NULL DEFAULT 'pending',
	source              TEXT NOT NULL DEFAULT 'email',
	message_id          TEXT NOT NULL DEFAULT '',
	message_subject     TEXT NOT NULL DEFAULT '',
	message_from        TEXT NOT NULL DEFAULT '',
	record              TEXT NOT NULL,
	is_reorder          INTEGER NOT NULL DEFAULT 0,
	filled_from_history INTEGER NOT NULL DEFAULT 0,
	validated_by        TEXT NOT NULL DEFAULT '',
	validated_at        DATETIME,
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListClientNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT nom FROM clients ORDER BY nom`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list client names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "sqlite: list client names iterate")
}

func (s *SQLiteStore) LatestValidatedOrder(ctx context.Context, clientName string) (*model.Order, error) {
	// NULLs sort last under DESC in SQLite.
	return s.queryOneOrder(ctx, "latest validated order",
		`SELECT `+orderColumns+` FROM orders o JOIN clients c ON c.id = o.client_id
		WHERE c.nom = ? AND o.status = 'validated'
		ORDER BY o.validated_at DESC, o.created_at DESC LIMIT 1`,
		clientName,
	)
}

func (s *SQLiteStore) LatestOrder(ctx context.Context, clientName string) (*model.Order, error) {
	return s.queryOneOrder(ctx, "latest order",
		`SELECT `+orderColumns+` FROM orders o JOIN clients c ON c.id = o.client_id
		WHERE c.nom = ?
		ORDER BY o.created_at DESC LIMIT 1`,
		clientName,
	)
}

func (s *SQLiteStore) queryOneOrder(ctx context.Context, what, query string, args ...any) (*model.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", what)
	}
	return o, nil
}

func (s *SQLiteStore) findOrCreateClient(ctx context.Context, name string) (id, stored string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", nil
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT id, nom FROM clients WHERE nom = ? COLLATE NOCASE ORDER BY created_at LIMIT 1`, name,
	).Scan(&id, &stored)
	if err == nil {
		return id, stored, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", "", eris.Wrap(err, "sqlite: find client")
	}

	id = uuid.New().String()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, nom, created_at) VALUES (?, ?, ?)`,
		id, name, time.Now().UTC(),
	); err != nil {
		return "", "", eris.Wrap(err, "sqlite: insert client")
	}
	return id, name, nil
}

func (s *SQLiteStore) CreateOrder(ctx context.Context, rec *model.OrderRecord, meta MessageMeta) (*model.Order, error) {
	if rec == nil {
		return nil, eris.New("sqlite: create order: nil record")
	}
	clientID, clientName, err := s.findOrCreateClient(ctx, rec.ClientName)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	o := &model.Order{
		ID:             uuid.New().String(),
		ClientID:       clientID,
		Status:         model.OrderStatusPending,
		Source:         meta.Source,
		MessageID:      meta.ID,
		MessageSubject: meta.Subject,
		MessageFrom:    meta.From,
		CreatedAt:      now,
		UpdatedAt:      now,
		OrderRecord:    *rec.Clone(),
	}
	if clientName != "" {
		o.ClientName = clientName
	}
	if o.Source == "" {
		o.Source = model.SourceEmail
	}

	record, err := marshalRecord(&o.OrderRecord)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO orders (id, client_id, numero_commande, status, source, message_id, message_subject, message_from, record, is_reorder, filled_from_history, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, nullString(clientID), o.OrderNumber, string(o.Status), string(o.Source),
		o.MessageID, o.MessageSubject, o.MessageFrom, string(record),
		o.IsReorder, o.FilledFromHistory, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert order")
	}
	return o, nil
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.queryOneOrder(ctx, "get order "+id, `SELECT `+orderColumns+` FROM orders o WHERE o.id = ?`, id)
}

func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND o.status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		query += ` AND o.source = ?`
		args = append(args, string(filter.Source))
	}
	if !filter.From.IsZero() {
		query += ` AND o.created_at >= ?`
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		query += ` AND o.created_at < ?`
		args = append(args, filter.To.UTC())
	}
	query += ` ORDER BY o.created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return s.queryOrders(ctx, "list orders", query, args...)
}

func (s *SQLiteStore) queryOrders(ctx context.Context, what, query string, args ...any) ([]model.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", what)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan order (%s)", what)
		}
		orders = append(orders, *o)
	}
	return orders, eris.Wrapf(rows.Err(), "sqlite: %s iterate", what)
}

func (s *SQLiteStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, by string) error {
	if !status.Valid() {
		return eris.Errorf("sqlite: invalid order status %q", status)
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = ?, validated_by = ?, validated_at = ?, updated_at = ? WHERE id = ?`,
		string(status), by, statusStamp(status, now), now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update order status %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*model.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: order %s", id)
	}
	if patch.Empty() {
		return o, nil
	}

	patch.Apply(&o.OrderRecord)
	o.UpdatedAt = time.Now().UTC()
	record, err := marshalRecord(&o.OrderRecord)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET record = ?, numero_commande = ?, updated_at = ? WHERE id = ?`,
		string(record), o.OrderNumber, o.UpdatedAt, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update order %s", id)
	}
	if err := checkRowsAffected(res, id); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	st, err := scanStats(s.db.QueryRowContext(ctx, statsQuery))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats")
	}
	return st, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY nom`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list clients")
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan client")
		}
		clients = append(clients, *c)
	}
	return clients, eris.Wrap(rows.Err(), "sqlite: list clients iterate")
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get client %s", id)
	}
	return c, nil
}

func (s *SQLiteStore) ClientOrders(ctx context.Context, clientID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.queryOrders(ctx, "client orders",
		`SELECT `+orderColumns+` FROM orders o WHERE o.client_id = ? ORDER BY o.created_at DESC LIMIT ?`,
		clientID, limit,
	)
}

// ImportClients upserts clients by name inside one transaction.
func (s *SQLiteStore) ImportClients(ctx context.Context, clients []model.Client) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import clients begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO clients (id, nom, email, telephone, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(nom) DO UPDATE SET email = excluded.email, telephone = excluded.telephone`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: import clients prepare")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	var n int64
	for _, c := range clients {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		res, err := stmt.ExecContext(ctx, id, name, c.Email, c.Phone, now)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import client %q", name)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: import clients commit")
	}
	return n, nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: order %s", id)
	}
	return nil
}
