package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/salaheddineelazouti/Projet-innovation/internal/db"
	"github.com/salaheddineelazouti/Projet-innovation/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists the hot-path queries of message intake, prepared
// on each new connection.
var preparedStatements = map[string]string{
	"list_client_names":      `SELECT nom FROM clients ORDER BY nom`,
	"find_client":            `SELECT id, nom FROM clients WHERE lower(nom) = lower($1) ORDER BY created_at LIMIT 1`,
	"latest_validated_order": pgLatestValidatedQuery,
	"latest_order":           pgLatestOrderQuery,
}

const pgLatestValidatedQuery = `SELECT ` + orderColumns + ` FROM orders o JOIN clients c ON c.id = o.client_id
WHERE c.nom = $1 AND o.status = 'validated'
ORDER BY o.validated_at DESC NULLS LAST, o.created_at DESC LIMIT 1`

const pgLatestOrderQuery = `SELECT ` + orderColumns + ` FROM orders o JOIN clients c ON c.id = o.client_id
WHERE c.nom = $1
ORDER BY o.created_at DESC LIMIT 1`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS clients (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	nom        TEXT NOT NULL UNIQUE,
	email      TEXT NOT NULL DEFAULT '',
	telephone  TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_clients_nom_lower ON clients(lower(nom));

CREATE TABLE IF NOT EXISTS orders (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	client_id           TEXT REFERENCES clients(id),
	numero_commande     TEXT,
	status              TEXT NOT NULL DEFAULT 'pending',
	source              TEXT NOT NULL DEFAULT 'email',
	message_id          TEXT NOT NULL DEFAULT '',
	message_subject     TEXT NOT NULL DEFAULT '',
	message_from        TEXT NOT NULL DEFAULT '',
	record              JSONB NOT NULL,
	is_reorder          BOOLEAN NOT NULL DEFAULT false,
	filled_from_history BOOLEAN NOT NULL DEFAULT false,
	validated_by        TEXT NOT NULL DEFAULT '',
	validated_at        TIMESTAMPTZ,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_orders_client_id ON orders(client_id);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status);
CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_orders_client_validated ON orders(client_id, validated_at DESC) WHERE status = 'validated';
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) ListClientNames(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT nom FROM clients ORDER BY nom`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list client names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan client name")
		}
		names = append(names, name)
	}
	return names, eris.Wrap(rows.Err(), "postgres: iterate client names")
}

func (s *PostgresStore) LatestValidatedOrder(ctx context.Context, clientName string) (*model.Order, error) {
	return s.queryOneOrder(ctx, "latest validated order", pgLatestValidatedQuery, clientName)
}

func (s *PostgresStore) LatestOrder(ctx context.Context, clientName string) (*model.Order, error) {
	return s.queryOneOrder(ctx, "latest order", pgLatestOrderQuery, clientName)
}

func (s *PostgresStore) queryOneOrder(ctx context.Context, what, query string, args ...any) (*model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", what)
	}
	return o, nil
}

// findOrCreateClient resolves name case-insensitively, inserting it when no
// client matches. Empty names yield no client.
func (s *PostgresStore) findOrCreateClient(ctx context.Context, name string) (id, stored string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", nil
	}

	err = s.pool.QueryRow(ctx,
		`SELECT id, nom FROM clients WHERE lower(nom) = lower($1) ORDER BY created_at LIMIT 1`, name,
	).Scan(&id, &stored)
	if err == nil {
		return id, stored, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", "", eris.Wrap(err, "postgres: find client")
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO clients (id, nom, created_at) VALUES ($1, $2, $3)
		ON CONFLICT (nom) DO UPDATE SET nom = EXCLUDED.nom
		RETURNING id, nom`,
		uuid.New().String(), name, time.Now().UTC(),
	).Scan(&id, &stored)
	if err != nil {
		return "", "", eris.Wrap(err, "postgres: insert client")
	}
	return id, stored, nil
}

func (s *PostgresStore) CreateOrder(ctx context.Context, rec *model.OrderRecord, meta MessageMeta) (*model.Order, error) {
	if rec == nil {
		return nil, eris.New("postgres: create order: nil record")
	}
	clientID, clientName, err := s.findOrCreateClient(ctx, rec.ClientName)
	if err != nil {
		return nil, err
	}

	o := &model.Order{
		ID:             uuid.New().String(),
		ClientID:       clientID,
		Status:         model.OrderStatusPending,
		Source:         meta.Source,
		MessageID:      meta.ID,
		MessageSubject: meta.Subject,
		MessageFrom:    meta.From,
		OrderRecord:    *rec.Clone(),
	}
	if clientName != "" {
		o.ClientName = clientName
	}
	if o.Source == "" {
		o.Source = model.SourceEmail
	}
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt

	record, err := marshalRecord(&o.OrderRecord)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO orders (id, client_id, numero_commande, status, source, message_id, message_subject, message_from, record, is_reorder, filled_from_history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		o.ID, nullString(clientID), o.OrderNumber, string(o.Status), string(o.Source),
		o.MessageID, o.MessageSubject, o.MessageFrom, record,
		o.IsReorder, o.FilledFromHistory, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert order")
	}
	return o, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	return s.queryOneOrder(ctx, "get order "+id, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id)
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND o.status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Source != "" {
		query += fmt.Sprintf(` AND o.source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(` AND o.created_at >= $%d`, argIdx)
		args = append(args, filter.From.UTC())
		argIdx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(` AND o.created_at < $%d`, argIdx)
		args = append(args, filter.To.UTC())
		argIdx++
	}
	query += ` ORDER BY o.created_at DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	return s.queryOrders(ctx, "list orders", query, args...)
}

func (s *PostgresStore) queryOrders(ctx context.Context, what, query string, args ...any) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", what)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, eris.Wrapf(err, "postgres: scan order (%s)", what)
		}
		orders = append(orders, *o)
	}
	return orders, eris.Wrapf(rows.Err(), "postgres: iterate orders (%s)", what)
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, by string) error {
	if !status.Valid() {
		return eris.Errorf("postgres: invalid order status %q", status)
	}
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, validated_by = $2, validated_at = $3, updated_at = $4 WHERE id = $5`,
		string(status), by, statusStamp(status, now), now, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update order status %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: order %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateOrder(ctx context.Context, id string, patch OrderPatch) (*model.Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, eris.Wrapf(ErrNotFound, "postgres: order %s", id)
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

	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET record = $1, numero_commande = $2, updated_at = $3 WHERE id = $4`,
		record, o.OrderNumber, o.UpdatedAt, id,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update order %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrNotFound, "postgres: order %s", id)
	}
	return o, nil
}

func (s *PostgresStore) Stats(ctx context.Context) (*model.Stats, error) {
	st, err := scanStats(s.pool.QueryRow(ctx, statsQuery))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats")
	}
	return st, nil
}

func (s *PostgresStore) ListClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY nom`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list clients")
	}
	defer rows.Close()

	var clients []model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan client")
		}
		clients = append(clients, *c)
	}
	return clients, eris.Wrap(rows.Err(), "postgres: iterate clients")
}

func (s *PostgresStore) GetClient(ctx context.Context, id string) (*model.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get client %s", id)
	}
	return c, nil
}

func (s *PostgresStore) ClientOrders(ctx context.Context, clientID string, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.queryOrders(ctx, "client orders",
		`SELECT `+orderColumns+` FROM orders o WHERE o.client_id = $1 ORDER BY o.created_at DESC LIMIT $2`,
		clientID, limit,
	)
}

// ImportClients upserts clients by name, refreshing their contact details.
func (s *PostgresStore) ImportClients(ctx context.Context, clients []model.Client) (int64, error) {
	now := time.Now().UTC()
	rows := make([][]any, 0, len(clients))
	for _, c := range clients {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = uuid.New().String()
		}
		rows = append(rows, []any{id, name, c.Email, c.Phone, now})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "clients",
		Columns:      []string{"id", "nom", "email", "telephone", "created_at"},
		ConflictKeys: []string{"nom"},
		UpdateCols:   []string{"email", "telephone"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import clients")
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
