// Package store persists order aggregates to Postgres. Each save targets a
// freshly generated identity, so concurrent pipeline runs never contend on
// a row and a redelivered event simply produces a second record for the
// downstream consumer to deduplicate.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

// OrderStore maps order aggregates to the orders table.
type OrderStore struct {
	db *pgxpool.Pool
}

// NewOrderStore creates an OrderStore on the given pool.
func NewOrderStore(db *pgxpool.Pool) *OrderStore {
	return &OrderStore{db: db}
}

// EnsureSchema creates the orders table if it does not exist yet.
func (s *OrderStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id          TEXT PRIMARY KEY,
			username    TEXT NOT NULL,
			products    JSONB NOT NULL,
			total_price DOUBLE PRECISION NOT NULL CHECK (total_price >= 0),
			created_at  TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure orders schema: %w", err)
	}
	return nil
}

// Save inserts the aggregate under a new identity and returns the stored
// representation. Failures are classified into the pipeline's taxonomy:
// data rejections as ValidationFailed, everything else as
// StorageUnavailable.
func (s *OrderStore) Save(ctx context.Context, order model.Order) (model.PersistedOrder, error) {
	products, err := json.Marshal(order.Products)
	if err != nil {
		return model.PersistedOrder{}, fmt.Errorf("%w: encode products: %v", apperr.ErrValidationFailed, err)
	}

	stored := model.PersistedOrder{
		ID:         uuid.New().String(),
		User:       order.User,
		Products:   order.Products,
		TotalPrice: order.TotalPrice,
		CreatedAt:  time.Now().UTC(),
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO orders (id, username, products, total_price, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, stored.ID, stored.User, products, stored.TotalPrice, stored.CreatedAt)
	if err != nil {
		return model.PersistedOrder{}, classify(err)
	}

	return stored, nil
}

// List returns the most recently stored orders, newest first.
func (s *OrderStore) List(ctx context.Context, limit int) ([]model.PersistedOrder, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, username, products, total_price, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var orders []model.PersistedOrder
	for rows.Next() {
		var o model.PersistedOrder
		var products []byte
		if err := rows.Scan(&o.ID, &o.User, &products, &o.TotalPrice, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if err := json.Unmarshal(products, &o.Products); err != nil {
			return nil, fmt.Errorf("decode products for order %s: %w", o.ID, err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return orders, nil
}

// Healthy reports whether the database answers a ping.
func (s *OrderStore) Healthy(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// classify maps a pgx error onto the error taxonomy. Postgres classes 22
// (data exception) and 23 (integrity violation) mean the data was bad;
// anything else is treated as the store being unavailable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "22") || strings.HasPrefix(pgErr.Code, "23") {
			return fmt.Errorf("%w: %s", apperr.ErrValidationFailed, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
}
