package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronora/offer-engine/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, subtotal, discount,
		total, applied_offer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)`

	getOrderByIDSQL = `SELECT id, user_id, items, subtotal, discount, total,
		COALESCE(applied_offer, ''), is_paid, paid_at, created_at
		FROM orders WHERE id = $1`

	markOrderPaidSQL = `UPDATE orders SET is_paid = TRUE, paid_at = $2
		WHERE id = $1 AND NOT is_paid`

	listPaidWithOfferSQL = `SELECT id, user_id, items, subtotal, discount, total,
		COALESCE(applied_offer, ''), is_paid, paid_at, created_at
		FROM orders
		WHERE is_paid AND applied_offer IS NOT NULL
			AND created_at >= $1 AND created_at <= $2
		ORDER BY created_at`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The line items are serialized to JSON for
// storage in the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.Subtotal, o.Discount, o.Total,
		o.AppliedOffer, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order. Returns order.ErrOrderNotFound when no row
// matches.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// MarkPaid flags the order as paid. Re-marking a paid order is a no-op, so
// duplicate gateway notifications are harmless.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	_, err := r.pool.Exec(ctx, markOrderPaidSQL, id, paidAt)
	if err != nil {
		return fmt.Errorf("marking order %q paid: %w", id, err)
	}
	return nil
}

// ListPaidWithOffer returns paid orders that applied an offer within the
// given range, oldest first.
func (r *OrderRepository) ListPaidWithOffer(ctx context.Context, from, to time.Time) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listPaidWithOfferSQL, from, to)
	if err != nil {
		return nil, fmt.Errorf("listing paid orders with offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &o.Subtotal, &o.Discount, &o.Total,
		&o.AppliedOffer, &o.IsPaid, &o.PaidAt, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items for order %q: %w", o.ID, err)
	}
	return o, nil
}
