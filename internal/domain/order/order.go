// Package order holds order placement and the order's view of applied offers.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrOrderNotFound is returned when an order id does not resolve to an order.
var ErrOrderNotFound = errors.New("order not found")

// Order represents a placed customer order with pricing and discount details.
// Once paid, only status fields change; pricing is immutable.
type Order struct {
	ID           string
	UserID       string
	Items        []Item
	Subtotal     decimal.Decimal
	Discount     decimal.Decimal
	Total        decimal.Decimal
	AppliedOffer string
	IsPaid       bool
	PaidAt       *time.Time
	CreatedAt    time.Time
}

// Item is a single line item. OfferID and DiscountedPrice are set on items
// the applied offer targets; the order-level Discount remains authoritative
// since the maximum-discount cap applies to the order as a whole.
type Item struct {
	ProductID       string          `json:"product_id"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	OfferID         string          `json:"offer_id,omitempty"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)

	// MarkPaid flags an order as paid at the given instant. Idempotent.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error

	// ListPaidWithOffer returns paid orders with an applied offer created
	// within [from, to], for analytics. Read-only.
	ListPaidWithOffer(ctx context.Context, from, to time.Time) ([]Order, error)
}
