// Package product holds the watch catalog domain types.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a watch available for purchase.
type Product struct {
	ID       string
	Name     string
	Brand    string
	Price    decimal.Decimal
	Category string
	Image    Image
}

// Image holds image URLs for a product.
type Image struct {
	Thumbnail string
	Banner    string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
