package order

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/domain/product"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID   map[string]*product.Product
	getErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type mockOfferValidator struct {
	quote *offer.Quote
	err   error
}

func (m *mockOfferValidator) Validate(_ context.Context, _ string, _ []offer.Item) (*offer.Quote, error) {
	return m.quote, m.err
}

type mockRedeemer struct {
	offer.Repository

	redeemed []string
	err      error
}

func (m *mockRedeemer) Redeem(_ context.Context, id, _ string, _ time.Time) error {
	if m.err != nil {
		return m.err
	}
	m.redeemed = append(m.redeemed, id)
	return nil
}

type mockOrderRepo struct {
	lastOrder *Order
	paidID    string
	err       error
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.lastOrder = o
	return m.err
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	if m.lastOrder != nil && m.lastOrder.ID == id {
		return m.lastOrder, nil
	}
	return nil, ErrOrderNotFound
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id string, _ time.Time) error {
	m.paidID = id
	return nil
}

func (m *mockOrderRepo) ListPaidWithOffer(_ context.Context, _, _ time.Time) ([]Order, error) {
	return nil, nil
}

// --- Helpers ---

func newTestProduct(id, category string, price string) product.Product {
	return product.Product{
		ID:       id,
		Name:     id,
		Brand:    "Chronora",
		Price:    decimal.RequireFromString(price),
		Category: category,
		Image:    product.Image{Thumbnail: "thumb.jpg"},
	}
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

// --- Tests ---

func TestPlaceOrder_EmptyItems(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOfferValidator{}, &mockRedeemer{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlaceOrder_InvalidQuantity(t *testing.T) {
	p1 := newTestProduct("diver-300", "diver", "450.00")
	svc := NewService(newProductRepo(p1), &mockOfferValidator{}, &mockRedeemer{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "diver-300", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "diver-300", iqErr.ProductID)
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	svc := NewService(newProductRepo(), &mockOfferValidator{}, &mockRedeemer{}, &mockOrderRepo{})

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlaceOrder_NoOffer(t *testing.T) {
	p1 := newTestProduct("diver-300", "diver", "450.00")
	p2 := newTestProduct("dress-slim", "dress", "300.00")
	orders := &mockOrderRepo{}
	redeemer := &mockRedeemer{}
	svc := NewService(newProductRepo(p1, p2), &mockOfferValidator{}, redeemer, orders)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID: "u1",
		Items: []Item{
			{ProductID: "diver-300", Quantity: 2},
			{ProductID: "dress-slim", Quantity: 1},
		},
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	o := result.Order
	assert.NotEmpty(t, o.ID)
	assert.True(t, o.Subtotal.Equal(decimal.NewFromInt(1200)))
	assert.True(t, o.Discount.IsZero())
	assert.True(t, o.Total.Equal(decimal.NewFromInt(1200)))
	assert.Empty(t, o.AppliedOffer)
	assert.False(t, o.IsPaid)
	assert.Empty(t, redeemer.redeemed, "no redemption without an offer")
	assert.Same(t, orders.lastOrder, o)
}

func TestPlaceOrder_WithOffer(t *testing.T) {
	p1 := newTestProduct("diver-300", "diver", "500.00")
	promo := &offer.Offer{
		ID:                 "dive-deep",
		DiscountPercentage: decimal.NewFromInt(20),
		Active:             true,
		ApplicableProducts: []string{"diver-300"},
	}
	validator := &mockOfferValidator{quote: &offer.Quote{
		Offer:          promo,
		Subtotal:       decimal.NewFromInt(1000),
		DiscountAmount: decimal.NewFromInt(200),
		FinalTotal:     decimal.NewFromInt(800),
	}}
	redeemer := &mockRedeemer{}
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), validator, redeemer, orders)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		UserID:  "u1",
		OfferID: "dive-deep",
		Items:   []Item{{ProductID: "diver-300", Quantity: 2}},
	})
	require.NoError(t, err)

	o := result.Order
	assert.True(t, o.Discount.Equal(decimal.NewFromInt(200)))
	assert.True(t, o.Total.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, "dive-deep", o.AppliedOffer)
	assert.Equal(t, []string{"dive-deep"}, redeemer.redeemed)

	require.Len(t, o.Items, 1)
	assert.Equal(t, "dive-deep", o.Items[0].OfferID)
	assert.True(t, o.Items[0].DiscountedPrice.Equal(decimal.NewFromInt(400)),
		"expected per-unit discounted price 400, got %s", o.Items[0].DiscountedPrice)
}

func TestPlaceOrder_OfferRejected(t *testing.T) {
	p1 := newTestProduct("diver-300", "diver", "500.00")
	validator := &mockOfferValidator{err: offer.ErrMinimumPurchase}
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), validator, &mockRedeemer{}, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OfferID: "dive-deep",
		Items:   []Item{{ProductID: "diver-300", Quantity: 1}},
	})
	require.ErrorIs(t, err, offer.ErrMinimumPurchase)
	assert.Nil(t, orders.lastOrder, "rejected offer must not create an order")
}

func TestPlaceOrder_RedemptionRace(t *testing.T) {
	// The validator saw a free slot, but a concurrent checkout claimed it
	// first: the conditional redeem fails and the order is not created.
	p1 := newTestProduct("diver-300", "diver", "500.00")
	promo := &offer.Offer{ID: "last-slot", DiscountPercentage: decimal.NewFromInt(10), Active: true}
	validator := &mockOfferValidator{quote: &offer.Quote{
		Offer:          promo,
		Subtotal:       decimal.NewFromInt(500),
		DiscountAmount: decimal.NewFromInt(50),
		FinalTotal:     decimal.NewFromInt(450),
	}}
	redeemer := &mockRedeemer{err: offer.ErrUsageLimitReached}
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), validator, redeemer, orders)

	_, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		OfferID: "last-slot",
		Items:   []Item{{ProductID: "diver-300", Quantity: 1}},
	})
	require.ErrorIs(t, err, offer.ErrUsageLimitReached)
	assert.Nil(t, orders.lastOrder)
}

func TestConfirmPayment(t *testing.T) {
	p1 := newTestProduct("diver-300", "diver", "450.00")
	orders := &mockOrderRepo{}
	svc := NewService(newProductRepo(p1), &mockOfferValidator{}, &mockRedeemer{}, orders)

	result, err := svc.PlaceOrder(context.Background(), PlaceOrderRequest{
		Items: []Item{{ProductID: "diver-300", Quantity: 1}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.ConfirmPayment(context.Background(), result.Order.ID))
	assert.Equal(t, result.Order.ID, orders.paidID)

	err = svc.ConfirmPayment(context.Background(), "missing")
	require.ErrorIs(t, err, ErrOrderNotFound)
}
