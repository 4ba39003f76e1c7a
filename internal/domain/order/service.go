package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/domain/product"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems      = fmt.Errorf("items required")
	ErrInvalidQuantity = fmt.Errorf("quantity must be greater than 0")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID  string
	Items   []Item
	OfferID string
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Service encapsulates order placement business logic.
type Service struct {
	products product.Repository
	offers   offer.Validator
	redeemer offer.Repository
	orders   Repository
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	offers offer.Validator,
	redeemer offer.Repository,
	orders Repository,
) *Service {
	return &Service{
		products: products,
		offers:   offers,
		redeemer: redeemer,
		orders:   orders,
		now:      time.Now,
	}
}

// PlaceOrder validates items, fetches products in a single batch, applies the
// offer through the shared validation path, redeems it atomically, persists
// the order, and returns the result.
//
// Redemption and the usage cap check are one conditional update in the offer
// repository, so two concurrent checkouts racing for the last redemption slot
// cannot both succeed: the loser gets offer.ErrUsageLimitReached.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlaceOrderResult, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}
		ids[i] = item.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Verify every requested product was found.
	products := make([]product.Product, 0, len(req.Items))
	for _, item := range req.Items {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products = append(products, p)
	}

	// Build cart items with catalog prices and categories, and line items
	// for the stored order.
	now := s.now()
	cartItems := make([]offer.Item, len(req.Items))
	orderItems := make([]Item, len(req.Items))
	for i, item := range req.Items {
		p := products[i]
		cartItems[i] = offer.Item{
			ProductID: item.ProductID,
			Category:  p.Category,
			Price:     p.Price,
			Quantity:  item.Quantity,
		}
		orderItems[i] = Item{
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			Price:           p.Price,
			DiscountedPrice: p.Price,
		}
	}
	subtotal := offer.Subtotal(cartItems)

	// Apply and redeem the offer when one is given.
	discountAmount := decimal.Zero
	if req.OfferID != "" {
		quote, err := s.offers.Validate(ctx, req.OfferID, cartItems)
		if err != nil {
			return nil, fmt.Errorf("validate offer: %w", err)
		}
		discountAmount = quote.DiscountAmount

		if err := s.redeemer.Redeem(ctx, req.OfferID, req.UserID, now); err != nil {
			return nil, fmt.Errorf("redeem offer: %w", err)
		}

		// Annotate targeted line items with the per-unit discounted price.
		// The order-level discount is authoritative for totals.
		pct := quote.Offer.DiscountPercentage
		for i := range orderItems {
			if !offer.AppliesTo(quote.Offer, cartItems[i]) {
				continue
			}
			orderItems[i].OfferID = req.OfferID
			reduced := orderItems[i].Price.Sub(orderItems[i].Price.Mul(pct).Div(decimal.NewFromInt(100)))
			orderItems[i].DiscountedPrice = reduced.Round(2)
		}
	}

	total := subtotal.Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	o := &Order{
		ID:           uuid.New().String(),
		UserID:       req.UserID,
		Items:        orderItems,
		Subtotal:     subtotal.Round(2),
		Discount:     discountAmount.Round(2),
		Total:        total.Round(2),
		AppliedOffer: req.OfferID,
		CreatedAt:    now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return &PlaceOrderResult{
		Order:    o,
		Products: products,
	}, nil
}

// ConfirmPayment marks an order paid. Called by the payment gateway callback
// handler after it has verified the notification; the gateway protocol itself
// lives outside this service.
func (s *Service) ConfirmPayment(ctx context.Context, orderID string) error {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return err
	}
	return s.orders.MarkPaid(ctx, orderID, s.now())
}
