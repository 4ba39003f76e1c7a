package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chronora/offer-engine/internal/domain/offer"
)

const offerColumns = `id, name, description, discount_percentage, active,
	start_date, end_date, banner_image, applicable_products, applicable_categories,
	minimum_purchase_amount, maximum_discount_amount, usage_limit, used_count,
	alerted_end_date, created_at, updated_at`

const (
	getOfferByIDSQL = `SELECT ` + offerColumns + ` FROM offers WHERE id = $1`

	listOffersSQL = `SELECT ` + offerColumns + ` FROM offers ORDER BY created_at DESC`

	listActiveOffersSQL = `SELECT ` + offerColumns + ` FROM offers
		WHERE active AND start_date <= $1 AND end_date >= $1
		ORDER BY end_date`

	createOfferSQL = `INSERT INTO offers (id, name, description, discount_percentage,
		active, start_date, end_date, banner_image, applicable_products,
		applicable_categories, minimum_purchase_amount, maximum_discount_amount,
		usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	updateOfferSQL = `UPDATE offers SET name = $2, description = $3,
		discount_percentage = $4, active = $5, start_date = $6, end_date = $7,
		banner_image = $8, applicable_products = $9, applicable_categories = $10,
		minimum_purchase_amount = $11, maximum_discount_amount = $12,
		usage_limit = $13, updated_at = NOW()
		WHERE id = $1`

	deleteOfferSQL = `DELETE FROM offers WHERE id = $1`

	// redeemOfferSQL re-checks validity and the usage cap inside the update
	// itself, so the cap can never be exceeded by concurrent checkouts.
	redeemOfferSQL = `UPDATE offers SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1 AND active AND start_date <= $2 AND end_date >= $2
			AND (usage_limit = -1 OR used_count < usage_limit)`

	recordRedemptionSQL = `INSERT INTO offer_redemptions (offer_id, user_id, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (offer_id, user_id)
		DO UPDATE SET count = offer_redemptions.count + 1, updated_at = NOW()`

	expireOverdueSQL = `UPDATE offers SET active = FALSE, updated_at = NOW()
		WHERE active AND end_date < $1`

	activateDueSQL = `UPDATE offers SET active = TRUE, updated_at = NOW()
		WHERE NOT active AND start_date <= $1 AND end_date > $1`

	listExpiringSQL = `SELECT ` + offerColumns + ` FROM offers
		WHERE active AND end_date > $1 AND end_date <= $2
			AND (alerted_end_date IS NULL OR alerted_end_date <> end_date)
		ORDER BY end_date`

	markAlertedSQL = `UPDATE offers SET alerted_end_date = $2 WHERE id = $1`
)

var _ offer.Repository = (*OfferRepository)(nil)

// OfferRepository implements offer.Repository backed by PostgreSQL.
type OfferRepository struct {
	pool *pgxpool.Pool
}

// NewOfferRepository returns an OfferRepository that uses the given pool.
func NewOfferRepository(pool *pgxpool.Pool) *OfferRepository {
	return &OfferRepository{pool: pool}
}

// GetByID returns a single offer. Returns offer.ErrNotFound when no row
// matches.
func (r *OfferRepository) GetByID(ctx context.Context, id string) (*offer.Offer, error) {
	rows, err := r.pool.Query(ctx, getOfferByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOffer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, offer.ErrNotFound
		}
		return nil, fmt.Errorf("getting offer %q: %w", id, err)
	}
	return &o, nil
}

// List returns all offers, newest first.
func (r *OfferRepository) List(ctx context.Context) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listOffersSQL)
	if err != nil {
		return nil, fmt.Errorf("listing offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// ListActive returns offers whose active flag is set and whose window
// contains now, soonest-ending first.
func (r *OfferRepository) ListActive(ctx context.Context, now time.Time) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listActiveOffersSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// Create persists a new offer.
func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	_, err := r.pool.Exec(ctx, createOfferSQL,
		o.ID, o.Name, o.Description, o.DiscountPercentage, o.Active,
		o.StartDate, o.EndDate, o.BannerImage,
		o.ApplicableProducts, o.ApplicableCategories,
		o.MinimumPurchaseAmount, o.MaximumDiscountAmount, o.UsageLimit,
	)
	if err != nil {
		return fmt.Errorf("creating offer %q: %w", o.ID, err)
	}
	return nil
}

// Update overwrites the offer's editable fields. The usage counters and the
// alert bookkeeping are owned by Redeem and MarkAlerted and stay untouched.
func (r *OfferRepository) Update(ctx context.Context, o *offer.Offer) error {
	tag, err := r.pool.Exec(ctx, updateOfferSQL,
		o.ID, o.Name, o.Description, o.DiscountPercentage, o.Active,
		o.StartDate, o.EndDate, o.BannerImage,
		o.ApplicableProducts, o.ApplicableCategories,
		o.MinimumPurchaseAmount, o.MaximumDiscountAmount, o.UsageLimit,
	)
	if err != nil {
		return fmt.Errorf("updating offer %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrNotFound
	}
	return nil
}

// Delete removes the offer and, via cascade, its redemption counters.
func (r *OfferRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOfferSQL, id)
	if err != nil {
		return fmt.Errorf("deleting offer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return offer.ErrNotFound
	}
	return nil
}

// Redeem increments used_count iff the offer is valid at now and has a free
// redemption slot, then records the per-user counter. Both statements run in
// one transaction; the conditional update is the concurrency guard.
func (r *OfferRepository) Redeem(ctx context.Context, id, userID string, now time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("redeeming offer %q: begin: %w", id, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, redeemOfferSQL, id, now)
	if err != nil {
		return fmt.Errorf("redeeming offer %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return r.classifyRedeemFailure(ctx, id)
	}

	if userID != "" {
		if _, err := tx.Exec(ctx, recordRedemptionSQL, id, userID); err != nil {
			return fmt.Errorf("recording redemption of %q by %q: %w", id, userID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("redeeming offer %q: commit: %w", id, err)
	}
	return nil
}

// classifyRedeemFailure distinguishes why the conditional redeem matched no
// row: missing offer, exhausted cap, or an offer no longer valid.
func (r *OfferRepository) classifyRedeemFailure(ctx context.Context, id string) error {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.UsageLimit != offer.UnlimitedUses && o.UsedCount >= o.UsageLimit {
		return offer.ErrUsageLimitReached
	}
	return offer.ErrInactive
}

// ExpireOverdue deactivates active offers past their end date.
func (r *OfferRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, expireOverdueSQL, now)
	if err != nil {
		return 0, fmt.Errorf("expiring overdue offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ActivateDue activates inactive offers whose window contains now.
func (r *OfferRepository) ActivateDue(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, activateDueSQL, now)
	if err != nil {
		return 0, fmt.Errorf("activating due offers: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListExpiring returns active offers ending within (now, now+window] that
// have not been alerted for their current end date.
func (r *OfferRepository) ListExpiring(ctx context.Context, now time.Time, window time.Duration) ([]offer.Offer, error) {
	rows, err := r.pool.Query(ctx, listExpiringSQL, now, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("listing expiring offers: %w", err)
	}
	return pgx.CollectRows(rows, scanOffer)
}

// MarkAlerted records which end date the expiry warning covered.
func (r *OfferRepository) MarkAlerted(ctx context.Context, id string, endDate time.Time) error {
	_, err := r.pool.Exec(ctx, markAlertedSQL, id, endDate)
	if err != nil {
		return fmt.Errorf("marking offer %q alerted: %w", id, err)
	}
	return nil
}

func scanOffer(row pgx.CollectableRow) (offer.Offer, error) {
	var o offer.Offer
	err := row.Scan(
		&o.ID, &o.Name, &o.Description, &o.DiscountPercentage, &o.Active,
		&o.StartDate, &o.EndDate, &o.BannerImage,
		&o.ApplicableProducts, &o.ApplicableCategories,
		&o.MinimumPurchaseAmount, &o.MaximumDiscountAmount,
		&o.UsageLimit, &o.UsedCount, &o.AlertedEndDate,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}
