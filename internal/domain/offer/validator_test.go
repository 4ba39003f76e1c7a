package offer

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockOfferRepo struct {
	Repository

	offer *Offer
	err   error
}

func (m *mockOfferRepo) GetByID(_ context.Context, _ string) (*Offer, error) {
	return m.offer, m.err
}

func TestRepoValidator_Validate(t *testing.T) {
	fixedNow := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	items := []Item{
		cartItem("diver-300", "diver", 500, 2),
	}

	tests := []struct {
		name         string
		repo         *mockOfferRepo
		items        []Item
		wantDiscount string
		wantTotal    string
		wantErr      error
	}{
		{
			name:         "valid offer quotes discount and final total",
			repo:         &mockOfferRepo{offer: baseOffer()},
			items:        items,
			wantDiscount: "200",
			wantTotal:    "800",
		},
		{
			name:    "unknown offer",
			repo:    &mockOfferRepo{err: ErrNotFound},
			items:   items,
			wantErr: ErrNotFound,
		},
		{
			name: "inactive offer",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.Active = false
				return o
			}()},
			items:   items,
			wantErr: ErrInactive,
		},
		{
			name: "expired offer",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.EndDate = fixedNow.Add(-time.Hour)
				return o
			}()},
			items:   items,
			wantErr: ErrInactive,
		},
		{
			name: "usage limit reached",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.UsageLimit = 10
				o.UsedCount = 10
				return o
			}()},
			items:   items,
			wantErr: ErrUsageLimitReached,
		},
		{
			name: "minimum purchase not met",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.MinimumPurchaseAmount = decimal.NewFromInt(2000)
				return o
			}()},
			items:   items,
			wantErr: ErrMinimumPurchase,
		},
		{
			name: "no eligible product in cart",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.ApplicableProducts = []string{"pilot-chrono"}
				return o
			}()},
			items:   items,
			wantErr: ErrNoEligibleItems,
		},
		{
			name: "capped discount in quote",
			repo: &mockOfferRepo{offer: func() *Offer {
				o := baseOffer()
				o.MaximumDiscountAmount = decimal.NewFromInt(100)
				return o
			}()},
			items:        items,
			wantDiscount: "100",
			wantTotal:    "900",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewRepoValidator(tt.repo)
			v.now = func() time.Time { return fixedNow }

			got, err := v.Validate(context.Background(), "summer-sale", tt.items)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)

			wantDiscount := decimal.RequireFromString(tt.wantDiscount)
			wantTotal := decimal.RequireFromString(tt.wantTotal)
			assert.True(t, wantDiscount.Equal(got.DiscountAmount),
				"expected discount %s, got %s", wantDiscount, got.DiscountAmount)
			assert.True(t, wantTotal.Equal(got.FinalTotal),
				"expected total %s, got %s", wantTotal, got.FinalTotal)
		})
	}
}
