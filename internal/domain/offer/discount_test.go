package offer

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDiscount(t *testing.T) {
	midYear := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mutate func(*Offer)
		amount int64
		now    time.Time
		want   string
	}{
		{
			name:   "20 percent of 1000",
			mutate: func(*Offer) {},
			amount: 1000,
			now:    midYear,
			want:   "200",
		},
		{
			name: "capped at maximum discount amount",
			mutate: func(o *Offer) {
				o.MaximumDiscountAmount = decimal.NewFromInt(100)
			},
			amount: 1000,
			now:    midYear,
			want:   "100",
		},
		{
			name: "cap above raw discount has no effect",
			mutate: func(o *Offer) {
				o.MaximumDiscountAmount = decimal.NewFromInt(500)
			},
			amount: 1000,
			now:    midYear,
			want:   "200",
		},
		{
			name:   "invalid offer returns zero silently",
			mutate: func(o *Offer) { o.Active = false },
			amount: 1000,
			now:    midYear,
			want:   "0",
		},
		{
			name:   "outside window returns zero",
			mutate: func(*Offer) {},
			amount: 1000,
			now:    time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			want:   "0",
		},
		{
			name: "usage exhausted returns zero",
			mutate: func(o *Offer) {
				o.UsageLimit = 3
				o.UsedCount = 3
			},
			amount: 1000,
			now:    midYear,
			want:   "0",
		},
		{
			name: "full percentage never exceeds amount",
			mutate: func(o *Offer) {
				o.DiscountPercentage = decimal.NewFromInt(100)
			},
			amount: 250,
			now:    midYear,
			want:   "250",
		},
		{
			name: "cap above amount is bounded by amount",
			mutate: func(o *Offer) {
				o.DiscountPercentage = decimal.NewFromInt(100)
				o.MaximumDiscountAmount = decimal.NewFromInt(10000)
			},
			amount: 250,
			now:    midYear,
			want:   "250",
		},
		{
			name:   "zero amount",
			mutate: func(*Offer) {},
			amount: 0,
			now:    midYear,
			want:   "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := baseOffer()
			tt.mutate(o)

			got := CalculateDiscount(o, decimal.NewFromInt(tt.amount), tt.now)
			want := decimal.RequireFromString(tt.want)
			assert.True(t, want.Equal(got), "expected %s, got %s", want, got)
		})
	}
}

func TestCalculateDiscountRounding(t *testing.T) {
	o := baseOffer()
	o.DiscountPercentage = decimal.RequireFromString("12.5")
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	got := CalculateDiscount(o, decimal.RequireFromString("99.99"), now)
	// 99.99 * 12.5% = 12.49875, rounds to 12.5.
	assert.Equal(t, "12.5", got.String())

	got = CalculateDiscount(o, decimal.RequireFromString("33.33"), now)
	// 33.33 * 12.5% = 4.16625, rounds to 4.17.
	assert.Equal(t, "4.17", got.String())
}

// Discount is monotonic in the amount for a fixed valid offer: a larger cart
// never yields a smaller discount, and once the cap is hit it stays constant.
func TestCalculateDiscountMonotonic(t *testing.T) {
	o := baseOffer()
	o.MaximumDiscountAmount = decimal.NewFromInt(150)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	prev := decimal.Zero
	for amount := int64(0); amount <= 2000; amount += 50 {
		got := CalculateDiscount(o, decimal.NewFromInt(amount), now)
		assert.False(t, got.LessThan(prev), "discount decreased at amount %d", amount)
		assert.False(t, got.GreaterThan(o.MaximumDiscountAmount), "cap exceeded at amount %d", amount)
		prev = got
	}
	// Cap reached well before 2000 and constant afterwards.
	assert.True(t, prev.Equal(decimal.NewFromInt(150)))
}
