package controllers

import (
	"testing"
	"time"

	"carabin/backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePrice(t *testing.T) {
	pricing := models.PricingSettings{SemesterPrice: 120, AnnualPrice: 200, Currency: "TND"}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(30 * 24 * time.Hour)

	cases := []struct {
		name    string
		plan    string
		coupon  *models.ReductionCoupon
		want    float64
		wantErr string
	}{
		{name: "semester", plan: "semester", want: 120},
		{name: "annual", plan: "annual", want: 200},
		{name: "unknown plan", plan: "monthly", wantErr: "unknown plan"},
		{
			name:   "coupon applied",
			plan:   "annual",
			coupon: &models.ReductionCoupon{Code: "PROMO25", Percent: 25, ExpiresAt: &future},
			want:   150,
		},
		{
			name:   "coupon without expiry",
			plan:   "semester",
			coupon: &models.ReductionCoupon{Code: "ETERNAL", Percent: 10},
			want:   108,
		},
		{
			name:    "expired coupon",
			plan:    "semester",
			coupon:  &models.ReductionCoupon{Code: "OLD", Percent: 50, ExpiresAt: &past},
			wantErr: "coupon expired",
		},
		{
			name:    "exhausted coupon",
			plan:    "semester",
			coupon:  &models.ReductionCoupon{Code: "FULL", Percent: 50, MaxUses: 10, Uses: 10},
			wantErr: "coupon exhausted",
		},
		{
			name:   "unlimited uses",
			plan:   "semester",
			coupon: &models.ReductionCoupon{Code: "OPEN", Percent: 50, MaxUses: 0, Uses: 999},
			want:   60,
		},
		{
			name:   "full reduction",
			plan:   "semester",
			coupon: &models.ReductionCoupon{Code: "FREE", Percent: 100},
			want:   0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ComputePrice(pricing, tc.plan, tc.coupon, now)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 0.001)
		})
	}
}
