package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/models"
)

func TestLookupOrderLimitTable(t *testing.T) {
	want := map[models.Role]map[models.Tier]int{
		models.RoleCustomer: {models.TierBasic: 5, models.TierPremium: 20, models.TierEnterprise: 50},
		models.RolePremium:  {models.TierBasic: 10, models.TierPremium: 50, models.TierEnterprise: 100},
		models.RoleAdmin:    {models.TierBasic: 100, models.TierPremium: 200, models.TierEnterprise: 500},
	}

	for role, tiers := range want {
		for tier, limit := range tiers {
			got, err := LookupOrderLimit(role, tier)
			require.NoError(t, err, "%s/%s", role, tier)
			assert.Equal(t, limit, got, "%s/%s", role, tier)
		}
	}
}

func TestLookupOrderLimitMiss(t *testing.T) {
	limit, err := LookupOrderLimit("ghost", models.TierBasic)
	assert.Equal(t, FallbackOrderLimit, limit)
	assert.True(t, errors.Is(err, apperr.ErrInternalInconsistency))

	limit, err = LookupOrderLimit(models.RoleAdmin, "platinum")
	assert.Equal(t, FallbackOrderLimit, limit)
	assert.True(t, errors.Is(err, apperr.ErrInternalInconsistency))
}

func TestCalculatorOrderLimitLogsMiss(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	calc := NewCalculator(zap.New(core))

	assert.Equal(t, FallbackOrderLimit, calc.OrderLimit("ghost", "gold"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order limit table miss", logs.All()[0].Message)

	assert.Equal(t, 500, calc.OrderLimit(models.RoleAdmin, models.TierEnterprise))
	assert.Equal(t, 1, logs.Len(), "table hits must not log")
}

func TestRemainingCapacityNeverNegative(t *testing.T) {
	tests := []struct {
		limit, used, want int
	}{
		{limit: 5, used: 0, want: 5},
		{limit: 5, used: 4, want: 1},
		{limit: 5, used: 5, want: 0},
		{limit: 5, used: 6, want: 0},
		{limit: 20, used: 1000, want: 0},
		{limit: 0, used: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RemainingCapacity(tt.limit, tt.used), "limit=%d used=%d", tt.limit, tt.used)
	}
}

func TestCapacityFor(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calc := NewCalculator(nil)

	account := models.Account{
		ID:               "acc-1",
		Status:           models.StatusActive,
		Role:             models.RoleCustomer,
		SubscriptionTier: models.TierBasic,
		LastActiveAt:     now,
	}

	t.Run("capacity left and eligible", func(t *testing.T) {
		c := calc.CapacityFor(account, models.UsageRecord{OrdersThisMonth: 2}, now)
		assert.Equal(t, models.OrderCapacity{
			AccountID:         "acc-1",
			OrderLimit:        5,
			OrdersThisMonth:   2,
			RemainingCapacity: 3,
			CanPlaceOrder:     true,
			SubscriptionTier:  models.TierBasic,
			Role:              models.RoleCustomer,
		}, c)
	})

	t.Run("limit exhausted", func(t *testing.T) {
		c := calc.CapacityFor(account, models.UsageRecord{OrdersThisMonth: 5}, now)
		assert.Equal(t, 0, c.RemainingCapacity)
		assert.False(t, c.CanPlaceOrder)
	})

	t.Run("usage above limit", func(t *testing.T) {
		c := calc.CapacityFor(account, models.UsageRecord{OrdersThisMonth: 9}, now)
		assert.Equal(t, 0, c.RemainingCapacity)
		assert.Equal(t, 9, c.OrdersThisMonth)
	})

	t.Run("stale account has capacity but cannot order", func(t *testing.T) {
		stale := account
		stale.LastActiveAt = now.Add(-91 * 24 * time.Hour)
		c := calc.CapacityFor(stale, models.UsageRecord{}, now)
		assert.Equal(t, 5, c.RemainingCapacity)
		assert.False(t, c.CanPlaceOrder)
	})

	t.Run("pending verification cannot order", func(t *testing.T) {
		pending := account
		pending.Status = models.StatusPendingVerification
		c := calc.CapacityFor(pending, models.UsageRecord{}, now)
		assert.False(t, c.CanPlaceOrder)
	})
}
