// Package eligibility derives order limits and capacity from an account's
// role, subscription tier and usage.
package eligibility

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/metrics"
	"github.com/storefront/user-service/internal/models"
)

// FallbackOrderLimit is returned when a (role, tier) pair is not in the table.
const FallbackOrderLimit = 5

var orderLimits = map[models.Role]map[models.Tier]int{
	models.RoleCustomer: {
		models.TierBasic:      5,
		models.TierPremium:    20,
		models.TierEnterprise: 50,
	},
	models.RolePremium: {
		models.TierBasic:      10,
		models.TierPremium:    50,
		models.TierEnterprise: 100,
	},
	models.RoleAdmin: {
		models.TierBasic:      100,
		models.TierPremium:    200,
		models.TierEnterprise: 500,
	},
}

// LookupOrderLimit returns the table value for (role, tier). A miss returns
// FallbackOrderLimit together with an internal inconsistency error.
func LookupOrderLimit(role models.Role, tier models.Tier) (int, error) {
	if limit, ok := orderLimits[role][tier]; ok {
		return limit, nil
	}
	return FallbackOrderLimit, apperr.Inconsistency(fmt.Sprintf("no order limit for role %q tier %q", role, tier))
}

// Calculator wraps the limit table with alerting on misses.
type Calculator struct {
	logger *zap.Logger
}

func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger}
}

// OrderLimit never fails the caller: a table miss is logged, counted and
// answered with the fallback limit.
func (c *Calculator) OrderLimit(role models.Role, tier models.Tier) int {
	limit, err := LookupOrderLimit(role, tier)
	if err != nil {
		metrics.OrderLimitFallbackTotal.WithLabelValues(string(role), string(tier)).Inc()
		c.logger.Error("order limit table miss",
			zap.String("role", string(role)),
			zap.String("tier", string(tier)),
			zap.Int("fallback", limit),
			zap.Error(err),
		)
	}
	return limit
}

// CapacityFor builds the capacity snapshot for account given its usage at now.
func (c *Calculator) CapacityFor(account models.Account, usage models.UsageRecord, now time.Time) models.OrderCapacity {
	limit := c.OrderLimit(account.Role, account.SubscriptionTier)
	remaining := RemainingCapacity(limit, usage.OrdersThisMonth)
	return models.OrderCapacity{
		AccountID:         account.ID,
		OrderLimit:        limit,
		OrdersThisMonth:   usage.OrdersThisMonth,
		RemainingCapacity: remaining,
		CanPlaceOrder:     remaining > 0 && account.CanPlaceOrders(now),
		SubscriptionTier:  account.SubscriptionTier,
		Role:              account.Role,
	}
}

// RemainingCapacity is limit minus used, floored at zero.
func RemainingCapacity(limit, used int) int {
	if remaining := limit - used; remaining > 0 {
		return remaining
	}
	return 0
}
