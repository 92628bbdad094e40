package models

import (
	"regexp"
	"time"

	"github.com/storefront/user-service/internal/apperr"
)

// ActivityWindow is how long an active account stays eligible for orders
// without any read, auth or order activity.
const ActivityWindow = 90 * 24 * time.Hour

// MinNameLength is the shortest accepted account name.
const MinNameLength = 2

type Status string

const (
	StatusActive              Status = "active"
	StatusInactive            Status = "inactive"
	StatusSuspended           Status = "suspended"
	StatusPendingVerification Status = "pending_verification"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusPendingVerification:
		return true
	default:
		return false
	}
}

type Role string

const (
	RoleCustomer Role = "customer"
	RolePremium  Role = "premium"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RolePremium, RoleAdmin:
		return true
	default:
		return false
	}
}

type Tier string

const (
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

func (t Tier) Valid() bool {
	switch t {
	case TierBasic, TierPremium, TierEnterprise:
		return true
	default:
		return false
	}
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail reports whether email has the basic local@domain.tld shape.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// Account is the write model held by the account store.
// The order limit is not stored; it is derived from Role and Tier on every read.
type Account struct {
	ID               string
	Name             string
	Email            string
	Status           Status
	Role             Role
	SubscriptionTier Tier
	CredentialHash   string
	LastActiveAt     time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Validate checks the record in a fixed order and reports the first failure.
func (a *Account) Validate() error {
	if len([]rune(a.Name)) < MinNameLength {
		return apperr.Validation("name", "name must be at least 2 characters long")
	}
	if !ValidEmail(a.Email) {
		return apperr.Validation("email", "valid email is required")
	}
	if !a.Status.Valid() {
		return apperr.Validation("status", "invalid status "+string(a.Status))
	}
	if !a.Role.Valid() {
		return apperr.Validation("role", "invalid role "+string(a.Role))
	}
	if !a.SubscriptionTier.Valid() {
		return apperr.Validation("subscriptionTier", "invalid subscription tier "+string(a.SubscriptionTier))
	}
	return nil
}

func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// ActiveForOrders applies the staleness rule: the account must be active and
// seen within ActivityWindow of now. An activity age of exactly the window
// still counts.
func (a *Account) ActiveForOrders(now time.Time) bool {
	return a.Status == StatusActive && now.Sub(a.LastActiveAt) <= ActivityWindow
}

func (a *Account) CanPlaceOrders(now time.Time) bool {
	if a.Status == StatusSuspended || a.Status == StatusPendingVerification {
		return false
	}
	return a.ActiveForOrders(now)
}

// IsPremium covers premium-role accounts and any paid tier.
func (a *Account) IsPremium() bool {
	return a.Role == RolePremium || a.SubscriptionTier == TierPremium || a.SubscriptionTier == TierEnterprise
}

func (a *Account) HasCredential() bool {
	return a.CredentialHash != ""
}

// UsageRecord holds the order counters of one account.
type UsageRecord struct {
	OrdersThisMonth int        `json:"ordersThisMonth"`
	TotalOrders     int        `json:"totalOrders"`
	LastOrderAt     *time.Time `json:"lastOrderAt,omitempty"`
}

// Copy returns r with its own LastOrderAt.
func (r UsageRecord) Copy() UsageRecord {
	if r.LastOrderAt != nil {
		at := *r.LastOrderAt
		r.LastOrderAt = &at
	}
	return r
}
