package models

import "time"

// AccountView is the read projection of an account.
// It never exposes CredentialHash; OrderLimit is filled in from the limit table.
type AccountView struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	Status           Status    `json:"status"`
	Role             Role      `json:"role"`
	SubscriptionTier Tier      `json:"subscriptionTier"`
	OrderLimit       int       `json:"orderLimit"`
	HasCredential    bool      `json:"hasCredential"`
	LastActiveAt     time.Time `json:"lastActiveAt"`
	CreatedAt        time.Time `json:"createdTimestamp"`
	UpdatedAt        time.Time `json:"updatedTimestamp"`
}

// OrderCapacity is the snapshot an ordering system uses to decide whether
// an account may place another order this period.
type OrderCapacity struct {
	AccountID         string `json:"accountId"`
	OrderLimit        int    `json:"orderLimit"`
	OrdersThisMonth   int    `json:"ordersThisMonth"`
	RemainingCapacity int    `json:"remainingCapacity"`
	CanPlaceOrder     bool   `json:"canPlaceOrder"`
	SubscriptionTier  Tier   `json:"subscriptionTier"`
	Role              Role   `json:"role"`
}

// Profile is returned by a successful authentication.
type Profile struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             Role   `json:"role"`
	SubscriptionTier Tier   `json:"subscriptionTier"`
	CanPlaceOrders   bool   `json:"canPlaceOrders"`
}

// AccountStatusView reports the raw status next to the derived activity flags.
type AccountStatusView struct {
	ID              string `json:"id"`
	Status          Status `json:"status"`
	IsActive        bool   `json:"isActive"`
	ActiveForOrders bool   `json:"activeForOrders"`
	CanPlaceOrders  bool   `json:"canPlaceOrders"`
}

// BatchValidation is one entry of a validate-batch result. Unknown ids carry
// Error instead of Capacity.
type BatchValidation struct {
	AccountID string         `json:"accountId"`
	Valid     bool           `json:"valid"`
	Capacity  *OrderCapacity `json:"capacity,omitempty"`
	Error     string         `json:"error,omitempty"`
}
