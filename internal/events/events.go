package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types published by this service.
const (
	UserCreated   = "user.created"
	UserUpdated   = "user.updated"
	UserDeleted   = "user.deleted"
	OrderRecorded = "order.recorded"
	UsageReset    = "usage.reset"
)

// Event types consumed from other services.
const (
	OrderPlaced         = "order.placed"
	BillingPeriodClosed = "billing.period_closed"
)

// Stream names
const (
	UserEventsStream    = "user.events"
	OrderEventsStream   = "order.events"
	BillingEventsStream = "billing.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Decode re-marshals the loosely typed Data into out.
func (e Event) Decode(out any) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}

// User events
type UserCreatedEvent struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Role             string `json:"role"`
	SubscriptionTier string `json:"subscriptionTier"`
}

type UserUpdatedEvent struct {
	UserID           string `json:"userId"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	Status           string `json:"status"`
	Role             string `json:"role"`
	SubscriptionTier string `json:"subscriptionTier"`
	OrderLimit       int    `json:"orderLimit"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

// Usage events
type OrderRecordedEvent struct {
	UserID          string `json:"userId"`
	OrdersThisMonth int    `json:"ordersThisMonth"`
	TotalOrders     int    `json:"totalOrders"`
}

type UsageResetEvent struct {
	RecordsReset int `json:"recordsReset"`
}

// Inbound events
type OrderPlacedEvent struct {
	UserID  string `json:"userId"`
	OrderID string `json:"orderId,omitempty"`
}

type BillingPeriodClosedEvent struct {
	Period string `json:"period,omitempty"`
}
