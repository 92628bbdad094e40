package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/clock"
	"github.com/storefront/user-service/internal/cqrs"
	"github.com/storefront/user-service/internal/credential"
	"github.com/storefront/user-service/internal/eligibility"
	"github.com/storefront/user-service/internal/events"
	"github.com/storefront/user-service/internal/metrics"
	"github.com/storefront/user-service/internal/models"
	"github.com/storefront/user-service/internal/store"
	"github.com/storefront/user-service/internal/usage"
)

// ViewProjection receives the read model of every account after it changes.
// The Redis view cache implements it; nil disables projection.
type ViewProjection interface {
	Set(ctx context.Context, id string, view models.AccountView)
	Delete(ctx context.Context, id string)
}

// AccountCommandService owns every account mutation. The store and tracker
// are authoritative; events and the projection are best effort.
type AccountCommandService struct {
	accounts   *store.AccountStore
	usage      *usage.Tracker
	calc       *eligibility.Calculator
	verifier   *credential.Verifier
	publisher  events.EventPublisher
	projection ViewProjection
	clock      clock.Clock
	logger     *zap.Logger
}

type Deps struct {
	Accounts   *store.AccountStore
	Usage      *usage.Tracker
	Calculator *eligibility.Calculator
	Verifier   *credential.Verifier
	Publisher  events.EventPublisher
	Projection ViewProjection
	Clock      clock.Clock
	Logger     *zap.Logger
}

func NewAccountCommandService(d Deps) *AccountCommandService {
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &AccountCommandService{
		accounts:   d.Accounts,
		usage:      d.Usage,
		calc:       d.Calculator,
		verifier:   d.Verifier,
		publisher:  d.Publisher,
		projection: d.Projection,
		clock:      d.Clock,
		logger:     d.Logger,
	}
}

// CreateAccount validates, optionally hashes the initial password, and
// inserts. Email uniqueness is enforced atomically by the store.
func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (view models.AccountView, err error) {
	defer func() { metrics.RecordMutation("create", err) }()

	now := s.clock.Now()
	account := models.Account{
		ID:               uuid.NewString(),
		Name:             cmd.Name,
		Email:            cmd.Email,
		Status:           cmd.Status,
		Role:             cmd.Role,
		SubscriptionTier: cmd.Tier,
		LastActiveAt:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if account.Status == "" {
		account.Status = models.StatusPendingVerification
	}
	if account.Role == "" {
		account.Role = models.RoleCustomer
	}
	if account.SubscriptionTier == "" {
		account.SubscriptionTier = models.TierBasic
	}
	if err := account.Validate(); err != nil {
		return models.AccountView{}, err
	}

	if cmd.Password != "" {
		if err := credential.ValidateSecret(cmd.Password); err != nil {
			return models.AccountView{}, err
		}
		// Skip the bcrypt work for an email that is already taken.
		if _, taken := s.accounts.FindByEmail(account.Email); taken {
			return models.AccountView{}, apperr.Conflict("account with this email already exists")
		}
		digest, err := s.verifier.HashSecret(ctx, cmd.Password)
		if err != nil {
			return models.AccountView{}, err
		}
		account.CredentialHash = digest
	}

	if err := s.accounts.Insert(account); err != nil {
		return models.AccountView{}, err
	}
	metrics.AccountsTotal.Set(float64(s.accounts.Len()))

	view = s.accountToView(account)
	s.project(ctx, view)
	s.publish(ctx, events.UserCreated, events.UserCreatedEvent{
		UserID:           account.ID,
		Email:            account.Email,
		Name:             account.Name,
		Role:             string(account.Role),
		SubscriptionTier: string(account.SubscriptionTier),
	})

	s.logger.Info("account created", zap.String("account_id", account.ID))
	return view, nil
}

// UpdateAccount applies the present fields and re-validates the merged record.
func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (view models.AccountView, err error) {
	defer func() { metrics.RecordMutation("update", err) }()

	return s.mutate(ctx, cmd.AccountID, func(a *models.Account) error {
		if cmd.Name != nil {
			a.Name = *cmd.Name
		}
		if cmd.Email != nil {
			a.Email = *cmd.Email
		}
		if cmd.Status != nil {
			a.Status = *cmd.Status
		}
		if cmd.Role != nil {
			a.Role = *cmd.Role
		}
		if cmd.Tier != nil {
			a.SubscriptionTier = *cmd.Tier
		}
		return nil
	})
}

// ActivateAccount sets the status to active and refreshes activity.
func (s *AccountCommandService) ActivateAccount(ctx context.Context, id string) (view models.AccountView, err error) {
	defer func() { metrics.RecordMutation("activate", err) }()
	return s.setStatus(ctx, id, models.StatusActive)
}

// DeactivateAccount sets the status to inactive and refreshes activity.
func (s *AccountCommandService) DeactivateAccount(ctx context.Context, id string) (view models.AccountView, err error) {
	defer func() { metrics.RecordMutation("deactivate", err) }()
	return s.setStatus(ctx, id, models.StatusInactive)
}

func (s *AccountCommandService) setStatus(ctx context.Context, id string, status models.Status) (models.AccountView, error) {
	now := s.clock.Now()
	return s.mutate(ctx, id, func(a *models.Account) error {
		a.Status = status
		a.LastActiveAt = now
		return nil
	})
}

// UpdateSubscription changes the tier; the order limit follows on the next read.
func (s *AccountCommandService) UpdateSubscription(ctx context.Context, cmd cqrs.UpdateSubscriptionCommand) (view models.AccountView, err error) {
	defer func() { metrics.RecordMutation("subscription", err) }()

	if !cmd.Tier.Valid() {
		return models.AccountView{}, apperr.Validation("subscriptionTier", "invalid subscription tier "+string(cmd.Tier))
	}
	return s.mutate(ctx, cmd.AccountID, func(a *models.Account) error {
		a.SubscriptionTier = cmd.Tier
		return nil
	})
}

// DeleteAccount removes the account and then its usage record.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) (err error) {
	defer func() { metrics.RecordMutation("delete", err) }()

	if _, err := s.accounts.Remove(cmd.AccountID); err != nil {
		return err
	}
	s.usage.Forget(cmd.AccountID)
	metrics.AccountsTotal.Set(float64(s.accounts.Len()))

	if s.projection != nil {
		s.projection.Delete(ctx, cmd.AccountID)
	}
	s.publish(ctx, events.UserDeleted, events.UserDeletedEvent{UserID: cmd.AccountID})

	s.logger.Info("account deleted", zap.String("account_id", cmd.AccountID))
	return nil
}

// Touch refreshes lastActiveAt and returns the updated record.
func (s *AccountCommandService) Touch(id string) (models.Account, error) {
	now := s.clock.Now()
	return s.accounts.Update(id, func(a *models.Account) error {
		a.LastActiveAt = now
		return nil
	})
}

// SetCredential replaces the account's secret.
func (s *AccountCommandService) SetCredential(ctx context.Context, cmd cqrs.SetCredentialCommand) (err error) {
	defer func() { metrics.RecordMutation("credential", err) }()

	if err := s.verifier.SetCredential(ctx, cmd.AccountID, cmd.Secret); err != nil {
		return err
	}
	s.logger.Info("credential updated", zap.String("account_id", cmd.AccountID))
	return nil
}

// RecordOrder counts one order against the account and refreshes its
// activity. Eligibility is the caller's decision; the capacity returned
// reflects the state after the increment.
func (s *AccountCommandService) RecordOrder(ctx context.Context, cmd cqrs.RecordOrderCommand) (capacity models.OrderCapacity, err error) {
	defer func() { metrics.RecordMutation("record_order", err) }()

	record, err := s.usage.RecordOrder(cmd.AccountID)
	if err != nil {
		return models.OrderCapacity{}, err
	}
	metrics.OrdersRecordedTotal.Inc()

	account, err := s.Touch(cmd.AccountID)
	if err != nil {
		// Deleted between the increment and the touch.
		return models.OrderCapacity{}, err
	}

	s.publish(ctx, events.OrderRecorded, events.OrderRecordedEvent{
		UserID:          account.ID,
		OrdersThisMonth: record.OrdersThisMonth,
		TotalOrders:     record.TotalOrders,
	})
	return s.calc.CapacityFor(account, record, s.clock.Now()), nil
}

// ResetMonthly zeroes every monthly counter and returns how many were reset.
func (s *AccountCommandService) ResetMonthly(ctx context.Context) int {
	n := s.usage.ResetMonthly()
	metrics.UsageResetsTotal.Inc()
	s.publish(ctx, events.UsageReset, events.UsageResetEvent{RecordsReset: n})
	s.logger.Info("monthly usage reset", zap.Int("records", n))
	return n
}

// HandleOrderEvent is the subscriber handler for the order stream.
func (s *AccountCommandService) HandleOrderEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.OrderPlaced {
		return nil
	}
	var data events.OrderPlacedEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	if _, err := s.RecordOrder(ctx, cqrs.RecordOrderCommand{AccountID: data.UserID}); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			// Acked and dropped; redelivery would fail the same way.
			s.logger.Warn("order event for unknown account", zap.String("account_id", data.UserID))
			return nil
		}
		return fmt.Errorf("record order %s: %w", data.UserID, err)
	}
	return nil
}

// HandleBillingEvent is the subscriber handler for the billing stream.
func (s *AccountCommandService) HandleBillingEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.BillingPeriodClosed {
		return nil
	}
	var data events.BillingPeriodClosedEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	s.logger.Info("billing period closed", zap.String("period", data.Period))
	s.ResetMonthly(ctx)
	return nil
}

// mutate runs change under the store lock, re-validates, stamps updatedAt and
// fans the new view out.
func (s *AccountCommandService) mutate(ctx context.Context, id string, change func(*models.Account) error) (models.AccountView, error) {
	now := s.clock.Now()
	account, err := s.accounts.Update(id, func(a *models.Account) error {
		if err := change(a); err != nil {
			return err
		}
		if err := a.Validate(); err != nil {
			return err
		}
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.AccountView{}, err
	}

	view := s.accountToView(account)
	s.project(ctx, view)
	s.publish(ctx, events.UserUpdated, events.UserUpdatedEvent{
		UserID:           account.ID,
		Email:            account.Email,
		Name:             account.Name,
		Status:           string(account.Status),
		Role:             string(account.Role),
		SubscriptionTier: string(account.SubscriptionTier),
		OrderLimit:       view.OrderLimit,
	})
	return view, nil
}

func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if err := s.publisher.Publish(ctx, events.UserEventsStream, eventType, data); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *AccountCommandService) project(ctx context.Context, view models.AccountView) {
	if s.projection != nil {
		s.projection.Set(ctx, view.ID, view)
	}
}

func (s *AccountCommandService) accountToView(a models.Account) models.AccountView {
	return AccountToView(a, s.calc)
}

// AccountToView projects an account, deriving the order limit from the table.
func AccountToView(a models.Account, calc *eligibility.Calculator) models.AccountView {
	return models.AccountView{
		ID:               a.ID,
		Name:             a.Name,
		Email:            a.Email,
		Status:           a.Status,
		Role:             a.Role,
		SubscriptionTier: a.SubscriptionTier,
		OrderLimit:       calc.OrderLimit(a.Role, a.SubscriptionTier),
		HasCredential:    a.HasCredential(),
		LastActiveAt:     a.LastActiveAt,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}
