package query

import (
	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/clock"
	"github.com/storefront/user-service/internal/command"
	"github.com/storefront/user-service/internal/cqrs"
	"github.com/storefront/user-service/internal/eligibility"
	"github.com/storefront/user-service/internal/models"
	"github.com/storefront/user-service/internal/store"
	"github.com/storefront/user-service/internal/usage"
)

// Toucher refreshes an account's activity. The command service implements it.
type Toucher interface {
	Touch(id string) (models.Account, error)
}

// AccountQueryService answers reads from the in-memory store and tracker.
// Only GetAccount refreshes activity; every other read reports staleness as
// it finds it.
type AccountQueryService struct {
	accounts *store.AccountStore
	usage    *usage.Tracker
	calc     *eligibility.Calculator
	toucher  Toucher
	clock    clock.Clock
}

func NewAccountQueryService(accounts *store.AccountStore, tracker *usage.Tracker, calc *eligibility.Calculator, toucher Toucher, clk clock.Clock) *AccountQueryService {
	if clk == nil {
		clk = clock.System{}
	}
	return &AccountQueryService{
		accounts: accounts,
		usage:    tracker,
		calc:     calc,
		toucher:  toucher,
		clock:    clk,
	}
}

func (s *AccountQueryService) GetAccount(q cqrs.GetAccountQuery) (models.AccountView, error) {
	account, err := s.toucher.Touch(q.AccountID)
	if err != nil {
		return models.AccountView{}, err
	}
	return command.AccountToView(account, s.calc), nil
}

func (s *AccountQueryService) ListAccounts() []models.AccountView {
	return s.views(s.accounts.List())
}

// ListOrderEligible returns the accounts that may place orders right now.
func (s *AccountQueryService) ListOrderEligible() []models.AccountView {
	now := s.clock.Now()
	return s.views(s.accounts.Filter(func(a models.Account) bool {
		return a.CanPlaceOrders(now)
	}))
}

func (s *AccountQueryService) ListPremium() []models.AccountView {
	return s.views(s.accounts.Filter(func(a models.Account) bool {
		return a.IsPremium()
	}))
}

// ListActive returns accounts whose status is active, stale or not.
func (s *AccountQueryService) ListActive() []models.AccountView {
	return s.views(s.accounts.Filter(func(a models.Account) bool {
		return a.IsActive()
	}))
}

func (s *AccountQueryService) GetOrderCapacity(q cqrs.GetOrderCapacityQuery) (models.OrderCapacity, error) {
	account, err := s.accounts.Get(q.AccountID)
	if err != nil {
		return models.OrderCapacity{}, err
	}
	return s.calc.CapacityFor(account, s.usage.Usage(account.ID), s.clock.Now()), nil
}

func (s *AccountQueryService) GetAccountStatus(id string) (models.AccountStatusView, error) {
	account, err := s.accounts.Get(id)
	if err != nil {
		return models.AccountStatusView{}, err
	}
	now := s.clock.Now()
	return models.AccountStatusView{
		ID:              account.ID,
		Status:          account.Status,
		IsActive:        account.IsActive(),
		ActiveForOrders: account.ActiveForOrders(now),
		CanPlaceOrders:  account.CanPlaceOrders(now),
	}, nil
}

// ValidateBatch reports capacity per id in request order. An entry is valid
// when the account can place an order now; unknown ids carry an error. The
// batch itself never fails.
func (s *AccountQueryService) ValidateBatch(q cqrs.ValidateBatchQuery) []models.BatchValidation {
	now := s.clock.Now()
	results := make([]models.BatchValidation, 0, len(q.AccountIDs))
	for _, id := range q.AccountIDs {
		account, err := s.accounts.Get(id)
		if err != nil {
			results = append(results, models.BatchValidation{
				AccountID: id,
				Valid:     false,
				Error:     apperr.MessageOf(err),
			})
			continue
		}
		capacity := s.calc.CapacityFor(account, s.usage.Usage(id), now)
		results = append(results, models.BatchValidation{
			AccountID: id,
			Valid:     capacity.CanPlaceOrder,
			Capacity:  &capacity,
		})
	}
	return results
}

func (s *AccountQueryService) views(accounts []models.Account) []models.AccountView {
	out := make([]models.AccountView, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, command.AccountToView(a, s.calc))
	}
	return out
}
