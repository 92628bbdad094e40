package store

import (
	"sync"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/models"
)

// AccountStore is the in-memory owner of account records.
//
// A single RWMutex guards the records, the email index and the creation
// order, so every check-then-write sequence (email uniqueness on insert and
// update) is linearizable. Records are copied in and out; callers never hold
// a pointer into the store.
type AccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*models.Account
	byEmail  map[string]string
	order    []string
}

func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]*models.Account),
		byEmail:  make(map[string]string),
	}
}

// Insert adds a new account. It fails with a conflict if the email is held
// by another id.
func (s *AccountStore) Insert(account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[account.Email]; ok && owner != account.ID {
		return apperr.Conflict("account with this email already exists")
	}
	if _, ok := s.accounts[account.ID]; ok {
		return apperr.Conflict("account id already exists")
	}

	stored := account
	s.accounts[account.ID] = &stored
	s.byEmail[account.Email] = account.ID
	s.order = append(s.order, account.ID)
	return nil
}

func (s *AccountStore) Get(id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.NotFound("account", id)
	}
	return *account, nil
}

func (s *AccountStore) Exists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[id]
	return ok
}

// FindByEmail returns the account holding email, if any.
func (s *AccountStore) FindByEmail(email string) (models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.Account{}, false
	}
	return *s.accounts[id], true
}

// Update runs mutate against a copy of the record and commits the copy only
// if mutate succeeds and the resulting email is not held by another account.
// The whole sequence holds the write lock.
func (s *AccountStore) Update(id string, mutate func(*models.Account) error) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.NotFound("account", id)
	}

	next := *current
	if err := mutate(&next); err != nil {
		return models.Account{}, err
	}
	next.ID = current.ID
	next.CreatedAt = current.CreatedAt

	if next.Email != current.Email {
		if owner, taken := s.byEmail[next.Email]; taken && owner != id {
			return models.Account{}, apperr.Conflict("email already in use")
		}
		delete(s.byEmail, current.Email)
		s.byEmail[next.Email] = id
	}

	*current = next
	return next, nil
}

// Remove deletes the account and returns the removed record.
func (s *AccountStore) Remove(id string) (models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return models.Account{}, apperr.NotFound("account", id)
	}
	delete(s.accounts, id)
	delete(s.byEmail, account.Email)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return *account, nil
}

// List returns a snapshot of all accounts in creation order.
func (s *AccountStore) List() []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]models.Account, 0, len(s.order))
	for _, id := range s.order {
		list = append(list, *s.accounts[id])
	}
	return list
}

// Filter returns, in creation order, the accounts keep accepts.
func (s *AccountStore) Filter(keep func(models.Account) bool) []models.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := []models.Account{}
	for _, id := range s.order {
		if account := *s.accounts[id]; keep(account) {
			list = append(list, account)
		}
	}
	return list
}

func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
