// Package usage keeps the monthly order counters of every account.
package usage

import (
	"sync"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/clock"
	"github.com/storefront/user-service/internal/models"
)

// AccountChecker reports whether an account is live. The tracker consults it
// before creating a record so a deleted account never regains one.
type AccountChecker interface {
	Exists(id string) bool
}

type entry struct {
	mu     sync.Mutex
	record models.UsageRecord
}

// Tracker owns one UsageRecord per account that has ever ordered.
//
// mu guards the map. Increments hold mu for reading plus the entry mutex, so
// increments on different accounts run in parallel. ResetMonthly and record
// creation hold mu for writing and therefore exclude every in-flight increment.
type Tracker struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	accounts AccountChecker
	clock    clock.Clock
}

func NewTracker(accounts AccountChecker, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.System{}
	}
	return &Tracker{
		entries:  make(map[string]*entry),
		accounts: accounts,
		clock:    clk,
	}
}

// RecordOrder atomically bumps both counters of id and stamps lastOrderAt.
func (t *Tracker) RecordOrder(id string) (models.UsageRecord, error) {
	t.mu.RLock()
	e, ok := t.entries[id]
	if ok {
		rec := e.increment(t.clock)
		t.mu.RUnlock()
		return rec, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.accounts.Exists(id) {
		return models.UsageRecord{}, apperr.NotFound("account", id)
	}
	e, ok = t.entries[id]
	if !ok {
		e = &entry{}
		t.entries[id] = e
	}
	return e.increment(t.clock), nil
}

// Usage returns a copy of id's counters. Untracked ids read as zero.
func (t *Tracker) Usage(id string) models.UsageRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.entries[id]
	if !ok {
		return models.UsageRecord{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record.Copy()
}

// ResetMonthly zeroes ordersThisMonth on every record and returns how many
// records it touched. Totals and lastOrderAt are kept.
func (t *Tracker) ResetMonthly() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		e.record.OrdersThisMonth = 0
	}
	return len(t.entries)
}

// Forget drops the record of a deleted account.
func (t *Tracker) Forget(id string) {
	t.mu.Lock()
	delete(t.entries, id)
	t.mu.Unlock()
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (e *entry) increment(clk clock.Clock) models.UsageRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := clk.Now()
	e.record.OrdersThisMonth++
	e.record.TotalOrders++
	e.record.LastOrderAt = &now
	return e.record.Copy()
}
