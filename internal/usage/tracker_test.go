package usage

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/clock"
)

type fakeAccounts struct {
	mu   sync.Mutex
	live map[string]bool
}

func newFakeAccounts(ids ...string) *fakeAccounts {
	f := &fakeAccounts{live: make(map[string]bool)}
	for _, id := range ids {
		f.live[id] = true
	}
	return f
}

func (f *fakeAccounts) Exists(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live[id]
}

func (f *fakeAccounts) remove(id string) {
	f.mu.Lock()
	delete(f.live, id)
	f.mu.Unlock()
}

func TestTracker_RecordOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clk := clock.NewFixed(now)
	tr := NewTracker(newFakeAccounts("a1"), clk)

	assert.Equal(t, 0, tr.Usage("a1").OrdersThisMonth)
	assert.Equal(t, 0, tr.Len(), "reading must not create a record")

	rec, err := tr.RecordOrder("a1")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.OrdersThisMonth)
	assert.Equal(t, 1, rec.TotalOrders)
	require.NotNil(t, rec.LastOrderAt)
	assert.Equal(t, now, *rec.LastOrderAt)

	clk.Advance(time.Hour)
	rec, err = tr.RecordOrder("a1")
	require.NoError(t, err)
	assert.Equal(t, 2, rec.OrdersThisMonth)
	assert.Equal(t, now.Add(time.Hour), *rec.LastOrderAt)
}

func TestTracker_RecordOrderUnknownAccount(t *testing.T) {
	tr := NewTracker(newFakeAccounts(), nil)

	_, err := tr.RecordOrder("ghost")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, 0, tr.Len())
}

func TestTracker_UsageReturnsCopy(t *testing.T) {
	tr := NewTracker(newFakeAccounts("a1"), nil)
	_, err := tr.RecordOrder("a1")
	require.NoError(t, err)

	rec := tr.Usage("a1")
	*rec.LastOrderAt = time.Time{}
	rec.OrdersThisMonth = 99

	again := tr.Usage("a1")
	assert.Equal(t, 1, again.OrdersThisMonth)
	assert.False(t, again.LastOrderAt.IsZero())
}

func TestTracker_ResetMonthlyKeepsTotals(t *testing.T) {
	tr := NewTracker(newFakeAccounts("a1", "a2"), nil)
	for i := 0; i < 3; i++ {
		_, err := tr.RecordOrder("a1")
		require.NoError(t, err)
	}
	_, err := tr.RecordOrder("a2")
	require.NoError(t, err)

	assert.Equal(t, 2, tr.ResetMonthly())

	rec := tr.Usage("a1")
	assert.Equal(t, 0, rec.OrdersThisMonth)
	assert.Equal(t, 3, rec.TotalOrders)
	assert.NotNil(t, rec.LastOrderAt)
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	tr := NewTracker(newFakeAccounts("a1", "a2"), nil)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := tr.RecordOrder("a1")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := tr.RecordOrder("a2")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, tr.Usage("a1").OrdersThisMonth)
	assert.Equal(t, n, tr.Usage("a1").TotalOrders)
	assert.Equal(t, n, tr.Usage("a2").OrdersThisMonth)
}

func TestTracker_ResetDuringIncrementsLosesNothing(t *testing.T) {
	tr := NewTracker(newFakeAccounts("a1"), nil)

	const n = 500
	var wg sync.WaitGroup
	var resetMu sync.Mutex
	resets := 0

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := tr.RecordOrder("a1")
			assert.NoError(t, err)
			if i%50 == 0 {
				tr.ResetMonthly()
				resetMu.Lock()
				resets++
				resetMu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	rec := tr.Usage("a1")
	assert.Equal(t, n, rec.TotalOrders, "every increment lands in the total")
	assert.LessOrEqual(t, rec.OrdersThisMonth, n)
	assert.Equal(t, n/50, resets)

	tr.ResetMonthly()
	_, err := tr.RecordOrder("a1")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.Usage("a1").OrdersThisMonth)
}

func TestTracker_DeleteRacingRecordLeavesNoOrphan(t *testing.T) {
	for round := 0; round < 50; round++ {
		accounts := newFakeAccounts("a1")
		tr := NewTracker(accounts, nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = tr.RecordOrder("a1")
		}()
		go func() {
			defer wg.Done()
			accounts.remove("a1")
			tr.Forget("a1")
		}()
		wg.Wait()

		assert.Equal(t, 0, tr.Len(), "round %d left an orphan record", round)
	}
}
