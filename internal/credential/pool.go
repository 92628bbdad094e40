package credential

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/storefront/user-service/internal/metrics"
)

// HashResult is delivered on the channel returned by HashAsync.
type HashResult struct {
	Digest string
	Err    error
}

// Pool bounds how many bcrypt operations run at once so request goroutines
// never pile up CPU-bound work.
type Pool struct {
	sem    *semaphore.Weighted
	hasher Hasher
}

// NewPool sizes the pool to workers, or to the CPU count when workers <= 0.
func NewPool(hasher Hasher, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(workers)),
		hasher: hasher,
	}
}

// HashAsync digests secret on a pool slot. The channel receives exactly one
// result; a ctx cancelled before a slot frees up yields ctx.Err().
func (p *Pool) HashAsync(ctx context.Context, secret string) <-chan HashResult {
	out := make(chan HashResult, 1)
	go func() {
		defer close(out)
		start := time.Now()
		defer metrics.ObserveHash("hash", start)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- HashResult{Err: err}
			return
		}
		defer p.sem.Release(1)

		digest, err := p.hasher.Hash(secret)
		out <- HashResult{Digest: digest, Err: err}
	}()
	return out
}

// CompareAsync checks secret against digest on a pool slot. The channel
// receives false if ctx ends before a slot is acquired.
func (p *Pool) CompareAsync(ctx context.Context, digest, secret string) <-chan bool {
	out := make(chan bool, 1)
	go func() {
		defer close(out)
		start := time.Now()
		defer metrics.ObserveHash("compare", start)

		if err := p.sem.Acquire(ctx, 1); err != nil {
			out <- false
			return
		}
		defer p.sem.Release(1)

		out <- p.hasher.Matches(digest, secret)
	}()
	return out
}

// Hash blocks on HashAsync or ctx, whichever finishes first.
func (p *Pool) Hash(ctx context.Context, secret string) (string, error) {
	select {
	case res := <-p.HashAsync(ctx, secret):
		return res.Digest, res.Err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Compare blocks on CompareAsync or ctx, whichever finishes first.
func (p *Pool) Compare(ctx context.Context, digest, secret string) (bool, error) {
	select {
	case ok := <-p.CompareAsync(ctx, digest, secret):
		if err := ctx.Err(); err != nil && !ok {
			return false, err
		}
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
