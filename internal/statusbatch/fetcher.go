// Package statusbatch fans a list of deal ids out to the per-deal status
// endpoint with bounded concurrency and folds the results into one map.
package statusbatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/resilience"
)

const (
	defaultConcurrency     = 4
	defaultUpstreamTimeout = 10 * time.Second
)

// StatusGetter loads one deal's status.
type StatusGetter interface {
	GetStatus(ctx context.Context, dealID string) (*model.DealStatus, error)
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithConcurrency caps simultaneous upstream requests.
func WithConcurrency(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// WithUpstreamTimeout bounds each upstream request.
func WithUpstreamTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithRateLimit throttles upstream requests to perSec with the given burst.
// A non-positive rate disables limiting.
func WithRateLimit(perSec float64, burst int) Option {
	return func(f *Fetcher) {
		if perSec <= 0 {
			f.limiter = nil
			return
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSec), max(burst, 1))
	}
}

// WithCircuitBreaker short-circuits upstream calls while the breaker is
// open; those ids degrade to pending like any other failure.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(f *Fetcher) {
		f.breaker = cb
	}
}

// Fetcher resolves many deal statuses at once.
type Fetcher struct {
	getter      StatusGetter
	concurrency int
	timeout     time.Duration
	limiter     *rate.Limiter
	breaker     *resilience.CircuitBreaker
}

// NewFetcher creates a Fetcher over getter.
func NewFetcher(getter StatusGetter, opts ...Option) *Fetcher {
	f := &Fetcher{
		getter:      getter,
		concurrency: defaultConcurrency,
		timeout:     defaultUpstreamTimeout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns exactly one entry per unique id. Any id whose upstream
// request fails, times out, or is rejected by the limiter or breaker maps
// to a synthetic pending status. Fetch never fails as a whole.
func (f *Fetcher) Fetch(ctx context.Context, ids []string) map[string]model.DealStatus {
	unique := dedupe(ids)
	results := make(map[string]model.DealStatus, len(unique))

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(f.concurrency)

	for _, id := range unique {
		g.Go(func() error {
			status := f.fetchOne(ctx, id)
			mu.Lock()
			results[id] = status
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) fetchOne(ctx context.Context, id string) model.DealStatus {
	if id == "" {
		return model.PendingStatus(id)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			zap.L().Warn("statusbatch: rate limiter wait failed", zap.String("deal_id", id), zap.Error(err))
			return model.PendingStatus(id)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	call := func(ctx context.Context) (*model.DealStatus, error) {
		return f.getter.GetStatus(ctx, id)
	}

	var (
		status *model.DealStatus
		err    error
	)
	if f.breaker != nil {
		status, err = resilience.ExecuteVal(ctx, f.breaker, call)
	} else {
		status, err = call(ctx)
	}
	if err != nil || status == nil {
		zap.L().Warn("statusbatch: status fetch failed, reporting pending",
			zap.String("deal_id", id),
			zap.Error(err),
		)
		return model.PendingStatus(id)
	}

	out := *status
	out.DealID = id
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
