// Package poll watches a deal's extraction status until it reaches a
// terminal state.
package poll

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/resilience"
)

// ErrNoDeal is returned when asked to watch an empty deal identifier.
var ErrNoDeal = eris.New("poll: deal id is required")

// FetchFunc loads the current status of a deal.
type FetchFunc func(ctx context.Context, dealID string) (*model.DealStatus, error)

// Policy controls how often a status is refetched and how failed fetches
// are retried.
type Policy struct {
	// Interval is the wait between a completed fetch and the next one.
	Interval time.Duration
	// OneShot fetches once and stops regardless of state.
	OneShot bool
	// Retry applies to each individual fetch.
	Retry resilience.RetryConfig
}

// statusRetry retries any failed status read three times, one second apart.
// A missing status is common right after upload, so errors are not
// classified here.
func statusRetry() resilience.RetryConfig {
	cfg := resilience.Retries(3, time.Second)
	cfg.ShouldRetry = func(error) bool { return true }
	return cfg
}

// Aggressive polls every two seconds. Used by detail and upload views.
func Aggressive() Policy {
	return Policy{Interval: 2 * time.Second, Retry: statusRetry()}
}

// Conservative polls every five seconds. Used by list views.
func Conservative() Policy {
	return Policy{Interval: 5 * time.Second, Retry: statusRetry()}
}

// OneShot fetches a single time.
func OneShot() Policy {
	return Policy{OneShot: true, Retry: statusRetry()}
}

// Update is delivered after every fetch, successful or not.
type Update struct {
	Status model.DealStatus
	Err    error
	Fetch  int
}

// Watch fetches the status of dealID, waits policy.Interval, and fetches
// again until the status is terminal, ctx is done, or a fetch fails after
// its retries. Fetches never overlap. onUpdate may be nil.
//
// The returned status is the last one observed.
func Watch(ctx context.Context, dealID string, fetch FetchFunc, policy Policy, onUpdate func(Update)) (model.DealStatus, error) {
	if dealID == "" {
		return model.DealStatus{}, ErrNoDeal
	}
	if policy.Retry.OnRetry == nil {
		policy.Retry.OnRetry = resilience.RetryLogger("deal-status", dealID)
	}

	var last model.DealStatus
	for n := 1; ; n++ {
		status, err := resilience.DoVal(ctx, policy.Retry, func(ctx context.Context) (*model.DealStatus, error) {
			return fetch(ctx, dealID)
		})
		if err != nil {
			if onUpdate != nil {
				onUpdate(Update{Status: last, Err: err, Fetch: n})
			}
			if ctx.Err() != nil {
				return last, eris.Wrap(ctx.Err(), fmt.Sprintf("poll: watch %s cancelled", dealID))
			}
			return last, eris.Wrap(err, fmt.Sprintf("poll: fetch status %s", dealID))
		}

		last = *status
		if last.DealID == "" {
			last.DealID = dealID
		}
		if onUpdate != nil {
			onUpdate(Update{Status: last, Fetch: n})
		}

		if last.IsTerminal() || policy.OneShot {
			zap.L().Debug("poll: stopped",
				zap.String("deal_id", dealID),
				zap.String("status", string(last.Status)),
				zap.Int("fetches", n),
			)
			return last, nil
		}

		timer := time.NewTimer(policy.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, eris.Wrap(ctx.Err(), fmt.Sprintf("poll: watch %s cancelled", dealID))
		case <-timer.C:
		}
	}
}

// Subscription is a Watch running in the background. It is bound to its
// owner: Stop must be called when the owner goes away.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu   sync.Mutex
	last model.DealStatus
	err  error
}

// Start runs Watch in a goroutine.
func Start(ctx context.Context, dealID string, fetch FetchFunc, policy Policy, onUpdate func(Update)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(s.done)
		last, err := Watch(ctx, dealID, fetch, policy, onUpdate)
		s.mu.Lock()
		s.last, s.err = last, err
		s.mu.Unlock()
	}()
	return s
}

// Stop cancels the watch and waits for it to exit. It is safe to call more
// than once.
func (s *Subscription) Stop() {
	s.cancel()
	<-s.done
}

// Done is closed once the watch has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Result returns the last observed status and the terminating error. It is
// only meaningful after Done is closed.
func (s *Subscription) Result() (model.DealStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.err
}
