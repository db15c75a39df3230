package querycache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valence-cli/internal/resilience"
)

func fastRetry() resilience.RetryConfig {
	cfg := resilience.FixedDelay(3, time.Millisecond)
	cfg.ShouldRetry = func(error) bool { return true }
	cfg.OnRetry = func(int, error) {}
	return cfg
}

func TestCache_GetPut(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute)
	c.Put(Item(ResourceDeal, "d1"), "Acme")

	v, ok := c.Get(Item(ResourceDeal, "d1"))
	require.True(t, ok)
	assert.Equal(t, "Acme", v)

	_, ok = c.Get(Item(ResourceDeal, "d2"))
	assert.False(t, ok)

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 0.001)
}

func TestCache_TTL(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(10, time.Minute, WithResourceTTL(ResourceOntology, time.Hour))
	c.now = func() time.Time { return now }

	c.Put(Item(ResourceStatus, "d1"), "pending")
	c.Put(Collection(ResourceOntology), "questions")

	now = now.Add(2 * time.Minute)
	_, ok := c.Get(Item(ResourceStatus, "d1"))
	assert.False(t, ok, "status is stale after the default ttl")
	_, ok = c.Get(Collection(ResourceOntology))
	assert.True(t, ok, "ontology keeps its longer ttl")
	assert.Equal(t, 1, c.Stats().Entries)
}

func TestCache_LRUEviction(t *testing.T) {
	t.Parallel()

	c := New(2, time.Minute)
	c.Put(Item(ResourceDeal, "a"), 1)
	c.Put(Item(ResourceDeal, "b"), 2)
	_, _ = c.Get(Item(ResourceDeal, "a"))
	c.Put(Item(ResourceDeal, "c"), 3)

	_, ok := c.Get(Item(ResourceDeal, "b"))
	assert.False(t, ok)
	_, ok = c.Get(Item(ResourceDeal, "a"))
	assert.True(t, ok)
	_, ok = c.Get(Item(ResourceDeal, "c"))
	assert.True(t, ok)
}

func TestCache_InvalidateCollection(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute)
	c.Put(Collection(ResourceDeals), []string{"d1"})
	c.Put(Item(ResourceStatus, "d1"), "complete")
	c.Put(Item(ResourceStatus, "d2"), "pending")
	c.Put(Item(ResourceAnswers, "d1"), "answers")

	c.Invalidate(Collection(ResourceDeals), Item(ResourceStatus, "d1"))

	_, ok := c.Get(Collection(ResourceDeals))
	assert.False(t, ok)
	_, ok = c.Get(Item(ResourceStatus, "d1"))
	assert.False(t, ok)
	_, ok = c.Get(Item(ResourceStatus, "d2"))
	assert.True(t, ok)
	_, ok = c.Get(Item(ResourceAnswers, "d1"))
	assert.True(t, ok)

	c.Invalidate(Collection(ResourceStatus))
	_, ok = c.Get(Item(ResourceStatus, "d2"))
	assert.False(t, ok)
}

func TestCache_InvalidateUnder(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute)
	c.Put(Item(ResourceProvenance, "d1/rp_q1"), "p1")
	c.Put(Item(ResourceProvenance, "d1/rp_q2"), "p2")
	c.Put(Item(ResourceProvenance, "d10/rp_q1"), "p3")

	c.Invalidate(Under(ResourceProvenance, "d1"))

	_, ok := c.Get(Item(ResourceProvenance, "d1/rp_q1"))
	assert.False(t, ok)
	_, ok = c.Get(Item(ResourceProvenance, "d1/rp_q2"))
	assert.False(t, ok)
	_, ok = c.Get(Item(ResourceProvenance, "d10/rp_q1"))
	assert.True(t, ok, "sibling deal with a shared id prefix survives")
}

func TestQuery_CachesAndRetries(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute, WithReadRetry(fastRetry()))
	var calls atomic.Int32
	fetch := func(context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("flaky")
		}
		return "ok", nil
	}

	got, err := Query(context.Background(), c, Item(ResourceDeal, "d1"), fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls.Load())

	got, err = Query(context.Background(), c, Item(ResourceDeal, "d1"), fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(3), calls.Load(), "second read served from cache")
}

func TestQuery_ErrorNotCached(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute, WithReadRetry(fastRetry()))
	var calls atomic.Int32

	_, err := Query(context.Background(), c, Item(ResourceDeal, "d1"), func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errors.New("down")
	})

	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Zero(t, c.Stats().Entries)
}

func TestMutate_InvalidatesOnSuccess(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute)
	c.Put(Collection(ResourceDeals), "list")

	_, err := Mutate(context.Background(), c, "delete:d1", func(context.Context) (struct{}, error) {
		return struct{}{}, errors.New("refused")
	}, Collection(ResourceDeals))
	require.Error(t, err)
	_, ok := c.Get(Collection(ResourceDeals))
	assert.True(t, ok, "failed mutation keeps the cache")

	var calls atomic.Int32
	_, err = Mutate(context.Background(), c, "delete:d1", func(context.Context) (struct{}, error) {
		calls.Add(1)
		return struct{}{}, nil
	}, Collection(ResourceDeals))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	_, ok = c.Get(Collection(ResourceDeals))
	assert.False(t, ok)
}

func TestMutate_RejectsDoubleSubmit(t *testing.T) {
	t.Parallel()

	c := New(10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := Mutate(context.Background(), c, "upload", func(context.Context) (string, error) {
			close(started)
			<-release
			return "d1", nil
		})
		done <- err
	}()

	<-started
	assert.True(t, c.InFlight("upload"))
	_, err := Mutate(context.Background(), c, "upload", func(context.Context) (string, error) {
		t.Fatal("second mutation must not run")
		return "", nil
	})
	assert.ErrorIs(t, err, ErrInFlight)

	_, err = Mutate(context.Background(), c, "delete:d9", func(context.Context) (string, error) {
		return "other key runs", nil
	})
	assert.NoError(t, err)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, c.InFlight("upload"))
}
