// Package querycache is the in-memory request/response cache shared by the
// review flows. Entries are keyed by resource type and identifier, expire
// after a per-resource staleness window, and are evicted LRU at capacity.
package querycache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/valence-cli/internal/resilience"
)

// Resource names used as the first key component.
const (
	ResourceDeals      = "deals"
	ResourceDeal       = "deal"
	ResourceStatus     = "deal-status"
	ResourceAnswers    = "answers"
	ResourceProvision  = "rp-provision"
	ResourceProvenance = "provenance"
	ResourceOntology   = "ontology"
	ResourceEval       = "eval"
)

// ErrInFlight is returned when a mutation with the same key is already
// running.
var ErrInFlight = eris.New("querycache: mutation already in flight")

// Key identifies a cached response. A Key with an empty ID names the whole
// resource collection; a prefix Key names every ID below a parent.
type Key struct {
	Resource string
	ID       string
	Prefix   bool
}

// Collection returns the key for a whole resource.
func Collection(resource string) Key {
	return Key{Resource: resource}
}

// Item returns the key for one resource instance.
func Item(resource, id string) Key {
	return Key{Resource: resource, ID: id}
}

// Under returns the key for every instance whose ID is parent + "/" + sub,
// for resources keyed by a parent and a sub-key. Only Invalidate honors it.
func Under(resource, parent string) Key {
	return Key{Resource: resource, ID: parent + "/", Prefix: true}
}

func (k Key) String() string {
	return k.Resource + "/" + k.ID
}

// Stats contains cache performance statistics.
type Stats struct {
	Entries    int     `json:"entries"`
	MaxEntries int     `json:"max_entries"`
	Hits       int64   `json:"hits"`
	Misses     int64   `json:"misses"`
	HitRate    float64 `json:"hit_rate"`
}

type entry struct {
	value    any
	storedAt time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithResourceTTL overrides the staleness window for one resource.
func WithResourceTTL(resource string, ttl time.Duration) Option {
	return func(c *Cache) {
		c.resourceTTL[resource] = ttl
	}
}

// WithReadRetry sets the retry policy applied to Query fetches.
func WithReadRetry(cfg resilience.RetryConfig) Option {
	return func(c *Cache) {
		c.readRetry = cfg
	}
}

// Cache is safe for concurrent use.
type Cache struct {
	mu          sync.RWMutex
	entries     map[string]*entry
	order       []string // LRU order: front=oldest, back=newest
	maxEntries  int
	ttl         time.Duration
	resourceTTL map[string]time.Duration
	hits        atomic.Int64
	misses      atomic.Int64

	readRetry resilience.RetryConfig

	mutMu    sync.Mutex
	inFlight map[string]struct{}

	now func() time.Time
}

// New creates a cache holding at most maxEntries entries, each fresh for
// ttl unless overridden per resource.
func New(maxEntries int, ttl time.Duration, opts ...Option) *Cache {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	c := &Cache{
		entries:     make(map[string]*entry),
		maxEntries:  maxEntries,
		ttl:         ttl,
		resourceTTL: make(map[string]time.Duration),
		readRetry:   resilience.DefaultRetryConfig(),
		inFlight:    make(map[string]struct{}),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) ttlFor(resource string) time.Duration {
	if ttl, ok := c.resourceTTL[resource]; ok {
		return ttl
	}
	return c.ttl
}

// Get returns the cached value for key if present and fresh.
func (c *Cache) Get(key Key) (any, bool) {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[k]
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if c.now().Sub(e.storedAt) > c.ttlFor(key.Resource) {
		delete(c.entries, k)
		c.removeFromOrder(k)
		c.misses.Add(1)
		return nil, false
	}

	c.removeFromOrder(k)
	c.order = append(c.order, k)
	c.hits.Add(1)
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry at
// capacity.
func (c *Cache) Put(key Key, value any) {
	k := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[k]; ok {
		c.entries[k] = &entry{value: value, storedAt: c.now()}
		c.removeFromOrder(k)
		c.order = append(c.order, k)
		return
	}

	for len(c.entries) >= c.maxEntries && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[k] = &entry{value: value, storedAt: c.now()}
	c.order = append(c.order, k)
}

// Invalidate drops the given keys. A collection key drops every entry of
// that resource.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		match := func(k string) bool { return k == key.String() }
		if key.ID == "" || key.Prefix {
			prefix := key.String()
			match = func(k string) bool { return strings.HasPrefix(k, prefix) }
		}

		remaining := c.order[:0]
		for _, k := range c.order {
			if match(k) {
				delete(c.entries, k)
			} else {
				remaining = append(remaining, k)
			}
		}
		c.order = remaining
	}
}

// Stats returns cache performance statistics.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	entries := len(c.entries)
	maxEntries := c.maxEntries
	c.mu.RUnlock()

	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return Stats{
		Entries:    entries,
		MaxEntries: maxEntries,
		Hits:       hits,
		Misses:     misses,
		HitRate:    hitRate,
	}
}

func (c *Cache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

// Query returns the cached value for key or loads it with fetch. Loads are
// retried according to the cache's read policy; failures are not cached.
func Query[T any](ctx context.Context, c *Cache, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	retry := c.readRetry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger(key.Resource, key.ID)
	}
	val, err := resilience.DoVal(ctx, retry, fetch)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Put(key, val)
	return val, nil
}

// Mutate runs fn once, without retry. A second call with the same
// mutationKey while the first is running fails with ErrInFlight. On success
// the listed keys are invalidated.
func Mutate[T any](ctx context.Context, c *Cache, mutationKey string, fn func(ctx context.Context) (T, error), invalidate ...Key) (T, error) {
	var zero T

	c.mutMu.Lock()
	if _, busy := c.inFlight[mutationKey]; busy {
		c.mutMu.Unlock()
		return zero, ErrInFlight
	}
	c.inFlight[mutationKey] = struct{}{}
	c.mutMu.Unlock()

	defer func() {
		c.mutMu.Lock()
		delete(c.inFlight, mutationKey)
		c.mutMu.Unlock()
	}()

	val, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	c.Invalidate(invalidate...)
	if len(invalidate) > 0 {
		zap.L().Debug("querycache: invalidated after mutation",
			zap.String("mutation", mutationKey),
			zap.Int("keys", len(invalidate)),
		)
	}
	return val, nil
}

// InFlight reports whether a mutation with the given key is running, so
// callers can disable the control that submits it.
func (c *Cache) InFlight(mutationKey string) bool {
	c.mutMu.Lock()
	defer c.mutMu.Unlock()
	_, ok := c.inFlight[mutationKey]
	return ok
}
