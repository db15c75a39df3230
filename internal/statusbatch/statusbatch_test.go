package statusbatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valence-cli/internal/model"
	"github.com/sells-group/valence-cli/internal/resilience"
)

type fakeGetter struct {
	statuses map[string]model.Status
	fail     map[string]bool
	delay    time.Duration
	calls    atomic.Int32

	mu       sync.Mutex
	inFlight int
	peak     int
}

func (g *fakeGetter) GetStatus(ctx context.Context, id string) (*model.DealStatus, error) {
	g.calls.Add(1)
	g.mu.Lock()
	g.inFlight++
	g.peak = max(g.peak, g.inFlight)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.inFlight--
		g.mu.Unlock()
	}()

	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.fail[id] {
		return nil, errors.New("upstream 500")
	}
	return &model.DealStatus{DealID: "ignored", Status: g.statuses[id], Progress: 50}, nil
}

func TestFetch_OneFailureDegradesToPending(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{
		statuses: map[string]model.Status{
			"d1": model.StatusComplete,
			"d2": model.StatusExtracting,
			"d3": model.StatusComplete,
			"d4": model.StatusError,
		},
		fail: map[string]bool{"d3": true},
	}

	got := NewFetcher(g).Fetch(context.Background(), []string{"d1", "d2", "d3", "d4"})

	require.Len(t, got, 4)
	assert.Equal(t, model.StatusComplete, got["d1"].Status)
	assert.Equal(t, model.StatusExtracting, got["d2"].Status)
	assert.Equal(t, model.PendingStatus("d3"), got["d3"])
	assert.Equal(t, model.StatusError, got["d4"].Status)
	assert.Equal(t, "d1", got["d1"].DealID)
}

func TestFetch_DedupesIDs(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{statuses: map[string]model.Status{"d1": model.StatusComplete}}
	got := NewFetcher(g).Fetch(context.Background(), []string{"d1", "d1", "d1"})

	assert.Len(t, got, 1)
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestFetch_ConcurrencyCap(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{delay: 5 * time.Millisecond}
	ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	got := NewFetcher(g, WithConcurrency(2)).Fetch(context.Background(), ids)

	assert.Len(t, got, len(ids))
	assert.LessOrEqual(t, g.peak, 2)
}

func TestFetch_UpstreamTimeout(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{
		statuses: map[string]model.Status{"slow": model.StatusComplete},
		delay:    time.Second,
	}

	start := time.Now()
	got := NewFetcher(g, WithUpstreamTimeout(10*time.Millisecond)).Fetch(context.Background(), []string{"slow"})

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, model.StatusPending, got["slow"].Status)
}

func TestFetch_OpenBreakerSkipsUpstream(t *testing.T) {
	t.Parallel()

	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:             "status",
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
	})
	g := &fakeGetter{fail: map[string]bool{"bad": true}}
	f := NewFetcher(g, WithCircuitBreaker(cb), WithConcurrency(1))

	f.Fetch(context.Background(), []string{"bad"})
	require.Equal(t, resilience.CircuitOpen, cb.State())

	calls := g.calls.Load()
	got := f.Fetch(context.Background(), []string{"x", "y"})
	assert.Equal(t, calls, g.calls.Load())
	assert.Equal(t, model.StatusPending, got["x"].Status)
	assert.Equal(t, model.StatusPending, got["y"].Status)
}

func TestFetch_RateLimited(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := NewFetcher(g, WithRateLimit(1, 1)).Fetch(ctx, []string{"a"})

	assert.Equal(t, model.StatusPending, got["a"].Status)
	assert.Zero(t, g.calls.Load())
}

func TestHandler(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{
		statuses: map[string]model.Status{"d1": model.StatusComplete, "d2": model.StatusStoring},
		fail:     map[string]bool{"d2": true},
	}
	h := NewHandler(NewFetcher(g), 3)

	tests := []struct {
		name     string
		method   string
		body     string
		wantCode int
		wantBody string
	}{
		{"preflight", http.MethodOptions, "", http.StatusOK, "ok"},
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed, "Method not allowed"},
		{"empty array", http.MethodPost, `{"deal_ids":[]}`, http.StatusBadRequest, "deal_ids must be a non-empty array"},
		{"not an array", http.MethodPost, `{"deal_ids":"d1"}`, http.StatusBadRequest, "deal_ids must be a non-empty array"},
		{"missing", http.MethodPost, `{}`, http.StatusBadRequest, "deal_ids must be a non-empty array"},
		{"bad json", http.MethodPost, `{`, http.StatusInternalServerError, "Internal server error"},
		{"too many", http.MethodPost, `{"deal_ids":["a","b","c","d"]}`, http.StatusBadRequest, "at most 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(tt.method, "/functions/v1/deal-statuses", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandler_Success(t *testing.T) {
	t.Parallel()

	g := &fakeGetter{
		statuses: map[string]model.Status{"d1": model.StatusComplete},
		fail:     map[string]bool{"d2": true},
	}
	h := NewHandler(NewFetcher(g), 3)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"deal_ids":["d1","d2"]}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Statuses map[string]model.DealStatus `json:"statuses"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Statuses, 2)
	assert.Equal(t, model.StatusComplete, resp.Statuses["d1"].Status)
	assert.Equal(t, model.StatusPending, resp.Statuses["d2"].Status)
}

func TestCORS_Preflight(t *testing.T) {
	t.Parallel()

	h := CORS()(NewHandler(NewFetcher(&fakeGetter{}), 0))

	req := httptest.NewRequest(http.MethodOptions, "/functions/v1/deal-statuses", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "apikey, content-type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(rec.Header().Get("Access-Control-Allow-Headers")), "apikey")
}
