//go:build !integration

package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/valence-cli/internal/config"
	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/querycache"
	"github.com/sells-group/valence-cli/internal/resilience"
	"github.com/sells-group/valence-cli/internal/review"
	"github.com/sells-group/valence-cli/pkg/valence"
)

// listBackend serves two deals: d1 already complete and d2 finishing on its
// second status read.
func listBackend(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var d2Reads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/deals":
			_, _ = w.Write([]byte(`[{"deal_id":"d1","deal_name":"Acme TLB"},{"deal_id":"d2","deal_name":"Globex RCF"}]`))
		case "/functions/v1/deal-statuses":
			_, _ = w.Write([]byte(`{"statuses":{"d1":{"status":"complete","progress":100},"d2":{"status":"extracting","progress":40}}}`))
		case "/api/deals/d2/status":
			if d2Reads.Add(1) == 1 {
				_, _ = w.Write([]byte(`{"status":"storing","progress":90,"current_step":"storing"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"complete","progress":100}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &d2Reads
}

func listService(t *testing.T, baseURL string) *review.Service {
	t.Helper()
	client := valence.NewClient(valence.WithBaseURL(baseURL))
	svc, err := review.New(client, querycache.New(0, time.Minute, querycache.WithReadRetry(resilience.NoRetry())))
	require.NoError(t, err)
	return svc
}

func TestShowAll_WatchFollowsExtractingRows(t *testing.T) {
	srv, d2Reads := listBackend(t)
	svc := listService(t, srv.URL)

	policy := poll.Conservative()
	policy.Interval = time.Millisecond
	policy.Retry = resilience.NoRetry()

	var out bytes.Buffer
	require.NoError(t, showAll(t.Context(), svc, &out, &policy))

	output := out.String()
	assert.Equal(t, int32(2), d2Reads.Load())
	assert.Contains(t, output, "Storing")
	assert.Equal(t, 2, strings.Count(output, "DEAL"), "table printed before and after watching")
	final := output[strings.LastIndex(output, "DEAL"):]
	assert.NotContains(t, final, "Extracting")
	assert.Equal(t, 2, strings.Count(final, "Complete"))
}

func TestShowAll_WithoutWatchReadsOnce(t *testing.T) {
	srv, d2Reads := listBackend(t)
	svc := listService(t, srv.URL)

	var out bytes.Buffer
	require.NoError(t, showAll(t.Context(), svc, &out, nil))

	assert.Zero(t, d2Reads.Load())
	assert.Equal(t, 1, strings.Count(out.String(), "DEAL"))
	assert.Contains(t, out.String(), "Extracting")
}

func TestStatusPolicy_RetriesAfterFirstAttempt(t *testing.T) {
	prev := cfg
	t.Cleanup(func() { cfg = prev })
	cfg = &config.Config{}
	cfg.Status.ListIntervalMs = 7000
	cfg.Status.Retries = 3
	cfg.Status.RetryDelayMs = 500

	p := statusPolicy(poll.Conservative(), cfg.Status.ListIntervalMs)
	assert.Equal(t, 7*time.Second, p.Interval)
	assert.Equal(t, 4, p.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, p.Retry.InitialBackoff)
	assert.Equal(t, 4, readRetry().MaxAttempts)
}

func TestTruncate_RuneSafe(t *testing.T) {
	got := truncate("✓ Builder ⚠ basket capacity", 10)
	assert.Equal(t, "✓ Build...", got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "short ⚠", truncate("short ⚠", 10))
}
