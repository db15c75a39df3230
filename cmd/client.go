package main

import (
	"time"

	"github.com/sells-group/valence-cli/internal/poll"
	"github.com/sells-group/valence-cli/internal/querycache"
	"github.com/sells-group/valence-cli/internal/resilience"
	"github.com/sells-group/valence-cli/internal/review"
	"github.com/sells-group/valence-cli/pkg/valence"
)

func millis(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func newClient() valence.Client {
	return valence.NewClient(
		valence.WithBaseURL(cfg.API.BaseURL),
		valence.WithFunctionsURL(cfg.API.FunctionsURL),
		valence.WithRequestTimeout(cfg.API.RequestTimeout()),
		valence.WithEvalTimeout(time.Duration(cfg.Eval.TimeoutMins)*time.Minute),
	)
}

// readRetry is the configured policy for status and cached reads.
func readRetry() resilience.RetryConfig {
	return resilience.FromRetryConfig(cfg.Status.Retries, cfg.Status.RetryDelayMs)
}

// statusPolicy returns base with the configured interval and retry counts.
func statusPolicy(base poll.Policy, intervalMs int) poll.Policy {
	if intervalMs > 0 {
		base.Interval = millis(intervalMs)
	}
	if cfg.Status.Retries > 0 {
		base.Retry.MaxAttempts = cfg.Status.Retries + 1
	}
	if cfg.Status.RetryDelayMs > 0 {
		base.Retry.InitialBackoff = millis(cfg.Status.RetryDelayMs)
	}
	return base
}

func newCache() *querycache.Cache {
	return querycache.New(cfg.Cache.MaxEntries, seconds(cfg.Cache.TTLSecs),
		querycache.WithResourceTTL(querycache.ResourceOntology, seconds(cfg.Cache.OntologyTTLSecs)),
		querycache.WithReadRetry(readRetry()),
	)
}

func newService(client valence.Client) (*review.Service, error) {
	return review.New(client, newCache(),
		review.WithPollPolicy(statusPolicy(poll.Aggressive(), cfg.Status.PollIntervalMs)),
	)
}
