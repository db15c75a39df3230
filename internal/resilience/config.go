package resilience

import (
	"time"
)

// FromRetryConfig converts a retry count and delay to a RetryConfig. Zero
// values keep the defaults.
func FromRetryConfig(retries, delayMs int) RetryConfig {
	delay := time.Duration(delayMs) * time.Millisecond
	if retries <= 0 {
		return FixedDelay(0, delay)
	}
	return Retries(retries, delay)
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
