package resilience

import (
	"strings"
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. Zero or negative
// values keep the defaults.
func FromRetryConfig(maxAttempts, initialBackoffMs, maxBackoffMs, jitterCeilingMs int, backoff string) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if initialBackoffMs > 0 {
		cfg.InitialBackoff = time.Duration(initialBackoffMs) * time.Millisecond
	}
	if maxBackoffMs > 0 {
		cfg.MaxBackoff = time.Duration(maxBackoffMs) * time.Millisecond
	}
	if jitterCeilingMs > 0 {
		cfg.JitterCeiling = time.Duration(jitterCeilingMs) * time.Millisecond
	}
	if strings.EqualFold(backoff, BackoffExponential.String()) {
		cfg.Backoff = BackoffExponential
	}
	return cfg
}
