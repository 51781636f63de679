// Package resilience provides the retry policy and error taxonomy for calls
// to external services.
package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Backoff selects how the delay grows between attempts.
type Backoff int

const (
	// BackoffFibonacci grows the delay as 1, 1, 2, 3, 5, 8... times InitialBackoff.
	BackoffFibonacci Backoff = iota
	// BackoffExponential grows the delay by Multiplier after each attempt.
	BackoffExponential
)

func (b Backoff) String() string {
	switch b {
	case BackoffFibonacci:
		return "fibonacci"
	case BackoffExponential:
		return "exponential"
	default:
		return "unknown"
	}
}

// RetryConfig controls retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (including the first try).
	// A value of 1 means no retries. Default: 8.
	MaxAttempts int

	// InitialBackoff is the unit of the delay sequence. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed delay before jitter. Default: 60s.
	MaxBackoff time.Duration

	// Backoff selects the growth shape. Default: BackoffFibonacci.
	Backoff Backoff

	// Multiplier scales the delay per attempt for BackoffExponential. Default: 2.0.
	Multiplier float64

	// JitterCeiling enables full jitter: each wait is drawn uniformly from
	// [0, min(delay, JitterCeiling)]. Zero disables it. Default: 10s.
	JitterCeiling time.Duration

	// NoWait skips sleeping between attempts.
	NoWait bool

	// ShouldRetry optionally overrides the default transient-error check.
	// If nil, IsTransient is used.
	ShouldRetry func(err error) bool

	// OnRetry is called before each retry sleep with attempt number and error.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the policy used for geocoding and routing calls:
// Fibonacci growth, full jitter capped at 10s, 8 attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    8,
		InitialBackoff: time.Second,
		MaxBackoff:     60 * time.Second,
		Backoff:        BackoffFibonacci,
		Multiplier:     2.0,
		JitterCeiling:  10 * time.Second,
	}
}

// NoWaitRetryConfig returns a policy with the given attempt budget that
// never sleeps between attempts.
func NoWaitRetryConfig(maxAttempts int) RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = maxAttempts
	cfg.NoWait = true
	return cfg
}

// Do executes fn with retry logic according to cfg. It retries only on
// errors deemed transient (via ShouldRetry or the default IsTransient check).
// Context cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	_, err := DoVal(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoVal executes fn returning a value with retry logic. Same semantics as Do
// but preserves the return value from the successful call.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = applyDefaults(cfg)

	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, lastErr
		}

		if !shouldRetry(lastErr) {
			return zero, lastErr
		}

		// Don't sleep after the last attempt.
		if attempt >= cfg.MaxAttempts-1 {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, lastErr)
		}

		if cfg.NoWait {
			continue
		}

		timer := time.NewTimer(computeBackoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

func applyDefaults(cfg RetryConfig) RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.JitterCeiling < 0 {
		cfg.JitterCeiling = 0
	}
	return cfg
}

// fibonacci returns the n-th term of 1, 1, 2, 3, 5, ...
func fibonacci(n int) float64 {
	a, b := 1.0, 1.0
	for range n {
		a, b = b, a+b
	}
	return a
}

func baseDelay(attempt int, cfg RetryConfig) float64 {
	var delay float64
	switch cfg.Backoff {
	case BackoffExponential:
		delay = float64(cfg.InitialBackoff) * math.Pow(cfg.Multiplier, float64(attempt))
	default:
		delay = float64(cfg.InitialBackoff) * fibonacci(attempt)
	}
	if delay > float64(cfg.MaxBackoff) {
		delay = float64(cfg.MaxBackoff)
	}
	return delay
}

func computeBackoff(attempt int, cfg RetryConfig) time.Duration {
	delay := baseDelay(attempt, cfg)

	if cfg.JitterCeiling > 0 {
		delay = rand.Float64() * min(delay, float64(cfg.JitterCeiling))
	}
	return time.Duration(delay)
}

// RetryLogger returns an OnRetry callback that logs each retry attempt.
func RetryLogger(service, operation string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("service", service),
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}

// WithLogger returns a copy of cfg whose OnRetry logs through RetryLogger,
// chaining any callback already set.
func (cfg RetryConfig) WithLogger(service, operation string) RetryConfig {
	log := RetryLogger(service, operation)
	prev := cfg.OnRetry
	cfg.OnRetry = func(attempt int, err error) {
		log(attempt, err)
		if prev != nil {
			prev(attempt, err)
		}
	}
	return cfg
}
