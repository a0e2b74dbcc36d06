package execution

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy governs the exponential backoff applied between attempts of
// a retryable failure. See engine specification §4.4, "Failure path".
type RetryPolicy struct {
	BackoffBase time.Duration
	BackoffMax  time.Duration
	JitterFrac  float64
}

// DefaultRetryPolicy mirrors the engine's configuration defaults
// (default_retry_backoff_base, default_retry_backoff_max).
func DefaultRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		BackoffBase: 1 * time.Second,
		BackoffMax:  5 * time.Minute,
		JitterFrac:  0.1,
	}
}

// Delay computes delay = min(delay_max, base * 2^attempt), with jitter.
// attempt is the attempt number that just failed (0-indexed).
func (p *RetryPolicy) Delay(attempt int) time.Duration {
	if p == nil {
		p = DefaultRetryPolicy()
	}
	if attempt < 0 {
		attempt = 0
	}

	backoff := float64(p.BackoffBase) * math.Pow(2, float64(attempt))
	if backoff > float64(p.BackoffMax) {
		backoff = float64(p.BackoffMax)
	}

	if p.JitterFrac > 0 {
		jitter := backoff * p.JitterFrac * (rand.Float64()*2 - 1)
		backoff += jitter
	}
	if backoff < 0 {
		backoff = float64(p.BackoffBase)
	}

	return time.Duration(backoff)
}
