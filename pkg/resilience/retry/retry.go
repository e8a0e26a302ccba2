// Package retry implements the pure classify-then-decide retry policy: a
// function of (attempt index, error classification, policy) that never
// touches I/O.
//
// The donor's retry loop lives inline in pkg/providers/http_provider.go's
// DoRequest (exponential backoff via math.Pow, no jitter, no separation
// from the HTTP transport). This package lifts that backoff shape out into
// the standalone policy the resilience layer needs so it can be reused by
// both the provider driver's own request retry and the failover manager's
// cross-instance retry.
package retry

import (
	"math"
	"math/rand"
	"time"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
)

// Policy mirrors the donor's backoff shape (base delay, exponential
// factor) plus jitter, which the donor's own version lacks — grounded on
// the jitter pattern in pkg/providers/health.go's calculateBackoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	JitterPct   float64
	// MaxDelay caps the computed backoff before jitter is applied. Zero
	// means uncapped.
	MaxDelay time.Duration
}

// DefaultPolicy matches the donor's implicit defaults: 3 retries, 1s base
// delay, factor 2 (donor's math.Pow(2, attempt-1) * time.Second).
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Factor:      2,
		JitterPct:   0.1,
	}
}

// Decision is the outcome of evaluating a retry policy for one attempt.
type Decision struct {
	GiveUp     bool
	RetryAfter time.Duration
}

// retryable is the closed retryable error-class set. circuit_open is
// retryable here too; the failover manager is responsible for routing that
// retry to a *different* instance rather than replaying the same one.
func retryable(c gatewaytypes.ErrorClass) bool {
	switch c {
	case gatewaytypes.ClassTransport, gatewaytypes.ClassTimeout,
		gatewaytypes.ClassRateLimitedUpstream, gatewaytypes.ClassServerError,
		gatewaytypes.ClassCircuitOpen:
		return true
	default:
		return false
	}
}

// Decide computes whether attempt i (0-based) should retry and after how
// long. serverRetryAfter is the provider's own Retry-After hint, if any
// (only meaningful for ClassRateLimitedUpstream); pass 0 when absent.
func Decide(attempt int, class gatewaytypes.ErrorClass, p Policy, serverRetryAfter time.Duration) Decision {
	if !retryable(class) {
		return Decision{GiveUp: true}
	}
	if attempt+1 >= p.MaxAttempts {
		return Decision{GiveUp: true}
	}

	delay := time.Duration(float64(p.BaseDelay) * math.Pow(p.Factor, float64(attempt)))
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	delay = withJitter(delay, p.JitterPct)

	if class == gatewaytypes.ClassRateLimitedUpstream && serverRetryAfter > delay {
		delay = serverRetryAfter
	}

	return Decision{GiveUp: false, RetryAfter: delay}
}

func withJitter(d time.Duration, jitterPct float64) time.Duration {
	if jitterPct <= 0 {
		return d
	}
	// uniform in [-jitterPct, +jitterPct] of d
	spread := float64(d) * jitterPct
	offset := (rand.Float64()*2 - 1) * spread
	result := time.Duration(float64(d) + offset)
	if result < 0 {
		return 0
	}
	return result
}
