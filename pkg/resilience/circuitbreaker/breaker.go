// Package circuitbreaker implements per-provider-instance fault isolation:
// a closed/open/half_open state machine that trips after a run of upstream
// failures and probes for recovery after a cooldown.
//
// The donor (mercator-hq/jupiter) tracks provider health with a simpler
// "N consecutive failures marks the provider unhealthy, a later successful
// health check clears it" scheme in pkg/providers/http_provider.go's
// updateHealth. This package keeps that scheme's plumbing — atomic
// counters, a small RWMutex-guarded state struct, the same GetHealth-style
// read surface — but generalizes it into the full three-state machine with
// a recovery timeout and a bounded half-open probe budget.
package circuitbreaker

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is one of the three circuit states.
type State int32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// Config controls breaker thresholds for one provider instance.
type Config struct {
	// FailureThreshold is the number of rolling-window failures that trips
	// closed -> open.
	FailureThreshold int

	// RollingWindow bounds how far back failures count toward the
	// threshold; a failure older than RollingWindow is forgotten.
	RollingWindow time.Duration

	// RecoveryTimeout is how long the breaker stays open before allowing
	// a half-open probe.
	RecoveryTimeout time.Duration

	// HalfOpenLimit bounds concurrent probes while half_open.
	HalfOpenLimit int
}

// DefaultConfig matches the donor's http_provider.go default of three
// consecutive failures, generalized with a one-minute rolling window.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 3,
		RollingWindow:    time.Minute,
		RecoveryTimeout:  30 * time.Second,
		HalfOpenLimit:    1,
	}
}

// Breaker is a single provider instance's circuit breaker. Safe for
// concurrent use; state transitions publish via atomic ops so a reader
// never observes a transition that hasn't completed.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    []time.Time
	openUntil   time.Time
	generation  uint64
	halfOpenInFlight int32
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultConfig().FailureThreshold
	}
	if cfg.RollingWindow <= 0 {
		cfg.RollingWindow = DefaultConfig().RollingWindow
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultConfig().RecoveryTimeout
	}
	if cfg.HalfOpenLimit <= 0 {
		cfg.HalfOpenLimit = DefaultConfig().HalfOpenLimit
	}
	return &Breaker{cfg: cfg, state: Closed}
}

// Allow reports whether a call may proceed right now, and a release func
// that MUST be called exactly once when the call completes (scoped
// acquisition, so a half-open probe slot is always released even on panic
// recovery paths upstream). For closed/open, release is a no-op.
func (b *Breaker) Allow(now time.Time) (ok bool, release func(success bool)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true, func(success bool) { b.report(success, now) }

	case Open:
		if now.Before(b.openUntil) {
			return false, func(bool) {}
		}
		b.transitionLocked(HalfOpen, now)
		fallthrough

	case HalfOpen:
		if int(b.halfOpenInFlight) >= b.cfg.HalfOpenLimit {
			return false, func(bool) {}
		}
		atomic.AddInt32(&b.halfOpenInFlight, 1)
		released := false
		return true, func(success bool) {
			if released {
				return
			}
			released = true
			atomic.AddInt32(&b.halfOpenInFlight, -1)
			b.reportProbe(success, now)
		}
	}
	return true, func(bool) {}
}

// report is the closed-state failure accumulator.
func (b *Breaker) report(success bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != Closed {
		return
	}
	if success {
		return
	}

	cutoff := now.Add(-b.cfg.RollingWindow)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = append(kept, now)

	if len(b.failures) >= b.cfg.FailureThreshold {
		b.transitionLocked(Open, now)
	}
}

// reportProbe resolves a half-open probe outcome.
func (b *Breaker) reportProbe(success bool, now time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != HalfOpen {
		return
	}
	if success {
		b.transitionLocked(Closed, now)
		b.failures = nil
	} else {
		b.transitionLocked(Open, now)
	}
}

// transitionLocked moves to a new state and bumps the publication
// generation. Caller must hold b.mu.
func (b *Breaker) transitionLocked(to State, now time.Time) {
	b.state = to
	b.generation++
	if to == Open {
		b.openUntil = now.Add(b.cfg.RecoveryTimeout)
	}
}

// Reset forces the breaker back to closed, for manual operator recovery.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = nil
	b.generation++
}

// Snapshot is a point-in-time read of breaker state, for the health view
// and telemetry.
type Snapshot struct {
	State            State
	FailureCount     int
	OpenUntil        time.Time
	HalfOpenInFlight int
}

func (b *Breaker) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{
		State:            b.state,
		FailureCount:     len(b.failures),
		OpenUntil:        b.openUntil,
		HalfOpenInFlight: int(atomic.LoadInt32(&b.halfOpenInFlight)),
	}
}

// State returns the current state without the rest of the snapshot; used
// by the failover manager to skip open circuits cheaply.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
