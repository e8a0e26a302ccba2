// Package failover implements the ordered candidate-selection manager:
// given a FailoverGroup and a request, it walks candidate provider
// instances in strategy order, skipping open circuits, and consults the
// retry policy on each failure to decide whether to advance.
//
// Grounded on the donor's pkg/routing/router_impl.go candidate-trying loop
// and pkg/routing/stats.go's AtomicRoutingStats (the round-robin cursor
// pattern this package reuses for its own per-group cursor).
package failover

import (
	"sync/atomic"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/resilience/circuitbreaker"
	"mercator-hq/jupiter-gateway/pkg/resilience/retry"
)

// Strategy selects the permutation order of a group's instances for one
// request. Implementations must be safe for concurrent use.
type Strategy interface {
	// Order returns instance names in the order they should be tried.
	Order(group Group) []string
}

// Group is an ordered set of provider instance names with a selection
// strategy and an aggregate attempt cap.
type Group struct {
	Name        string
	Instances   []string
	MaxAttempts int
}

// InstanceSource resolves an instance name to its live Provider and
// Breaker. The manager never owns these directly — the registry does.
type InstanceSource interface {
	Provider(name string) (providers.Provider, bool)
	Breaker(name string) (*circuitbreaker.Breaker, bool)
	HealthScore(name string) float64
}

// Manager is stateless across requests except for the round-robin cursors
// it keeps per group.
type Manager struct {
	source       InstanceSource
	healthFloor  float64
	retryPolicy  retry.Policy
	cursors      map[string]*atomic.Uint64
	strategy     Strategy
}

// SetStrategy installs a richer ordering strategy (health-aware, sticky,
// manual) ahead of this manager's own round-robin. When set, Candidates
// uses the strategy's Order to rank the health-filtered candidates instead
// of rotating group.Instances itself.
func (m *Manager) SetStrategy(s Strategy) {
	m.strategy = s
}

// NewManager builds a failover manager. healthFloor is the minimum health
// score (τ) an instance must meet to be considered a candidate.
func NewManager(source InstanceSource, healthFloor float64, retryPolicy retry.Policy) *Manager {
	return &Manager{
		source:      source,
		healthFloor: healthFloor,
		retryPolicy: retryPolicy,
		cursors:     make(map[string]*atomic.Uint64),
	}
}

func (m *Manager) cursorFor(group string) *atomic.Uint64 {
	c, ok := m.cursors[group]
	if !ok {
		c = &atomic.Uint64{}
		m.cursors[group] = c
	}
	return c
}

// Candidates returns the ordered, health-filtered list of instance names to
// try for this request, honoring a simple round-robin rotation of the
// group's base order (callers pass a pre-permuted strategy order when a
// richer strategy, e.g. health-aware or cost-aware, has already run; this
// manager's own rotation only applies when the caller wants plain
// round-robin failover).
func (m *Manager) Candidates(group Group) []string {
	order := group.Instances
	if m.strategy != nil {
		order = m.strategy.Order(group)
	}

	candidates := make([]string, 0, len(order))
	for _, name := range order {
		breaker, ok := m.source.Breaker(name)
		if ok && breaker.State() == circuitbreaker.Open {
			continue
		}
		if m.source.HealthScore(name) < m.healthFloor {
			continue
		}
		candidates = append(candidates, name)
	}

	if len(candidates) == 0 {
		return candidates
	}

	if m.strategy != nil {
		return candidates
	}

	cursor := m.cursorFor(group.Name)
	shift := int(cursor.Add(1)-1) % len(candidates)
	return append(candidates[shift:], candidates[:shift]...)
}

// Outcome is what the caller reports back after trying one candidate.
type Outcome struct {
	Success          bool
	Class            gatewaytypes.ErrorClass
	ServerRetryAfter int64 // nanoseconds; 0 if absent
}

// Result is the terminal outcome of a failover sequence.
type Result struct {
	// Err is non-nil when every candidate was exhausted, or a
	// non-retryable error occurred on some candidate (first non-retryable
	// wins and propagates unmodified).
	Err          error
	Attempted    []string
	NonRetryable bool
}

// ErrNoHealthyProvider is surfaced when the candidate iterator exhausts
// without success and no non-retryable error was seen.
type ErrNoHealthyProvider struct{ Group string }

func (e *ErrNoHealthyProvider) Error() string {
	return "no healthy provider available in group " + e.Group
}

// Run drives the candidate loop: try, on failure decide retry via the
// breaker + retry policy, and on GiveUp with a non-retryable error,
// propagate that error unmodified without trying further candidates.
// attempt is the callback trying one candidate; it returns (success, class).
func (m *Manager) Run(group Group, attempt func(instance string) (bool, gatewaytypes.ErrorClass, error)) Result {
	candidates := m.Candidates(group)
	if len(candidates) == 0 {
		return Result{Err: &ErrNoHealthyProvider{Group: group.Name}}
	}

	maxAttempts := group.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > len(candidates) {
		maxAttempts = len(candidates)
	}

	tried := make([]string, 0, maxAttempts)
	var firstNonRetryableErr error

	for i, name := range candidates {
		if i >= maxAttempts {
			break
		}
		tried = append(tried, name)

		breaker, hasBreaker := m.source.Breaker(name)
		var release func(bool)
		if hasBreaker {
			ok, rel := breaker.Allow(nowFunc())
			if !ok {
				continue
			}
			release = rel
		}

		success, class, err := attempt(name)
		if release != nil {
			release(success)
		}
		if success {
			return Result{Attempted: tried}
		}

		decision := retry.Decide(i, class, m.retryPolicy, 0)
		if decision.GiveUp && !class.Retryable() {
			firstNonRetryableErr = err
			break
		}
	}

	if firstNonRetryableErr != nil {
		return Result{Err: firstNonRetryableErr, Attempted: tried, NonRetryable: true}
	}
	return Result{Err: &ErrNoHealthyProvider{Group: group.Name}, Attempted: tried}
}

// nowFunc is a seam for deterministic tests; production uses time.Now.
var nowFunc = defaultNow
