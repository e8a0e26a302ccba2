package providerfactory

import (
	"sync"

	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/resilience/circuitbreaker"
)

// Registry wraps a Manager with a per-instance circuit breaker, giving it
// the failover.InstanceSource and relay.InstanceSource shapes those
// packages need without either package importing providerfactory (or vice
// versa). Grounded on Manager's own name->Provider map; the breaker map
// mirrors it one-to-one and is grown lazily as providers are added.
type Registry struct {
	manager   *Manager
	breakerCf circuitbreaker.Config

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.Breaker
}

// NewRegistry builds a Registry over an already-populated Manager. Every
// provider currently in the manager gets its own breaker immediately;
// providers added to the manager later (AddProvider) get one lazily on
// first Breaker() lookup.
func NewRegistry(manager *Manager, breakerCf circuitbreaker.Config) *Registry {
	r := &Registry{
		manager:  manager,
		breakerCf: breakerCf,
		breakers: make(map[string]*circuitbreaker.Breaker),
	}
	for name := range manager.GetProviders() {
		r.breakers[name] = circuitbreaker.New(breakerCf)
	}
	return r
}

// Provider implements failover.InstanceSource and relay.InstanceSource.
func (r *Registry) Provider(name string) (providers.Provider, bool) {
	p, err := r.manager.GetProvider(name)
	if err != nil {
		return nil, false
	}
	return p, true
}

// Breaker implements failover.InstanceSource, lazily creating a breaker
// for an instance the registry hasn't seen yet.
func (r *Registry) Breaker(name string) (*circuitbreaker.Breaker, bool) {
	if _, ok := r.manager.GetProviders()[name]; !ok {
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = circuitbreaker.New(r.breakerCf)
		r.breakers[name] = b
	}
	return b, true
}

// HealthScore implements failover.InstanceSource. It derives a 0.0-1.0
// score from the driver's own health tracking (pkg/providers/http_provider.go's
// updateHealth) rather than duplicating failure counting: a healthy
// provider scores 1.0, an unhealthy one decays with its consecutive
// failure count, floored at 0.
func (r *Registry) HealthScore(name string) float64 {
	p, err := r.manager.GetProvider(name)
	if err != nil {
		return 0
	}
	health := p.GetHealth()
	if health.IsHealthy {
		return 1.0
	}
	score := 1.0 - 0.2*float64(health.ConsecutiveFailures)
	if score < 0 {
		return 0
	}
	return score
}

// Snapshot returns every registered instance's breaker, for the health
// view.
func (r *Registry) Snapshot() map[string]*circuitbreaker.Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]*circuitbreaker.Breaker, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b
	}
	return out
}

// Names returns every provider instance name currently registered.
func (r *Registry) Names() []string {
	return r.manager.GetProviderNames()
}
