// Package health assembles the read-only health view spec C16 exposes over
// /healthz: per-instance circuit state and per-group availability, fused
// from the resilience layer's live state rather than tracked separately.
//
// Grounded on pkg/telemetry/health.Checker's liveness/readiness split (kept
// as-is for the process-level checks) plus pkg/routing/stats.go's
// atomic-counter snapshot style, adapted here to read circuit breaker and
// failover state instead of routing counters.
package health

import (
	"time"

	"mercator-hq/jupiter-gateway/pkg/resilience/circuitbreaker"
)

// InstanceStatus is the health view for a single provider instance.
type InstanceStatus struct {
	Name         string    `json:"name"`
	CircuitState string    `json:"circuit_state"`
	FailureCount int       `json:"failure_count"`
	OpenUntil    time.Time `json:"open_until,omitempty"`
	HealthScore  float64   `json:"health_score"`
}

// GroupStatus is the health view for a failover group: healthy if at least
// one member instance is not circuit-open and meets the health floor.
type GroupStatus struct {
	Name      string           `json:"name"`
	Healthy   bool             `json:"healthy"`
	Instances []InstanceStatus `json:"instances"`
}

// View is the full aggregated health snapshot.
type View struct {
	Status string        `json:"status"` // "ok", "degraded", "unhealthy"
	Groups []GroupStatus  `json:"groups"`
}

// InstanceSource supplies the live state View needs without importing the
// failover or provider-registry packages directly, avoiding a dependency
// cycle (failover already depends on circuitbreaker; health only needs a
// read view over both).
type InstanceSource interface {
	Breaker(instance string) (*circuitbreaker.Breaker, bool)
	HealthScore(instance string) float64
}

// GroupSpec names a failover group's member instances for the view builder.
type GroupSpec struct {
	Name      string
	Instances []string
}

// Aggregator builds View snapshots on demand from live resilience state.
type Aggregator struct {
	source InstanceSource
	groups []GroupSpec
}

func NewAggregator(source InstanceSource, groups []GroupSpec) *Aggregator {
	return &Aggregator{source: source, groups: groups}
}

// Snapshot computes the current health view. It never blocks on network
// I/O — everything it reads is already-maintained in-process state.
func (a *Aggregator) Snapshot() View {
	groups := make([]GroupStatus, 0, len(a.groups))
	overallHealthy := true

	for _, g := range a.groups {
		instances := make([]InstanceStatus, 0, len(g.Instances))
		groupHealthy := false

		for _, name := range g.Instances {
			st := InstanceStatus{Name: name, HealthScore: a.source.HealthScore(name)}
			if b, ok := a.source.Breaker(name); ok {
				snap := b.Snapshot()
				st.CircuitState = snap.State.String()
				st.FailureCount = snap.FailureCount
				st.OpenUntil = snap.OpenUntil
				if snap.State != circuitbreaker.Open {
					groupHealthy = true
				}
			}
			instances = append(instances, st)
		}

		if !groupHealthy {
			overallHealthy = false
		}
		groups = append(groups, GroupStatus{Name: g.Name, Healthy: groupHealthy, Instances: instances})
	}

	status := "ok"
	if !overallHealthy {
		status = "degraded"
	}
	if len(groups) == 0 {
		status = "ok"
	}

	return View{Status: status, Groups: groups}
}
