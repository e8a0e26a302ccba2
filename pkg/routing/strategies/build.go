package strategies

import (
	"mercator-hq/jupiter-gateway/pkg/config"
	"mercator-hq/jupiter-gateway/pkg/routing"
)

// Build assembles the configured routing strategy from cfg.Routing, wrapping
// a round-robin base in the sticky and health-based decorators the donor's
// strategies are designed to compose with.
//
// cfg.Routing.Strategy selects the outermost strategy:
//   - "round-robin" (default): weighted round-robin only
//   - "sticky": session/user/API-key affinity, falling back to round-robin
//   - "manual": explicit per-request provider selection, falling back to
//     round-robin when none is given
//
// HealthBased.RequireHealthy additionally wraps whichever strategy was
// selected, so an unhealthy pick never reaches the caller regardless of
// which base strategy is configured.
func Build(cfg *config.RoutingConfig) RoutingStrategy {
	var strategy RoutingStrategy = NewRoundRobinStrategy(cfg.ProviderWeights)

	switch cfg.Strategy {
	case "sticky":
		cache := routing.NewStickyCache(cfg.Sticky.TTL, cfg.Sticky.MaxEntries)
		strategy = NewStickyStrategy(cache, strategy, cfg.Sticky.KeyType)
	case "manual":
		strategy = NewManualStrategy(strategy, true)
	}

	if cfg.HealthBased.RequireHealthy {
		strategy = NewHealthBasedStrategy(strategy, true)
	}

	return strategy
}
