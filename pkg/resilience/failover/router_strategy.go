package failover

import "mercator-hq/jupiter-gateway/pkg/providers"

// ProviderLookup resolves a failover instance name to its live Provider,
// for strategies that rank by provider-level attributes rather than by
// name alone.
type ProviderLookup func(name string) (providers.Provider, bool)

// RouterStrategy adapts a pkg/routing/strategies.RoutingStrategy into this
// package's Strategy interface. It repeatedly asks SelectOne to pick the
// best remaining provider, removing each pick from the pool, until
// group.Instances is fully permuted.
//
// SelectOne mirrors RoutingStrategy.SelectProvider's signature without this
// package importing pkg/routing/strategies directly, keeping the failover
// package independent of the router's strategy types.
type RouterStrategy struct {
	Lookup    ProviderLookup
	SelectOne func(available []providers.Provider) (providers.Provider, error)
}

// Order implements Strategy.
func (r *RouterStrategy) Order(group Group) []string {
	pool := make([]providers.Provider, 0, len(group.Instances))
	instanceOf := make(map[string]string, len(group.Instances))
	for _, name := range group.Instances {
		p, ok := r.Lookup(name)
		if !ok {
			continue
		}
		pool = append(pool, p)
		instanceOf[p.GetName()] = name
	}

	ordered := make([]string, 0, len(group.Instances))
	seen := make(map[string]bool, len(group.Instances))

	for len(pool) > 0 {
		pick, err := r.SelectOne(pool)
		if err != nil || pick == nil {
			break
		}
		name, ok := instanceOf[pick.GetName()]
		if !ok || seen[name] {
			break
		}
		ordered = append(ordered, name)
		seen[name] = true

		next := make([]providers.Provider, 0, len(pool)-1)
		for _, p := range pool {
			if p.GetName() != pick.GetName() {
				next = append(next, p)
			}
		}
		pool = next
	}

	for _, name := range group.Instances {
		if !seen[name] {
			ordered = append(ordered, name)
		}
	}

	return ordered
}
