package relay

import (
	"mercator-hq/jupiter-gateway/pkg/aliases"
	"mercator-hq/jupiter-gateway/pkg/resilience/failover"
)

// NameSource is the subset of providerfactory.Registry a GroupResolver
// needs: the full set of currently-registered instance names.
type NameSource interface {
	Names() []string
}

// GroupResolver turns a requested model name into a failover.Group,
// shared by the live request path (ResilientChatHandler) and the overflow
// drainer's replay path so both apply alias resolution and model-mapping
// the same way. An alias that pins an explicit provider always wins and
// yields a single-instance group; otherwise the registry's instance set is
// intersected with the model mapping, if one is configured for the
// (possibly alias-resolved) model.
type GroupResolver struct {
	Names        NameSource
	ModelMapping map[string][]string
	Aliases      *aliases.Resolver
	MaxAttempts  int
}

// Resolve returns the candidate group, the model name to send upstream
// (post alias resolution), and the explicit provider an alias pinned, if
// any (empty when the model mapping/registry picked the candidates).
func (g *GroupResolver) Resolve(requestedModel string) (group failover.Group, resolvedModel string, explicitProvider string) {
	resolvedModel = requestedModel

	if g.Aliases != nil {
		if target, ok := g.Aliases.Resolve(requestedModel); ok {
			resolvedModel = target.Model
			explicitProvider = target.Provider
		}
	}

	if explicitProvider != "" {
		return failover.Group{Name: resolvedModel, Instances: []string{explicitProvider}, MaxAttempts: 1}, resolvedModel, explicitProvider
	}

	names := g.Names.Names()
	if mapped, ok := g.ModelMapping[resolvedModel]; ok && len(mapped) > 0 {
		names = intersectNames(names, mapped)
	}

	return failover.Group{Name: resolvedModel, Instances: names, MaxAttempts: g.MaxAttempts}, resolvedModel, ""
}

func intersectNames(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, name := range b {
		set[name] = struct{}{}
	}
	out := make([]string, 0, len(a))
	for _, name := range a {
		if _, ok := set[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
