package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
)

// EnvelopeReplayer implements overflow.Replayer: it decodes a drained job's
// envelope and re-admits it through the same group resolution and failover
// manager a live request would use. The envelope is persisted at admission
// time, before routing — the model it carries may still be an unresolved
// alias, so replay re-runs GroupResolver rather than assuming a pinned
// provider (the alias table may also have changed since enqueue).
type EnvelopeReplayer struct {
	relay    *Relay
	resolver *GroupResolver
}

func NewEnvelopeReplayer(r *Relay, resolver *GroupResolver) *EnvelopeReplayer {
	return &EnvelopeReplayer{relay: r, resolver: resolver}
}

// Replay satisfies overflow.Replayer. A replayed request is always driven
// through Complete (non-streaming): there is no client connection left to
// stream chunks to by the time a deferred job is drained.
func (r *EnvelopeReplayer) Replay(ctx context.Context, envelopeJSON []byte) error {
	var envelope gatewaytypes.RequestEnvelope
	if err := json.Unmarshal(envelopeJSON, &envelope); err != nil {
		return fmt.Errorf("replay: decode envelope: %w", err)
	}

	group, resolvedModel, provider := r.resolver.Resolve(envelope.Completion.Model)
	if len(group.Instances) == 0 {
		return fmt.Errorf("replay: envelope %s has no candidate instances for model %q", envelope.RequestID, envelope.Completion.Model)
	}
	envelope.Completion.Model = resolvedModel
	envelope.Provider = provider

	_, err := r.relay.Complete(ctx, group, &envelope)
	return err
}
