// Package relay implements the unified stream relay (spec C14): the single
// consumer of a provider's stream that drives failover/retry across
// candidates, canonicalizes finish reasons and usage, and writes the
// client-facing SSE frames.
//
// Grounded on pkg/proxy/handlers/chat.go's handleStreamRequest (the
// chunk-forwarding loop, first-chunk timing, client-disconnect check) and
// pkg/proxy/response.go's SSE writers, which this package calls directly
// rather than reimplementing — C13 (stream formatter) is kept as-is.
package relay

import "mercator-hq/jupiter-gateway/pkg/gatewaytypes"

// CanonicalizeFinishReason maps a provider-normalized finish reason (the
// driver layer already folds vendor-specific stop reasons like Anthropic's
// "end_turn"/"stop_sequence" down to providers.FinishReasonStop and
// friends, see pkg/providers/anthropic/transform.go's normalizeStopReason)
// into the gateway's closed CanonicalFinishReason set, adding the two
// outcomes no provider can originate: error and cancelled.
func CanonicalizeFinishReason(providerReason string) gatewaytypes.CanonicalFinishReason {
	switch providerReason {
	case "stop", "":
		return gatewaytypes.FinishStop
	case "length":
		return gatewaytypes.FinishLength
	case "content_filter":
		return gatewaytypes.FinishContentFilter
	case "tool_calls":
		return gatewaytypes.FinishToolCalls
	default:
		return gatewaytypes.FinishStop
	}
}
