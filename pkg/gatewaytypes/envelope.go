// Package gatewaytypes holds the provider-independent request/response shapes
// shared across admission, routing, resilience, and the stream relay.
package gatewaytypes

import (
	"time"

	"mercator-hq/jupiter-gateway/pkg/providers"
)

// RequestEnvelope is the canonical, provider-independent form of a chat
// request as it moves through the gateway, from admission through the
// relay. It wraps providers.CompletionRequest with the routing and
// tenancy metadata the provider drivers don't need to see.
type RequestEnvelope struct {
	// RequestID is the idempotency / tracing identifier for this request.
	RequestID string

	// TenantID identifies the caller for cost attribution and telemetry
	// labels. It is not a second rate-limiting axis (see DESIGN.md).
	TenantID string

	// Alias is the model string exactly as the client sent it, before
	// alias resolution. May already be a concrete "provider:model" pair.
	Alias string

	// Provider is an explicit provider-instance override from the request
	// body, if the client supplied one. Empty means "let the router decide".
	Provider string

	// Completion is the normalized request body.
	Completion providers.CompletionRequest

	// ReceivedAt is when the envelope was admitted, used as the stable
	// "created" timestamp for every chunk of a given response.
	ReceivedAt time.Time
}

// StreamEvent is the canonical wire-internal event a driver yields upstream
// of the stream relay. Exactly one Kind is meaningful per event; the zero
// value of fields not relevant to that Kind is ignored by consumers.
type StreamEvent struct {
	Kind EventKind

	// Text is set when Kind == EventChunkText.
	Text string

	// ToolCalls is set when Kind == EventChunkToolCall.
	ToolCalls []providers.ToolCall

	// PromptTokens/CompletionTokens are set when Kind == EventUsage.
	PromptTokens     int
	CompletionTokens int

	// FinishReason is set when Kind == EventFinish; it is the vendor's raw
	// stop token, mapped to a CanonicalFinishReason by the relay before
	// it reaches the client.
	FinishReason string

	// Classification and Message are set when Kind == EventError.
	Classification ErrorClass
	Message        string
	Cause          error
}

// EventKind is the closed set of StreamEvent variants a driver may emit.
type EventKind int

const (
	EventChunkText EventKind = iota
	EventChunkToolCall
	EventUsage
	EventFinish
	EventError
)

// CanonicalFinishReason is the closed set the relay emits to clients
// regardless of upstream vendor.
type CanonicalFinishReason string

const (
	FinishStop          CanonicalFinishReason = "stop"
	FinishLength        CanonicalFinishReason = "length"
	FinishContentFilter CanonicalFinishReason = "content_filter"
	FinishToolCalls     CanonicalFinishReason = "tool_calls"
	FinishError         CanonicalFinishReason = "error"
	FinishCancelled     CanonicalFinishReason = "cancelled"
)

// ErrorClass is the closed error classification set shared by the driver
// boundary, the retry policy, and the circuit breaker. Everything above
// the driver boundary operates purely on these classifications, never on
// vendor-specific error strings.
type ErrorClass string

const (
	ClassBadRequest         ErrorClass = "bad_request"
	ClassAuth               ErrorClass = "auth"
	ClassRateLimitedLocal   ErrorClass = "rate_limited_local"
	ClassRateLimitedUpstream ErrorClass = "rate_limited_upstream"
	ClassTransport          ErrorClass = "transport"
	ClassTimeout            ErrorClass = "timeout"
	ClassServerError        ErrorClass = "server_error"
	ClassCircuitOpen        ErrorClass = "circuit_open"
	ClassContentFilter      ErrorClass = "content_filter"
	ClassCancelled          ErrorClass = "cancelled"
	ClassNoHealthyProvider  ErrorClass = "no_healthy_provider"
	ClassUnknown            ErrorClass = "api_error"
)

// Retryable reports whether the retry policy may retry an error of
// this classification at all. circuit_open is retryable only against a
// different provider instance; the failover manager enforces that rule,
// not this table.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ClassTransport, ClassTimeout, ClassRateLimitedUpstream, ClassServerError, ClassCircuitOpen:
		return true
	default:
		return false
	}
}

// UsageReport is the per-request token/cost accounting assembled
// incrementally during a stream and finalized at finish or terminal error.
type UsageReport struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// EstimatedCostUSD is nil when the cost table has no entry for the
	// (provider, model) pair; the cost table never fabricates a price.
	EstimatedCostUSD *float64

	// Estimated is true when token counts were derived from the
	// character-to-token ratio fallback rather than driver-reported usage.
	Estimated bool

	// Partial is true when the driver stream ended without an explicit
	// finish or error event and the relay synthesized one.
	Partial bool
}

// Add accumulates a partial usage event. Applying the same values twice
// via repeated calls with the identical (p, c) is not itself idempotent —
// idempotency on *repeated delivery of the same event* is the usage
// tracker's job (it dedups by event identity before calling Add).
func (u *UsageReport) Add(promptTokens, completionTokens int) {
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
}
