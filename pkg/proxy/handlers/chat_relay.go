package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/jupiter-gateway/pkg/aliases"
	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/processing/costs"
	"mercator-hq/jupiter-gateway/pkg/processing/tokens"
	"mercator-hq/jupiter-gateway/pkg/providerfactory"
	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/proxy"
	"mercator-hq/jupiter-gateway/pkg/proxy/middleware"
	"mercator-hq/jupiter-gateway/pkg/proxy/types"
	"mercator-hq/jupiter-gateway/pkg/relay"
	"mercator-hq/jupiter-gateway/pkg/resilience/failover"
	"mercator-hq/jupiter-gateway/pkg/telemetry/metrics"
	"mercator-hq/jupiter-gateway/pkg/telemetry/tracing"

	"go.opentelemetry.io/otel/trace"
)

// NewGroupResolver builds the shared candidate-selection logic the
// ResilientChatHandler and the overflow drainer's replay path both use.
func NewGroupResolver(reg *providerfactory.Registry, modelMapping map[string][]string, maxAttempts int, aliasResolver *aliases.Resolver) *relay.GroupResolver {
	return &relay.GroupResolver{
		Names:        reg,
		ModelMapping: modelMapping,
		Aliases:      aliasResolver,
		MaxAttempts:  maxAttempts,
	}
}

// ResilientChatHandler is the admission-to-relay chat completion path: it
// resolves aliases, builds a failover.Group for the requested model, and
// drives both streaming and non-streaming completions through the
// resilience layer instead of chat.go's single-provider handleChatRequest.
//
// Grounded on ChatHandler/handleChatRequest/handleStreamRequest, with the
// provider-selection step replaced by failover.Manager.Run and the stream
// loop replaced by relay.Relay.Stream.
type ResilientChatHandler struct {
	Registry      *providerfactory.Registry
	FailoverMgr   *failover.Manager
	Relay         *relay.Relay
	GroupResolver *relay.GroupResolver
	Estimator     tokens.Estimator
	// Metrics and Costs are optional; when set, completed non-streaming
	// requests are recorded as Prometheus metrics with a cost estimate.
	Metrics *metrics.Collector
	Costs   *costs.Calculator
	// Tracer is optional; when set, each request is wrapped in a span
	// covering admission through relay completion.
	Tracer *tracing.Tracer
}

// NewResilientChatHandler wires a chat handler that routes through the
// resilience layer. estimator may be nil.
func NewResilientChatHandler(reg *providerfactory.Registry, fm *failover.Manager, r *relay.Relay, groupResolver *relay.GroupResolver, estimator tokens.Estimator) *ResilientChatHandler {
	return &ResilientChatHandler{
		Registry:      reg,
		FailoverMgr:   fm,
		Relay:         r,
		GroupResolver: groupResolver,
		Estimator:     estimator,
	}
}

// BuildEnvelope parses the HTTP chat completion request body and wraps it
// in a RequestEnvelope, the shared shape the live request path and the
// overflow queue's persisted jobs both use.
func BuildEnvelope(r *http.Request, requestID string) (*gatewaytypes.RequestEnvelope, *types.ChatCompletionRequest, error) {
	chatReq, err := proxy.ParseChatCompletionRequest(r)
	if err != nil {
		return nil, nil, err
	}

	envelope := &gatewaytypes.RequestEnvelope{
		RequestID:  requestID,
		Alias:      chatReq.Model,
		Completion: *convertToProviderRequest(chatReq),
		ReceivedAt: time.Now(),
	}
	return envelope, chatReq, nil
}

func (h *ResilientChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var span trace.Span
	if h.Tracer != nil {
		ctx, span = h.Tracer.Start(ctx, "mercator.proxy.request")
		defer span.End()
		tracing.SetRequestAttributes(span, requestID, "", "")
	}

	if r.Method != http.MethodPost {
		errResp := types.NewInvalidRequestError(
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			"method",
			"method_not_allowed",
		)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	envelope, chatReq, err := BuildEnvelope(r, requestID)
	if err != nil {
		errResp := proxy.HandleError(err)
		if writeErr := proxy.WriteErrorResponse(w, errResp); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", writeErr)
		}
		return
	}

	group, requestedModel, explicitProvider := h.GroupResolver.Resolve(chatReq.Model)
	envelope.Provider = explicitProvider
	envelope.Completion.Model = requestedModel

	if span != nil {
		tracing.SetProviderAttributes(span, group.Name, requestedModel)
	}

	if len(group.Instances) == 0 {
		errResp := proxy.HandleError(&failover.ErrNoHealthyProvider{Group: group.Name})
		if writeErr := proxy.WriteErrorResponse(w, errResp); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", writeErr)
		}
		return
	}

	if chatReq.Stream {
		h.Relay.Stream(ctx, w, group, envelope, requestedModel, h.Estimator)
		return
	}

	start := time.Now()
	resp, err := h.Relay.Complete(ctx, group, envelope)
	if err != nil {
		h.recordCompletion(group.Name, requestedModel, "error", time.Since(start), nil)
		if span != nil {
			tracing.SetError(span, err)
			tracing.SetStatus(span, err)
		}
		errResp := proxy.HandleError(err)
		if writeErr := proxy.WriteErrorResponse(w, errResp); writeErr != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", writeErr)
		}
		return
	}
	h.recordCompletion(group.Name, requestedModel, "success", time.Since(start), resp)
	if span != nil {
		tracing.SetTokenAttributes(span, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		tracing.SetStatus(span, nil)
	}

	openaiResp := proxy.FormatChatCompletionResponse(resp, requestedModel)
	if err := proxy.WriteJSONResponse(w, http.StatusOK, openaiResp); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "request_id", requestID, "error", err)
	}
}

// recordCompletion reports a finished non-streaming completion to the
// metrics collector, when one is configured. provider is the failover
// group name, since the relay doesn't surface which instance in the
// group ultimately served the request.
func (h *ResilientChatHandler) recordCompletion(provider, model, status string, duration time.Duration, resp *providers.CompletionResponse) {
	if h.Metrics == nil {
		return
	}

	var tokenCount int
	var cost float64
	if resp != nil {
		tokenCount = resp.Usage.TotalTokens
		if h.Costs != nil {
			if estimate, err := h.Costs.CalculateProviderResponseCost(resp, provider); err == nil {
				cost = estimate.TotalCost
			}
		}
	}

	h.Metrics.RecordRequest(provider, model, status, duration, tokenCount, cost)
}
