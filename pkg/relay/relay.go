package relay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/processing/tokens"
	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/proxy"
	"mercator-hq/jupiter-gateway/pkg/resilience/failover"
)

// InstanceSource resolves a candidate instance name to its live Provider,
// matching the failover package's own InstanceSource contract plus the
// provider lookup the relay needs to actually make the call.
type InstanceSource interface {
	failover.InstanceSource
	Provider(name string) (providers.Provider, bool)
}

// Relay is the unified stream relay: the single consumer of a provider's
// stream for one request, responsible for driving failover/retry across
// candidates, canonicalizing finish reasons, tracking usage, and writing
// client-facing SSE frames via the (kept) proxy package's writers.
//
// Grounded on pkg/proxy/handlers/chat.go's handleStreamRequest, generalized
// from a single fixed provider to a failover group of candidates. Unlike
// the donor, this relay defers committing to SSE response headers until
// the first byte of a successful stream is ready to write — a pre-stream
// failure on candidate A must still let candidate B serve the request with
// a clean response, instead of the donor's single-provider assumption that
// SSE headers can be flushed immediately after provider selection.
type Relay struct {
	failoverMgr *failover.Manager
	source      InstanceSource
	log         *slog.Logger
}

func NewRelay(failoverMgr *failover.Manager, source InstanceSource, log *slog.Logger) *Relay {
	if log == nil {
		log = slog.Default()
	}
	return &Relay{failoverMgr: failoverMgr, source: source, log: log}
}

// Stream drives one streaming chat completion end to end and returns the
// accumulated usage report. The invariant it upholds: once any byte has
// been flushed to the client for a given attempt, a later failure on that
// same attempt is terminal — it is reported to the failover manager as a
// "success" (so no second candidate is tried and no bytes are resent) and
// surfaced to the caller only for logging.
func (r *Relay) Stream(ctx context.Context, w http.ResponseWriter, group failover.Group, envelope *gatewaytypes.RequestEnvelope, requestedModel string, estimator tokens.Estimator) gatewaytypes.UsageReport {
	requestID := envelope.RequestID
	responseID := fmt.Sprintf("chatcmpl-%s", requestID)
	usage := NewUsageTracker(estimator)

	var headersSent bool
	var midStreamErr error
	chunkCount := 0
	startTime := time.Now()

	result := r.failoverMgr.Run(group, func(instance string) (bool, gatewaytypes.ErrorClass, error) {
		provider, ok := r.source.Provider(instance)
		if !ok {
			return false, gatewaytypes.ClassNoHealthyProvider, fmt.Errorf("relay: instance %q not registered", instance)
		}

		chunks, err := provider.StreamCompletion(ctx, &envelope.Completion)
		if err != nil {
			return false, Classify(err), err
		}

		for chunk := range chunks {
			if chunk.Error != nil {
				if headersSent {
					midStreamErr = chunk.Error
					r.writeSSEError(w, chunk.Error)
					return true, "", nil
				}
				return false, Classify(chunk.Error), chunk.Error
			}

			if !headersSent {
				proxy.SetSSEHeaders(w)
				headersSent = true
			}

			openaiChunk := proxy.FormatStreamChunk(chunk, requestedModel, responseID)
			if chunk.FinishReason != "" {
				canon := CanonicalizeFinishReason(chunk.FinishReason)
				reason := string(canon)
				openaiChunk.Choices[0].FinishReason = &reason
			}

			if err := proxy.WriteSSEChunk(w, openaiChunk); err != nil {
				midStreamErr = err
				return true, "", nil
			}
			chunkCount++

			usage.ObserveCompletionText(chunk.Delta, requestedModel)
			if chunk.Usage != nil {
				usage.ObserveChunkUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens, chunk.Usage.TotalTokens)
			}

			select {
			case <-ctx.Done():
				midStreamErr = ctx.Err()
				usage.MarkPartial()
				return true, "", nil
			default:
			}
		}
		return true, "", nil
	})

	switch {
	case result.Err != nil && !headersSent:
		errResp := proxy.HandleError(result.Err)
		if writeErr := proxy.WriteErrorResponse(w, errResp); writeErr != nil {
			r.log.Error("relay: failed to write error response", "request_id", requestID, "error", writeErr)
		}
	case midStreamErr != nil:
		usage.MarkPartial()
		if writeErr := proxy.WriteSSEDone(w); writeErr != nil {
			r.log.Error("relay: failed to write sse done after mid-stream error", "request_id", requestID, "error", writeErr)
		}
	default:
		if writeErr := proxy.WriteSSEDone(w); writeErr != nil {
			r.log.Error("relay: failed to write sse done", "request_id", requestID, "error", writeErr)
		}
	}

	r.log.Info("relay: stream complete",
		"request_id", requestID,
		"attempted", result.Attempted,
		"chunks_sent", chunkCount,
		"latency_ms", time.Since(startTime).Milliseconds(),
	)

	return usage.Finalize()
}

// Complete drives a non-streaming chat completion through the same
// failover manager as Stream, returning the winning candidate's response
// unmodified. Used by the request path when the client didn't ask to
// stream; it shares candidate selection and retry/circuit-breaker
// enforcement with Stream but has no partial-output invariant to uphold,
// since nothing is written to the client until a candidate fully succeeds.
func (r *Relay) Complete(ctx context.Context, group failover.Group, envelope *gatewaytypes.RequestEnvelope) (*providers.CompletionResponse, error) {
	var resp *providers.CompletionResponse

	result := r.failoverMgr.Run(group, func(instance string) (bool, gatewaytypes.ErrorClass, error) {
		provider, ok := r.source.Provider(instance)
		if !ok {
			return false, gatewaytypes.ClassNoHealthyProvider, fmt.Errorf("relay: instance %q not registered", instance)
		}

		out, err := provider.SendCompletion(ctx, &envelope.Completion)
		if err != nil {
			return false, Classify(err), err
		}
		resp = out
		return true, "", nil
	})

	if result.Err != nil {
		return nil, result.Err
	}
	return resp, nil
}

func (r *Relay) writeSSEError(w http.ResponseWriter, err error) {
	errResp := proxy.HandleError(err)
	if writeErr := proxy.WriteSSEError(w, errResp); writeErr != nil {
		r.log.Error("relay: failed to write sse error", "error", writeErr)
	}
}
