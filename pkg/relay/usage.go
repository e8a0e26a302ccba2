package relay

import (
	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/processing/tokens"
	"mercator-hq/jupiter-gateway/pkg/proxy/types"
)

// UsageTracker accumulates token usage for one request/response exchange,
// grounded on handleStreamRequest's inline "if chunk.Usage != nil { totalTokens
// = chunk.Usage.TotalTokens }" check — generalized here to also estimate
// usage when a provider's stream never reports it (some providers omit
// usage on streamed responses entirely), via the token estimator.
type UsageTracker struct {
	estimator tokens.Estimator
	report    gatewaytypes.UsageReport
	reported  bool
}

func NewUsageTracker(estimator tokens.Estimator) *UsageTracker {
	return &UsageTracker{estimator: estimator}
}

// Seed records the pre-request prompt token estimate, used as the prompt
// token count if the provider never reports real usage.
func (t *UsageTracker) Seed(req *types.ChatCompletionRequest) {
	if t.estimator == nil {
		return
	}
	estimate, err := t.estimator.EstimateRequest(req)
	if err != nil {
		return
	}
	t.report.PromptTokens = estimate.PromptTokens
	t.report.Estimated = true
}

// ObserveChunkUsage records authoritative usage reported by the provider,
// overriding any estimate.
func (t *UsageTracker) ObserveChunkUsage(promptTokens, completionTokens, totalTokens int) {
	t.report.PromptTokens = promptTokens
	t.report.CompletionTokens = completionTokens
	t.report.TotalTokens = totalTokens
	t.report.Estimated = false
	t.reported = true
}

// ObserveCompletionText estimates completion tokens incrementally when the
// provider gives no usage block, so a stream cut short still yields a
// best-effort count instead of zero.
func (t *UsageTracker) ObserveCompletionText(text string, model string) {
	if t.reported || t.estimator == nil || text == "" {
		return
	}
	n, err := t.estimator.EstimateText(text, model)
	if err != nil {
		return
	}
	t.report.CompletionTokens += n
	t.report.Estimated = true
}

// MarkPartial flags the usage report as covering an incomplete response
// (the relay stopped mid-stream on a non-retryable failure).
func (t *UsageTracker) MarkPartial() { t.report.Partial = true }

// Finalize returns the accumulated usage, totalling prompt+completion when
// the provider never gave a total directly.
func (t *UsageTracker) Finalize() gatewaytypes.UsageReport {
	if t.report.TotalTokens == 0 {
		t.report.TotalTokens = t.report.PromptTokens + t.report.CompletionTokens
	}
	return t.report
}
