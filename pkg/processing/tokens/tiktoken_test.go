package tokens

import (
	"testing"

	"mercator-hq/jupiter-gateway/pkg/config"
	"mercator-hq/jupiter-gateway/pkg/proxy/types"
)

func TestTiktokenEstimator_FallsBackForUnknownModel(t *testing.T) {
	cfg := &config.TokensConfig{Models: map[string]float64{"default": 4.0}}
	fallback := NewSimpleEstimator(cfg)
	estimator := NewTiktokenEstimator(fallback)

	tokens, err := estimator.EstimateText("hello world", "some-custom-local-model")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens <= 0 {
		t.Errorf("expected positive token count, got %d", tokens)
	}
}

func TestTiktokenEstimator_EmptyTextIsZero(t *testing.T) {
	cfg := &config.TokensConfig{Models: map[string]float64{"default": 4.0}}
	estimator := NewTiktokenEstimator(NewSimpleEstimator(cfg))

	tokens, err := estimator.EstimateText("", "gpt-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tokens != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", tokens)
	}
}

func TestTiktokenEstimator_EstimateRequestKnownModel(t *testing.T) {
	cfg := &config.TokensConfig{Models: map[string]float64{"default": 4.0}}
	estimator := NewTiktokenEstimator(NewSimpleEstimator(cfg))

	req := &types.ChatCompletionRequest{
		Model: "gpt-4",
		Messages: []types.Message{
			{Role: "system", Content: "You are a helpful assistant."},
			{Role: "user", Content: "What is the capital of France?"},
		},
	}
	estimate, err := estimator.EstimateRequest(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if estimate.PromptTokens <= 0 {
		t.Errorf("expected positive prompt tokens, got %d", estimate.PromptTokens)
	}
	if estimate.TotalTokens < estimate.PromptTokens {
		t.Errorf("total tokens %d must be >= prompt tokens %d", estimate.TotalTokens, estimate.PromptTokens)
	}
}
