package tokens

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"mercator-hq/jupiter-gateway/pkg/proxy/types"
)

// TiktokenEstimator implements exact BPE token counting via tiktoken-go,
// the estimation strategy this package's own doc comment anticipates
// alongside the character-based SimpleEstimator. Encoding lookups are
// cached per model since tiktoken-go's GetEncoding does non-trivial BPE
// table construction on first use.
type TiktokenEstimator struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
	fallback  *SimpleEstimator
}

// NewTiktokenEstimator builds an estimator that falls back to fallback's
// character-based estimate when a model has no known tiktoken encoding
// (e.g. a non-OpenAI model alias).
func NewTiktokenEstimator(fallback *SimpleEstimator) *TiktokenEstimator {
	return &TiktokenEstimator{
		encodings: make(map[string]*tiktoken.Tiktoken),
		fallback:  fallback,
	}
}

func (e *TiktokenEstimator) encodingFor(model string) (*tiktoken.Tiktoken, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.encodings[model]; ok {
		return enc, true
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, false
	}
	e.encodings[model] = enc
	return enc, true
}

func (e *TiktokenEstimator) EstimateText(text string, model string) (int, error) {
	if text == "" {
		return 0, nil
	}
	enc, ok := e.encodingFor(model)
	if !ok {
		return e.fallback.EstimateText(text, model)
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (e *TiktokenEstimator) EstimateMessages(messages []types.Message, model string) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	if _, ok := e.encodingFor(model); !ok {
		return e.fallback.EstimateMessages(messages, model)
	}

	total := 0
	for _, msg := range messages {
		total += 3 // per-message overhead, matches OpenAI's chat formatting allowance
		contentTokens, err := e.EstimateText(e.fallback.extractContent(msg.Content), model)
		if err != nil {
			return 0, fmt.Errorf("estimate message content: %w", err)
		}
		total += contentTokens
		if msg.Name != "" {
			nameTokens, _ := e.EstimateText(msg.Name, model)
			total += nameTokens
		}
		if len(msg.ToolCalls) > 0 {
			for _, tc := range msg.ToolCalls {
				nameTokens, _ := e.EstimateText(tc.Function.Name, model)
				argTokens, _ := e.EstimateText(tc.Function.Arguments, model)
				total += nameTokens + argTokens + 10
			}
		}
	}
	total += 3
	return total, nil
}

func (e *TiktokenEstimator) EstimateTools(tools []types.Tool, model string) (int, error) {
	if len(tools) == 0 {
		return 0, nil
	}
	if _, ok := e.encodingFor(model); !ok {
		return e.fallback.EstimateTools(tools, model)
	}

	total := 0
	for _, tool := range tools {
		nameTokens, _ := e.EstimateText(tool.Function.Name, model)
		total += nameTokens
		if tool.Function.Description != "" {
			descTokens, _ := e.EstimateText(tool.Function.Description, model)
			total += descTokens
		}
		if tool.Function.Parameters != nil {
			paramsJSON, err := json.Marshal(tool.Function.Parameters)
			if err == nil {
				paramsTokens, _ := e.EstimateText(string(paramsJSON), model)
				total += paramsTokens
			}
		}
		total += 10
	}
	return total, nil
}

func (e *TiktokenEstimator) EstimateRequest(req *types.ChatCompletionRequest) (*Estimate, error) {
	if req == nil {
		return nil, fmt.Errorf("request cannot be nil")
	}

	_, exact := e.encodingFor(req.Model)
	estimate := &Estimate{Model: req.Model, Confidence: 1.0}
	if !exact {
		estimate.Confidence = 0.95
	}

	var systemPrompts, otherMessages []types.Message
	for _, msg := range req.Messages {
		if strings.EqualFold(msg.Role, "system") {
			systemPrompts = append(systemPrompts, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}

	if len(systemPrompts) > 0 {
		tokens, err := e.EstimateMessages(systemPrompts, req.Model)
		if err != nil {
			return nil, err
		}
		estimate.SystemPromptTokens = tokens
	}
	if len(otherMessages) > 0 {
		tokens, err := e.EstimateMessages(otherMessages, req.Model)
		if err != nil {
			return nil, err
		}
		estimate.MessageTokens = tokens
	}
	if len(req.Tools) > 0 {
		tokens, err := e.EstimateTools(req.Tools, req.Model)
		if err != nil {
			return nil, err
		}
		estimate.ToolTokens = tokens
	}

	estimate.OverheadTokens = 3
	estimate.PromptTokens = estimate.SystemPromptTokens + estimate.MessageTokens + estimate.ToolTokens + estimate.OverheadTokens

	if req.MaxTokens != nil && *req.MaxTokens > 0 {
		estimate.EstimatedCompletionTokens = *req.MaxTokens
	} else {
		estimate.EstimatedCompletionTokens = estimate.PromptTokens / 3
		if estimate.EstimatedCompletionTokens < 100 {
			estimate.EstimatedCompletionTokens = 100
		}
		if estimate.EstimatedCompletionTokens > 1000 {
			estimate.EstimatedCompletionTokens = 1000
		}
	}
	estimate.TotalTokens = estimate.PromptTokens + estimate.EstimatedCompletionTokens

	return estimate, nil
}
