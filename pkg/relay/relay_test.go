package relay

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/providers"
	"mercator-hq/jupiter-gateway/pkg/resilience/circuitbreaker"
	"mercator-hq/jupiter-gateway/pkg/resilience/failover"
	"mercator-hq/jupiter-gateway/pkg/resilience/retry"
)

type fakeProvider struct {
	name       string
	chunks     []*providers.StreamChunk
	streamErr  error
	failBefore bool // if true, StreamCompletion itself errors
}

func (p *fakeProvider) SendCompletion(ctx context.Context, req *providers.CompletionRequest) (*providers.CompletionResponse, error) {
	return nil, errors.New("not used")
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, req *providers.CompletionRequest) (<-chan *providers.StreamChunk, error) {
	if p.failBefore {
		return nil, p.streamErr
	}
	ch := make(chan *providers.StreamChunk, len(p.chunks)+1)
	for _, c := range p.chunks {
		ch <- c
	}
	if p.streamErr != nil {
		ch <- &providers.StreamChunk{Error: p.streamErr}
	}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) HealthCheck(ctx context.Context) error { return nil }
func (p *fakeProvider) GetName() string                       { return p.name }
func (p *fakeProvider) GetType() string                       { return "generic" }
func (p *fakeProvider) GetConfig() providers.ProviderConfig   { return providers.ProviderConfig{Name: p.name} }
func (p *fakeProvider) IsHealthy() bool                       { return true }
func (p *fakeProvider) GetHealth() providers.ProviderHealth   { return providers.ProviderHealth{IsHealthy: true} }
func (p *fakeProvider) Close() error                          { return nil }

type fakeSource struct {
	providers map[string]providers.Provider
	breakers  map[string]*circuitbreaker.Breaker
}

func newFakeSource() *fakeSource {
	return &fakeSource{providers: map[string]providers.Provider{}, breakers: map[string]*circuitbreaker.Breaker{}}
}

func (s *fakeSource) add(name string, p providers.Provider) {
	s.providers[name] = p
	s.breakers[name] = circuitbreaker.New(circuitbreaker.DefaultConfig())
}

func (s *fakeSource) Provider(name string) (providers.Provider, bool) {
	p, ok := s.providers[name]
	return p, ok
}
func (s *fakeSource) Breaker(name string) (*circuitbreaker.Breaker, bool) {
	b, ok := s.breakers[name]
	return b, ok
}
func (s *fakeSource) HealthScore(name string) float64 { return 1.0 }

func newEnvelope() *gatewaytypes.RequestEnvelope {
	return &gatewaytypes.RequestEnvelope{
		RequestID:  "req-1",
		Completion: providers.CompletionRequest{Model: "gpt-4o-mini", Stream: true},
	}
}

func TestRelay_StreamsSuccessfully(t *testing.T) {
	src := newFakeSource()
	src.add("a", &fakeProvider{name: "a", chunks: []*providers.StreamChunk{
		{ID: "1", Delta: "hello ", Created: 1},
		{ID: "1", Delta: "world", FinishReason: "stop", Created: 2},
	}})
	fm := failover.NewManager(src, 0.5, retry.DefaultPolicy())
	r := NewRelay(fm, src, nil)

	w := httptest.NewRecorder()
	usage := r.Stream(context.Background(), w, failover.Group{Name: "g", Instances: []string{"a"}, MaxAttempts: 1}, newEnvelope(), "gpt-4o-mini", nil)

	body := w.Body.String()
	assert.Contains(t, body, "hello ")
	assert.Contains(t, body, "world")
	assert.Contains(t, body, "data: [DONE]")
	assert.True(t, usage.Partial == false)
}

func TestRelay_FailsOverBeforeAnyBytesSent(t *testing.T) {
	src := newFakeSource()
	src.add("a", &fakeProvider{name: "a", failBefore: true, streamErr: errors.New("connection refused")})
	src.add("b", &fakeProvider{name: "b", chunks: []*providers.StreamChunk{
		{ID: "1", Delta: "ok", FinishReason: "stop"},
	}})
	fm := failover.NewManager(src, 0.5, retry.DefaultPolicy())
	r := NewRelay(fm, src, nil)

	w := httptest.NewRecorder()
	r.Stream(context.Background(), w, failover.Group{Name: "g", Instances: []string{"a", "b"}, MaxAttempts: 2}, newEnvelope(), "gpt-4o-mini", nil)

	assert.Contains(t, w.Body.String(), "\"ok\"")
}

func TestRelay_MidStreamFailureAfterBytesSentIsTerminal(t *testing.T) {
	src := newFakeSource()
	src.add("a", &fakeProvider{name: "a", chunks: []*providers.StreamChunk{
		{ID: "1", Delta: "partial"},
	}, streamErr: errors.New("upstream dropped connection")})
	src.add("b", &fakeProvider{name: "b", chunks: []*providers.StreamChunk{
		{ID: "1", Delta: "should-not-appear", FinishReason: "stop"},
	}})
	fm := failover.NewManager(src, 0.5, retry.DefaultPolicy())
	r := NewRelay(fm, src, nil)

	w := httptest.NewRecorder()
	r.Stream(context.Background(), w, failover.Group{Name: "g", Instances: []string{"a", "b"}, MaxAttempts: 2}, newEnvelope(), "gpt-4o-mini", nil)

	body := w.Body.String()
	assert.Contains(t, body, "partial")
	assert.False(t, strings.Contains(body, "should-not-appear"), "must not fail over once bytes were already flushed")
	assert.Contains(t, body, "data: [DONE]")
}

func TestRelay_AllCandidatesFailBeforeStreamingYieldsPlainJSONError(t *testing.T) {
	src := newFakeSource()
	src.add("a", &fakeProvider{name: "a", failBefore: true, streamErr: errors.New("boom")})
	fm := failover.NewManager(src, 0.5, retry.DefaultPolicy())
	r := NewRelay(fm, src, nil)

	w := httptest.NewRecorder()
	r.Stream(context.Background(), w, failover.Group{Name: "g", Instances: []string{"a"}, MaxAttempts: 1}, newEnvelope(), "gpt-4o-mini", nil)

	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

func TestRelay_CanonicalizesFinishReason(t *testing.T) {
	src := newFakeSource()
	src.add("a", &fakeProvider{name: "a", chunks: []*providers.StreamChunk{
		{ID: "1", Delta: "hi", FinishReason: "tool_calls"},
	}})
	fm := failover.NewManager(src, 0.5, retry.DefaultPolicy())
	r := NewRelay(fm, src, nil)

	w := httptest.NewRecorder()
	r.Stream(context.Background(), w, failover.Group{Name: "g", Instances: []string{"a"}, MaxAttempts: 1}, newEnvelope(), "gpt-4o-mini", nil)

	require.Contains(t, w.Body.String(), `"finish_reason":"tool_calls"`)
}
