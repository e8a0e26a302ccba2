package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	telemetryhealth "mercator-hq/jupiter-gateway/pkg/telemetry/health"
)

// HealthHandler handles health check requests for liveness probes.
//
// Grounded on pkg/telemetry/health.Checker.LivenessHandler: this is a
// thin adapter so the route table keeps its own http.Handler type.
type HealthHandler struct {
	checker *telemetryhealth.Checker
}

// NewHealthHandler creates a new health check handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{checker: telemetryhealth.New(0)}
}

// ServeHTTP implements http.Handler for liveness checks.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.checker.LivenessHandler()(w, r)
}

// ReadyHandler handles readiness check requests.
//
// It registers a "providers" readiness check with a telemetryhealth.Checker,
// so /ready reports "degraded" with a 503 whenever no provider is healthy,
// instead of hand-rolling that status/JSON logic itself.
type ReadyHandler struct {
	ProviderManager ProviderManager
	checker         *telemetryhealth.Checker
}

// NewReadyHandler creates a new readiness check handler.
func NewReadyHandler(pm ProviderManager) *ReadyHandler {
	checker := telemetryhealth.New(0)
	checker.RegisterCheck("providers", func(ctx context.Context) error {
		if len(pm.GetHealthyProviders()) == 0 {
			return errors.New("no healthy providers")
		}
		return nil
	})
	return &ReadyHandler{ProviderManager: pm, checker: checker}
}

// ServeHTTP implements http.Handler for readiness checks.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.checker.ReadinessHandler()(w, r)
}

// ProviderHealthHandler provides detailed health information.
type ProviderHealthHandler struct {
	ProviderManager ProviderManager
}

// NewProviderHealthHandler creates a new provider health handler.
func NewProviderHealthHandler(pm ProviderManager) *ProviderHealthHandler {
	return &ProviderHealthHandler{ProviderManager: pm}
}

// ServeHTTP implements http.Handler for detailed provider health.
func (h *ProviderHealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	healthyProviders := h.ProviderManager.GetHealthyProviders()

	providersHealth := make(map[string]interface{})
	for name, provider := range healthyProviders {
		health := provider.GetHealth()

		var lastError interface{}
		if health.LastError != nil {
			lastError = health.LastError.Error()
		}

		providersHealth[name] = map[string]interface{}{
			"healthy":    health.IsHealthy,
			"last_check": health.LastCheck.Unix(),
			"last_error": lastError,
		}
	}

	response := map[string]interface{}{
		"providers": providersHealth,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// PerformHealthCheck performs an on-demand health check.
func (h *ProviderHealthHandler) PerformHealthCheck(ctx context.Context) map[string]error {
	healthyProviders := h.ProviderManager.GetHealthyProviders()

	results := make(map[string]error)
	for name, provider := range healthyProviders {
		err := provider.HealthCheck(ctx)
		results[name] = err
	}

	return results
}
