package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/jupiter-gateway/pkg/config"
	"mercator-hq/jupiter-gateway/pkg/limits"
	"mercator-hq/jupiter-gateway/pkg/limits/budget"
	"mercator-hq/jupiter-gateway/pkg/limits/enforcement"
	"mercator-hq/jupiter-gateway/pkg/limits/ratelimit"
	"mercator-hq/jupiter-gateway/pkg/limits/storage"
	"mercator-hq/jupiter-gateway/pkg/overflow"
	"mercator-hq/jupiter-gateway/pkg/proxy"
	"mercator-hq/jupiter-gateway/pkg/proxy/handlers"
	"mercator-hq/jupiter-gateway/pkg/proxy/middleware"
	"mercator-hq/jupiter-gateway/pkg/security/auth"
)

// BuildAdmissionChain assembles the request-plane admission filter: API-key
// authentication ahead of rate-limit/budget enforcement, in that order, per
// the request pipeline's Admission stage. Either stage is skipped when its
// config section isn't enabled. A request the rate limiter would otherwise
// block is instead diverted to overflowBackend when the enforcement action
// is "queue" and a backend is supplied. Returns nil when neither auth nor
// limits is enabled, so callers can skip wrapping entirely instead of
// installing a no-op.
func BuildAdmissionChain(cfg *config.Config, overflowBackend overflow.Backend) (func(http.Handler) http.Handler, error) {
	var chain []func(http.Handler) http.Handler

	if cfg.Security.Authentication.Enabled {
		chain = append(chain, authMiddleware(cfg.Security.Authentication))
	}

	if cfg.Limits.RateLimits.Enabled || cfg.Limits.Budgets.Enabled {
		mgr, err := newLimitsManager(cfg.Limits)
		if err != nil {
			return nil, fmt.Errorf("admission: building limits manager: %w", err)
		}
		chain = append(chain, rateLimitMiddleware(mgr, overflowBackend, cfg.Gateway.Overflow.MaxAttempts))
	}

	if len(chain) == 0 {
		return nil, nil
	}

	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}, nil
}

// rateLimitMiddleware is grounded on pkg/proxy/middleware.LimitsMiddleware,
// adapted to divert an ActionQueue verdict to the overflow queue instead of
// always rejecting with 429.
func rateLimitMiddleware(mgr *limits.Manager, overflowBackend overflow.Backend, maxAttempts int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			identifier := proxy.ExtractAPIKey(r)
			if identifier == "" {
				identifier = proxy.ExtractUserID(r)
			}
			if identifier == "" {
				next.ServeHTTP(w, r)
				return
			}

			var body []byte
			if r.Body != nil {
				b, err := io.ReadAll(r.Body)
				if err == nil {
					body = b
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			model := extractModel(body)
			result, err := mgr.CheckLimits(ctx, identifier, estimateTokens(body), 0, model)
			if err != nil {
				http.Error(w, "internal error checking limits", http.StatusInternalServerError)
				return
			}

			setLimitHeaders(w, result)

			if !result.Allowed {
				if overflowBackend != nil && result.Action == limits.ActionQueue && len(body) > 0 {
					r.Body = io.NopCloser(bytes.NewReader(body))
					enqueueOverflow(w, r, overflowBackend, identifier, maxAttempts)
					return
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprintf(w, `{"error":{"message":%q,"type":"rate_limit_error"}}`, result.Reason)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

// enqueueOverflow persists the request as a durable job and tells the
// client it was accepted for later processing instead of rejected.
func enqueueOverflow(w http.ResponseWriter, r *http.Request, backend overflow.Backend, identifier string, maxAttempts int) {
	requestID := middleware.GetRequestID(r.Context())

	envelope, _, err := handlers.BuildEnvelope(r, requestID)
	if err != nil {
		errResp := proxy.HandleError(err)
		if writeErr := proxy.WriteErrorResponse(w, errResp); writeErr != nil {
			slog.Error("admission: failed to write error response", "error", writeErr)
		}
		return
	}

	envelopeJSON, err := json.Marshal(envelope)
	if err != nil {
		http.Error(w, "internal error queuing request", http.StatusInternalServerError)
		return
	}

	jobID := uuid.NewString()
	job := &overflow.Job{
		ID:           jobID,
		Key:          identifier,
		EnvelopeJSON: envelopeJSON,
		MaxAttempts:  maxAttempts,
		ScheduledAt:  time.Now(),
		CreatedAt:    time.Now(),
	}
	if err := backend.Save(job); err != nil {
		slog.Error("admission: failed to enqueue overflow job", "error", err)
		http.Error(w, "internal error queuing request", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"message":    "Request queued for processing",
		"job_id":     jobID,
		"request_id": requestID,
	})
}

// setLimitHeaders mirrors pkg/proxy/middleware's unexported helper of the
// same name, which can't be called from outside its package.
func setLimitHeaders(w http.ResponseWriter, result *limits.LimitCheckResult) {
	if result.RateLimit != nil {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.RateLimit.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.RateLimit.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.RateLimit.Reset.Unix()))
	}
	if result.Budget != nil {
		w.Header().Set("X-Budget-Limit", fmt.Sprintf("%.2f", result.Budget.Limit))
		w.Header().Set("X-Budget-Used", fmt.Sprintf("%.2f", result.Budget.Used))
		w.Header().Set("X-Budget-Remaining", fmt.Sprintf("%.2f", result.Budget.Remaining))
		w.Header().Set("X-Budget-Reset", fmt.Sprintf("%d", result.Budget.Reset.Unix()))
	}
	if result.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(result.RetryAfter.Seconds())))
	}
}

// extractModel reads just the "model" field out of a raw chat completion
// body, without fully parsing it — the limits manager only needs it for
// per-model downgrade bookkeeping.
func extractModel(body []byte) string {
	var partial struct {
		Model string `json:"model"`
	}
	if len(body) == 0 {
		return ""
	}
	_ = json.Unmarshal(body, &partial)
	return partial.Model
}

// estimateTokens is a coarse pre-admission estimate (chars/4), matching
// the conservative token-per-character ratio pkg/processing/tokens'
// SimpleEstimator uses elsewhere; admission only needs a ballpark to
// check token-rate limits before the real request is parsed.
func estimateTokens(body []byte) int {
	if len(body) == 0 {
		return 0
	}
	return len(body) / 4
}

func authMiddleware(cfg config.AuthenticationConfig) func(http.Handler) http.Handler {
	keys := make([]*auth.APIKeyInfo, 0, len(cfg.Keys))
	for _, k := range cfg.Keys {
		keys = append(keys, &auth.APIKeyInfo{
			Key:       k.Key,
			UserID:    k.UserID,
			TeamID:    k.TeamID,
			Enabled:   k.Enabled,
			RateLimit: k.RateLimit,
		})
	}
	validator := auth.NewAPIKeyValidator(keys)

	sources := make([]auth.APIKeySource, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, auth.APIKeySource{Type: s.Type, Name: s.Name, Scheme: s.Scheme})
	}
	if len(sources) == 0 {
		sources = []auth.APIKeySource{{Type: "header", Name: "Authorization", Scheme: "Bearer"}}
	}

	mw := auth.NewAPIKeyMiddleware(validator, sources)
	return mw.Handle
}

// newLimitsManager mirrors pkg/proxy/middleware's own config-conversion
// helper, inlined here since that helper takes an unexported mirror type
// and can't be called from outside its package.
func newLimitsManager(cfg config.LimitsConfig) (*limits.Manager, error) {
	rateLimits := make(map[string]ratelimit.Config, len(cfg.RateLimits.ByAPIKey))
	for k, v := range cfg.RateLimits.ByAPIKey {
		rateLimits[k] = ratelimit.Config{
			RequestsPerSecond: v.RequestsPerSecond,
			RequestsPerMinute: v.RequestsPerMinute,
			RequestsPerHour:   v.RequestsPerHour,
			TokensPerMinute:   v.TokensPerMinute,
			TokensPerHour:     v.TokensPerHour,
			MaxConcurrent:     v.MaxConcurrent,
		}
	}

	budgets := make(map[string]budget.Config, len(cfg.Budgets.ByAPIKey))
	for k, v := range cfg.Budgets.ByAPIKey {
		budgets[k] = budget.Config{
			Hourly:         v.Hourly,
			Daily:          v.Daily,
			Monthly:        v.Monthly,
			AlertThreshold: cfg.Budgets.AlertThreshold,
		}
	}

	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		b, err := storage.NewSQLiteBackend(cfg.Storage.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("limits: opening sqlite backend: %w", err)
		}
		backend = b
	default:
		backend = storage.NewMemoryBackendWithConfig(storage.MemoryBackendConfig{
			MaxEntries:      cfg.Storage.Memory.MaxEntries,
			CleanupInterval: cfg.Storage.Memory.CleanupInterval,
		})
	}

	return limits.NewManager(limits.Config{
		RateLimits: rateLimits,
		Budgets:    budgets,
		Enforcement: enforcement.Config{
			DefaultAction:   enforcement.Action(cfg.Enforcement.Action),
			QueueDepth:      cfg.Enforcement.QueueDepth,
			QueueTimeout:    cfg.Enforcement.QueueTimeout,
			ModelDowngrades: cfg.Enforcement.ModelDowngrades,
		},
		Storage: backend,
	}), nil
}
