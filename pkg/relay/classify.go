package relay

import (
	"context"
	"errors"

	"mercator-hq/jupiter-gateway/pkg/gatewaytypes"
	"mercator-hq/jupiter-gateway/pkg/providers"
)

// Classify maps a provider-layer error to the closed ErrorClass set the
// resilience layer and retry policy share, mirroring pkg/proxy/errors.go's
// HandleError type-switch but producing a retry classification instead of
// an HTTP response.
func Classify(err error) gatewaytypes.ErrorClass {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return gatewaytypes.ClassCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return gatewaytypes.ClassTimeout
	}

	var authErr *providers.AuthError
	if errors.As(err, &authErr) {
		return gatewaytypes.ClassAuth
	}

	var rateLimitErr *providers.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return gatewaytypes.ClassRateLimitedUpstream
	}

	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) {
		return gatewaytypes.ClassTimeout
	}

	var validationErr *providers.ValidationError
	if errors.As(err, &validationErr) {
		return gatewaytypes.ClassBadRequest
	}

	var modelNotFoundErr *providers.ModelNotFoundError
	if errors.As(err, &modelNotFoundErr) {
		return gatewaytypes.ClassBadRequest
	}

	var providerErr *providers.ProviderError
	if errors.As(err, &providerErr) {
		if providerErr.StatusCode >= 500 || providerErr.StatusCode == 0 {
			return gatewaytypes.ClassServerError
		}
		if providerErr.StatusCode == 429 {
			return gatewaytypes.ClassRateLimitedUpstream
		}
		return gatewaytypes.ClassBadRequest
	}

	var parseErr *providers.ParseError
	if errors.As(err, &parseErr) {
		return gatewaytypes.ClassServerError
	}

	var streamErr *providers.StreamError
	if errors.As(err, &streamErr) {
		return gatewaytypes.ClassTransport
	}

	return gatewaytypes.ClassTransport
}

// RetryAfterNanos extracts a server-provided retry hint, for the
// max(computed_backoff, server_retry_after) rule in the retry policy.
func RetryAfterNanos(err error) int64 {
	var rateLimitErr *providers.RateLimitError
	if errors.As(err, &rateLimitErr) && rateLimitErr.RetryAfter > 0 {
		return rateLimitErr.RetryAfter.Nanoseconds()
	}
	return 0
}
