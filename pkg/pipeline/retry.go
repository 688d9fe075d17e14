package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

// Default waits for RateLimitRetry.
const (
	DefaultRetryMinWait = 1 * time.Second
	DefaultRetryMaxWait = 30 * time.Second
)

// ============================================================================
// Device assertion
// ============================================================================

// DeviceAssertionRetry refreshes the device assertion and retries when the
// backend rejects it. It only fires after the first attempt.
type DeviceAssertionRetry struct {
	// Refresh obtains a new assertion and stores the resulting device token.
	Refresh func(ctx context.Context) error
}

func (DeviceAssertionRetry) Name() string { return "device_assertion" }

func (p DeviceAssertionRetry) Decide(ctx context.Context, a Attempt) Decision {
	if a.Number != 1 || p.Refresh == nil {
		return Decision{}
	}
	apiErr, ok := AsAPIError(a.Err)
	if !ok || !apiErr.HasCode(CodeRequiresAssertion, CodeRequiresDeviceAttestation) {
		return Decision{}
	}

	if err := p.Refresh(ctx); err != nil {
		slogx.FromContext(ctx).Warn("device assertion refresh failed", "error", err)
		return Decision{}
	}
	return Decision{Retry: true}
}

// ============================================================================
// Rate limit / transient transport failures
// ============================================================================

// RateLimitRetry retries throttled (HTTP 429) and transiently failed
// requests after max(Retry-After, MinWait), capped at MaxWait.
type RateLimitRetry struct {
	MinWait time.Duration
	MaxWait time.Duration
}

func (RateLimitRetry) Name() string { return "rate_limit" }

func (p RateLimitRetry) Decide(_ context.Context, a Attempt) Decision {
	minWait, maxWait := p.MinWait, p.MaxWait
	if minWait <= 0 {
		minWait = DefaultRetryMinWait
	}
	if maxWait < minWait {
		maxWait = max(DefaultRetryMaxWait, minWait)
	}

	if apiErr, ok := AsAPIError(a.Err); ok {
		if apiErr.StatusCode != http.StatusTooManyRequests {
			return Decision{}
		}
		httpResp := &http.Response{StatusCode: apiErr.StatusCode, Header: apiErr.Header}
		wait := max(retryablehttp.DefaultBackoff(minWait, maxWait, 0, httpResp), minWait)
		return Decision{Retry: true, Wait: min(wait, maxWait)}
	}

	var tErr *TransportError
	if errors.As(a.Err, &tErr) && tErr.Transient() {
		return Decision{Retry: true, Wait: retryablehttp.DefaultBackoff(minWait, maxWait, 0, nil)}
	}
	return Decision{}
}

// ============================================================================
// Invalid auth
// ============================================================================

type noRecoveryKey struct{}

// WithoutRecovery marks ctx so InvalidAuthRecovery ignores failures of
// requests made with it. Resync requests use it to avoid triggering
// themselves.
func WithoutRecovery(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRecoveryKey{}, true)
}

func recoverySuppressed(ctx context.Context) bool {
	v, _ := ctx.Value(noRecoveryKey{}).(bool)
	return v
}

// InvalidAuthRecovery schedules an out-of-band client resync when the
// backend reports the device's client or session as invalid. It never
// retries; the original error reaches the caller.
type InvalidAuthRecovery struct {
	// Resync must not block; it is expected to start its own work.
	Resync func(ctx context.Context)
}

func (InvalidAuthRecovery) Name() string { return "invalid_auth" }

func (p InvalidAuthRecovery) Decide(ctx context.Context, a Attempt) Decision {
	if p.Resync == nil || recoverySuppressed(ctx) {
		return Decision{}
	}
	apiErr, ok := AsAPIError(a.Err)
	if !ok || !apiErr.HasCode(CodeAuthenticationInvalid, CodeClientNotFound) {
		return Decision{}
	}

	slogx.FromContext(ctx).Info("session invalid, resyncing client", "code", apiErr.Code())
	resyncsTotal.Inc()
	p.Resync(WithoutRecovery(context.WithoutCancel(ctx)))
	return Decision{}
}
