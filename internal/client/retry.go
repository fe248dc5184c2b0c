package client

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Belphemur/HlsGrab/internal/apperrors"
	"github.com/Belphemur/HlsGrab/internal/config"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// RetryConfig controls retry behavior for manifest and segment fetches.
// MaxRetries of zero means a single attempt.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig is used when the configuration leaves values unset.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
}

// RetryConfigFrom extracts the retry settings of cfg.
func RetryConfigFrom(cfg *config.Config) RetryConfig {
	rc := RetryConfig{
		MaxRetries:     cfg.Retry.MaxRetries,
		InitialBackoff: ParseDuration(cfg.Retry.InitialBackoff, DefaultRetryConfig.InitialBackoff, "retry.initial_backoff"),
		MaxBackoff:     ParseDuration(cfg.Retry.MaxBackoff, DefaultRetryConfig.MaxBackoff, "retry.max_backoff"),
	}
	if rc.MaxBackoff < rc.InitialBackoff {
		rc.MaxBackoff = rc.InitialBackoff
	}
	return rc
}

// Retrier runs an operation under a retry policy. The zero value is not usable;
// use NewRetrier.
type Retrier struct {
	policy retrypolicy.RetryPolicy[any]
}

// NewRetrier builds a retry policy with exponential backoff that only retries
// errors accepted by IsRetryable. After the last attempt the last error is
// returned as-is so callers see the typed error of the failing stage.
func NewRetrier(rc RetryConfig) *Retrier {
	logger := config.GetLogger()

	builder := retrypolicy.NewBuilder[any]().
		HandleIf(func(_ any, err error) bool { return err != nil && IsRetryable(err) }).
		WithMaxRetries(rc.MaxRetries).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[any]) {
			logger.Debug().Err(e.LastError()).Int("attempt", e.Attempts()).Msg("Retrying request")
		})
	switch {
	case rc.InitialBackoff > 0 && rc.MaxBackoff > rc.InitialBackoff:
		builder = builder.WithBackoff(rc.InitialBackoff, rc.MaxBackoff)
	case rc.InitialBackoff > 0:
		builder = builder.WithDelay(rc.InitialBackoff)
	}

	return &Retrier{policy: builder.Build()}
}

// Run executes fn, retrying retryable failures. Cancelling ctx stops retries.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	return failsafe.With[any](r.policy).WithContext(ctx).Run(fn)
}

// IsRetryable returns true for transient errors worth retrying: network
// failures, timeouts, truncated bodies and retryable HTTP statuses.
// Local file errors and caller cancellation are never retried.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var fileErr *apperrors.FileIOError
	if errors.As(err, &fileErr) {
		return false
	}
	var constructionErr *apperrors.ConstructionError
	if errors.As(err, &constructionErr) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.StatusCode)
	}
	var fetchErr *apperrors.FetchError
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		return IsRetryableStatus(fetchErr.StatusCode)
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	// Connection errors (dial failures, connection refused, etc.)
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooEarly,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
