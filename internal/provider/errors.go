package provider

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/sells-group/prospect-cli/internal/resilience"
)

// ErrorKind classifies a provider failure for the orchestrator.
type ErrorKind string

const (
	// KindUnavailable means the provider is not configured (missing API
	// key). Detected before any network call.
	KindUnavailable ErrorKind = "unavailable"
	// KindUnauthorized means the provider rejected our credentials.
	KindUnauthorized ErrorKind = "unauthorized"
	// KindRateLimited means the provider throttled us.
	KindRateLimited ErrorKind = "rate_limited"
	// KindNotFound is a negative result: the provider has no email for
	// this person. Not a failure.
	KindNotFound ErrorKind = "not_found"
	// KindTransient covers network flaps and provider-side 5xx.
	KindTransient ErrorKind = "transient"
	// KindParse means the provider response could not be interpreted.
	KindParse ErrorKind = "parse"
)

// ProviderError wraps a failure from a single provider lookup.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewError builds a classified provider error.
func NewError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// KindOf extracts the classification from err, or KindTransient if err is
// not a ProviderError (network errors reach here unclassified).
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindTransient
}

// IsNotFound reports whether err is a negative lookup result.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsRetryable reports whether a retry of the same call could succeed.
// Used as the ShouldRetry hook for resilience.DoVal.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}

// classifyStatus maps an HTTP status from a provider API to an ErrorKind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusNotFound:
		return KindNotFound
	case resilience.IsTransientHTTPStatus(status):
		return KindTransient
	default:
		return KindTransient
	}
}
