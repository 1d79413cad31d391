package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigError means the persisted settings are disabled or malformed.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "gateway config error: " + e.Reason }

// AlreadyRunningError is returned by Start on a Running instance.
type AlreadyRunningError struct{}

func (e *AlreadyRunningError) Error() string { return "gateway is already running" }

// NotRunningError is returned by operations that require a running gateway.
type NotRunningError struct{}

func (e *NotRunningError) Error() string { return "gateway is not running" }

// NoCandidateError means routing found no eligible provider/model.
type NoCandidateError struct {
	Reason string
}

func (e *NoCandidateError) Error() string { return "no routing candidate: " + e.Reason }

// ProviderUnavailableError wraps a network, timeout, or upstream failure
// against one specific backend.
type ProviderUnavailableError struct {
	Provider   string
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("provider %s timed out", e.Provider)
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s unavailable (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// TranslationError means a request or response could not be mapped between
// the canonical representation and a wire format.
type TranslationError struct {
	Format string
	Reason string
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed (%s): %s", e.Format, e.Reason)
}

// ExhaustedFailoverError means every routing candidate failed.
type ExhaustedFailoverError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedFailoverError) Error() string {
	return fmt.Sprintf("all %d candidates failed, last error: %v", e.Attempts, e.Last)
}

func (e *ExhaustedFailoverError) Unwrap() error { return e.Last }

// StreamInterruptedError means a backend failed after part of its stream was
// already forwarded to the caller, so the attempt cannot be silently retried.
type StreamInterruptedError struct {
	Provider string
	Err      error
}

func (e *StreamInterruptedError) Error() string {
	return fmt.Sprintf("stream from provider %s interrupted: %v", e.Provider, e.Err)
}

func (e *StreamInterruptedError) Unwrap() error { return e.Err }

// HTTPStatus maps a domain error onto the status the front-end replies with.
// Request failures never take down the listener.
func HTTPStatus(err error) int {
	var (
		translation *TranslationError
		noCandidate *NoCandidateError
		exhausted   *ExhaustedFailoverError
		unavailable *ProviderUnavailableError
		interrupted *StreamInterruptedError
		config      *ConfigError
	)
	switch {
	case errors.As(err, &translation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &noCandidate), errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &unavailable):
		if unavailable.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &interrupted):
		return http.StatusBadGateway
	case errors.As(err, &config):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
