package httpclient

import "fmt"

// UpstreamError is a non-2xx reply from a backend, body preserved for
// error-envelope translation.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Retryable reports whether the failure is worth trying on another backend:
// server-side errors and rate limits are, client errors are not.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
