package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// ProviderError represents a failed metadata lookup: transport, authentication,
// unexpected status or an undecodable response. It is always recovered by the
// enrichment engine and never aborts a run.
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Provider, e.Op)
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		msg += fmt.Sprintf(": access denied, check API credentials (HTTP %d)", e.StatusCode)
	case e.StatusCode != 0:
		msg += fmt.Sprintf(": unexpected status (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError for the given provider operation
func NewProviderError(provider, op string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Op: op, Err: err}
}

// NewProviderStatusError creates a ProviderError for a non-2xx HTTP response
func NewProviderStatusError(provider, op string, statusCode int, body string) *ProviderError {
	var err error
	if body != "" {
		err = stdErrors.New(body)
	}
	return &ProviderError{Provider: provider, Op: op, StatusCode: statusCode, Err: err}
}

// IsAuthError reports whether err is a ProviderError caused by rejected credentials
func IsAuthError(err error) bool {
	var pErr *ProviderError
	if !stdErrors.As(err, &pErr) {
		return false
	}
	return pErr.StatusCode == http.StatusUnauthorized || pErr.StatusCode == http.StatusForbidden
}

// IsProviderError checks if error is a ProviderError
func IsProviderError(err error) bool {
	var pErr *ProviderError
	return stdErrors.As(err, &pErr)
}
