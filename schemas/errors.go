package schemas

import "fmt"

// ErrorKind classifies a StrataError by failure class rather than by type.
type ErrorKind string

const (
	ErrorUnknown             ErrorKind = "unknown_error"
	ErrorValidation          ErrorKind = "validation_error"
	ErrorUnsupported         ErrorKind = "unsupported"
	ErrorProviderAuth        ErrorKind = "provider_auth_error"
	ErrorProviderRateLimit   ErrorKind = "provider_rate_limit"
	ErrorProviderNotFound    ErrorKind = "provider_not_found"
	ErrorProviderUnavailable ErrorKind = "provider_unavailable"
	ErrorTimeout             ErrorKind = "timeout"
)

// StrataError is the unified error shape every capability failure is funneled
// through. Transport layers map Kind to protocol codes via HTTPStatus.
type StrataError struct {
	Kind           ErrorKind     `json:"kind"`
	Message        string        `json:"message"`
	Provider       ModelProvider `json:"provider,omitempty"`
	UpstreamStatus int           `json:"upstream_status,omitempty"`
	UpstreamCode   string        `json:"upstream_code,omitempty"`
	RequestID      string        `json:"request_id,omitempty"`
	Cause          error         `json:"-"`
}

func (e *StrataError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *StrataError) Unwrap() error {
	return e.Cause
}

// ClassifyStatus maps an upstream HTTP status to an ErrorKind.
func ClassifyStatus(status int) ErrorKind {
	switch status {
	case 0:
		return ErrorUnknown
	case 401, 403:
		return ErrorProviderAuth
	case 404:
		return ErrorProviderNotFound
	case 408:
		return ErrorTimeout
	case 429:
		return ErrorProviderRateLimit
	}
	if status >= 500 {
		return ErrorProviderUnavailable
	}
	return ErrorUnknown
}

// AsStrataError returns err unchanged when it already is a StrataError and
// wraps anything else as ErrorUnknown. Returns nil for a nil error.
func AsStrataError(err error) *StrataError {
	if err == nil {
		return nil
	}
	if serr, ok := err.(*StrataError); ok {
		return serr
	}
	return &StrataError{
		Kind:    ErrorUnknown,
		Message: err.Error(),
		Cause:   err,
	}
}

// NewValidationError creates a VALIDATION error for the given provider.
func NewValidationError(provider ModelProvider, message string) *StrataError {
	return &StrataError{
		Kind:     ErrorValidation,
		Message:  message,
		Provider: provider,
	}
}

// NewUnsupportedOperationError creates an UNSUPPORTED error naming the
// provider and the operation it does not implement.
func NewUnsupportedOperationError(provider ModelProvider, operation string) *StrataError {
	return &StrataError{
		Kind:     ErrorUnsupported,
		Message:  fmt.Sprintf("provider %s does not support %s", provider, operation),
		Provider: provider,
	}
}

// HTTPStatus gives the reproducible transport mapping for an error kind.
// Transports outside the kit translate kinds with this table.
func HTTPStatus(kind ErrorKind) int {
	switch kind {
	case ErrorValidation, ErrorUnsupported:
		return 400
	case ErrorProviderAuth:
		return 401
	case ErrorProviderRateLimit:
		return 429
	case ErrorProviderUnavailable:
		return 503
	case ErrorTimeout:
		return 504
	default:
		return 500
	}
}
