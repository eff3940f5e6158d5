package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is the closed taxonomy every provider failure is mapped into.
type ErrorCode string

const (
	ErrCodeAPIKeyInvalid      ErrorCode = "API_KEY_INVALID"
	ErrCodeInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrCodeContextTooLong     ErrorCode = "CONTEXT_TOO_LONG"
	ErrCodeContentFiltered    ErrorCode = "CONTENT_FILTERED"
	ErrCodeQuotaExceeded      ErrorCode = "QUOTA_EXCEEDED"
	ErrCodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeModelOverloaded    ErrorCode = "MODEL_OVERLOADED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeNetworkError       ErrorCode = "NETWORK_ERROR"
	ErrCodeUnknown            ErrorCode = "UNKNOWN_ERROR"
)

// httpStatusForCode maps each taxonomy code to its HTTP status equivalent.
// NetworkError has no HTTP equivalent and maps to 0.
func httpStatusForCode(code ErrorCode) int {
	switch code {
	case ErrCodeAPIKeyInvalid:
		return http.StatusUnauthorized
	case ErrCodeInvalidRequest, ErrCodeContextTooLong, ErrCodeContentFiltered:
		return http.StatusBadRequest
	case ErrCodeQuotaExceeded, ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeModelOverloaded, ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeNetworkError:
		return 0
	default:
		return http.StatusInternalServerError
	}
}

// ProviderError is a classified provider failure. Immutable once constructed.
type ProviderError struct {
	Code              ErrorCode `json:"code"`
	Message           string    `json:"message"`
	HTTPStatus        int       `json:"http_status"`
	Provider          string    `json:"provider,omitempty"`
	RetryAfterSeconds int       `json:"retry_after_seconds,omitempty"`
	RequestID         string    `json:"request_id,omitempty"`
	cause             error
}

// NewProviderError constructs a classified error with the status implied by
// its code.
func NewProviderError(code ErrorCode, provider, message string) *ProviderError {
	return &ProviderError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatusForCode(code),
		Provider:   provider,
	}
}

// WithRetryAfter returns a copy carrying a retry hint in seconds.
func (e *ProviderError) WithRetryAfter(seconds int) *ProviderError {
	copied := *e
	copied.RetryAfterSeconds = seconds
	return &copied
}

// WithCause returns a copy wrapping the original vendor error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	copied := *e
	copied.cause = err
	return &copied
}

func (e *ProviderError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Code)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *ProviderError) Unwrap() error {
	return e.cause
}

// Retryable reports whether the caller may retry after a backoff.
// Non-retryable codes are terminal and must not be retried automatically.
func (e *ProviderError) Retryable() bool {
	switch e.Code {
	case ErrCodeRateLimitExceeded, ErrCodeServiceUnavailable, ErrCodeModelOverloaded, ErrCodeNetworkError:
		return true
	default:
		return false
	}
}

// classifyRule is one pattern entry in the generic classification table.
// Rules are evaluated in order; the order encodes the priority
// authentication > quota/rate-limit > content-safety > size/context >
// connectivity > generic.
type classifyRule struct {
	code     ErrorCode
	patterns []string
}

//nolint:gochecknoglobals // Static rule table, read-only after init
var genericRules = []classifyRule{
	{ErrCodeAPIKeyInvalid, []string{
		"api key", "api_key", "unauthorized", "authentication", "invalid key",
		"permission denied", "forbidden", "401", "403",
	}},
	{ErrCodeQuotaExceeded, []string{
		"quota", "insufficient_quota", "billing", "credit",
	}},
	{ErrCodeRateLimitExceeded, []string{
		"rate limit", "rate_limit", "too many requests", "429",
	}},
	{ErrCodeContentFiltered, []string{
		"content filter", "content_filter", "content policy", "safety", "flagged", "refusal",
	}},
	{ErrCodeContextTooLong, []string{
		"context length", "context_length", "maximum context", "too long",
		"token limit", "prompt is too large",
	}},
	{ErrCodeModelOverloaded, []string{
		"overloaded", "capacity", "529",
	}},
	{ErrCodeServiceUnavailable, []string{
		"service unavailable", "unavailable", "bad gateway", "502", "503",
	}},
	{ErrCodeNetworkError, []string{
		"timeout", "timed out", "deadline exceeded", "connection refused",
		"connection reset", "no such host", "network", "eof", "broken pipe",
	}},
	{ErrCodeInvalidRequest, []string{
		"invalid request", "invalid_request", "bad request", "validation", "400", "not supported",
	}},
}

// Classify maps an arbitrary error into the closed taxonomy. It is total:
// every input yields a valid ProviderError, unrecognized shapes map to
// UnknownError. Errors already classified pass through unchanged.
func Classify(err error, provider string) *ProviderError {
	if err == nil {
		return NewProviderError(ErrCodeUnknown, provider, "unknown error")
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProviderError(ErrCodeNetworkError, provider, err.Error()).WithCause(err)
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range genericRules {
		for _, pattern := range rule.patterns {
			if strings.Contains(msg, pattern) {
				return NewProviderError(rule.code, provider, err.Error()).WithCause(err)
			}
		}
	}

	return NewProviderError(ErrCodeUnknown, provider, err.Error()).WithCause(err)
}
