package openai

import (
	"errors"
	"strconv"
	"strings"

	"github.com/openai/openai-go"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

// ClassifyError maps OpenAI failures into the shared taxonomy. API errors are
// classified by status code and error body; everything else falls through to
// the generic rules. Total: any input yields a valid taxonomy code.
func (a *Adapter) ClassifyError(err error) *domain.ProviderError {
	if err == nil {
		return domain.NewProviderError(domain.ErrCodeUnknown, a.name, "unknown error")
	}

	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return a.classifyAPIError(apierr)
	}

	return domain.Classify(err, a.name)
}

func (a *Adapter) classifyAPIError(apierr *openai.Error) *domain.ProviderError {
	message := apierr.Message
	if message == "" {
		message = apierr.Error()
	}
	lower := strings.ToLower(message + " " + apierr.Code + " " + apierr.Type)

	code := domain.ErrCodeUnknown

	switch apierr.StatusCode {
	case 401, 403:
		code = domain.ErrCodeAPIKeyInvalid
	case 429:
		// Exhausted credits also surface as 429; quota wins over rate limit.
		if strings.Contains(lower, "quota") || strings.Contains(lower, "billing") {
			code = domain.ErrCodeQuotaExceeded
		} else {
			code = domain.ErrCodeRateLimitExceeded
		}
	case 400, 404, 422:
		switch {
		case strings.Contains(lower, "context_length") || strings.Contains(lower, "context length") ||
			strings.Contains(lower, "maximum context"):
			code = domain.ErrCodeContextTooLong
		case strings.Contains(lower, "content_filter") || strings.Contains(lower, "content policy") ||
			strings.Contains(lower, "safety"):
			code = domain.ErrCodeContentFiltered
		default:
			code = domain.ErrCodeInvalidRequest
		}
	case 500:
		code = domain.ErrCodeUnknown
	case 502, 503, 504:
		if strings.Contains(lower, "overloaded") {
			code = domain.ErrCodeModelOverloaded
		} else {
			code = domain.ErrCodeServiceUnavailable
		}
	}

	pe := domain.NewProviderError(code, a.name, message).WithCause(apierr)

	if code == domain.ErrCodeRateLimitExceeded {
		if seconds := retryAfterFromHeader(apierr); seconds > 0 {
			pe = pe.WithRetryAfter(seconds)
		}
	}

	return pe
}

// retryAfterFromHeader extracts the Retry-After hint when the SDK kept the
// response around.
func retryAfterFromHeader(apierr *openai.Error) int {
	if apierr.Response == nil {
		return 0
	}

	header := apierr.Response.Header.Get("Retry-After")
	if header == "" {
		return 0
	}

	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return seconds
}
