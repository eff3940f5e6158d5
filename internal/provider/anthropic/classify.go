package anthropic

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/srourslaw/Sharepoint-project-sub005/internal/domain"
)

// ClassifyError maps Anthropic failures into the shared taxonomy. API errors
// carry distinct status codes per failure class (413 request_too_large, 529
// overloaded_error), so classification is by status code alone; everything
// else falls through to the generic rules. Total: any input yields a valid
// taxonomy code.
func (a *Adapter) ClassifyError(err error) *domain.ProviderError {
	if err == nil {
		return domain.NewProviderError(domain.ErrCodeUnknown, a.name, "unknown error")
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return a.classifyAPIError(apierr)
	}

	return domain.Classify(err, a.name)
}

func (a *Adapter) classifyAPIError(apierr *anthropic.Error) *domain.ProviderError {
	code := domain.ErrCodeUnknown

	switch apierr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		code = domain.ErrCodeAPIKeyInvalid
	case http.StatusTooManyRequests:
		code = domain.ErrCodeRateLimitExceeded
	case http.StatusPaymentRequired:
		code = domain.ErrCodeQuotaExceeded
	case http.StatusRequestEntityTooLarge:
		code = domain.ErrCodeContextTooLong
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity:
		code = domain.ErrCodeInvalidRequest
	case http.StatusInternalServerError:
		code = domain.ErrCodeUnknown
	case 529:
		// Anthropic's dedicated overloaded_error status.
		code = domain.ErrCodeModelOverloaded
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		code = domain.ErrCodeServiceUnavailable
	}

	message := fmt.Sprintf("anthropic API error: %d %s", apierr.StatusCode, http.StatusText(apierr.StatusCode))

	return domain.NewProviderError(code, a.name, message).WithCause(apierr)
}
