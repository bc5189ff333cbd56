package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	certificatedomain "github.com/smallbiznis/rewild/internal/certificate/domain"
	checkoutdomain "github.com/smallbiznis/rewild/internal/checkout/domain"
	gatewaydomain "github.com/smallbiznis/rewild/internal/gateway/domain"
	reconciledomain "github.com/smallbiznis/rewild/internal/reconcile/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: publicMessage(err, "invalid request"),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, certificatedomain.ErrRevoked):
		return http.StatusConflict, errorPayload{
			Type:    "certificate_revoked",
			Message: "certificate is revoked",
		}
	case errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, checkoutdomain.ErrCheckoutUnavailable),
		errors.Is(err, gatewaydomain.ErrGatewayUnavailable):
		return http.StatusInternalServerError, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrInvalidRequest),
		errors.Is(err, checkoutdomain.ErrUnknownProject),
		errors.Is(err, checkoutdomain.ErrCurrencyMismatch),
		errors.Is(err, checkoutdomain.ErrInsufficientArea),
		errors.Is(err, reconciledomain.ErrInvalidReference):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, certificatedomain.ErrNotFound),
		errors.Is(err, reconciledomain.ErrPaymentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// publicMessage exposes the text of our own sentinel errors. Anything chained
// to a gateway error can carry upstream response text and gets the fallback.
func publicMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	if errors.Is(err, checkoutdomain.ErrCheckoutUnavailable) ||
		errors.Is(err, gatewaydomain.ErrGatewayUnavailable) {
		return fallback
	}
	return err.Error()
}
