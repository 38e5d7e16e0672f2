package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses and the
// {error:{code,message,details}} envelope.
type AppError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	HTTPStatus int                    `json:"-"`
	Err        error                  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetails attaches structured detail fields to the error.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Authentication & trust boundary ----

func ErrAuthRequired() *AppError {
	return New("AUTH_REQUIRED", "Authentication is required", http.StatusUnauthorized)
}

func ErrInvalidCredentials() *AppError {
	return New("INVALID_CREDENTIALS", "Invalid credentials", http.StatusUnauthorized)
}

func ErrTokenExpired() *AppError {
	return New("TOKEN_EXPIRED", "Token has expired", http.StatusUnauthorized)
}

func ErrTokenInvalid() *AppError {
	return New("TOKEN_INVALID", "Token is invalid", http.StatusUnauthorized)
}

func ErrInsufficientPermissions() *AppError {
	return New("INSUFFICIENT_PERMISSIONS", "Insufficient permissions", http.StatusForbidden)
}

func ErrAPIKeyInvalid() *AppError {
	return New("API_KEY_INVALID", "API key is invalid", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New("RATE_LIMIT_EXCEEDED", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Request validation ----

func ErrValidation(message string) *AppError {
	return New("VALIDATION_ERROR", message, http.StatusBadRequest)
}

// ---- Payment lifecycle ----

func ErrPaymentNotFound() *AppError {
	return New("PAYMENT_NOT_FOUND", "Payment not found", http.StatusNotFound)
}

func ErrPaymentExpired() *AppError {
	return New("PAYMENT_EXPIRED", "Payment has expired", http.StatusGone)
}

func ErrRefundNotAllowed() *AppError {
	return New("REFUND_NOT_ALLOWED", "Payment is not eligible for refund", http.StatusUnprocessableEntity)
}

func ErrRefundExceedsAmount() *AppError {
	return New("REFUND_EXCEEDS_AMOUNT", "Refund amount exceeds outstanding balance", http.StatusUnprocessableEntity)
}

func ErrIdempotencyConflict() *AppError {
	return New("IDEMPOTENCY_CONFLICT", "Idempotency key reused with a different request body", http.StatusConflict)
}

// ---- Provider dispatch ----

func ErrProviderError(err error) *AppError {
	return Wrap("PROVIDER_ERROR", "Payment provider returned an error", http.StatusBadGateway, err)
}

func ErrProviderTimeout(err error) *AppError {
	return Wrap("PROVIDER_TIMEOUT", "Payment provider did not respond in time", http.StatusGatewayTimeout, err)
}

func ErrProviderUnavailable(reason string) *AppError {
	return New("PROVIDER_UNAVAILABLE", reason, http.StatusServiceUnavailable)
}

// ---- System ----

func InternalError(err error) *AppError {
	return Wrap("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError, err)
}
