package errors

import (
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
)

// Common error types that can be used across the application
var (
	ErrNotFound         = new(ErrCodeNotFound, "resource not found")
	ErrAlreadyExists    = new(ErrCodeAlreadyExists, "resource already exists")
	ErrValidation       = new(ErrCodeValidation, "validation error")
	ErrInvalidOperation = new(ErrCodeInvalidOperation, "invalid operation")
	ErrPermissionDenied = new(ErrCodePermissionDenied, "permission denied")
	ErrHTTPClient       = new(ErrCodeHTTPClient, "http client error")
	ErrDatabase         = new(ErrCodeDatabase, "database error")
	ErrInternal         = new(ErrCodeInternal, "internal error")
	ErrSystem           = new(ErrCodeSystemError, "system error")

	// Provider integration error types. These map one-to-one onto the
	// failure modes of the accounting provider's OAuth and data APIs.
	ErrInvalidState         = new(ErrCodeInvalidState, "oauth state mismatch")
	ErrAuthExchangeFailed   = new(ErrCodeAuthExchangeFailed, "authorization code exchange failed")
	ErrRefreshTokenInvalid  = new(ErrCodeRefreshTokenInvalid, "refresh token invalid or expired")
	ErrAuthenticationFailed = new(ErrCodeAuthenticationFailed, "provider authentication failed")
	ErrRateLimitExceeded    = new(ErrCodeRateLimitExceeded, "provider rate limit exceeded")
	ErrProvider             = new(ErrCodeProvider, "provider error")
	ErrNotConnected         = new(ErrCodeNotConnected, "provider not connected")
	ErrCustomerNotMapped    = new(ErrCodeCustomerNotMapped, "no provider customer mapped")

	// maps errors to http status codes
	statusCodeMap = map[error]int{
		ErrHTTPClient:           http.StatusInternalServerError,
		ErrDatabase:             http.StatusInternalServerError,
		ErrNotFound:             http.StatusNotFound,
		ErrAlreadyExists:        http.StatusConflict,
		ErrValidation:           http.StatusBadRequest,
		ErrInvalidOperation:     http.StatusBadRequest,
		ErrPermissionDenied:     http.StatusForbidden,
		ErrInternal:             http.StatusInternalServerError,
		ErrSystem:               http.StatusInternalServerError,
		ErrInvalidState:         http.StatusBadRequest,
		ErrAuthExchangeFailed:   http.StatusBadGateway,
		ErrRefreshTokenInvalid:  http.StatusUnauthorized,
		ErrAuthenticationFailed: http.StatusUnauthorized,
		ErrRateLimitExceeded:    http.StatusTooManyRequests,
		ErrProvider:             http.StatusBadGateway,
		ErrNotConnected:         http.StatusBadRequest,
		ErrCustomerNotMapped:    http.StatusBadRequest,
	}
)

const (
	ErrCodeHTTPClient       = "http_client_error"
	ErrCodeSystemError      = "system_error"
	ErrCodeInternal         = "internal_error"
	ErrCodeNotFound         = "not_found"
	ErrCodeAlreadyExists    = "already_exists"
	ErrCodeValidation       = "validation_error"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodePermissionDenied = "permission_denied"
	ErrCodeDatabase         = "database_error"

	ErrCodeInvalidState         = "invalid_state"
	ErrCodeAuthExchangeFailed   = "auth_exchange_failed"
	ErrCodeRefreshTokenInvalid  = "refresh_token_invalid"
	ErrCodeAuthenticationFailed = "authentication_failed"
	ErrCodeRateLimitExceeded    = "rate_limit_exceeded"
	ErrCodeProvider             = "provider_error"
	ErrCodeNotConnected         = "not_connected"
	ErrCodeCustomerNotMapped    = "customer_not_mapped"
)

// InternalError represents a domain error
type InternalError struct {
	Code    string // Machine-readable error code
	Message string // Human-readable error message
	Op      string // Logical operation name
	Err     error  // Underlying error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
}

func (e *InternalError) DisplayError() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// Is implements error matching for wrapped errors
func (e *InternalError) Is(target error) bool {
	if target == nil {
		return false
	}

	t, ok := target.(*InternalError)
	if !ok {
		return errors.Is(e.Err, target)
	}

	return e.Code == t.Code
}

// New creates a new InternalError
func New(code string, message string) *InternalError {
	return &InternalError{
		Code:    code,
		Message: message,
	}
}

func new(code string, message string) *InternalError {
	return New(code, message)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidOperation checks if an error is an invalid operation error
func IsInvalidOperation(err error) bool {
	return errors.Is(err, ErrInvalidOperation)
}

// IsPermissionDenied checks if an error is a permission denied error
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsHTTPClient checks if an error is an http client error
func IsHTTPClient(err error) bool {
	return errors.Is(err, ErrHTTPClient)
}

// IsRefreshTokenInvalid reports whether the error is the terminal refresh
// failure that requires the user to re-run the full authorization flow.
func IsRefreshTokenInvalid(err error) bool {
	return errors.Is(err, ErrRefreshTokenInvalid)
}

// IsRateLimitExceeded checks if an error is a provider rate limit error
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsNotConnected checks if an error indicates a missing provider connection
func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}

func HTTPStatusFromErr(err error) int {
	for e, status := range statusCodeMap {
		if errors.Is(err, e) {
			return status
		}
	}
	return http.StatusInternalServerError
}
