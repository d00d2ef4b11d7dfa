// Package apierrors defines the client-facing error taxonomy shared by the
// HTTP and gRPC transports.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Error codes.
const (
	CodeInvalidCredentials        = "invalid_credentials"
	CodeMissingAuthorizationToken = "missing_authorization_token"
	CodeInvalidAuthorizationToken = "invalid_authorization_token"
	CodeInvalidInput              = "invalid_input"
	CodeTokenExpired              = "token_expired"
	CodeInvalidOrExpiredToken     = "invalid_or_expired_token"
	CodeUserNotFound              = "user_not_found"
	CodeEmailIsTaken              = "email_is_taken"
	CodeForbidden                 = "forbidden"
	CodeInternal                  = "internal"
)

// APIError is an error that is safe to show to a caller. The wrapped cause,
// if any, stays server-side.
type APIError struct {
	Code       string
	Message    string
	HTTPStatus int
	GRPCCode   codes.Code
	Err        error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an APIError with the same code.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrInvalidCredentials        = NewErrInvalidCredentials()
	ErrMissingAuthorizationToken = NewErrMissingAuthorizationToken()
	ErrInvalidAuthorizationToken = NewErrInvalidAuthorizationToken()
	ErrInvalidInput              = &APIError{Code: CodeInvalidInput}
	ErrTokenExpired              = NewErrTokenExpired()
	ErrInvalidOrExpiredToken     = NewErrInvalidOrExpiredToken()
	ErrUserNotFound              = NewErrUserNotFound()
	ErrEmailIsTaken              = &APIError{Code: CodeEmailIsTaken}
	ErrForbidden                 = NewErrForbidden()
	ErrInternal                  = &APIError{Code: CodeInternal}
)

func NewErrInvalidCredentials() *APIError {
	return &APIError{
		Code:       CodeInvalidCredentials,
		Message:    "Invalid credentials",
		HTTPStatus: http.StatusUnauthorized,
		GRPCCode:   codes.Unauthenticated,
	}
}

func NewErrMissingAuthorizationToken() *APIError {
	return &APIError{
		Code:       CodeMissingAuthorizationToken,
		Message:    "authorization token is missing",
		HTTPStatus: http.StatusUnauthorized,
		GRPCCode:   codes.Unauthenticated,
	}
}

func NewErrInvalidAuthorizationToken() *APIError {
	return &APIError{
		Code:       CodeInvalidAuthorizationToken,
		Message:    "authorization token is invalid",
		HTTPStatus: http.StatusUnauthorized,
		GRPCCode:   codes.Unauthenticated,
	}
}

// NewErrInvalidInput wraps a validation failure. The cause message is shown
// to the caller, so it must never contain secrets.
func NewErrInvalidInput(cause error) *APIError {
	msg := "invalid input"
	if cause != nil {
		msg = cause.Error()
	}
	return &APIError{
		Code:       CodeInvalidInput,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
		GRPCCode:   codes.InvalidArgument,
		Err:        cause,
	}
}

func NewErrTokenExpired() *APIError {
	return &APIError{
		Code:       CodeTokenExpired,
		Message:    "Token has expired.",
		HTTPStatus: http.StatusBadRequest,
		GRPCCode:   codes.InvalidArgument,
	}
}

func NewErrInvalidOrExpiredToken() *APIError {
	return &APIError{
		Code:       CodeInvalidOrExpiredToken,
		Message:    "Invalid or expired token.",
		HTTPStatus: http.StatusNotFound,
		GRPCCode:   codes.NotFound,
	}
}

func NewErrUserNotFound() *APIError {
	return &APIError{
		Code:       CodeUserNotFound,
		Message:    "User not found",
		HTTPStatus: http.StatusNotFound,
		GRPCCode:   codes.NotFound,
	}
}

func NewErrEmailIsTaken(email string) *APIError {
	return &APIError{
		Code:       CodeEmailIsTaken,
		Message:    fmt.Sprintf("email %s is already taken", email),
		HTTPStatus: http.StatusConflict,
		GRPCCode:   codes.AlreadyExists,
	}
}

func NewErrForbidden() *APIError {
	return &APIError{
		Code:       CodeForbidden,
		Message:    "insufficient permissions",
		HTTPStatus: http.StatusForbidden,
		GRPCCode:   codes.PermissionDenied,
	}
}

// NewErrInternalServerError hides err from the caller but keeps it for logs.
func NewErrInternalServerError(err error) *APIError {
	return &APIError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		GRPCCode:   codes.Internal,
		Err:        err,
	}
}

// From returns err as an APIError, converting anything unknown into an
// internal server error.
func From(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewErrInternalServerError(err)
}
