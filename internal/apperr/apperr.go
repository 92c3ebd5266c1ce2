// Package apperr holds the application error taxonomy shared by every layer.
// Internal layers return *Error values; only the HTTP boundary turns them
// into responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind string

const (
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"
	KindTokenExpired           Kind = "TOKEN_EXPIRED"
	KindTokenInvalid           Kind = "TOKEN_INVALID"
	KindInvalidCredentials     Kind = "INVALID_CREDENTIALS"
	KindRefreshFailed          Kind = "REFRESH_FAILED"
	KindInvalidSession         Kind = "INVALID_SESSION"
	KindNotFound               Kind = "NOT_FOUND"
	KindValidation             Kind = "VALIDATION"
	KindConflict               Kind = "CONFLICT"
	KindRateLimited            Kind = "RATE_LIMITED"
	KindSessionCreationFailed  Kind = "SESSION_CREATION_FAILED"
	KindServiceFailure         Kind = "SERVICE_FAILURE"
)

// Error is the single typed application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Status returns the HTTP status code for the error kind.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuthenticationRequired, KindTokenExpired, KindTokenInvalid,
		KindInvalidCredentials, KindRefreshFailed, KindInvalidSession:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable machine-readable code sent to clients. Clients use
// AUTH_002 to decide that a refresh may help.
func (e *Error) Code() string {
	switch e.Kind {
	case KindAuthenticationRequired:
		return "AUTH_001"
	case KindTokenExpired:
		return "AUTH_002"
	case KindTokenInvalid:
		return "AUTH_003"
	case KindInvalidCredentials:
		return "AUTH_004"
	case KindRefreshFailed:
		return "AUTH_005"
	case KindInvalidSession:
		return "AUTH_007"
	case KindNotFound:
		return "NOT_FOUND"
	case KindValidation:
		return "VALIDATION"
	case KindConflict:
		return "CONFLICT"
	case KindRateLimited:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

// Internal reports whether the error is a server-side failure whose detail
// must not reach the caller.
func (e *Error) Internal() bool {
	return e.Status() >= http.StatusInternalServerError
}

// New builds an application error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap classifies an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Common errors.
var (
	ErrAuthenticationRequired = New(KindAuthenticationRequired, "Authentication Required")
	ErrTokenExpired           = New(KindTokenExpired, "Token Expired")
	ErrTokenInvalid           = New(KindTokenInvalid, "Invalid Token")
	ErrInvalidSession         = New(KindInvalidSession, "Invalid Session")
	ErrWrongPassword          = New(KindInvalidCredentials, "Wrong Password")
	ErrRefreshFailed          = New(KindRefreshFailed, "Refresh Token Failed")
	ErrUserNotFound           = New(KindNotFound, "User Not Found")
	ErrSessionCreation        = New(KindSessionCreationFailed, "Failed to create Session")
	ErrRateLimited            = New(KindRateLimited, "Rate limit exceeded")
)

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	var aErr *Error
	if errors.As(err, &aErr) {
		return aErr.Kind == kind
	}
	return false
}

// From returns err as an application error. Anything unclassified becomes a
// generic ServiceFailure that keeps the original error for logging only.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var aErr *Error
	if errors.As(err, &aErr) {
		return aErr
	}
	return Wrap(KindServiceFailure, "Internal server error", err)
}
