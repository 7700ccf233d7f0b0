package domain

import (
	"errors"
	"net/http"
)

// ErrorKind identifies a class of failure returned by the auth service
type ErrorKind string

const (
	KindValidationFailed    ErrorKind = "ValidationFailed"
	KindUserExists          ErrorKind = "UserExists"
	KindUserNotFound        ErrorKind = "UserNotFound"
	KindInvalidCredentials  ErrorKind = "InvalidCredentials"
	KindNotVerified         ErrorKind = "NotVerified"
	KindAlreadyVerified     ErrorKind = "AlreadyVerified"
	KindInvalidCode         ErrorKind = "InvalidCode"
	KindCodeExpired         ErrorKind = "CodeExpired"
	KindInvalidToken        ErrorKind = "InvalidToken"
	KindTokenExpired        ErrorKind = "TokenExpired"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindBlocked             ErrorKind = "Blocked"
	KindDeletedAccount      ErrorKind = "DeletedAccount"
	KindAlreadyBlacklisted  ErrorKind = "AlreadyBlacklisted"
	KindForgedRequest       ErrorKind = "ForgedRequest"
	KindDeliveryError       ErrorKind = "DeliveryError"
	KindConstraintViolation ErrorKind = "ConstraintViolation"
	KindInternal            ErrorKind = "Internal"
)

var kindStatus = map[ErrorKind]int{
	KindValidationFailed:    http.StatusBadRequest,
	KindUserExists:          http.StatusConflict,
	KindUserNotFound:        http.StatusNotFound,
	KindInvalidCredentials:  http.StatusUnauthorized,
	KindNotVerified:         http.StatusForbidden,
	KindAlreadyVerified:     http.StatusBadRequest,
	KindInvalidCode:         http.StatusBadRequest,
	KindCodeExpired:         http.StatusBadRequest,
	KindInvalidToken:        http.StatusUnauthorized,
	KindTokenExpired:        http.StatusUnauthorized,
	KindUnauthorized:        http.StatusUnauthorized,
	KindBlocked:             http.StatusForbidden,
	KindDeletedAccount:      http.StatusForbidden,
	KindAlreadyBlacklisted:  http.StatusConflict,
	KindForgedRequest:       http.StatusForbidden,
	KindDeliveryError:       http.StatusInternalServerError,
	KindConstraintViolation: http.StatusConflict,
	KindInternal:            http.StatusInternalServerError,
}

// Status returns the recommended HTTP status for the kind
func (k ErrorKind) Status() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is an auth service failure. Every kind except Internal is
// operational: its message is safe to show to the caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Status returns the recommended HTTP status
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Operational reports whether the message may be exposed to the caller
func (e *Error) Operational() bool {
	return e.Kind != KindInternal
}

// Wrap returns a copy of the sentinel carrying the underlying cause
func (e *Error) Wrap(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// Sentinel errors
var (
	ErrValidationFailed    = &Error{Kind: KindValidationFailed, Message: "Invalid request data"}
	ErrUserExists          = &Error{Kind: KindUserExists, Message: "User already exists"}
	ErrUserNotFound        = &Error{Kind: KindUserNotFound, Message: "User does not exist"}
	ErrInvalidCredentials  = &Error{Kind: KindInvalidCredentials, Message: "Invalid credentials"}
	ErrNotVerified         = &Error{Kind: KindNotVerified, Message: "Email not verified. Please verify your email to continue"}
	ErrAlreadyVerified     = &Error{Kind: KindAlreadyVerified, Message: "User already verified"}
	ErrInvalidCode         = &Error{Kind: KindInvalidCode, Message: "Invalid code"}
	ErrCodeExpired         = &Error{Kind: KindCodeExpired, Message: "Code expired"}
	ErrInvalidToken        = &Error{Kind: KindInvalidToken, Message: "Invalid token"}
	ErrTokenExpired        = &Error{Kind: KindTokenExpired, Message: "Token expired"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "Not authorized"}
	ErrBlocked             = &Error{Kind: KindBlocked, Message: "Your account has been blocked"}
	ErrDeletedAccount      = &Error{Kind: KindDeletedAccount, Message: "Your account has been deleted"}
	ErrAlreadyBlacklisted  = &Error{Kind: KindAlreadyBlacklisted, Message: "Token already blacklisted"}
	ErrForgedRequest       = &Error{Kind: KindForgedRequest, Message: "Token does not belong to this user"}
	ErrDeliveryError       = &Error{Kind: KindDeliveryError, Message: "Failed to send email"}
	ErrConstraintViolation = &Error{Kind: KindConstraintViolation, Message: "Duplicate field value"}
	ErrInternal            = &Error{Kind: KindInternal, Message: "Something went very wrong!"}
)

// NewValidationError builds a ValidationFailed error with a specific message
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidationFailed, Message: message}
}

// Internal wraps an unexpected failure
func Internal(err error) *Error {
	return ErrInternal.Wrap(err)
}

// AsError extracts the *Error from err, treating anything else as Internal
func AsError(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}
