package model

import "errors"

// Error kinds returned by the auth core. The HTTP boundary decides the wire
// status for each kind.
var (
	ErrConflict         = errors.New("conflict")
	ErrValidationFailed = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
)

// Storage-level sentinels.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrTokenNotFound     = errors.New("token not found")

	// ErrTokenConflict means a conditional token replace found the row no
	// longer holds the expected token string.
	ErrTokenConflict = errors.New("token was replaced concurrently")
)

// Token decode failures.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// AuthError carries one error kind and one human-readable message.
type AuthError struct {
	Kind    error
	Message string
	Field   string
}

func (e *AuthError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return e.Kind.Error() + ": " + e.Message + " (" + e.Field + ")"
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Kind
}

func NewConflict(message string) *AuthError {
	return &AuthError{Kind: ErrConflict, Message: message}
}

func NewValidationFailed(field string, message string) *AuthError {
	return &AuthError{Kind: ErrValidationFailed, Message: message, Field: field}
}

func NewNotFound(message string) *AuthError {
	return &AuthError{Kind: ErrNotFound, Message: message}
}

func NewUnauthorized(message string) *AuthError {
	return &AuthError{Kind: ErrUnauthorized, Message: message}
}

func NewForbidden(message string) *AuthError {
	return &AuthError{Kind: ErrForbidden, Message: message}
}
