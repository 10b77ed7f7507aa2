package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so the HTTP layer can pick a status code.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION_ERROR"
	KindConflict            ErrorKind = "CONFLICT"
	KindAuth                ErrorKind = "AUTH_ERROR"
	KindForbidden           ErrorKind = "FORBIDDEN"
	KindNotFound            ErrorKind = "NOT_FOUND"
	KindNotFoundOrForbidden ErrorKind = "NOT_FOUND_OR_FORBIDDEN"
	KindDatabase            ErrorKind = "DATABASE_ERROR"
	KindInternal            ErrorKind = "INTERNAL_ERROR"
)

// AppError is the error type returned by every service operation.
type AppError struct {
	Kind    ErrorKind
	Message string
	// Messages holds every failed check for validation errors; Message is the first.
	Messages []string
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(messages ...string) *AppError {
	e := &AppError{Kind: KindValidation, Messages: messages}
	if len(messages) > 0 {
		e.Message = messages[0]
	}
	return e
}

func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message}
}

func NewAuthError(message string) *AppError {
	return &AppError{Kind: KindAuth, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewNotFoundOrForbiddenError(message string) *AppError {
	return &AppError{Kind: KindNotFoundOrForbidden, Message: message}
}

// NewDatabaseError wraps a query failure; the message is safe to show to clients.
func NewDatabaseError(err error) *AppError {
	return &AppError{Kind: KindDatabase, Message: "Database error", Err: err}
}

func NewInternalError(err error) *AppError {
	return &AppError{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// KindOf returns the kind of err, treating anything that is not an AppError as internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
