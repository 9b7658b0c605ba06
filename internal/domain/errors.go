package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies application errors so transports can decide how to report them.
type ErrorKind string

const (
	KindValidation    ErrorKind = "validation"
	KindNotFound      ErrorKind = "not_found"
	KindPersistence   ErrorKind = "persistence"
	KindConfiguration ErrorKind = "configuration"
)

// AppError standardizes application errors.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
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

func NewValidationError(format string, args ...any) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func NewNotFoundError(resource, id string) error {
	return &AppError{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id)}
}

// NewPersistenceError wraps a storage failure; op names the operation that failed.
func NewPersistenceError(op string, err error) error {
	return &AppError{Kind: KindPersistence, Message: op, Err: err}
}

func NewConfigurationError(format string, args ...any) error {
	return &AppError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first AppError in err's chain, or "" when there is none.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
