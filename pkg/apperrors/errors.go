package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind defines the closed set of error categories the core reports
type Kind string

const (
	KindNotFound       Kind = "NOT_FOUND"
	KindUnauthorized   Kind = "UNAUTHORIZED"
	KindConflict       Kind = "CONFLICT"
	KindValidation     Kind = "VALIDATION"
	KindSchemaDegraded Kind = "SCHEMA_DEGRADED"
	KindNetwork        Kind = "NETWORK"
	KindInternal       Kind = "INTERNAL"
)

// AppError is the error type returned across package boundaries
type AppError struct {
	Kind    Kind
	Message string
	// Details carries one entry per violation for validation errors.
	Details []string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Kind: KindNotFound, Message: message}
}

// NewUnauthorized creates an unauthorized error
func NewUnauthorized(message string) error {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// NewConflict creates a conflict error
func NewConflict(message string, err error) error {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

// NewValidation creates a validation error listing every violation
func NewValidation(message string, details ...string) error {
	return &AppError{Kind: KindValidation, Message: message, Details: details}
}

// NewSchemaDegraded creates an error signalling that relational joins are unavailable
func NewSchemaDegraded(message string, err error) error {
	return &AppError{Kind: KindSchemaDegraded, Message: message, Err: err}
}

// NewNetwork creates a transport error
func NewNetwork(message string, err error) error {
	return &AppError{Kind: KindNetwork, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

// Wrap adds context to err while preserving its kind.
// Errors that are not AppErrors become internal errors.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Kind:    appErr.Kind,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Details: appErr.Details,
			Err:     appErr.Err,
		}
	}
	return NewInternal(message, err)
}

// KindOf returns the kind of err, or "" when err is not an AppError
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// Is reports whether err is an AppError of the given kind
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return Is(err, KindNotFound) }

// IsUnauthorized checks if an error is an unauthorized error
func IsUnauthorized(err error) bool { return Is(err, KindUnauthorized) }

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool { return Is(err, KindConflict) }

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return Is(err, KindValidation) }

// IsSchemaDegraded checks if an error reports missing relational joins
func IsSchemaDegraded(err error) bool { return Is(err, KindSchemaDegraded) }

// IsNetwork checks if an error is a transport error
func IsNetwork(err error) bool { return Is(err, KindNetwork) }
