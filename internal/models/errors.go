package models

import (
	"errors"
	"fmt"
)

// ErrorKind is a machine-readable classification of a domain error
type ErrorKind string

const (
	ErrPastDate                 ErrorKind = "past_date"
	ErrScheduleUnavailable      ErrorKind = "schedule_unavailable"
	ErrInsufficientCapacity     ErrorKind = "insufficient_capacity"
	ErrNotModifiable            ErrorKind = "not_modifiable"
	ErrNotCancellable           ErrorKind = "not_cancellable"
	ErrAlreadyPaid              ErrorKind = "already_paid"
	ErrNotRefundable            ErrorKind = "not_refundable"
	ErrConcurrencyConflict      ErrorKind = "concurrency_conflict"
	ErrUnsupportedPaymentMethod ErrorKind = "unsupported_payment_method"
	ErrNotFound                 ErrorKind = "not_found"
	ErrInvalidInput             ErrorKind = "invalid_input"
)

// DomainError is a recoverable, user-facing validation failure.
// Lifecycle operations never leave partial mutations behind one of these.
type DomainError struct {
	Kind    ErrorKind
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Retryable reports whether the caller may retry the same request.
// Only lock/serialization conflicts are worth an automatic retry.
func (e *DomainError) Retryable() bool {
	return e.Kind == ErrConcurrencyConflict
}

// NewDomainError creates a domain error with a formatted message
func NewDomainError(kind ErrorKind, format string, args ...interface{}) *DomainError {
	return &DomainError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsDomainError extracts a DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr, true
	}
	return nil, false
}

// ErrInsufficientCapacityf builds the capacity error with the remaining count
func ErrInsufficientCapacityf(remaining int) *DomainError {
	return NewDomainError(ErrInsufficientCapacity, "only %d spots remain", remaining)
}
