package models

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrNotFound     = errors.New("not found")
	ErrNetwork      = errors.New("network error")
	ErrServer       = errors.New("server error")
	ErrNotConfirmed = errors.New("action not confirmed")
)

// Conflict reasons, matched in addition to ErrConflict.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockLimit        = errors.New("stock limit exceeded")
)

// Error is the single error type raised by the inventory layers.
type Error struct {
	Kind    error
	Reason  error
	Op      string
	Message string
	Fields  map[string]string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return fmt.Sprintf("%v: %s", e.Kind, msg)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches both the kind and the optional reason.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	return target == e.Kind || (e.Reason != nil && target == e.Reason)
}

// NewValidationError builds a client-side validation failure.
func NewValidationError(op, message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Op: op, Message: message, Fields: fields}
}

// NewConflictError builds a conflict with an optional refining reason.
func NewConflictError(op string, reason error, message string) *Error {
	return &Error{Kind: ErrConflict, Reason: reason, Op: op, Message: message}
}

// UserMessage returns the text to show in a notification: the carried
// message when there is one, the fallback otherwise.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

// FieldErrors returns the per-field validation messages, if any.
func FieldErrors(err error) map[string]string {
	var e *Error
	if errors.As(err, &e) {
		return e.Fields
	}
	return nil
}
