// Package apperr defines the error kinds returned by the inventory core.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindValidation         Kind = "validation_error"
	KindInsufficientStock  Kind = "insufficient_stock"
	KindInvalidState       Kind = "invalid_state"
	KindConflict           Kind = "conflict"
	KindTransactionFailure Kind = "transaction_failure"
)

// Sentinels usable with errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation         = &Error{Kind: KindValidation, Message: "validation failed"}
	ErrInsufficientStock  = &Error{Kind: KindInsufficientStock, Message: "insufficient stock"}
	ErrInvalidState       = &Error{Kind: KindInvalidState, Message: "invalid state"}
	ErrConflict           = &Error{Kind: KindConflict, Message: "conflict"}
	ErrTransactionFailure = &Error{Kind: KindTransactionFailure, Message: "transaction failed, retry"}
)

type Error struct {
	Kind    Kind
	Message string

	// Available is set on insufficient stock errors.
	Available *decimal.Decimal

	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationFields reports the struct fields that failed validation.
func ValidationFields(message string, fields []string) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

func InsufficientStock(available decimal.Decimal, format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...), Available: &available}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func TransactionFailure(err error, format string, args ...any) *Error {
	return &Error{Kind: KindTransactionFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// StatusCode maps an error to the HTTP status used by the request layer.
func StatusCode(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindValidation, KindInvalidState:
		return fiber.StatusBadRequest
	case KindInsufficientStock:
		return fiber.StatusUnprocessableEntity
	case KindConflict, KindTransactionFailure:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
