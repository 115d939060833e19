// Package apperrors defines the typed failures returned by the order services.
//
// Every failure carries a Kind so transports can map it to a response without
// inspecting error strings.
package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindInvalidInput      Kind = "invalid_input"
	KindInsufficientStock Kind = "insufficient_stock"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInvalidStatus     Kind = "invalid_status"
	KindInvalidTransition Kind = "invalid_transition"
	KindStoreUnavailable  Kind = "store_unavailable"
)

// Error is the concrete error type used across the services.
type Error struct {
	Kind    Kind
	Message string
	// ProductID is set for stock failures so the caller knows which line failed.
	ProductID int64
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, which lets the
// sentinels below be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

var (
	ErrInvalidInput      = &Error{Kind: KindInvalidInput}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrInvalidStatus     = &Error{Kind: KindInvalidStatus}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
)

func InvalidInput(format string, args ...interface{}) *Error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(productID int64, requested, available int) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for product %d (requested: %d, available: %d)", productID, requested, available),
		ProductID: productID,
	}
}

func NotFound(entity string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s with ID %d not found", entity, id)}
}

func InvalidStatus(status string) *Error {
	return &Error{Kind: KindInvalidStatus, Message: fmt.Sprintf("invalid order status: %q", status)}
}

func InvalidTransition(from, to string) *Error {
	return &Error{Kind: KindInvalidTransition, Message: fmt.Sprintf("cannot move order from %s to %s", from, to)}
}

func Conflict(message string, err error) *Error {
	return &Error{Kind: KindConflict, Message: message, Err: err}
}

func StoreUnavailable(op string, err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: fmt.Sprintf("%s failed", op), Err: err}
}

// KindOf returns the kind carried by err. Errors that were never classified are
// treated as store failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindStoreUnavailable
}

// IsKind is shorthand for KindOf(err) == kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ProductOf returns the product named by a stock failure, or 0.
func ProductOf(err error) int64 {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.ProductID
	}
	return 0
}

// Wrap keeps already classified errors intact and turns anything else into a
// store failure for op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	return StoreUnavailable(op, err)
}

// Canceled reports whether err came from a cancelled or expired context.
func Canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
