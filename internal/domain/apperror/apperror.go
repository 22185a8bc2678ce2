// Package apperror defines the coded error taxonomy shared by every layer of
// the credit service. Errors compare by Code, so a clone carrying a specific
// message or wrapped cause still satisfies errors.Is against its sentinel.
package apperror

import (
	"errors"
	"fmt"
	"maps"
)

var (
	ErrValidation          = New("VALIDATION_ERROR", "invalid request")
	ErrInvalidAmount       = New("INVALID_AMOUNT", "invalid payment amount")
	ErrNotFound            = New("NOT_FOUND", "resource not found")
	ErrConcurrencyConflict = New("CONCURRENCY_CONFLICT", "record was modified concurrently")
	ErrPersistence         = New("PERSISTENCE_ERROR", "storage unavailable")
	ErrStockInsufficient   = New("STOCK_INSUFFICIENT", "insufficient stock")
)

type AppError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError with the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Withf returns a copy carrying a formatted message.
func (e *AppError) Withf(format string, args ...any) *AppError {
	clone := e.clone()
	clone.Message = fmt.Sprintf(format, args...)
	return clone
}

// WithDetails returns a copy with details merged over the existing ones.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	clone := e.clone()
	if clone.Details == nil {
		clone.Details = make(map[string]any, len(details))
	}
	maps.Copy(clone.Details, details)
	return clone
}

// WithError returns a copy wrapping err.
func (e *AppError) WithError(err error) *AppError {
	clone := e.clone()
	clone.Err = err
	return clone
}

func (e *AppError) clone() *AppError {
	c := *e
	if e.Details != nil {
		c.Details = maps.Clone(e.Details)
	}
	return &c
}

// AsAppError extracts the outermost AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetriable reports whether re-invoking the operation may succeed without
// changing its inputs.
func IsRetriable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrPersistence)
}
