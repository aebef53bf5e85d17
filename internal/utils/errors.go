package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks rejected detector or tracker settings.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInsufficientHistory marks operations that need more samples than are available.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrOrdering marks an exit without a matching enter, or an exit before its enter.
	ErrOrdering = errors.New("session ordering violation")
	// ErrInvalidSample marks a negative or non-finite latency.
	ErrInvalidSample = errors.New("invalid sample")
	// ErrOutOfOrder marks a sample whose sequence number does not advance the series.
	ErrOutOfOrder = errors.New("sample out of order")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
