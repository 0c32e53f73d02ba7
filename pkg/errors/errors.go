// Package errors defines the sentinel error kinds shared by the estimation
// engine and its commands, plus an AppError wrapper that attaches a message to
// a kind without losing errors.Is matching.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrInvalidInput     = errors.New("invalid input")
	ErrShapeMismatch    = errors.New("set shape mismatch")
	ErrNoLinks          = errors.New("network has no links")
	ErrDeadlineExceeded = errors.New("deadline exceeded")
	ErrSinkUnavailable  = errors.New("result sink unavailable")
)

// Exit codes returned by the commands.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitConfig   = 2
	ExitInput    = 3
	ExitDeadline = 4
)

type AppError struct {
	Err     error
	Message string
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, message string) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: message,
	}
}

func Newf(sentinel error, format string, args ...any) *AppError {
	return &AppError{
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// ExitCode maps an error to the process exit code a command should use.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfig
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNoLinks):
		return ExitInput
	case errors.Is(err, ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return ExitDeadline
	default:
		return ExitFailure
	}
}
