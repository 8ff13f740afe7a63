package engine

import (
	"fmt"
)

// FailureError marks an assertion failure inside a case
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return e.Message
}

// Failf returns a *FailureError with a formatted message
func Failf(format string, args ...interface{}) error {
	return &FailureError{Message: fmt.Sprintf(format, args...)}
}

// SkipError marks a case that decided not to run
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string {
	return "skipped: " + e.Reason
}

// Skip returns a *SkipError with the given reason
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// PanicError carries a recovered panic and the goroutine stack at the time
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}
