package collector

import (
	"errors"
	"fmt"
)

var (
	ErrRunNotStarted          = errors.New("run has not been started")
	ErrRunAlreadyStarted      = errors.New("run has already been started")
	ErrRunEnded               = errors.New("run has already ended")
	ErrRunNotEnded            = errors.New("run has not ended")
	ErrTestInProgress         = errors.New("a test is still open")
	ErrNoOpenTest             = errors.New("no test is open")
	ErrOutcomeAlreadyRecorded = errors.New("outcome already recorded for the open test")
	ErrOutcomeNotRecorded     = errors.New("no outcome recorded for the open test")
	ErrInvalidTestCase        = errors.New("invalid test case")
)

// UsageError reports a hook called out of order
type UsageError struct {
	Op   string // Hook that was called
	Test string // Name of the open test, if any
	Err  error
}

func (e *UsageError) Error() string {
	if e.Test != "" {
		return fmt.Sprintf("collector: %s (test %q): %v", e.Op, e.Test, e.Err)
	}
	return fmt.Sprintf("collector: %s: %v", e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *UsageError) Unwrap() error {
	return e.Err
}

// IsUsageError checks if the error is or wraps a UsageError
func IsUsageError(err error) bool {
	var usageErr *UsageError
	return err != nil && errors.As(err, &usageErr)
}
