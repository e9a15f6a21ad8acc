package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the type of stage error
type ErrorType string

const (
	ErrorTypeExecution    ErrorType = "execution"
	ErrorTypeCancellation ErrorType = "cancellation"
	ErrorTypeTimeout      ErrorType = "timeout"
	ErrorTypeInvalidState ErrorType = "invalid_state"
)

// ErrRunInProgress is returned when a second run starts before the first ends
var ErrRunInProgress = errors.New("analysis run already in progress")

// StageError names the stage a run failed in
type StageError struct {
	Type  ErrorType `json:"type"`
	Stage string    `json:"stage"`
	Cause error     `json:"-"`
}

// Error implements the error interface
func (e *StageError) Error() string {
	if e == nil {
		return "unknown stage error"
	}
	if e.Cause == nil {
		return fmt.Sprintf("stage %s: %s", e.Stage, e.Type)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

// Unwrap returns the underlying error
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewExecutionError wraps a stage failure. Context errors are classified as
// cancellation or timeout.
func NewExecutionError(stage string, cause error) *StageError {
	t := ErrorTypeExecution
	switch {
	case errors.Is(cause, context.Canceled):
		t = ErrorTypeCancellation
	case errors.Is(cause, context.DeadlineExceeded):
		t = ErrorTypeTimeout
	}
	return &StageError{Type: t, Stage: stage, Cause: cause}
}

// NewCancellationError reports a run stopped before stage
func NewCancellationError(stage string, cause error) *StageError {
	t := ErrorTypeCancellation
	if errors.Is(cause, context.DeadlineExceeded) {
		t = ErrorTypeTimeout
	}
	return &StageError{Type: t, Stage: stage, Cause: cause}
}

// NewInvalidStateError reports a stage whose inputs are missing
func NewInvalidStateError(stage, missing string) *StageError {
	return &StageError{
		Type:  ErrorTypeInvalidState,
		Stage: stage,
		Cause: fmt.Errorf("missing %s from earlier stages", missing),
	}
}

// FailedStage returns the stage named by err, if any
func FailedStage(err error) (string, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// IsCancellation reports whether err stopped a run through its context
func IsCancellation(err error) bool {
	var se *StageError
	if errors.As(err, &se) {
		return se.Type == ErrorTypeCancellation || se.Type == ErrorTypeTimeout
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
