package services

import (
	"errors"
	"fmt"

	"aadhaarcli/internal/pipeline"
	"aadhaarcli/internal/store"
)

// Analysis service errors
var (
	// ErrNoResult is returned by queries made before the first completed run
	ErrNoResult = errors.New("no analysis result available")

	// ErrRunInProgress is returned when a run is requested while one is executing
	ErrRunInProgress = pipeline.ErrRunInProgress

	// ErrRunNotFound is returned for an unknown run ID
	ErrRunNotFound = store.ErrRunNotFound

	// ErrInvalidInput is returned for query parameters that fail validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownFraudType is returned when filtering by a fraud type that does not exist
	ErrUnknownFraudType = fmt.Errorf("%w: unknown fraud type", ErrInvalidInput)

	// ErrHistoryDisabled is returned by history writes when no run store is configured
	ErrHistoryDisabled = errors.New("run history is disabled")

	// ErrExportFailed wraps report export failures at the end of a run
	ErrExportFailed = errors.New("export results")

	// ErrSaveFailed wraps run history write failures
	ErrSaveFailed = errors.New("save run")
)
