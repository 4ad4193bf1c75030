package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the forecasting core. Handlers map these onto HTTP
// statuses; nothing in the core retries on them.
var (
	// ErrInsufficientData: zero usable months of history for the request.
	ErrInsufficientData = errors.New("insufficient historical data")

	// ErrModelNotLoaded: no active model artifact is bound for inference.
	// The service should not have started without one.
	ErrModelNotLoaded = errors.New("no active model artifact loaded")

	// ErrFeatureSchema: the feature vector does not match the active
	// artifact's schema. Fatal configuration error.
	ErrFeatureSchema = errors.New("feature vector does not match model schema")

	// ErrNotFound: unknown or malformed prediction identifier.
	ErrNotFound = errors.New("prediction not found")

	// ErrNoData: accuracy aggregation over an empty reconciled set.
	ErrNoData = errors.New("no reconciled predictions match the filter")

	// ErrTrainingInProgress: a training run is already executing; training
	// is a single-flight batch job.
	ErrTrainingInProgress = errors.New("model training already in progress")
)

// ValidationError reports bad caller input. Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DataSourceError wraps any history-provider failure: unreachable upstream,
// non-2xx response, or malformed payload. Retry policy belongs to the caller.
type DataSourceError struct {
	Err error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("history provider: %v", e.Err)
}

func (e *DataSourceError) Unwrap() error { return e.Err }

// PersistenceError wraps a prediction-store failure. No partial writes occur
// behind it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("prediction store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
