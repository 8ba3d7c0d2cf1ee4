package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when an operation names an unknown job id
	ErrJobNotFound = errors.New("job not found")

	// ErrJobExists is returned when adding a job whose id is already registered
	ErrJobExists = errors.New("job already exists")

	// ErrEmptyQuery is returned when a job is started without a query
	ErrEmptyQuery = errors.New("query must not be empty")
)

// ProcessSpawnError reports that the sidecar could not be started.
// The job is never registered when this error is returned.
type ProcessSpawnError struct {
	Binary string
	Err    error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Binary, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}
