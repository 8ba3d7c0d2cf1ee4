package domain

import (
	"context"
	"io"
)

// ExitStatus describes how the sidecar terminated
type ExitStatus struct {
	// Code is nil when the process ended without an exit code (signal, wait error).
	Code *int
	Err  error
}

// Success reports a clean zero exit
func (s ExitStatus) Success() bool {
	return s.Code != nil && *s.Code == 0
}

// Process is a running sidecar invocation
type Process interface {
	// Stdout streams the process's standard output
	Stdout() io.Reader

	// Stderr streams the process's standard error
	Stderr() io.Reader

	// Wait blocks until the process exits. Callers must drain both
	// streams before calling Wait.
	Wait() ExitStatus

	// Kill terminates the process; killing an exited process is a no-op
	Kill() error
}

// ProcessRunner starts sidecar processes
type ProcessRunner interface {
	// Start spawns the sidecar for a query. A failure is a *ProcessSpawnError.
	Start(ctx context.Context, query string, options map[string]string) (Process, error)
}
