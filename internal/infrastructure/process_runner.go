package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/pkg/logger"
)

// SidecarRunner starts the sldl binary as a child process
type SidecarRunner struct {
	config      domain.SidecarConfig
	multiLogger *logger.MultiLogger
}

// NewSidecarRunner creates a runner for the configured sldl binary
func NewSidecarRunner(config domain.SidecarConfig, multiLogger *logger.MultiLogger) *SidecarRunner {
	return &SidecarRunner{
		config:      config,
		multiLogger: multiLogger,
	}
}

// Start spawns sldl for query. The process is bound to ctx, so callers pass
// a context that outlives the request that triggered the job.
func (r *SidecarRunner) Start(ctx context.Context, query string, options map[string]string) (domain.Process, error) {
	args := BuildSldlArgs(r.config, query, options)

	r.multiLogger.LogJobEvent("sidecar_command",
		zap.String("query", query),
		zap.String("command", RedactedCommandLine(r.config.Binary, args)))

	cmd := exec.CommandContext(ctx, r.config.Binary, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, r.spawnError(fmt.Errorf("failed to get stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, r.spawnError(fmt.Errorf("failed to get stderr pipe: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, r.spawnError(err)
	}

	return &sidecarProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

func (r *SidecarRunner) spawnError(err error) error {
	r.multiLogger.LogAppError("Failed to start sidecar",
		zap.String("binary", r.config.Binary),
		zap.Error(err))
	return &domain.ProcessSpawnError{Binary: r.config.Binary, Err: err}
}

// sidecarProcess adapts exec.Cmd to domain.Process
type sidecarProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (p *sidecarProcess) Stdout() io.Reader { return p.stdout }

func (p *sidecarProcess) Stderr() io.Reader { return p.stderr }

// Wait reaps the child. A signal-terminated process has no exit code.
func (p *sidecarProcess) Wait() domain.ExitStatus {
	err := p.cmd.Wait()
	if err == nil {
		code := 0
		return domain.ExitStatus{Code: &code}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return domain.ExitStatus{Code: &code, Err: err}
		}
	}
	return domain.ExitStatus{Err: err}
}

// Kill terminates the child; an already reaped process is not an error
func (p *sidecarProcess) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
