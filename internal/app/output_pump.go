package app

import (
	"bufio"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

const (
	streamStdout = "stdout"
	streamStderr = "stderr"

	// maxLineBytes bounds a single output line; longer lines are dropped
	maxLineBytes = 1024 * 1024

	stderrPrefix = "ERROR: "
)

type outputLine struct {
	stream string
	text   string
}

// OutputPump drives one sidecar from spawn to exit: it reads both output
// streams, feeds stdout through the classifier and reducer, and finishes
// the job when the process exits.
type OutputPump struct {
	*jobServices

	jobID  string
	proc   domain.Process
	onExit func(jobID string)
}

// Run blocks until the process exits and its output is fully consumed
func (p *OutputPump) Run(ctx context.Context) {
	if p.onExit != nil {
		defer p.onExit(p.jobID)
	}

	lines := make(chan outputLine, 64)
	var readers sync.WaitGroup
	readers.Add(2)
	go p.scan(p.proc.Stdout(), streamStdout, lines, &readers)
	go p.scan(p.proc.Stderr(), streamStderr, lines, &readers)
	go func() {
		readers.Wait()
		close(lines)
	}()

	// Lines of each stream are applied strictly in arrival order
	for line := range lines {
		if line.stream == streamStdout {
			p.handleStdout(ctx, line.text)
		} else {
			p.handleStderr(ctx, line.text)
		}
	}

	p.handleExit(ctx, p.proc.Wait())
}

// scan forwards lines from r until EOF. A line longer than maxLineBytes is
// dropped whole and reading resumes at the next line.
func (p *OutputPump) scan(r io.Reader, stream string, out chan<- outputLine, wg *sync.WaitGroup) {
	defer wg.Done()
	if r == nil {
		return
	}

	reader := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	overlong := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				p.multiLogger.LogAppError("Failed to read sidecar output",
					zap.String("job_id", p.jobID),
					zap.String("stream", stream),
					zap.Error(err))
			}
			return
		}

		if !overlong {
			if len(line)+len(chunk) > maxLineBytes {
				overlong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if overlong {
			p.multiLogger.LogAppError("Dropped overlong sidecar output line",
				zap.String("job_id", p.jobID),
				zap.String("stream", stream),
				zap.Int("max_bytes", maxLineBytes))
		} else {
			out <- outputLine{stream: stream, text: string(line)}
		}
		line = line[:0]
		overlong = false
	}
}

func (p *OutputPump) handleStdout(ctx context.Context, line string) {
	p.metrics.RecordLine(streamStdout)
	p.multiLogger.WriteProcessLine(p.jobID, streamStdout, line)

	ev, classified := p.classify(line)
	if classified {
		p.metrics.RecordEvent(string(ev.Kind))
	}

	var snapshot domain.Job
	applied := false
	err := p.registry.Mutate(p.jobID, func(j *domain.Job) {
		j.AppendLog(line)
		if classified {
			next, ok := domain.Reduce(*j, ev)
			if ok {
				next.UpdatedAt = time.Now()
				*j = next
			}
			applied = ok
		}
		if applied {
			snapshot = j.Clone()
		}
	})

	p.emit(ctx, domain.LineNotification(domain.NotifyStdout, p.jobID, line))
	if err != nil {
		return
	}
	if applied {
		p.emit(ctx, domain.JobNotification(domain.NotificationForStatus(snapshot.Status), snapshot))
	}
}

func (p *OutputPump) handleStderr(ctx context.Context, line string) {
	p.metrics.RecordLine(streamStderr)
	p.multiLogger.WriteProcessLine(p.jobID, streamStderr, line)

	_ = p.registry.Mutate(p.jobID, func(j *domain.Job) {
		j.AppendLog(stderrPrefix + line)
	})
	p.emit(ctx, domain.LineNotification(domain.NotifyStderr, p.jobID, line))
}

func (p *OutputPump) handleExit(ctx context.Context, status domain.ExitStatus) {
	p.metrics.RecordExited()

	fields := []zap.Field{zap.String("job_id", p.jobID), zap.Bool("success", status.Success())}
	if status.Code != nil {
		fields = append(fields, zap.Int("exit_code", *status.Code))
	}
	if status.Err != nil {
		fields = append(fields, zap.NamedError("wait_error", status.Err))
	}
	p.multiLogger.LogJobEvent("sidecar_exited", fields...)

	p.emit(ctx, domain.TerminatedNotification(p.jobID, status.Success()))

	var snapshot domain.Job
	applied := false
	err := p.registry.Mutate(p.jobID, func(j *domain.Job) {
		next, ok := domain.Reduce(*j, domain.ProcessExited(status.Code))
		if ok {
			next.UpdatedAt = time.Now()
			*j = next
		}
		applied = ok
		snapshot = j.Clone()
	})

	if err == nil {
		if applied {
			p.emit(ctx, domain.JobNotification(domain.NotificationForStatus(snapshot.Status), snapshot))
		}
		if snapshot.IsTerminal() {
			p.metrics.RecordFinished(string(snapshot.Status), snapshot.StartedAt)
			p.multiLogger.LogJobEvent("job_finished",
				zap.String("job_id", p.jobID),
				zap.String("status", string(snapshot.Status)),
				zap.String("completion", string(snapshot.Completion)))
			if snapshot.Status == domain.StatusFailed {
				p.multiLogger.LogAppError("Job failed",
					zap.String("job_id", p.jobID),
					zap.String("query", snapshot.Query),
					zap.String("reason", snapshot.FailureReason))
			}
		}
	}

	p.cleanup()

	if err == nil {
		p.archive(snapshot)
	}
}

// cleanup sweeps sidecar side files; failures are logged only
func (p *OutputPump) cleanup() {
	if p.cleaner == nil || !p.cleanupEnabled || p.downloadsPath == "" {
		return
	}
	if _, err := p.cleaner.Clean(p.downloadsPath); err != nil {
		p.logger.Warn("Side file cleanup incomplete",
			zap.String("job_id", p.jobID),
			zap.Error(err))
	}
}
