package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/pkg/logger"
)

// MultiEmitter fans a notification out to every emitter. All emitters are
// tried; their errors are joined.
type MultiEmitter struct {
	emitters []domain.EventEmitter
}

// NewMultiEmitter skips nil emitters
func NewMultiEmitter(emitters ...domain.EventEmitter) *MultiEmitter {
	m := &MultiEmitter{}
	for _, e := range emitters {
		if e != nil {
			m.emitters = append(m.emitters, e)
		}
	}
	return m
}

// Add appends an emitter
func (m *MultiEmitter) Add(e domain.EventEmitter) {
	if e != nil {
		m.emitters = append(m.emitters, e)
	}
}

// Len returns the number of emitters
func (m *MultiEmitter) Len() int {
	return len(m.emitters)
}

func (m *MultiEmitter) Emit(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, e := range m.emitters {
		if err := e.Emit(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", e, err))
		}
	}
	return errors.Join(errs...)
}

// LogEmitter records job notifications in the job log category.
// Raw output lines are skipped; the pump writes those to the process log.
type LogEmitter struct {
	multiLogger *logger.MultiLogger
}

// NewLogEmitter creates a LogEmitter
func NewLogEmitter(multiLogger *logger.MultiLogger) *LogEmitter {
	return &LogEmitter{multiLogger: multiLogger}
}

func (e *LogEmitter) Emit(_ context.Context, n domain.Notification) error {
	switch n.Name {
	case domain.NotifyStdout, domain.NotifyStderr:
		return nil
	}

	fields := []zap.Field{zap.String("job_id", n.JobID)}
	if n.Job != nil {
		fields = append(fields,
			zap.String("status", string(n.Job.Status)),
			zap.String("title", n.Job.Title))
		if n.Job.Progress != nil {
			fields = append(fields, zap.Float64("progress", *n.Job.Progress))
		}
		if n.Job.FailureReason != "" {
			fields = append(fields, zap.String("failure_reason", n.Job.FailureReason))
		}
	}
	if n.Success != nil {
		fields = append(fields, zap.Bool("success", *n.Success))
	}
	if n.Message != "" {
		fields = append(fields, zap.String("detail", n.Message))
	}

	e.multiLogger.LogJobEvent(n.Name, fields...)
	return nil
}
