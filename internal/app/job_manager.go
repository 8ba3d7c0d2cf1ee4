package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/internal/infrastructure"
	"github.com/yourusername/sldl-jobs/internal/metrics"
	"github.com/yourusername/sldl-jobs/pkg/logger"
)

// ErrManagerStopped is returned when a job is started while the manager is down
var ErrManagerStopped = errors.New("job manager not running")

// LineClassifier maps one stdout line to at most one event
type LineClassifier func(line string) (domain.JobEvent, bool)

// SideFileCleaner removes sidecar metadata files after a run
type SideFileCleaner interface {
	Clean(root string) ([]string, error)
}

// StartRequest describes a new download job
type StartRequest struct {
	Query   string            `json:"query" binding:"required"`
	Options map[string]string `json:"options,omitempty"`
	Title   string            `json:"title,omitempty"`
	Artist  string            `json:"artist,omitempty"`
	Album   string            `json:"album,omitempty"`
}

// JobManagerDeps wires a JobManager. Registry, Runner and Emitter are
// required; the rest may be nil.
type JobManagerDeps struct {
	Registry    domain.JobRegistry
	Runner      domain.ProcessRunner
	Emitter     domain.EventEmitter
	History     domain.HistoryRepository
	Cleaner     SideFileCleaner
	Classify    LineClassifier
	Metrics     *metrics.Collector
	MultiLogger *logger.MultiLogger
	Logger      *zap.Logger
	Config      *domain.Config
}

// jobServices is shared by the manager and its pumps
type jobServices struct {
	registry    domain.JobRegistry
	emitter     domain.EventEmitter
	history     domain.HistoryRepository
	cleaner     SideFileCleaner
	classify    LineClassifier
	metrics     *metrics.Collector
	multiLogger *logger.MultiLogger
	logger      *zap.Logger

	downloadsPath  string
	cleanupEnabled bool
}

// emit publishes n; failures are logged and otherwise ignored
func (s *jobServices) emit(ctx context.Context, n domain.Notification) {
	if err := s.emitter.Emit(ctx, n); err != nil {
		s.metrics.RecordEmitError()
		s.multiLogger.LogAppError("Failed to emit notification",
			zap.String("name", n.Name),
			zap.String("job_id", n.JobID),
			zap.Error(err))
	}
}

// archive stores a terminal job in history when history is enabled
func (s *jobServices) archive(job domain.Job) {
	if s.history == nil || !job.IsTerminal() {
		return
	}
	if err := s.history.Archive(job); err != nil {
		s.multiLogger.LogAppError("Failed to archive job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

// JobManager owns the job registry and the sidecar processes feeding it
type JobManager struct {
	*jobServices

	runner      domain.ProcessRunner
	logCapacity int

	mu        sync.RWMutex
	running   bool
	baseCtx   context.Context
	cancel    context.CancelFunc
	processes map[string]domain.Process
	workerWg  sync.WaitGroup
}

// NewJobManager creates a new job manager
func NewJobManager(deps JobManagerDeps) *JobManager {
	cfg := deps.Config
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}
	classify := deps.Classify
	if classify == nil {
		classify = infrastructure.ClassifyLine
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &JobManager{
		jobServices: &jobServices{
			registry:       deps.Registry,
			emitter:        deps.Emitter,
			history:        deps.History,
			cleaner:        deps.Cleaner,
			classify:       classify,
			metrics:        deps.Metrics,
			multiLogger:    deps.MultiLogger,
			logger:         log,
			downloadsPath:  cfg.Sidecar.DownloadsPath,
			cleanupEnabled: cfg.Cleanup.Enabled,
		},
		runner:      deps.Runner,
		logCapacity: cfg.Jobs.ConsoleLogCapacity,
		processes:   make(map[string]domain.Process),
	}
}

// Start enables job submission. Sidecars are bound to ctx and are killed
// when it is canceled or Stop is called.
func (m *JobManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("job manager already running")
	}
	m.baseCtx, m.cancel = context.WithCancel(ctx)
	m.running = true

	m.multiLogger.LogJobEvent("manager_started")
	return nil
}

// Stop kills every running sidecar and waits for the pumps to finish
func (m *JobManager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return fmt.Errorf("job manager not running")
	}
	m.running = false
	m.cancel()
	m.mu.Unlock()

	m.workerWg.Wait()
	m.multiLogger.LogJobEvent("manager_stopped")
	return nil
}

// IsRunning returns whether the manager accepts jobs
func (m *JobManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// ActiveProcesses returns the number of sidecars still running
func (m *JobManager) ActiveProcesses() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.processes)
}

// StartJob spawns the sidecar for req.Query and returns the new job id
// without waiting for any output. A spawn failure returns a
// *domain.ProcessSpawnError and registers nothing.
func (m *JobManager) StartJob(ctx context.Context, req StartRequest) (string, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "", domain.ErrEmptyQuery
	}

	m.mu.RLock()
	running, baseCtx := m.running, m.baseCtx
	m.mu.RUnlock()
	if !running {
		return "", ErrManagerStopped
	}

	job := domain.NewJob(query, req.Title, req.Artist, req.Album, m.logCapacity)

	proc, err := m.runner.Start(baseCtx, query, req.Options)
	if err != nil {
		m.metrics.RecordSpawnFailure()
		m.multiLogger.LogAppError("Failed to start job",
			zap.String("query", query),
			zap.Error(err))
		return "", err
	}

	// Stop may have run while the sidecar was spawning
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		_ = proc.Kill()
		return "", ErrManagerStopped
	}
	if _, err := m.registry.Add(job); err != nil {
		m.mu.Unlock()
		_ = proc.Kill()
		return "", fmt.Errorf("failed to register job: %w", err)
	}
	m.processes[job.ID] = proc
	m.workerWg.Add(1)
	m.mu.Unlock()

	m.metrics.RecordStarted()
	m.multiLogger.LogJobEvent("job_started",
		zap.String("job_id", job.ID),
		zap.String("query", query),
		zap.Bool("is_playlist", job.IsPlaylist))
	m.emit(context.WithoutCancel(ctx), domain.JobNotification(domain.NotifyStarted, *job))

	pump := &OutputPump{
		jobServices: m.jobServices,
		jobID:       job.ID,
		proc:        proc,
		onExit:      m.processExited,
	}
	go pump.Run(context.WithoutCancel(baseCtx))

	return job.ID, nil
}

// processExited forgets a finished sidecar
func (m *JobManager) processExited(jobID string) {
	m.mu.Lock()
	delete(m.processes, jobID)
	m.mu.Unlock()
	m.workerWg.Done()
}

// ListJobs returns snapshots of every job
func (m *JobManager) ListJobs() []domain.Job {
	return m.registry.List()
}

// GetJob returns a snapshot of one job
func (m *JobManager) GetJob(id string) (domain.Job, bool) {
	return m.registry.Get(id)
}

// Stats tallies registered jobs by status
func (m *JobManager) Stats() domain.JobStats {
	return domain.CountStats(m.registry.List())
}

// CancelJob marks the job canceled and kills its sidecar. Canceling an
// already canceled job succeeds without side effects.
func (m *JobManager) CancelJob(ctx context.Context, id string) error {
	var snapshot domain.Job
	applied := false

	err := m.registry.Mutate(id, func(j *domain.Job) {
		next, ok := domain.Reduce(*j, domain.CancelRequested())
		if ok {
			next.UpdatedAt = time.Now()
			*j = next
		}
		applied = ok
		snapshot = j.Clone()
	})
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	m.mu.RLock()
	proc := m.processes[id]
	m.mu.RUnlock()
	if proc != nil {
		if err := proc.Kill(); err != nil {
			m.multiLogger.LogAppError("Failed to kill sidecar",
				zap.String("job_id", id),
				zap.Error(err))
		}
	}

	m.multiLogger.LogJobEvent("job_canceled", zap.String("job_id", id))
	m.emit(ctx, domain.JobNotification(domain.NotifyCanceled, snapshot))
	return nil
}

// ClearTerminalJobs removes every completed, failed and canceled job,
// archives them, and returns how many were removed
func (m *JobManager) ClearTerminalJobs(ctx context.Context) int {
	removed := m.registry.Drain(func(j *domain.Job) bool {
		return j.IsTerminal()
	})
	for _, job := range removed {
		m.archive(job)
	}

	m.multiLogger.LogJobEvent("jobs_cleared", zap.Int("count", len(removed)))
	m.emit(ctx, domain.MessageNotification(domain.NotifyCleared,
		fmt.Sprintf("%d finished downloads cleared", len(removed))))
	return len(removed)
}
