package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// fakeProcess is a sidecar whose output the test writes line by line
type fakeProcess struct {
	stdoutR, stderrR *io.PipeReader
	stdoutW, stderrW *io.PipeWriter

	exit   chan domain.ExitStatus
	done   chan struct{}
	once   sync.Once
	killed atomic.Bool
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{
		exit: make(chan domain.ExitStatus, 1),
		done: make(chan struct{}),
	}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }

func (p *fakeProcess) Wait() domain.ExitStatus {
	return <-p.exit
}

func (p *fakeProcess) Kill() error {
	select {
	case <-p.done:
		return nil
	default:
	}
	p.killed.Store(true)
	p.finish(domain.ExitStatus{Err: errors.New("signal: killed")})
	return nil
}

func (p *fakeProcess) writeStdout(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := io.WriteString(p.stdoutW, line+"\n")
		require.NoError(t, err)
	}
}

func (p *fakeProcess) writeStderr(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := io.WriteString(p.stderrW, line+"\n")
		require.NoError(t, err)
	}
}

// exitWith closes both streams and reports code from Wait
func (p *fakeProcess) exitWith(code int) {
	p.finish(domain.ExitStatus{Code: &code})
}

func (p *fakeProcess) finish(status domain.ExitStatus) {
	p.once.Do(func() {
		p.stdoutW.Close()
		p.stderrW.Close()
		p.exit <- status
		close(p.done)
	})
}

// fakeRunner hands out fakeProcesses and kills them when ctx ends
type fakeRunner struct {
	mu      sync.Mutex
	err     error
	procs   []*fakeProcess
	queries []string
	options []map[string]string
}

func (r *fakeRunner) Start(ctx context.Context, query string, options map[string]string) (domain.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries = append(r.queries, query)
	r.options = append(r.options, options)
	if r.err != nil {
		return nil, r.err
	}

	p := newFakeProcess()
	r.procs = append(r.procs, p)
	go func() {
		select {
		case <-ctx.Done():
			_ = p.Kill()
		case <-p.done:
		}
	}()
	return p, nil
}

func (r *fakeRunner) proc(i int) *fakeProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.procs[i]
}

// scriptedProcess replays fixed output and exits immediately
type scriptedProcess struct {
	stdout string
	stderr string
	status domain.ExitStatus
}

func (p *scriptedProcess) Stdout() io.Reader       { return strings.NewReader(p.stdout) }
func (p *scriptedProcess) Stderr() io.Reader       { return strings.NewReader(p.stderr) }
func (p *scriptedProcess) Wait() domain.ExitStatus { return p.status }
func (p *scriptedProcess) Kill() error             { return nil }

type recordingEmitter struct {
	mu            sync.Mutex
	notifications []domain.Notification
	err           error
}

func (r *recordingEmitter) Emit(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
	return r.err
}

func (r *recordingEmitter) all() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.notifications...)
}

func (r *recordingEmitter) named(name string) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.all() {
		if n.Name == name {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingEmitter) names() []string {
	var out []string
	for _, n := range r.all() {
		out = append(out, n.Name)
	}
	return out
}

type fakeHistory struct {
	mu      sync.Mutex
	entries map[string]*domain.HistoryEntry
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: make(map[string]*domain.HistoryEntry)}
}

func (h *fakeHistory) Archive(job domain.Job) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries[job.ID] = domain.NewHistoryEntry(job)
	return nil
}

func (h *fakeHistory) FindByID(id string) (*domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[id], nil
}

func (h *fakeHistory) FindRecent(limit int) ([]*domain.HistoryEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*domain.HistoryEntry, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FinishedAt.After(out[j].FinishedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (h *fakeHistory) Count() (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(len(h.entries)), nil
}

type fakeCleaner struct {
	mu    sync.Mutex
	roots []string
}

func (c *fakeCleaner) Clean(root string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots = append(c.roots, root)
	return nil, nil
}

func (c *fakeCleaner) calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.roots...)
}
