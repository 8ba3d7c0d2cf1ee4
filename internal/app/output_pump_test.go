package app

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/sldl-jobs/internal/domain"
	"github.com/yourusername/sldl-jobs/internal/infrastructure"
)

func newTestPump(t *testing.T, registry domain.JobRegistry, jobID string, proc domain.Process) (*OutputPump, *recordingEmitter, *fakeHistory) {
	t.Helper()
	emitter := &recordingEmitter{}
	history := newFakeHistory()
	return &OutputPump{
		jobServices: &jobServices{
			registry: registry,
			emitter:  emitter,
			history:  history,
			classify: infrastructure.ClassifyLine,
			logger:   zap.NewNop(),
		},
		jobID: jobID,
		proc:  proc,
	}, emitter, history
}

func registerJob(t *testing.T, registry domain.JobRegistry, query string) string {
	t.Helper()
	id, err := registry.Add(domain.NewJob(query, "", "", "", 0))
	require.NoError(t, err)
	return id
}

func TestOutputPump_StdoutOrderIsPreserved(t *testing.T) {
	registry := infrastructure.NewMemoryJobRegistry()
	id := registerJob(t, registry, "Song X")
	code := 0
	lines := []string{"line 1", "Searching: Song X", "line 3", "Initialize: Song X", "line 5"}
	proc := &scriptedProcess{
		stdout: strings.Join(lines, "\n") + "\n",
		status: domain.ExitStatus{Code: &code},
	}
	pump, emitter, _ := newTestPump(t, registry, id, proc)

	pump.Run(context.Background())

	var got []string
	for _, n := range emitter.named(domain.NotifyStdout) {
		got = append(got, n.Line)
	}
	assert.Equal(t, lines, got)

	job, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, lines, job.Logs())
	assert.Equal(t, domain.CompletionExitFallback, job.Completion)
}

func TestOutputPump_AnnouncesOnlyAppliedEvents(t *testing.T) {
	registry := infrastructure.NewMemoryJobRegistry()
	id := registerJob(t, registry, "Song X")
	code := 0
	// PlaylistNamed is dropped for a single track
	proc := &scriptedProcess{
		stdout: "Playlist: Mix by someone\nSearching: Song X\nnoise\n",
		status: domain.ExitStatus{Code: &code},
	}
	pump, emitter, _ := newTestPump(t, registry, id, proc)

	pump.Run(context.Background())

	assert.Len(t, emitter.named(domain.NotifyProgress), 1)
	assert.Len(t, emitter.named(domain.NotifyStdout), 3)
	assert.Equal(t, []string{
		domain.NotifyStdout,
		domain.NotifyStdout,
		domain.NotifyProgress,
		domain.NotifyStdout,
		domain.NotifyTerminated,
		domain.NotifyCompleted,
	}, emitter.names())
}

func TestOutputPump_ExitOrderAndArchive(t *testing.T) {
	registry := infrastructure.NewMemoryJobRegistry()
	id := registerJob(t, registry, "Song X")
	code := 2
	proc := &scriptedProcess{stderr: "fatal\n", status: domain.ExitStatus{Code: &code}}
	pump, emitter, history := newTestPump(t, registry, id, proc)
	exited := ""
	pump.onExit = func(jobID string) { exited = jobID }

	pump.Run(context.Background())

	assert.Equal(t, []string{domain.NotifyStderr, domain.NotifyTerminated, domain.NotifyFailed}, emitter.names())
	assert.Equal(t, id, exited)

	entry, err := history.FindByID(id)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, domain.StatusFailed, entry.Status)
	assert.Equal(t, "ERROR: fatal", entry.ConsoleLog)
}

func TestOutputPump_ClearedJobStillStreams(t *testing.T) {
	registry := infrastructure.NewMemoryJobRegistry()
	code := 0
	proc := &scriptedProcess{stdout: "Succeeded: Song X\n", status: domain.ExitStatus{Code: &code}}
	pump, emitter, history := newTestPump(t, registry, "gone", proc)

	pump.Run(context.Background())

	assert.Equal(t, []string{domain.NotifyStdout, domain.NotifyTerminated}, emitter.names())
	count, err := history.Count()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestOutputPump_OverlongLineIsDropped(t *testing.T) {
	registry := infrastructure.NewMemoryJobRegistry()
	id := registerJob(t, registry, "spotify-likes")
	code := 0
	proc := &scriptedProcess{
		stdout: "Found 3 tracks in playlist\n" +
			strings.Repeat("x", maxLineBytes+1) + "\n" +
			"Succeeded: a\n" +
			"Succeeded: b\n" +
			"Not found: c\n" +
			"Completed: 2 succeeded, 1 failed\n",
		status: domain.ExitStatus{Code: &code},
	}
	pump, _, _ := newTestPump(t, registry, id, proc)

	pump.Run(context.Background())

	job, ok := registry.Get(id)
	require.True(t, ok)
	assert.Equal(t, []string{
		"Found 3 tracks in playlist",
		"Succeeded: a",
		"Succeeded: b",
		"Not found: c",
		"Completed: 2 succeeded, 1 failed",
	}, job.Logs())
	assert.Equal(t, domain.StatusCompleted, job.Status)
	assert.Equal(t, domain.CompletionParsed, job.Completion)
	assert.Equal(t, 2, *job.CompletedTracks)
	assert.Equal(t, 1, *job.FailedTracks)
}
