package logger

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path, Name: "server"})
	require.NoError(t, err)
	log.Info("hello", zap.String("k", "v"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"logger":"server"`)
}

func TestNew_BadLevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := New(Config{Level: "loud", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	data, _ := os.ReadFile(path)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestMultiLogger_RequiresDir(t *testing.T) {
	_, err := NewMultiLogger(MultiLoggerConfig{})
	assert.Error(t, err)
}

func TestMultiLogger_WritesPerCategory(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)

	ml.LogJobEvent("job_started", zap.String("job_id", "j1"))
	ml.WriteProcessLine("j1", "stdout", "Searching: Song X")
	ml.LogAppError("spawn failed", zap.String("job_id", "j1"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)
	today := time.Now()

	jobs, err := reader.ReadLogs(CategoryJob, today, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job_started", jobs[0].Message)
	assert.Equal(t, "info", jobs[0].Level)
	assert.Equal(t, "job", jobs[0].Category)
	assert.Equal(t, "j1", jobs[0].Fields["job_id"])
	assert.NotEmpty(t, jobs[0].Timestamp)

	lines, err := reader.ReadLogs(CategoryProcess, today, 0)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Searching: Song X", lines[0].Message)
	assert.Equal(t, "stdout", lines[0].Fields["stream"])

	errs, err := reader.ReadLogs(CategoryError, today, 0)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "error", errs[0].Level)
}

func TestMultiLogger_NilIsSilent(t *testing.T) {
	var ml *MultiLogger

	assert.NotPanics(t, func() {
		ml.LogJobEvent("x")
		ml.WriteProcessLine("id", "stderr", "line")
		ml.LogAppError("boom")
		_ = ml.Sync()
		_ = ml.Close()
	})
	assert.Empty(t, ml.GetLogsDir())
}

func TestValidCategory(t *testing.T) {
	for _, c := range Categories() {
		assert.True(t, ValidCategory(c))
	}
	assert.False(t, ValidCategory("queue"))
}

func TestLogReader_MissingFile(t *testing.T) {
	entries, err := NewLogReader(t.TempDir()).ReadLogs(CategoryJob, time.Now(), 10)

	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLogReader_LimitAndPlainLines(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	path := reader.GetLogPath(CategoryProcess, time.Now())
	content := "not json\n" +
		`{"level":"info","timestamp":"t1","message":"first"}` + "\n" +
		"\n" +
		`{"level":"info","timestamp":"t2","message":"second"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	all, err := reader.ReadLogs(CategoryProcess, time.Now(), 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "not json", all[0].Message)

	last, err := reader.ReadLogs(CategoryProcess, time.Now(), 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "second", last[0].Message)
}

func TestLogReader_Search(t *testing.T) {
	dir := t.TempDir()
	ml, err := NewMultiLogger(MultiLoggerConfig{Level: "info", LogsDir: dir})
	require.NoError(t, err)
	ml.LogJobEvent("job_started", zap.String("query", "Daft Punk - Around the World"))
	ml.LogJobEvent("job_started", zap.String("query", "Boards of Canada"))
	ml.LogJobEvent("job_canceled", zap.String("query", "Daft Punk - One More Time"))
	require.NoError(t, ml.Close())

	reader := NewLogReader(dir)

	hits, err := reader.SearchLogs(CategoryJob, time.Now(), "daft punk", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = reader.SearchLogs(CategoryJob, time.Now(), "canceled", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = reader.SearchLogs(CategoryJob, time.Now(), "nothing", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLogReader_Tail(t *testing.T) {
	dir := t.TempDir()
	reader := NewLogReader(dir)
	path := reader.GetLogPath(CategoryJob, time.Now())
	require.NoError(t, os.WriteFile(path, []byte(`{"message":"old"}`+"\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- reader.TailLogs(ctx, CategoryJob, entries) }()

	// Give the tailer time to seek to the end before appending
	time.Sleep(3 * tailPollInterval)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"message":"new"}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	select {
	case entry := <-entries:
		assert.Equal(t, "new", entry.Message)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for tailed entry")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("tailer did not stop")
	}
}
