package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollector(t *testing.T) {
	collector := NewCollector(false)

	assert.NotNil(t, collector.jobsStarted)
	assert.NotNil(t, collector.jobsFinished)
	assert.NotNil(t, collector.jobDuration)
	assert.NotNil(t, collector.Registry())
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector(false)
	b := NewCollector(false)

	a.RecordStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.jobsStarted))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.jobsStarted))
}

func TestActiveGauge(t *testing.T) {
	collector := NewCollector(false)

	collector.RecordStarted()
	collector.RecordStarted()
	collector.RecordExited()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.jobsStarted))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.jobsActive))
}

func TestRecordFinished(t *testing.T) {
	collector := NewCollector(false)

	collector.RecordFinished("completed", time.Now().Add(-2*time.Second))
	collector.RecordFinished("completed", time.Now())
	collector.RecordFinished("failed", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.jobsFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.jobsFinished.WithLabelValues("failed")))
	assert.Equal(t, 2, testutil.CollectAndCount(collector.jobDuration))
}

func TestRecordLinesAndEvents(t *testing.T) {
	collector := NewCollector(false)

	collector.RecordLine("stdout")
	collector.RecordLine("stdout")
	collector.RecordLine("stderr")
	collector.RecordEvent("track_succeeded")
	collector.RecordEmitError()
	collector.RecordSpawnFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(collector.outputLines.WithLabelValues("stdout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.outputLines.WithLabelValues("stderr")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.events.WithLabelValues("track_succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.emitErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.spawnFailures))
}

func TestNilCollector(t *testing.T) {
	var collector *Collector

	assert.NotPanics(t, func() {
		collector.RecordStarted()
		collector.RecordSpawnFailure()
		collector.RecordExited()
		collector.RecordFinished("failed", time.Now())
		collector.RecordLine("stdout")
		collector.RecordEvent("searching")
		collector.RecordEmitError()
	})
}

func TestHandler(t *testing.T) {
	collector := NewCollector(true)
	collector.RecordStarted()

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sldl_jobs_started_total 1")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
