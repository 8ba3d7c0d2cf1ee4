package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/sldl-jobs/pkg/ringbuf"
)

// JobStatus represents the current status of a download job
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusSearching  JobStatus = "searching"
	StatusInProgress JobStatus = "in_progress"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCanceled   JobStatus = "canceled"
)

// IsTerminal reports whether no further transitions are expected
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCanceled
}

// Completion records how a job came to be Completed
type Completion string

const (
	// CompletionParsed means the sidecar reported success explicitly.
	CompletionParsed Completion = "parsed"
	// CompletionSingleTrackFallback means a one-track playlist finished
	// its only track and no summary line was awaited.
	CompletionSingleTrackFallback Completion = "single_track_fallback"
	// CompletionExitFallback means the sidecar exited with code 0 before
	// any completion line was seen; success is assumed, not verified.
	CompletionExitFallback Completion = "exit_fallback"
)

// DefaultConsoleLogCapacity is the number of raw output lines kept per job
const DefaultConsoleLogCapacity = 100

// FailureCommandFailed is the reason recorded for a non-zero sidecar exit
const FailureCommandFailed = "Command failed"

// Job represents one invocation of the sidecar for one query
type Job struct {
	ID              string                  `json:"id"`
	Title           string                  `json:"title"`
	Artist          string                  `json:"artist,omitempty"`
	Album           string                  `json:"album,omitempty"`
	Query           string                  `json:"query"`
	StartedAt       time.Time               `json:"started_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	Status          JobStatus               `json:"status"`
	FailureReason   string                  `json:"failure_reason,omitempty"`
	Completion      Completion              `json:"completion,omitempty"`
	Progress        *float64                `json:"progress"`
	FilePath        *string                 `json:"file_path"`
	IsPlaylist      bool                    `json:"is_playlist"`
	TotalTracks     *int                    `json:"total_tracks"`
	CompletedTracks *int                    `json:"completed_tracks"`
	FailedTracks    *int                    `json:"failed_tracks"`
	ConsoleLogs     *ringbuf.Buffer[string] `json:"console_logs"`
}

// NewJob creates a queued job. The title falls back to the query.
func NewJob(query, title, artist, album string, logCapacity int) *Job {
	if title == "" {
		title = query
	}
	if logCapacity <= 0 {
		logCapacity = DefaultConsoleLogCapacity
	}
	now := time.Now()
	return &Job{
		ID:          uuid.New().String(),
		Title:       title,
		Artist:      artist,
		Album:       album,
		Query:       query,
		StartedAt:   now,
		UpdatedAt:   now,
		Status:      StatusQueued,
		IsPlaylist:  IsPlaylistQuery(query),
		ConsoleLogs: ringbuf.New[string](logCapacity),
	}
}

// IsPlaylistQuery decides from the query shape whether the sidecar will
// download a playlist rather than a single track
func IsPlaylistQuery(query string) bool {
	return strings.Contains(query, "spotify:") ||
		strings.Contains(query, "spotify.com/playlist") ||
		query == "spotify-likes"
}

// IsTerminal checks if the job is in a terminal state
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// AppendLog records one raw output line
func (j *Job) AppendLog(line string) {
	if j.ConsoleLogs == nil {
		j.ConsoleLogs = ringbuf.New[string](DefaultConsoleLogCapacity)
	}
	j.ConsoleLogs.Push(line)
	j.UpdatedAt = time.Now()
}

// Logs returns the console log lines, oldest first
func (j Job) Logs() []string {
	if j.ConsoleLogs == nil {
		return nil
	}
	return j.ConsoleLogs.Items()
}

// Clone returns a deep copy that shares no mutable state with j
func (j Job) Clone() Job {
	c := j
	c.Progress = clonePtr(j.Progress)
	c.FilePath = clonePtr(j.FilePath)
	c.TotalTracks = clonePtr(j.TotalTracks)
	c.CompletedTracks = clonePtr(j.CompletedTracks)
	c.FailedTracks = clonePtr(j.FailedTracks)
	c.ConsoleLogs = j.ConsoleLogs.Clone()
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// JobStats represents counts of jobs per status
type JobStats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Searching  int `json:"searching"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Canceled   int `json:"canceled"`
}

// CountStats tallies jobs by status
func CountStats(jobs []Job) JobStats {
	stats := JobStats{Total: len(jobs)}
	for _, j := range jobs {
		switch j.Status {
		case StatusQueued:
			stats.Queued++
		case StatusSearching:
			stats.Searching++
		case StatusInProgress:
			stats.InProgress++
		case StatusCompleted:
			stats.Completed++
		case StatusFailed:
			stats.Failed++
		case StatusCanceled:
			stats.Canceled++
		}
	}
	return stats
}
