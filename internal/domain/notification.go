package domain

import (
	"context"
	"time"
)

// Notification names published to observers
const (
	NotifyStarted    = "download:started"
	NotifyProgress   = "download:progress"
	NotifyCompleted  = "download:completed"
	NotifyFailed     = "download:failed"
	NotifyCanceled   = "download:canceled"
	NotifyCleared    = "downloads:cleared"
	NotifyStdout     = "sldl:stdout"
	NotifyStderr     = "sldl:stderr"
	NotifyTerminated = "sldl:terminated"
)

// Notification is one message on the observer channel
type Notification struct {
	Name      string    `json:"name"`
	JobID     string    `json:"job_id,omitempty"`
	Job       *Job      `json:"job,omitempty"`
	Line      string    `json:"line,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// JobNotification wraps a job snapshot
func JobNotification(name string, j Job) Notification {
	snapshot := j.Clone()
	return Notification{Name: name, JobID: j.ID, Job: &snapshot, Timestamp: time.Now()}
}

// LineNotification wraps a raw output line
func LineNotification(name, jobID, line string) Notification {
	return Notification{Name: name, JobID: jobID, Line: line, Timestamp: time.Now()}
}

// TerminatedNotification reports the sidecar's exit outcome
func TerminatedNotification(jobID string, success bool) Notification {
	return Notification{Name: NotifyTerminated, JobID: jobID, Success: &success, Timestamp: time.Now()}
}

// MessageNotification carries a plain message
func MessageNotification(name, message string) Notification {
	return Notification{Name: name, Message: message, Timestamp: time.Now()}
}

// NotificationForStatus picks the notification name announcing a job's state
func NotificationForStatus(status JobStatus) string {
	switch status {
	case StatusCompleted:
		return NotifyCompleted
	case StatusFailed:
		return NotifyFailed
	case StatusCanceled:
		return NotifyCanceled
	default:
		return NotifyProgress
	}
}

// EventEmitter publishes notifications to observers.
// Errors are reported to the caller, which logs and otherwise ignores them.
type EventEmitter interface {
	Emit(ctx context.Context, n Notification) error
}
