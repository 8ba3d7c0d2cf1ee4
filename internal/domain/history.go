package domain

import (
	"strings"
	"time"
)

// HistoryEntry is the persisted form of a finished job
type HistoryEntry struct {
	ID              string     `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"not null"`
	Artist          string     `json:"artist,omitempty"`
	Album           string     `json:"album,omitempty"`
	Query           string     `json:"query" gorm:"not null"`
	Status          JobStatus  `json:"status" gorm:"not null;index"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	Completion      Completion `json:"completion,omitempty"`
	FilePath        string     `json:"file_path,omitempty"`
	IsPlaylist      bool       `json:"is_playlist"`
	TotalTracks     *int       `json:"total_tracks"`
	CompletedTracks *int       `json:"completed_tracks"`
	FailedTracks    *int       `json:"failed_tracks"`
	ConsoleLog      string     `json:"console_log,omitempty" gorm:"type:text"`
	StartedAt       time.Time  `json:"started_at" gorm:"index"`
	FinishedAt      time.Time  `json:"finished_at"`
	ArchivedAt      time.Time  `json:"archived_at" gorm:"autoCreateTime"`
}

// TableName specifies the table name for GORM
func (HistoryEntry) TableName() string {
	return "job_history"
}

// NewHistoryEntry converts a job snapshot into its archived form
func NewHistoryEntry(j Job) *HistoryEntry {
	entry := &HistoryEntry{
		ID:              j.ID,
		Title:           j.Title,
		Artist:          j.Artist,
		Album:           j.Album,
		Query:           j.Query,
		Status:          j.Status,
		FailureReason:   j.FailureReason,
		Completion:      j.Completion,
		IsPlaylist:      j.IsPlaylist,
		TotalTracks:     clonePtr(j.TotalTracks),
		CompletedTracks: clonePtr(j.CompletedTracks),
		FailedTracks:    clonePtr(j.FailedTracks),
		ConsoleLog:      strings.Join(j.Logs(), "\n"),
		StartedAt:       j.StartedAt,
		FinishedAt:      j.UpdatedAt,
	}
	if j.FilePath != nil {
		entry.FilePath = *j.FilePath
	}
	return entry
}
