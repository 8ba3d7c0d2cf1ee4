package domain

// EventKind identifies a semantic event derived from sidecar output
type EventKind string

const (
	EventPlaylistDiscovered EventKind = "playlist_discovered"
	EventLoadingPlaylist    EventKind = "loading_playlist"
	EventPlaylistNamed      EventKind = "playlist_named"
	EventSearching          EventKind = "searching"
	EventInitialize         EventKind = "initialize"
	EventProgress           EventKind = "progress"
	EventTrackNotFound      EventKind = "track_not_found"
	EventTrackSucceeded     EventKind = "track_succeeded"
	EventPlaylistCompleted  EventKind = "playlist_completed"
	EventProcessExited      EventKind = "process_exited"
	EventCancelRequested    EventKind = "cancel_requested"
)

// TrackStats is the bracketed "[215s/320kbps/8.4MB]" suffix of a track line
type TrackStats struct {
	Seconds     int     `json:"seconds"`
	BitrateKbps int     `json:"bitrate_kbps"`
	SizeMB      float64 `json:"size_mb"`
}

// JobEvent is one state-machine input. Only the fields relevant to Kind
// are set.
type JobEvent struct {
	Kind EventKind `json:"kind"`

	// Name is the track or file name, or the playlist name for PlaylistNamed.
	Name string `json:"name,omitempty"`
	// Creator is the playlist owner for PlaylistNamed.
	Creator string `json:"creator,omitempty"`
	// Detail carries extra text such as a not-found reason.
	Detail string      `json:"detail,omitempty"`
	Stats  *TrackStats `json:"stats,omitempty"`

	Total     int `json:"total,omitempty"`
	Succeeded int `json:"succeeded,omitempty"`
	Failed    int `json:"failed,omitempty"`

	// ExitCode is nil when the process ended without a code (e.g. killed).
	ExitCode *int `json:"exit_code,omitempty"`
}

// ProcessExited builds the termination event
func ProcessExited(code *int) JobEvent {
	return JobEvent{Kind: EventProcessExited, ExitCode: code}
}

// CancelRequested builds the user cancellation event
func CancelRequested() JobEvent {
	return JobEvent{Kind: EventCancelRequested}
}
