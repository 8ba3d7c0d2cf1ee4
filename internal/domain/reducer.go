package domain

// Reduce applies one event to a job and returns the next state.
//
// Reduce never mutates j or anything it points to; pointer fields of the
// result that change are freshly allocated. The boolean reports whether
// the event was applied. An event is dropped when its precondition does not
// hold, and every event except CancelRequested is dropped once the job is
// terminal.
func Reduce(j Job, ev JobEvent) (Job, bool) {
	if ev.Kind == EventCancelRequested {
		return reduceCancel(j)
	}
	if j.Status.IsTerminal() {
		return j, false
	}

	switch ev.Kind {
	case EventPlaylistDiscovered:
		if !j.IsPlaylist {
			return j, false
		}
		j.TotalTracks = intPtr(ev.Total)
		j.CompletedTracks = intPtr(0)
		j.FailedTracks = intPtr(0)
		j.Progress = playlistProgress(j)

	case EventLoadingPlaylist:
		j.Status = StatusSearching

	case EventSearching:
		j.Status = StatusSearching
		if !j.IsPlaylist && ev.Name != "" {
			j.Title = ev.Name
		}

	case EventPlaylistNamed:
		if !j.IsPlaylist {
			return j, false
		}
		j.Title = ev.Name + " by " + ev.Creator

	case EventInitialize:
		j.Status = StatusInProgress
		if !j.IsPlaylist {
			j.Progress = floatPtr(0)
		}

	case EventProgress:
		if !j.IsPlaylist {
			// The protocol reports no byte counts; halfway is the best guess.
			j.Progress = floatPtr(0.5)
		}
		if ev.Name != "" {
			j.FilePath = stringPtr(ev.Name)
		}

	case EventTrackNotFound:
		if !j.IsPlaylist {
			return j, false
		}
		if playlistFull(j) {
			return j, false
		}
		j.Status = StatusInProgress
		if j.TotalTracks != nil {
			j.FailedTracks = intPtr(derefInt(j.FailedTracks) + 1)
			j.Progress = playlistProgress(j)
		}

	case EventTrackSucceeded:
		if !j.IsPlaylist {
			j.Status = StatusCompleted
			j.Completion = CompletionParsed
			j.Progress = floatPtr(1)
			if ev.Name != "" {
				j.FilePath = stringPtr(ev.Name)
			}
			break
		}
		if playlistFull(j) {
			return j, false
		}
		j.Status = StatusInProgress
		if ev.Name != "" {
			j.FilePath = stringPtr(ev.Name)
		}
		if j.TotalTracks == nil {
			break
		}
		j.CompletedTracks = intPtr(derefInt(j.CompletedTracks) + 1)
		j.Progress = playlistProgress(j)
		if *j.TotalTracks == 1 && derefInt(j.CompletedTracks)+derefInt(j.FailedTracks) >= 1 {
			j.Status = StatusCompleted
			j.Completion = CompletionSingleTrackFallback
			j.Progress = floatPtr(1)
		}

	case EventPlaylistCompleted:
		if !j.IsPlaylist {
			return j, false
		}
		j.CompletedTracks = intPtr(ev.Succeeded)
		j.FailedTracks = intPtr(ev.Failed)
		if j.TotalTracks == nil {
			j.TotalTracks = intPtr(ev.Succeeded + ev.Failed)
		}
		j.Status = StatusCompleted
		j.Completion = CompletionParsed
		j.Progress = floatPtr(1)

	case EventProcessExited:
		if ev.ExitCode != nil && *ev.ExitCode == 0 {
			j.Status = StatusCompleted
			j.Completion = CompletionExitFallback
			j.Progress = floatPtr(1)
			break
		}
		j.Status = StatusFailed
		j.FailureReason = FailureCommandFailed

	default:
		return j, false
	}

	return j, true
}

func reduceCancel(j Job) (Job, bool) {
	if j.Status == StatusCanceled {
		return j, false
	}
	j.Status = StatusCanceled
	j.Completion = ""
	j.FailureReason = ""
	return j, true
}

// playlistFull reports whether every discovered track already has an outcome
func playlistFull(j Job) bool {
	if j.TotalTracks == nil {
		return false
	}
	return derefInt(j.CompletedTracks)+derefInt(j.FailedTracks) >= *j.TotalTracks
}

// playlistProgress is (completed+failed)/total, clamped to [0, 1], or nil
// while the total is unknown or zero.
func playlistProgress(j Job) *float64 {
	if j.TotalTracks == nil || *j.TotalTracks <= 0 {
		return nil
	}
	done := float64(derefInt(j.CompletedTracks) + derefInt(j.FailedTracks))
	p := done / float64(*j.TotalTracks)
	if p > 1 {
		p = 1
	}
	return &p
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func stringPtr(v string) *string { return &v }

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
