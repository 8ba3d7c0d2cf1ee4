package infrastructure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

func TestClassifyLine_Fixtures(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected domain.JobEvent
	}{
		{
			name:     "playlist discovered",
			line:     "Found 12 tracks in playlist",
			expected: domain.JobEvent{Kind: domain.EventPlaylistDiscovered, Total: 12},
		},
		{
			name:     "playlist discovered singular",
			line:     "Found 1 track in playlist",
			expected: domain.JobEvent{Kind: domain.EventPlaylistDiscovered, Total: 1},
		},
		{
			name:     "loading spotify playlist",
			line:     "Loading Spotify playlist",
			expected: domain.JobEvent{Kind: domain.EventLoadingPlaylist},
		},
		{
			name:     "loading playlist",
			line:     "Loading playlist",
			expected: domain.JobEvent{Kind: domain.EventLoadingPlaylist},
		},
		{
			name:     "playlist named",
			line:     "Playlist: Chill Mix by alice",
			expected: domain.JobEvent{Kind: domain.EventPlaylistNamed, Name: "Chill Mix", Creator: "alice"},
		},
		{
			name: "searching with duration",
			line: "Searching: Artist - Song (215s)",
			expected: domain.JobEvent{
				Kind:  domain.EventSearching,
				Name:  "Artist - Song",
				Stats: &domain.TrackStats{Seconds: 215},
			},
		},
		{
			name:     "searching without duration",
			line:     "Searching: Song X",
			expected: domain.JobEvent{Kind: domain.EventSearching, Name: "Song X"},
		},
		{
			name: "initialize",
			line: "Initialize: Artist - Song.flac [215s/1411kbps/36.2MB]",
			expected: domain.JobEvent{
				Kind:  domain.EventInitialize,
				Name:  "Artist - Song.flac",
				Stats: &domain.TrackStats{Seconds: 215, BitrateKbps: 1411, SizeMB: 36.2},
			},
		},
		{
			name: "in progress",
			line: "InProgress: Artist - Song.mp3 [180s/320kbps/7.1MB]",
			expected: domain.JobEvent{
				Kind:  domain.EventProgress,
				Name:  "Artist - Song.mp3",
				Stats: &domain.TrackStats{Seconds: 180, BitrateKbps: 320, SizeMB: 7.1},
			},
		},
		{
			name:     "not found with reason",
			line:     "Not found: Artist - Song (No suitable file found)",
			expected: domain.JobEvent{Kind: domain.EventTrackNotFound, Name: "Artist - Song", Detail: "No suitable file found"},
		},
		{
			name:     "not found bare",
			line:     "Not found: Artist - Song",
			expected: domain.JobEvent{Kind: domain.EventTrackNotFound, Name: "Artist - Song"},
		},
		{
			name: "succeeded",
			line: "Succeeded: Song X [215s/320kbps/8.4MB]",
			expected: domain.JobEvent{
				Kind:  domain.EventTrackSucceeded,
				Name:  "Song X",
				Stats: &domain.TrackStats{Seconds: 215, BitrateKbps: 320, SizeMB: 8.4},
			},
		},
		{
			name:     "succeeded without stats",
			line:     "Succeeded: Song X",
			expected: domain.JobEvent{Kind: domain.EventTrackSucceeded, Name: "Song X"},
		},
		{
			name:     "playlist completed",
			line:     "Completed: 10 succeeded, 2 failed.",
			expected: domain.JobEvent{Kind: domain.EventPlaylistCompleted, Succeeded: 10, Failed: 2},
		},
		{
			name:     "leading whitespace and carriage return",
			line:     "   Succeeded: Song X\r",
			expected: domain.JobEvent{Kind: domain.EventTrackSucceeded, Name: "Song X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := ClassifyLine(tt.line)
			require.True(t, ok)
			assert.Equal(t, tt.expected, ev)
		})
	}
}

func TestClassifyLine_Unmatched(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"Login successful",
		"Connecting to server.slsknet.org:2242",
		"searching: lowercase verb",
		"Found tracks in playlist",
		"Completed: some tracks",
		"Initialize:",
		"Playlist: no creator here",
		"[215s/320kbps/8.4MB]",
		strings.Repeat("x", 10000),
	}

	for _, line := range lines {
		ev, ok := ClassifyLine(line)
		assert.False(t, ok, "line %q", line)
		assert.Equal(t, domain.JobEvent{}, ev)
	}
}

func TestClassifyLine_OneRulePerLine(t *testing.T) {
	fixtures := []string{
		"Found 3 tracks in playlist",
		"Loading Spotify playlist",
		"Playlist: A by B",
		"Searching: A - B (100s)",
		"Initialize: a.flac [1s/1kbps/1.0MB]",
		"InProgress: a.flac [1s/1kbps/1.0MB]",
		"Not found: A - B",
		"Succeeded: a.flac [1s/1kbps/1.0MB]",
		"Completed: 1 succeeded, 0 failed",
	}

	for _, line := range fixtures {
		matches := 0
		for _, rule := range classifierRules {
			if rule.pattern.MatchString(line) {
				matches++
			}
		}
		assert.Equal(t, 1, matches, "line %q", line)
	}
}

func TestClassifyLine_HugeCountDoesNotPanic(t *testing.T) {
	ev, ok := ClassifyLine("Found 99999999999999999999999 tracks in playlist")

	require.True(t, ok)
	assert.Equal(t, 0, ev.Total)
}

func TestClassifierKinds_Order(t *testing.T) {
	assert.Equal(t, []domain.EventKind{
		domain.EventPlaylistDiscovered,
		domain.EventLoadingPlaylist,
		domain.EventPlaylistNamed,
		domain.EventSearching,
		domain.EventInitialize,
		domain.EventProgress,
		domain.EventTrackNotFound,
		domain.EventTrackSucceeded,
		domain.EventPlaylistCompleted,
	}, ClassifierKinds())
}
