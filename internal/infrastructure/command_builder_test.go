package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

func fullSidecarConfig() domain.SidecarConfig {
	return domain.SidecarConfig{
		Binary:              "sldl",
		DownloadsPath:       "/music",
		PreferredFormat:     "flac",
		NameFormat:          "{artist}/{title}",
		Username:            "bob",
		Password:            "hunter2",
		SpotifyClientID:     "cid",
		SpotifyClientSecret: "csecret",
		SpotifyToken:        "tok",
		SpotifyRefresh:      "ref",
	}
}

func TestBuildSldlArgs_TrackQuery(t *testing.T) {
	args := BuildSldlArgs(fullSidecarConfig(), "Artist - Song", nil)

	assert.Equal(t, []string{
		"Artist - Song",
		"--user", "bob",
		"--pass", "hunter2",
		"--path", "/music",
		"--pref-format", "flac",
		"--name-format", "{artist}/{title}",
	}, args)
}

func TestBuildSldlArgs_SpotifyQueryAddsCredentials(t *testing.T) {
	args := BuildSldlArgs(fullSidecarConfig(), "https://open.spotify.com/playlist/abc", nil)

	assert.Equal(t, []string{
		"https://open.spotify.com/playlist/abc",
		"--user", "bob",
		"--pass", "hunter2",
		"--spotify-id", "cid",
		"--spotify-secret", "csecret",
		"--spotify-token", "tok",
		"--spotify-refresh", "ref",
		"--path", "/music",
		"--pref-format", "flac",
		"--name-format", "{artist}/{title}",
	}, args)
}

func TestBuildSldlArgs_EmptySettingsOmitted(t *testing.T) {
	args := BuildSldlArgs(domain.SidecarConfig{}, "spotify-likes", nil)

	assert.Equal(t, []string{"spotify-likes"}, args)
}

func TestBuildSldlArgs_OptionsSortedAfterSettings(t *testing.T) {
	opts := map[string]string{
		"number":      "5",
		"--album":     "",
		"min-bitrate": "320",
		"":            "ignored",
	}

	args := BuildSldlArgs(domain.SidecarConfig{PreferredFormat: "mp3"}, "q", opts)

	assert.Equal(t, []string{
		"q",
		"--pref-format", "mp3",
		"--album", "",
		"--min-bitrate", "320",
		"--number", "5",
	}, args)
}

func TestRedactedCommandLine(t *testing.T) {
	args := BuildSldlArgs(fullSidecarConfig(), "spotify:playlist:1", nil)

	line := RedactedCommandLine("sldl", args)

	assert.NotContains(t, line, "hunter2")
	assert.NotContains(t, line, "csecret")
	assert.NotContains(t, line, "--spotify-token tok")
	assert.Contains(t, line, "--user bob")
	assert.Contains(t, line, "--pass '***'")
	assert.Contains(t, line, "'{artist}/{title}'")
}
