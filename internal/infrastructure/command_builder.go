package infrastructure

import (
	"sort"
	"strings"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// secretFlags are the sldl flags whose values never appear in logs
var secretFlags = map[string]bool{
	"--pass":            true,
	"--spotify-secret":  true,
	"--spotify-token":   true,
	"--spotify-refresh": true,
}

// BuildSldlArgs assembles the sldl argument list: the query, credentials,
// configured output settings, then caller options as "--key value" pairs in
// key order. Spotify credentials are only passed for Spotify queries.
func BuildSldlArgs(cfg domain.SidecarConfig, query string, options map[string]string) []string {
	args := []string{query}

	args = appendFlag(args, "--user", cfg.Username)
	args = appendFlag(args, "--pass", cfg.Password)

	if isSpotifyQuery(query) {
		args = appendFlag(args, "--spotify-id", cfg.SpotifyClientID)
		args = appendFlag(args, "--spotify-secret", cfg.SpotifyClientSecret)
		args = appendFlag(args, "--spotify-token", cfg.SpotifyToken)
		args = appendFlag(args, "--spotify-refresh", cfg.SpotifyRefresh)
	}

	args = appendFlag(args, "--path", cfg.DownloadsPath)
	args = appendFlag(args, "--pref-format", cfg.PreferredFormat)
	args = appendFlag(args, "--name-format", cfg.NameFormat)

	keys := make([]string, 0, len(options))
	for k := range options {
		if strings.TrimLeft(k, "-") != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--"+strings.TrimLeft(k, "-"), options[k])
	}

	return args
}

// RedactedCommandLine renders the command for logging with secrets masked
func RedactedCommandLine(binary string, args []string) string {
	return ShellEscapeCommand(binary, RedactArgs(args, secretFlags)...)
}

func appendFlag(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

func isSpotifyQuery(query string) bool {
	return strings.Contains(strings.ToLower(query), "spotify")
}
