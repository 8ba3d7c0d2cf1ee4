package domain

import "path/filepath"

// Config represents the application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Sidecar      SidecarConfig      `mapstructure:"sidecar"`
	Jobs         JobsConfig         `mapstructure:"jobs"`
	Cleanup      CleanupConfig      `mapstructure:"cleanup"`
	History      HistoryConfig      `mapstructure:"history"`
	Events       EventsConfig       `mapstructure:"events"`
	Notification NotificationConfig `mapstructure:"notification"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// SidecarConfig describes how to invoke the sldl binary.
// Credentials are read from here as given; storing them is out of scope.
type SidecarConfig struct {
	Binary              string `mapstructure:"binary"`
	DownloadsPath       string `mapstructure:"downloads_path"`
	PreferredFormat     string `mapstructure:"preferred_format"`
	NameFormat          string `mapstructure:"name_format"`
	Username            string `mapstructure:"username"`
	Password            string `mapstructure:"password"`
	SpotifyClientID     string `mapstructure:"spotify_client_id"`
	SpotifyClientSecret string `mapstructure:"spotify_client_secret"`
	SpotifyToken        string `mapstructure:"spotify_token"`
	SpotifyRefresh      string `mapstructure:"spotify_refresh"`
}

// JobsConfig contains job-tracking configuration
type JobsConfig struct {
	ConsoleLogCapacity int `mapstructure:"console_log_capacity"`
}

// CleanupConfig controls the post-exit side-file sweep
type CleanupConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// SideFilePatterns are filepath.Match patterns checked against base names
	SideFilePatterns []string `mapstructure:"side_file_patterns"`
}

// HistoryConfig controls the SQLite archive of finished jobs
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// EventsConfig controls where notifications are published
type EventsConfig struct {
	WebSocket    bool   `mapstructure:"websocket"`
	RedisEnabled bool   `mapstructure:"redis_enabled"`
	RedisAddr    string `mapstructure:"redis_addr"`
	RedisChannel string `mapstructure:"redis_channel"`
}

// NotificationConfig contains desktop notification configuration
type NotificationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Method  string `mapstructure:"method"` // osascript, notify-send
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`    // debug, info, warn, error
	Format  string `mapstructure:"format"`   // json, console
	LogsDir string `mapstructure:"logs_dir"` // directory for categorized JSON logs
}

// DataDir is the base directory for the history database and logs
const DataDir = "$HOME/.sldl-jobs"

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 9870,
		},
		Sidecar: SidecarConfig{
			Binary:          "sldl",
			DownloadsPath:   "$HOME/Music/sldl",
			PreferredFormat: "flac",
			NameFormat:      "{albumartist|artist}/{album} ({year})/{track}. {title}",
		},
		Jobs: JobsConfig{
			ConsoleLogCapacity: DefaultConsoleLogCapacity,
		},
		Cleanup: CleanupConfig{
			Enabled:          true,
			SideFilePatterns: []string{"_index.sldl", "_index.csv", "*.sldl"},
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: filepath.Join(DataDir, "history.db"),
		},
		Events: EventsConfig{
			WebSocket:    true,
			RedisEnabled: false,
			RedisAddr:    "localhost:6379",
			RedisChannel: "sldl:events",
		},
		Notification: NotificationConfig{
			Enabled: false,
			Method:  "notify-send",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogsDir: filepath.Join(DataDir, "logs"),
		},
	}
}
