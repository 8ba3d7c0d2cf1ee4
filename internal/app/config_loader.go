package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/yourusername/sldl-jobs/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. SLDLJOBS_SERVER_PORT
const EnvPrefix = "SLDLJOBS"

// LoadConfig loads configuration from file and environment
func LoadConfig(configPath string) (*domain.Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// Registering every key lets AutomaticEnv override keys absent from the file
	for key, value := range configValues(domain.DefaultConfig()) {
		v.SetDefault(key, value)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.sldl-jobs")
		v.AddConfigPath("/etc/sldl-jobs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config = expandPaths(config)

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// configValues flattens config into viper keys
func configValues(c *domain.Config) map[string]interface{} {
	return map[string]interface{}{
		"server.host": c.Server.Host,
		"server.port": c.Server.Port,

		"sidecar.binary":                c.Sidecar.Binary,
		"sidecar.downloads_path":        c.Sidecar.DownloadsPath,
		"sidecar.preferred_format":      c.Sidecar.PreferredFormat,
		"sidecar.name_format":           c.Sidecar.NameFormat,
		"sidecar.username":              c.Sidecar.Username,
		"sidecar.password":              c.Sidecar.Password,
		"sidecar.spotify_client_id":     c.Sidecar.SpotifyClientID,
		"sidecar.spotify_client_secret": c.Sidecar.SpotifyClientSecret,
		"sidecar.spotify_token":         c.Sidecar.SpotifyToken,
		"sidecar.spotify_refresh":       c.Sidecar.SpotifyRefresh,

		"jobs.console_log_capacity": c.Jobs.ConsoleLogCapacity,

		"cleanup.enabled":            c.Cleanup.Enabled,
		"cleanup.side_file_patterns": c.Cleanup.SideFilePatterns,

		"history.enabled":       c.History.Enabled,
		"history.database_path": c.History.DatabasePath,

		"events.websocket":     c.Events.WebSocket,
		"events.redis_enabled": c.Events.RedisEnabled,
		"events.redis_addr":    c.Events.RedisAddr,
		"events.redis_channel": c.Events.RedisChannel,

		"notification.enabled": c.Notification.Enabled,
		"notification.method":  c.Notification.Method,

		"metrics.enabled": c.Metrics.Enabled,
		"metrics.path":    c.Metrics.Path,

		"logging.level":    c.Logging.Level,
		"logging.format":   c.Logging.Format,
		"logging.logs_dir": c.Logging.LogsDir,
	}
}

// expandPaths expands environment variables in path configurations
func expandPaths(config *domain.Config) *domain.Config {
	config.Sidecar.DownloadsPath = expandPath(config.Sidecar.DownloadsPath)
	config.History.DatabasePath = expandPath(config.History.DatabasePath)
	config.Logging.LogsDir = expandPath(config.Logging.LogsDir)
	return config
}

// expandPath expands environment variables and ~ in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}

	// $HOME first so it resolves even when the variable is unset
	if strings.Contains(path, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			path = strings.ReplaceAll(path, "$HOME", home)
		}
	}

	return os.ExpandEnv(path)
}

// validateConfig validates the configuration
func validateConfig(config *domain.Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Sidecar.Binary == "" {
		return fmt.Errorf("sidecar binary not configured")
	}

	if config.Jobs.ConsoleLogCapacity < 1 {
		return fmt.Errorf("console log capacity must be at least 1")
	}

	if config.History.Enabled && config.History.DatabasePath == "" {
		return fmt.Errorf("history database path not configured")
	}

	if config.Events.RedisEnabled {
		if config.Events.RedisAddr == "" {
			return fmt.Errorf("redis address not configured")
		}
		if config.Events.RedisChannel == "" {
			return fmt.Errorf("redis channel not configured")
		}
	}

	switch config.Notification.Method {
	case "osascript", "notify-send":
	default:
		if config.Notification.Enabled {
			return fmt.Errorf("unknown notification method: %s", config.Notification.Method)
		}
	}

	if config.Metrics.Enabled && !strings.HasPrefix(config.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %q", config.Metrics.Path)
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}

	return nil
}

// SaveConfig writes config as YAML, creating the directory if needed
func SaveConfig(config *domain.Config, path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	for key, value := range configValues(config) {
		v.Set(key, value)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
