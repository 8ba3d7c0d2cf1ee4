package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.NotNil(t, config)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 9870, config.Server.Port)
	assert.Equal(t, "sldl", config.Sidecar.Binary)
	assert.Equal(t, "flac", config.Sidecar.PreferredFormat)
	assert.Equal(t, 100, config.Jobs.ConsoleLogCapacity)
	assert.True(t, config.Cleanup.Enabled)
	assert.Contains(t, config.Cleanup.SideFilePatterns, "_index.sldl")
	assert.True(t, config.History.Enabled)
	assert.True(t, config.Events.WebSocket)
	assert.False(t, config.Events.RedisEnabled)
	assert.False(t, config.Notification.Enabled)
	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "info", config.Logging.Level)
}
