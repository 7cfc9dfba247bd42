package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, "Hello! How can I help you today?", cfg.Chat.Greeting)
	assert.Equal(t, 1<<20, cfg.Chat.MaxStreamBuffer)
	assert.Equal(t, "student", cfg.Auth.DefaultRole)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Preserve)
}

func TestLoadParsesDurationStrings(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.timeout", "2m")
	viper.Set("server.idle_timeout", "45")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Server.Timeout)
	assert.Equal(t, 45*time.Second, cfg.Server.IdleTimeout, "bare numbers are seconds")
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("server.timeout", "soon")

	_, err := Load("")

	assert.Error(t, err)
}

func TestGetAfterLoad(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, cfg, Get())
}
