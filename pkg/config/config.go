package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Chat    ChatConfig    `mapstructure:"chat"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds chat server connection configuration
type ServerConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutStr     string `mapstructure:"timeout"`
	IdleTimeoutStr string `mapstructure:"idle_timeout"`

	// Parsed from the string forms above; viper doesn't handle
	// time.Duration directly.
	Timeout     time.Duration `mapstructure:"-"`
	IdleTimeout time.Duration `mapstructure:"-"`
}

// ChatConfig holds conversation behavior configuration
type ChatConfig struct {
	Greeting        string `mapstructure:"greeting"`
	MaxStreamBuffer int    `mapstructure:"max_stream_buffer"`
}

// AuthConfig holds registration defaults
type AuthConfig struct {
	DefaultRole string `mapstructure:"default_role"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.parley") // Check project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, ".parley"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings.yaml")
	}

	viper.AutomaticEnv()

	// Missing config file is fine; defaults carry the session.
	_ = viper.ReadInConfig()

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := processDurations(cfg); err != nil {
		return nil, fmt.Errorf("failed to process durations: %w", err)
	}

	return cfg, nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8080")
	viper.SetDefault("server.timeout", "30s")
	viper.SetDefault("server.idle_timeout", "60s")

	viper.SetDefault("chat.greeting", "Hello! How can I help you today?")
	viper.SetDefault("chat.max_stream_buffer", 1<<20)

	viper.SetDefault("auth.default_role", "student")

	viper.SetDefault("logging.log_file", "./.parley/system.log")
	viper.SetDefault("logging.preserve", true)
	viper.SetDefault("logging.level", "info")
}

// processDurations parses the string duration fields into time.Duration
func processDurations(c *Config) error {
	var err error
	if c.Server.Timeout, err = parseDuration(c.Server.TimeoutStr, 30*time.Second); err != nil {
		return fmt.Errorf("server.timeout: %w", err)
	}
	if c.Server.IdleTimeout, err = parseDuration(c.Server.IdleTimeoutStr, 60*time.Second); err != nil {
		return fmt.Errorf("server.idle_timeout: %w", err)
	}
	return nil
}

// parseDuration accepts either a Go duration string ("90s") or a bare
// number of seconds ("90").
func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	return d, nil
}
