package config

import (
	"os"
	"regexp"
	"time"

	"github.com/102326/PyLab/pkg/helper"
	"github.com/102326/PyLab/pkg/trace"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// NotifydConfig represents the notify service configuration
	NotifydConfig struct {
		Port      int             `yaml:"port" validate:"gte=0,lte=65535"`
		Logger    LoggerConfig    `yaml:"logger"`
		Transport TransportConfig `yaml:"transport"`
		WebSocket WebSocketConfig `yaml:"websocket"`
		Auth      AuthConfig      `yaml:"auth"`
		Metrics   MetricsConfig   `yaml:"metrics"`
		Tracing   trace.Config    `yaml:"tracing"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	// WebSocketConfig tunes the inbound real-time connections
	WebSocketConfig struct {
		HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		ReadLimit        int64         `yaml:"read_limit"` // max inbound frame size in bytes
		AllowedOrigins   []string      `yaml:"allowed_origins"`
	}

	// AuthConfig defines the authentication configuration
	AuthConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	// JWTConfig enables token checks on /ws when SecretKey is set
	JWTConfig struct {
		SecretKey string        `yaml:"secret_key" validate:"omitempty,min=32"`
		Duration  time.Duration `yaml:"duration"`
	}

	// MetricsConfig represents the prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Buckets   []float64 `yaml:"buckets"`
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*NotifydConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg NotifydConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	cfg.SetDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, cfgPath, err
	}

	return &cfg, cfgPath, nil
}

// SetDefaults fills zero values with the service defaults
func (c *NotifydConfig) SetDefaults() {
	if c.Port == 0 {
		c.Port = 5235
	}
	c.Transport.setDefaults()
	if c.WebSocket.HandshakeTimeout <= 0 {
		c.WebSocket.HandshakeTimeout = 10 * time.Second
	}
	if c.WebSocket.WriteTimeout <= 0 {
		c.WebSocket.WriteTimeout = 10 * time.Second
	}
	if c.WebSocket.ReadLimit <= 0 {
		c.WebSocket.ReadLimit = 64 * 1024
	}
	if c.Auth.JWT.Duration <= 0 {
		c.Auth.JWT.Duration = 24 * time.Hour
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "notifyd"
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "notifyd"
	}
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
