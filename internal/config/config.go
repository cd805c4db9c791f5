package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Platform PlatformConfig `mapstructure:"platform"`
	Window   WindowConfig   `mapstructure:"window"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Timezone string         `mapstructure:"timezone"`
}

// PlatformConfig defines how to reach the chat platform
type PlatformConfig struct {
	Token        string `mapstructure:"token"`
	GatewayURL   string `mapstructure:"gateway_url"`
	APIURL       string `mapstructure:"api_url"`
	Room         string `mapstructure:"room"`
	LogChannelID string `mapstructure:"log_channel_id"`
}

// WindowConfig defines the daily tracking window
type WindowConfig struct {
	Weekdays     []string `mapstructure:"weekdays"`
	Start        string   `mapstructure:"start"`
	End          string   `mapstructure:"end"`
	ScheduledEnd bool     `mapstructure:"scheduled_end"`
}

// ServerConfig defines local listener settings
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("MUSTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Platform defaults
	v.SetDefault("platform.gateway_url", "wss://gateway.example.com/v1")
	v.SetDefault("platform.api_url", "https://api.example.com/v1")
	v.SetDefault("platform.room", "GVG")

	// Window defaults: two weekday evenings, one hour each
	v.SetDefault("window.weekdays", []string{"thursday", "saturday"})
	v.SetDefault("window.start", "14:00")
	v.SetDefault("window.end", "15:00")
	v.SetDefault("window.scheduled_end", true)

	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.metrics_port", 9090)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("timezone", "Europe/London")
}

// validate validates the configuration
func validate(cfg *Config) error {
	// Missing delivery credentials are fatal at startup
	if cfg.Platform.Token == "" {
		return fmt.Errorf("platform token is required")
	}
	if cfg.Platform.LogChannelID == "" {
		return fmt.Errorf("platform log_channel_id is required")
	}
	if cfg.Platform.Room == "" {
		return fmt.Errorf("platform room is required")
	}

	if cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	if _, err := time.Parse("15:04", cfg.Window.Start); err != nil {
		return fmt.Errorf("invalid window start %q: %w", cfg.Window.Start, err)
	}
	if _, err := time.Parse("15:04", cfg.Window.End); err != nil {
		return fmt.Errorf("invalid window end %q: %w", cfg.Window.End, err)
	}

	return nil
}
