package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// APIConfig holds connection settings for the booking platform backend.
type APIConfig struct {
	// BaseURL is the root URL of the platform API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// PageSize is the notification feed page size.
	PageSize int `mapstructure:"page_size" yaml:"page_size"`

	// RequestTimeoutSec bounds a single HTTP request.
	RequestTimeoutSec int `mapstructure:"request_timeout_sec" yaml:"request_timeout_sec"`

	// StrategyTimeoutSec bounds one resolution-chain strategy so a slow
	// lookup cannot stall the whole chain.
	StrategyTimeoutSec int `mapstructure:"strategy_timeout_sec" yaml:"strategy_timeout_sec"`
}

// LogConfig holds logging preferences. The TUI owns stdout, so logs
// always go to a file.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API APIConfig `mapstructure:"api" yaml:"api"`
	Log LogConfig `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/glowdesk/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "glowdesk", "config.yaml")
}

// DefaultLogPath returns the default log file location.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "glowdesk.log")
	}
	return filepath.Join(home, ".config", "glowdesk", "glowdesk.log")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		API: APIConfig{
			PageSize:           20,
			RequestTimeoutSec:  30,
			StrategyTimeoutSec: 10,
		},
		Log: LogConfig{
			Level: "info",
			Path:  DefaultLogPath(),
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("api.page_size", 20)
	v.SetDefault("api.request_timeout_sec", 30)
	v.SetDefault("api.strategy_timeout_sec", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", DefaultLogPath())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api", cfg.API)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
