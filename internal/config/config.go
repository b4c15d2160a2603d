package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Backend string        `mapstructure:"backend"`
	Device  int           `mapstructure:"device"`
	Launch  LaunchConfig  `mapstructure:"launch"`
	GPU     GPUConfig     `mapstructure:"gpu"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// LaunchConfig controls how modules derive their launch geometry.
type LaunchConfig struct {
	Threads int  `mapstructure:"threads"`
	Strict  bool `mapstructure:"strict"`
}

// GPUConfig holds webgpu backend settings.
type GPUConfig struct {
	ReadbackTimeout time.Duration `mapstructure:"readback_timeout"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Backend: "host",
		Device:  0,
		Launch: LaunchConfig{
			Threads: 1,
			Strict:  false,
		},
		GPU: GPUConfig{
			ReadbackTimeout: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
		},
	}
}

// Load loads configuration from file, environment, and defaults.
// A missing config file is not an error unless cfgFile names it explicitly.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".devcompute"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DEVCOMPUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Backend == "" {
		return errors.New("backend must not be empty")
	}
	if c.Device < 0 {
		return errors.New("device must not be negative")
	}
	if c.Launch.Threads < 1 {
		return errors.New("launch.threads must be at least 1")
	}
	if c.GPU.ReadbackTimeout <= 0 {
		return errors.New("gpu.readback_timeout must be positive")
	}

	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("device", cfg.Device)

	v.SetDefault("launch.threads", cfg.Launch.Threads)
	v.SetDefault("launch.strict", cfg.Launch.Strict)

	v.SetDefault("gpu.readback_timeout", cfg.GPU.ReadbackTimeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
