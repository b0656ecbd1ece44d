// Package config provides centralized configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ErrMissingBaseURL is returned by Validate when no backend is configured
var ErrMissingBaseURL = errors.New("base_url is not configured")

// DevConfig configures the local stub backend
type DevConfig struct {
	Addr   string `mapstructure:"addr" yaml:"addr"`
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// Config holds all configuration values for stride.
type Config struct {
	BaseURL             string        `mapstructure:"base_url" yaml:"base_url"`
	RequestTimeout      time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	LogLevel            string        `mapstructure:"log_level" yaml:"log_level"`
	LogFile             string        `mapstructure:"log_file" yaml:"log_file"`
	RollbackOnFailure   bool          `mapstructure:"rollback_on_failure" yaml:"rollback_on_failure"`
	CascadeRemote       bool          `mapstructure:"cascade_remote" yaml:"cascade_remote"`
	GenerateMaxSubtasks int           `mapstructure:"generate_max_subtasks" yaml:"generate_max_subtasks"`
	TimerMinutes        int           `mapstructure:"timer_minutes" yaml:"timer_minutes"`
	Dev                 DevConfig     `mapstructure:"dev" yaml:"dev"`
}

// envBindings maps config keys to their environment variables
var envBindings = map[string]string{
	"base_url":              "STRIDE_BASE_URL",
	"request_timeout":       "STRIDE_REQUEST_TIMEOUT",
	"log_level":             "STRIDE_LOG_LEVEL",
	"log_file":              "STRIDE_LOG_FILE",
	"rollback_on_failure":   "STRIDE_ROLLBACK_ON_FAILURE",
	"cascade_remote":        "STRIDE_CASCADE_REMOTE",
	"generate_max_subtasks": "STRIDE_GENERATE_MAX_SUBTASKS",
	"timer_minutes":         "STRIDE_TIMER_MINUTES",
	"dev.addr":              "STRIDE_DEV_ADDR",
	"dev.db_path":           "STRIDE_DEV_DB_PATH",
}

// Load loads configuration with full precedence:
// ENV vars > project config > XDG global config > defaults
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("stride")

	v.SetDefault("base_url", "")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("rollback_on_failure", true)
	v.SetDefault("cascade_remote", true)
	v.SetDefault("generate_max_subtasks", 5)
	v.SetDefault("timer_minutes", 25)
	v.SetDefault("dev.addr", "127.0.0.1:8787")
	v.SetDefault("dev.db_path", "")

	v.SetEnvPrefix("STRIDE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("binding %s env: %w", key, err)
		}
	}

	globalPath := GlobalPath()
	if fileExists(globalPath) {
		v.SetConfigFile(globalPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading global config: %w", err)
		}
	}

	projectPath := ProjectPath()
	if fileExists(projectPath) {
		v.SetConfigFile(projectPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merging project config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings every remote call depends on
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrMissingBaseURL
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative, got %s", c.RequestTimeout)
	}
	return nil
}

// Exists returns true if any config file exists (global or project).
func Exists() bool {
	return fileExists(GlobalPath()) || fileExists(ProjectPath())
}

// GlobalPath returns the XDG global config path.
// Returns ~/.config/stride/stride.yml or $XDG_CONFIG_HOME/stride/stride.yml.
func GlobalPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "stride", "stride.yml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stride", "stride.yml")
}

// ProjectPath returns the project-local config path.
func ProjectPath() string {
	return "stride.yml"
}

// WriteGlobal writes the config to the XDG global location.
func WriteGlobal(cfg *Config) error {
	path := GlobalPath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	return write(path, cfg)
}

// WriteProject writes the config to the project-local location.
func WriteProject(cfg *Config) error {
	return write(ProjectPath(), cfg)
}

func write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
