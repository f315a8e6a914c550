package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API configuration
	API APIConfig `mapstructure:"api" json:"api"`

	// Local storage paths
	Storage StorageConfig `mapstructure:"storage" json:"storage"`

	// Logging
	Log LogConfig `mapstructure:"log" json:"log"`
}

// APIConfig for persistence API communication.
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" json:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" json:"max_retries"`
	UserAgent  string        `mapstructure:"user_agent" json:"user_agent"`

	// TokenFile holds the bearer token written by `schoolctl login`.
	TokenFile string `mapstructure:"token_file" json:"token_file"`
}

// StorageConfig for local data.
type StorageConfig struct {
	DataDir    string `mapstructure:"data_dir" json:"data_dir"`
	SessionDir string `mapstructure:"session_dir" json:"session_dir"`

	// SessionBackend selects staged-session persistence: json, sqlite.
	SessionBackend string `mapstructure:"session_backend" json:"session_backend"`

	// MaxUploadSize caps a staged file in bytes.
	MaxUploadSize int64 `mapstructure:"max_upload_size" json:"max_upload_size"`
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" json:"format"` // text, json
	File   string `mapstructure:"file" json:"file"`     // empty = stderr
	Color  bool   `mapstructure:"color" json:"color"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".schoolctl"

	return &Config{
		API: APIConfig{
			BaseURL:    "https://api.schooladmin.example.com",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
			UserAgent:  "schoolctl/1.0",
			TokenFile:  filepath.Join(dataDir, "token.json"),
		},
		Storage: StorageConfig{
			DataDir:        dataDir,
			SessionDir:     filepath.Join(dataDir, "sessions"),
			SessionBackend: "json",
			MaxUploadSize:  50 * 1024 * 1024, // 50MB
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
			Color:  true,
		},
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries cannot be negative")
	}

	if c.Storage.MaxUploadSize <= 0 {
		return errors.New("storage.max_upload_size must be positive")
	}

	validBackends := map[string]bool{"json": true, "sqlite": true}
	if !validBackends[c.Storage.SessionBackend] {
		return fmt.Errorf("invalid session backend: %s", c.Storage.SessionBackend)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDir,
		c.Storage.SessionDir,
		filepath.Dir(c.API.TokenFile),
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
