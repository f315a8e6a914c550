package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader reads configuration from file and environment via viper.
// Precedence: defaults < config file < SCHOOLCTL_* environment.
type Loader struct {
	configPath string
	v          *viper.Viper
}

// NewLoader creates a config loader. An empty configPath searches the
// default locations.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		v:          viper.New(),
	}
}

// Load resolves the final configuration.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	l.v.SetConfigType("yaml")
	if l.configPath != "" {
		l.v.SetConfigFile(l.configPath)
	} else {
		l.v.SetConfigName("schoolctl")
		l.v.AddConfigPath(".")
		l.v.AddConfigPath(filepath.Join("$HOME", ".config", "schoolctl"))
	}

	l.v.SetEnvPrefix("SCHOOLCTL")
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
	l.bindKeys()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine unless one was named explicitly.
		if !errors.As(err, &notFound) {
			if l.configPath == "" {
				return nil, fmt.Errorf("read config: %w", err)
			}
			return nil, fmt.Errorf("read config %s: %w", l.configPath, err)
		}
	}

	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// bindKeys registers every key so AutomaticEnv sees the nested fields.
func (l *Loader) bindKeys() {
	keys := []string{
		"api.base_url",
		"api.timeout",
		"api.max_retries",
		"api.user_agent",
		"api.token_file",
		"storage.data_dir",
		"storage.session_dir",
		"storage.session_backend",
		"storage.max_upload_size",
		"log.level",
		"log.format",
		"log.file",
		"log.color",
	}
	for _, k := range keys {
		_ = l.v.BindEnv(k)
	}
}
