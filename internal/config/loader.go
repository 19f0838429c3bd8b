// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/coral-mesh/cygdb/internal/constants"
)

// Loader handles loading and saving the configuration file.
type Loader struct {
	baseDir string
}

// NewLoader creates a new config loader.
// The base directory is resolved in this order:
//  1. CYGDB_CONFIG environment variable.
//  2. User home directory (~/.cygdb).
//  3. /tmp/cygdb-fallback (containers without a home dir).
func NewLoader() *Loader {
	if baseDir := os.Getenv("CYGDB_CONFIG"); baseDir != "" {
		return &Loader{baseDir: baseDir}
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return &Loader{baseDir: filepath.Join(homeDir, constants.DefaultDir)}
	}

	return &Loader{baseDir: "/tmp/cygdb-fallback"}
}

// Path returns the path of the config file.
func (l *Loader) Path() string {
	return filepath.Join(l.baseDir, constants.ConfigFile)
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields defaults. Environment overrides are applied
// last and the result is validated.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		path = l.Path()
	}

	cfg := DefaultConfig()

	//nolint:gosec // G304: path comes from the operator.
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		applyDefaults(cfg)
	}

	if err := MergeFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save writes cfg to the default location.
func (l *Loader) Save(cfg *Config) error {
	path := l.Path()

	//nolint:gosec // G301: directory needs standard permissions for traversal.
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	//nolint:gosec // G306: config holds no secrets.
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}
