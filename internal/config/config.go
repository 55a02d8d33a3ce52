// Package config resolves CLI configuration from the global config
// file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings the CLI needs to reach the shared database.
type Config struct {
	// GitHubToken authenticates contents-API requests.
	GitHubToken string `yaml:"github_token,omitempty"`
	// Repo is the hosting repository in owner/repo form.
	Repo string `yaml:"repo,omitempty"`
	// CSVPath is the table file path within the repository.
	CSVPath string `yaml:"csv_path,omitempty"`
	// Users maps usernames to bcrypt password hashes.
	Users map[string]string `yaml:"users,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "ccs"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// DefaultCSVPath is where the shared table lives when unconfigured.
	DefaultCSVPath = "data/collision_cross_sections.csv"
)

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/ccs/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// Load reads the global config file and applies environment overrides.
// A missing file is not an error; env vars alone can fully configure
// the CLI.
func Load() (*Config, error) {
	cfg := &Config{}

	path := GlobalConfigPath()
	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if cfg.CSVPath == "" {
		cfg.CSVPath = DefaultCSVPath
	}
	return cfg, nil
}

// Save writes the config to the global config file, creating the
// directory if needed.
func (c *Config) Save() error {
	path := GlobalConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// applyEnv overlays environment variables onto the file config.
// CCS_GITHUB_TOKEN wins over GITHUB_TOKEN; CCS_USERS is a
// comma-separated list of user:bcrypt-hash pairs.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CCS_GITHUB_TOKEN"); v != "" {
		cfg.GitHubToken = v
	} else if v := os.Getenv("GITHUB_TOKEN"); v != "" && cfg.GitHubToken == "" {
		cfg.GitHubToken = v
	}
	if v := os.Getenv("CCS_REPO"); v != "" {
		cfg.Repo = v
	}
	if v := os.Getenv("CCS_CSV_PATH"); v != "" {
		cfg.CSVPath = v
	}
	if v := os.Getenv("CCS_USERS"); v != "" {
		users := make(map[string]string)
		for _, pair := range strings.Split(v, ",") {
			name, hash, ok := strings.Cut(strings.TrimSpace(pair), ":")
			if !ok || name == "" {
				continue
			}
			users[name] = hash
		}
		if len(users) > 0 {
			cfg.Users = users
		}
	}
}

// Validate checks that the settings needed for store access are set.
func (c *Config) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("repository not configured (set CCS_REPO or repo in %s)", GlobalConfigPath())
	}
	if c.CSVPath == "" {
		return fmt.Errorf("csv path not configured")
	}
	return nil
}
