package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"pup/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/pup"
	configFileName = "config.yaml"

	// DefaultSite is the Datadog site used when none is configured.
	DefaultSite = "datadoghq.com"
)

// Config is pup's resolved runtime configuration.
type Config struct {
	// Site is the Datadog site, e.g. "datadoghq.com" or "datadoghq.eu".
	Site string

	// Org selects an organizational identity on the site. Empty means the
	// default (org-less) session.
	Org string

	// AccessToken is a bearer token supplied via DD_ACCESS_TOKEN or the
	// config file. When set, it takes precedence over stored OAuth tokens.
	AccessToken string

	// TokenStorage overrides storage backend auto-detection
	// ("keychain", "file" or "memory").
	TokenStorage string
}

// fileConfig is the on-disk shape of ~/.config/pup/config.yaml.
type fileConfig struct {
	Site        string `yaml:"site,omitempty"`
	Org         string `yaml:"org,omitempty"`
	AccessToken string `yaml:"access_token,omitempty"`
}

// Dir returns pup's configuration directory, honoring the PUP_CONFIG_DIR
// override used by tests and unusual installs.
func Dir() (string, error) {
	if dir := os.Getenv("PUP_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// Load resolves the configuration from defaults, the config file and the
// environment. Flag overrides are applied by the caller after this returns.
func Load() (*Config, error) {
	cfg := &Config{Site: DefaultSite}

	fileCfg, err := loadConfigFile()
	if err != nil {
		return nil, err
	}
	if fileCfg.Site != "" {
		cfg.Site = fileCfg.Site
	}
	cfg.Org = fileCfg.Org
	cfg.AccessToken = fileCfg.AccessToken

	if site := os.Getenv("DD_SITE"); site != "" {
		cfg.Site = site
	}
	if org := os.Getenv("DD_ORG"); org != "" {
		cfg.Org = org
	}
	if token := os.Getenv("DD_ACCESS_TOKEN"); token != "" {
		cfg.AccessToken = token
	}
	cfg.TokenStorage = os.Getenv("DD_TOKEN_STORAGE")

	return cfg, nil
}

// loadConfigFile reads the optional config.yaml. A missing file yields the
// zero value; a malformed file is an error so typos do not silently
// reconfigure the tool.
func loadConfigFile() (fileConfig, error) {
	var fc fileConfig

	dir, err := Dir()
	if err != nil {
		return fc, err
	}
	path := filepath.Join(dir, configFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "no config.yaml at %s, using defaults", path)
			return fc, nil
		}
		return fc, fmt.Errorf("error reading config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	logging.Debug("Config", "loaded configuration from %s", path)
	return fc, nil
}
