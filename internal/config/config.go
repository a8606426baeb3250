// Package config provides configuration management for shelfctl.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/ini.v1"
)

// ConfigDir is the directory name under the user config root holding
// shelfctl state (config file and token).
const ConfigDir = "shelf"

const (
	// DefaultAPIBaseURL is used when no deployment URL is configured.
	DefaultAPIBaseURL = "http://localhost:8000"

	// DefaultMaxUploadBytes caps uploads at 50 MiB unless overridden.
	DefaultMaxUploadBytes = 50 * 1024 * 1024
)

// Validation errors
var (
	ErrMissingAPIBaseURL = errors.New("api_url is required")
	ErrInvalidMaxUpload  = errors.New("max_upload_bytes must be positive")
)

// Config holds the client configuration. Sources are merged in priority
// order: defaults < config file < environment (SHELF_*) < flags.
//
// Config file location: ~/.config/shelf/config (Windows:
// %APPDATA%\Shelf\config), INI format:
//
//	[shelf]
//	api_url = http://localhost:8000
//	max_upload_bytes = 52428800
type Config struct {
	APIBaseURL     string `ini:"api_url" envconfig:"API_URL"`
	MaxUploadBytes int64  `ini:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`

	// TokenPath overrides the default token file location.
	TokenPath string `ini:"token_path" envconfig:"TOKEN_PATH"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		APIBaseURL:     DefaultAPIBaseURL,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}
}

// Load reads the config file (if present) and applies SHELF_* environment
// overrides. A missing file is not an error; a malformed one is. A .env file
// in the working directory is honored before the environment is read.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			file, err := ini.Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
			section := file.Section("shelf")
			cfg.APIBaseURL = section.Key("api_url").MustString(cfg.APIBaseURL)
			cfg.MaxUploadBytes = section.Key("max_upload_bytes").MustInt64(cfg.MaxUploadBytes)
			cfg.TokenPath = section.Key("token_path").String()
		}
	}

	if err := envconfig.Process("shelf", cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSuffix(cfg.APIBaseURL, "/")
	return cfg, nil
}

// Save writes the config file atomically with owner-only permissions.
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return errors.New("could not determine config path")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file := ini.Empty()
	section, err := file.NewSection("shelf")
	if err != nil {
		return fmt.Errorf("failed to create config section: %w", err)
	}
	section.Key("api_url").SetValue(cfg.APIBaseURL)
	section.Key("max_upload_bytes").SetValue(fmt.Sprintf("%d", cfg.MaxUploadBytes))
	if cfg.TokenPath != "" {
		section.Key("token_path").SetValue(cfg.TokenPath)
	}

	tmpPath := path + ".tmp"
	if err := file.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return ErrMissingAPIBaseURL
	}
	if c.MaxUploadBytes <= 0 {
		return ErrInvalidMaxUpload
	}
	return nil
}

// ResolvedTokenPath returns the configured token path, or the default.
func (c *Config) ResolvedTokenPath() string {
	if c.TokenPath != "" {
		return c.TokenPath
	}
	return DefaultTokenPath()
}

// getConfigDir returns the platform-appropriate config directory.
// - Windows: %APPDATA%\Shelf
// - Unix: ~/.config/shelf (XDG standard)
func getConfigDir() string {
	if runtime.GOOS == "windows" {
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Shelf")
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", ConfigDir)
	}
	return ""
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	dir := getConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config")
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir := getConfigDir()
	if dir == "" {
		return errors.New("could not determine config directory")
	}
	return os.MkdirAll(dir, 0700)
}
