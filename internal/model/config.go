package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendJSON   = "json"
	StoreBackendSQLite = "sqlite"
)

// envPrefix prefixes environment overrides, e.g. TEMPBOX_API_BASE_URL.
const envPrefix = "TEMPBOX"

// APIConfig holds the provider connection settings.
type APIConfig struct {
	// BaseURL is the root URL of the mail.tm compatible provider.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds every HTTP round trip.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// AccountConfig controls generated credentials.
type AccountConfig struct {
	UsernameLength int `mapstructure:"username_length" yaml:"username_length"`
	PasswordLength int `mapstructure:"password_length" yaml:"password_length"`
}

// WaitConfig holds the wait-for-new-mail defaults offered by the menu.
type WaitConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
	MaxChecks   int `mapstructure:"max_checks" yaml:"max_checks"`
}

// RefreshConfig holds the TUI auto-refresh period.
type RefreshConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// ExportConfig controls where exported messages are written.
type ExportConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// StoreConfig selects the saved-account backend.
type StoreConfig struct {
	// Backend is "json" (flat file) or "sqlite".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the file backing the store. Empty selects a default in
	// the config directory.
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	API     APIConfig     `mapstructure:"api" yaml:"api"`
	Account AccountConfig `mapstructure:"account" yaml:"account"`
	Wait    WaitConfig    `mapstructure:"wait" yaml:"wait"`
	Refresh RefreshConfig `mapstructure:"refresh" yaml:"refresh"`
	Export  ExportConfig  `mapstructure:"export" yaml:"export"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
}

// ConfigDir returns ~/.config/tempbox, or "." when the home directory
// cannot be determined.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "tempbox")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/tempbox/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// StorePath returns the configured store file, or the backend's default.
func (c *AppConfig) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	if c.Store.Backend == StoreBackendSQLite {
		return filepath.Join(ConfigDir(), "tempbox.db")
	}
	return filepath.Join(ConfigDir(), "tempbox_accounts.json")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", "https://api.mail.tm")
	v.SetDefault("api.timeout_sec", 30)
	v.SetDefault("account.username_length", 10)
	v.SetDefault("account.password_length", 16)
	v.SetDefault("wait.interval_sec", 10)
	v.SetDefault("wait.max_checks", 10)
	v.SetDefault("refresh.interval_sec", 30)
	v.SetDefault("export.dir", ".")
	v.SetDefault("store.backend", StoreBackendJSON)
	v.SetDefault("store.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(ConfigDir(), "tempbox.log"))
}

// LoadDotEnv loads KEY=value pairs from path into the environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// A missing file yields the defaults. TEMPBOX_* environment variables
// override both, e.g. TEMPBOX_API_BASE_URL for api.base_url.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Store.Backend {
	case StoreBackendJSON, StoreBackendSQLite:
	default:
		return nil, fmt.Errorf(
			"parsing config %s: unknown store backend %q", path, cfg.Store.Backend,
		)
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
	v.Set("account", cfg.Account)
	v.Set("wait", cfg.Wait)
	v.Set("refresh", cfg.Refresh)
	v.Set("export", cfg.Export)
	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *AppConfig {
	v := viper.New()
	setDefaults(v)
	cfg := &AppConfig{}
	_ = v.Unmarshal(cfg)
	return cfg
}
