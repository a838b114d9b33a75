package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Account holds the connection settings for one CardDAV account. The password
// is never stored here; it lives in the system keyring under KeyringService
// keyed by the username.
type Account struct {
	// Name is the user-defined label for this account, also used as the
	// address book ID prefix in the local cache.
	Name string `mapstructure:"name" yaml:"name"`

	// URL is the CardDAV endpoint (or plain server base for discovery).
	URL string `mapstructure:"url" yaml:"url"`

	// Username for HTTP basic auth and keyring lookup.
	Username string `mapstructure:"username" yaml:"username"`
}

// SyncSettings controls the background synchronization loop.
type SyncSettings struct {
	// IntervalMin is the delay between sync passes in minutes. Zero disables
	// the loop after the initial pass.
	IntervalMin int `mapstructure:"interval_min" yaml:"interval_min"`
}

// CalendarSettings controls the birthday feed.
type CalendarSettings struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    string `mapstructure:"port" yaml:"port"`

	// Reminder is an ISO8601 trigger duration (e.g. "-P1D"); empty disables alarms.
	Reminder string `mapstructure:"reminder" yaml:"reminder"`
}

// Settings is the top-level application configuration loaded from YAML.
type Settings struct {
	Accounts []Account        `mapstructure:"accounts" yaml:"accounts"`
	Database string           `mapstructure:"database" yaml:"database"`
	Sync     SyncSettings     `mapstructure:"sync" yaml:"sync"`
	Calendar CalendarSettings `mapstructure:"calendar" yaml:"calendar"`
}

// DefaultSettingsPath returns ~/.config/cardsync/config.yaml, falling back to
// the working directory when the home dir cannot be determined.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", SettingsFileName)
	}
	return filepath.Join(home, ".config", "cardsync", SettingsFileName)
}

// defaultSettings returns a sensible default configuration.
func defaultSettings() *Settings {
	return &Settings{
		Database: filepath.Join(filepath.Dir(DefaultSettingsPath()), DatabaseFileName),
		Sync:     SyncSettings{IntervalMin: DefaultSyncMin},
		Calendar: CalendarSettings{Enabled: true, Port: DefaultPort},
	}
}

// LoadSettings reads the configuration from the given YAML file using Viper.
// A missing file yields the defaults rather than an error.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database", defaultSettings().Database)
	v.SetDefault("sync.interval_min", DefaultSyncMin)
	v.SetDefault("calendar.enabled", true)
	v.SetDefault("calendar.port", DefaultPort)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultSettings(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultSettings(), nil
		}
		return nil, fmt.Errorf("%s %s: %w", ErrSettingsLoad, path, err)
	}

	cfg := defaultSettings()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%s %s: %w", ErrSettingsLoad, path, err)
	}

	return cfg, nil
}

// SaveSettings writes the configuration to a YAML file at path, creating
// parent directories if needed.
func SaveSettings(path string, cfg *Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPermUserRWX); err != nil {
		return fmt.Errorf("%s: %w", ErrCreateDir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("accounts", cfg.Accounts)
	v.Set("database", cfg.Database)
	v.Set("sync", cfg.Sync)
	v.Set("calendar", cfg.Calendar)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing settings to %s: %w", path, err)
	}

	return nil
}
