package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imlich/cardsync/internal/config"
)

func TestLoadSettings_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := config.LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Empty(t, cfg.Accounts)
	assert.Equal(t, config.DefaultSyncMin, cfg.Sync.IntervalMin)
	assert.True(t, cfg.Calendar.Enabled)
	assert.Equal(t, config.DefaultPort, cfg.Calendar.Port)
	assert.NotEmpty(t, cfg.Database)
}

func TestLoadSettings_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
accounts:
  - name: main
    url: https://dav.example.com/
    username: john
database: /tmp/contacts.db
sync:
  interval_min: 15
calendar:
  enabled: false
  reminder: -P1D
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := config.LoadSettings(path)
	require.NoError(t, err)

	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, "main", cfg.Accounts[0].Name)
	assert.Equal(t, "john", cfg.Accounts[0].Username)
	assert.Equal(t, "/tmp/contacts.db", cfg.Database)
	assert.Equal(t, 15, cfg.Sync.IntervalMin)
	assert.False(t, cfg.Calendar.Enabled)
	assert.Equal(t, "-P1D", cfg.Calendar.Reminder)
	// Unset keys keep their defaults.
	assert.Equal(t, config.DefaultPort, cfg.Calendar.Port)
}

func TestSaveSettings_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := &config.Settings{
		Accounts: []config.Account{
			{Name: "main", URL: "https://dav.example.com/", Username: "john"},
		},
		Database: "/tmp/contacts.db",
		Sync:     config.SyncSettings{IntervalMin: 30},
		Calendar: config.CalendarSettings{Enabled: true, Port: "9999"},
	}
	require.NoError(t, config.SaveSettings(path, cfg))

	loaded, err := config.LoadSettings(path)
	require.NoError(t, err)
	require.Len(t, loaded.Accounts, 1)
	assert.Equal(t, cfg.Accounts[0], loaded.Accounts[0])
	assert.Equal(t, 30, loaded.Sync.IntervalMin)
	assert.Equal(t, "9999", loaded.Calendar.Port)
}
