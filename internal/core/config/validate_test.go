package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Session.UserID = "42"
	return &cfg
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	assert.NoError(t, cfg.ValidateDeep(path))
	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_StructuralErrorsFirst(t *testing.T) {
	cfg := validConfig(t)
	cfg.Search.MinLength = 0
	cfg.TUI.Theme = "nope"

	assert.Equal(t, []string{"search.min_length"}, fieldNames(t, cfg.ValidateDeep("")))
}

func TestValidateDeep_UnknownTheme(t *testing.T) {
	cfg := validConfig(t)
	cfg.TUI.Theme = "solarized-neon"

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep("")), "tui.theme")
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	cfg := validConfig(t)
	file := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	cfg.DataDir = file

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep("")), "data_dir")
}

func TestValidateDeep_MissingDataDirIsFine(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = filepath.Join(t.TempDir(), "not", "yet")

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep(t.TempDir())), "config_file")
}

func TestWarnings(t *testing.T) {
	t.Run("clean config", func(t *testing.T) {
		assert.Empty(t, validConfig(t).Warnings())
	})

	t.Run("anonymous session", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Session.UserID = " "

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "session.user_id", warnings[0].Item)
	})

	t.Run("reconnect disabled", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Push.Reconnect.Enabled = false

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "Push", warnings[0].Category)
	})

	t.Run("idle above open", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Database.MaxIdleConns = 10

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "database.max_idle_conns", warnings[0].Item)
	})

	t.Run("remote plain http", func(t *testing.T) {
		cfg := validConfig(t)
		cfg.Backend.BaseURL = "http://shop.example.com"

		warnings := cfg.Warnings()
		require.Len(t, warnings, 1)
		assert.Equal(t, "Backend", warnings[0].Category)
	})
}
