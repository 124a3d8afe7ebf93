package commands

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colonyops/storefront/internal/core/config"
)

func TestDefaultPaths_RespectXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_STATE_HOME", "/state")

	assert.Equal(t, filepath.Join("/cfg", "storefront", "config.yaml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/data", "storefront"), DefaultDataDir())
	assert.Equal(t, filepath.Join("/state", "storefront", "storefront.log"), DefaultLogFile())
}

func TestFlags_ApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Session.UserID = "7"

	(&Flags{}).ApplyOverrides(&cfg)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.BaseURL)
	assert.Equal(t, "7", cfg.Session.UserID)

	(&Flags{BaseURL: "https://shop.example.com", UserID: "42"}).ApplyOverrides(&cfg)
	assert.Equal(t, "https://shop.example.com", cfg.Backend.BaseURL)
	assert.Equal(t, "42", cfg.Session.UserID)
}
