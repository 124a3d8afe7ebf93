package commands

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/colonyops/storefront/internal/core/config"
	"github.com/colonyops/storefront/internal/storefront"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	DataDir    string
	BaseURL    string
	UserID     string
	DebugAddr  string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// App is built in the Before hook from Config
	App *storefront.App

	// ConfigErr holds a config load failure so that commands that only
	// inspect configuration can still run.
	ConfigErr error
}

var errNotInitialized = errors.New("storefront is not initialized")

// app returns the App or the reason it could not be built.
func (f *Flags) app() (*storefront.App, error) {
	if f.App != nil {
		return f.App, nil
	}
	if f.ConfigErr != nil {
		return nil, f.ConfigErr
	}
	return nil, errNotInitialized
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "storefront", "config.yaml")
}

// DefaultDataDir returns the default data directory using XDG_DATA_HOME.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "storefront")
}

// DefaultLogFile returns the default log file path using the system's state directory.
// On macOS: ~/Library/Logs/storefront/storefront.log
// On Linux: $XDG_STATE_HOME/storefront/storefront.log (defaults to ~/.local/state/storefront/storefront.log)
func DefaultLogFile() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome != "" {
		return filepath.Join(stateHome, "storefront", "storefront.log")
	}

	home, _ := os.UserHomeDir()

	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "storefront", "storefront.log")
	}

	return filepath.Join(home, ".local", "state", "storefront", "storefront.log")
}

// ApplyOverrides copies command-line overrides onto cfg. Empty values leave
// the configured value alone.
func (f *Flags) ApplyOverrides(cfg *config.Config) {
	if f.BaseURL != "" {
		cfg.Backend.BaseURL = f.BaseURL
	}
	if f.UserID != "" {
		cfg.Session.UserID = f.UserID
	}
}
