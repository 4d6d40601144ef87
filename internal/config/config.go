// Package config handles loading and managing sigvault configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

// SignalConfig holds settings for locating and unlocking the Signal
// Desktop database.
type SignalConfig struct {
	DataDir string `toml:"data_dir"` // Signal Desktop data directory
	Key     string `toml:"key"`      // explicit hex database key (overrides config.json)
}

// QueryConfig holds query-layer behavior flags.
type QueryConfig struct {
	IncludeEmpty        bool     `toml:"include_empty"`        // include chats with zero messages
	IncludeDisappearing bool     `toml:"include_disappearing"` // accepted for compatibility; queries do not filter on it
	Chats               []string `toml:"chats"`                // restrict to these chat ids / service ids
}

type Config struct {
	Signal SignalConfig `toml:"signal"`
	Query  QueryConfig  `toml:"query"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// DefaultHome returns the default sigvault home directory.
// Respects SIGVAULT_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("SIGVAULT_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sigvault"
	}
	return filepath.Join(home, ".sigvault")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.sigvault/config.toml).
// The config file is optional; defaults apply when it is absent.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Signal.DataDir = expandPath(cfg.Signal.DataDir)

	return cfg, nil
}

// SignalDir resolves the Signal Desktop data directory:
// explicit config value > SIGNAL_DATA_DIR environment variable >
// platform default, falling back to the sandboxed (Flatpak) location
// on Linux when the standard directory does not exist.
func (c *Config) SignalDir() string {
	if c.Signal.DataDir != "" {
		return c.Signal.DataDir
	}
	if dir := os.Getenv("SIGNAL_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}
	return defaultSignalDir()
}

// DatabasePath returns the path of the encrypted SQLCipher database
// inside the Signal data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.SignalDir(), "sql", "db.sqlite")
}

func defaultSignalDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "Signal"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Signal")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "Signal")
		}
		return filepath.Join(home, "AppData", "Roaming", "Signal")
	default:
		standard := filepath.Join(home, ".config", "Signal")
		if _, err := os.Stat(standard); err == nil {
			return standard
		}
		// Flatpak installs keep their config under ~/.var/app.
		flatpak := filepath.Join(home, ".var", "app", "org.signal.Signal", "config", "Signal")
		if _, err := os.Stat(flatpak); err == nil {
			return flatpak
		}
		return standard
	}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
