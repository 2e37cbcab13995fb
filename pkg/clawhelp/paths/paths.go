// Package paths resolves where clawhelp keeps its state: the settings
// database, the console history and the default config file.
package paths

import (
	"os"
	"path/filepath"
)

// AppName is the application name used for the state directory.
const AppName = "clawhelp"

// StateDirEnv overrides the state directory.
const StateDirEnv = "CLAWHELP_STATE_DIR"

// ConfigPathEnv overrides the config file path.
const ConfigPathEnv = "CLAWHELP_CONFIG_PATH"

// DatabaseFile is the default SQLite file name inside the data directory.
const DatabaseFile = "clawhelp.db"

// ResolveStateDir returns the state directory.
// Precedence: CLAWHELP_STATE_DIR > ~/.clawhelp > .
func ResolveStateDir() string {
	if dir := os.Getenv(StateDirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "."+AppName)
}

// ResolveDataDir returns the data directory.
func ResolveDataDir() string {
	return filepath.Join(ResolveStateDir(), "data")
}

// ResolveDatabasePath returns the path of a database file in the data directory.
func ResolveDatabasePath(filename string) string {
	if filename == "" {
		filename = DatabaseFile
	}
	return filepath.Join(ResolveDataDir(), filepath.Base(filename))
}

// ResolveHistoryFile returns the console readline history file.
func ResolveHistoryFile() string {
	return filepath.Join(ResolveStateDir(), "console_history")
}

// ResolveConfigPath returns the config file path.
// Precedence: CLAWHELP_CONFIG_PATH > <state>/config.yaml > ./clawhelp.yaml > ./config.yaml
func ResolveConfigPath() string {
	if path := os.Getenv(ConfigPathEnv); path != "" {
		return path
	}

	statePath := filepath.Join(ResolveStateDir(), "config.yaml")
	if _, err := os.Stat(statePath); err == nil {
		return statePath
	}

	for _, p := range []string{"clawhelp.yaml", "clawhelp.yml", "config.yaml"} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return statePath
}

// EnsureStateDirs creates the state directory layout.
func EnsureStateDirs() error {
	for _, dir := range []string{ResolveStateDir(), ResolveDataDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
