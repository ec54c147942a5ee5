// Package configpipe locates job files by name and builds the effective
// SystemConfig through the layered defaulting pipeline (spec.md §4.2),
// grounded on the teacher's pkg/worker.LoadConfig (env-var-driven viper
// config discovery). Viper here resolves only WHERE a config layer lives
// (env vars, file search paths); the actual deep-merge across layers is
// performed directly over schema.Node trees, since viper's own merge
// flattens nested structures and cannot express spec.md §4.2's
// mapping-recurse/list-replace law.
package configpipe

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the name used to derive the user site config directory and
// environment variable prefix ("<APP>_..." in spec.md §6).
const AppName = "qphase"

const (
	EnvDefaultsFile = "QPHASE_DEFAULTS_FILE"
	EnvSystemParams = "QPHASE_SYSTEM_PARAMS"
	EnvConfigFile   = "QPHASE_CONFIG"
)

// UserSiteFile returns the OS-appropriate user-level defaults file path
// (spec.md §4.2 layer 2): "$HOME/.config/<app>/defaults.yaml" on
// non-Windows, "%APPDATA%/<app>/defaults.yaml" on Windows.
func UserSiteFile() string {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return ""
		}
		return filepath.Join(appData, AppName, "defaults.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".config", AppName, "defaults.yaml")
}
