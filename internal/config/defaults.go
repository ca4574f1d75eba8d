package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "mcbopomofo"

// baseDirs are the per-user roots the engine writes under.
type baseDirs struct {
	data   string
	config string
	logs   string
}

// userBaseDirs resolves the base directories for the running OS. Linux and
// the BSDs follow the XDG base directory layout:
//
//	data:   $XDG_DATA_HOME/mcbopomofo   (~/.local/share/mcbopomofo)
//	config: $XDG_CONFIG_HOME/mcbopomofo (~/.config/mcbopomofo)
//	logs:   <data>/logs
//
// macOS keeps data and config under Application Support and logs under
// ~/Library/Logs. Windows uses %APPDATA% for both and %LOCALAPPDATA% for logs.
func userBaseDirs() baseDirs {
	home := homeDir()
	switch runtime.GOOS {
	case "darwin":
		support := filepath.Join(home, "Library", "Application Support", appName)
		return baseDirs{
			data:   support,
			config: support,
			logs:   filepath.Join(home, "Library", "Logs", appName),
		}
	case "windows":
		roaming := envOr("APPDATA", filepath.Join(home, "AppData", "Roaming"))
		local := envOr("LOCALAPPDATA", filepath.Join(home, "AppData", "Local"))
		return baseDirs{
			data:   filepath.Join(roaming, appName),
			config: filepath.Join(roaming, appName),
			logs:   filepath.Join(local, appName, "logs"),
		}
	default:
		data := filepath.Join(xdgDataHome(home), appName)
		return baseDirs{
			data:   data,
			config: filepath.Join(envOr("XDG_CONFIG_HOME", filepath.Join(home, ".config")), appName),
			logs:   filepath.Join(data, "logs"),
		}
	}
}

// PlatformDataDir returns where user phrases and the phrase database live.
func PlatformDataDir() string { return userBaseDirs().data }

// PlatformConfigDir returns the directory holding config.toml.
func PlatformConfigDir() string { return userBaseDirs().config }

// PlatformLogDir returns the directory for rotated engine logs.
func PlatformLogDir() string { return userBaseDirs().logs }

// defaultComponentDir is where IBus looks for per-user engine components.
func defaultComponentDir() string {
	return filepath.Join(xdgDataHome(homeDir()), "ibus", "component")
}

func xdgDataHome(home string) string {
	return envOr("XDG_DATA_HOME", filepath.Join(home, ".local", "share"))
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "."
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
