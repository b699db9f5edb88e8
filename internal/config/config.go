package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/freestar-tools/g2persist/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "settings"
	fileType = "yaml"
)

// Setting keys, as used in settings.yaml and (upper-cased, prefixed) in the
// environment.
const (
	KeySettingsVersion = "settings_version"
	KeyInstallDir      = "install_dir"
	KeyConfigFile      = "config_file"
	KeyTool            = "tool"
	KeyAdmin           = "admin"
	KeyModules         = "modules"
	KeyTimers          = "timers"
	KeyDefaultTimer    = "default_timer"
	KeyCommandTimeout  = "command_timeout"
	KeyCommandRetries  = "command_retries"
	KeySchedule        = "schedule"
)

// Dir returns the path to the settings directory (~/.g2persist/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the default settings file (~/.g2persist/settings.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// SetDefaults registers the built-in value of every setting on v. Keys
// without a default are invisible to environment lookups during Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeySettingsVersion, "1.0.0")
	v.SetDefault(KeyInstallDir, "/root/g2_link")
	v.SetDefault(KeyConfigFile, "g2_link.cfg")
	v.SetDefault(KeyTool, "g2link_test")
	v.SetDefault(KeyAdmin, "N0HAP")
	v.SetDefault(KeyModules, "ABC")
	v.SetDefault(KeyTimers, map[string]any{"A": 15, "B": 20, "C": 10})
	v.SetDefault(KeyDefaultTimer, 15)
	v.SetDefault(KeyCommandTimeout, 20)
	v.SetDefault(KeyCommandRetries, 2)
	v.SetDefault(KeySchedule, "@every 1m")
}

// Load resolves Settings through v. file names an explicit settings file,
// which must exist; when empty the default FilePath is used if present.
// Flags should already be bound to v by the caller.
func Load(v *viper.Viper, file string) (Settings, error) {
	SetDefaults(v)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	path, err := settingsFile(file)
	if err != nil {
		return Settings{}, err
	}

	if path != "" {
		result, err := ValidateFile(path)
		if err != nil {
			return Settings{}, err
		}
		if !result.Valid {
			return Settings{}, &InvalidError{Path: path, Issues: result.Issues}
		}

		v.SetConfigFile(path)
		v.SetConfigType(fileType)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
		}
	}

	if err := CheckVersion(v.GetString(KeySettingsVersion)); err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	s.Timers = normalizeTimers(s.Timers)
	s.Source = path
	return s, nil
}

// settingsFile picks the settings file to read, or "" for none.
func settingsFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("settings file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	if v := os.Getenv(branding.EnvVar("settings")); v != "" {
		return settingsFile(v)
	}
	path := FilePath()
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("settings file %s: %w", path, err)
	}
	return path, nil
}

// normalizeTimers upper-cases module keys. Viper folds map keys to lower
// case, while module letters in g2_link are upper case.
func normalizeTimers(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToUpper(k)] = v
	}
	return out
}
