package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/freestar-tools/g2persist/internal/module"
)

// Settings is the resolved process configuration. It is passed explicitly
// to whatever needs it; nothing in the program reads settings globally.
type Settings struct {
	SettingsVersion string             `mapstructure:"settings_version" yaml:"settings_version"`
	InstallDir      string             `mapstructure:"install_dir" yaml:"install_dir"`
	ConfigFile      string             `mapstructure:"config_file" yaml:"config_file"`
	Tool            string             `mapstructure:"tool" yaml:"tool"`
	Admin           string             `mapstructure:"admin" yaml:"admin"`
	Modules         string             `mapstructure:"modules" yaml:"modules"`
	Timers          map[string]float64 `mapstructure:"timers" yaml:"timers"`
	DefaultTimer    float64            `mapstructure:"default_timer" yaml:"default_timer"`
	CommandTimeout  int                `mapstructure:"command_timeout" yaml:"command_timeout"`
	CommandRetries  int                `mapstructure:"command_retries" yaml:"command_retries"`
	Schedule        string             `mapstructure:"schedule" yaml:"schedule"`

	// Source is the settings file that was read, if any.
	Source string `mapstructure:"-" yaml:"-"`
}

// ConfigPath returns the g2_link.cfg path. A relative ConfigFile is taken
// relative to InstallDir.
func (s Settings) ConfigPath() string {
	return resolve(s.InstallDir, s.ConfigFile)
}

// ToolPath returns the g2link_test executable path. A relative Tool is
// taken relative to InstallDir.
func (s Settings) ToolPath() string {
	return resolve(s.InstallDir, s.Tool)
}

// ModuleSet parses Modules into a module.Set.
func (s Settings) ModuleSet() (module.Set, error) {
	set, err := module.ParseSet(strings.ToUpper(s.Modules))
	if err != nil {
		return nil, fmt.Errorf("settings %s: %w", KeyModules, err)
	}
	return set, nil
}

// TimerTable returns the per-module idle timers keyed by module.
func (s Settings) TimerTable() map[module.ID]float64 {
	table := make(map[module.ID]float64, len(s.Timers))
	for k, v := range s.Timers {
		table[module.ID(strings.ToUpper(k))] = v
	}
	return table
}

func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}
