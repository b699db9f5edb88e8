package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.yaml.in/yaml/v3"
)

// SupportedSettingsVersion is the semver constraint settings files must
// declare a settings_version within.
const SupportedSettingsVersion = "^1.0.0"

// CheckVersion verifies that a settings_version value is understood by this
// build. A leading "v" is tolerated.
func CheckVersion(version string) error {
	constraint, err := semver.NewConstraint(SupportedSettingsVersion)
	if err != nil {
		return fmt.Errorf("parsing settings version constraint: %w", err)
	}
	v, err := semver.NewVersion(strings.TrimPrefix(version, "v"))
	if err != nil {
		return fmt.Errorf("parsing %s %q: %w", KeySettingsVersion, version, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%s %s is not supported by this build (want %s)", KeySettingsVersion, version, SupportedSettingsVersion)
	}
	return nil
}

// CheckFileVersion checks the settings_version declared in a settings file.
// A file that does not declare one is accepted.
func CheckFileVersion(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading settings file %s: %w", path, err)
	}
	var header struct {
		SettingsVersion string `yaml:"settings_version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	if header.SettingsVersion == "" {
		return nil
	}
	return CheckVersion(header.SettingsVersion)
}
