// Package settings persists the last-used options under the platform config
// directory. Loading and saving are best-effort: any problem falls back to
// built-in defaults and is never surfaced to the user.
package settings

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"liteconvert/contracts"
)

const (
	appDirName = "LiteConvert"
	fileName   = "settings.yaml"
)

// Settings is the flat record of last-used values, loaded once at startup and
// written once at shutdown.
type Settings struct {
	LastOutputDir       string `yaml:"last_output_dir"`
	LastMode            string `yaml:"last_mode"`
	PreserveOrientation bool   `yaml:"preserve_exif_orientation"`
	Quality             int    `yaml:"quality"`
	DPI                 int    `yaml:"dpi"`
	PageRange           string `yaml:"page_range"`
	PageSize            string `yaml:"page_size"`
	FitMode             string `yaml:"fit_mode"`
	MarginsMM           int    `yaml:"margins_mm"`
	OverwritePolicy     string `yaml:"overwrite_policy"`
	NamingPattern       string `yaml:"naming_pattern"`
}

// Default returns the built-in settings.
func Default() Settings {
	return Settings{
		LastMode:            contracts.HEICToJPG.Label(),
		PreserveOrientation: true,
		Quality:             90,
		DPI:                 200,
		PageSize:            contracts.PageAuto.String(),
		FitMode:             contracts.Fit.String(),
		OverwritePolicy:     contracts.AutoRename.String(),
		NamingPattern:       "{name}_{mode}",
	}
}

// Path returns the settings file location under the user config directory.
func Path() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

// Load reads the persisted settings, defaulting field by field: absent fields
// keep their defaults, a missing or malformed file yields pure defaults.
func Load() Settings {
	path, err := Path()
	if err != nil {
		return Default()
	}
	return LoadFrom(path)
}

// LoadFrom is Load against an explicit path.
func LoadFrom(path string) Settings {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Default()
	}
	return s
}

// Save persists the settings. The returned error exists for logging only;
// callers proceed regardless.
func (s Settings) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}
	return s.SaveTo(path)
}

// SaveTo is Save against an explicit path.
func (s Settings) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
