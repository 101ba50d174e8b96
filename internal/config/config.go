package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/platform"
)

const appName = "tonepicker"

// Config represents the picker configuration
type Config struct {
	Picker  PickerConfig  `json:"picker"`
	Audio   AudioConfig   `json:"audio"`
	Sources SourcesConfig `json:"sources"`
	Music   MusicConfig   `json:"music"`
	Logging LoggingConfig `json:"logging"`
}

// PickerConfig holds the defaults used when a request does not override them
type PickerConfig struct {
	Title           string   `json:"title"`
	PositiveText    string   `json:"positiveText"`
	NegativeText    string   `json:"negativeText"`
	DefaultLabel    string   `json:"defaultLabel"`
	SilentLabel     string   `json:"silentLabel"`
	Types           []string `json:"types"`           // Categories enumerated when none are given on the command line
	PreviewOnSelect *bool    `json:"previewOnSelect"` // default: true
	ShowDefault     bool     `json:"showDefault"`
	ShowSilent      bool     `json:"showSilent"`
}

// AudioConfig represents preview playback settings
type AudioConfig struct {
	Volume float64 `json:"volume"` // 0.0-1.0, default 1.0
	Device string  `json:"device"` // Output device name (empty = system default)
}

// SourcesConfig controls where registry tones come from
type SourcesConfig struct {
	IncludeSystem   *bool               `json:"includeSystem"` // default: true
	MaxSystemDepth  int                 `json:"maxSystemDepth"`
	UserDir         string              `json:"userDir"`         // Holds ringtones/, alarms/, notifications/
	Extra           map[string][]string `json:"extra"`           // category -> extra directories
	DefaultRingtone string              `json:"defaultRingtone"` // Path the "Default" entry resolves to
}

// MusicConfig represents the music library used for the music category
type MusicConfig struct {
	Dirs     []string `json:"dirs"`
	Database string   `json:"database"`
	Workers  int      `json:"workers"`
}

// LoggingConfig controls the log file
type LoggingConfig struct {
	Path  string `json:"path"`
	Debug bool   `json:"debug"`
}

func boolPtr(v bool) *bool {
	return &v
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	userDir := filepath.Join(xdg.DataHome, appName)

	var musicDirs []string
	if xdg.UserDirs.Music != "" {
		musicDirs = []string{xdg.UserDirs.Music}
	}

	return &Config{
		Picker: PickerConfig{
			Title:           "Select ringtone",
			PositiveText:    "OK",
			NegativeText:    "Cancel",
			DefaultLabel:    "Default",
			SilentLabel:     "Silent",
			Types:           []string{"ringtone"},
			PreviewOnSelect: boolPtr(true),
		},
		Audio: AudioConfig{
			Volume: 1.0,
		},
		Sources: SourcesConfig{
			IncludeSystem:  boolPtr(true),
			MaxSystemDepth: 5,
			UserDir:        userDir,
			Extra:          make(map[string][]string),
		},
		Music: MusicConfig{
			Dirs:     musicDirs,
			Database: filepath.Join(userDir, "media.db"),
			Workers:  8,
		},
	}
}

// Load loads configuration from a file.
// If the file doesn't exist, returns default config
func Load(path string) (*Config, error) {
	if !platform.FileExists(path) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.expandPaths()
	config.ApplyDefaults()

	return config, nil
}

// GetConfigPath returns the default config file path (~/.config/tonepicker/config.json on Linux).
func GetConfigPath() (string, error) {
	path, err := xdg.SearchConfigFile(filepath.Join(appName, "config.json"))
	if err == nil {
		return path, nil
	}
	return filepath.Join(xdg.ConfigHome, appName, "config.json"), nil
}

// LoadDefault loads the config from GetConfigPath. A corrupted file is non-fatal:
// a warning is printed and logged, and defaults are used.
func LoadDefault() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}

	cfg, err := Load(path)
	if err != nil {
		msg := fmt.Sprintf("warning: failed to load config from %s: %v, using defaults", path, err)
		fmt.Fprintln(os.Stderr, msg)
		logging.Warn("%s", msg)
		return DefaultConfig(), nil
	}
	return cfg, nil
}

// Save writes the config to path atomically via temp file + rename.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	// Temp file in the same dir keeps os.Rename on one filesystem
	tmpFile, err := os.CreateTemp(dir, "config-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func (c *Config) expandPaths() {
	c.Sources.UserDir = platform.ExpandEnv(c.Sources.UserDir)
	c.Sources.DefaultRingtone = platform.ExpandEnv(c.Sources.DefaultRingtone)
	for cat, dirs := range c.Sources.Extra {
		for i, d := range dirs {
			dirs[i] = platform.ExpandEnv(d)
		}
		c.Sources.Extra[cat] = dirs
	}
	for i, d := range c.Music.Dirs {
		c.Music.Dirs[i] = platform.ExpandEnv(d)
	}
	c.Music.Database = platform.ExpandEnv(c.Music.Database)
	c.Logging.Path = platform.ExpandEnv(c.Logging.Path)
}

// ApplyDefaults fills in missing fields with default values
func (c *Config) ApplyDefaults() {
	defaults := DefaultConfig()

	if c.Picker.Title == "" {
		c.Picker.Title = defaults.Picker.Title
	}
	if c.Picker.PositiveText == "" {
		c.Picker.PositiveText = defaults.Picker.PositiveText
	}
	if c.Picker.NegativeText == "" {
		c.Picker.NegativeText = defaults.Picker.NegativeText
	}
	if c.Picker.DefaultLabel == "" {
		c.Picker.DefaultLabel = defaults.Picker.DefaultLabel
	}
	if c.Picker.SilentLabel == "" {
		c.Picker.SilentLabel = defaults.Picker.SilentLabel
	}
	if len(c.Picker.Types) == 0 {
		c.Picker.Types = defaults.Picker.Types
	}
	if c.Picker.PreviewOnSelect == nil {
		c.Picker.PreviewOnSelect = boolPtr(true)
	}

	if c.Audio.Volume == 0 {
		c.Audio.Volume = 1.0
	}

	if c.Sources.IncludeSystem == nil {
		c.Sources.IncludeSystem = boolPtr(true)
	}
	if c.Sources.MaxSystemDepth <= 0 {
		c.Sources.MaxSystemDepth = defaults.Sources.MaxSystemDepth
	}
	if c.Sources.UserDir == "" {
		c.Sources.UserDir = defaults.Sources.UserDir
	}
	if c.Sources.Extra == nil {
		c.Sources.Extra = make(map[string][]string)
	}

	if c.Music.Database == "" {
		c.Music.Database = defaults.Music.Database
	}
	if c.Music.Workers <= 0 {
		c.Music.Workers = defaults.Music.Workers
	}
}

var validTypes = map[string]bool{
	"ringtone":     true,
	"alarm":        true,
	"notification": true,
	"music":        true,
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Audio.Volume < 0.0 || c.Audio.Volume > 1.0 {
		return fmt.Errorf("audio volume must be between 0.0 and 1.0 (got %.2f)", c.Audio.Volume)
	}

	for _, t := range c.Picker.Types {
		if !validTypes[strings.ToLower(t)] {
			return fmt.Errorf("invalid picker type: %s (must be one of: ringtone, alarm, notification, music)", t)
		}
	}

	for cat := range c.Sources.Extra {
		if lc := strings.ToLower(cat); !validTypes[lc] || lc == "music" {
			return fmt.Errorf("invalid extra source category: %s (must be one of: ringtone, alarm, notification)", cat)
		}
	}

	if c.Sources.MaxSystemDepth < 0 {
		return fmt.Errorf("maxSystemDepth must be >= 0")
	}

	if c.Music.Workers < 0 {
		return fmt.Errorf("music workers must be >= 0")
	}

	return nil
}

// ShouldPreviewOnSelect returns true if tones are previewed when highlighted (default: true)
func (c *Config) ShouldPreviewOnSelect() bool {
	if c.Picker.PreviewOnSelect == nil {
		return true
	}
	return *c.Picker.PreviewOnSelect
}

// ShouldIncludeSystem returns true if platform sound directories are scanned (default: true)
func (c *Config) ShouldIncludeSystem() bool {
	if c.Sources.IncludeSystem == nil {
		return true
	}
	return *c.Sources.IncludeSystem
}
