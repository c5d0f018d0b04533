// Package config loads the relisten configuration file. The loaded struct
// is passed to components at construction; nothing here mutates globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "relisten"
)

// Config holds all user-tunable settings.
type Config struct {
	// Directory scanned for recording sets.
	LibraryDir string `yaml:"library_dir,omitempty"`

	// Playback-position database path.
	DBPath string `yaml:"db_path,omitempty"`

	// Log file path. The TUI owns the terminal, so logs go to a file.
	LogFile string `yaml:"log_file,omitempty"`

	// Filename convention tokens for audio/transcript pairing.
	SecondaryMarker           string `yaml:"secondary_marker,omitempty"`
	PrimaryTranscriptPrefix   string `yaml:"primary_transcript_prefix,omitempty"`
	SecondaryTranscriptPrefix string `yaml:"secondary_transcript_prefix,omitempty"`

	// Playback clock cadence in milliseconds (default: 250).
	TickMs int `yaml:"tick_ms,omitempty"`

	// Whether the transcript follows the active entry (default: true).
	AutoScroll *bool `yaml:"auto_scroll,omitempty"`

	// Relative seek step in seconds for arrow-key seeks (default: 5).
	SeekStepSeconds float64 `yaml:"seek_step_seconds,omitempty"`
}

// ConfigDir returns the standard config directory for relisten.
// Windows: %APPDATA%\relisten\
// macOS/Linux: ~/.config/relisten/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Exists reports whether a config file is present.
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// DefaultConfig returns a config with all defaults filled in.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses the config file.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadOrDefault loads the config file, falling back to defaults when it is
// missing or unreadable.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return DefaultConfig()
	}
	return cfg
}

// Save writes the config file, creating the directory if needed.
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SecondaryMarker == "" {
		c.SecondaryMarker = "_2"
	}
	if c.PrimaryTranscriptPrefix == "" {
		c.PrimaryTranscriptPrefix = "va_"
	}
	if c.SecondaryTranscriptPrefix == "" {
		c.SecondaryTranscriptPrefix = "rt_"
	}
	if c.TickMs <= 0 {
		c.TickMs = 250
	}
	if c.SeekStepSeconds <= 0 {
		c.SeekStepSeconds = 5
	}
}

// TickInterval returns the playback clock cadence.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// AutoScrollEnabled reports whether follow mode starts enabled.
func (c *Config) AutoScrollEnabled() bool {
	if c.AutoScroll == nil {
		return true
	}
	return *c.AutoScroll
}
