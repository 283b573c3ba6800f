// Package config handles player configuration file management.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "termplay"

// Config represents the player configuration
type Config struct {
	Library  LibraryConfig       `toml:"library"`
	Audio    AudioConfig         `toml:"audio"`
	Artwork  ArtworkConfig       `toml:"artwork"`
	Behavior BehaviorConfig      `toml:"behavior"`
	Control  ControlConfig       `toml:"control"`
	Media    MediaConfig         `toml:"media"`
	UI       UIConfig            `toml:"ui"`
	Log      LogConfig           `toml:"log"`
	Keys     map[string][]string `toml:"keys"`
}

// LibraryConfig says where the music is
type LibraryConfig struct {
	// Dir is the media directory; the CLI argument overrides it
	Dir string `toml:"dir"`

	// Extensions restricts the catalog; empty means every supported format
	Extensions []string `toml:"extensions"`

	// CacheMetadata keeps extracted tags in memory per track
	CacheMetadata bool `toml:"cache_metadata"`
}

// AudioConfig contains audio-related settings
type AudioConfig struct {
	// SampleRate for audio output (default: 44100)
	SampleRate int `toml:"sample_rate"`

	// BufferMs in milliseconds (default: 100)
	BufferMs int `toml:"buffer_ms"`

	// Volume level 0.0 - 1.0 (default: 1.0)
	Volume float64 `toml:"volume"`

	// SkipSeconds is how far the skip-ahead key jumps (default: 5)
	SkipSeconds int `toml:"skip_seconds"`

	// ResampleQuality is passed to the resampler, 1-64 (default: 4)
	ResampleQuality int `toml:"resample_quality"`
}

// ArtworkConfig controls cover display
type ArtworkConfig struct {
	// Protocol is auto, sixel, halfblocks or none
	Protocol string `toml:"protocol"`

	// Placeholder is an image shown when a track has no usable cover
	Placeholder string `toml:"placeholder"`

	// ExportDir receives a copy of each embedded cover when set
	ExportDir string `toml:"export_dir"`

	Columns    int `toml:"columns"`
	Rows       int `toml:"rows"`
	CellWidth  int `toml:"cell_width"`
	CellHeight int `toml:"cell_height"`
}

// BehaviorConfig contains behavior-related settings
type BehaviorConfig struct {
	// AutoAdvance plays the next track when one ends
	AutoAdvance bool `toml:"auto_advance"`

	// SkipUnplayable steps over tracks that fail to decode
	SkipUnplayable bool `toml:"skip_unplayable"`
}

// ControlConfig configures the control socket
type ControlConfig struct {
	Enabled bool   `toml:"enabled"`
	Socket  string `toml:"socket"`
}

// MediaConfig configures the OS media session
type MediaConfig struct {
	Enabled bool `toml:"enabled"`
}

// UIConfig controls the player screen
type UIConfig struct {
	// Spectrum shows a frequency meter above the status line
	Spectrum bool `toml:"spectrum"`

	// RefreshMs is how often the meter is redrawn (default: 100)
	RefreshMs int `toml:"refresh_ms"`
}

// LogConfig configures the log file
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      44100,
			BufferMs:        100,
			Volume:          1.0,
			SkipSeconds:     5,
			ResampleQuality: 4,
		},
		Artwork: ArtworkConfig{
			Protocol:   "auto",
			Columns:    32,
			Rows:       16,
			CellWidth:  8,
			CellHeight: 16,
		},
		Behavior: BehaviorConfig{
			AutoAdvance:    true,
			SkipUnplayable: false,
		},
		Control: ControlConfig{
			Enabled: true,
			Socket:  DefaultSocketPath(),
		},
		Media: MediaConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Spectrum:  true,
			RefreshMs: 100,
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogPath(),
		},
		Keys: map[string][]string{},
	}
}

// SkipOffset returns the skip-ahead jump as a duration
func (c *Config) SkipOffset() time.Duration {
	return time.Duration(c.Audio.SkipSeconds) * time.Second
}

// BufferSize returns the device buffer as a duration
func (c *Config) BufferSize() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// RefreshInterval returns the meter redraw period
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.UI.RefreshMs) * time.Millisecond
}

// Validate checks value ranges
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Audio.BufferMs <= 0 {
		errs = append(errs, fmt.Errorf("audio.buffer_ms must be positive, got %d", c.Audio.BufferMs))
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		errs = append(errs, fmt.Errorf("audio.volume must be within 0..1, got %g", c.Audio.Volume))
	}
	if c.Audio.SkipSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.skip_seconds must be positive, got %d", c.Audio.SkipSeconds))
	}
	if c.Audio.ResampleQuality < 1 || c.Audio.ResampleQuality > 64 {
		errs = append(errs, fmt.Errorf("audio.resample_quality must be within 1..64, got %d", c.Audio.ResampleQuality))
	}
	switch c.Artwork.Protocol {
	case "", "auto", "sixel", "halfblocks", "none":
	default:
		errs = append(errs, fmt.Errorf("artwork.protocol %q is not one of auto, sixel, halfblocks, none", c.Artwork.Protocol))
	}
	if c.UI.Spectrum && c.UI.RefreshMs < 10 {
		errs = append(errs, fmt.Errorf("ui.refresh_ms must be at least 10, got %d", c.UI.RefreshMs))
	}
	if c.Artwork.Columns < 0 || c.Artwork.Rows < 0 {
		errs = append(errs, errors.New("artwork.columns and artwork.rows must not be negative"))
	}
	return errors.Join(errs...)
}

// Manager handles loading and saving configuration
type Manager struct {
	configPath string
	config     *Config
}

// NewManager creates a configuration manager for path. An empty path uses
// DefaultPath.
func NewManager(path string) *Manager {
	if path == "" {
		path = DefaultPath()
	}
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Load reads the configuration from disk. A missing file leaves the defaults
// in place.
func (m *Manager) Load() error {
	info, err := os.Stat(m.configPath)
	if errors.Is(err, os.ErrNotExist) {
		m.config = DefaultConfig()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("config path %s is a directory", m.configPath)
	}

	config := DefaultConfig() // Start with defaults
	meta, err := toml.DecodeFile(m.configPath, config)
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown config keys in %s: %v", m.configPath, undecoded)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.config = config
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	// Ensure config directory exists
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(m.config); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	return m.config
}

// GetPath returns the config file path
func (m *Manager) GetPath() string {
	return m.configPath
}

// Exists reports whether the config file is present on disk
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}

// DefaultPath returns $XDG_CONFIG_HOME/termplay/config.toml
func DefaultPath() string {
	return filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.toml")
}

// DefaultLogPath returns $XDG_STATE_HOME/termplay/termplay.log
func DefaultLogPath() string {
	return filepath.Join(xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state")), appName, appName+".log")
}

// DefaultSocketPath returns the control socket path, preferring
// $XDG_RUNTIME_DIR
func DefaultSocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, appName+".sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("%s-%d.sock", appName, os.Getuid()))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appName)
	}
	return filepath.Join(home, fallback)
}
