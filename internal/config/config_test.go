package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "config.toml"))

	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected sample rate 44100, got %d", cfg.Audio.SampleRate)
	}
	if !cfg.Behavior.AutoAdvance {
		t.Error("Expected auto advance on by default")
	}
	if cfg.Behavior.SkipUnplayable {
		t.Error("Expected skip unplayable off by default")
	}
	if cfg.SkipOffset() != 5*time.Second {
		t.Errorf("Expected 5s skip, got %v", cfg.SkipOffset())
	}
	if !cfg.UI.Spectrum || cfg.RefreshInterval() != 100*time.Millisecond {
		t.Errorf("Unexpected ui defaults %+v", cfg.UI)
	}
	if m.Exists() {
		t.Error("Expected Load not to create the file")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[library]
dir = "/srv/music"
extensions = ["mp3", "flac"]

[audio]
volume = 0.5
skip_seconds = 10

[behavior]
skip_unplayable = true

[keys]
next = ["j", "down"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	m := NewManager(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := m.Get()
	if cfg.Library.Dir != "/srv/music" {
		t.Errorf("Expected dir /srv/music, got %s", cfg.Library.Dir)
	}
	if len(cfg.Library.Extensions) != 2 {
		t.Errorf("Expected 2 extensions, got %v", cfg.Library.Extensions)
	}
	if cfg.Audio.Volume != 0.5 {
		t.Errorf("Expected volume 0.5, got %f", cfg.Audio.Volume)
	}
	if cfg.SkipOffset() != 10*time.Second {
		t.Errorf("Expected 10s skip, got %v", cfg.SkipOffset())
	}
	// untouched values keep their defaults
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if !cfg.Behavior.AutoAdvance || !cfg.Behavior.SkipUnplayable {
		t.Errorf("Unexpected behavior %+v", cfg.Behavior)
	}
	if got := cfg.Keys["next"]; len(got) != 2 || got[1] != "down" {
		t.Errorf("Expected next keys [j down], got %v", got)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"syntax":      "[audio\nvolume = ",
		"volume":      "[audio]\nvolume = 3.0\n",
		"protocol":    "[artwork]\nprotocol = \"kitty\"\n",
		"unknown key": "[audio]\nbass_boost = true\n",
		"refresh":     "[ui]\nrefresh_ms = 1\n",
	}

	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			if err := NewManager(path).Load(); err == nil {
				t.Error("Expected Load to fail")
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	m := NewManager(path)
	m.Get().Library.Dir = "/music"
	m.Get().Keys["quit"] = []string{"x"}

	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "[library]") {
		t.Errorf("Expected TOML tables in output, got:\n%s", data)
	}

	reloaded := NewManager(path)
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.Get().Library.Dir != "/music" {
		t.Errorf("Expected dir /music, got %s", reloaded.Get().Library.Dir)
	}
	if reloaded.Get().Keys["quit"][0] != "x" {
		t.Errorf("Expected quit key x, got %v", reloaded.Get().Keys["quit"])
	}
}

func TestDefaultPathsHonourXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_STATE_HOME", "/state")
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

	if got := DefaultPath(); got != "/cfg/termplay/config.toml" {
		t.Errorf("Unexpected config path %s", got)
	}
	if got := DefaultLogPath(); got != "/state/termplay/termplay.log" {
		t.Errorf("Unexpected log path %s", got)
	}
	if got := DefaultSocketPath(); got != "/run/user/1000/termplay.sock" {
		t.Errorf("Unexpected socket path %s", got)
	}
}
