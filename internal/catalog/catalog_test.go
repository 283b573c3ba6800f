package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "c.mp3"))
	writeFile(t, filepath.Join(dir, "a.flac"))
	writeFile(t, filepath.Join(dir, "B.WAV"))
	writeFile(t, filepath.Join(dir, "notes.txt"))
	writeFile(t, filepath.Join(dir, ".hidden.mp3"))
	if err := os.Mkdir(filepath.Join(dir, "sub.mp3"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	c, err := Build(dir, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"B.WAV", "a.flac", "c.mp3"}
	names := c.Names()
	if len(names) != len(want) {
		t.Fatalf("Expected %d tracks, got %d: %v", len(want), len(names), names)
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("Track %d: expected %s, got %s", i, name, names[i])
		}
		tr := c.At(i)
		if tr.Index != i {
			t.Errorf("Track %d: expected index %d, got %d", i, i, tr.Index)
		}
		if !filepath.IsAbs(tr.Path) {
			t.Errorf("Track %d: expected absolute path, got %s", i, tr.Path)
		}
	}
}

func TestBuildFollowsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "real.mp3")
	writeFile(t, target)
	if err := os.Symlink(target, filepath.Join(dir, "link.mp3")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	c, err := Build(dir, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("Expected 1 track, got %d", c.Len())
	}
}

func TestBuildMissingDirectory(t *testing.T) {
	_, err := Build(filepath.Join(t.TempDir(), "nope"), nil)
	if !errors.Is(err, ErrDirectoryUnreadable) {
		t.Fatalf("Expected ErrDirectoryUnreadable, got %v", err)
	}
}

func TestBuildEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "cover.jpg"))

	c, err := Build(dir, nil)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Expected empty catalog, got %d tracks", c.Len())
	}
}

func TestTracksReturnsCopy(t *testing.T) {
	c := New([]string{"/m/a.mp3", "/m/b.mp3"})
	tracks := c.Tracks()
	tracks[0].Name = "changed"
	if c.At(0).Name != "a.mp3" {
		t.Errorf("Catalog was mutated through Tracks(): %s", c.At(0).Name)
	}
}

func TestParseExtensions(t *testing.T) {
	exts := ParseExtensions([]string{"mp3", ".FLAC", " ", "ogg "})
	for _, e := range []string{".mp3", ".flac", ".ogg"} {
		if !exts[e] {
			t.Errorf("Expected %s in set", e)
		}
	}
	if len(exts) != 3 {
		t.Errorf("Expected 3 extensions, got %d", len(exts))
	}
	if ParseExtensions(nil) != nil {
		t.Error("Expected nil for empty list")
	}
}
