// Package catalog builds the ordered list of playable tracks from a media directory.
// The catalog is built once at startup and never mutated afterwards.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrDirectoryUnreadable is returned when the media directory cannot be listed.
	ErrDirectoryUnreadable = errors.New("media directory unreadable")

	// ErrEmptyCatalog is returned when a session is started without any tracks.
	ErrEmptyCatalog = errors.New("no playable tracks found")
)

// SupportedExtensions are the audio file extensions the decoder understands
var SupportedExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".ogg":  true,
}

// Track is a single playable file. Index is its position in the catalog.
type Track struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Name  string `json:"name"`
}

// Catalog is an ordered, read-only sequence of tracks
type Catalog struct {
	dir    string
	tracks []Track
}

// Build lists dir and returns the audio files it contains, in os.ReadDir
// order (lexical by file name). Only regular files, or symlinks to regular
// files, whose extension is in exts are kept. Dot-files are skipped.
// A nil exts uses SupportedExtensions.
func Build(dir string, exts map[string]bool) (*Catalog, error) {
	if exts == nil {
		exts = SupportedExtensions
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnreadable, dir, err)
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDirectoryUnreadable, dir, err)
	}

	c := &Catalog{dir: abs, tracks: make([]Track, 0, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !exts[strings.ToLower(filepath.Ext(name))] {
			continue
		}

		path := filepath.Join(abs, name)
		if !isRegular(entry, path) {
			continue
		}

		c.tracks = append(c.tracks, Track{
			Index: len(c.tracks),
			Path:  path,
			Name:  name,
		})
	}

	return c, nil
}

// New builds a catalog from already-known paths, in the given order.
func New(paths []string) *Catalog {
	c := &Catalog{tracks: make([]Track, len(paths))}
	for i, p := range paths {
		c.tracks[i] = Track{Index: i, Path: p, Name: filepath.Base(p)}
	}
	return c
}

func isRegular(entry os.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Dir returns the scanned directory, or "" for catalogs built with New.
func (c *Catalog) Dir() string {
	return c.dir
}

// Len returns the number of tracks
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// At returns the track at index i. It panics if i is out of range.
func (c *Catalog) At(i int) Track {
	return c.tracks[i]
}

// Tracks returns a copy of the tracks
func (c *Catalog) Tracks() []Track {
	out := make([]Track, len(c.tracks))
	copy(out, c.tracks)
	return out
}

// Names returns the display names in catalog order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.tracks))
	for i, t := range c.tracks {
		names[i] = t.Name
	}
	return names
}

// ParseExtensions turns a list like ["mp3", ".FLAC"] into a lookup set.
// An empty list returns nil so Build falls back to SupportedExtensions.
func ParseExtensions(list []string) map[string]bool {
	if len(list) == 0 {
		return nil
	}
	exts := make(map[string]bool, len(list))
	for _, e := range list {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = true
	}
	return exts
}
