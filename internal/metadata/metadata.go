// Package metadata reads artist, album and embedded artwork from audio files.
//
// Extraction never fails: a file without a readable tag container yields a
// zero Metadata, and callers substitute their own display fallbacks.
package metadata

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"go.uber.org/zap"

	"github.com/austinkregel/local-media/termplay/internal/catalog"
)

// Unknown is the display value for an absent text field
const Unknown = "Unknown"

// Metadata contains what was found in a track's tag container.
// Empty strings and a nil Artwork mean the field was absent.
type Metadata struct {
	Title       string `json:"title,omitempty"`
	Artist      string `json:"artist,omitempty"`
	Album       string `json:"album,omitempty"`
	Artwork     []byte `json:"-"`
	ArtworkMIME string `json:"artworkMime,omitempty"`
	ArtworkPath string `json:"artworkPath,omitempty"`
}

// HasArtwork reports whether an embedded picture was found
func (m Metadata) HasArtwork() bool {
	return len(m.Artwork) > 0
}

// Or returns s, or fallback when s is empty
func Or(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// Extractor reads tags from track files. The zero value is ready to use.
type Extractor struct {
	// ExportDir, when set, receives a copy of each track's first embedded
	// picture so other processes (media sessions, image viewers) can use it.
	ExportDir string

	Log *zap.Logger
}

// NewExtractor creates an extractor that optionally exports artwork to exportDir
func NewExtractor(log *zap.Logger, exportDir string) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{ExportDir: exportDir, Log: log.Named("metadata")}
}

// Extract reads the tag container of t. Unreadable files and files without
// tags return a zero Metadata.
func (e *Extractor) Extract(t catalog.Track) Metadata {
	f, err := os.Open(t.Path)
	if err != nil {
		e.logger().Debug("open failed", zap.String("path", t.Path), zap.Error(err))
		return Metadata{}
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		e.logger().Debug("no readable tags", zap.String("path", t.Path), zap.Error(err))
		return Metadata{}
	}

	meta := Metadata{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
	}

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 {
		meta.Artwork = pic.Data
		meta.ArtworkMIME = pic.MIMEType
		if e.ExportDir != "" {
			meta.ArtworkPath = e.export(t, pic)
		}
	}

	return meta
}

// export writes the picture next to the other exported artwork and returns
// its path, or "" if the write failed.
func (e *Extractor) export(t catalog.Track, pic *tag.Picture) string {
	if err := os.MkdirAll(e.ExportDir, 0o755); err != nil {
		e.logger().Warn("artwork export dir", zap.String("dir", e.ExportDir), zap.Error(err))
		return ""
	}

	ext := pic.Ext
	if ext == "" {
		ext = extFromMIME(pic.MIMEType)
	}
	base := strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
	path := filepath.Join(e.ExportDir, base+"."+strings.TrimPrefix(ext, "."))

	if err := os.WriteFile(path, pic.Data, 0o644); err != nil {
		e.logger().Warn("artwork export failed", zap.String("path", path), zap.Error(err))
		return ""
	}
	return path
}

func (e *Extractor) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func extFromMIME(mime string) string {
	switch strings.ToLower(mime) {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	default:
		return "jpg"
	}
}

// Source is anything that can produce Metadata for a track
type Source interface {
	Extract(t catalog.Track) Metadata
}

// Cache memoizes a Source per track index. Safe for concurrent use.
type Cache struct {
	src Source

	mu      sync.Mutex
	entries map[int]Metadata
}

// NewCache wraps src with a per-track memo
func NewCache(src Source) *Cache {
	return &Cache{src: src, entries: make(map[int]Metadata)}
}

// Extract returns the cached metadata for t, reading it on first use
func (c *Cache) Extract(t catalog.Track) Metadata {
	c.mu.Lock()
	if m, ok := c.entries[t.Index]; ok {
		c.mu.Unlock()
		return m
	}
	c.mu.Unlock()

	m := c.src.Extract(t)

	c.mu.Lock()
	c.entries[t.Index] = m
	c.mu.Unlock()
	return m
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
