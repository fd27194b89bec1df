// Package fonts makes font faces available before text is rewritten.
//
// A face is available when the document declares it or a matching font file
// is found in one of the configured font directories. Files are mapped
// through FileCache and checked for a font header before the face counts as
// loaded.
package fonts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/gnana997/detachr/pkg/document"
)

// ErrFontUnavailable is returned when a face cannot be loaded.
var ErrFontUnavailable = errors.New("font unavailable")

// Config configures a Loader.
type Config struct {
	// Dirs are searched recursively for font files.
	Dirs []string

	Cache  FileCacheConfig
	Logger *slog.Logger
}

// LoaderStats reports loader activity.
type LoaderStats struct {
	Declared   int
	Discovered int
	Loaded     int
	Failed     int
	Cache      FileCacheStats
}

type faceKey struct {
	family string
	style  string
}

func keyOf(f document.FontName) faceKey {
	return faceKey{strings.ToLower(f.Family), strings.ToLower(f.Style)}
}

// Loader loads font faces on demand.
//
// **Thread Safety:** LoadFont may be called concurrently; each face is
// loaded at most once.
type Loader struct {
	cache  *FileCache
	logger *slog.Logger

	declared map[faceKey]document.FontName
	files    map[faceKey]string

	mu     sync.Mutex
	loaded map[faceKey]bool
	failed int
}

// NewLoader builds a loader over the faces the document declares plus the
// faces discovered under cfg.Dirs.
func NewLoader(declared []document.FontName, cfg Config) (*Loader, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Cache.Logger == nil {
		cfg.Cache.Logger = logger
	}

	faces, err := Discover(cfg.Dirs)
	if err != nil {
		return nil, fmt.Errorf("discover fonts: %w", err)
	}

	l := &Loader{
		cache:    NewFileCache(cfg.Cache),
		logger:   logger,
		declared: make(map[faceKey]document.FontName, len(declared)),
		files:    make(map[faceKey]string, len(faces)),
		loaded:   make(map[faceKey]bool),
	}
	for _, f := range declared {
		if f.Mixed || f.Family == "" {
			continue
		}
		l.declared[keyOf(f)] = f
	}
	for _, face := range faces {
		k := keyOf(face.Name)
		if _, dup := l.files[k]; dup {
			logger.Debug("duplicate font face, keeping first", "font", face.Name.String(), "path", face.Path)
			continue
		}
		l.files[k] = face.Path
	}

	logger.Debug("font loader ready", "declared", len(l.declared), "discovered", len(l.files))
	return l, nil
}

// LoadFont makes f available. A face with a backing file is mapped and
// validated; a declared face without a file is taken as installed in the
// host.
func (l *Loader) LoadFont(ctx context.Context, f document.FontName) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.Mixed {
		return fmt.Errorf("%w: mixed font", ErrFontUnavailable)
	}
	k := keyOf(f)

	l.mu.Lock()
	done := l.loaded[k]
	l.mu.Unlock()
	if done {
		return nil
	}

	if path, ok := l.files[k]; ok {
		ff, err := l.cache.Get(path)
		if err != nil {
			l.markFailed()
			return fmt.Errorf("%w: %s: %v", ErrFontUnavailable, f, err)
		}
		l.logger.Debug("font loaded", "font", f.String(), "path", path, "tag", ff.Tag(), "bytes", len(ff.Data))
	} else if _, ok := l.declared[k]; !ok {
		l.markFailed()
		return fmt.Errorf("%w: %s", ErrFontUnavailable, f)
	}

	l.mu.Lock()
	l.loaded[k] = true
	l.mu.Unlock()
	return nil
}

func (l *Loader) markFailed() {
	l.mu.Lock()
	l.failed++
	l.mu.Unlock()
}

// Loaded reports whether f has been loaded.
func (l *Loader) Loaded(f document.FontName) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded[keyOf(f)]
}

// Available lists every face the loader could load, sorted by family then
// style.
func (l *Loader) Available() []document.FontName {
	seen := make(map[faceKey]bool)
	var out []document.FontName
	for k, f := range l.declared {
		seen[k] = true
		out = append(out, f)
	}
	for k := range l.files {
		if !seen[k] {
			out = append(out, document.FontName{Family: k.family, Style: k.style})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if a, b := strings.ToLower(out[i].Family), strings.ToLower(out[j].Family); a != b {
			return a < b
		}
		return strings.ToLower(out[i].Style) < strings.ToLower(out[j].Style)
	})
	return out
}

// Stats returns loader statistics.
func (l *Loader) Stats() LoaderStats {
	l.mu.Lock()
	loaded, failed := len(l.loaded), l.failed
	l.mu.Unlock()
	return LoaderStats{
		Declared:   len(l.declared),
		Discovered: len(l.files),
		Loaded:     loaded,
		Failed:     failed,
		Cache:      l.cache.Stats(),
	}
}

// Close releases mapped font files.
func (l *Loader) Close() error {
	return l.cache.Close()
}
