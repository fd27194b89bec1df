package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// ErrNotFont is returned for files without an sfnt or collection header.
var ErrNotFont = errors.New("not a font file")

// sfnt header tags accepted by the cache.
var fontMagics = [][]byte{
	{0x00, 0x01, 0x00, 0x00}, // TrueType
	[]byte("OTTO"),           // CFF OpenType
	[]byte("true"),           // legacy Apple TrueType
	[]byte("ttcf"),           // collection
}

// FileCacheConfig controls FileCache behavior.
type FileCacheConfig struct {
	// MaxFiles caps the number of mapped font files. Zero means no limit.
	MaxFiles int

	// Logger for mmap fallbacks and close errors. Defaults to slog.Default().
	Logger *slog.Logger
}

// DefaultFileCacheConfig returns the default font cache limits.
func DefaultFileCacheConfig() FileCacheConfig {
	return FileCacheConfig{MaxFiles: 512}
}

// FontFile is a mapped (or, after an mmap failure, fully read) font file.
type FontFile struct {
	Path string
	Data mmap.MMap
	file *os.File
}

// Tag returns the four-byte sfnt tag.
func (f *FontFile) Tag() string {
	if len(f.Data) < 4 {
		return ""
	}
	return string(f.Data[:4])
}

// FileCacheStats tracks cache usage.
type FileCacheStats struct {
	FilesCached  int
	CacheHits    int64
	CacheMisses  int64
	MmapFailures int64
	TotalBytes   int64
}

// FileCache maps font files on first use and keeps them mapped until
// Close. Only the header is read eagerly; glyph data pages in on demand.
//
// Thread-safe: lookups take a read lock, loads take the write lock with a
// second check after acquiring it.
type FileCache struct {
	config FileCacheConfig
	logger *slog.Logger

	mu    sync.RWMutex
	files map[string]*FontFile

	statsMu sync.Mutex
	stats   FileCacheStats
}

// NewFileCache creates an empty cache.
func NewFileCache(config FileCacheConfig) *FileCache {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FileCache{
		config: config,
		logger: logger,
		files:  make(map[string]*FontFile),
	}
}

// Get returns the mapped file at path, loading and validating it on first
// access.
func (fc *FileCache) Get(path string) (*FontFile, error) {
	fc.mu.RLock()
	if ff, ok := fc.files[path]; ok {
		fc.mu.RUnlock()
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return ff, nil
	}
	fc.mu.RUnlock()

	fc.mu.Lock()
	defer fc.mu.Unlock()

	if ff, ok := fc.files[path]; ok {
		fc.record(func(s *FileCacheStats) { s.CacheHits++ })
		return ff, nil
	}
	fc.record(func(s *FileCacheStats) { s.CacheMisses++ })

	if fc.config.MaxFiles > 0 && len(fc.files) >= fc.config.MaxFiles {
		return nil, fmt.Errorf("font cache limit reached: %d files", fc.config.MaxFiles)
	}

	ff, err := fc.load(path)
	if err != nil {
		return nil, err
	}
	if !hasFontMagic(ff.Data) {
		ff.release()
		return nil, fmt.Errorf("%w: %s", ErrNotFont, path)
	}
	fc.files[path] = ff
	fc.record(func(s *FileCacheStats) { s.TotalBytes += int64(len(ff.Data)) })
	return ff, nil
}

// load maps path read-only, falling back to reading it into memory.
func (fc *FileCache) load(path string) (*FontFile, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open font %q: %w", path, err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat font %q: %w", path, err)
	}
	if stat.Size() == 0 {
		file.Close()
		return &FontFile{Path: path}, nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		fc.logger.Warn("mmap failed, reading font into memory", "file", path, "error", err)
		file.Close()
		fc.record(func(s *FileCacheStats) { s.MmapFailures++ })

		raw, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read font %q: %w", path, readErr)
		}
		return &FontFile{Path: path, Data: mmap.MMap(raw)}, nil
	}
	return &FontFile{Path: path, Data: data, file: file}, nil
}

func (ff *FontFile) release() error {
	var errs []error
	if ff.file != nil {
		if err := ff.Data.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap %q: %w", ff.Path, err))
		}
		if err := ff.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %q: %w", ff.Path, err))
		}
		ff.file = nil
	}
	ff.Data = nil
	return errors.Join(errs...)
}

func hasFontMagic(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	for _, m := range fontMagics {
		if bytes.Equal(data[:4], m) {
			return true
		}
	}
	return false
}

// Stats returns current cache metrics.
func (fc *FileCache) Stats() FileCacheStats {
	fc.mu.RLock()
	n := len(fc.files)
	fc.mu.RUnlock()

	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	s := fc.stats
	s.FilesCached = n
	return s
}

func (fc *FileCache) record(fn func(*FileCacheStats)) {
	fc.statsMu.Lock()
	fn(&fc.stats)
	fc.statsMu.Unlock()
}

// Close unmaps every cached file.
func (fc *FileCache) Close() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	var errs []error
	for path, ff := range fc.files {
		if err := ff.release(); err != nil {
			fc.logger.Warn("failed to release font file", "path", path, "error", err)
			errs = append(errs, err)
		}
	}
	fc.files = make(map[string]*FontFile)
	return errors.Join(errs...)
}
