package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test in an empty directory so no project config file
// is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, used, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Empty(t, used)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, OutputText, cfg.Output)
	assert.Equal(t, 200, cfg.DebounceMs)
	assert.Equal(t, 4096, cfg.CacheSize)
	assert.True(t, cfg.Dedupe)
	assert.False(t, cfg.WriteBack)
	assert.Empty(t, cfg.FontDirs)
}

func TestLoadConfig_ProjectFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".detachr", "config.yaml"), `
document: design.json
log_level: debug
font_dirs:
  - fonts
  - /usr/share/fonts
exclude:
  - "**/Hidden*"
dedupe: false
`)

	cfg, used, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(".detachr", "config.yaml"), used)
	assert.Equal(t, "design.json", cfg.Document)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"fonts", "/usr/share/fonts"}, cfg.FontDirs)
	assert.Equal(t, []string{"**/Hidden*"}, cfg.Exclude)
	assert.False(t, cfg.Dedupe)
	assert.Equal(t, 4096, cfg.CacheSize, "unset keys keep defaults")
}

func TestLoadConfig_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "output: json\n")

	cfg, used, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, OutputJSON, cfg.Output)

	_, _, err = LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, ".detachr", "config.yaml"), "log_level: debug\ncache_size: 100\n")
	t.Setenv("DETACHR_LOG_LEVEL", "warn")
	t.Setenv("DETACHR_FONT_DIRS", "/a, /b,")
	t.Setenv("DETACHR_DEDUPE", "false")
	t.Setenv("DETACHR_CACHE_SIZE", "10")

	cfg, _, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"/a", "/b"}, cfg.FontDirs)
	assert.False(t, cfg.Dedupe)
	assert.Equal(t, 10, cfg.CacheSize)
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	isolate(t)
	t.Setenv("DETACHR_LOG_LEVEL", "warn")
	t.Setenv("DETACHR_DEDUPE", "false")

	root := newRootCmd()
	flags := root.PersistentFlags()
	require.NoError(t, flags.Parse([]string{"--log-level", "error", "--font-dir", "/f", "--font-dir", "/g", "-o", "json"}))

	cfg, _, err := LoadConfig("", flags)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, []string{"/f", "/g"}, cfg.FontDirs)
	assert.Equal(t, OutputJSON, cfg.Output)
	assert.False(t, cfg.Dedupe, "unset flag must not override env")
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		key    string
		value  string
		errMsg string
	}{
		{"log level", "DETACHR_LOG_LEVEL", "loud", "log_level"},
		{"log format", "DETACHR_LOG_FORMAT", "xml", "log_format"},
		{"output", "DETACHR_OUTPUT", "yaml", "output"},
		{"debounce", "DETACHR_DEBOUNCE_MS", "-1", "debounce_ms"},
		{"cache size", "DETACHR_CACHE_SIZE", "0", "cache_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.key, tt.value)
			_, _, err := LoadConfig("", nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestWriteConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, ".detachr", "config.yaml")

	cfg := DefaultConfig()
	cfg.Document = "design.json"
	require.NoError(t, writeConfig(path, cfg, false))

	err := writeConfig(path, cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	require.NoError(t, writeConfig(path, cfg, true))

	loaded, used, err := LoadConfig("", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, used)
	assert.Equal(t, "design.json", loaded.Document)
	assert.Equal(t, cfg.LogLevel, loaded.LogLevel)
	assert.Equal(t, cfg.CacheSize, loaded.CacheSize)
	assert.Equal(t, cfg.Dedupe, loaded.Dedupe)
	assert.Empty(t, loaded.FontDirs)
}
