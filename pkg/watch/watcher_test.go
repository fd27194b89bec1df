package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) (*Watcher, <-chan string) {
	t.Helper()
	changes := make(chan string, 16)
	w, err := New(path, func(p string) { changes <- p }, Options{DebounceMs: 20}, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return w, changes
}

func waitChange(t *testing.T, changes <-chan string) string {
	t.Helper()
	select {
	case p := <-changes:
		return p
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
		return ""
	}
}

func TestWatcher_Write(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w, changes := startWatcher(t, path)
	assert.True(t, w.Stats().IsRunning)

	require.NoError(t, os.WriteFile(path, []byte(`{"name":"x"}`), 0o644))
	assert.Equal(t, path, waitChange(t, changes))
	assert.Equal(t, int64(1), w.Stats().Changes)
}

func TestWatcher_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

	w, err := New(path, func(string) {}, Options{DebounceMs: 300}, nil)
	require.NoError(t, err)
	calls := make(chan struct{}, 16)
	w.onChange = func(string) { calls <- struct{}{} }
	require.NoError(t, w.Start())
	defer w.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	}
	select {
	case <-calls:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
	select {
	case <-calls:
		t.Fatal("burst produced more than one callback")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_RenameOver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, changes := startWatcher(t, path)

	tmp := filepath.Join(dir, ".doc.json.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"v":2}`), 0o644))
	require.NoError(t, os.Rename(tmp, path))
	assert.Equal(t, path, waitChange(t, changes))
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	_, changes := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	select {
	case p := <-changes:
		t.Fatalf("unexpected change for %s", p)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_Lifecycle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	w, err := New(path, func(string) {}, Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 200, w.options.DebounceMs)
	assert.False(t, w.Stats().IsRunning)

	require.NoError(t, w.Start())
	assert.Error(t, w.Start())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
	assert.Error(t, w.Start())
	assert.False(t, w.Stats().IsRunning)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing", "doc.json"), func(string) {}, Options{}, nil)
	require.NoError(t, err)
	defer w.Stop()
	assert.Error(t, w.Start())
}
