package msglog

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeParams(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  map[string]any
	}{
		{
			name:  "nil map returns empty",
			input: nil,
			want:  map[string]any{},
		},
		{
			name:  "short string passes through",
			input: map[string]any{"type": "scan"},
			want:  map[string]any{"type": "scan"},
		},
		{
			name:  "long string replaced with _len key",
			input: map[string]any{"message": strings.Repeat("x", 200)},
			want:  map[string]any{"message_len": 200},
		},
		{
			name:  "array replaced with _count key",
			input: map[string]any{"bindings": []any{1, 2, 3}},
			want:  map[string]any{"bindings_count": 3},
		},
		{
			name: "nested objects are sanitized",
			input: map[string]any{
				"payload": map[string]any{"bindings": []any{}, "options": map[string]any{"dryRun": true}},
			},
			want: map[string]any{
				"payload": map[string]any{"bindings_count": 0, "options": map[string]any{"dryRun": true}},
			},
		},
		{
			name:  "bool and nil pass through",
			input: map[string]any{"afterDetach": true, "extra": nil},
			want:  map[string]any{"afterDetach": true, "extra": nil},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeParams(tt.input))
		})
	}
}

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []LogEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e LogEntry
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, sc.Err())
	return entries
}

func TestLogger_Record(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "messages.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)

	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := Now
	Now = func() time.Time { return fixed.Add(15 * time.Millisecond) }
	t.Cleanup(func() { Now = orig })

	require.NoError(t, l.Record("s1", KindMessage, "scan", 3, map[string]any{"afterDetach": false}, fixed, 120, nil))
	require.NoError(t, l.Record("s1", KindTool, "detach_variables", 4, nil, fixed, 0, errors.New("boom")))
	require.NoError(t, l.Close())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)

	assert.Equal(t, "2026-01-02T03:04:05Z", entries[0].Ts)
	assert.Equal(t, "s1", entries[0].Session)
	assert.Equal(t, KindMessage, entries[0].Kind)
	assert.Equal(t, uint64(3), entries[0].Seq)
	assert.Equal(t, int64(15), entries[0].DurationMs)
	assert.Equal(t, 120, entries[0].ResponseBytes)
	assert.Nil(t, entries[0].Error)

	require.NotNil(t, entries[1].Error)
	assert.Equal(t, "boom", *entries[1].Error)
}

func TestLogger_Concurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "messages.jsonl")
	l, err := NewLogger(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, l.Write(LogEntry{Kind: KindMessage, Name: "scan"}))
		}()
	}
	wg.Wait()
	require.NoError(t, l.Close())
	assert.Len(t, readEntries(t, path), 20)
}

func TestLogger_Disabled(t *testing.T) {
	l, err := NewLogger("")
	require.NoError(t, err)
	assert.Nil(t, l)

	assert.NoError(t, l.Write(LogEntry{}))
	assert.NoError(t, l.Record("s", KindMessage, "scan", 1, nil, time.Now(), 0, nil))
	assert.NoError(t, l.Close())
}
