// Package msglog writes an append-only JSONL audit log of handled UI
// messages and MCP tool calls.
package msglog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry kinds.
const (
	KindMessage = "message"
	KindTool    = "tool"
)

// LogEntry is one JSONL line.
type LogEntry struct {
	Ts            string         `json:"ts"`
	Session       string         `json:"session"`
	Kind          string         `json:"kind"`
	Name          string         `json:"name"`
	Seq           uint64         `json:"seq,omitempty"`
	Params        map[string]any `json:"params"`
	DurationMs    int64          `json:"duration_ms"`
	ResponseBytes int            `json:"response_bytes"`
	Error         *string        `json:"error"`
}

// Logger appends entries to a file. It is safe for concurrent use, and a
// nil *Logger discards everything.
type Logger struct {
	mu  sync.Mutex
	f   *os.File
	enc *json.Encoder
}

// NewLogger opens path for appending, creating parent directories.
// An empty path returns nil, nil: logging is disabled.
func NewLogger(path string) (*Logger, error) {
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("msglog: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("msglog: open log file: %w", err)
	}
	return &Logger{f: f, enc: json.NewEncoder(f)}, nil
}

// Write appends one entry. Callers usually ignore the error so that a
// logging failure never changes a response.
func (l *Logger) Write(entry LogEntry) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}

// Record builds and writes an entry for an operation that started at start.
func (l *Logger) Record(session, kind, name string, seq uint64, params map[string]any, start time.Time, responseBytes int, opErr error) error {
	if l == nil {
		return nil
	}
	var errStr *string
	if opErr != nil {
		msg := opErr.Error()
		errStr = &msg
	}
	return l.Write(LogEntry{
		Ts:            start.UTC().Format(time.RFC3339),
		Session:       session,
		Kind:          kind,
		Name:          name,
		Seq:           seq,
		Params:        SanitizeParams(params),
		DurationMs:    Now().Sub(start).Milliseconds(),
		ResponseBytes: responseBytes,
		Error:         errStr,
	})
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}

const shortStringMax = 64

// SanitizeParams returns a copy of args that is safe to log. Strings longer
// than 64 bytes become a "<key>_len" entry, arrays become "<key>_count",
// and nested objects are sanitized the same way.
func SanitizeParams(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		switch tv := v.(type) {
		case string:
			if len(tv) > shortStringMax {
				out[k+"_len"] = len(tv)
			} else {
				out[k] = tv
			}
		case []any:
			out[k+"_count"] = len(tv)
		case map[string]any:
			out[k] = SanitizeParams(tv)
		default:
			out[k] = v
		}
	}
	return out
}

// Now is a replaceable clock for testing.
var Now = func() time.Time { return time.Now() }
