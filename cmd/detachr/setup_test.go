package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEnv swaps the PATH and filesystem probes for the duration of t.
func fakeEnv(t *testing.T, binaries []string, markers []string) {
	t.Helper()
	origLookPath, origStat := lookPathFunc, statFunc
	t.Cleanup(func() {
		lookPathFunc, statFunc = origLookPath, origStat
	})
	lookPathFunc = func(name string) (string, error) {
		for _, b := range binaries {
			if b == name {
				return "/usr/bin/" + name, nil
			}
		}
		return "", errors.New("not found")
	}
	statFunc = func(name string) (os.FileInfo, error) {
		for _, m := range markers {
			if m == name {
				return os.Stat(".")
			}
		}
		return nil, os.ErrNotExist
	}
}

func decodeServers(t *testing.T, data []byte, key string) map[string]any {
	t.Helper()
	var config map[string]any
	require.NoError(t, json.Unmarshal(data, &config))
	servers, ok := config[key].(map[string]any)
	require.True(t, ok, "missing %q", key)
	return servers
}

func TestMergeServerEntry(t *testing.T) {
	t.Run("empty file", func(t *testing.T) {
		out, err := mergeServerEntry(nil, "mcpServers", "", nil)
		require.NoError(t, err)
		entry := decodeServers(t, out, "mcpServers")["detachr"].(map[string]any)
		assert.Equal(t, "detachr", entry["command"])
		assert.Equal(t, []any{"mcp"}, entry["args"])
		assert.True(t, bytes.HasSuffix(out, []byte("\n")))
	})

	t.Run("document argument", func(t *testing.T) {
		out, err := mergeServerEntry(nil, "mcpServers", "/work/design.json", nil)
		require.NoError(t, err)
		entry := decodeServers(t, out, "mcpServers")["detachr"].(map[string]any)
		assert.Equal(t, []any{"mcp", "--document", "/work/design.json"}, entry["args"])
	})

	t.Run("keeps other servers", func(t *testing.T) {
		existing := []byte(`{"mcpServers": {"other": {"command": "other"}}, "theme": "dark"}`)
		out, err := mergeServerEntry(existing, "mcpServers", "", nil)
		require.NoError(t, err)
		servers := decodeServers(t, out, "mcpServers")
		assert.Contains(t, servers, "other")
		assert.Contains(t, servers, "detachr")
		assert.Contains(t, string(out), `"theme": "dark"`)
	})

	t.Run("already configured", func(t *testing.T) {
		existing := []byte(`{"mcpServers": {"detachr": {"command": "detachr"}}}`)
		out, err := mergeServerEntry(existing, "mcpServers", "", nil)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("vscode format", func(t *testing.T) {
		out, err := mergeServerEntry(nil, "servers", "", map[string]string{"type": "stdio"})
		require.NoError(t, err)
		entry := decodeServers(t, out, "servers")["detachr"].(map[string]any)
		assert.Equal(t, "stdio", entry["type"])
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := mergeServerEntry([]byte("{nope"), "mcpServers", "", nil)
		assert.Error(t, err)
	})
}

func TestPromptYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"no\n", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var w bytes.Buffer
			got := promptYesNo(bufio.NewReader(strings.NewReader(tt.input)), &w, "Continue?")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, w.String(), "Continue?")
		})
	}
}

func TestDetectAgents(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, nil, nil)
		assert.Empty(t, detectAgents())
	})

	t.Run("cli on path", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, []string{"claude"}, nil)
		got := detectAgents()
		require.Len(t, got, 1)
		assert.Equal(t, "claude_code", got[0].Def.ID)
		assert.False(t, got[0].AlreadySetup)
	})

	t.Run("file marker", func(t *testing.T) {
		dir := isolate(t)
		fakeEnv(t, nil, []string{".cursor"})
		writeFile(t, filepath.Join(dir, ".cursor", "mcp.json"), `{"mcpServers": {"detachr": {}}}`)

		got := detectAgents()
		require.Len(t, got, 1)
		assert.Equal(t, "cursor", got[0].Def.ID)
		assert.Equal(t, filepath.Join(".cursor", "mcp.json"), got[0].ResolvedConfig)
		assert.True(t, got[0].AlreadySetup)
	})
}

func TestExecuteSetup(t *testing.T) {
	t.Run("auto configures file agents", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, nil, []string{".vscode"})

		var w bytes.Buffer
		executeSetup(strings.NewReader(""), &w, setupOptions{auto: true, document: "/work/design.json"})
		assert.Contains(t, w.String(), "VS Code Copilot configured")

		data, err := os.ReadFile(filepath.Join(".vscode", "mcp.json"))
		require.NoError(t, err)
		entry := decodeServers(t, data, "servers")["detachr"].(map[string]any)
		assert.Equal(t, "stdio", entry["type"])
		assert.Equal(t, []any{"mcp", "--document", "/work/design.json"}, entry["args"])
	})

	t.Run("declined", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, nil, []string{".cursor"})

		var w bytes.Buffer
		executeSetup(strings.NewReader("n\n"), &w, setupOptions{})
		_, err := os.Stat(filepath.Join(".cursor", "mcp.json"))
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("skip per agent", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, nil, []string{".cursor"})

		var w bytes.Buffer
		executeSetup(strings.NewReader("y\nn\n"), &w, setupOptions{})
		assert.Contains(t, w.String(), "skipped")
	})

	t.Run("nothing detected", func(t *testing.T) {
		isolate(t)
		fakeEnv(t, nil, nil)
		var w bytes.Buffer
		executeSetup(strings.NewReader(""), &w, setupOptions{auto: true})
		assert.Contains(t, w.String(), "No supported MCP clients detected.")
	})
}
