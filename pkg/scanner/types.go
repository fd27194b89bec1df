// Package scanner walks a document tree and discovers every variable
// binding reachable from a set of roots.
package scanner

import (
	"context"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/value"
	"github.com/gnana997/detachr/pkg/variables"
)

// VariableSource looks up variable definitions and resolves them for a
// consuming node.
type VariableSource interface {
	VariableByID(ctx context.Context, id string) (*variables.Variable, error)
	ResolveForConsumer(ctx context.Context, v *variables.Variable, consumer document.Node) (value.Raw, error)
}

// Host supplies the default scan roots.
type Host interface {
	Selection() ([]document.Node, error)
	CurrentPage() (*document.Page, error)
}

// Config configures scan behavior.
type Config struct {
	// Dedupe drops a binding whose (node, property) pair was already
	// reported in the same scan.
	Dedupe bool
	// Exclude holds doublestar patterns matched against the slash-joined
	// node name path from the scan root ("Page/Frame/Layer"). Matching
	// nodes and their subtrees are skipped.
	Exclude []string
}

// DefaultConfig returns the default scan configuration.
func DefaultConfig() Config {
	return Config{Dedupe: true}
}

// ScanResult is the output of one scan.
type ScanResult struct {
	Bindings    []binding.VariableBinding `json:"bindings"`
	Counts      binding.Counts            `json:"counts"`
	NoSelection bool                      `json:"noSelection,omitempty"`
	Stats       ScanStats                 `json:"-"`
}

// ScanStats holds per-scan statistics.
type ScanStats struct {
	NodesVisited  int
	NodesExcluded int
	Unresolved    int
	Duplicates    int
	StyleBindings int
	TotalTimeMs   int64
}
