// Package document is the host scene-graph model: a snapshot of pages,
// node variants, variable definitions and fonts that the scan and detach
// engines read and mutate.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/gnana997/detachr/pkg/value"
	"github.com/gnana997/detachr/pkg/variables"
)

// AccessDynamicPage is the access mode of documents that load pages on
// demand. Detach still runs there but may leave bindings behind.
const AccessDynamicPage = "dynamic-page"

// Capabilities describes optional host features.
type Capabilities struct {
	// BindingRemoval is false for hosts that cannot erase a binding once
	// a literal has been written.
	BindingRemoval bool `json:"bindingRemoval"`
}

type rawCapabilities struct {
	BindingRemoval *bool `json:"bindingRemoval,omitempty"`
}

type rawDocument struct {
	Name           string                 `json:"name"`
	DocumentAccess string                 `json:"documentAccess,omitempty"`
	Capabilities   *rawCapabilities       `json:"capabilities,omitempty"`
	CurrentPage    string                 `json:"currentPage,omitempty"`
	Pages          []rawNode              `json:"pages"`
	Variables      []variables.Variable   `json:"variables,omitempty"`
	Collections    []variables.Collection `json:"variableCollections,omitempty"`
	Fonts          []FontName             `json:"fonts,omitempty"`
}

// LoadOptions configures document loading.
type LoadOptions struct {
	Store  variables.StoreConfig
	Logger *slog.Logger
}

// Document is a loaded scene graph.
//
// **Thread Safety:** Not safe for concurrent mutation. Callers serialize
// scans and detaches; Close may be called from any goroutine.
type Document struct {
	name    string
	access  string
	caps    Capabilities
	pages   []*Page
	current *Page
	index   map[string]Node
	vars    *variables.Store
	fonts   []FontName

	raw    rawDocument
	closed atomic.Bool
	logger *slog.Logger
}

// Load reads and validates a document snapshot from path.
func Load(path string, opts LoadOptions) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	doc, err := LoadBytes(data, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// LoadBytes decodes and validates a document snapshot.
func LoadBytes(data []byte, opts LoadOptions) (*Document, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	d := &decoder{index: make(map[string]Node)}
	doc := &Document{
		name:   raw.Name,
		access: raw.DocumentAccess,
		caps:   Capabilities{BindingRemoval: true},
		logger: logger,
	}
	if raw.Capabilities != nil && raw.Capabilities.BindingRemoval != nil {
		doc.caps.BindingRemoval = *raw.Capabilities.BindingRemoval
	}

	if len(raw.Pages) == 0 {
		d.errorf("document has no pages")
	}
	for i := range raw.Pages {
		n := d.decode(&raw.Pages[i], nil, fmt.Sprintf("pages[%d]", i))
		if p, ok := n.(*Page); ok {
			doc.pages = append(doc.pages, p)
		}
	}
	doc.index = d.index

	for _, p := range doc.pages {
		for _, id := range p.selection {
			n, ok := doc.index[id]
			if !ok {
				d.errorf("page %q: selection references unknown node %q", p.id, id)
				continue
			}
			if pageOf(n) != p {
				d.errorf("page %q: selected node %q is on another page", p.id, id)
			}
		}
	}

	switch {
	case raw.CurrentPage != "":
		if p, ok := doc.index[raw.CurrentPage].(*Page); ok {
			doc.current = p
		} else {
			d.errorf("currentPage %q is not a page", raw.CurrentPage)
		}
	case len(doc.pages) > 0:
		doc.current = doc.pages[0]
	}

	store, err := variables.NewStore(raw.Variables, raw.Collections, opts.Store, logger)
	if err != nil {
		d.errs = append(d.errs, err)
	}
	if len(d.errs) > 0 {
		return nil, fmt.Errorf("invalid document: %w", errors.Join(d.errs...))
	}
	doc.vars = store
	doc.fonts = raw.Fonts
	doc.raw = rawDocument{
		Name:           raw.Name,
		DocumentAccess: raw.DocumentAccess,
		Capabilities:   raw.Capabilities,
		Variables:      raw.Variables,
		Collections:    raw.Collections,
		Fonts:          raw.Fonts,
	}

	logger.Debug("document loaded",
		"name", doc.name,
		"pages", len(doc.pages),
		"nodes", len(doc.index),
		"variables", len(raw.Variables))
	return doc, nil
}

func pageOf(n Node) *Page {
	for cur := n; cur != nil; cur = cur.Parent() {
		if p, ok := cur.(*Page); ok {
			return p
		}
	}
	return nil
}

// Name returns the document name.
func (d *Document) Name() string { return d.name }

// DynamicPage reports whether the document uses on-demand page loading.
func (d *Document) DynamicPage() bool { return d.access == AccessDynamicPage }

// Capabilities returns the host feature flags.
func (d *Document) Capabilities() Capabilities { return d.caps }

// Variables returns the variable store.
func (d *Document) Variables() *variables.Store { return d.vars }

// Fonts returns the font faces the document declares as installed.
func (d *Document) Fonts() []FontName { return d.fonts }

// Pages returns every page in order.
func (d *Document) Pages() []*Page { return d.pages }

// Close makes every further host call fail with ErrUnavailable.
func (d *Document) Close() { d.closed.Store(true) }

func (d *Document) available() error {
	if d.closed.Load() {
		return ErrUnavailable
	}
	return nil
}

// CurrentPage returns the page the user is looking at.
func (d *Document) CurrentPage() (*Page, error) {
	if err := d.available(); err != nil {
		return nil, err
	}
	return d.current, nil
}

// SetCurrentPage switches the current page.
func (d *Document) SetCurrentPage(id string) error {
	if err := d.available(); err != nil {
		return err
	}
	p, ok := d.index[id].(*Page)
	if !ok {
		return fmt.Errorf("%w: page %s", ErrNotFound, id)
	}
	d.current = p
	return nil
}

// Selection returns the selected nodes of the current page in order.
func (d *Document) Selection() ([]Node, error) {
	if err := d.available(); err != nil {
		return nil, err
	}
	out := make([]Node, 0, len(d.current.selection))
	for _, id := range d.current.selection {
		if n, ok := d.index[id]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// SetSelection replaces the current page's selection. Every id must name
// a node on the current page.
func (d *Document) SetSelection(ids []string) error {
	if err := d.available(); err != nil {
		return err
	}
	for _, id := range ids {
		n, ok := d.index[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if _, isPage := n.(*Page); isPage || pageOf(n) != d.current {
			return fmt.Errorf("node %s is not selectable on page %s", id, d.current.id)
		}
	}
	d.current.selection = append([]string(nil), ids...)
	return nil
}

// NodeByID looks a node up by id.
func (d *Document) NodeByID(ctx context.Context, id string) (Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := d.available(); err != nil {
		return nil, err
	}
	n, ok := d.index[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, nil
}

// VariableByID looks a variable definition up by id.
func (d *Document) VariableByID(ctx context.Context, id string) (*variables.Variable, error) {
	if err := d.available(); err != nil {
		return nil, err
	}
	return d.vars.VariableByID(ctx, id)
}

// ResolveForConsumer resolves v in the mode context of consumer.
func (d *Document) ResolveForConsumer(ctx context.Context, v *variables.Variable, consumer Node) (value.Raw, error) {
	if err := d.available(); err != nil {
		return value.Raw{}, err
	}
	return d.vars.Resolve(ctx, v.ID, ScopeFor(consumer))
}

// ScopeFor merges the explicit modes of n and its ancestors; the nearest
// setting for a collection wins.
func ScopeFor(n Node) variables.Modes {
	var out variables.Modes
	for cur := n; cur != nil; cur = cur.Parent() {
		modes := cur.(interface{ ExplicitModes() variables.Modes }).ExplicitModes()
		for c, m := range modes {
			if out == nil {
				out = make(variables.Modes)
			}
			if _, set := out[c]; !set {
				out[c] = m
			}
		}
	}
	return out
}

// RemoveBoundVariable erases the binding at path on n. Nested paint paths
// clear the per-paint binding as well as the flat map entry.
func (d *Document) RemoveBoundVariable(n Node, path string) error {
	if err := d.available(); err != nil {
		return err
	}
	if !d.caps.BindingRemoval {
		return fmt.Errorf("%w: binding removal", ErrUnsupported)
	}
	f := FacetsOf(n)
	if f.Bindings == nil {
		return fmt.Errorf("%w: %s has no bindings", ErrUnsupported, n.Kind())
	}
	f.Bindings.Delete(path)
	if f.Paints != nil {
		if err := clearPaintBinding(f.Paints, path); err != nil {
			return err
		}
	}
	return nil
}

// clearPaintBinding drops the color binding stored on a paint or stop
// addressed by a nested path. Other paths are ignored.
func clearPaintBinding(p *PaintSet, path string) error {
	parts := strings.Split(path, ".")
	if len(parts) != 3 && len(parts) != 5 {
		return nil
	}
	container := parts[0]
	if (container != Fills && container != Strokes) || parts[len(parts)-1] != "color" {
		return nil
	}
	i, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil
	}
	list, _ := p.List(container)
	if list.Mixed || i < 0 || i >= len(list.Paints) {
		return nil
	}
	paint := &list.Paints[i]
	if len(parts) == 3 {
		if _, ok := paint.BoundVariables["color"]; !ok {
			return nil
		}
		delete(paint.BoundVariables, "color")
	} else {
		j, err := strconv.Atoi(parts[3])
		if err != nil || parts[2] != "gradientStops" || j < 0 || j >= len(paint.GradientStops) {
			return nil
		}
		if _, ok := paint.GradientStops[j].BoundVariables["color"]; !ok {
			return nil
		}
		delete(paint.GradientStops[j].BoundVariables, "color")
	}
	return p.SetList(container, list)
}

// Marshal renders the current state as a snapshot.
func (d *Document) Marshal() ([]byte, error) {
	out := d.raw
	if d.current != nil {
		out.CurrentPage = d.current.id
	}
	out.Pages = make([]rawNode, 0, len(d.pages))
	for _, p := range d.pages {
		out.Pages = append(out.Pages, encodeNode(p))
	}
	return json.MarshalIndent(out, "", "  ")
}

// Save writes the snapshot to path via a temporary file and rename.
func (d *Document) Save(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".detachr-*.json")
	if err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("save document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save document: %w", err)
	}
	d.logger.Debug("document saved", "path", path)
	return nil
}
