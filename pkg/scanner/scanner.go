package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/value"
	"github.com/gnana997/detachr/pkg/variables"
)

// Scanner discovers variable and style bindings in pre-order.
//
// Per node the order is: binding map entries in insertion order, the
// explicit fills/strokes probe, the five style-id fields, then children.
type Scanner struct {
	vars VariableSource
	cfg  Config
	log  *slog.Logger
}

// New creates a scanner. Exclude patterns are validated up front.
func New(vars VariableSource, cfg Config, logger *slog.Logger) (*Scanner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}
	return &Scanner{vars: vars, cfg: cfg, log: logger}, nil
}

// ScanSelection scans the host's selection, or the current page when
// nothing is selected.
func (s *Scanner) ScanSelection(ctx context.Context, host Host) (*ScanResult, error) {
	selection, err := host.Selection()
	if err != nil {
		return nil, fmt.Errorf("read selection: %w", err)
	}
	if len(selection) > 0 {
		return s.Scan(ctx, selection)
	}

	page, err := host.CurrentPage()
	if err != nil {
		return nil, fmt.Errorf("read current page: %w", err)
	}
	s.log.Debug("nothing selected, scanning current page", "page", page.Name())
	res, err := s.Scan(ctx, []document.Node{page})
	if err != nil {
		return nil, err
	}
	res.NoSelection = true
	return res, nil
}

// Scan walks roots depth-first. Bindings whose variable cannot be found or
// resolved are logged and skipped; only host unavailability and context
// cancellation abort the scan.
func (s *Scanner) Scan(ctx context.Context, roots []document.Node) (*ScanResult, error) {
	start := time.Now()
	w := &walk{
		Scanner:  s,
		ctx:      ctx,
		seen:     make(map[string]struct{}),
		bindings: []binding.VariableBinding{},
	}
	for _, root := range roots {
		if err := w.visit(root, root.Name()); err != nil {
			return nil, err
		}
	}

	if w.counts.Total() != len(w.bindings) {
		return nil, fmt.Errorf("scan counts out of sync: total %d, bindings %d", w.counts.Total(), len(w.bindings))
	}
	w.stats.TotalTimeMs = time.Since(start).Milliseconds()

	s.log.Info("scan complete",
		"roots", len(roots),
		"nodes", w.stats.NodesVisited,
		"bindings", len(w.bindings),
		"unresolved", w.stats.Unresolved,
		"duplicates", w.stats.Duplicates,
		"ms", w.stats.TotalTimeMs)

	return &ScanResult{Bindings: w.bindings, Counts: w.counts, Stats: w.stats}, nil
}

// walk is the state of one Scan call.
type walk struct {
	*Scanner
	ctx      context.Context
	seen     map[string]struct{}
	bindings []binding.VariableBinding
	counts   binding.Counts
	stats    ScanStats
}

func (w *walk) visit(n document.Node, namePath string) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if w.excluded(namePath) {
		w.stats.NodesExcluded++
		w.log.Debug("node excluded", "node", n.ID(), "path", namePath)
		return nil
	}
	w.stats.NodesVisited++

	f := document.FacetsOf(n)
	if f.Bindings != nil {
		for _, e := range f.Bindings.Entries() {
			if err := w.entry(n, e); err != nil {
				return err
			}
		}
		if f.Paints != nil {
			for _, container := range []string{document.Fills, document.Strokes} {
				if err := w.probePaints(n, f, container); err != nil {
					return err
				}
			}
		}
	}
	if f.Styles != nil {
		w.styles(n, f.Styles)
	}

	for _, c := range n.Children() {
		if err := w.visit(c, namePath+"/"+c.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (w *walk) excluded(namePath string) bool {
	for _, pattern := range w.cfg.Exclude {
		if ok, _ := doublestar.Match(pattern, namePath); ok {
			return true
		}
	}
	return false
}

// entry handles one binding map entry. Container entries for fills and
// strokes additionally yield one color binding per alias.
func (w *walk) entry(n document.Node, e document.Binding) error {
	container := e.Path == document.Fills || e.Path == document.Strokes

	if !e.Aliases.IsList() && len(e.Aliases.Aliases) == 1 {
		v, raw, ok, err := w.resolve(n, e.Path, e.Aliases.Aliases[0].ID)
		if err != nil {
			return err
		}
		if ok {
			typ, lit := binding.Classify(e.Path, v.ResolvedType, raw)
			w.add(n, typ, binding.ParseAddress(e.Path), v.Name, lit)
		}
	}
	if !container {
		return nil
	}

	for _, a := range e.Aliases.Aliases {
		v, raw, ok, err := w.resolve(n, e.Path, a.ID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if v.ResolvedType != variables.TypeColor {
			w.log.Debug("non-color variable on paint container", "node", n.ID(), "property", e.Path, "variable", v.Name)
			continue
		}
		var lit value.Literal
		if c, isColor := raw.Color(); isColor {
			lit = value.String(value.ToHex(c))
		} else {
			lit = value.String("")
		}
		w.add(n, binding.Color, binding.DirectAddress(e.Path), v.Name, lit)
	}
	return nil
}

// probePaints looks for color bindings on individual solid paints and
// gradient stops. A binding may live in the node's flat map under the
// nested path or on the paint itself.
func (w *walk) probePaints(n document.Node, f document.Facets, container string) error {
	list, err := f.Paints.List(container)
	if err != nil || list.Mixed {
		return nil
	}
	for i, p := range list.Paints {
		switch {
		case p.Type == document.PaintSolid:
			addr := binding.PaintSlotAddress(container, i)
			if id, ok := nestedAlias(f.Bindings, addr.String(), p.BoundVariables); ok {
				if err := w.addColor(n, addr, id); err != nil {
					return err
				}
			}
		case p.Type.IsGradient():
			for j, stop := range p.GradientStops {
				addr := binding.GradientStopAddress(container, i, j)
				if id, ok := nestedAlias(f.Bindings, addr.String(), stop.BoundVariables); ok {
					if err := w.addColor(n, addr, id); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func nestedAlias(flat *document.BoundVariables, path string, local map[string]document.Alias) (string, bool) {
	if l, ok := flat.Get(path); ok && len(l.Aliases) > 0 {
		return l.Aliases[0].ID, true
	}
	if a, ok := local["color"]; ok && a.ID != "" {
		return a.ID, true
	}
	return "", false
}

func (w *walk) addColor(n document.Node, addr binding.Address, aliasID string) error {
	v, raw, ok, err := w.resolve(n, addr.String(), aliasID)
	if err != nil || !ok {
		return err
	}
	w.add(n, binding.Color, addr, v.Name, binding.ColorLiteral(raw))
	return nil
}

func (w *walk) styles(n document.Node, styles *document.StyleSet) {
	for _, field := range document.StyleFields {
		id, ok := styles.Get(field)
		if !ok || id.Mixed || id.ID == "" {
			continue
		}
		typ, lit := binding.ClassifyStyle(string(field), id.ID)
		w.stats.StyleBindings++
		w.add(n, typ, binding.DirectAddress(string(field)), binding.StyleVariableName(id.ID), lit)
	}
}

// resolve returns ok=false for per-binding failures, which are skipped,
// and a non-nil error only when the scan must stop.
func (w *walk) resolve(n document.Node, path, id string) (*variables.Variable, value.Raw, bool, error) {
	v, err := w.vars.VariableByID(w.ctx, id)
	if err != nil {
		if fatal(err) {
			return nil, value.Raw{}, false, fmt.Errorf("lookup variable %s: %w", id, err)
		}
		w.stats.Unresolved++
		w.log.Warn("variable not found, skipping binding", "node", n.ID(), "property", path, "variable", id, "error", err)
		return nil, value.Raw{}, false, nil
	}
	raw, err := w.vars.ResolveForConsumer(w.ctx, v, n)
	if err != nil {
		if fatal(err) {
			return nil, value.Raw{}, false, fmt.Errorf("resolve variable %s: %w", id, err)
		}
		w.stats.Unresolved++
		w.log.Warn("variable did not resolve, skipping binding", "node", n.ID(), "property", path, "variable", v.Name, "error", err)
		return nil, value.Raw{}, false, nil
	}
	return v, raw, true, nil
}

func fatal(err error) bool {
	return errors.Is(err, document.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (w *walk) add(n document.Node, typ binding.VariableType, addr binding.Address, variable string, lit value.Literal) {
	if w.cfg.Dedupe {
		key := n.ID() + "\x00" + addr.String()
		if _, dup := w.seen[key]; dup {
			w.stats.Duplicates++
			w.log.Debug("duplicate binding dropped", "node", n.ID(), "property", addr.String())
			return
		}
		w.seen[key] = struct{}{}
	}
	w.bindings = append(w.bindings, binding.VariableBinding{
		NodeID:          n.ID(),
		NodeName:        n.Name(),
		VariableType:    typ,
		Property:        addr,
		CurrentVariable: variable,
		ResolvedValue:   lit,
	})
	w.counts.Add(typ)
	w.log.Debug("binding found", "node", n.ID(), "property", addr.String(), "type", typ.String(), "variable", variable)
}
