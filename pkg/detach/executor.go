package detach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
)

// ErrShapeMismatch is returned when a property address does not match the
// node: an index out of range, an unexpected paint type or a value of the
// wrong kind.
var ErrShapeMismatch = errors.New("shape mismatch")

// Host is the document surface the executor mutates.
type Host interface {
	NodeSource
	RemoveBoundVariable(n document.Node, path string) error
}

// Executor applies a Plan to a document.
//
// **Thread Safety:** Run mutates the document; callers serialize runs
// against any other access to the same document.
type Executor struct {
	host   Host
	fonts  FontLoader
	logger *slog.Logger
}

// NewExecutor creates an executor. fonts may be nil, in which case every
// text face is taken as already available.
func NewExecutor(host Host, fonts FontLoader, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{host: host, fonts: fonts, logger: logger}
}

// Run detaches every binding in plan, in order. A dry run reports the
// plan's bindings as detached without touching the document. In a live
// run each binding either lands in Detached or in Skipped with a reason;
// failures never stop the batch and completed detaches are never rolled
// back. The error is non-nil only when the font batch could not be
// awaited.
func (e *Executor) Run(ctx context.Context, plan *Plan) (*Result, error) {
	start := time.Now()

	if plan.Options.DryRun {
		detached := make([]Record, len(plan.Bindings))
		for i, b := range plan.Bindings {
			detached[i] = Record{VariableBinding: b}
		}
		e.logger.Info("dry run", "bindings", len(detached))
		return Summarize(detached, nil, true), nil
	}

	failedFonts := map[document.FontName]error{}
	if e.fonts != nil && len(plan.Fonts) > 0 {
		var err error
		failedFonts, err = LoadFonts(ctx, e.fonts, plan.Fonts, e.logger)
		if err != nil {
			return nil, fmt.Errorf("load fonts: %w", err)
		}
	}

	var detached, skipped []Record
	for _, b := range plan.Bindings {
		if err := ctx.Err(); err != nil {
			skipped = append(skipped, Record{VariableBinding: b, Reason: err.Error()})
			continue
		}
		outcome, err := e.detachOne(ctx, b, failedFonts)
		if err != nil {
			e.logger.Warn("binding skipped",
				"node", b.NodeID,
				"property", b.Property.String(),
				"variable", b.CurrentVariable,
				"error", err)
			skipped = append(skipped, Record{VariableBinding: b, Reason: err.Error()})
			continue
		}
		detached = append(detached, Record{VariableBinding: b, Outcome: outcome})
	}

	res := Summarize(detached, skipped, false)
	e.logger.Info("detach complete",
		"detached", len(res.Detached),
		"skipped", len(res.Skipped),
		"duration_ms", time.Since(start).Milliseconds())
	return res, nil
}

// detachOne applies a single binding. Panics from the document layer are
// turned into errors so one bad node cannot end the batch.
func (e *Executor) detachOne(ctx context.Context, b binding.VariableBinding, failedFonts map[document.FontName]error) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome, err = "", fmt.Errorf("panic applying %s: %v", b.Property, r)
		}
	}()

	n, err := e.host.NodeByID(ctx, b.NodeID)
	if err != nil {
		return "", fmt.Errorf("node %s: %w", b.NodeID, err)
	}

	if b.Property.IsStyle() {
		return clearStyle(n, b.Property.Name)
	}

	f := document.FacetsOf(n)
	if f.Bindings == nil {
		return "", fmt.Errorf("%w: %s nodes take no bindings", document.ErrUnsupported, n.Kind())
	}

	if err := applyLiteral(f, b, failedFonts); err != nil {
		return "", err
	}

	if err := e.host.RemoveBoundVariable(n, b.Property.String()); err != nil {
		e.logger.Warn("binding removal failed, literal kept",
			"node", b.NodeID,
			"property", b.Property.String(),
			"error", err)
		return AppliedWithoutUnbind, nil
	}
	return Applied, nil
}

// clearStyle detaches a legacy style attachment by emptying the field.
func clearStyle(n document.Node, name string) (Outcome, error) {
	styles := document.FacetsOf(n).Styles
	if styles == nil || !document.IsStyleField(name) || !styles.Clear(document.StyleField(name)) {
		return "", fmt.Errorf("%w: %s has no %s", ErrShapeMismatch, n.Kind(), name)
	}
	return Applied, nil
}

func applyLiteral(f document.Facets, b binding.VariableBinding, failedFonts map[document.FontName]error) error {
	switch b.VariableType {
	case binding.Text:
		if b.Property != binding.DirectAddress(binding.CharactersProperty) {
			return nil
		}
		return applyCharacters(f, b, failedFonts)
	case binding.Color:
		return applyColor(f, b.Property, b.ResolvedValue)
	case binding.Number, binding.Other:
		n, ok := b.ResolvedValue.AsNumber()
		if !ok {
			if b.VariableType == binding.Number {
				return fmt.Errorf("%w: %q is not a number", ErrShapeMismatch, b.ResolvedValue)
			}
			return nil
		}
		return applyNumber(f, b.Property, n)
	}
	return fmt.Errorf("%w: unknown variable type %v", ErrShapeMismatch, b.VariableType)
}

func applyCharacters(f document.Facets, b binding.VariableBinding, failedFonts map[document.FontName]error) error {
	if f.Text == nil {
		return fmt.Errorf("%w: node has no text", ErrShapeMismatch)
	}
	if loadErr, failed := failedFonts[f.Text.Font()]; failed {
		return fmt.Errorf("font %s not loaded: %w", f.Text.Font(), loadErr)
	}
	return f.Text.SetCharacters(b.ResolvedValue.String())
}
