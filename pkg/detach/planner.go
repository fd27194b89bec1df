// Package detach replaces variable bindings with their resolved literal
// values.
//
// A detach runs in two stages. NewPlan filters the bindings by category and
// collects the fonts that text rewrites need; Executor.Run loads those fonts
// in one concurrent batch and then applies each binding in order.
package detach

import (
	"context"
	"errors"
	"fmt"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
)

// NodeSource looks nodes up by id.
type NodeSource interface {
	NodeByID(ctx context.Context, id string) (document.Node, error)
}

// Plan is a filtered detach request.
type Plan struct {
	Bindings []binding.VariableBinding
	Options  binding.DetachOptions

	// Fonts are the distinct faces of the text nodes whose characters will
	// be rewritten, in first-seen order. Empty for dry runs.
	Fonts []document.FontName
}

// NewPlan keeps the bindings whose category is enabled in opts. For live
// runs with text enabled it also collects the fonts to load; nodes that
// cannot be found or carry mixed fonts are left for the executor to skip.
func NewPlan(ctx context.Context, nodes NodeSource, bindings []binding.VariableBinding, opts binding.DetachOptions) (*Plan, error) {
	plan := &Plan{
		Bindings: make([]binding.VariableBinding, 0, len(bindings)),
		Options:  opts,
	}
	for _, b := range bindings {
		if opts.Enabled(b.VariableType) {
			plan.Bindings = append(plan.Bindings, b)
		}
	}
	if opts.DryRun || !opts.Text {
		return plan, nil
	}

	seen := make(map[document.FontName]bool)
	for _, b := range plan.Bindings {
		if b.VariableType != binding.Text || b.Property != binding.DirectAddress(binding.CharactersProperty) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := nodes.NodeByID(ctx, b.NodeID)
		if err != nil {
			if errors.Is(err, document.ErrUnavailable) {
				return nil, fmt.Errorf("plan fonts: %w", err)
			}
			continue
		}
		text := document.FacetsOf(n).Text
		if text == nil {
			continue
		}
		font := text.Font()
		if font.Mixed || seen[font] {
			continue
		}
		seen[font] = true
		plan.Fonts = append(plan.Fonts, font)
	}
	return plan, nil
}
