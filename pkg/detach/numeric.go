package detach

import (
	"fmt"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
)

// layoutFields are the numeric properties written through Layout.SetNumber.
var layoutFields = map[string]bool{
	document.PaddingLeft:   true,
	document.PaddingRight:  true,
	document.PaddingTop:    true,
	document.PaddingBottom: true,
	document.ItemSpacing:   true,
	document.CornerRadius:  true,
}

// applyNumber writes a numeric literal. Property names it does not know
// are left alone; the binding is still removed by the caller.
func applyNumber(f document.Facets, addr binding.Address, v float64) error {
	if addr.Kind != binding.Direct {
		return nil
	}
	name := addr.Name
	if name != document.Width && name != document.Height && !layoutFields[name] {
		return nil
	}
	if f.Layout == nil {
		return fmt.Errorf("%w: node has no layout", ErrShapeMismatch)
	}

	switch name {
	case document.Width:
		return f.Layout.Resize(v, f.Layout.Height())
	case document.Height:
		return f.Layout.Resize(f.Layout.Width(), v)
	default:
		return f.Layout.SetNumber(name, v)
	}
}
