package detach

import (
	"fmt"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/value"
)

// shorthandContainers maps single-paint color properties to the paint list
// they replace.
var shorthandContainers = map[string]string{
	"fill":            document.Fills,
	"stroke":          document.Strokes,
	"backgroundColor": document.Fills,
}

// applyColor writes a hex literal to the paint addressed by addr. Paint
// lists are read as copies and assigned back whole.
func applyColor(f document.Facets, addr binding.Address, lit value.Literal) error {
	hex, ok := lit.AsString()
	if !ok {
		return fmt.Errorf("%w: color value %q is not a string", ErrShapeMismatch, lit)
	}
	c, err := value.ParseHex(hex)
	if err != nil {
		return err
	}
	if f.Paints == nil {
		return fmt.Errorf("%w: node has no paints", ErrShapeMismatch)
	}

	switch addr.Kind {
	case binding.Direct:
		if container, ok := shorthandContainers[addr.Name]; ok {
			return f.Paints.SetList(container, document.Paints(document.SolidPaint(c)))
		}
		if addr.Name == document.Fills || addr.Name == document.Strokes {
			return recolorSolids(f.Paints, addr.Name, c)
		}
		return fmt.Errorf("%w: unsupported color property %q", ErrShapeMismatch, addr.Name)

	case binding.PaintSlot:
		list, err := editableList(f.Paints, addr)
		if err != nil {
			return err
		}
		p := &list.Paints[addr.Paint]
		if p.Type != document.PaintSolid || p.Color == nil {
			return fmt.Errorf("%w: %s is %s, not SOLID", ErrShapeMismatch, addr, p.Type)
		}
		recolored := c.WithAlpha(p.Color.Alpha())
		p.Color = &recolored
		return f.Paints.SetList(addr.Name, list)

	case binding.GradientStop:
		list, err := editableList(f.Paints, addr)
		if err != nil {
			return err
		}
		p := &list.Paints[addr.Paint]
		if !p.Type.IsGradient() {
			return fmt.Errorf("%w: %s.%d is %s, not a gradient", ErrShapeMismatch, addr.Name, addr.Paint, p.Type)
		}
		if addr.StopIndex >= len(p.GradientStops) {
			return fmt.Errorf("%w: stop %d out of range (%d stops)", ErrShapeMismatch, addr.StopIndex, len(p.GradientStops))
		}
		stop := &p.GradientStops[addr.StopIndex]
		stop.Color = c.WithAlpha(stop.Color.Alpha())
		return f.Paints.SetList(addr.Name, list)
	}
	return fmt.Errorf("%w: address %s", ErrShapeMismatch, addr)
}

// editableList returns a copy of the container addr points into, checking
// the paint index.
func editableList(ps *document.PaintSet, addr binding.Address) (document.PaintList, error) {
	list, err := ps.List(addr.Name)
	if err != nil {
		return document.PaintList{}, err
	}
	if list.Mixed {
		return document.PaintList{}, fmt.Errorf("%w: %s", document.ErrMixed, addr.Name)
	}
	if addr.Paint < 0 || addr.Paint >= len(list.Paints) {
		return document.PaintList{}, fmt.Errorf("%w: %s index %d out of range (%d paints)", ErrShapeMismatch, addr.Name, addr.Paint, len(list.Paints))
	}
	return list, nil
}

// recolorSolids replaces the color of every SOLID paint in the container,
// keeping each paint's alpha. Other paints pass through unchanged.
func recolorSolids(ps *document.PaintSet, container string, c value.Color) error {
	list, err := ps.List(container)
	if err != nil {
		return err
	}
	if list.Mixed {
		return fmt.Errorf("%w: %s", document.ErrMixed, container)
	}
	for i := range list.Paints {
		p := &list.Paints[i]
		if p.Type != document.PaintSolid {
			continue
		}
		recolored := c
		if p.Color != nil && p.Color.HasAlpha() {
			recolored = c.WithAlpha(p.Color.Alpha())
		}
		p.Color = &recolored
	}
	return ps.SetList(container, list)
}
