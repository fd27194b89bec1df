package document

import (
	"fmt"

	"github.com/gnana997/detachr/pkg/variables"
)

// rawNode is the snapshot form of every node variant.
type rawNode struct {
	ID                    string            `json:"id"`
	Name                  string            `json:"name"`
	Type                  Kind              `json:"type"`
	BoundVariables        *BoundVariables   `json:"boundVariables,omitempty"`
	ExplicitVariableModes map[string]string `json:"explicitVariableModes,omitempty"`

	Fills   *PaintList `json:"fills,omitempty"`
	Strokes *PaintList `json:"strokes,omitempty"`

	FillStyleID   *StyleID `json:"fillStyleId,omitempty"`
	StrokeStyleID *StyleID `json:"strokeStyleId,omitempty"`
	TextStyleID   *StyleID `json:"textStyleId,omitempty"`
	EffectStyleID *StyleID `json:"effectStyleId,omitempty"`
	GridStyleID   *StyleID `json:"gridStyleId,omitempty"`

	Width         *float64 `json:"width,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	PaddingLeft   *float64 `json:"paddingLeft,omitempty"`
	PaddingRight  *float64 `json:"paddingRight,omitempty"`
	PaddingTop    *float64 `json:"paddingTop,omitempty"`
	PaddingBottom *float64 `json:"paddingBottom,omitempty"`
	ItemSpacing   *float64 `json:"itemSpacing,omitempty"`
	CornerRadius  *float64 `json:"cornerRadius,omitempty"`

	Characters *string   `json:"characters,omitempty"`
	FontName   *FontName `json:"fontName,omitempty"`

	Selection []string  `json:"selection,omitempty"`
	Children  []rawNode `json:"children,omitempty"`
}

func (r *rawNode) styleField(f StyleField) **StyleID {
	switch f {
	case FillStyle:
		return &r.FillStyleID
	case StrokeStyle:
		return &r.StrokeStyleID
	case TextStyle:
		return &r.TextStyleID
	case EffectStyle:
		return &r.EffectStyleID
	default:
		return &r.GridStyleID
	}
}

func (r *rawNode) numberField(name string) **float64 {
	switch name {
	case PaddingLeft:
		return &r.PaddingLeft
	case PaddingRight:
		return &r.PaddingRight
	case PaddingTop:
		return &r.PaddingTop
	case PaddingBottom:
		return &r.PaddingBottom
	case ItemSpacing:
		return &r.ItemSpacing
	case CornerRadius:
		return &r.CornerRadius
	default:
		return nil
	}
}

var layoutFields = []string{PaddingLeft, PaddingRight, PaddingTop, PaddingBottom, ItemSpacing, CornerRadius}

// variantSpec lists the optional fields a kind supports.
type variantSpec struct {
	styles []StyleField
	layout []string
}

func specFor(k Kind) (variantSpec, bool) {
	switch k {
	case KindPage:
		return variantSpec{}, true
	case KindFrame, KindComponent, KindComponentSet, KindInstance, KindSection:
		return variantSpec{
			styles: []StyleField{FillStyle, StrokeStyle, EffectStyle, GridStyle},
			layout: []string{PaddingLeft, PaddingRight, PaddingTop, PaddingBottom, ItemSpacing, CornerRadius},
		}, true
	case KindGroup:
		return variantSpec{}, true
	case KindRectangle, KindPolygon, KindStar, KindVector:
		return variantSpec{styles: []StyleField{FillStyle, StrokeStyle, EffectStyle}, layout: []string{CornerRadius}}, true
	case KindEllipse, KindLine:
		return variantSpec{styles: []StyleField{FillStyle, StrokeStyle, EffectStyle}}, true
	case KindText:
		return variantSpec{styles: []StyleField{FillStyle, StrokeStyle, TextStyle, EffectStyle}}, true
	}
	return variantSpec{}, false
}

// decoder turns raw nodes into variants, collecting every problem found.
type decoder struct {
	index map[string]Node
	errs  []error
}

func (d *decoder) errorf(format string, args ...any) {
	d.errs = append(d.errs, fmt.Errorf(format, args...))
}

func (d *decoder) decode(r *rawNode, parent Node, path string) Node {
	if r.ID == "" {
		d.errorf("%s: id is required", path)
		return nil
	}
	if _, dup := d.index[r.ID]; dup {
		d.errorf("node %q: duplicate id", r.ID)
		return nil
	}
	spec, ok := specFor(r.Type)
	if !ok {
		d.errorf("node %q: unknown type %q", r.ID, r.Type)
		return nil
	}
	if r.Type == KindPage && parent != nil {
		d.errorf("node %q: pages cannot be nested", r.ID)
		return nil
	}
	if r.Type != KindPage && parent == nil {
		d.errorf("node %q: top-level node must be a page, got %s", r.ID, r.Type)
		return nil
	}

	b := base{id: r.ID, name: r.Name, kind: r.Type, parent: parent}
	if len(r.ExplicitVariableModes) > 0 {
		b.modes = variables.Modes(r.ExplicitVariableModes)
	}

	var n Node
	switch r.Type {
	case KindPage:
		p := &Page{base: b, selection: r.Selection}
		d.index[r.ID] = p
		p.children = d.decodeChildren(r, p)
		n = p
	case KindGroup:
		g := &Group{base: b, bindings: d.bindings(r), layout: d.layout(r, spec)}
		d.index[r.ID] = g
		g.children = d.decodeChildren(r, g)
		n = g
	case KindText:
		t := &Text{base: b, bindings: d.bindings(r), paints: d.paints(r), styles: d.styles(r, spec), layout: d.layout(r, spec)}
		if r.Characters != nil {
			t.text.characters = *r.Characters
		}
		if r.FontName != nil {
			t.text.font = *r.FontName
		}
		d.index[r.ID] = t
		d.leaf(r)
		n = t
	case KindFrame, KindComponent, KindComponentSet, KindInstance, KindSection:
		f := &Frame{base: b, bindings: d.bindings(r), paints: d.paints(r), styles: d.styles(r, spec), layout: d.layout(r, spec)}
		d.index[r.ID] = f
		f.children = d.decodeChildren(r, f)
		n = f
	default:
		s := &Shape{base: b, bindings: d.bindings(r), paints: d.paints(r), styles: d.styles(r, spec), layout: d.layout(r, spec)}
		d.index[r.ID] = s
		d.leaf(r)
		n = s
	}
	if r.Type != KindText && (r.Characters != nil || r.FontName != nil) {
		d.errorf("node %q: text fields on %s", r.ID, r.Type)
	}
	if r.Type != KindPage && len(r.Selection) > 0 {
		d.errorf("node %q: selection is only valid on pages", r.ID)
	}
	return n
}

func (d *decoder) decodeChildren(r *rawNode, parent Node) []Node {
	if len(r.Children) == 0 {
		return nil
	}
	out := make([]Node, 0, len(r.Children))
	for i := range r.Children {
		if c := d.decode(&r.Children[i], parent, fmt.Sprintf("%s.children[%d]", r.ID, i)); c != nil {
			out = append(out, c)
		}
	}
	return out
}

func (d *decoder) leaf(r *rawNode) {
	if len(r.Children) > 0 {
		d.errorf("node %q: %s cannot have children", r.ID, r.Type)
	}
}

func (d *decoder) bindings(r *rawNode) *BoundVariables {
	if r.BoundVariables != nil {
		return r.BoundVariables
	}
	return NewBoundVariables()
}

func (d *decoder) paints(r *rawNode) PaintSet {
	var p PaintSet
	if r.Fills != nil {
		p.fills = *r.Fills
	}
	if r.Strokes != nil {
		p.strokes = *r.Strokes
	}
	return p
}

func (d *decoder) styles(r *rawNode, spec variantSpec) StyleSet {
	s := newStyleSet(spec.styles...)
	for _, f := range StyleFields {
		v := *r.styleField(f)
		if v == nil {
			continue
		}
		if err := s.Set(f, *v); err != nil {
			d.errorf("node %q: %s not supported on %s", r.ID, f, r.Type)
		}
	}
	return s
}

func (d *decoder) layout(r *rawNode, spec variantSpec) Layout {
	l := newLayout(spec.layout...)
	if r.Width != nil {
		l.width = *r.Width
	}
	if r.Height != nil {
		l.height = *r.Height
	}
	for _, name := range layoutFields {
		v := *r.numberField(name)
		if v == nil {
			continue
		}
		if err := l.SetNumber(name, *v); err != nil {
			d.errorf("node %q: %s not supported on %s", r.ID, name, r.Type)
		}
	}
	return l
}

// encodeNode renders a node back to its snapshot form.
func encodeNode(n Node) rawNode {
	r := rawNode{ID: n.ID(), Name: n.Name(), Type: n.Kind()}
	switch v := n.(type) {
	case *Page:
		r.Selection = append([]string(nil), v.selection...)
	case *Frame:
		r.ExplicitVariableModes = v.modes
	case *Group:
		r.ExplicitVariableModes = v.modes
	case *Shape:
		r.ExplicitVariableModes = v.modes
	case *Text:
		r.ExplicitVariableModes = v.modes
		chars, font := v.text.characters, v.text.font
		r.Characters = &chars
		r.FontName = &font
	}

	f := FacetsOf(n)
	if f.Bindings != nil && f.Bindings.Len() > 0 {
		r.BoundVariables = f.Bindings
	}
	if f.Paints != nil {
		fills, strokes := f.Paints.fills.Clone(), f.Paints.strokes.Clone()
		r.Fills, r.Strokes = &fills, &strokes
	}
	if f.Styles != nil {
		for _, sf := range StyleFields {
			if id, ok := f.Styles.Get(sf); ok {
				id := id
				*r.styleField(sf) = &id
			}
		}
	}
	if f.Layout != nil {
		w, h := f.Layout.width, f.Layout.height
		r.Width, r.Height = &w, &h
		for _, name := range layoutFields {
			if v, ok := f.Layout.fields[name]; ok {
				v := v
				*r.numberField(name) = &v
			}
		}
	}
	for _, c := range n.Children() {
		r.Children = append(r.Children, encodeNode(c))
	}
	return r
}
