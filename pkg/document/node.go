package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gnana997/detachr/pkg/variables"
)

var (
	// ErrNotFound is returned for unknown node or page ids.
	ErrNotFound = errors.New("node not found")
	// ErrUnavailable is returned by every host call after Close.
	ErrUnavailable = errors.New("document unavailable")
	// ErrUnsupported is returned when a node variant lacks a property or
	// the host lacks a capability.
	ErrUnsupported = errors.New("unsupported by node")
	// ErrMixed is returned when a mixed value cannot be read or written.
	ErrMixed = errors.New("mixed value")
)

// Kind is the host node type tag.
type Kind string

const (
	KindPage         Kind = "PAGE"
	KindFrame        Kind = "FRAME"
	KindComponent    Kind = "COMPONENT"
	KindComponentSet Kind = "COMPONENT_SET"
	KindInstance     Kind = "INSTANCE"
	KindSection      Kind = "SECTION"
	KindGroup        Kind = "GROUP"
	KindRectangle    Kind = "RECTANGLE"
	KindEllipse      Kind = "ELLIPSE"
	KindPolygon      Kind = "POLYGON"
	KindStar         Kind = "STAR"
	KindVector       Kind = "VECTOR"
	KindLine         Kind = "LINE"
	KindText         Kind = "TEXT"
)

// Node is a scene graph node. The set of implementations is closed:
// *Page, *Frame, *Group, *Shape and *Text.
type Node interface {
	ID() string
	Name() string
	Kind() Kind
	Parent() Node
	Children() []Node
	node()
}

type base struct {
	id     string
	name   string
	kind   Kind
	parent Node
	modes  variables.Modes
}

func (b *base) ID() string   { return b.id }
func (b *base) Name() string { return b.name }
func (b *base) Kind() Kind   { return b.kind }
func (b *base) Parent() Node { return b.parent }
func (b *base) node()        {}

// ExplicitModes returns the modes set directly on this node.
func (b *base) ExplicitModes() variables.Modes { return b.modes }

// Page is a top-level canvas. Pages carry no bindings.
type Page struct {
	base
	children  []Node
	selection []string
}

func (p *Page) Children() []Node { return p.children }

// Frame covers frames, components, component sets, instances and sections.
type Frame struct {
	base
	bindings *BoundVariables
	paints   PaintSet
	styles   StyleSet
	layout   Layout
	children []Node
}

func (f *Frame) Children() []Node { return f.children }

// Group is a pure container with bindable size.
type Group struct {
	base
	bindings *BoundVariables
	layout   Layout
	children []Node
}

func (g *Group) Children() []Node { return g.children }

// Shape covers the vector leaf kinds.
type Shape struct {
	base
	bindings *BoundVariables
	paints   PaintSet
	styles   StyleSet
	layout   Layout
}

func (s *Shape) Children() []Node { return nil }

// Text is a text layer.
type Text struct {
	base
	bindings *BoundVariables
	paints   PaintSet
	styles   StyleSet
	layout   Layout
	text     TextContent
}

func (t *Text) Children() []Node { return nil }

// Facets exposes the capability groups carried by a node variant.
// Absent capabilities are nil.
type Facets struct {
	Bindings *BoundVariables
	Paints   *PaintSet
	Styles   *StyleSet
	Layout   *Layout
	Text     *TextContent
}

// FacetsOf returns the capabilities of n.
func FacetsOf(n Node) Facets {
	switch v := n.(type) {
	case *Page:
		return Facets{}
	case *Frame:
		return Facets{Bindings: v.bindings, Paints: &v.paints, Styles: &v.styles, Layout: &v.layout}
	case *Group:
		return Facets{Bindings: v.bindings, Layout: &v.layout}
	case *Shape:
		return Facets{Bindings: v.bindings, Paints: &v.paints, Styles: &v.styles, Layout: &v.layout}
	case *Text:
		return Facets{Bindings: v.bindings, Paints: &v.paints, Styles: &v.styles, Layout: &v.layout, Text: &v.text}
	default:
		panic(fmt.Sprintf("document: unknown node type %T", n))
	}
}

// Bindable reports whether n supports variable bindings at all.
func Bindable(n Node) bool {
	return FacetsOf(n).Bindings != nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, fn)
	}
}

// PaintSet holds a node's fills and strokes. Reads return copies; writes
// go through SetList so the stored lists are never aliased.
type PaintSet struct {
	fills   PaintList
	strokes PaintList
}

// Paint container property names.
const (
	Fills   = "fills"
	Strokes = "strokes"
)

// List returns a copy of the named container.
func (p *PaintSet) List(container string) (PaintList, error) {
	switch container {
	case Fills:
		return p.fills.Clone(), nil
	case Strokes:
		return p.strokes.Clone(), nil
	default:
		return PaintList{}, fmt.Errorf("%w: paint container %q", ErrUnsupported, container)
	}
}

// SetList replaces the named container with a copy of l.
func (p *PaintSet) SetList(container string, l PaintList) error {
	if l.Mixed {
		return fmt.Errorf("%w: cannot assign mixed %s", ErrMixed, container)
	}
	switch container {
	case Fills:
		p.fills = l.Clone()
	case Strokes:
		p.strokes = l.Clone()
	default:
		return fmt.Errorf("%w: paint container %q", ErrUnsupported, container)
	}
	return nil
}

// StyleField names a legacy style attachment property.
type StyleField string

const (
	FillStyle   StyleField = "fillStyleId"
	StrokeStyle StyleField = "strokeStyleId"
	TextStyle   StyleField = "textStyleId"
	EffectStyle StyleField = "effectStyleId"
	GridStyle   StyleField = "gridStyleId"
)

// StyleFields lists the style properties in scan order.
var StyleFields = []StyleField{FillStyle, StrokeStyle, TextStyle, EffectStyle, GridStyle}

// IsStyleField reports whether name is one of StyleFields.
func IsStyleField(name string) bool {
	for _, f := range StyleFields {
		if string(f) == name {
			return true
		}
	}
	return false
}

// StyleID is a style attachment value, possibly the mixed sentinel.
type StyleID struct {
	ID    string
	Mixed bool
}

// MarshalJSON encodes the id or the "mixed" sentinel.
func (s StyleID) MarshalJSON() ([]byte, error) {
	if s.Mixed {
		return json.Marshal(mixedToken)
	}
	return json.Marshal(s.ID)
}

// UnmarshalJSON accepts a style id string; "mixed" sets Mixed.
func (s *StyleID) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("style id: %w", err)
	}
	if id == mixedToken {
		*s = StyleID{Mixed: true}
		return nil
	}
	*s = StyleID{ID: id}
	return nil
}

// StyleSet holds the style fields a variant supports.
type StyleSet struct {
	ids map[StyleField]StyleID
}

func newStyleSet(fields ...StyleField) StyleSet {
	s := StyleSet{ids: make(map[StyleField]StyleID, len(fields))}
	for _, f := range fields {
		s.ids[f] = StyleID{}
	}
	return s
}

// Get returns the field value; ok is false when the variant lacks it.
func (s *StyleSet) Get(f StyleField) (StyleID, bool) {
	id, ok := s.ids[f]
	return id, ok
}

// Set assigns a supported field.
func (s *StyleSet) Set(f StyleField, id StyleID) error {
	if _, ok := s.ids[f]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, f)
	}
	s.ids[f] = id
	return nil
}

// Clear empties a supported field and reports whether the field exists.
func (s *StyleSet) Clear(f StyleField) bool {
	if _, ok := s.ids[f]; !ok {
		return false
	}
	s.ids[f] = StyleID{}
	return true
}

// Numeric layout property names.
const (
	Width         = "width"
	Height        = "height"
	PaddingLeft   = "paddingLeft"
	PaddingRight  = "paddingRight"
	PaddingTop    = "paddingTop"
	PaddingBottom = "paddingBottom"
	ItemSpacing   = "itemSpacing"
	CornerRadius  = "cornerRadius"
)

// minDimension is the smallest size Resize accepts.
const minDimension = 0.01

// Layout holds a node's size and the numeric layout fields its variant
// supports.
type Layout struct {
	width, height float64
	fields        map[string]float64
}

func newLayout(fields ...string) Layout {
	l := Layout{fields: make(map[string]float64, len(fields))}
	for _, f := range fields {
		l.fields[f] = 0
	}
	return l
}

// Width and Height return the node size.
func (l *Layout) Width() float64  { return l.width }
func (l *Layout) Height() float64 { return l.height }

// Resize sets both dimensions.
func (l *Layout) Resize(w, h float64) error {
	if w < minDimension || h < minDimension {
		return fmt.Errorf("resize to %gx%g: dimensions must be at least %g", w, h, minDimension)
	}
	l.width, l.height = w, h
	return nil
}

// Number returns a numeric field; ok is false when unsupported.
func (l *Layout) Number(name string) (float64, bool) {
	switch name {
	case Width:
		return l.width, true
	case Height:
		return l.height, true
	}
	v, ok := l.fields[name]
	return v, ok
}

// SetNumber assigns a supported numeric field other than width/height.
func (l *Layout) SetNumber(name string, v float64) error {
	if _, ok := l.fields[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	l.fields[name] = v
	return nil
}

// FontName identifies a font face. Mixed marks text with several faces.
type FontName struct {
	Family string `json:"family"`
	Style  string `json:"style"`
	Mixed  bool   `json:"-"`
}

// String renders "Family Style".
func (f FontName) String() string {
	if f.Mixed {
		return mixedToken
	}
	return f.Family + " " + f.Style
}

// MarshalJSON encodes a mixed font as the "mixed" sentinel.
func (f FontName) MarshalJSON() ([]byte, error) {
	if f.Mixed {
		return json.Marshal(mixedToken)
	}
	type plain FontName
	return json.Marshal(plain(f))
}

// UnmarshalJSON accepts a {family, style} object or "mixed".
func (f *FontName) UnmarshalJSON(data []byte) error {
	if d := bytes.TrimSpace(data); len(d) > 0 && d[0] == '"' {
		var s string
		if err := json.Unmarshal(d, &s); err != nil {
			return err
		}
		if s != mixedToken {
			return fmt.Errorf("font name: unexpected string %q", s)
		}
		*f = FontName{Mixed: true}
		return nil
	}
	type plain FontName
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("font name: %w", err)
	}
	*f = FontName(p)
	return nil
}

// TextContent is a text node's characters and font.
type TextContent struct {
	characters string
	font       FontName
}

// Characters and Font read the text content.
func (t *TextContent) Characters() string { return t.characters }
func (t *TextContent) Font() FontName     { return t.font }

// SetCharacters replaces the text. Text with mixed fonts cannot be
// rewritten as a whole.
func (t *TextContent) SetCharacters(s string) error {
	if t.font.Mixed {
		return fmt.Errorf("%w: font", ErrMixed)
	}
	t.characters = s
	return nil
}
