package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gnana997/detachr/pkg/value"
)

// PaintType identifies a fill or stroke entry kind.
type PaintType string

const (
	PaintSolid           PaintType = "SOLID"
	PaintGradientLinear  PaintType = "GRADIENT_LINEAR"
	PaintGradientRadial  PaintType = "GRADIENT_RADIAL"
	PaintGradientAngular PaintType = "GRADIENT_ANGULAR"
	PaintGradientDiamond PaintType = "GRADIENT_DIAMOND"
	PaintImage           PaintType = "IMAGE"
	PaintVideo           PaintType = "VIDEO"
)

// IsGradient reports whether t is one of the four gradient kinds.
func (t PaintType) IsGradient() bool {
	switch t {
	case PaintGradientLinear, PaintGradientRadial, PaintGradientAngular, PaintGradientDiamond:
		return true
	}
	return false
}

// ColorStop is one stop of a gradient paint.
type ColorStop struct {
	Position       float64          `json:"position"`
	Color          value.Color      `json:"color"`
	BoundVariables map[string]Alias `json:"boundVariables,omitempty"`
}

// Paint is a single fill or stroke entry.
type Paint struct {
	Type              PaintType        `json:"type"`
	Color             *value.Color     `json:"color,omitempty"`
	Opacity           *float64         `json:"opacity,omitempty"`
	Visible           *bool            `json:"visible,omitempty"`
	BlendMode         string           `json:"blendMode,omitempty"`
	GradientStops     []ColorStop      `json:"gradientStops,omitempty"`
	GradientTransform [][]float64      `json:"gradientTransform,omitempty"`
	ScaleMode         string           `json:"scaleMode,omitempty"`
	ImageHash         string           `json:"imageHash,omitempty"`
	BoundVariables    map[string]Alias `json:"boundVariables,omitempty"`
}

// SolidPaint returns a single opaque solid paint of the given color.
func SolidPaint(c value.Color) Paint {
	opacity := 1.0
	rgb := value.RGB(c.R, c.G, c.B)
	return Paint{Type: PaintSolid, Color: &rgb, Opacity: &opacity}
}

// Clone returns a deep copy of p.
func (p Paint) Clone() Paint {
	out := p
	if p.Color != nil {
		c := *p.Color
		if p.Color.A != nil {
			a := *p.Color.A
			c.A = &a
		}
		out.Color = &c
	}
	if p.Opacity != nil {
		o := *p.Opacity
		out.Opacity = &o
	}
	if p.Visible != nil {
		v := *p.Visible
		out.Visible = &v
	}
	if p.GradientStops != nil {
		out.GradientStops = make([]ColorStop, len(p.GradientStops))
		for i, s := range p.GradientStops {
			out.GradientStops[i] = s.clone()
		}
	}
	if p.GradientTransform != nil {
		out.GradientTransform = make([][]float64, len(p.GradientTransform))
		for i, row := range p.GradientTransform {
			out.GradientTransform[i] = append([]float64(nil), row...)
		}
	}
	out.BoundVariables = cloneAliases(p.BoundVariables)
	return out
}

func (s ColorStop) clone() ColorStop {
	out := s
	if s.Color.A != nil {
		a := *s.Color.A
		out.Color.A = &a
	}
	out.BoundVariables = cloneAliases(s.BoundVariables)
	return out
}

func cloneAliases(m map[string]Alias) map[string]Alias {
	if m == nil {
		return nil
	}
	out := make(map[string]Alias, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// mixedToken is the JSON form of the mixed sentinel.
const mixedToken = "mixed"

// PaintList is a fills or strokes value. Mixed marks a multi-selection
// whose members disagree; Paints is nil in that case.
type PaintList struct {
	Paints []Paint
	Mixed  bool
}

// Paints builds a list from the given entries.
func Paints(p ...Paint) PaintList {
	return PaintList{Paints: p}
}

// MixedPaints returns the mixed sentinel.
func MixedPaints() PaintList {
	return PaintList{Mixed: true}
}

// Len returns the number of entries; zero when mixed.
func (l PaintList) Len() int {
	return len(l.Paints)
}

// Clone returns a deep copy of l.
func (l PaintList) Clone() PaintList {
	if l.Paints == nil {
		return PaintList{Mixed: l.Mixed}
	}
	out := PaintList{Paints: make([]Paint, len(l.Paints)), Mixed: l.Mixed}
	for i, p := range l.Paints {
		out.Paints[i] = p.Clone()
	}
	return out
}

// MarshalJSON encodes a mixed list as the "mixed" sentinel.
func (l PaintList) MarshalJSON() ([]byte, error) {
	if l.Mixed {
		return json.Marshal(mixedToken)
	}
	if l.Paints == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Paints)
}

// UnmarshalJSON accepts a paint array or the "mixed" sentinel.
func (l *PaintList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = PaintList{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s != mixedToken {
			return fmt.Errorf("paint list: unexpected string %q", s)
		}
		*l = MixedPaints()
		return nil
	}
	var paints []Paint
	if err := json.Unmarshal(data, &paints); err != nil {
		return fmt.Errorf("paint list: %w", err)
	}
	if paints == nil {
		paints = []Paint{}
	}
	*l = PaintList{Paints: paints}
	return nil
}
