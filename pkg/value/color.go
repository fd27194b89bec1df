// Package value holds the literal value types shared by the scan and detach
// engines together with the color hex codec.
package value

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// ErrInvalidHex is returned by ParseHex for anything other than "#rrggbb".
var ErrInvalidHex = errors.New("invalid hex color")

// Color is a normalized color with unit-interval channels.
// A is nil for RGB-only colors; Alpha reports 1 in that case.
type Color struct {
	R float64  `json:"r"`
	G float64  `json:"g"`
	B float64  `json:"b"`
	A *float64 `json:"a,omitempty"`
}

// RGB returns an opaque color without an explicit alpha channel.
func RGB(r, g, b float64) Color {
	return Color{R: r, G: g, B: b}
}

// RGBA returns a color carrying an explicit alpha channel.
func RGBA(r, g, b, a float64) Color {
	return Color{R: r, G: g, B: b, A: &a}
}

// Alpha returns the alpha channel, defaulting to 1.
func (c Color) Alpha() float64 {
	if c.A == nil {
		return 1
	}
	return *c.A
}

// HasAlpha reports whether the color carries an explicit alpha channel.
func (c Color) HasAlpha() bool {
	return c.A != nil
}

// WithAlpha returns a copy of c with an explicit alpha channel.
func (c Color) WithAlpha(a float64) Color {
	c.A = &a
	return c
}

// Equal compares channels and effective alpha.
func (c Color) Equal(o Color) bool {
	return c.R == o.R && c.G == o.G && c.B == o.B && c.Alpha() == o.Alpha()
}

// ToHex encodes the RGB channels as a lower-case "#rrggbb" string.
// Alpha is not part of the encoding.
func ToHex(c Color) string {
	return fmt.Sprintf("#%02x%02x%02x", channelByte(c.R), channelByte(c.G), channelByte(c.B))
}

func channelByte(v float64) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 255
	}
	return int(math.Round(v * 255))
}

// ParseHex decodes a "#rrggbb" string (either case) into an RGB color.
func ParseHex(s string) (Color, error) {
	if len(s) != 7 || s[0] != '#' {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	var ch [3]float64
	for i := range ch {
		n, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
		}
		ch[i] = float64(n) / 255
	}
	return RGB(ch[0], ch[1], ch[2]), nil
}

// IsHex reports whether s is accepted by ParseHex.
func IsHex(s string) bool {
	_, err := ParseHex(s)
	return err == nil
}
