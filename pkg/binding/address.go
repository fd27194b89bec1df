package binding

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressKind tags the shape of a property address.
type AddressKind uint8

const (
	// Direct is a plain property name such as "characters", "fills" or a
	// style-id field.
	Direct AddressKind = iota
	// PaintSlot is "<container>.<i>.color".
	PaintSlot
	// GradientStop is "<container>.<i>.gradientStops.<j>.color".
	GradientStop
)

// Address is a parsed property path.
type Address struct {
	Kind      AddressKind
	Name      string // property name for Direct, container otherwise
	Paint     int
	StopIndex int
}

// DirectAddress addresses a plain property.
func DirectAddress(name string) Address {
	return Address{Kind: Direct, Name: name}
}

// PaintSlotAddress addresses the color of paint i in container.
func PaintSlotAddress(container string, i int) Address {
	return Address{Kind: PaintSlot, Name: container, Paint: i}
}

// GradientStopAddress addresses the color of stop j of paint i.
func GradientStopAddress(container string, i, j int) Address {
	return Address{Kind: GradientStop, Name: container, Paint: i, StopIndex: j}
}

func isContainer(s string) bool {
	return s == "fills" || s == "strokes"
}

// ParseAddress parses a property path. Paths outside the nested paint
// grammar are Direct; parsing never fails.
func ParseAddress(s string) Address {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 3:
		if i, ok := index(parts[1]); ok && isContainer(parts[0]) && parts[2] == "color" {
			return PaintSlotAddress(parts[0], i)
		}
	case 5:
		i, okI := index(parts[1])
		j, okJ := index(parts[3])
		if okI && okJ && isContainer(parts[0]) && parts[2] == "gradientStops" && parts[4] == "color" {
			return GradientStopAddress(parts[0], i, j)
		}
	}
	return DirectAddress(s)
}

// index accepts canonical non-negative decimal integers only, so that
// String reproduces the parsed text.
func index(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func (a Address) String() string {
	switch a.Kind {
	case PaintSlot:
		return fmt.Sprintf("%s.%d.color", a.Name, a.Paint)
	case GradientStop:
		return fmt.Sprintf("%s.%d.gradientStops.%d.color", a.Name, a.Paint, a.StopIndex)
	default:
		return a.Name
	}
}

// IsStyle reports whether the address names a style-id property.
func (a Address) IsStyle() bool {
	return a.Kind == Direct && strings.HasSuffix(a.Name, "StyleId")
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(b []byte) error {
	*a = ParseAddress(string(b))
	return nil
}
