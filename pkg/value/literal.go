package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// LiteralKind tags the active member of a Literal.
type LiteralKind uint8

// Literal kinds; LiteralNone is the zero Literal.
const (
	LiteralNone LiteralKind = iota
	LiteralString
	LiteralNumber
	LiteralBool
)

// Literal is a resolved value as shown to the user and written back by
// detach: a string (hex colors included), a number, or a boolean.
// Literal is comparable with ==.
type Literal struct {
	kind LiteralKind
	s    string
	n    float64
	b    bool
}

// String returns a string literal.
func String(s string) Literal { return Literal{kind: LiteralString, s: s} }

// Number returns a numeric literal.
func Number(n float64) Literal { return Literal{kind: LiteralNumber, n: n} }

// Bool returns a boolean literal.
func Bool(b bool) Literal { return Literal{kind: LiteralBool, b: b} }

// Kind reports which member is set.
func (l Literal) Kind() LiteralKind { return l.kind }

// IsZero reports whether no member is set.
func (l Literal) IsZero() bool { return l.kind == LiteralNone }

// AsString returns the string member.
func (l Literal) AsString() (string, bool) {
	return l.s, l.kind == LiteralString
}

// AsNumber returns the number member.
func (l Literal) AsNumber() (float64, bool) {
	return l.n, l.kind == LiteralNumber
}

// AsBool returns the boolean member.
func (l Literal) AsBool() (bool, bool) {
	return l.b, l.kind == LiteralBool
}

// String renders the literal for display.
func (l Literal) String() string {
	switch l.kind {
	case LiteralString:
		return l.s
	case LiteralNumber:
		return strconv.FormatFloat(l.n, 'f', -1, 64)
	case LiteralBool:
		return strconv.FormatBool(l.b)
	default:
		return ""
	}
}

// MarshalJSON encodes the active member; the zero Literal is null.
func (l Literal) MarshalJSON() ([]byte, error) {
	switch l.kind {
	case LiteralString:
		return json.Marshal(l.s)
	case LiteralNumber:
		return json.Marshal(l.n)
	case LiteralBool:
		return json.Marshal(l.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number, boolean or null.
func (l *Literal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = Literal{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*l = Bool(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("literal must be a string, number or boolean: %w", err)
		}
		*l = Number(n)
	}
	return nil
}
