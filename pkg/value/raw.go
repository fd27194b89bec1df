package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Kind tags the active member of a Raw value.
type Kind uint8

// Raw value kinds; KindNone is the zero Raw.
const (
	KindNone Kind = iota
	KindColor
	KindNumber
	KindString
	KindBool
	KindAlias
)

// String returns the lower-case kind name.
func (k Kind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindAlias:
		return "alias"
	default:
		return "none"
	}
}

// AliasType is the JSON type tag of a variable alias.
const AliasType = "VARIABLE_ALIAS"

// Raw is a variable value as stored per mode: a color, a scalar, or an
// alias to another variable.
type Raw struct {
	kind  Kind
	color Color
	num   float64
	str   string
	b     bool
}

// RawColor wraps a color value.
func RawColor(c Color) Raw { return Raw{kind: KindColor, color: c} }

// RawNumber wraps a numeric value.
func RawNumber(n float64) Raw { return Raw{kind: KindNumber, num: n} }

// RawString wraps a string value.
func RawString(s string) Raw { return Raw{kind: KindString, str: s} }

// RawBool wraps a boolean value.
func RawBool(b bool) Raw { return Raw{kind: KindBool, b: b} }

// RawAlias references another variable by id.
func RawAlias(id string) Raw { return Raw{kind: KindAlias, str: id} }

// Kind reports which member is set.
func (r Raw) Kind() Kind { return r.kind }

// Color returns the color member.
func (r Raw) Color() (Color, bool) { return r.color, r.kind == KindColor }

// Number returns the numeric member without coercion.
func (r Raw) Number() (float64, bool) { return r.num, r.kind == KindNumber }

// Text returns the string member.
func (r Raw) Text() (string, bool) { return r.str, r.kind == KindString }

// Bool returns the boolean member.
func (r Raw) Bool() (bool, bool) { return r.b, r.kind == KindBool }

// AliasID returns the target id of an alias.
func (r Raw) AliasID() (string, bool) { return r.str, r.kind == KindAlias }

// String stringifies the value the way a UI would print it.
func (r Raw) String() string {
	switch r.kind {
	case KindColor:
		return ToHex(r.color)
	case KindNumber:
		return strconv.FormatFloat(r.num, 'f', -1, 64)
	case KindString:
		return r.str
	case KindBool:
		return strconv.FormatBool(r.b)
	case KindAlias:
		return "alias:" + r.str
	default:
		return ""
	}
}

// Float coerces the value to a number. Strings are parsed; anything that
// does not convert yields ok=false.
func (r Raw) Float() (float64, bool) {
	switch r.kind {
	case KindNumber:
		return r.num, true
	case KindString:
		n, err := strconv.ParseFloat(r.str, 64)
		return n, err == nil
	case KindBool:
		if r.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

type aliasJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// MarshalJSON encodes the value in its snapshot form; aliases become
// {"type":"VARIABLE_ALIAS","id":...}.
func (r Raw) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindColor:
		return json.Marshal(r.color)
	case KindNumber:
		return json.Marshal(r.num)
	case KindString:
		return json.Marshal(r.str)
	case KindBool:
		return json.Marshal(r.b)
	case KindAlias:
		return json.Marshal(aliasJSON{Type: AliasType, ID: r.str})
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a color object, alias object, string, number,
// boolean or null.
func (r *Raw) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = Raw{}
		return nil
	}
	switch data[0] {
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if _, ok := probe["type"]; ok {
			var a aliasJSON
			if err := json.Unmarshal(data, &a); err != nil {
				return err
			}
			if a.Type != AliasType || a.ID == "" {
				return fmt.Errorf("unsupported value object type %q", a.Type)
			}
			*r = RawAlias(a.ID)
			return nil
		}
		var c Color
		if err := json.Unmarshal(data, &c); err != nil {
			return fmt.Errorf("decode color: %w", err)
		}
		*r = RawColor(c)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawString(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*r = RawBool(b)
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		*r = RawNumber(n)
	}
	return nil
}
