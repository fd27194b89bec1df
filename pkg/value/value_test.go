package value

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToHex(t *testing.T) {
	tests := []struct {
		name string
		in   Color
		want string
	}{
		{"red", RGB(1, 0, 0), "#ff0000"},
		{"black", RGB(0, 0, 0), "#000000"},
		{"white with alpha", RGBA(1, 1, 1, 0.2), "#ffffff"},
		{"rounds half up", RGB(0.5, 0.5, 0.5), "#808080"},
		{"pads single digit", RGB(1.0/255, 0, 15.0/255), "#01000f"},
		{"clamps out of range", RGB(-0.2, 1.7, 0), "#00ff00"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ToHex(tc.in))
		})
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#1A2B3C")
	require.NoError(t, err)
	assert.InDelta(t, 0x1a/255.0, c.R, 1e-9)
	assert.InDelta(t, 0x2b/255.0, c.G, 1e-9)
	assert.InDelta(t, 0x3c/255.0, c.B, 1e-9)
	assert.False(t, c.HasAlpha())
	assert.Equal(t, 1.0, c.Alpha())

	for _, bad := range []string{"", "1a2b3c", "#1a2b3", "#1a2b3c4", "#gg0000", "red"} {
		_, err := ParseHex(bad)
		assert.ErrorIs(t, err, ErrInvalidHex, bad)
	}
}

func TestHexRoundTrip(t *testing.T) {
	for _, hex := range []string{"#1A2B3C", "#ff0000", "#000000", "#ffffff", "#7f7f80", "#0A0B0C"} {
		c, err := ParseHex(hex)
		require.NoError(t, err)
		assert.True(t, strings.EqualFold(hex, ToHex(c)), "%s -> %s", hex, ToHex(c))
	}
	// every byte survives the round trip
	for i := 0; i < 256; i++ {
		c := RGB(float64(i)/255, 0, 0)
		back, err := ParseHex(ToHex(c))
		require.NoError(t, err)
		assert.Equal(t, ToHex(c), ToHex(back))
	}
}

func TestLiteralJSON(t *testing.T) {
	tests := []struct {
		name string
		in   Literal
		json string
	}{
		{"string", String("#ff0000"), `"#ff0000"`},
		{"number", Number(12.5), `12.5`},
		{"bool", Bool(true), `true`},
		{"none", Literal{}, `null`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b, err := json.Marshal(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.json, string(b))

			var back Literal
			require.NoError(t, json.Unmarshal(b, &back))
			assert.Equal(t, tc.in, back)
		})
	}

	var l Literal
	assert.Error(t, json.Unmarshal([]byte(`{"r":1}`), &l))
}

func TestLiteralAccessors(t *testing.T) {
	s, ok := String("x").AsString()
	assert.True(t, ok)
	assert.Equal(t, "x", s)
	_, ok = String("x").AsNumber()
	assert.False(t, ok)
	n, ok := Number(4).AsNumber()
	assert.True(t, ok)
	assert.Equal(t, 4.0, n)
	assert.Equal(t, "4", Number(4).String())
	assert.Equal(t, "false", Bool(false).String())
	assert.True(t, Literal{}.IsZero())
}

func TestRawUnmarshal(t *testing.T) {
	var vals map[string]Raw
	err := json.Unmarshal([]byte(`{
		"color": {"r": 1, "g": 0, "b": 0, "a": 0.5},
		"alias": {"type": "VARIABLE_ALIAS", "id": "VariableID:1:2"},
		"num": 8,
		"str": "hello",
		"flag": false,
		"none": null
	}`), &vals)
	require.NoError(t, err)

	c, ok := vals["color"].Color()
	require.True(t, ok)
	assert.Equal(t, 0.5, c.Alpha())
	assert.Equal(t, "#ff0000", vals["color"].String())

	id, ok := vals["alias"].AliasID()
	require.True(t, ok)
	assert.Equal(t, "VariableID:1:2", id)

	assert.Equal(t, KindNumber, vals["num"].Kind())
	assert.Equal(t, KindString, vals["str"].Kind())
	assert.Equal(t, KindBool, vals["flag"].Kind())
	assert.Equal(t, KindNone, vals["none"].Kind())

	var bad Raw
	assert.Error(t, json.Unmarshal([]byte(`{"type":"IMAGE"}`), &bad))
}

func TestRawFloat(t *testing.T) {
	n, ok := RawString("12").Float()
	assert.True(t, ok)
	assert.Equal(t, 12.0, n)
	_, ok = RawString("twelve").Float()
	assert.False(t, ok)
	_, ok = RawColor(RGB(0, 0, 0)).Float()
	assert.False(t, ok)
}

func TestRawMarshalAlias(t *testing.T) {
	b, err := json.Marshal(RawAlias("v1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"VARIABLE_ALIAS","id":"v1"}`, string(b))
}
