package binding

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/detachr/pkg/value"
	"github.com/gnana997/detachr/pkg/variables"
)

func TestClassify_DeclaredKind(t *testing.T) {
	red := value.RawColor(value.RGB(1, 0, 0))
	tests := []struct {
		name     string
		path     string
		declared variables.ResolvedType
		raw      value.Raw
		wantType VariableType
		want     value.Literal
	}{
		{"color to hex", "fills", variables.TypeColor, red, Color, value.String("#ff0000")},
		{"color kind wins over name", "paddingLeft", variables.TypeColor, red, Color, value.String("#ff0000")},
		{"color kind with scalar value", "fills", variables.TypeColor, value.RawString("red"), Color, value.String("red")},
		{"float", "characters", variables.TypeFloat, value.RawNumber(12), Number, value.Number(12)},
		{"float missing value", "width", variables.TypeFloat, value.Raw{}, Number, value.Number(0)},
		{"string", "fills", variables.TypeString, value.RawString("hi"), Text, value.String("hi")},
		{"boolean", "visible", variables.TypeBoolean, value.RawBool(true), Other, value.Bool(true)},
		{"boolean from number", "visible", variables.TypeBoolean, value.RawNumber(0), Other, value.Bool(false)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotType, got := Classify(tc.path, tc.declared, tc.raw)
			assert.Equal(t, tc.wantType, gotType)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassify_NameInference(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		raw      value.Raw
		wantType VariableType
		want     value.Literal
	}{
		{"fill path", "fills.0.color", value.RawColor(value.RGB(0, 0, 1)), Color, value.String("#0000ff")},
		{"case insensitive", "BackgroundColor", value.RawColor(value.RGB(0, 0, 0)), Color, value.String("#000000")},
		{"border", "borderTop", value.RawString("x"), Color, value.String("x")},
		{"effects", "effects", value.RawNumber(2), Color, value.String("2")},
		{"characters text", "characters", value.RawString("Hi"), Text, value.String("Hi")},
		{"characters numeric", "characters", value.RawNumber(3), Number, value.Number(3)},
		{"padding coerces", "paddingTop", value.RawString("8"), Other, value.Number(8)},
		{"spacing coerce failure", "itemSpacing", value.RawString("wide"), Other, value.Number(0)},
		{"bool", "visible", value.RawBool(false), Other, value.Bool(false)},
		{"number", "opacity", value.RawNumber(0.5), Number, value.Number(0.5)},
		{"fallback", "layoutGrids", value.RawString("g"), Other, value.String("g")},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gotType, got := Classify(tc.path, "", tc.raw)
			assert.Equal(t, tc.wantType, gotType)
			assert.Equal(t, tc.want, got)
		})
	}

	// unknown declared kinds fall back to inference
	gotType, _ := Classify("paddingLeft", "VECTOR", value.RawNumber(1))
	assert.Equal(t, Other, gotType)
}

func TestClassifyStyle(t *testing.T) {
	tests := map[string]VariableType{
		"fillStyleId":   Color,
		"strokeStyleId": Color,
		"textStyleId":   Text,
		"effectStyleId": Other,
		"gridStyleId":   Other,
	}
	for field, want := range tests {
		got, v := ClassifyStyle(field, "S:1")
		assert.Equal(t, want, got, field)
		assert.Equal(t, value.String("S:1"), v)
	}
	assert.Equal(t, "Style: S:1", StyleVariableName("S:1"))
}

func TestAddress_Parse(t *testing.T) {
	tests := []struct {
		in   string
		want Address
	}{
		{"characters", DirectAddress("characters")},
		{"fills", DirectAddress("fills")},
		{"fillStyleId", DirectAddress("fillStyleId")},
		{"fills.0.color", PaintSlotAddress("fills", 0)},
		{"strokes.12.color", PaintSlotAddress("strokes", 12)},
		{"fills.1.gradientStops.2.color", GradientStopAddress("fills", 1, 2)},
		{"effects.0.color", DirectAddress("effects.0.color")},
		{"fills.01.color", DirectAddress("fills.01.color")},
		{"fills.-1.color", DirectAddress("fills.-1.color")},
		{"fills.x.color", DirectAddress("fills.x.color")},
		{"fills.1.gradientStops.2.position", DirectAddress("fills.1.gradientStops.2.position")},
		{"", DirectAddress("")},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got := ParseAddress(tc.in)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String(), "re-renders the original path")
			assert.Equal(t, got, ParseAddress(got.String()))
		})
	}

	assert.True(t, DirectAddress("textStyleId").IsStyle())
	assert.False(t, PaintSlotAddress("fills", 0).IsStyle())
}

func TestVariableBindingJSON(t *testing.T) {
	b := VariableBinding{
		NodeID:          "1:2",
		NodeName:        "Card",
		VariableType:    Color,
		Property:        GradientStopAddress("fills", 1, 0),
		CurrentVariable: "brand/primary",
		ResolvedValue:   value.String("#ff0000"),
	}
	data, err := json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodeId": "1:2",
		"nodeName": "Card",
		"variableType": "color",
		"property": "fills.1.gradientStops.0.color",
		"currentVariable": "brand/primary",
		"resolvedValue": "#ff0000"
	}`, string(data))

	var back VariableBinding
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)

	assert.Error(t, json.Unmarshal([]byte(`{"variableType": "font"}`), &back))
}

func TestCounts(t *testing.T) {
	bindings := []VariableBinding{
		{VariableType: Color}, {VariableType: Color}, {VariableType: Text}, {VariableType: Other},
	}
	c := CountOf(bindings)
	assert.Equal(t, len(bindings), c.Total())

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"color":2,"text":1,"number":0,"other":1,"total":4}`, string(data))

	var back Counts
	require.NoError(t, json.Unmarshal([]byte(`{"color":2,"text":1,"number":0,"other":1,"total":99}`), &back))
	assert.Equal(t, c, back)
	assert.Equal(t, 4, back.Total())
}

func TestDetachOptions(t *testing.T) {
	opts := DetachOptions{Text: true}
	assert.False(t, opts.Enabled(Color))
	assert.True(t, opts.Enabled(Text))
	opts.Enable(Number)
	assert.True(t, opts.Enabled(Number))

	all := AllTypes()
	for _, typ := range Types {
		assert.True(t, all.Enabled(typ), typ.String())
	}
	assert.False(t, all.DryRun)

	_, err := ParseVariableType("font")
	assert.Error(t, err)
	typ, err := ParseVariableType("number")
	require.NoError(t, err)
	assert.Equal(t, Number, typ)
}
