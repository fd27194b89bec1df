package binding

import (
	"strings"

	"github.com/gnana997/detachr/pkg/value"
	"github.com/gnana997/detachr/pkg/variables"
)

// CharactersProperty is the text content property.
const CharactersProperty = "characters"

var colorPatterns = []string{
	"fill", "stroke", "background", "color", "gradient",
	"paint", "border", "shadow", "effect",
}

var spacingPatterns = []string{"spacing", "padding", "margin"}

// Classify decides the category of a binding at path and normalizes its
// resolved value. A known declared kind is authoritative; otherwise the
// category is inferred from the property name and the raw value.
func Classify(path string, declared variables.ResolvedType, raw value.Raw) (VariableType, value.Literal) {
	switch declared {
	case variables.TypeColor:
		return Color, ColorLiteral(raw)
	case variables.TypeFloat:
		n, _ := raw.Float()
		return Number, value.Number(n)
	case variables.TypeString:
		return Text, value.String(raw.String())
	case variables.TypeBoolean:
		return Other, value.Bool(truthy(raw))
	}
	return infer(path, raw)
}

func infer(path string, raw value.Raw) (VariableType, value.Literal) {
	if typ, ok := styleCategory(path); ok {
		return typ, value.String(raw.String())
	}

	lower := strings.ToLower(path)
	if containsAny(lower, colorPatterns) {
		return Color, ColorLiteral(raw)
	}
	if path == CharactersProperty {
		if n, ok := raw.Number(); ok {
			return Number, value.Number(n)
		}
		return Text, value.String(raw.String())
	}
	if containsAny(lower, spacingPatterns) {
		n, _ := raw.Float()
		return Other, value.Number(n)
	}
	if b, ok := raw.Bool(); ok {
		return Other, value.Bool(b)
	}
	if n, ok := raw.Number(); ok {
		return Number, value.Number(n)
	}
	return Other, value.String(raw.String())
}

// ColorLiteral renders a color as "#rrggbb" and anything else as its
// string form.
func ColorLiteral(raw value.Raw) value.Literal {
	if c, ok := raw.Color(); ok {
		return value.String(value.ToHex(c))
	}
	return value.String(raw.String())
}

// ClassifyStyle builds the category and value of a legacy style binding.
func ClassifyStyle(field, styleID string) (VariableType, value.Literal) {
	typ, _ := styleCategory(field)
	return typ, value.String(styleID)
}

// styleCategory maps the style-id properties; only fill and stroke styles
// count as color.
func styleCategory(field string) (VariableType, bool) {
	switch field {
	case "fillStyleId", "strokeStyleId":
		return Color, true
	case "textStyleId":
		return Text, true
	case "effectStyleId", "gridStyleId":
		return Other, true
	default:
		return Other, false
	}
}

// StyleVariableName is the display name of a style binding.
func StyleVariableName(styleID string) string {
	return "Style: " + styleID
}

func truthy(raw value.Raw) bool {
	switch raw.Kind() {
	case value.KindBool:
		b, _ := raw.Bool()
		return b
	case value.KindNumber:
		n, _ := raw.Number()
		return n != 0
	case value.KindString:
		s, _ := raw.Text()
		return s != ""
	case value.KindColor, value.KindAlias:
		return true
	}
	return false
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
