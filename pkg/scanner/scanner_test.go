package scanner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/document"
	"github.com/gnana997/detachr/pkg/value"
)

const scanFixture = `{
  "name": "scan fixture",
  "pages": [{
    "id": "p", "name": "Page", "type": "PAGE", "selection": ["card"],
    "children": [{
      "id": "card", "name": "Card", "type": "FRAME",
      "paddingTop": 4,
      "boundVariables": {
        "paddingTop": {"type": "VARIABLE_ALIAS", "id": "space"},
        "fills.0.color": {"type": "VARIABLE_ALIAS", "id": "brand"},
        "itemSpacing": {"type": "VARIABLE_ALIAS", "id": "ghost"},
        "strokes": [{"type": "VARIABLE_ALIAS", "id": "brand"}, {"type": "VARIABLE_ALIAS", "id": "space"}]
      },
      "fills": [{"type": "SOLID", "color": {"r": 0, "g": 0, "b": 0}}],
      "strokes": [{"type": "SOLID", "color": {"r": 0, "g": 0, "b": 0}}],
      "fillStyleId": "S:fill",
      "strokeStyleId": "",
      "effectStyleId": "mixed",
      "gridStyleId": "S:grid",
      "children": [
        {
          "id": "label", "name": "Label", "type": "TEXT",
          "characters": "Buy", "fontName": {"family": "Inter", "style": "Regular"},
          "boundVariables": {"characters": {"type": "VARIABLE_ALIAS", "id": "cta"}},
          "textStyleId": "S:body"
        },
        {
          "id": "swatch", "name": "Swatch", "type": "RECTANGLE",
          "boundVariables": {"width": {"type": "VARIABLE_ALIAS", "id": "size"}},
          "fills": [
            {"type": "IMAGE", "imageHash": "h"},
            {"type": "GRADIENT_RADIAL", "gradientStops": [
              {"position": 0, "color": {"r": 0, "g": 0, "b": 0, "a": 1}},
              {"position": 1, "color": {"r": 0, "g": 0, "b": 0, "a": 1}, "boundVariables": {"color": {"type": "VARIABLE_ALIAS", "id": "brand"}}}
            ]}
          ]
        },
        {
          "id": "hidden", "name": "Hidden notes", "type": "GROUP",
          "boundVariables": {"width": {"type": "VARIABLE_ALIAS", "id": "size"}},
          "children": [{"id": "hidden-child", "name": "Note", "type": "LINE", "fillStyleId": "S:fill"}]
        },
        {
          "id": "mixed", "name": "Mixed", "type": "ELLIPSE",
          "boundVariables": {"opacity": {"type": "VARIABLE_ALIAS", "id": "size"}},
          "fills": "mixed"
        }
      ]
    }]
  }],
  "variableCollections": [{"id": "c", "name": "Tokens", "defaultModeId": "m", "modes": [{"modeId": "m", "name": "Default"}]}],
  "variables": [
    {"id": "brand", "name": "brand/primary", "variableCollectionId": "c", "resolvedType": "COLOR", "valuesByMode": {"m": {"r": 1, "g": 0, "b": 0, "a": 1}}},
    {"id": "space", "name": "space/sm", "variableCollectionId": "c", "resolvedType": "FLOAT", "valuesByMode": {"m": 8}},
    {"id": "cta", "name": "copy/cta", "variableCollectionId": "c", "resolvedType": "STRING", "valuesByMode": {"m": "Buy now"}},
    {"id": "size", "name": "size/icon", "variableCollectionId": "c", "resolvedType": "FLOAT", "valuesByMode": {"m": 24}}
  ]
}`

func loadDoc(t *testing.T, src string) *document.Document {
	t.Helper()
	doc, err := document.LoadBytes([]byte(src), document.LoadOptions{})
	require.NoError(t, err)
	return doc
}

func newScanner(t *testing.T, doc *document.Document, cfg Config) *Scanner {
	t.Helper()
	s, err := New(doc, cfg, nil)
	require.NoError(t, err)
	return s
}

func properties(res *ScanResult) []string {
	out := make([]string, len(res.Bindings))
	for i, b := range res.Bindings {
		out[i] = b.NodeID + ":" + b.Property.String()
	}
	return out
}

func TestScan_OrderAndClassification(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	s := newScanner(t, doc, DefaultConfig())

	res, err := s.ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	assert.False(t, res.NoSelection)

	assert.Equal(t, []string{
		"card:paddingTop",
		"card:fills.0.color",
		"card:strokes",
		"card:fillStyleId",
		"card:gridStyleId",
		"label:characters",
		"label:textStyleId",
		"swatch:width",
		"swatch:fills.1.gradientStops.1.color",
		"hidden:width",
		"hidden-child:fillStyleId",
		"mixed:opacity",
	}, properties(res))

	byKey := make(map[string]binding.VariableBinding)
	for _, b := range res.Bindings {
		byKey[b.NodeID+":"+b.Property.String()] = b
	}

	pad := byKey["card:paddingTop"]
	assert.Equal(t, binding.Number, pad.VariableType)
	assert.Equal(t, value.Number(8), pad.ResolvedValue)
	assert.Equal(t, "space/sm", pad.CurrentVariable)
	assert.Equal(t, "Card", pad.NodeName)

	fill := byKey["card:fills.0.color"]
	assert.Equal(t, binding.Color, fill.VariableType)
	assert.Equal(t, value.String("#ff0000"), fill.ResolvedValue)

	strokes := byKey["card:strokes"]
	assert.Equal(t, binding.Color, strokes.VariableType)
	assert.Equal(t, value.String("#ff0000"), strokes.ResolvedValue)

	style := byKey["card:gridStyleId"]
	assert.Equal(t, binding.Other, style.VariableType)
	assert.Equal(t, "Style: S:grid", style.CurrentVariable)
	assert.Equal(t, value.String("S:grid"), style.ResolvedValue)

	label := byKey["label:characters"]
	assert.Equal(t, binding.Text, label.VariableType)
	assert.Equal(t, value.String("Buy now"), label.ResolvedValue)

	stop := byKey["swatch:fills.1.gradientStops.1.color"]
	assert.Equal(t, binding.GradientStopAddress("fills", 1, 1), stop.Property)

	assert.Equal(t, len(res.Bindings), res.Counts.Total())
	assert.Equal(t, binding.Counts{5, 2, 4, 1}, res.Counts)

	assert.Equal(t, 1, res.Stats.Unresolved, "ghost variable skipped")
	assert.Equal(t, 4, res.Stats.StyleBindings)
	assert.Equal(t, 6, res.Stats.NodesVisited)
}

func TestScan_DedupeNestedPaths(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	card, err := doc.NodeByID(context.Background(), "card")
	require.NoError(t, err)

	deduped, err := newScanner(t, doc, Config{Dedupe: true}).Scan(context.Background(), []document.Node{card})
	require.NoError(t, err)

	raw, err := newScanner(t, doc, Config{Dedupe: false}).Scan(context.Background(), []document.Node{card})
	require.NoError(t, err)

	count := func(res *ScanResult, key string) int {
		n := 0
		for _, p := range properties(res) {
			if p == key {
				n++
			}
		}
		return n
	}

	// flat map iteration and the paint probe both see fills.0.color
	assert.Equal(t, 1, count(deduped, "card:fills.0.color"))
	assert.Equal(t, 2, count(raw, "card:fills.0.color"))

	// the strokes list holds a color and a number alias; only the color counts
	assert.Equal(t, 1, count(deduped, "card:strokes"))
	assert.Equal(t, 1, count(raw, "card:strokes"))

	assert.Equal(t, 1, deduped.Stats.Duplicates)
	assert.Equal(t, len(deduped.Bindings)+1, len(raw.Bindings))
	assert.Equal(t, len(raw.Bindings), raw.Counts.Total())
}

func TestScan_Exclude(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	s := newScanner(t, doc, Config{Dedupe: true, Exclude: []string{"**/Hidden*", "Card/Mixed"}})

	res, err := s.ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	for _, p := range properties(res) {
		assert.NotContains(t, p, "hidden")
		assert.NotContains(t, p, "mixed:")
	}
	assert.Equal(t, 2, res.Stats.NodesExcluded)

	_, err = New(doc, Config{Exclude: []string{"[unclosed"}}, nil)
	assert.Error(t, err)
}

func TestScan_EmptySelectionFallsBackToPage(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	require.NoError(t, doc.SetSelection(nil))

	res, err := newScanner(t, doc, DefaultConfig()).ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, res.NoSelection)
	assert.Len(t, res.Bindings, 12)
}

func TestScan_Deterministic(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	s := newScanner(t, doc, DefaultConfig())

	first, err := s.ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	second, err := s.ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, first.Bindings, second.Bindings)
	assert.Equal(t, first.Counts, second.Counts)
}

func TestScan_HostUnavailable(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	card, err := doc.NodeByID(context.Background(), "card")
	require.NoError(t, err)
	s := newScanner(t, doc, DefaultConfig())

	doc.Close()
	_, err = s.Scan(context.Background(), []document.Node{card})
	assert.ErrorIs(t, err, document.ErrUnavailable)

	_, err = s.ScanSelection(context.Background(), doc)
	assert.ErrorIs(t, err, document.ErrUnavailable)
}

func TestScan_Cancelled(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newScanner(t, doc, DefaultConfig()).ScanSelection(ctx, doc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScan_RedRectangle(t *testing.T) {
	doc := loadDoc(t, `{
		"pages": [{"id": "p", "name": "Page", "type": "PAGE", "children": [
			{"id": "r", "name": "Rect", "type": "RECTANGLE", "width": 10, "height": 10,
			 "fills": [{"type": "SOLID", "color": {"r": 0, "g": 0, "b": 1}, "boundVariables": {"color": {"type": "VARIABLE_ALIAS", "id": "red"}}}]}
		]}],
		"variables": [{"id": "red", "name": "red", "resolvedType": "COLOR", "valuesByMode": {"m": {"r": 1, "g": 0, "b": 0}}}]
	}`)

	res, err := newScanner(t, doc, DefaultConfig()).ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.Bindings, 1)
	b := res.Bindings[0]
	assert.Equal(t, binding.Color, b.VariableType)
	assert.Equal(t, value.String("#ff0000"), b.ResolvedValue)
	assert.Equal(t, "fills.0.color", b.Property.String())
	assert.True(t, res.NoSelection)
}

func TestScan_PropertiesReparse(t *testing.T) {
	doc := loadDoc(t, scanFixture)
	res, err := newScanner(t, doc, Config{}).ScanSelection(context.Background(), doc)
	require.NoError(t, err)
	for _, b := range res.Bindings {
		assert.Equal(t, b.Property, binding.ParseAddress(b.Property.String()))
	}
}
