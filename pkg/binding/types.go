// Package binding defines discovered variable bindings and the classifier
// that assigns each one a semantic category and display value.
package binding

import (
	"encoding/json"
	"fmt"

	"github.com/gnana997/detachr/pkg/value"
)

// VariableType is the semantic category of a binding.
type VariableType uint8

const (
	Color VariableType = iota
	Text
	Number
	Other
)

// NumTypes is the number of categories.
const NumTypes = 4

// Types lists the categories in display order.
var Types = [NumTypes]VariableType{Color, Text, Number, Other}

var typeNames = [NumTypes]string{"color", "text", "number", "other"}

func (t VariableType) String() string {
	if int(t) < NumTypes {
		return typeNames[t]
	}
	return fmt.Sprintf("VariableType(%d)", uint8(t))
}

// ParseVariableType maps a category name to its value.
func ParseVariableType(s string) (VariableType, error) {
	for i, name := range typeNames {
		if name == s {
			return VariableType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown variable type %q", s)
}

func (t VariableType) MarshalText() ([]byte, error) {
	if int(t) >= NumTypes {
		return nil, fmt.Errorf("invalid variable type %d", uint8(t))
	}
	return []byte(typeNames[t]), nil
}

func (t *VariableType) UnmarshalText(b []byte) error {
	v, err := ParseVariableType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// VariableBinding is one discovered binding site.
type VariableBinding struct {
	NodeID          string        `json:"nodeId"`
	NodeName        string        `json:"nodeName"`
	VariableType    VariableType  `json:"variableType"`
	Property        Address       `json:"property"`
	CurrentVariable string        `json:"currentVariable"`
	ResolvedValue   value.Literal `json:"resolvedValue"`
}

// Counts tallies bindings per category.
type Counts [NumTypes]int

// Add counts one binding of type t.
func (c *Counts) Add(t VariableType) {
	c[t]++
}

// Total is the sum over all categories.
func (c Counts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// CountOf tallies a binding list.
func CountOf(bindings []VariableBinding) Counts {
	var c Counts
	for _, b := range bindings {
		c.Add(b.VariableType)
	}
	return c
}

type countsJSON struct {
	Color  int `json:"color"`
	Text   int `json:"text"`
	Number int `json:"number"`
	Other  int `json:"other"`
	Total  int `json:"total"`
}

func (c Counts) MarshalJSON() ([]byte, error) {
	return json.Marshal(countsJSON{
		Color:  c[Color],
		Text:   c[Text],
		Number: c[Number],
		Other:  c[Other],
		Total:  c.Total(),
	})
}

// UnmarshalJSON ignores the total field; it is always derived.
func (c *Counts) UnmarshalJSON(data []byte) error {
	var raw countsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Counts{raw.Color, raw.Text, raw.Number, raw.Other}
	return nil
}

// DetachOptions selects which categories a detach touches.
type DetachOptions struct {
	Color  bool `json:"color"`
	Text   bool `json:"text"`
	Number bool `json:"number"`
	Other  bool `json:"other"`
	DryRun bool `json:"dryRun"`
}

// AllTypes enables every category.
func AllTypes() DetachOptions {
	return DetachOptions{Color: true, Text: true, Number: true, Other: true}
}

// Enabled reports whether category t is selected.
func (o DetachOptions) Enabled(t VariableType) bool {
	switch t {
	case Color:
		return o.Color
	case Text:
		return o.Text
	case Number:
		return o.Number
	case Other:
		return o.Other
	}
	return false
}

// Enable turns category t on.
func (o *DetachOptions) Enable(t VariableType) {
	switch t {
	case Color:
		o.Color = true
	case Text:
		o.Text = true
	case Number:
		o.Number = true
	case Other:
		o.Other = true
	}
}
