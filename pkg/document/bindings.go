package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gnana997/detachr/pkg/value"
)

// Alias references a variable by id.
type Alias struct {
	ID string
}

type aliasJSON struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// MarshalJSON encodes the alias in VARIABLE_ALIAS form.
func (a Alias) MarshalJSON() ([]byte, error) {
	return json.Marshal(aliasJSON{Type: value.AliasType, ID: a.ID})
}

// UnmarshalJSON requires an id; the type tag may be omitted.
func (a *Alias) UnmarshalJSON(data []byte) error {
	var raw aliasJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type != "" && raw.Type != value.AliasType {
		return fmt.Errorf("alias: unexpected type %q", raw.Type)
	}
	if raw.ID == "" {
		return fmt.Errorf("alias: id is required")
	}
	a.ID = raw.ID
	return nil
}

// AliasList is a binding map entry. Most properties hold a single alias;
// container properties such as fills may hold one alias per paint.
type AliasList struct {
	Aliases []Alias
	list    bool
}

// SingleAlias returns an entry holding one alias.
func SingleAlias(id string) AliasList {
	return AliasList{Aliases: []Alias{{ID: id}}}
}

// AliasArray returns a list-valued entry.
func AliasArray(ids ...string) AliasList {
	out := AliasList{Aliases: make([]Alias, len(ids)), list: true}
	for i, id := range ids {
		out.Aliases[i] = Alias{ID: id}
	}
	return out
}

// IsList reports whether the entry was list-valued.
func (l AliasList) IsList() bool {
	return l.list
}

// MarshalJSON keeps the shape the entry was read with: one object or an array.
func (l AliasList) MarshalJSON() ([]byte, error) {
	if !l.list && len(l.Aliases) == 1 {
		return json.Marshal(l.Aliases[0])
	}
	if l.Aliases == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Aliases)
}

// UnmarshalJSON accepts one alias object or an array of them.
func (l *AliasList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var raw []*Alias
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		out := AliasList{list: true, Aliases: make([]Alias, 0, len(raw))}
		for _, a := range raw {
			// unbound paints appear as null holes
			if a != nil {
				out.Aliases = append(out.Aliases, *a)
			}
		}
		*l = out
		return nil
	}
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*l = AliasList{Aliases: []Alias{a}}
	return nil
}

// Binding is one entry of a node's binding map.
type Binding struct {
	Path    string
	Aliases AliasList
}

// BoundVariables is a node's binding map: property path to alias entry,
// kept in insertion order so that scans are deterministic.
type BoundVariables struct {
	m *orderedmap.OrderedMap[string, AliasList]
}

// NewBoundVariables returns an empty binding map.
func NewBoundVariables() *BoundVariables {
	return &BoundVariables{m: orderedmap.New[string, AliasList]()}
}

// Len returns the number of bound paths.
func (b *BoundVariables) Len() int {
	if b == nil || b.m == nil {
		return 0
	}
	return b.m.Len()
}

// Get returns the entry at path.
func (b *BoundVariables) Get(path string) (AliasList, bool) {
	if b == nil || b.m == nil {
		return AliasList{}, false
	}
	return b.m.Get(path)
}

// Set adds or replaces the entry at path. New paths go last.
func (b *BoundVariables) Set(path string, l AliasList) {
	if b.m == nil {
		b.m = orderedmap.New[string, AliasList]()
	}
	b.m.Set(path, l)
}

// Delete removes the entry at path and reports whether it existed.
func (b *BoundVariables) Delete(path string) bool {
	if b == nil || b.m == nil {
		return false
	}
	_, ok := b.m.Delete(path)
	return ok
}

// Entries returns the entries in insertion order.
func (b *BoundVariables) Entries() []Binding {
	if b == nil || b.m == nil {
		return nil
	}
	out := make([]Binding, 0, b.m.Len())
	for pair := b.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Binding{Path: pair.Key, Aliases: pair.Value})
	}
	return out
}

// MarshalJSON encodes the bindings in insertion order.
func (b *BoundVariables) MarshalJSON() ([]byte, error) {
	if b == nil || b.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(b.m)
}

// UnmarshalJSON keeps the key order of the source object.
func (b *BoundVariables) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, AliasList]()
	if err := json.Unmarshal(data, m); err != nil {
		return fmt.Errorf("bound variables: %w", err)
	}
	b.m = m
	return nil
}
