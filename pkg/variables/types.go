// Package variables implements the design-variable store consumed by the
// scan engine: lookup by id and per-consumer value resolution across
// collection modes and alias chains.
package variables

import (
	"errors"

	"github.com/gnana997/detachr/pkg/value"
)

// ResolvedType is the declared value kind of a variable.
type ResolvedType string

const (
	TypeColor   ResolvedType = "COLOR"
	TypeFloat   ResolvedType = "FLOAT"
	TypeString  ResolvedType = "STRING"
	TypeBoolean ResolvedType = "BOOLEAN"
)

// Known reports whether t is one of the four declared kinds.
func (t ResolvedType) Known() bool {
	switch t {
	case TypeColor, TypeFloat, TypeString, TypeBoolean:
		return true
	}
	return false
}

var (
	ErrNotFound   = errors.New("variable not found")
	ErrAliasCycle = errors.New("variable alias cycle")
	ErrNoValue    = errors.New("variable has no value for mode")
)

// Variable is a named, typed value with one entry per collection mode.
type Variable struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	CollectionID string               `json:"variableCollectionId"`
	ResolvedType ResolvedType         `json:"resolvedType"`
	ValuesByMode map[string]value.Raw `json:"valuesByMode"`
}

// Mode is one column of a collection.
type Mode struct {
	ModeID string `json:"modeId"`
	Name   string `json:"name"`
}

// Collection groups variables that share a set of modes.
type Collection struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Modes         []Mode `json:"modes"`
	DefaultModeID string `json:"defaultModeId"`
}

// ModeScope describes the consuming node's explicit mode choices.
// Key must identify the effective set of choices so that two consumers
// with equal keys resolve every variable identically.
type ModeScope interface {
	ExplicitMode(collectionID string) (modeID string, ok bool)
	Key() string
}

// Modes is a ModeScope backed by a collection id -> mode id map.
type Modes map[string]string

func (m Modes) ExplicitMode(collectionID string) (string, bool) {
	id, ok := m[collectionID]
	return id, ok
}

func (m Modes) Key() string {
	return modesKey(m)
}

// StoreStats contains resolution cache statistics.
type StoreStats struct {
	Variables   int
	Collections int
	CacheHits   int64
	CacheMisses int64
	CacheLen    int
}
