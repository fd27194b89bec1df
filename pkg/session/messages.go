package session

import (
	"encoding/json"

	"github.com/gnana997/detachr/pkg/binding"
	"github.com/gnana997/detachr/pkg/detach"
)

// Message types exchanged with the UI.
const (
	TypeScan          = "scan"
	TypeScanResults   = "scan-results"
	TypeDetach        = "detach"
	TypeDetachResults = "detach-results"
	TypeClose         = "close"
	TypeError         = "error"
)

// Error message prefixes.
const (
	scanErrorPrefix   = "Error scanning variables: "
	detachErrorPrefix = "Error detaching variables: "
	unknownTypePrefix = "Unknown message type: "
	handleErrorPrefix = "Error handling message: "
)

// DynamicPageWarning is sent before detaching on a document that loads
// pages on demand.
const DynamicPageWarning = "Dynamic page detected. Some variables might not detach correctly. Please try using component instances instead of components directly."

// Request is a message from the UI.
type Request struct {
	Type        string          `json:"type"`
	AfterDetach bool            `json:"afterDetach,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

// DetachPayload is the payload of a detach request.
type DetachPayload struct {
	Bindings []binding.VariableBinding `json:"bindings"`
	Options  binding.DetachOptions     `json:"options"`
}

// Message is a message to the UI. Seq increases with every message the
// session sends, so the UI can drop results older than one it has shown.
type Message struct {
	Type    string `json:"type"`
	Seq     uint64 `json:"seq"`
	Payload any    `json:"payload"`
}

// ScanResults is the payload of a scan-results message.
type ScanResults struct {
	Bindings    []binding.VariableBinding `json:"bindings"`
	Counts      binding.Counts            `json:"counts"`
	AfterDetach bool                      `json:"afterDetach"`
	NoSelection bool                      `json:"noSelection,omitempty"`
}

// DetachResults is the payload of a detach-results message.
type DetachResults = detach.Result

// ErrorPayload is the payload of an error message.
type ErrorPayload struct {
	Message string `json:"message"`
}
