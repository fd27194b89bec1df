package detach

import "github.com/gnana997/detachr/pkg/binding"

// Outcome says how a detached binding was finished.
type Outcome string

const (
	// Applied means the literal was written and the binding removed.
	Applied Outcome = "applied"
	// AppliedWithoutUnbind means the literal was written but the host
	// could not remove the binding, so it may still be live.
	AppliedWithoutUnbind Outcome = "applied-without-unbind"
)

// Record is a binding as reported back after a detach. Detached records
// carry an Outcome (except in dry runs), skipped records a Reason.
type Record struct {
	binding.VariableBinding
	Outcome Outcome `json:"outcome,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Result is the payload of a detach.
type Result struct {
	Detached []Record       `json:"detached"`
	Skipped  []Record       `json:"skipped"`
	DryRun   bool           `json:"dryRun"`
	Counts   binding.Counts `json:"counts"`
}

// Summarize builds a Result. Counts are derived from detached only.
func Summarize(detached, skipped []Record, dryRun bool) *Result {
	if detached == nil {
		detached = []Record{}
	}
	if skipped == nil {
		skipped = []Record{}
	}
	var counts binding.Counts
	for _, r := range detached {
		counts.Add(r.VariableType)
	}
	return &Result{
		Detached: detached,
		Skipped:  skipped,
		DryRun:   dryRun,
		Counts:   counts,
	}
}

// Bindings returns the binding part of each record.
func Bindings(records []Record) []binding.VariableBinding {
	out := make([]binding.VariableBinding, len(records))
	for i, r := range records {
		out[i] = r.VariableBinding
	}
	return out
}
