// Package domain holds value types shared across the pipeline layers.
package domain

// Diagnostic is one issue reported by a validation stage: where it was found
// and what is wrong. Severity is informational; any issue fails the verdict.
type Diagnostic struct {
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity,omitempty"`
}

// Verdict is the reduced outcome of a validation stage. It is produced by
// both the inbound conformance check and the outbound schema check, and is
// never mutated after creation.
type Verdict struct {
	Valid       bool
	Diagnostics []Diagnostic
}
