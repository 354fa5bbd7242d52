// Package conformance wraps the external FHIR conformance engine behind a
// narrow interface. The pipeline only consumes a pass/fail verdict plus
// diagnostics; structural and terminology checking is never reimplemented here.
package conformance

import (
	"context"

	"fhir-bridge/pkg/domain"
)

// Engine validates a raw FHIR resource against the base specification.
// Implementations must be safe for concurrent use; the engine is constructed
// once at startup and shared by all pipeline runs.
type Engine interface {
	Validate(ctx context.Context, resource []byte) (domain.Verdict, error)
}
