package conformance

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofhir/validator/pkg/validator"

	"fhir-bridge/pkg/domain"
)

// GoFHIREngine validates resources with the gofhir validator against the
// FHIR R4 core definitions.
type GoFHIREngine struct {
	v *validator.Validator
}

var _ Engine = (*GoFHIREngine)(nil)

// NewGoFHIREngine constructs the engine once. Loading the R4 definitions is
// expensive, so this belongs in process startup, not the request path.
func NewGoFHIREngine() (*GoFHIREngine, error) {
	v, err := validator.New(validator.WithVersion("4.0.1"))
	if err != nil {
		return nil, fmt.Errorf("initialize conformance engine: %w", err)
	}
	return &GoFHIREngine{v: v}, nil
}

// Validate runs the engine and reduces its result. The verdict is valid only
// when the engine reports zero issues; warnings fail the resource just like
// errors, and every issue is surfaced as a diagnostic.
func (e *GoFHIREngine) Validate(ctx context.Context, resource []byte) (domain.Verdict, error) {
	result, err := e.v.Validate(ctx, resource)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("conformance validation: %w", err)
	}

	diagnostics := make([]domain.Diagnostic, 0, len(result.Issues))
	for _, is := range result.Issues {
		diagnostics = append(diagnostics, domain.Diagnostic{
			Location: strings.Join(is.Expression, ", "),
			Message:  is.Diagnostics,
			Severity: string(is.Severity),
		})
	}

	return domain.Verdict{
		Valid:       len(diagnostics) == 0,
		Diagnostics: diagnostics,
	}, nil
}
