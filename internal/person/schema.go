package person

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"fhir-bridge/pkg/domain"
)

//go:embed schemas/person.schema.json
var personSchema []byte

const schemaName = "person.schema.json"

// SchemaValidator checks person payloads against the embedded JSON Schema.
// The schema is compiled once at construction.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles the embedded person schema. A compile failure
// is a deployment defect and the caller should treat it as fatal.
func NewSchemaValidator() (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaName, bytes.NewReader(personSchema)); err != nil {
		return nil, fmt.Errorf("adding person schema resource: %w", err)
	}
	schema, err := compiler.Compile(schemaName)
	if err != nil {
		return nil, fmt.Errorf("compiling person schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate evaluates the payload against the person schema and reports
// every violation found, not just the first.
func (v *SchemaValidator) Validate(_ context.Context, payload Payload) (domain.Verdict, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.Verdict{}, fmt.Errorf("marshalling person payload: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Verdict{}, fmt.Errorf("decoding person payload: %w", err)
	}

	err = v.schema.Validate(doc)
	if err == nil {
		return domain.Verdict{Valid: true}, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return domain.Verdict{}, fmt.Errorf("validating person payload: %w", err)
	}

	verdict := domain.Verdict{}
	collect(validationErr, &verdict.Diagnostics)
	return verdict, nil
}

// collect walks the validation error tree and records the leaf causes,
// which carry the concrete violations.
func collect(ve *jsonschema.ValidationError, diags *[]domain.Diagnostic) {
	if len(ve.Causes) == 0 {
		*diags = append(*diags, domain.Diagnostic{
			Location: ve.InstanceLocation,
			Message:  ve.Message,
			Severity: "error",
		})
		return
	}
	for _, cause := range ve.Causes {
		collect(cause, diags)
	}
}
