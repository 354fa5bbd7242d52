// Package patient reads the demographic fields this bridge forwards out of a
// validated FHIR Patient resource.
package patient

import (
	"errors"
	"strings"

	"github.com/samply/golang-fhir-models/fhir-models/fhir"
)

// ErrMissingNameEntry is returned when the resource has no name entries at
// all. Conformance checking runs first, so a resource reaching extraction
// without one indicates an engine misconfiguration.
var ErrMissingNameEntry = errors.New("patient resource has no name entry")

// ErrMissingFamilyName is returned when the first name entry lacks a family name.
var ErrMissingFamilyName = errors.New("patient name entry has no family name")

// Identity holds the demographic fields extracted from one Patient resource.
// It lives only for the duration of a single pipeline run.
type Identity struct {
	FirstName string
	LastName  string
	BirthDate string // verbatim YYYY-MM-DD as carried by the resource
}

// Extract reads the identity fields from a Patient. Given names of the first
// name entry are joined with single spaces in their original order; an empty
// given list yields an empty first name, not an error. The birth date is
// passed through lexically without parsing.
func Extract(p *fhir.Patient) (Identity, error) {
	if p == nil || len(p.Name) == 0 {
		return Identity{}, ErrMissingNameEntry
	}

	name := p.Name[0]
	if name.Family == nil || *name.Family == "" {
		return Identity{}, ErrMissingFamilyName
	}

	var birthDate string
	if p.BirthDate != nil {
		birthDate = *p.BirthDate
	}

	return Identity{
		FirstName: strings.Join(name.Given, " "),
		LastName:  *name.Family,
		BirthDate: birthDate,
	}, nil
}
