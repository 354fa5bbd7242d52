// Package person builds and validates the registry-facing person payload.
package person

import (
	"fhir-bridge/internal/patient"
)

// Keys of the person payload. The downstream registry matches on these
// names exactly.
const (
	KeyFirstName = "PersonFirstName"
	KeyLastName  = "PersonLastName"
	KeyDOB       = "PersonDOB"
)

// Payload is the flat document sent to the person registry. A map rather
// than a struct so schema validation can observe genuinely absent keys.
type Payload map[string]string

// Build assembles a payload from extracted patient identity fields and an
// already formatted date of birth.
func Build(identity patient.Identity, dob string) Payload {
	return Payload{
		KeyFirstName: identity.FirstName,
		KeyLastName:  identity.LastName,
		KeyDOB:       dob,
	}
}
