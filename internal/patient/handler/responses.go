package handler

import (
	"fhir-bridge/internal/pipeline"
	"fhir-bridge/pkg/domain"
)

// OutcomeResponse is the body returned for every bridge request.
type OutcomeResponse struct {
	Outcome     string              `json:"outcome"`
	RequestID   string              `json:"request_id,omitempty"`
	Diagnostics []domain.Diagnostic `json:"diagnostics,omitempty"`
}

func toOutcomeResponse(requestID string, result pipeline.Result) OutcomeResponse {
	return OutcomeResponse{
		Outcome:     string(result.Outcome),
		RequestID:   requestID,
		Diagnostics: result.Diagnostics,
	}
}
