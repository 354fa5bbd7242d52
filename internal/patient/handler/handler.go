// Package handler exposes the patient bridge over HTTP.
package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fhir-bridge/internal/pipeline"
	"fhir-bridge/internal/platform/middleware"
	dErrors "fhir-bridge/pkg/domain-errors"
	"fhir-bridge/pkg/platform/httputil"
)

// Pipeline runs one inbound patient resource to a terminal outcome.
type Pipeline interface {
	Run(ctx context.Context, raw []byte) pipeline.Result
}

type Handler struct {
	pipeline Pipeline
	logger   *slog.Logger
}

func New(p Pipeline, logger *slog.Logger) *Handler {
	return &Handler{pipeline: p, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/fhir/Patient", h.HandleCreatePatient)
}

// HandleCreatePatient accepts a FHIR Patient resource and bridges it to the
// person registry. The response status follows the pipeline outcome: 201
// for Created, 400 when the inbound resource is rejected, 500 otherwise.
func (h *Handler) HandleCreatePatient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.ErrorContext(ctx, "reading request body failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "could not read request body"))
		return
	}
	if len(raw) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "request body is empty"))
		return
	}

	result := h.pipeline.Run(ctx, raw)

	httputil.WriteJSON(w, outcomeStatus(result.Outcome), toOutcomeResponse(requestID, result))
}

func outcomeStatus(outcome pipeline.Outcome) int {
	switch outcome {
	case pipeline.OutcomeCreated:
		return http.StatusCreated
	case pipeline.OutcomeInvalidInbound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
