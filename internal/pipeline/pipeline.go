// Package pipeline orchestrates the patient bridge: validate the inbound
// resource, extract and transform the identity fields, validate the outbound
// payload, and send it to the person registry.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samply/golang-fhir-models/fhir-models/fhir"

	"fhir-bridge/internal/audit"
	"fhir-bridge/internal/conformance"
	"fhir-bridge/internal/patient"
	"fhir-bridge/internal/person"
	"fhir-bridge/internal/pipeline/tracer"
	"fhir-bridge/internal/platform/metrics"
	"fhir-bridge/internal/platform/middleware"
	"fhir-bridge/internal/registry"
	"fhir-bridge/internal/runlog"
	"fhir-bridge/pkg/domain"
	dErrors "fhir-bridge/pkg/domain-errors"
)

// Outcome is the terminal state of one pipeline run.
type Outcome string

const (
	OutcomeCreated           Outcome = "Created"
	OutcomeInvalidInbound    Outcome = "InvalidInbound"
	OutcomeInvalidOutbound   Outcome = "InvalidOutbound"
	OutcomeGatewayRejected   Outcome = "GatewayRejected"
	OutcomeUnexpectedFailure Outcome = "UnexpectedFailure"
)

// DateConversionFailed marks the diagnostic attached when a birth date
// could not be parsed and the sentinel value was substituted.
const DateConversionFailed = "DateConversionFailed"

// Result is what a run produces. Diagnostics explain validation outcomes;
// Err carries the underlying cause for unexpected failures.
type Result struct {
	Outcome     Outcome
	Diagnostics []domain.Diagnostic
	Err         error
}

// Sender delivers a person payload to the downstream registry.
type Sender interface {
	Send(ctx context.Context, payload person.Payload) error
}

// PayloadValidator checks an outbound payload against the person schema.
type PayloadValidator interface {
	Validate(ctx context.Context, payload person.Payload) (domain.Verdict, error)
}

// Runner executes pipeline runs. All collaborators are required except the
// ones with documented defaults.
type Runner struct {
	engine  conformance.Engine
	schema  PayloadValidator
	sender  Sender
	store   runlog.Store
	auditor audit.Publisher
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithTracer replaces the default no-op tracer.
func WithTracer(t tracer.Tracer) Option {
	return func(r *Runner) { r.tracer = t }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithRunLog attaches a run log store. Defaults to in-memory.
func WithRunLog(s runlog.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithAuditor attaches an audit publisher. Defaults to no-op.
func WithAuditor(a audit.Publisher) Option {
	return func(r *Runner) { r.auditor = a }
}

// NewRunner assembles a pipeline runner.
func NewRunner(engine conformance.Engine, schema PayloadValidator, sender Sender, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		engine:  engine,
		schema:  schema,
		sender:  sender,
		store:   runlog.NewInMemoryStore(),
		auditor: audit.NoopPublisher{},
		tracer:  tracer.NewNoop(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run takes one raw FHIR Patient resource through the whole pipeline and
// returns its terminal outcome. Run never returns an error; every failure
// mode is an outcome.
func (r *Runner) Run(ctx context.Context, raw []byte) (result Result) {
	start := time.Now()
	requestID := middleware.GetRequestID(ctx)

	ctx, span := r.tracer.Start(ctx, tracer.SpanRun,
		tracer.String(tracer.AttrRequestID, requestID),
	)

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				Outcome: OutcomeUnexpectedFailure,
				Err:     fmt.Errorf("pipeline panic: %v", rec),
			}
			r.logger.Error("pipeline panic", "request_id", requestID, "panic", rec)
		}
		r.finish(ctx, span, requestID, start, result)
	}()

	r.auditor.Publish(ctx, audit.Event{Type: audit.EventPatientReceived, RequestID: requestID})

	result = r.run(ctx, requestID, raw)
	return result
}

func (r *Runner) run(ctx context.Context, requestID string, raw []byte) Result {
	resource, err := fhir.UnmarshalPatient(raw)
	if err != nil {
		return Result{
			Outcome: OutcomeInvalidInbound,
			Diagnostics: []domain.Diagnostic{{
				Message:  fmt.Sprintf("resource is not a parseable Patient: %v", err),
				Severity: "error",
			}},
		}
	}

	verdict, err := r.validateInbound(ctx, raw)
	if err != nil {
		return Result{Outcome: OutcomeUnexpectedFailure, Err: dErrors.Wrap(err, dErrors.CodeInternal, "inbound validation failed")}
	}
	if !verdict.Valid {
		if r.metrics != nil {
			r.metrics.IncrementInboundValidationFailures()
		}
		return Result{Outcome: OutcomeInvalidInbound, Diagnostics: verdict.Diagnostics}
	}

	payload, diags, err := r.transform(ctx, requestID, &resource)
	if err != nil {
		return Result{Outcome: OutcomeUnexpectedFailure, Err: dErrors.Wrap(err, dErrors.CodeExtraction, "extracting identity failed")}
	}

	outVerdict, err := r.validateOutbound(ctx, payload)
	if err != nil {
		return Result{Outcome: OutcomeUnexpectedFailure, Err: dErrors.Wrap(err, dErrors.CodeInternal, "outbound validation failed")}
	}
	if !outVerdict.Valid {
		if r.metrics != nil {
			r.metrics.IncrementOutboundSchemaFailures()
		}
		return Result{Outcome: OutcomeInvalidOutbound, Diagnostics: append(diags, outVerdict.Diagnostics...)}
	}

	if err := r.send(ctx, payload); err != nil {
		var code dErrors.Code
		switch {
		case errors.Is(err, registry.ErrRejected):
			code = dErrors.CodeRegistryRejected
		case errors.Is(err, registry.ErrUnreachable):
			code = dErrors.CodeRegistryUnreachable
		default:
			return Result{Outcome: OutcomeUnexpectedFailure, Err: dErrors.Wrap(err, dErrors.CodeInternal, "sending person payload failed")}
		}
		return Result{
			Outcome: OutcomeGatewayRejected,
			Diagnostics: append(diags, domain.Diagnostic{
				Message:  err.Error(),
				Severity: "error",
			}),
			Err: dErrors.Wrap(err, code, err.Error()),
		}
	}

	return Result{Outcome: OutcomeCreated, Diagnostics: diags}
}

func (r *Runner) validateInbound(ctx context.Context, raw []byte) (domain.Verdict, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanValidateInbound)
	verdict, err := r.engine.Validate(ctx, raw)
	span.SetAttributes(tracer.Int64(tracer.AttrDiagnostics, int64(len(verdict.Diagnostics))))
	span.End(err)
	return verdict, err
}

// transform extracts the identity fields and builds the outbound payload.
// A failed birth date conversion is not an error: the sentinel is applied
// and a diagnostic recorded.
func (r *Runner) transform(ctx context.Context, requestID string, resource *fhir.Patient) (person.Payload, []domain.Diagnostic, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanTransform)

	identity, err := patient.Extract(resource)
	if err != nil {
		span.End(err)
		return nil, nil, err
	}

	var diags []domain.Diagnostic
	dob, ok := patient.FormatBirthDate(identity.BirthDate)
	if !ok {
		diags = append(diags, domain.Diagnostic{
			Location: "birthDate",
			Message:  fmt.Sprintf("%s: %q is not a valid YYYY-MM-DD date, sentinel %s substituted", DateConversionFailed, identity.BirthDate, patient.SentinelBirthDate),
			Severity: "warning",
		})
		if r.metrics != nil {
			r.metrics.IncrementDateFallbacks()
		}
		span.AddEvent(tracer.EventDateFallback)
		r.logger.Warn("birth date conversion failed, sentinel substituted",
			"request_id", requestID,
		)
		r.auditor.Publish(ctx, audit.Event{
			Type:      audit.EventDateFallback,
			RequestID: requestID,
		})
	}

	span.End(nil)
	return person.Build(identity, dob), diags, nil
}

func (r *Runner) validateOutbound(ctx context.Context, payload person.Payload) (domain.Verdict, error) {
	ctx, span := r.tracer.Start(ctx, tracer.SpanValidateOutbound)
	verdict, err := r.schema.Validate(ctx, payload)
	span.SetAttributes(tracer.Int64(tracer.AttrDiagnostics, int64(len(verdict.Diagnostics))))
	span.End(err)
	return verdict, err
}

func (r *Runner) send(ctx context.Context, payload person.Payload) error {
	ctx, span := r.tracer.Start(ctx, tracer.SpanSend)
	start := time.Now()
	err := r.sender.Send(ctx, payload)
	if r.metrics != nil {
		r.metrics.ObserveRegistryRequest(registryResult(err), time.Since(start).Seconds())
	}
	span.End(err)
	return err
}

func registryResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, registry.ErrUnreachable):
		return "unreachable"
	default:
		return "rejected"
	}
}

// finish records the run in metrics, the run log, and the audit stream.
func (r *Runner) finish(ctx context.Context, span tracer.Span, requestID string, start time.Time, result Result) {
	duration := time.Since(start)

	span.SetAttributes(
		tracer.String(tracer.AttrOutcome, string(result.Outcome)),
		tracer.Int64(tracer.AttrDiagnostics, int64(len(result.Diagnostics))),
	)
	span.End(result.Err)

	if r.metrics != nil {
		r.metrics.ObservePipelineRun(string(result.Outcome), duration.Seconds())
	}

	record := runlog.Record{
		ID:          uuid.New(),
		RequestID:   requestID,
		Outcome:     string(result.Outcome),
		Diagnostics: len(result.Diagnostics),
		DurationMS:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.Save(ctx, record); err != nil {
		r.logger.Error("saving run record", "request_id", requestID, "error", err)
	}

	eventType := audit.EventPatientRejected
	if result.Outcome == OutcomeCreated {
		eventType = audit.EventPatientCreated
	}
	event := audit.Event{
		Type:      eventType,
		RequestID: requestID,
		Outcome:   string(result.Outcome),
	}
	if result.Err != nil {
		event.Detail = result.Err.Error()
	}
	r.auditor.Publish(ctx, event)

	logAttrs := []any{
		"request_id", requestID,
		"outcome", result.Outcome,
		"duration_ms", duration.Milliseconds(),
		"diagnostics", len(result.Diagnostics),
	}
	if result.Err != nil {
		logAttrs = append(logAttrs, "error", result.Err)
		r.logger.Error("pipeline run failed", logAttrs...)
		return
	}
	r.logger.Info("pipeline run finished", logAttrs...)
}
