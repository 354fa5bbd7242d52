package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"fhir-bridge/internal/audit"
	"fhir-bridge/internal/person"
	"fhir-bridge/internal/registry"
	"fhir-bridge/internal/runlog"
	"fhir-bridge/pkg/domain"
	dErrors "fhir-bridge/pkg/domain-errors"
)

const validPatientJSON = `{
	"resourceType": "Patient",
	"name": [{"family": "Smith", "given": ["John"]}],
	"birthDate": "1990-05-21"
}`

type stubEngine struct {
	verdict domain.Verdict
	err     error
}

func (s *stubEngine) Validate(_ context.Context, _ []byte) (domain.Verdict, error) {
	return s.verdict, s.err
}

type stubSchema struct {
	verdict domain.Verdict
	err     error
}

func (s *stubSchema) Validate(_ context.Context, _ person.Payload) (domain.Verdict, error) {
	return s.verdict, s.err
}

type stubSender struct {
	err  error
	sent []person.Payload
}

func (s *stubSender) Send(_ context.Context, payload person.Payload) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, payload)
	return nil
}

type recordingAuditor struct {
	events []audit.Event
}

func (r *recordingAuditor) Publish(_ context.Context, e audit.Event) {
	r.events = append(r.events, e)
}

func passingEngine() *stubEngine {
	return &stubEngine{verdict: domain.Verdict{Valid: true}}
}

func passingSchema() *stubSchema {
	return &stubSchema{verdict: domain.Verdict{Valid: true}}
}

func newRunner(engine *stubEngine, schema *stubSchema, sender *stubSender, opts ...Option) *Runner {
	return NewRunner(engine, schema, sender, slog.Default(), opts...)
}

func TestRunHappyPath(t *testing.T) {
	sender := &stubSender{}
	runner := newRunner(passingEngine(), passingSchema(), sender)

	result := runner.Run(context.Background(), []byte(validPatientJSON))

	if result.Outcome != OutcomeCreated {
		t.Fatalf("expected Created, got %s (err %v)", result.Outcome, result.Err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
	payload := sender.sent[0]
	if payload[person.KeyFirstName] != "John" || payload[person.KeyLastName] != "Smith" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if payload[person.KeyDOB] != "21.05.1990" {
		t.Fatalf("expected converted date 21.05.1990, got %s", payload[person.KeyDOB])
	}
}

func TestRunUnparseableResource(t *testing.T) {
	sender := &stubSender{}
	runner := newRunner(passingEngine(), passingSchema(), sender)

	result := runner.Run(context.Background(), []byte(`{"resourceType": "Patient", "name": "oops"`))

	if result.Outcome != OutcomeInvalidInbound {
		t.Fatalf("expected InvalidInbound, got %s", result.Outcome)
	}
	if len(result.Diagnostics) == 0 {
		t.Fatal("expected a diagnostic for the parse failure")
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing may be sent for an unparseable resource")
	}
}

func TestRunInboundValidationFailure(t *testing.T) {
	engine := &stubEngine{verdict: domain.Verdict{
		Diagnostics: []domain.Diagnostic{{Location: "Patient.gender", Message: "unknown code", Severity: "error"}},
	}}
	sender := &stubSender{}
	runner := newRunner(engine, passingSchema(), sender)

	result := runner.Run(context.Background(), []byte(validPatientJSON))

	if result.Outcome != OutcomeInvalidInbound {
		t.Fatalf("expected InvalidInbound, got %s", result.Outcome)
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].Location != "Patient.gender" {
		t.Fatalf("expected the engine diagnostics to pass through, got %v", result.Diagnostics)
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing may be sent after an inbound validation failure")
	}
}

func TestRunEngineErrorIsUnexpectedFailure(t *testing.T) {
	engine := &stubEngine{err: errors.New("profile store offline")}
	runner := newRunner(engine, passingSchema(), &stubSender{})

	result := runner.Run(context.Background(), []byte(validPatientJSON))

	if result.Outcome != OutcomeUnexpectedFailure {
		t.Fatalf("expected UnexpectedFailure, got %s", result.Outcome)
	}
	if result.Err == nil {
		t.Fatal("expected the cause to be carried in Err")
	}
}

func TestRunDateFallback(t *testing.T) {
	resource := `{
		"resourceType": "Patient",
		"name": [{"family": "Smith", "given": ["John"]}],
		"birthDate": "not-a-date"
	}`
	sender := &stubSender{}
	auditor := &recordingAuditor{}
	runner := newRunner(passingEngine(), passingSchema(), sender, WithAuditor(auditor))

	result := runner.Run(context.Background(), []byte(resource))

	if result.Outcome != OutcomeCreated {
		t.Fatalf("a date fallback must not fail the run, got %s (err %v)", result.Outcome, result.Err)
	}
	if sender.sent[0][person.KeyDOB] != "01.01.1900" {
		t.Fatalf("expected sentinel date, got %s", sender.sent[0][person.KeyDOB])
	}
	found := false
	for _, d := range result.Diagnostics {
		if d.Location == "birthDate" && d.Severity == "warning" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a birthDate warning diagnostic, got %v", result.Diagnostics)
	}
	fallbackEvent := false
	for _, e := range auditor.events {
		if e.Type == audit.EventDateFallback {
			fallbackEvent = true
		}
	}
	if !fallbackEvent {
		t.Fatal("expected a date_fallback audit event")
	}
}

func TestRunMissingNameIsUnexpectedFailure(t *testing.T) {
	runner := newRunner(passingEngine(), passingSchema(), &stubSender{})

	result := runner.Run(context.Background(), []byte(`{"resourceType": "Patient"}`))

	if result.Outcome != OutcomeUnexpectedFailure {
		t.Fatalf("expected UnexpectedFailure, got %s", result.Outcome)
	}
}

func TestRunOutboundSchemaFailure(t *testing.T) {
	schema := &stubSchema{verdict: domain.Verdict{
		Diagnostics: []domain.Diagnostic{{Location: "/PersonDOB", Message: "length must be >= 1", Severity: "error"}},
	}}
	sender := &stubSender{}
	runner := newRunner(passingEngine(), schema, sender)

	result := runner.Run(context.Background(), []byte(validPatientJSON))

	if result.Outcome != OutcomeInvalidOutbound {
		t.Fatalf("expected InvalidOutbound, got %s", result.Outcome)
	}
	if len(sender.sent) != 0 {
		t.Fatal("nothing may be sent after an outbound validation failure")
	}
}

func TestRunRegistryErrors(t *testing.T) {
	t.Run("rejection is GatewayRejected", func(t *testing.T) {
		sender := &stubSender{err: &registry.RejectionError{StatusCode: http.StatusConflict}}
		runner := newRunner(passingEngine(), passingSchema(), sender)

		result := runner.Run(context.Background(), []byte(validPatientJSON))
		if result.Outcome != OutcomeGatewayRejected {
			t.Fatalf("expected GatewayRejected, got %s", result.Outcome)
		}
		if !dErrors.HasCode(result.Err, dErrors.CodeRegistryRejected) {
			t.Fatalf("expected registry_rejected code, got %v", result.Err)
		}
	})

	t.Run("transport fault is GatewayRejected", func(t *testing.T) {
		sender := &stubSender{err: registry.ErrUnreachable}
		runner := newRunner(passingEngine(), passingSchema(), sender)

		result := runner.Run(context.Background(), []byte(validPatientJSON))
		if result.Outcome != OutcomeGatewayRejected {
			t.Fatalf("expected GatewayRejected, got %s", result.Outcome)
		}
		if !dErrors.HasCode(result.Err, dErrors.CodeRegistryUnreachable) {
			t.Fatalf("expected registry_unreachable code, got %v", result.Err)
		}
	})

	t.Run("other sender error is UnexpectedFailure", func(t *testing.T) {
		sender := &stubSender{err: errors.New("payload encoding broken")}
		runner := newRunner(passingEngine(), passingSchema(), sender)

		result := runner.Run(context.Background(), []byte(validPatientJSON))
		if result.Outcome != OutcomeUnexpectedFailure {
			t.Fatalf("expected UnexpectedFailure, got %s", result.Outcome)
		}
	})
}

func TestRunRecordsRunLog(t *testing.T) {
	store := runlog.NewInMemoryStore()
	runner := newRunner(passingEngine(), passingSchema(), &stubSender{}, WithRunLog(store))

	runner.Run(context.Background(), []byte(validPatientJSON))

	records, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].Outcome != string(OutcomeCreated) {
		t.Fatalf("expected Created record, got %s", records[0].Outcome)
	}
}

func TestRunAuditEvents(t *testing.T) {
	auditor := &recordingAuditor{}
	runner := newRunner(passingEngine(), passingSchema(), &stubSender{}, WithAuditor(auditor))

	runner.Run(context.Background(), []byte(validPatientJSON))

	if len(auditor.events) != 2 {
		t.Fatalf("expected received and created events, got %v", auditor.events)
	}
	if auditor.events[0].Type != audit.EventPatientReceived {
		t.Fatalf("expected patient_received first, got %s", auditor.events[0].Type)
	}
	if auditor.events[1].Type != audit.EventPatientCreated {
		t.Fatalf("expected patient_created, got %s", auditor.events[1].Type)
	}
}

type panickyEngine struct{}

func (panickyEngine) Validate(context.Context, []byte) (domain.Verdict, error) {
	panic("terminology server went sideways")
}

func TestRunPanicIsUnexpectedFailure(t *testing.T) {
	runner := NewRunner(panickyEngine{}, passingSchema(), &stubSender{}, slog.Default())

	result := runner.Run(context.Background(), []byte(validPatientJSON))

	if result.Outcome != OutcomeUnexpectedFailure {
		t.Fatalf("expected UnexpectedFailure, got %s", result.Outcome)
	}
	if result.Err == nil {
		t.Fatal("expected the panic to be carried in Err")
	}
}
