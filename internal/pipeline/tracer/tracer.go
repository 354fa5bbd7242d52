// Package tracer provides a lightweight tracing abstraction for the
// pipeline, keeping OpenTelemetry APIs out of the orchestration code.
//
// Implementations:
//   - NoopTracer: for tests
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the pipeline.
const (
	SpanRun              = "pipeline.run"
	SpanValidateInbound  = "pipeline.validate_inbound"
	SpanTransform        = "pipeline.transform"
	SpanValidateOutbound = "pipeline.validate_outbound"
	SpanSend             = "pipeline.send"
)

// Attribute keys used by the pipeline.
const (
	AttrRequestID   = "request_id"
	AttrOutcome     = "outcome"
	AttrDiagnostics = "diagnostics"
)

// Event names used by the pipeline.
const (
	EventDateFallback = "date_fallback"
)
