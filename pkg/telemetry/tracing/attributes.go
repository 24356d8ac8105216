package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for guard-domain span data. Custom keys use the
// "bastion.*" namespace; generic keys follow OpenTelemetry semantic
// conventions.
const (
	AttrScope     = "bastion.scope"
	AttrSubject   = "bastion.subject"
	AttrOperation = "bastion.operation"
	AttrActor     = "bastion.actor"
	AttrRequestID = "bastion.request_id"

	// Decision attributes
	AttrAllowed = "bastion.decision.allowed"
	AttrGuard   = "bastion.decision.guard"
	AttrReason  = "bastion.decision.reason"

	// Timelock attributes
	AttrProposalHash = "bastion.proposal.hash"

	// Anomaly attributes
	AttrMetricName  = "bastion.metric.name"
	AttrMetricValue = "bastion.metric.value"
)

// SetCallAttributes sets the admission call identity on a span.
func SetCallAttributes(span trace.Span, scope, subject, operation string) {
	span.SetAttributes(
		attribute.String(AttrScope, scope),
		attribute.String(AttrSubject, subject),
		attribute.String(AttrOperation, operation),
	)
}

// SetDecisionAttributes records the authorization outcome. The guard
// and reason are only meaningful for denials and are omitted when
// empty.
func SetDecisionAttributes(span trace.Span, allowed bool, guard, reason string) {
	attrs := []attribute.KeyValue{
		attribute.Bool(AttrAllowed, allowed),
	}
	if guard != "" {
		attrs = append(attrs, attribute.String(AttrGuard, guard))
	}
	if reason != "" {
		attrs = append(attrs, attribute.String(AttrReason, reason))
	}
	span.SetAttributes(attrs...)
}

// SetActorAttribute records the administrative actor on a span.
func SetActorAttribute(span trace.Span, actor string) {
	if actor != "" {
		span.SetAttributes(attribute.String(AttrActor, actor))
	}
}

// SetProposalAttribute records the timelock proposal hash on a span.
func SetProposalAttribute(span trace.Span, hash string) {
	span.SetAttributes(attribute.String(AttrProposalHash, hash))
}

// SetMetricAttributes records an anomaly observation on a span.
func SetMetricAttributes(span trace.Span, name string, value float64) {
	span.SetAttributes(
		attribute.String(AttrMetricName, name),
		attribute.Float64(AttrMetricValue, value),
	)
}

// AddEvent adds a named event to the span with optional attributes.
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
