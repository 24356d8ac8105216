// Package tracing provides distributed tracing for Bastion built on
// OpenTelemetry.
//
// # Overview
//
// The admin server creates one span per HTTP request, named after the
// route. Handlers enrich the span with guard-domain attributes in the
// "bastion.*" namespace: the admission call identity (scope, subject,
// operation), the authorization decision, and administrative details
// such as the acting operator or timelock proposal hash.
//
// Spans are exported over OTLP gRPC to the configured collector.
// W3C Trace Context headers on incoming requests are honored, so
// admission spans join the trace of the calling service.
//
// # Usage
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, version)
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
//
//	ctx, span := tracer.Start(ctx, "authorize")
//	defer span.End()
//	tracing.SetCallAttributes(span, scope, subject, operation)
//
// When tracing is disabled in configuration, New returns a noop
// tracer and all span operations become cheap no-ops; call sites do
// not branch on tracing being enabled.
//
// # Sampling
//
// Three strategies are supported: "always", "never" and "ratio". The
// ratio strategy samples on a hash of the trace ID, so the decision is
// consistent for every span of a trace. All strategies respect an
// upstream parent's sampling decision.
package tracing
