// Package telemetry provides observability for Bastion.
//
// # Overview
//
// The telemetry package implements structured logging, Prometheus
// metrics, distributed tracing, and readiness probes through its
// sub-packages:
//
//   - logging: structured logging built on log/slog with context-aware
//     fields (request ID, scope, subject, operation, actor)
//   - metrics: the process-wide Prometheus registry and exposition
//     endpoint that component metric sets register on
//   - tracing: OpenTelemetry spans for admission calls, exported over
//     OTLP gRPC
//   - health: component readiness probes behind the /ready endpoint
//
// Each sub-package is usable independently; the server wires all four.
package telemetry
