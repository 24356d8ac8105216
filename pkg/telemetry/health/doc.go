// Package health provides component readiness probes for Bastion.
//
// # Overview
//
// The health package implements the readiness side of the /ready
// endpoint: named component probes that run concurrently under a
// per-probe timeout and aggregate into a single status. Liveness is
// handled directly by the admin server; this package only answers
// "can the system serve traffic".
//
// # Usage
//
//	checker := health.New(0)
//	checker.Register("storage", health.StorageCheck(backend))
//	checker.Register("events", health.BusCheck(bus, 0))
//
//	status := checker.Readiness(ctx)
//	// status.Status is "ready" or "degraded"
//	// status.Checks holds per-component results
//
// # Built-in Checks
//
// StorageCheck probes the guard state backend with a cheap list read.
// BusCheck watches the event bus drop counter. Custom probes are any
// func(ctx) error.
//
// # Thread Safety
//
// All Checker operations are safe for concurrent use.
package health
