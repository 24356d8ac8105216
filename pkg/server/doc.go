// Package server provides the HTTP administration server for Bastion.
//
// This package ties together the guard engine, telemetry, and request
// middleware, and provides server lifecycle management including start,
// shutdown, and health checks.
//
// # Architecture
//
// The server package is the top-level HTTP orchestrator that:
//   - Exposes the authorization hot path over HTTP
//   - Exposes administrative guard controls (pause, breaker, timelock, rules)
//   - Chains middleware for cross-cutting concerns
//   - Manages graceful shutdown
//   - Handles OS signals (SIGTERM, SIGINT)
//
// # Basic Usage
//
// Creating and starting a server:
//
//	import (
//	    "context"
//	    "bastion-hq/bastion/pkg/config"
//	    "bastion-hq/bastion/pkg/guard"
//	    "bastion-hq/bastion/pkg/server"
//	)
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	engine, err := guard.New(guard.Config{...})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	srv := server.NewServer(&cfg.Server, engine, collector, logger)
//	if err := srv.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// The server handles graceful shutdown automatically when receiving
// SIGTERM or SIGINT, or when the Start context is cancelled. The
// shutdown process:
//
//  1. Stops accepting new connections
//  2. Waits for active connections to complete (up to shutdown timeout)
//  3. Forces connection closure if timeout exceeded
//
// # Routes
//
// The server exposes the following HTTP endpoints:
//
//   - POST /v1/authorize - Admission check for one call
//   - POST /v1/complete - Outcome report for an authorized call
//   - POST /v1/metrics/observe - Raw anomaly series observation
//   - POST/DELETE/GET /v1/pause - Emergency pause management
//   - GET/POST /v1/breaker - Breaker inspection and overrides
//   - PUT /v1/breaker/config - Engine-wide breaker tuning
//   - GET /v1/timelock - Proposal inspection and pending list
//   - POST /v1/timelock/propose - Schedule a delayed action
//   - POST /v1/timelock/execute - Execute a matured proposal
//   - GET/PUT /v1/rules - Operation rule table
//   - GET /health - Liveness probe (always returns 200)
//   - GET /ready - Readiness probe
//   - GET /metrics - Prometheus exposition (path configurable)
//
// Denied authorizations answer 429 (rate limiter) or 503 (pause,
// breaker) with a JSON body naming the denying guard and, for
// temporal denials, a Retry-After header in whole seconds.
//
// # Middleware Chain
//
// Requests pass through the following middleware (innermost to outermost):
//
//  1. Tracing: Opens a span per request (only when a tracer is attached)
//  2. RequestID: Attaches a unique request ID for correlation
//  3. Logging: Logs request/response details
//  4. Recovery: Recovers from panics and returns 500 error
//
// # Thread Safety
//
// All server operations are thread-safe and can be called concurrently
// from multiple goroutines.
package server
