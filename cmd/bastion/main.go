// Bastion is an operational guardrail service for high-value operations.
//
// It composes five guards behind a single admission surface:
//   - Per-subject rate limiting with fixed quota windows
//   - Failure-rate circuit breaking with cooldown auto-reset
//   - Scope-level emergency pauses with a system-wide duration cap
//   - Timelocked administrative actions with bounded delays
//   - Baseline-relative anomaly detection over operation metrics
//
// Usage:
//
//	# Start the server with default configuration
//	bastion run
//
//	# Start with a custom configuration file
//	bastion run --config /path/to/config.yaml
//
//	# Show version information
//	bastion version
//
//	# Validate a configuration file
//	bastion validate --config /path/to/config.yaml
package main

func main() {
	Execute()
}
