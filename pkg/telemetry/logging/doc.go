// Package logging provides structured logging for the policy engine.
//
// # Overview
//
// The logging package wraps Go's standard log/slog package to provide:
//
//   - Configurable levels and output formats (JSON, text)
//   - Context-aware logging (request ID, scope, subject, operation, actor)
//   - Child loggers with bound fields via With
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//	if err != nil {
//	    return err
//	}
//
//	logger.Info("pause activated", "scope", "payments", "actor", "ops")
//
//	ctx := logging.WithRequestID(ctx, requestID)
//	logger.InfoContext(ctx, "authorization denied", "guard", "rate_limiter")
package logging
