// Package config provides configuration management for Bastion.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with comprehensive validation and sensible defaults.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("config.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BASTION_SECTION_FIELD.
// For example:
//
//   - BASTION_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - BASTION_GUARDS_PAUSE_CAP overrides guards.pause_cap
//   - BASTION_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Configuration Precedence
//
// Configuration values are applied in the following order (later overrides earlier):
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Hot Reload
//
// The Watcher reloads the configuration file on change. Only the guard
// operation rules are applied at runtime; server and storage settings
// require a restart. A reload that fails validation is logged and
// discarded, leaving the previous configuration in effect.
//
// # Validation
//
// All configuration is validated automatically during loading. Validation includes:
//
//   - Required field checks (e.g., storage path for the sqlite backend)
//   - Range validation (e.g., failure threshold must be 1-100 percent)
//   - Format validation (e.g., prune schedule must be a valid cron expression)
//   - Logical validation (e.g., timelock min_delay must not exceed max_delay)
//
// Validation errors include field paths and helpful messages:
//
//	configuration validation failed with 2 errors:
//	  - guards.breaker.min_sample: must be greater than zero
//	  - storage.path: field is required for the sqlite backend
//
// # Example Configuration
//
// Here is a minimal configuration file:
//
//	server:
//	  listen_address: "127.0.0.1:8080"
//
//	guards:
//	  pause_cap: 24h
//	  operations:
//	    mint:
//	      max_requests: 10
//	      window: 1m
//	      metric: "mint_volume"
//
//	storage:
//	  backend: "sqlite"
//	  path: "data/bastion.db"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
//
// # Thread Safety
//
// Config instances are immutable after loading. Callers that hold a
// Config across reloads must swap the pointer atomically themselves.
package config
