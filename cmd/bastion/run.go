package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"bastion-hq/bastion/pkg/cli"
	"bastion-hq/bastion/pkg/config"
	"bastion-hq/bastion/pkg/events"
	"bastion-hq/bastion/pkg/guard"
	"bastion-hq/bastion/pkg/guard/anomaly"
	"bastion-hq/bastion/pkg/guard/breaker"
	"bastion-hq/bastion/pkg/guard/storage"
	"bastion-hq/bastion/pkg/guard/timelock"
	"bastion-hq/bastion/pkg/server"
	"bastion-hq/bastion/pkg/telemetry/health"
	"bastion-hq/bastion/pkg/telemetry/logging"
	"bastion-hq/bastion/pkg/telemetry/metrics"
	"bastion-hq/bastion/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Bastion admission server",
	Long: `Start the Bastion admission server with the specified configuration.

The server exposes the authorization hot path and the administrative
guard controls over HTTP, restores persisted guard state on startup,
and records lifecycle events to the audit trail.

Examples:
  # Start with default config
  bastion run

  # Start with custom config
  bastion run --config /etc/bastion/config.yaml

  # Override listen address
  bastion run --listen 0.0.0.0:8080

  # Validate config without starting server
  bastion run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}

	// Apply flag overrides
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}
	slog.SetDefault(logger.Slog())

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	fmt.Printf("Bastion v%s\n", Version)
	fmt.Printf("Loading configuration from: %s\n", cfgFile)
	fmt.Println("✓ Configuration loaded")

	collector := metrics.NewCollector(metrics.Config{
		Enabled: cfg.Telemetry.Metrics.Enabled,
		Path:    cfg.Telemetry.Metrics.Path,
	})
	collector.SetBuildInfo(Version, GitCommit)

	// State persistence backend
	var backend storage.Backend
	switch cfg.Storage.Backend {
	case "sqlite":
		sqliteBackend, err := storage.NewSQLiteBackend(cfg.Storage.Path)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open state store: %w", err))
		}
		backend = sqliteBackend
	case "memory":
		backend = storage.NewMemoryBackend()
	default:
		return cli.NewConfigError(cfgFile, fmt.Sprintf("unsupported storage backend: %s", cfg.Storage.Backend))
	}
	defer backend.Close()
	fmt.Printf("✓ State store initialized (%s)\n", cfg.Storage.Backend)

	// Event bus with log sink and optional audit trail
	bus := events.NewBus(cfg.Events.QueueSize)
	defer bus.Close()
	bus.Subscribe(events.LogSink(logger.Slog()))

	if cfg.Events.Audit.Enabled {
		audit, err := events.NewAudit(cfg.Events.Audit.Path)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to open audit trail: %w", err))
		}
		defer audit.Close()
		bus.Subscribe(audit.Sink())
		fmt.Println("✓ Audit trail initialized")
	}

	engine, err := guard.New(guard.Config{
		PauseCap: cfg.Guards.PauseCap,
		Breaker: breaker.Config{
			MinSample:           cfg.Guards.Breaker.MinSample,
			FailureThresholdPct: cfg.Guards.Breaker.FailureThresholdPct,
			Cooldown:            cfg.Guards.Breaker.Cooldown,
		},
		Timelock: timelock.Config{
			MinDelay:        cfg.Guards.Timelock.MinDelay,
			MaxDelay:        cfg.Guards.Timelock.MaxDelay,
			ExecutionWindow: cfg.Guards.Timelock.ExecutionWindow,
		},
		Anomaly: anomaly.Config{
			Multiplier:        cfg.Guards.Anomaly.Multiplier,
			RefreshWindow:     cfg.Guards.Anomaly.RefreshWindow,
			MeasurementWindow: cfg.Guards.Anomaly.MeasurementWindow,
		},
		Rules:   operationRules(cfg.Guards.Operations),
		Storage: backend,
		Bus:     bus,
		Logger:  logger.Slog(),
		Metrics: guard.NewMetrics(collector.Registry()),
	})
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to assemble guard engine: %w", err))
	}
	fmt.Printf("✓ Guard engine assembled (%d operation rules)\n", len(cfg.Guards.Operations))

	ctx := cli.SetupSignalHandler()

	// Scheduled state pruning
	if cfg.Storage.Retention > 0 && cfg.Storage.PruneSchedule != "" {
		pruner := storage.NewPruner(backend, &storage.PruneConfig{
			Retention: cfg.Storage.Retention,
			Schedule:  cfg.Storage.PruneSchedule,
		})
		scheduler := storage.NewScheduler(pruner)
		if err := scheduler.Start(ctx); err != nil {
			logger.Warn("failed to start prune scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Hot reload of the operation rule table
	if cfg.Guards.Watch {
		watcher, err := config.NewWatcher(cfgFile, logger.Slog())
		if err != nil {
			logger.Warn("failed to create config watcher", "error", err)
		} else {
			go func() {
				err := watcher.Watch(ctx, func(next *config.Config) error {
					return engine.SetRules(operationRules(next.Guards.Operations))
				})
				if err != nil {
					logger.Error("config watcher stopped", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	checker := health.New(health.DefaultCheckTimeout)
	checker.Register("storage", health.StorageCheck(backend))
	checker.Register("events", health.BusCheck(bus, 0))

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("failed to initialize tracing: %w", err))
	}
	defer tracer.Shutdown(context.Background())
	if tracer.Enabled() {
		fmt.Printf("✓ Tracing enabled (%s)\n", cfg.Telemetry.Tracing.Endpoint)
	}

	srv := server.NewServer(&cfg.Server, engine, collector, logger)
	srv.SetHealthChecker(checker)
	srv.SetTracer(tracer)

	fmt.Println()
	fmt.Printf("✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", cfg.Server.ListenAddress)
	if collector.Enabled() {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", cfg.Server.ListenAddress, collector.Path())
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Println("✓ Server stopped")
	return nil
}

// operationRules converts the configured rule table into engine rules.
func operationRules(ops map[string]config.OperationConfig) map[string]guard.OperationRule {
	rules := make(map[string]guard.OperationRule, len(ops))
	for name, op := range ops {
		rules[name] = guard.OperationRule{
			MaxRequests: op.MaxRequests,
			Window:      op.Window,
			Cooldown:    op.Cooldown,
			Metric:      op.Metric,
		}
	}
	return rules
}
