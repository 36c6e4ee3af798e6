package commands

import (
	"fmt"

	"pulsepc/internal/config"
	"pulsepc/internal/logger"
	"pulsepc/internal/providers"
	"pulsepc/internal/telemetry"
)

// engine is the refresh pipeline shared by every command
type engine struct {
	cfg       *config.Config
	registry  *telemetry.Registry
	diag      *telemetry.Diagnostics
	sink      *telemetry.Sink
	scheduler *telemetry.Scheduler
}

// newEngine builds the pipeline. A registry that fails to build is the only
// fatal condition; callers exit on the returned error.
func newEngine(cfg *config.Config, opts providers.Options) (*engine, error) {
	reg, err := providers.NewRegistry(opts)
	if err != nil {
		logger.Error("Failed to build provider registry: %v", err)
		return nil, fmt.Errorf("build provider registry: %w", err)
	}

	diag := telemetry.NewDiagnostics()
	sink := telemetry.NewSink()
	sched := telemetry.NewScheduler(cfg.SchedulerConfig(),
		telemetry.NewResolver(reg, diag),
		telemetry.NewAssembler(),
		sink,
	)
	return &engine{cfg: cfg, registry: reg, diag: diag, sink: sink, scheduler: sched}, nil
}

// loadConfig reads the config file named by --config, or the default search path
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFileOS(path)
	}
	return config.LoadConfig()
}
