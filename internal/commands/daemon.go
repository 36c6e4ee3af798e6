package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pulsepc/internal/config"
	"pulsepc/internal/export"
	"pulsepc/internal/logger"
	"pulsepc/internal/process"
	"pulsepc/internal/providers"
	"pulsepc/internal/service"
	"pulsepc/internal/telemetry"
)

// NewDaemonCmd creates the daemon command. The daemon keeps every dynamic
// category active and serves the sink to metric backends.
func NewDaemonCmd() *cobra.Command {
	var (
		pidFile       string
		metricsListen string
		otlpEndpoint  string
		otlpInsecure  bool
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run headless and export telemetry",
		Long: `Refresh the dynamic categories continuously and expose them on a
Prometheus /metrics endpoint, optionally pushing them over OTLP/HTTP.
Static categories are collected once at startup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("metrics-listen") {
				cfg.MetricsListen = metricsListen
			}
			if cmd.Flags().Changed("otlp-endpoint") {
				cfg.OTLPEndpoint = otlpEndpoint
			}
			if pidFile == "" {
				pidFile = process.DefaultPath()
			}
			return runDaemon(cmd.Context(), cfg, pidFile, otlpInsecure)
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", "", "PID file used to keep a single daemon")
	cmd.Flags().StringVar(&metricsListen, "metrics-listen", "", "address for the Prometheus endpoint, empty to disable")
	cmd.Flags().StringVar(&otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector host:port")
	cmd.Flags().BoolVar(&otlpInsecure, "otlp-insecure", false, "send OTLP over plain HTTP")
	return cmd
}

func runDaemon(parent context.Context, cfg *config.Config, pidFile string, otlpInsecure bool) (err error) {
	defer func() {
		logger.Info("=== DAEMON EXITING - PID: %d ===", os.Getpid())
	}()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("=== PANIC DETECTED ===")
			logger.Error("Panic value: %v", r)
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			logger.Error("Stack trace:\n%s", string(buf[:n]))
			service.NotifyStopping()
			err = fmt.Errorf("daemon panicked: %v", r)
		}
	}()

	logger.Info("=== DAEMON STARTING - PID: %d ===", os.Getpid())

	lock, err := process.Acquire(pidFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	dynamic, err := cfg.Dynamic()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, providers.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	unsubscribe := eng.sink.SubscribeAll(func(s *telemetry.Snapshot) {
		logger.Debug("Published %s #%d (%d metrics)", s.Category(), s.Sequence(), s.Len())
	})
	defer unsubscribe()

	eng.scheduler.SetActiveCategories(dynamic...)
	eng.scheduler.Start(ctx)

	var static []telemetry.Category
	for _, c := range telemetry.AllCategories() {
		if !eng.scheduler.IsDynamic(c) {
			static = append(static, c)
		}
	}
	eng.collect(ctx, static)

	var otlp *export.OTelExporter
	if cfg.OTLPEndpoint != "" {
		otlp, err = export.StartOTLP(ctx, export.OTLPConfig{
			Endpoint: cfg.OTLPEndpoint,
			Headers:  cfg.OTLPHeaders,
			Insecure: otlpInsecure,
		}, eng.sink)
		if err != nil {
			logger.Error("Failed to start OTLP export: %v", err)
			otlp = nil
		}
	}

	var servers errgroup.Group
	if cfg.MetricsListen != "" {
		handler := export.Handler(export.NewRegistry(export.NewCollector(eng.sink, eng.diag)))
		servers.Go(func() error {
			err := export.Serve(ctx, cfg.MetricsListen, handler)
			if err != nil {
				logger.Error("Metrics endpoint stopped: %v", err)
			}
			return err
		})
	}

	logger.Info("Daemon initialized:")
	logger.Info("  Dynamic categories: %v", dynamic)
	logger.Info("  Refresh interval: %v", cfg.RefreshInterval)
	if cfg.MetricsListen != "" {
		logger.Info("  Prometheus: http://%s/metrics", cfg.MetricsListen)
	}
	if otlp != nil {
		logger.Info("  OTLP: %s", cfg.OTLPEndpoint)
	}

	service.NotifyReady()
	service.NotifyStatus(fmt.Sprintf("Refreshing %d categories every %v", len(dynamic), cfg.RefreshInterval))

	go service.RunWatchdog(ctx, cycleProgress(eng.scheduler))

	// first export as soon as the dynamic categories have data
	if otlp != nil {
		go func() {
			select {
			case <-ctx.Done():
			case <-time.After(cfg.RefreshInterval + cfg.CPUSampleWindow):
				if err := otlp.ForceFlush(ctx); err != nil {
					logger.Warning("Initial OTLP flush failed: %v", err)
				} else {
					logger.Info("Initial metrics sent over OTLP")
				}
			}
		}()
	}

	healthTicker := time.NewTicker(5 * time.Minute)
	defer healthTicker.Stop()

	for {
		select {
		case <-healthTicker.C:
			var memStats runtime.MemStats
			runtime.ReadMemStats(&memStats)
			logger.Debug("Health check - goroutines: %d, memory: %.1f MB, cycles: %d",
				runtime.NumGoroutine(),
				float64(memStats.Alloc)/1024/1024,
				eng.scheduler.Cycles())
			for _, s := range eng.diag.Snapshot() {
				if s.Failures > 0 {
					logger.Debug("  %s/%s: %d failures, last: %s", s.Category, s.Provider, s.Failures, s.LastError)
				}
			}

		case <-ctx.Done():
			logger.Info("=== SHUTDOWN REQUESTED ===")
			service.NotifyStopping()

			eng.scheduler.Stop()
			if otlp != nil {
				if err := otlp.Stop(); err != nil {
					logger.Warning("Failed to stop OTLP export: %v", err)
				}
			}
			_ = servers.Wait()
			return nil
		}
	}
}

// cycleProgress reports healthy while the refresh loop keeps completing
// cycles, or trivially when it has nothing to refresh
func cycleProgress(s *telemetry.Scheduler) func() bool {
	var last uint64
	return func() bool {
		if s.State() == telemetry.Idle {
			return true
		}
		cur := s.Cycles()
		ok := cur != last
		last = cur
		return ok
	}
}
