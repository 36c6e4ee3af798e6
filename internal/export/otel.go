package export

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	constants "pulsepc/config"
	"pulsepc/internal/telemetry"
)

// OTLPConfig selects where snapshot values are pushed
type OTLPConfig struct {
	Endpoint string // host:port, no scheme
	Headers  map[string]string
	Insecure bool
	Interval time.Duration
}

// OTelExporter observes the sink through asynchronous gauges
type OTelExporter struct {
	mu       sync.Mutex
	provider *sdkmetric.MeterProvider
	reg      metric.Registration
	sink     *telemetry.Sink
}

// StartOTLP creates an exporter that pushes to an OTLP/HTTP endpoint
func StartOTLP(ctx context.Context, cfg OTLPConfig, sink *telemetry.Sink) (*OTelExporter, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTLP endpoint is empty")
	}

	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(cfg.Endpoint),
		otlpmetrichttp.WithURLPath(constants.OTLP_PATH),
		otlpmetrichttp.WithRetry(otlpmetrichttp.RetryConfig{
			Enabled:         true,
			InitialInterval: 5 * time.Second,
			MaxInterval:     30 * time.Second,
			MaxElapsedTime:  2 * time.Minute,
		}),
		otlpmetrichttp.WithTimeout(30 * time.Second),
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval, _ = time.ParseDuration(constants.OTLP_EXPORT_INTERVAL)
	}

	e, err := NewOTelExporter(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)), sink)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

// NewOTelExporter registers the snapshot gauges against any reader
func NewOTelExporter(reader sdkmetric.Reader, sink *telemetry.Sink) (*OTelExporter, error) {
	hostname, _ := os.Hostname()

	// semconv v1.24.0 schema only; resource.Default() carries a newer one
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(constants.APP_NAME),
		semconv.ServiceVersion(constants.VERSION),
		semconv.HostName(hostname),
		attribute.String("os.type", runtime.GOOS),
	)

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	e := &OTelExporter{provider: provider, sink: sink}
	meter := provider.Meter(constants.INSTRUMENTATION_SCOPE,
		metric.WithInstrumentationVersion(constants.VERSION),
	)
	if err := e.register(meter); err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) register(meter metric.Meter) error {
	value, err := meter.Float64ObservableGauge(constants.METRIC_NAME+".value",
		metric.WithDescription("Numeric reading from the latest category snapshot"),
	)
	if err != nil {
		return err
	}

	sequence, err := meter.Int64ObservableGauge(constants.METRIC_NAME+".snapshot.sequence",
		metric.WithDescription("Sequence number of the latest published snapshot"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return err
	}

	age, err := meter.Float64ObservableGauge(constants.METRIC_NAME+".snapshot.age",
		metric.WithDescription("Time since the latest snapshot was captured"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	e.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		now := time.Now()
		for _, c := range telemetry.AllCategories() {
			snap := e.sink.Get(c)
			if !snap.Available() {
				continue
			}
			cat := attribute.String("category", c.String())
			o.ObserveInt64(sequence, int64(snap.Sequence()), metric.WithAttributes(cat))
			o.ObserveFloat64(age, now.Sub(snap.CapturedAt()).Seconds(), metric.WithAttributes(cat))

			for _, s := range Samples(snap) {
				o.ObserveFloat64(value, s.Value, metric.WithAttributes(
					cat,
					attribute.String("key", s.Key),
					attribute.String("unit", otelUnit(s.Unit)),
				))
			}
		}
		return nil
	}, value, sequence, age)
	return err
}

// ForceFlush pushes pending readings immediately
func (e *OTelExporter) ForceFlush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return e.provider.ForceFlush(ctx)
}

// Stop unregisters the gauges and shuts the provider down
func (e *OTelExporter) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.reg != nil {
		_ = e.reg.Unregister()
	}
	err := e.provider.Shutdown(ctx)
	e.provider = nil
	return err
}
