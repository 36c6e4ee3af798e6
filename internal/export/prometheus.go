package export

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	constants "pulsepc/config"
	"pulsepc/internal/logger"
	"pulsepc/internal/telemetry"
)

// Collector exposes the sink and provider diagnostics as Prometheus metrics.
// Values are read at scrape time, so a scrape never triggers collection.
type Collector struct {
	sink *telemetry.Sink
	diag *telemetry.Diagnostics
	now  func() time.Time

	value     *prometheus.Desc
	sequence  *prometheus.Desc
	age       *prometheus.Desc
	outcomes  *prometheus.Desc
	timeouts  *prometheus.Desc
	latencies *prometheus.Desc
}

// NewCollector creates a collector; diag may be nil
func NewCollector(sink *telemetry.Sink, diag *telemetry.Diagnostics) *Collector {
	ns := constants.METRIC_NAME
	return &Collector{
		sink: sink,
		diag: diag,
		now:  time.Now,
		value: prometheus.NewDesc(ns+"_value",
			"Numeric reading from the latest category snapshot",
			[]string{"category", "key", "unit"}, nil),
		sequence: prometheus.NewDesc(ns+"_snapshot_sequence",
			"Sequence number of the latest published snapshot",
			[]string{"category"}, nil),
		age: prometheus.NewDesc(ns+"_snapshot_age_seconds",
			"Time since the latest snapshot was captured",
			[]string{"category"}, nil),
		outcomes: prometheus.NewDesc(ns+"_provider_results_total",
			"Provider invocations by outcome",
			[]string{"category", "provider", "status"}, nil),
		timeouts: prometheus.NewDesc(ns+"_provider_timeouts_total",
			"Provider invocations abandoned after their timeout",
			[]string{"category", "provider"}, nil),
		latencies: prometheus.NewDesc(ns+"_provider_last_latency_seconds",
			"Duration of the most recent provider invocation",
			[]string{"category", "provider"}, nil),
	}
}

// Describe implements prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.value
	ch <- c.sequence
	ch <- c.age
	ch <- c.outcomes
	ch <- c.timeouts
	ch <- c.latencies
}

// Collect implements prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	now := c.now()
	for _, cat := range telemetry.AllCategories() {
		snap := c.sink.Get(cat)
		if !snap.Available() {
			continue
		}
		name := cat.String()
		ch <- prometheus.MustNewConstMetric(c.sequence, prometheus.GaugeValue, float64(snap.Sequence()), name)
		ch <- prometheus.MustNewConstMetric(c.age, prometheus.GaugeValue, now.Sub(snap.CapturedAt()).Seconds(), name)
		for _, s := range Samples(snap) {
			m, err := prometheus.NewConstMetric(c.value, prometheus.GaugeValue, s.Value, name, s.Key, otelUnit(s.Unit))
			if err != nil {
				logger.Debug("Skipping %s sample %q: %v", name, s.Key, err)
				continue
			}
			ch <- m
		}
	}

	for _, st := range c.diag.Snapshot() {
		cat, prov := st.Category.String(), st.Provider
		for status, n := range map[string]uint64{
			"success":     st.Successes,
			"empty":       st.Empty,
			"unavailable": st.Unavailable,
			"failed":      st.Failures,
		} {
			ch <- prometheus.MustNewConstMetric(c.outcomes, prometheus.CounterValue, float64(n), cat, prov, status)
		}
		ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(st.Timeouts), cat, prov)
		ch <- prometheus.MustNewConstMetric(c.latencies, prometheus.GaugeValue, st.LastLatency.Seconds(), cat, prov)
	}
}

// NewRegistry returns a registry with the collector and the Go runtime collectors
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		c,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format
func Handler(reg prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Serve listens on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Metrics endpoint listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
