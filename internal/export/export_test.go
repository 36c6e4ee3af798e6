package export

import (
	"context"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"pulsepc/internal/telemetry"
)

func publishedSink(t *testing.T) *telemetry.Sink {
	t.Helper()
	sink := telemetry.NewSink()
	asm := telemetry.NewAssembler()

	cpu := telemetry.NewMetrics().
		SetText("Name", "AMD Ryzen 7 5800X").
		Set(telemetry.KeyCPUUsage, telemetry.Number(37.5, "%")).
		Set("Per-Core Usage", telemetry.Nested(telemetry.NewMetrics().
			Set("Core 0", telemetry.Number(40, "%")).
			Set("Core 1", telemetry.Number(35, "%"))))
	mem := telemetry.NewMetrics().
		Set(telemetry.KeyTotalRAM, telemetry.Text("16.0 GB")).
		Set(telemetry.KeyUsagePercent, telemetry.Number(50, "%"))

	for c, m := range map[telemetry.Category]*telemetry.Metrics{telemetry.Cpu: cpu, telemetry.Memory: mem} {
		if err := sink.Publish(asm.Assemble(c, m)); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
	}
	return sink
}

func TestSamples(t *testing.T) {
	sink := publishedSink(t)

	got := map[string]Sample{}
	for _, s := range Samples(sink.Get(telemetry.Cpu)) {
		got[s.Key] = s
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 numeric samples, got %v", got)
	}
	if s := got["Per-Core Usage / Core 1"]; s.Value != 35 || s.Unit != "%" {
		t.Errorf("Unexpected nested sample %+v", s)
	}

	for _, s := range Samples(sink.Get(telemetry.Memory)) {
		if s.Key == telemetry.KeyTotalRAM && s.Value != 16*gib {
			t.Errorf("Expected 16 GiB in bytes, got %v", s.Value)
		}
	}

	if s := Samples(sink.Get(telemetry.Thermal)); len(s) != 0 {
		t.Errorf("Unpublished category should yield nothing, got %v", s)
	}
}

func TestCollector(t *testing.T) {
	sink := publishedSink(t)
	diag := telemetry.NewDiagnostics()
	diag.Record(telemetry.Cpu, "psutil.cpu", telemetry.Failed(telemetry.ErrTimeout), 5*time.Second)

	c := NewCollector(sink, diag)
	c.now = func() time.Time { return time.Now().Add(time.Minute) }

	if n := testutil.CollectAndCount(c, "pulsepc_snapshot_sequence"); n != 2 {
		t.Errorf("Expected a sequence per published category, got %d", n)
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(c)
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	found := map[string]*dto.MetricFamily{}
	for _, f := range families {
		found[f.GetName()] = f
	}

	values := found["pulsepc_value"]
	if values == nil {
		t.Fatal("Missing pulsepc_value")
	}
	var usage float64
	for _, m := range values.GetMetric() {
		if label(m, "category") == "cpu" && label(m, "key") == telemetry.KeyCPUUsage {
			usage = m.GetGauge().GetValue()
		}
	}
	if usage != 37.5 {
		t.Errorf("Expected cpu usage 37.5, got %v", usage)
	}

	timeouts := found["pulsepc_provider_timeouts_total"]
	if timeouts == nil || timeouts.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Errorf("Expected one recorded timeout, got %v", timeouts)
	}
	for _, m := range found["pulsepc_snapshot_age_seconds"].GetMetric() {
		if m.GetGauge().GetValue() < 59 {
			t.Errorf("Expected snapshot age near a minute, got %v", m.GetGauge().GetValue())
		}
	}
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestOTelExporter(t *testing.T) {
	sink := publishedSink(t)
	reader := sdkmetric.NewManualReader()

	e, err := NewOTelExporter(reader, sink)
	if err != nil {
		t.Fatalf("NewOTelExporter failed: %v", err)
	}
	defer e.Stop()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(rm.ScopeMetrics) != 1 {
		t.Fatalf("Expected one scope, got %d", len(rm.ScopeMetrics))
	}

	var points int
	var sawCore bool
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "pulsepc.value" {
			continue
		}
		gauge, ok := m.Data.(metricdata.Gauge[float64])
		if !ok {
			t.Fatalf("Unexpected data type %T", m.Data)
		}
		for _, dp := range gauge.DataPoints {
			points++
			key, _ := dp.Attributes.Value("key")
			if key.AsString() == "Per-Core Usage / Core 0" && dp.Value == 40 {
				sawCore = true
			}
		}
	}
	// 3 cpu readings plus 2 memory readings
	if points != 5 {
		t.Errorf("Expected 5 data points, got %d", points)
	}
	if !sawCore {
		t.Error("Missing per-core reading")
	}

	if err := e.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}
	if err := e.Stop(); err != nil {
		t.Errorf("Second Stop should be a no-op, got %v", err)
	}
}

func TestCollector_InvalidUTF8Key(t *testing.T) {
	sink := telemetry.NewSink()
	readings := telemetry.NewMetrics().
		Set("Comp\xffosite (hwmon1)", telemetry.Celsius(41)).
		Set("GPU 1 (NVIDIA GeForce RTX 3...)", telemetry.Celsius(54))
	if err := sink.Publish(telemetry.NewAssembler().Assemble(telemetry.Thermal, readings)); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	for _, s := range Samples(sink.Get(telemetry.Thermal)) {
		if !utf8.ValidString(s.Key) {
			t.Errorf("Sample key %q is not valid UTF-8", s.Key)
		}
	}

	reg := prometheus.NewPedanticRegistry()
	reg.MustRegister(NewCollector(sink, nil))
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	var values int
	for _, f := range families {
		if f.GetName() == "pulsepc_value" {
			values = len(f.GetMetric())
		}
	}
	if values != 2 {
		t.Errorf("Expected both readings exported, got %d", values)
	}
}
