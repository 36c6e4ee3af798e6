package encoding

import (
	"bytes"
	"strings"
	"testing"

	"pulsepc/internal/telemetry"
)

func cpuSnapshot() *telemetry.Snapshot {
	m := telemetry.NewMetrics().
		SetText("Name", "Intel Core i7-12700K").
		Set("Physical Cores", telemetry.Integer(12)).
		Set(telemetry.KeyCPUUsage, telemetry.Number(23.4, "%")).
		Set("Per-Core Usage", telemetry.Nested(telemetry.NewMetrics().
			Set("Core 0", telemetry.Number(30, "%"))))
	return telemetry.NewAssembler().Assemble(telemetry.Cpu, m)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"JSON": FormatJSON, "yml": FormatYAML, "": FormatText, " cbor ": FormatCBOR} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("Expected an error for xml")
	}
}

func TestFromSnapshot(t *testing.T) {
	doc := FromSnapshot(cpuSnapshot())
	if doc.Category != "cpu" || doc.Sequence != 1 || !doc.Available {
		t.Fatalf("Unexpected header %+v", doc)
	}
	if len(doc.Metrics) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(doc.Metrics))
	}
	usage := doc.Metrics[2]
	if usage.Kind != KindNumber || usage.Value == nil || *usage.Value != 23.4 || usage.Display != "23.4%" {
		t.Errorf("Unexpected usage entry %+v", usage)
	}
	if cores := doc.Metrics[3]; cores.Kind != KindGroup || len(cores.Children) != 1 {
		t.Errorf("Unexpected nested entry %+v", cores)
	}

	empty := FromSnapshot(telemetry.NewSink().Get(telemetry.Audio))
	if empty.Available || !empty.CapturedAt.IsZero() {
		t.Errorf("Placeholder should be unavailable without a capture time, got %+v", empty)
	}
}

func TestEncodeJSONPreservesOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatJSON, []*telemetry.Snapshot{cpuSnapshot()}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	out := buf.String()
	if strings.Index(out, `"Name"`) > strings.Index(out, `"Per-Core Usage"`) {
		t.Errorf("Keys should keep insertion order:\n%s", out)
	}

	docs, err := DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("DecodeJSON failed: %v", err)
	}
	if !docs[0].ToMetrics().Equal(cpuSnapshot().Metrics()) {
		t.Error("Decoded metrics differ from the snapshot")
	}
}

func TestEncodeYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, FormatYAML, []*telemetry.Snapshot{cpuSnapshot()}); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.Contains(buf.String(), "category: cpu") {
		t.Errorf("Unexpected yaml:\n%s", buf.String())
	}
	docs, err := DecodeYAML(&buf)
	if err != nil {
		t.Fatalf("DecodeYAML failed: %v", err)
	}
	if got := docs[0].ToMetrics(); !got.Equal(cpuSnapshot().Metrics()) {
		t.Errorf("Decoded metrics differ: %v", got.Keys())
	}
}

func TestEncodeCBORStream(t *testing.T) {
	snaps := []*telemetry.Snapshot{cpuSnapshot(), telemetry.NewSink().Get(telemetry.Network)}
	var buf bytes.Buffer
	if err := Encode(&buf, FormatCBOR, snaps); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	docs, err := ReadCBOR(&buf)
	if err != nil {
		t.Fatalf("ReadCBOR failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[1].Category != "network" || docs[1].Available {
		t.Errorf("Unexpected second document %+v", docs[1])
	}
	if !docs[0].ToMetrics().Equal(cpuSnapshot().Metrics()) {
		t.Error("Decoded metrics differ from the snapshot")
	}

	if err := Encode(&buf, FormatText, snaps); err == nil {
		t.Error("Text is not a document encoding")
	}
}
