package providers

import (
	"context"
	"errors"
	"testing"

	"pulsepc/internal/telemetry"
)

const smiOutput = `0, NVIDIA GeForce RTX 3070, 12, 1024, 8192, 54, 551.23
1, NVIDIA GeForce GT 710, [N/A], 100, 2048, [N/A], 551.23
`

func TestParseNvidiaSMI(t *testing.T) {
	gpus := parseNvidiaSMI([]byte(smiOutput))
	if len(gpus) != 2 {
		t.Fatalf("Expected 2 GPUs, got %d", len(gpus))
	}
	if gpus[0].Name != "NVIDIA GeForce RTX 3070" || gpus[0].MemTotalMB != 8192 || gpus[0].Temperature != 54 {
		t.Errorf("Unexpected first GPU %+v", gpus[0])
	}
	if gpus[1].Load != 0 || gpus[1].Temperature != 0 {
		t.Errorf("[N/A] fields should be zero, got %+v", gpus[1])
	}
}

func TestNvidiaGraphics(t *testing.T) {
	n := &nvidiaProviders{run: &fakeRunner{tools: map[string]string{nvidiaSMI: smiOutput}}}
	res := n.graphics(context.Background())
	if !res.Usable() {
		t.Fatalf("Expected usable result, got %s", res.Status)
	}
	if got := get(t, res.Metrics, "NVIDIA GeForce RTX 3070", "Memory Usage"); got != "1024 MB / 8192 MB" {
		t.Errorf("Unexpected memory usage %q", got)
	}
	if got := get(t, res.Metrics, "NVIDIA GeForce RTX 3070", "GPU Load"); got != "12.0%" {
		t.Errorf("Unexpected load %q", got)
	}
	legacy, _ := res.Metrics.Get("NVIDIA GeForce GT 710")
	if legacy.Group().Has("Temperature") {
		t.Error("Unreported temperature should be omitted")
	}
}

func TestNvidiaTemperature(t *testing.T) {
	n := &nvidiaProviders{run: &fakeRunner{tools: map[string]string{nvidiaSMI: smiOutput}}}
	res := n.temperature(context.Background())
	if res.Metrics.Len() != 1 {
		t.Fatalf("Expected one reading, got %v", res.Metrics.Keys())
	}
	if got := get(t, res.Metrics, "GPU 1 (NVIDIA GeForce RTX 3...)"); got != "54.0°C" {
		t.Errorf("Unexpected reading %q", got)
	}
}

func TestNvidiaMissingOrBroken(t *testing.T) {
	n := &nvidiaProviders{run: &fakeRunner{}}
	if res := n.graphics(context.Background()); res.Status != telemetry.StatusUnavailable {
		t.Errorf("Expected unavailable without nvidia-smi, got %s", res.Status)
	}

	boom := errors.New("NVIDIA-SMI has failed")
	n = &nvidiaProviders{run: &fakeRunner{tools: map[string]string{nvidiaSMI: ""}, errs: map[string]error{nvidiaSMI: boom}}}
	if res := n.temperature(context.Background()); res.Status != telemetry.StatusFailed || !errors.Is(res.Err, boom) {
		t.Errorf("Expected failure wrapping the tool error, got %s %v", res.Status, res.Err)
	}
}

func TestNvidiaTemperature_ShortNameKeepsEllipsis(t *testing.T) {
	out := "0, Quadro P400, 3, 200, 2048, 47, 551.23\n"
	n := &nvidiaProviders{run: &fakeRunner{tools: map[string]string{nvidiaSMI: out}}}
	res := n.temperature(context.Background())
	if got := get(t, res.Metrics, "GPU 1 (Quadro P400...)"); got != "47.0°C" {
		t.Errorf("Unexpected reading %q", got)
	}
}
