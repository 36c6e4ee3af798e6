package config

import (
	"strings"
	"testing"
	"time"

	"pulsepc/internal/telemetry"

	"github.com/spf13/afero"
)

func writeYAML(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.RefreshInterval != 2*time.Second {
		t.Errorf("Expected 2s refresh interval, got %v", cfg.RefreshInterval)
	}
	if cfg.ProviderTimeout != 5*time.Second {
		t.Errorf("Expected 5s provider timeout, got %v", cfg.ProviderTimeout)
	}
	if cfg.CPUSampleWindow != 100*time.Millisecond {
		t.Errorf("Expected 100ms sample window, got %v", cfg.CPUSampleWindow)
	}
	if b := cfg.ThermalBounds(); b.Min != 0 || b.Max != 150 {
		t.Errorf("Unexpected thermal bounds: %+v", b)
	}
	if cfg.Windows11MinBuild != 22000 {
		t.Errorf("Expected build threshold 22000, got %d", cfg.Windows11MinBuild)
	}

	sc := cfg.SchedulerConfig()
	if len(sc.Dynamic) != len(telemetry.DefaultDynamicCategories()) {
		t.Errorf("Expected default dynamic set, got %v", sc.Dynamic)
	}
}

func TestLoadFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeYAML(t, fs, "/etc/pulsepc/config.yaml", `
refresh_interval: 500ms
provider_timeout: 1s
thermal_max_celsius: 120
dynamic_categories: [cpu, thermal]
log_level: debug
`)

	cfg, err := LoadFile(fs, "/etc/pulsepc/config.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.RefreshInterval != 500*time.Millisecond {
		t.Errorf("Expected 500ms, got %v", cfg.RefreshInterval)
	}
	if cfg.ThermalMaxCelsius != 120 {
		t.Errorf("Expected thermal max 120, got %.1f", cfg.ThermalMaxCelsius)
	}
	if cfg.IdlePollInterval != 250*time.Millisecond {
		t.Errorf("Unset keys should keep defaults, got idle poll %v", cfg.IdlePollInterval)
	}
	dyn, err := cfg.Dynamic()
	if err != nil {
		t.Fatalf("Dynamic failed: %v", err)
	}
	if len(dyn) != 2 || dyn[0] != telemetry.Cpu || dyn[1] != telemetry.Thermal {
		t.Errorf("Expected [cpu thermal], got %v", dyn)
	}
	if cfg.Source != "/etc/pulsepc/config.yaml" {
		t.Errorf("Expected source path recorded, got %q", cfg.Source)
	}
}

func TestLoadFile_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"short sample window": "cpu_sample_window: 50ms\n",
		"inverted bounds":     "thermal_min_celsius: 90\nthermal_max_celsius: 80\n",
		"zero interval":       "refresh_interval: 0s\n",
		"unknown category":    "dynamic_categories: [cpu, toaster]\n",
		"bad level":           "log_level: verbose\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeYAML(t, fs, "/config.yaml", body)
			_, err := LoadFile(fs, "/config.yaml")
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), "invalid configuration") {
				t.Errorf("Expected invalid configuration error, got %v", err)
			}
		})
	}
}

func TestWriteFileThenLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	cfg := Defaults()
	cfg.RefreshInterval = 3 * time.Second
	cfg.DynamicCategories = []string{"memory"}

	if err := WriteFile(fs, cfg, "/home/u/.pulsepc/config.yaml"); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := LoadFile(fs, "/home/u/.pulsepc/config.yaml")
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.RefreshInterval != 3*time.Second {
		t.Errorf("Expected 3s after round trip, got %v", got.RefreshInterval)
	}
	if len(got.DynamicCategories) != 1 || got.DynamicCategories[0] != "memory" {
		t.Errorf("Expected [memory], got %v", got.DynamicCategories)
	}
}
