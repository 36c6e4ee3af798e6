package commands

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"pulsepc/internal/config"
	"pulsepc/internal/providers"
	"pulsepc/internal/telemetry"
)

type noTools struct{}

func (noTools) LookPath(file string) (string, error) { return "", errors.New("not found") }

func (noTools) Output(context.Context, string, ...string) ([]byte, error) {
	return nil, errors.New("not found")
}

func testEngine(t *testing.T) *engine {
	t.Helper()
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/sys/class/dmi/id/board_vendor", []byte("ASUSTeK COMPUTER INC.\n"), 0o644)
	_ = afero.WriteFile(fs, "/sys/class/dmi/id/board_name", []byte("PRIME B450M-A\n"), 0o644)

	cfg := config.Defaults()
	opts := providers.OptionsFromConfig(cfg)
	opts.Fs = fs
	opts.SysfsRoot = "/"
	opts.Runner = noTools{}
	opts.WMI = nil

	eng, err := newEngine(cfg, opts)
	if err != nil {
		t.Fatalf("newEngine failed: %v", err)
	}
	return eng
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body = "log_file: " + filepath.Join(dir, "pulsepc.log") + "\n" + body
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestEngine_CollectKeepsOrderAndAlwaysYieldsSnapshots(t *testing.T) {
	eng := testEngine(t)
	cats := []telemetry.Category{telemetry.Optical, telemetry.Motherboard}

	snaps := eng.collect(context.Background(), cats)
	if len(snaps) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snaps))
	}
	for i, s := range snaps {
		if s.Category() != cats[i] {
			t.Errorf("Snapshot %d is %s, want %s", i, s.Category(), cats[i])
		}
		if s.Sequence() == 0 {
			t.Errorf("%s should have been published", s.Category())
		}
	}
	if v, ok := snaps[1].Get("Model"); !ok || v.String() != "PRIME B450M-A" {
		t.Errorf("Expected motherboard from sysfs, got %v", snaps[1].Keys())
	}
}

func TestDescribeRegistry(t *testing.T) {
	out := describeRegistry(testEngine(t))
	for _, want := range []string{"Temperatures (thermal)", "thermal.ladder", "dynamic, every 2s", "static, on demand", "union"} {
		if !strings.Contains(out, want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestFormatSetting(t *testing.T) {
	if got := formatSetting([]string{"cpu", "memory"}); got != "cpu, memory" {
		t.Errorf("Unexpected list %q", got)
	}
	got := formatSetting(map[string]string{"Authorization": "Bearer secret", "X-Host": "a"})
	if strings.Contains(got, "secret") || got != "Authorization=***, X-Host=***" {
		t.Errorf("Header values should be masked, got %q", got)
	}
}

func TestConfigCommand(t *testing.T) {
	path := writeConfig(t, "refresh_interval: 5s\n")
	out, err := run(t, "config", "--config", path)
	if err != nil {
		t.Fatalf("config failed: %v", err)
	}
	if !strings.Contains(out, path) || !strings.Contains(out, "5s") {
		t.Errorf("Expected source and override in output:\n%s", out)
	}
}

func TestConfigCommand_InvalidFile(t *testing.T) {
	path := writeConfig(t, "cpu_sample_window: 10ms\n")
	if _, err := run(t, "config", "--config", path); err == nil {
		t.Error("Expected a validation error")
	}
}

func TestShowCommand_RejectsBadInput(t *testing.T) {
	if _, err := run(t, "show", "-o", "xml"); err == nil {
		t.Error("Expected an error for an unknown format")
	}
	if _, err := run(t, "show", "gpu"); err == nil {
		t.Error("Expected an error for an unknown category")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "pulsepc v") {
		t.Errorf("Unexpected version output %q", out)
	}
}

func TestCycleProgress_IdleSchedulerIsHealthy(t *testing.T) {
	eng := testEngine(t)
	healthy := cycleProgress(eng.scheduler)
	for i := 0; i < 3; i++ {
		if !healthy() {
			t.Fatalf("Idle scheduler reported unhealthy on check %d", i)
		}
	}
}
