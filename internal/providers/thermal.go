package providers

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pulsepc/internal/logger"
	"pulsepc/internal/telemetry"
)

type thermalRung struct {
	name    string
	timeout time.Duration
	collect func(ctx context.Context) telemetry.Result
}

// ThermalLadder tries temperature sources in order and stops at the first
// one that yields a plausible reading. Readings outside the configured
// bounds are dropped before a rung counts as successful.
type ThermalLadder struct {
	rungs  []thermalRung
	bounds telemetry.ThermalBounds
}

func newThermalLadder(opts Options, w *wmiProviders, sys *sysfsProviders) *ThermalLadder {
	ps := &powerShellThermal{run: opts.Runner}
	timeout := orDefault(opts.ProviderTimeout)
	return &ThermalLadder{
		bounds: opts.Thermal,
		rungs: []thermalRung{
			{name: "wmi.thermal-zones", timeout: timeout, collect: w.thermalReadings},
			{name: "sysfs.hwmon", timeout: timeout, collect: sys.hwmonReadings},
			{name: "powershell.thermal", timeout: orDefault(opts.PowerShellTimeout), collect: ps.collect},
			{name: "registry.thermal", timeout: timeout, collect: registryThermal},
		},
	}
}

func orDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return telemetry.DefaultProviderTimeout
	}
	return d
}

func (l *ThermalLadder) Name() string { return "thermal.ladder" }

// Budget is the worst-case time for a full descent
func (l *ThermalLadder) Budget() time.Duration {
	var total time.Duration
	for _, r := range l.rungs {
		total += r.timeout
	}
	return total
}

func (l *ThermalLadder) Collect(ctx context.Context) telemetry.Result {
	var errs []error
	for _, r := range l.rungs {
		if ctx.Err() != nil {
			break
		}
		res := telemetry.Invoke(ctx, telemetry.ProviderFunc{ID: r.name, Fn: r.collect}, r.timeout)
		switch res.Status {
		case telemetry.StatusFailed:
			logger.Debug("thermal rung %s failed: %v", r.name, res.Err)
			errs = append(errs, res.Err)
			continue
		case telemetry.StatusUnavailable:
			continue
		}
		if kept := l.plausible(res.Metrics); !kept.Empty() {
			return telemetry.Success(kept)
		}
		logger.Debug("thermal rung %s had no plausible reading", r.name)
	}
	if len(errs) > 0 {
		return telemetry.Failed(errors.Join(errs...))
	}
	return telemetry.Unavailable()
}

func (l *ThermalLadder) plausible(m *telemetry.Metrics) *telemetry.Metrics {
	kept := telemetry.NewMetrics()
	m.Each(func(key string, v telemetry.Value) bool {
		if c, ok := v.Float(); ok && l.bounds.Plausible(c) {
			kept.Set(key, v)
		}
		return true
	})
	return kept
}

const psThermalCommand = "Get-WmiObject -Namespace 'root/wmi' -Class MSAcpi_ThermalZoneTemperature | Select-Object CurrentTemperature, InstanceName"

// powerShellThermal asks PowerShell for ACPI thermal zones when WMI access
// from this process is not possible. Slow, so it is a late rung.
type powerShellThermal struct {
	run Runner
}

func (p *powerShellThermal) collect(ctx context.Context) telemetry.Result {
	if _, err := p.run.LookPath("powershell"); err != nil {
		return telemetry.Unavailable()
	}
	out, err := p.run.Output(ctx, "powershell", "-NoProfile", "-Command", psThermalCommand)
	if err != nil {
		return telemetry.Failed(err)
	}
	m := telemetry.NewMetrics()
	for _, c := range parsePowerShellThermal(out) {
		m.Set(uniqueKey(m, "CPU Temperature"), telemetry.Celsius(c))
	}
	return telemetry.Success(m)
}

// parsePowerShellThermal reads the table Select-Object prints: a header,
// a dashed rule, then one row per zone with the raw tenths-kelvin value
// first
func parsePowerShellThermal(out []byte) []float64 {
	var readings []float64
	sc := bufio.NewScanner(bytes.NewReader(bytes.TrimSpace(out)))
	line := 0
	for sc.Scan() {
		line++
		if line <= 2 {
			continue
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		raw, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			continue
		}
		readings = append(readings, telemetry.KelvinTenthsToCelsius(raw))
	}
	return readings
}
