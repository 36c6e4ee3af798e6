// Package providers holds the concrete data sources behind each telemetry
// category and wires them into a registry.
package providers

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	constants "pulsepc/config"
	"pulsepc/internal/config"
	"pulsepc/internal/telemetry"

	"github.com/spf13/afero"
)

// Options configures the provider set
type Options struct {
	// Fs is the filesystem sysfs and procfs are read from
	Fs        afero.Fs
	SysfsRoot string

	CPUSampleWindow   time.Duration
	ProviderTimeout   time.Duration
	PowerShellTimeout time.Duration
	Windows11MinBuild int
	Thermal           telemetry.ThermalBounds
	MaxOtherDevices   int

	Runner Runner
	// WMI is nil on platforms without a management subsystem
	WMI Querier
}

// DefaultOptions returns options backed by the real OS
func DefaultOptions() Options {
	return OptionsFromConfig(config.Defaults())
}

// OptionsFromConfig maps runtime configuration onto provider options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Fs:                afero.NewOsFs(),
		SysfsRoot:         cfg.SysfsRoot,
		CPUSampleWindow:   cfg.CPUSampleWindow,
		ProviderTimeout:   cfg.ProviderTimeout,
		PowerShellTimeout: cfg.PowerShellTimeout,
		Windows11MinBuild: cfg.Windows11MinBuild,
		Thermal:           cfg.ThermalBounds(),
		MaxOtherDevices:   constants.MAX_PERIPHERALS_PER_CLASS,
		Runner:            ExecRunner{},
		WMI:               NewQuerier(),
	}
}

func (o Options) path(parts ...string) string {
	root := o.SysfsRoot
	if root == "" {
		root = "/"
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

// Runner runs external tools such as nvidia-smi and PowerShell
type Runner interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct{}

func (ExecRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (ExecRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// NewRegistry registers every provider under its category
func NewRegistry(opts Options) (*telemetry.Registry, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Runner == nil {
		opts.Runner = ExecRunner{}
	}
	if opts.MaxOtherDevices <= 0 {
		opts.MaxOtherDevices = constants.MAX_PERIPHERALS_PER_CLASS
	}

	w := &wmiProviders{q: opts.WMI, maxOther: opts.MaxOtherDevices}
	ps := &psutilProviders{opts: opts}
	sys := &sysfsProviders{fs: opts.Fs, opts: opts}
	nv := &nvidiaProviders{run: opts.Runner}
	ladder := newThermalLadder(opts, w, sys)

	b := telemetry.NewRegistryBuilder(opts.ProviderTimeout)
	union, winner := telemetry.UnionMerge, telemetry.WinnerTakesAll

	b.Add(telemetry.SystemSummary, 0, union, fn("wmi.os-caption", w.osCaption))
	b.Add(telemetry.SystemSummary, 1, union, fn("gopsutil.summary", ps.summary))

	b.Add(telemetry.OperatingSystem, 0, union, fn("wmi.os", w.operatingSystem))
	b.Add(telemetry.OperatingSystem, 1, union, fn("gopsutil.host", ps.host))

	b.Add(telemetry.Cpu, 0, union, fn("gopsutil.cpu", ps.cpu))
	b.Add(telemetry.Cpu, 1, union, fn("wmi.processor", w.processor))

	b.Add(telemetry.Memory, 0, union, fn("gopsutil.memory", ps.memory))
	b.Add(telemetry.Memory, 1, union, fn("wmi.memory-modules", w.memoryModules))

	b.Add(telemetry.Motherboard, 0, winner, fn("wmi.baseboard", w.baseboard))
	b.Add(telemetry.Motherboard, 1, winner, fn("sysfs.dmi", sys.dmi))

	b.Add(telemetry.Graphics, 0, union, fn("wmi.video", w.video))
	b.Add(telemetry.Graphics, 1, union, fn("nvidia-smi", nv.graphics))

	b.Add(telemetry.Storage, 0, winner, fn("wmi.disks", w.disks))
	b.Add(telemetry.Storage, 1, winner, fn("gopsutil.partitions", ps.partitions))

	b.Add(telemetry.Optical, 0, winner, fn("wmi.cdrom", w.cdrom))
	b.Add(telemetry.Optical, 1, winner, fn("sysfs.optical", sys.optical))

	b.Add(telemetry.Audio, 0, winner, fn("wmi.sound", w.sound))
	b.Add(telemetry.Audio, 1, winner, fn("procfs.asound", sys.asound))

	b.Add(telemetry.Peripherals, 0, winner, fn("wmi.pnp", w.peripherals))
	b.Add(telemetry.Peripherals, 1, winner, fn("sysfs.usb", sys.usb))

	b.Add(telemetry.Network, 0, union, fn("wmi.adapters", w.adapters))
	b.Add(telemetry.Network, 1, union, fn("gopsutil.interfaces", ps.interfaces))

	b.Register(telemetry.Descriptor{
		Category: telemetry.Thermal,
		Priority: 0,
		Mode:     union,
		Timeout:  ladder.Budget(),
		Provider: ladder,
	})
	b.Add(telemetry.Thermal, 1, union, fn("nvidia-smi.temperature", nv.temperature))

	return b.Build()
}

func fn(name string, f func(context.Context) telemetry.Result) telemetry.Provider {
	return telemetry.ProviderFunc{ID: name, Fn: f}
}

// uniqueKey returns key, or key with a " (n)" suffix if m already holds it
func uniqueKey(m *telemetry.Metrics, key string) string {
	if !m.Has(key) {
		return key
	}
	for n := 2; ; n++ {
		k := fmt.Sprintf("%s (%d)", key, n)
		if !m.Has(k) {
			return k
		}
	}
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return telemetry.Unknown
	}
	return s
}

// headRunes returns at most the first n runes of s
func headRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
