package providers

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"

	"pulsepc/internal/telemetry"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	psnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

// psutilProviders read cross-platform resource statistics through gopsutil.
// They work everywhere, so they back most categories.
type psutilProviders struct {
	opts Options
}

func rootVolume() string {
	if runtime.GOOS == "windows" {
		return `C:\`
	}
	return "/"
}

// osName renders the OS the way users know it. Windows 11 still reports
// NT 10.0, so the build number decides.
func osName(info *host.InfoStat, minBuild int) string {
	if info.OS != "windows" {
		name := info.OS
		if name != "" {
			name = strings.ToUpper(name[:1]) + name[1:]
		}
		return strings.TrimSpace(name + " " + info.KernelVersion)
	}
	return windowsRelease(info.KernelVersion, minBuild)
}

// windowsRelease maps a kernel version such as "10.0.22631 Build 22631"
// to a marketing name
func windowsRelease(version string, minBuild int) string {
	fields := strings.Fields(version)
	if len(fields) == 0 {
		return "Microsoft Windows"
	}
	parts := strings.Split(fields[0], ".")
	if len(parts) < 3 || parts[0] != "10" || parts[1] != "0" {
		return "Microsoft Windows " + fields[0]
	}
	build, err := strconv.Atoi(parts[2])
	if err != nil {
		return "Microsoft Windows 10"
	}
	if build >= minBuild {
		return "Microsoft Windows 11"
	}
	return "Microsoft Windows 10"
}

func processorName(ctx context.Context) string {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil || len(infos) == 0 {
		return telemetry.Unknown
	}
	return orUnknown(infos[0].ModelName)
}

func (p *psutilProviders) summary(ctx context.Context) telemetry.Result {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("host info: %w", err))
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("virtual memory: %w", err))
	}

	m := telemetry.NewMetrics().
		SetTextOr("Computer Name", info.Hostname).
		SetTextOr("Operating System", osName(info, p.opts.Windows11MinBuild)).
		SetText("Processor", processorName(ctx)).
		Set(telemetry.KeyTotalRAM, telemetry.Bytes(vm.Total)).
		Set("Available RAM", telemetry.Bytes(vm.Available))

	if pct, err := cpu.PercentWithContext(ctx, p.opts.CPUSampleWindow, false); err == nil && len(pct) > 0 {
		m.Set(telemetry.KeyCPUUsage, telemetry.Number(pct[0], "%"))
	}
	m.Set(telemetry.KeyRAMUsage, telemetry.Number(vm.UsedPercent, "%"))
	if du, err := disk.UsageWithContext(ctx, rootVolume()); err == nil {
		m.Set("Disk Usage", telemetry.Number(du.UsedPercent, "%"))
	} else {
		m.SetText("Disk Usage", "N/A")
	}
	if pids, err := process.PidsWithContext(ctx); err == nil {
		m.Set("Active Processes", telemetry.Integer(int64(len(pids))))
	}
	m.Set(telemetry.KeyBootTime, telemetry.Integer(int64(info.BootTime)))
	return telemetry.Success(m)
}

func (p *psutilProviders) host(ctx context.Context) telemetry.Result {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("host info: %w", err))
	}
	m := telemetry.NewMetrics().
		SetTextOr("Operating System", osName(info, p.opts.Windows11MinBuild)).
		SetTextOr("Version", info.PlatformVersion).
		SetTextOr("Architecture", info.KernelArch).
		SetTextOr("Computer Name", info.Hostname).
		SetText("Processor", processorName(ctx)).
		SetTextOr("Kernel", info.KernelVersion).
		SetTextOr("Platform", strings.TrimSpace(info.Platform+" "+info.PlatformFamily))
	if info.VirtualizationSystem != "" {
		m.SetText("Virtualization", info.VirtualizationSystem+" "+info.VirtualizationRole)
	}
	return telemetry.Success(m)
}

func (p *psutilProviders) cpu(ctx context.Context) telemetry.Result {
	m := telemetry.NewMetrics().SetText("Processor", processorName(ctx))

	if n, err := cpu.CountsWithContext(ctx, false); err == nil && n > 0 {
		m.Set("Physical Cores", telemetry.Integer(int64(n)))
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil && n > 0 {
		m.Set("Logical Cores", telemetry.Integer(int64(n)))
	}

	// one sampling window serves both the total and the per-core figures
	perCore, err := cpu.PercentWithContext(ctx, p.opts.CPUSampleWindow, true)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("cpu percent: %w", err))
	}
	if len(perCore) > 0 {
		var sum float64
		cores := telemetry.NewMetrics()
		for i, v := range perCore {
			sum += v
			cores.Set(fmt.Sprintf("Core %d", i), telemetry.Number(v, "%"))
		}
		m.Set(telemetry.KeyCPUUsage, telemetry.Number(sum/float64(len(perCore)), "%"))
		m.Set("Per-Core Usage", telemetry.Nested(cores))
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		if infos[0].Mhz > 0 {
			m.Set("Current Clock Speed", telemetry.Number(infos[0].Mhz, "MHz"))
		}
		if infos[0].VendorID != "" {
			m.SetText("Manufacturer", infos[0].VendorID)
		}
		if infos[0].CacheSize > 0 {
			m.SetText("Cache Size", fmt.Sprintf("%d KB", infos[0].CacheSize))
		}
	}
	return telemetry.Success(m)
}

func (p *psutilProviders) memory(ctx context.Context) telemetry.Result {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("virtual memory: %w", err))
	}
	m := telemetry.NewMetrics().
		Set(telemetry.KeyTotalRAM, telemetry.Bytes(vm.Total)).
		Set(telemetry.KeyAvailable, telemetry.Bytes(vm.Available)).
		Set(telemetry.KeyUsed, telemetry.Bytes(vm.Used)).
		Set(telemetry.KeyFree, telemetry.Bytes(vm.Free))

	if sw, err := mem.SwapMemoryWithContext(ctx); err == nil && sw.Total > 0 {
		m.Set("Swap Total", telemetry.Bytes(sw.Total))
		m.Set("Swap Used", telemetry.Bytes(sw.Used))
	}
	return telemetry.Success(m)
}

// partitions reports one entry per mounted volume
func (p *psutilProviders) partitions(ctx context.Context) telemetry.Result {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("partitions: %w", err))
	}
	m := telemetry.NewMetrics()
	for _, part := range parts {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			// permission denied or vanished mount
			continue
		}
		m.Set(uniqueKey(m, part.Device), telemetry.Nested(volumeMetrics(part, usage)))
	}
	return telemetry.Success(m)
}

func volumeMetrics(part disk.PartitionStat, usage *disk.UsageStat) *telemetry.Metrics {
	return telemetry.NewMetrics().
		SetTextOr("Drive", part.Device).
		SetTextOr("Mount Point", part.Mountpoint).
		SetTextOr("File System", part.Fstype).
		Set(telemetry.KeyTotal, telemetry.Bytes(usage.Total)).
		Set(telemetry.KeyUsed, telemetry.Bytes(usage.Used)).
		Set(telemetry.KeyFree, telemetry.Bytes(usage.Free))
}

func (p *psutilProviders) interfaces(ctx context.Context) telemetry.Result {
	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return telemetry.Failed(fmt.Errorf("interfaces: %w", err))
	}
	m := telemetry.NewMetrics()
	for _, iface := range ifaces {
		entry := interfaceMetrics(iface)
		if speed, ok := readInt(p.opts.Fs, p.opts.path("sys", "class", "net", iface.Name, "speed")); ok && speed > 0 {
			entry.SetText("Speed", fmt.Sprintf("%d Mbps", speed))
		}
		m.Set(iface.Name, telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

func interfaceMetrics(iface psnet.InterfaceStat) *telemetry.Metrics {
	status := "Down"
	for _, f := range iface.Flags {
		if f == "up" {
			status = "Up"
			break
		}
	}
	entry := telemetry.NewMetrics().
		SetText("Name", iface.Name).
		SetText("Status", status)

	for _, a := range iface.Addrs {
		ip, ipnet, err := net.ParseCIDR(a.Addr)
		if err != nil {
			continue
		}
		if ip.To4() != nil {
			if !entry.Has("IPv4 Address") {
				entry.SetText("IPv4 Address", ip.String())
				entry.SetText("Netmask", net.IP(ipnet.Mask).String())
			}
		} else if !entry.Has("IPv6 Address") {
			entry.SetText("IPv6 Address", ip.String())
		}
	}
	if iface.HardwareAddr != "" {
		entry.SetText("MAC Address", strings.ToUpper(iface.HardwareAddr))
	}
	if iface.MTU > 0 {
		entry.Set("MTU", telemetry.Integer(int64(iface.MTU)))
	}
	return entry
}
