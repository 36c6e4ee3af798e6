package providers

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"pulsepc/internal/telemetry"
)

// Querier runs WQL queries against the Windows management subsystem.
// dst must be a pointer to a slice of structs whose fields match the
// selected properties.
type Querier interface {
	Query(ctx context.Context, namespace, query string, dst interface{}) error
}

const (
	nsCIMV2 = `root\CIMV2`
	nsWMI   = `root\WMI`
)

// WMI class shapes. Type names double as class names in generated queries.

type win32_OperatingSystem struct {
	Caption          string
	Version          string
	BuildNumber      string
	Manufacturer     string
	RegisteredUser   string
	SystemDirectory  string
	WindowsDirectory string
}

type win32_Processor struct {
	Name                      string
	Manufacturer              string
	Architecture              uint16
	NumberOfCores             uint32
	NumberOfLogicalProcessors uint32
	MaxClockSpeed             uint32
	CurrentClockSpeed         uint32
	L2CacheSize               uint32
	L3CacheSize               uint32
	ProcessorId               string
	SocketDesignation         string
	CurrentVoltage            uint16
}

type win32_PhysicalMemory struct {
	DeviceLocator string
	Capacity      uint64
	Speed         uint32
	Manufacturer  string
	PartNumber    string
	SerialNumber  string
}

type win32_BaseBoard struct {
	Manufacturer string
	Product      string
	SerialNumber string
	Version      string
}

type win32_BIOS struct {
	Manufacturer      string
	SMBIOSBIOSVersion string
	ReleaseDate       string
}

type win32_VideoController struct {
	Name                        string
	AdapterRAM                  uint32
	DriverVersion               string
	CurrentHorizontalResolution uint32
	CurrentVerticalResolution   uint32
	CurrentBitsPerPixel         uint32
	Status                      string
}

type win32_DiskDrive struct {
	DeviceID      string
	Index         uint32
	Model         string
	Size          uint64
	InterfaceType string
	SerialNumber  string
	Status        string
}

type win32_DiskPartition struct {
	DeviceID string
}

type win32_LogicalDisk struct {
	DeviceID   string
	FileSystem string
	Size       uint64
	FreeSpace  uint64
}

type win32_CDROMDrive struct {
	Name         string
	Drive        string
	Manufacturer string
	MediaType    string
	Status       string
	TransferRate float64
}

type win32_SoundDevice struct {
	Name         string
	Manufacturer string
	Status       string
	DeviceID     string
}

// pnpDevice covers Win32_USBHub, Win32_Keyboard and Win32_PnPEntity
type pnpDevice struct {
	Name     string
	DeviceID string
	Status   string
}

type win32_PointingDevice struct {
	Name            string
	DeviceID        string
	Status          string
	NumberOfButtons uint8
}

type win32_Printer struct {
	Name          string
	PrinterStatus uint16
	PortName      string
	DriverName    string
}

type win32_NetworkAdapter struct {
	NetConnectionID string
	Manufacturer    string
	ProductName     string
	MACAddress      string
	AdapterType     string
	Speed           uint64
}

type msAcpi_ThermalZoneTemperature struct {
	InstanceName       string
	CurrentTemperature uint32
}

type win32_TemperatureProbe struct {
	DeviceID       string
	CurrentReading int32
}

// selectQuery builds "SELECT <fields> FROM <class>" from the element type of dst
func selectQuery(dst interface{}, class string, where string) string {
	t := reflect.TypeOf(dst)
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		t = t.Elem()
	}
	if class == "" {
		class = t.Name()
	}
	fields := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		fields = append(fields, t.Field(i).Name)
	}
	q := fmt.Sprintf("SELECT %s FROM %s", strings.Join(fields, ", "), class)
	if where != "" {
		q += " WHERE " + where
	}
	return q
}

// wmiProviders map management-subsystem classes to metrics. With a nil
// querier every provider reports Unavailable.
type wmiProviders struct {
	q        Querier
	maxOther int
}

func (w *wmiProviders) query(ctx context.Context, dst interface{}, class, where string) error {
	return w.q.Query(ctx, nsCIMV2, selectQuery(dst, class, where), dst)
}

func wmiFailed(class string, err error) telemetry.Result {
	return telemetry.Failed(fmt.Errorf("wmi %s: %w", class, err))
}

func (w *wmiProviders) osCaption(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_OperatingSystem
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_OperatingSystem", err)
	}
	m := telemetry.NewMetrics()
	if len(dst) > 0 && dst[0].Caption != "" {
		m.SetText("Operating System", strings.TrimSpace(dst[0].Caption))
	}
	return telemetry.Success(m)
}

func (w *wmiProviders) operatingSystem(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_OperatingSystem
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_OperatingSystem", err)
	}
	if len(dst) == 0 {
		return telemetry.Success(telemetry.NewMetrics())
	}
	os := dst[0]
	return telemetry.Success(telemetry.NewMetrics().
		SetTextOr("Operating System", os.Caption).
		SetTextOr("Version", os.Version).
		SetTextOr("Build Number", os.BuildNumber).
		SetTextOr("Manufacturer", os.Manufacturer).
		SetTextOr("Registered User", os.RegisteredUser).
		SetTextOr("System Directory", os.SystemDirectory).
		SetTextOr("Windows Directory", os.WindowsDirectory))
}

var architectures = map[uint16]string{
	0:  "x86",
	1:  "MIPS",
	2:  "Alpha",
	3:  "PowerPC",
	5:  "ARM",
	6:  "ia64",
	9:  "x64",
	12: "ARM64",
}

func architectureName(a uint16) string {
	if name, ok := architectures[a]; ok {
		return name
	}
	return fmt.Sprintf("Unknown (%d)", a)
}

func unitOrUnknown(n uint32, unit string) string {
	if n == 0 {
		return telemetry.Unknown
	}
	return fmt.Sprintf("%d %s", n, unit)
}

func (w *wmiProviders) processor(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_Processor
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_Processor", err)
	}
	if len(dst) == 0 {
		return telemetry.Success(telemetry.NewMetrics())
	}
	p := dst[0]
	m := telemetry.NewMetrics().
		SetTextOr("Processor Name", p.Name).
		SetTextOr("Manufacturer", p.Manufacturer).
		SetText("Architecture", architectureName(p.Architecture))
	if p.NumberOfCores > 0 {
		m.Set("Physical Cores", telemetry.Integer(int64(p.NumberOfCores)))
	}
	if p.NumberOfLogicalProcessors > 0 {
		m.Set("Logical Cores", telemetry.Integer(int64(p.NumberOfLogicalProcessors)))
	}
	m.SetText("Max Clock Speed", unitOrUnknown(p.MaxClockSpeed, "MHz")).
		SetText("Current Clock Speed", unitOrUnknown(p.CurrentClockSpeed, "MHz")).
		SetText("L2 Cache Size", unitOrUnknown(p.L2CacheSize, "KB")).
		SetText("L3 Cache Size", unitOrUnknown(p.L3CacheSize, "KB")).
		SetTextOr("Processor ID", p.ProcessorId).
		SetTextOr("Socket", p.SocketDesignation)
	if p.CurrentVoltage > 0 {
		m.SetText("Voltage", fmt.Sprintf("%.1fV", float64(p.CurrentVoltage)/10))
	} else {
		m.SetText("Voltage", telemetry.Unknown)
	}
	return telemetry.Success(m)
}

func (w *wmiProviders) memoryModules(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_PhysicalMemory
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_PhysicalMemory", err)
	}
	m := telemetry.NewMetrics()
	for i, mod := range dst {
		loc := strings.TrimSpace(mod.DeviceLocator)
		if loc == "" {
			loc = fmt.Sprintf("Module %d", i+1)
		}
		entry := telemetry.NewMetrics()
		if mod.Capacity > 0 {
			entry.Set("Capacity", telemetry.GB(mod.Capacity, 0))
		} else {
			entry.SetText("Capacity", telemetry.Unknown)
		}
		entry.SetText("Speed", unitOrUnknown(mod.Speed, "MHz")).
			SetTextOr("Manufacturer", mod.Manufacturer).
			SetTextOr("Part Number", mod.PartNumber).
			SetTextOr("Serial Number", mod.SerialNumber)
		m.Set(uniqueKey(m, "RAM Module - "+loc), telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

func (w *wmiProviders) baseboard(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var boards []win32_BaseBoard
	if err := w.query(ctx, &boards, "", ""); err != nil {
		return wmiFailed("Win32_BaseBoard", err)
	}
	m := telemetry.NewMetrics()
	if len(boards) > 0 {
		b := boards[0]
		m.SetTextOr("Manufacturer", b.Manufacturer).
			SetTextOr("Model", b.Product).
			SetTextOr("Serial Number", b.SerialNumber).
			SetTextOr("Version", b.Version)
	}
	var bios []win32_BIOS
	if err := w.query(ctx, &bios, "", ""); err == nil && len(bios) > 0 {
		m.SetTextOr("BIOS Manufacturer", bios[0].Manufacturer).
			SetTextOr("BIOS Version", bios[0].SMBIOSBIOSVersion).
			SetTextOr("BIOS Date", bios[0].ReleaseDate)
	}
	return telemetry.Success(m)
}

func (w *wmiProviders) video(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_VideoController
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_VideoController", err)
	}
	m := telemetry.NewMetrics()
	for _, gpu := range dst {
		name := strings.TrimSpace(gpu.Name)
		if name == "" {
			continue
		}
		entry := telemetry.NewMetrics().SetText("Name", name)
		if gpu.AdapterRAM > 0 {
			entry.Set("RAM", telemetry.Bytes(uint64(gpu.AdapterRAM)))
		} else {
			entry.SetText("RAM", telemetry.Unknown)
		}
		entry.SetTextOr("Driver Version", gpu.DriverVersion)
		if gpu.CurrentHorizontalResolution > 0 {
			entry.SetText("Resolution", fmt.Sprintf("%dx%d", gpu.CurrentHorizontalResolution, gpu.CurrentVerticalResolution))
		} else {
			entry.SetText("Resolution", telemetry.Unknown)
		}
		entry.SetText("Color Depth", unitOrUnknown(gpu.CurrentBitsPerPixel, "bit")).
			SetTextOr("Status", gpu.Status)
		m.Set(uniqueKey(m, name), telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

// disks reports each physical disk with its volumes nested under
// "Partition <letter>"
func (w *wmiProviders) disks(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var drives []win32_DiskDrive
	if err := w.query(ctx, &drives, "", ""); err != nil {
		return wmiFailed("Win32_DiskDrive", err)
	}
	m := telemetry.NewMetrics()
	for _, d := range drives {
		entry := telemetry.NewMetrics().SetTextOr("Model", d.Model)
		if d.Size > 0 {
			entry.Set("Size", telemetry.Bytes(d.Size))
		} else {
			entry.SetText("Size", telemetry.Unknown)
		}
		entry.SetTextOr("Interface", d.InterfaceType).
			SetTextOr("Serial Number", d.SerialNumber).
			SetTextOr("Status", d.Status)

		for _, vol := range w.volumesOf(ctx, d.DeviceID) {
			entry.Set("Partition "+vol.DeviceID, telemetry.Nested(telemetry.NewMetrics().
				SetTextOr("File System", vol.FileSystem).
				Set(telemetry.KeyTotal, telemetry.Bytes(vol.Size)).
				Set(telemetry.KeyUsed, telemetry.Bytes(vol.Size-min(vol.FreeSpace, vol.Size))).
				Set(telemetry.KeyFree, telemetry.Bytes(vol.FreeSpace))))
		}
		m.Set(uniqueKey(m, fmt.Sprintf("Disk %d: %s", d.Index, orUnknown(d.Model))), telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

// volumesOf follows disk -> partition -> logical disk associations
func (w *wmiProviders) volumesOf(ctx context.Context, diskID string) []win32_LogicalDisk {
	esc := strings.ReplaceAll(diskID, `\`, `\\`)
	var parts []win32_DiskPartition
	q := fmt.Sprintf("ASSOCIATORS OF {Win32_DiskDrive.DeviceID='%s'} WHERE AssocClass = Win32_DiskDriveToDiskPartition", esc)
	if err := w.q.Query(ctx, nsCIMV2, q, &parts); err != nil {
		return nil
	}
	var vols []win32_LogicalDisk
	for _, p := range parts {
		var lds []win32_LogicalDisk
		q := fmt.Sprintf("ASSOCIATORS OF {Win32_DiskPartition.DeviceID='%s'} WHERE AssocClass = Win32_LogicalDiskToPartition", p.DeviceID)
		if err := w.q.Query(ctx, nsCIMV2, q, &lds); err == nil {
			vols = append(vols, lds...)
		}
	}
	return vols
}

func (w *wmiProviders) cdrom(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_CDROMDrive
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_CDROMDrive", err)
	}
	m := telemetry.NewMetrics()
	for _, d := range dst {
		entry := telemetry.NewMetrics().
			SetTextOr("Name", d.Name).
			SetTextOr("Drive Letter", d.Drive).
			SetTextOr("Manufacturer", d.Manufacturer).
			SetTextOr("Media Type", d.MediaType).
			SetTextOr("Status", d.Status)
		if d.TransferRate > 0 {
			entry.SetText("Transfer Rate", fmt.Sprintf("%.0f KB/s", d.TransferRate))
		} else {
			entry.SetText("Transfer Rate", telemetry.Unknown)
		}
		m.Set(uniqueKey(m, orUnknown(d.Name)), telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

func (w *wmiProviders) sound(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_SoundDevice
	if err := w.query(ctx, &dst, "", ""); err != nil {
		return wmiFailed("Win32_SoundDevice", err)
	}
	m := telemetry.NewMetrics()
	for _, d := range dst {
		if strings.TrimSpace(d.Name) == "" {
			continue
		}
		m.Set(uniqueKey(m, d.Name), telemetry.Nested(telemetry.NewMetrics().
			SetText("Name", d.Name).
			SetTextOr("Manufacturer", d.Manufacturer).
			SetTextOr("Status", d.Status).
			SetTextOr("Device ID", d.DeviceID)))
	}
	return telemetry.Success(m)
}

func pnpEntry(d pnpDevice) *telemetry.Metrics {
	return telemetry.NewMetrics().
		SetText("Name", d.Name).
		SetTextOr("Device ID", d.DeviceID).
		SetTextOr("Status", d.Status)
}

var claimedKeywords = []string{"usb", "keyboard", "mouse", "printer", "audio", "video"}

// isOtherDevice reports whether a PnP entity is not already covered by a
// more specific class
func isOtherDevice(name string) bool {
	lower := strings.ToLower(name)
	for _, k := range claimedKeywords {
		if strings.Contains(lower, k) {
			return false
		}
	}
	return true
}

func (w *wmiProviders) peripherals(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	groups := map[string]*telemetry.Metrics{}
	add := func(group, name string, entry *telemetry.Metrics) {
		g := groups[group]
		if g == nil {
			g = telemetry.NewMetrics()
			groups[group] = g
		}
		g.Set(uniqueKey(g, name), telemetry.Nested(entry))
	}

	var hubs []pnpDevice
	if err := w.query(ctx, &hubs, "Win32_USBHub", ""); err != nil {
		return wmiFailed("Win32_USBHub", err)
	}
	for _, d := range hubs {
		if d.Name != "" {
			add(GroupUSB, d.Name, pnpEntry(d))
		}
	}

	var keyboards []pnpDevice
	if err := w.query(ctx, &keyboards, "Win32_Keyboard", ""); err == nil {
		for _, d := range keyboards {
			if d.Name != "" {
				add(GroupKeyboard, d.Name, pnpEntry(d))
			}
		}
	}

	var mice []win32_PointingDevice
	if err := w.query(ctx, &mice, "", ""); err == nil {
		for _, d := range mice {
			if d.Name == "" {
				continue
			}
			entry := pnpEntry(pnpDevice{Name: d.Name, DeviceID: d.DeviceID, Status: d.Status})
			if d.NumberOfButtons > 0 {
				entry.Set("Number of Buttons", telemetry.Integer(int64(d.NumberOfButtons)))
			} else {
				entry.SetText("Number of Buttons", telemetry.Unknown)
			}
			add(GroupMouse, d.Name, entry)
		}
	}

	var printers []win32_Printer
	if err := w.query(ctx, &printers, "", ""); err == nil {
		for _, p := range printers {
			if p.Name == "" {
				continue
			}
			add(GroupPrinter, p.Name, telemetry.NewMetrics().
				SetText("Name", p.Name).
				SetText("Status", printerStatus(p.PrinterStatus)).
				SetTextOr("Port", p.PortName).
				SetTextOr("Driver", p.DriverName))
		}
	}

	var entities []pnpDevice
	if err := w.query(ctx, &entities, "Win32_PnPEntity", ""); err == nil {
		n := 0
		for _, d := range entities {
			if n >= w.maxOther {
				break
			}
			if d.Name == "" || !isOtherDevice(d.Name) {
				continue
			}
			add(GroupOther, d.Name, pnpEntry(d))
			n++
		}
	}

	return telemetry.Success(peripheralMetrics(groups))
}

var printerStatuses = map[uint16]string{
	1: "Other",
	2: "Unknown",
	3: "Idle",
	4: "Printing",
	5: "Warmup",
	6: "Stopped Printing",
	7: "Offline",
}

func printerStatus(s uint16) string {
	if name, ok := printerStatuses[s]; ok {
		return name
	}
	return telemetry.Unknown
}

// adapters keys WMI adapter details by connection name so they merge with
// the interface statistics of the same adapter
func (w *wmiProviders) adapters(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	var dst []win32_NetworkAdapter
	if err := w.query(ctx, &dst, "", "NetConnectionID IS NOT NULL"); err != nil {
		return wmiFailed("Win32_NetworkAdapter", err)
	}
	m := telemetry.NewMetrics()
	for _, a := range dst {
		if a.NetConnectionID == "" || a.MACAddress == "" {
			continue
		}
		entry := telemetry.NewMetrics().
			SetTextOr("Manufacturer", a.Manufacturer).
			SetTextOr("Product Name", a.ProductName).
			SetText("MAC Address", a.MACAddress).
			SetTextOr("Adapter Type", a.AdapterType)
		if a.Speed > 0 {
			entry.SetText("Speed", fmt.Sprintf("%.0f Mbps", float64(a.Speed)/1e6))
		} else {
			entry.SetText("Speed", telemetry.Unknown)
		}
		m.Set(a.NetConnectionID, telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

// thermalReadings reads ACPI thermal zones and temperature probes. Both
// report tenths of a kelvin. Readings are not range checked here.
func (w *wmiProviders) thermalReadings(ctx context.Context) telemetry.Result {
	if w.q == nil {
		return telemetry.Unavailable()
	}
	m := telemetry.NewMetrics()

	var zones []msAcpi_ThermalZoneTemperature
	zoneErr := w.q.Query(ctx, nsWMI, selectQuery(&zones, "MSAcpi_ThermalZoneTemperature", ""), &zones)
	for _, z := range zones {
		if z.CurrentTemperature == 0 {
			continue
		}
		m.Set(uniqueKey(m, "Thermal Zone "+z.InstanceName), telemetry.Celsius(telemetry.KelvinTenthsToCelsius(float64(z.CurrentTemperature))))
	}

	var probes []win32_TemperatureProbe
	probeErr := w.query(ctx, &probes, "", "")
	for _, p := range probes {
		if p.CurrentReading == 0 {
			continue
		}
		m.Set(uniqueKey(m, "Temperature Probe "+p.DeviceID), telemetry.Celsius(telemetry.KelvinTenthsToCelsius(float64(p.CurrentReading))))
	}

	if zoneErr != nil && probeErr != nil {
		return wmiFailed("thermal", zoneErr)
	}
	return telemetry.Success(m)
}
