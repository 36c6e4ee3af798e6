package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"pulsepc/internal/telemetry"

	"github.com/spf13/afero"
)

// sysfsProviders read Linux pseudo-filesystems. On other platforms the
// files are absent and every provider reports Unavailable.
type sysfsProviders struct {
	fs   afero.Fs
	opts Options
}

func readTrimmed(fs afero.Fs, path string) (string, bool) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return "", false
	}
	s := strings.TrimSpace(string(data))
	return s, s != ""
}

func readInt(fs afero.Fs, path string) (int64, bool) {
	s, ok := readTrimmed(fs, path)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return n, err == nil
}

var dmiFields = []struct{ file, key string }{
	{"board_vendor", "Manufacturer"},
	{"board_name", "Model"},
	{"board_serial", "Serial Number"},
	{"board_version", "Version"},
	{"bios_vendor", "BIOS Manufacturer"},
	{"bios_version", "BIOS Version"},
	{"bios_date", "BIOS Date"},
}

func (s *sysfsProviders) dmi(ctx context.Context) telemetry.Result {
	dir := s.opts.path("sys", "class", "dmi", "id")
	m := telemetry.NewMetrics()
	found := false
	for _, f := range dmiFields {
		v, ok := readTrimmed(s.fs, filepath.Join(dir, f.file))
		found = found || ok
		m.SetTextOr(f.key, v)
	}
	if !found {
		return telemetry.Unavailable()
	}
	return telemetry.Success(m)
}

func (s *sysfsProviders) optical(ctx context.Context) telemetry.Result {
	devs, err := afero.Glob(s.fs, s.opts.path("sys", "block", "sr*"))
	if err != nil || len(devs) == 0 {
		return telemetry.Unavailable()
	}
	sort.Strings(devs)

	m := telemetry.NewMetrics()
	for _, dev := range devs {
		name := filepath.Base(dev)
		vendor, _ := readTrimmed(s.fs, filepath.Join(dev, "device", "vendor"))
		model, _ := readTrimmed(s.fs, filepath.Join(dev, "device", "model"))
		label := strings.TrimSpace(vendor + " " + model)
		if label == "" {
			label = name
		}
		m.Set(uniqueKey(m, label), telemetry.Nested(telemetry.NewMetrics().
			SetText("Name", label).
			SetText("Drive Letter", "/dev/"+name).
			SetTextOr("Manufacturer", vendor).
			SetText("Media Type", "CD-ROM").
			SetText("Status", "OK")))
	}
	return telemetry.Success(m)
}

// " 0 [PCH            ]: HDA-Intel - HDA Intel PCH"
var asoundCard = regexp.MustCompile(`^\s*(\d+)\s+\[([^\]]*)\]:\s+(\S+)\s+-\s+(.+)$`)

func parseAsoundCards(data []byte) *telemetry.Metrics {
	m := telemetry.NewMetrics()
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		match := asoundCard.FindStringSubmatch(sc.Text())
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[4])
		m.Set(uniqueKey(m, name), telemetry.Nested(telemetry.NewMetrics().
			SetText("Name", name).
			SetText("Manufacturer", match[3]).
			SetText("Status", "OK").
			SetText("Device ID", fmt.Sprintf("card%s (%s)", match[1], strings.TrimSpace(match[2])))))
	}
	return m
}

func (s *sysfsProviders) asound(ctx context.Context) telemetry.Result {
	data, err := afero.ReadFile(s.fs, s.opts.path("proc", "asound", "cards"))
	if err != nil {
		return telemetry.Unavailable()
	}
	return telemetry.Success(parseAsoundCards(data))
}

// Peripheral groups, in display order
const (
	GroupUSB      = "USB Devices"
	GroupKeyboard = "Keyboards"
	GroupMouse    = "Mice"
	GroupPrinter  = "Printers"
	GroupOther    = "Other Devices"
)

// usbGroup classifies a device by its interface class and protocol
func usbGroup(class, protocol string) string {
	switch {
	case class == "03" && protocol == "01":
		return GroupKeyboard
	case class == "03" && protocol == "02":
		return GroupMouse
	case class == "07":
		return GroupPrinter
	}
	return GroupUSB
}

func (s *sysfsProviders) usb(ctx context.Context) telemetry.Result {
	root := s.opts.path("sys", "bus", "usb", "devices")
	entries, err := afero.ReadDir(s.fs, root)
	if err != nil {
		return telemetry.Unavailable()
	}

	groups := map[string]*telemetry.Metrics{}
	for _, e := range entries {
		// interface directories look like 1-1:1.0
		if strings.Contains(e.Name(), ":") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		product, ok := readTrimmed(s.fs, filepath.Join(dir, "product"))
		if !ok {
			continue
		}
		group := GroupUSB
		ifaces, _ := afero.Glob(s.fs, dir+":*")
		sort.Strings(ifaces)
		for _, iface := range ifaces {
			class, _ := readTrimmed(s.fs, filepath.Join(iface, "bInterfaceClass"))
			proto, _ := readTrimmed(s.fs, filepath.Join(iface, "bInterfaceProtocol"))
			if g := usbGroup(class, proto); g != GroupUSB {
				group = g
				break
			}
		}
		vendor, _ := readTrimmed(s.fs, filepath.Join(dir, "idVendor"))
		prod, _ := readTrimmed(s.fs, filepath.Join(dir, "idProduct"))

		g := groups[group]
		if g == nil {
			g = telemetry.NewMetrics()
			groups[group] = g
		}
		g.Set(uniqueKey(g, product), telemetry.Nested(telemetry.NewMetrics().
			SetText("Name", product).
			SetText("Device ID", fmt.Sprintf("USB\\VID_%s&PID_%s\\%s", strings.ToUpper(vendor), strings.ToUpper(prod), e.Name())).
			SetText("Status", "OK")))
	}
	return telemetry.Success(peripheralMetrics(groups))
}

func peripheralMetrics(groups map[string]*telemetry.Metrics) *telemetry.Metrics {
	m := telemetry.NewMetrics()
	for _, name := range []string{GroupUSB, GroupKeyboard, GroupMouse, GroupPrinter, GroupOther} {
		if g := groups[name]; !g.Empty() {
			m.Set(name, telemetry.Nested(g))
		}
	}
	return m
}

// hwmonReadings collects every temp*_input under /sys/class/hwmon in °C.
// Readings are not range checked here.
func (s *sysfsProviders) hwmonReadings(ctx context.Context) telemetry.Result {
	chips, err := afero.Glob(s.fs, s.opts.path("sys", "class", "hwmon", "hwmon*"))
	if err != nil || len(chips) == 0 {
		return telemetry.Unavailable()
	}
	sort.Strings(chips)

	m := telemetry.NewMetrics()
	for _, chip := range chips {
		if ctx.Err() != nil {
			break
		}
		hw := filepath.Base(chip)
		chipName, _ := readTrimmed(s.fs, filepath.Join(chip, "name"))
		inputs, _ := afero.Glob(s.fs, filepath.Join(chip, "temp*_input"))
		sort.Strings(inputs)
		for _, in := range inputs {
			raw, ok := readInt(s.fs, in)
			if !ok {
				continue
			}
			sensor := strings.TrimSuffix(filepath.Base(in), "_input")
			label, ok := readTrimmed(s.fs, filepath.Join(chip, sensor+"_label"))
			if !ok {
				label = strings.TrimSpace(chipName + " " + sensor)
			}
			m.Set(uniqueKey(m, fmt.Sprintf("%s (%s)", label, hw)), telemetry.Celsius(telemetry.MilliToCelsius(float64(raw))))
		}
	}
	return telemetry.Success(m)
}
