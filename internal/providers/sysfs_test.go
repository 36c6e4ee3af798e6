package providers

import (
	"context"
	"testing"

	"pulsepc/internal/telemetry"

	"github.com/spf13/afero"
)

func newSysfs(files map[string]string) *sysfsProviders {
	fs := afero.NewMemMapFs()
	writeFiles(fs, files)
	return &sysfsProviders{fs: fs, opts: Options{Fs: fs, SysfsRoot: "/"}}
}

func get(t *testing.T, m *telemetry.Metrics, path ...string) string {
	t.Helper()
	cur := m
	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			t.Fatalf("Missing key %q (path %v), have %v", key, path[:i+1], cur.Keys())
		}
		if i == len(path)-1 {
			return v.String()
		}
		cur = v.Group()
		if cur == nil {
			t.Fatalf("Key %q is not a group", key)
		}
	}
	return ""
}

func TestDMI(t *testing.T) {
	s := newSysfs(map[string]string{
		"/sys/class/dmi/id/board_vendor":  "ASUSTeK COMPUTER INC.\n",
		"/sys/class/dmi/id/board_name":    "PRIME B450M-A\n",
		"/sys/class/dmi/id/board_version": "Rev X.0x\n",
		"/sys/class/dmi/id/bios_vendor":   "American Megatrends Inc.\n",
		"/sys/class/dmi/id/bios_version":  "3211\n",
		"/sys/class/dmi/id/bios_date":     "08/10/2021\n",
	})

	res := s.dmi(context.Background())
	if res.Status != telemetry.StatusSuccess {
		t.Fatalf("Expected success, got %s", res.Status)
	}
	if got := get(t, res.Metrics, "Model"); got != "PRIME B450M-A" {
		t.Errorf("Unexpected model %q", got)
	}
	if got := get(t, res.Metrics, "Serial Number"); got != telemetry.Unknown {
		t.Errorf("Unreadable serial should be %q, got %q", telemetry.Unknown, got)
	}
	if got := get(t, res.Metrics, "BIOS Date"); got != "08/10/2021" {
		t.Errorf("Unexpected BIOS date %q", got)
	}
}

func TestDMI_Absent(t *testing.T) {
	if res := newSysfs(nil).dmi(context.Background()); res.Status != telemetry.StatusUnavailable {
		t.Errorf("Expected unavailable without dmi files, got %s", res.Status)
	}
}

func TestAsoundCards(t *testing.T) {
	s := newSysfs(map[string]string{
		"/proc/asound/cards": ` 0 [PCH            ]: HDA-Intel - HDA Intel PCH
                      HDA Intel PCH at 0xf7f10000 irq 33
 1 [NVidia         ]: HDA-Intel - HDA NVidia
                      HDA NVidia at 0xf7080000 irq 17
`,
	})

	res := s.asound(context.Background())
	if !res.Usable() {
		t.Fatalf("Expected usable result, got %s", res.Status)
	}
	if res.Metrics.Len() != 2 {
		t.Fatalf("Expected 2 cards, got %v", res.Metrics.Keys())
	}
	if got := get(t, res.Metrics, "HDA Intel PCH", "Device ID"); got != "card0 (PCH)" {
		t.Errorf("Unexpected device id %q", got)
	}
	if got := get(t, res.Metrics, "HDA NVidia", "Manufacturer"); got != "HDA-Intel" {
		t.Errorf("Unexpected driver %q", got)
	}
}

func TestOptical(t *testing.T) {
	s := newSysfs(map[string]string{
		"/sys/block/sr0/device/vendor": "HL-DT-ST\n",
		"/sys/block/sr0/device/model":  "DVDRAM GH24NSD1\n",
		"/sys/block/sda/device/model":  "Samsung SSD\n",
	})

	res := s.optical(context.Background())
	if res.Metrics.Len() != 1 {
		t.Fatalf("Expected only sr0, got %v", res.Metrics.Keys())
	}
	if got := get(t, res.Metrics, "HL-DT-ST DVDRAM GH24NSD1", "Drive Letter"); got != "/dev/sr0" {
		t.Errorf("Unexpected device node %q", got)
	}
}

func TestUSBPeripheralsClassified(t *testing.T) {
	s := newSysfs(map[string]string{
		"/sys/bus/usb/devices/1-1/product":                "USB Receiver",
		"/sys/bus/usb/devices/1-1/idVendor":               "046d",
		"/sys/bus/usb/devices/1-1/idProduct":              "c52b",
		"/sys/bus/usb/devices/1-1:1.0/bInterfaceClass":    "03",
		"/sys/bus/usb/devices/1-1:1.0/bInterfaceProtocol": "01",
		"/sys/bus/usb/devices/1-2/product":                "Optical Mouse",
		"/sys/bus/usb/devices/1-2:1.0/bInterfaceClass":    "03",
		"/sys/bus/usb/devices/1-2:1.0/bInterfaceProtocol": "02",
		"/sys/bus/usb/devices/usb1/product":               "xHCI Host Controller",
		"/sys/bus/usb/devices/usb1:1.0/bInterfaceClass":   "09",
		"/sys/bus/usb/devices/1-3/idVendor":               "abcd",
	})

	res := s.usb(context.Background())
	if !res.Usable() {
		t.Fatalf("Expected usable result, got %s", res.Status)
	}
	if got := get(t, res.Metrics, GroupKeyboard, "USB Receiver", "Device ID"); got != `USB\VID_046D&PID_C52B\1-1` {
		t.Errorf("Unexpected device id %q", got)
	}
	get(t, res.Metrics, GroupMouse, "Optical Mouse")
	get(t, res.Metrics, GroupUSB, "xHCI Host Controller")
	if res.Metrics.Has(GroupPrinter) {
		t.Error("Empty groups should be omitted")
	}
}

func TestHwmonReadings(t *testing.T) {
	s := newSysfs(map[string]string{
		"/sys/class/hwmon/hwmon0/name":        "k10temp",
		"/sys/class/hwmon/hwmon0/temp1_input": "45250",
		"/sys/class/hwmon/hwmon0/temp1_label": "Tctl",
		"/sys/class/hwmon/hwmon1/name":        "nvme",
		"/sys/class/hwmon/hwmon1/temp1_input": "38850",
	})

	res := s.hwmonReadings(context.Background())
	if got := get(t, res.Metrics, "Tctl (hwmon0)"); got != "45.2°C" && got != "45.3°C" {
		t.Errorf("Unexpected reading %q", got)
	}
	if got := get(t, res.Metrics, "nvme temp1 (hwmon1)"); got != "38.9°C" && got != "38.8°C" {
		t.Errorf("Unexpected reading %q", got)
	}
}
