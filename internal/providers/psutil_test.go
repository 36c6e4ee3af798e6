package providers

import (
	"testing"

	"pulsepc/internal/telemetry"

	"github.com/shirou/gopsutil/v4/host"
	psnet "github.com/shirou/gopsutil/v4/net"
)

func TestWindowsRelease(t *testing.T) {
	cases := []struct {
		version string
		want    string
	}{
		{"10.0.22631 Build 22631", "Microsoft Windows 11"},
		{"10.0.22000 Build 22000", "Microsoft Windows 11"},
		{"10.0.19045 Build 19045", "Microsoft Windows 10"},
		// a substring test on "10.0.22" would misread this one
		{"10.0.2200 Build 2200", "Microsoft Windows 10"},
		{"6.1.7601 Build 7601", "Microsoft Windows 6.1.7601"},
		{"", "Microsoft Windows"},
	}
	for _, c := range cases {
		if got := windowsRelease(c.version, 22000); got != c.want {
			t.Errorf("windowsRelease(%q) = %q, want %q", c.version, got, c.want)
		}
	}
}

func TestOSName(t *testing.T) {
	linux := &host.InfoStat{OS: "linux", KernelVersion: "6.8.0-45-generic"}
	if got := osName(linux, 22000); got != "Linux 6.8.0-45-generic" {
		t.Errorf("Unexpected linux name %q", got)
	}
	win := &host.InfoStat{OS: "windows", KernelVersion: "10.0.26100 Build 26100"}
	if got := osName(win, 22000); got != "Microsoft Windows 11" {
		t.Errorf("Unexpected windows name %q", got)
	}
}

func TestInterfaceMetrics(t *testing.T) {
	iface := psnet.InterfaceStat{
		Name:         "eth0",
		MTU:          1500,
		HardwareAddr: "00:1a:2b:3c:4d:5e",
		Flags:        []string{"up", "broadcast", "multicast"},
		Addrs: psnet.InterfaceAddrList{
			{Addr: "192.168.1.20/24"},
			{Addr: "fe80::21a:2bff:fe3c:4d5e/64"},
		},
	}
	m := interfaceMetrics(iface)

	checks := map[string]string{
		"Status":       "Up",
		"IPv4 Address": "192.168.1.20",
		"Netmask":      "255.255.255.0",
		"IPv6 Address": "fe80::21a:2bff:fe3c:4d5e",
		"MAC Address":  "00:1A:2B:3C:4D:5E",
		"MTU":          "1500",
	}
	for k, want := range checks {
		if got := get(t, m, k); got != want {
			t.Errorf("%s: expected %q, got %q", k, want, got)
		}
	}

	down := interfaceMetrics(psnet.InterfaceStat{Name: "wlan0", Flags: []string{"broadcast"}})
	if got := get(t, down, "Status"); got != "Down" {
		t.Errorf("Expected Down, got %q", got)
	}
	if down.Has("MTU") || down.Has("IPv4 Address") {
		t.Errorf("Unset fields should be omitted, got %v", down.Keys())
	}
}

func TestNewRegistry_CoversEveryCategory(t *testing.T) {
	opts := Options{Fs: newSysfs(nil).fs, Runner: &fakeRunner{}}
	reg, err := NewRegistry(opts)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	for _, c := range telemetry.AllCategories() {
		if len(reg.Providers(c)) == 0 {
			t.Errorf("%s has no providers", c)
		}
	}
	if reg.Mode(telemetry.Storage) != telemetry.WinnerTakesAll {
		t.Error("Storage should be winner-takes-all")
	}
	if reg.Mode(telemetry.Network) != telemetry.UnionMerge {
		t.Error("Network should be union")
	}
	thermal := reg.Providers(telemetry.Thermal)
	if thermal[0].Name() != "thermal.ladder" || thermal[0].Timeout <= telemetry.DefaultProviderTimeout {
		t.Errorf("Ladder should lead thermal with its own budget, got %s %v", thermal[0].Name(), thermal[0].Timeout)
	}
}
