// Package telemetry provides the aggregation and refresh engine for PulsePC:
// providers, fallback chains, category resolution, snapshots and the sink
// consumers read from.
package telemetry

import (
	"fmt"
	"strings"
)

// Category is a fixed hardware/OS metric grouping
type Category uint8

const (
	SystemSummary Category = iota
	OperatingSystem
	Cpu
	Memory
	Motherboard
	Graphics
	Storage
	Optical
	Audio
	Peripherals
	Network
	Thermal

	categoryCount
)

var categoryNames = [categoryCount]string{
	SystemSummary:   "summary",
	OperatingSystem: "os",
	Cpu:             "cpu",
	Memory:          "memory",
	Motherboard:     "motherboard",
	Graphics:        "graphics",
	Storage:         "storage",
	Optical:         "optical",
	Audio:           "audio",
	Peripherals:     "peripherals",
	Network:         "network",
	Thermal:         "thermal",
}

var categoryTitles = [categoryCount]string{
	SystemSummary:   "Summary",
	OperatingSystem: "Operating System",
	Cpu:             "CPU",
	Memory:          "RAM",
	Motherboard:     "Motherboard",
	Graphics:        "Graphics",
	Storage:         "Storage",
	Optical:         "Optical Drives",
	Audio:           "Audio",
	Peripherals:     "Peripherals",
	Network:         "Network",
	Thermal:         "Temperatures",
}

// placeholderKeys name the single entry shown when nothing could be collected
var placeholderKeys = [categoryCount]string{
	SystemSummary:   "System",
	OperatingSystem: "Operating System",
	Cpu:             "Processor",
	Memory:          "Memory",
	Motherboard:     "Motherboard Info",
	Graphics:        "Graphics Card",
	Storage:         "Storage",
	Optical:         "Optical Drives",
	Audio:           "Audio Devices",
	Peripherals:     "Peripherals",
	Network:         "Network Adapters",
	Thermal:         "Temperature",
}

// String returns the short machine name used in config files and CLI arguments
func (c Category) String() string {
	if c.Valid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

// Title returns the human readable name
func (c Category) Title() string {
	if c.Valid() {
		return categoryTitles[c]
	}
	return c.String()
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return c < categoryCount
}

// AllCategories returns every category in display order
func AllCategories() []Category {
	all := make([]Category, 0, categoryCount)
	for c := Category(0); c < categoryCount; c++ {
		all = append(all, c)
	}
	return all
}

// ParseCategory accepts either the short name or the title, case-insensitively
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for c := Category(0); c < categoryCount; c++ {
		if strings.EqualFold(s, categoryNames[c]) || strings.EqualFold(s, categoryTitles[c]) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown category %q", s)
}

// ParseCategories parses a list of names, failing on the first unknown one
func ParseCategories(names []string) ([]Category, error) {
	out := make([]Category, 0, len(names))
	for _, n := range names {
		c, err := ParseCategory(n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DefaultDynamicCategories are refreshed on a timer while displayed
func DefaultDynamicCategories() []Category {
	return []Category{SystemSummary, Cpu, Memory, Graphics, Thermal}
}
