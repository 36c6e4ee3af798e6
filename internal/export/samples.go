// Package export publishes snapshot values to metric backends
package export

import (
	"strconv"
	"strings"

	"pulsepc/internal/telemetry"
)

// Sample is one numeric reading taken from a snapshot
type Sample struct {
	Category telemetry.Category
	Key      string // nested keys joined with " / "
	Unit     string
	Value    float64
}

const gib = 1024 * 1024 * 1024

// Samples flattens the numeric values of a snapshot. Gigabyte text such as
// "15.6 GB" is reported in bytes. Placeholders and text yield nothing.
func Samples(snap *telemetry.Snapshot) []Sample {
	if snap == nil || !snap.Available() {
		return nil
	}
	var out []Sample
	var walk func(prefix string, m *telemetry.Metrics)
	walk = func(prefix string, m *telemetry.Metrics) {
		m.Each(func(key string, v telemetry.Value) bool {
			// hardware strings are not guaranteed to be UTF-8, label values must be
			path := strings.ToValidUTF8(key, "\uFFFD")
			if prefix != "" {
				path = prefix + " / " + path
			}
			if g := v.Group(); g != nil {
				walk(path, g)
				return true
			}
			if f, ok := v.Float(); ok {
				out = append(out, Sample{Category: snap.Category(), Key: path, Unit: v.Unit(), Value: f})
				return true
			}
			if b, ok := gigabytes(v.String()); ok {
				out = append(out, Sample{Category: snap.Category(), Key: path, Unit: "By", Value: b})
			}
			return true
		})
	}
	walk("", snap.Metrics())
	return out
}

func gigabytes(s string) (float64, bool) {
	num, ok := strings.CutSuffix(s, " GB")
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f * gib, true
}

// otelUnit maps display units to UCUM units
func otelUnit(u string) string {
	switch u {
	case "%":
		return "%"
	case "°C":
		return "Cel"
	case "By":
		return "By"
	case "":
		return "1"
	default:
		return u
	}
}
