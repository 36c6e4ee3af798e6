package telemetry

import (
	"fmt"
	"math"
	"time"
)

const gib = 1024 * 1024 * 1024

// Round1 rounds to one decimal place
func Round1(v float64) float64 {
	return Round(v, 1)
}

// Round rounds v to the given number of decimal places
func Round(v float64, decimals int) float64 {
	shift := math.Pow(10, float64(decimals))
	return math.Round(v*shift) / shift
}

// BytesToGB converts a byte count to binary gigabytes
func BytesToGB(b uint64) float64 {
	return float64(b) / gib
}

// GB renders a byte count as gigabytes with the given precision, e.g. "15.6 GB"
func GB(b uint64, decimals int) Value {
	return Text(fmt.Sprintf("%.*f GB", decimals, BytesToGB(b)))
}

// UsagePercent returns used/total as a percentage.
// A zero total yields "unknown" instead of NaN or infinity.
func UsagePercent(used, total uint64) Value {
	if total == 0 {
		return Text("unknown")
	}
	return Number(float64(used)/float64(total)*100, "%")
}

// KelvinTenthsToCelsius converts the tenths-of-Kelvin readings used by ACPI
// thermal zones
func KelvinTenthsToCelsius(raw float64) float64 {
	return raw/10.0 - 273.15
}

// MilliToCelsius converts hwmon millidegree readings
func MilliToCelsius(raw float64) float64 {
	return raw / 1000.0
}

// ThermalBounds is the open interval of believable sensor readings in Celsius
type ThermalBounds struct {
	Min float64
	Max float64
}

// Plausible reports whether c lies strictly inside the bounds
func (b ThermalBounds) Plausible(c float64) bool {
	return c > b.Min && c < b.Max
}

// Celsius creates a temperature value
func Celsius(c float64) Value {
	return Number(c, "°C")
}

// FormatUptime renders a duration as "H:MM:SS", prefixed with a day count
// when longer than a day. Fractional seconds are dropped.
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	days := total / 86400
	rem := total % 86400
	h, m, s := rem/3600, (rem%3600)/60, rem%60
	clock := fmt.Sprintf("%d:%02d:%02d", h, m, s)
	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}
