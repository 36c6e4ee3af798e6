//go:build windows

package providers

import (
	"context"
	"fmt"
	"path"
	"strings"

	"pulsepc/internal/telemetry"

	"golang.org/x/sys/windows/registry"
)

var thermalRegistryPaths = []string{
	`SYSTEM\CurrentControlSet\Services\Thermal`,
	`SYSTEM\CurrentControlSet\Control\Power\Profile\Events`,
}

// registryThermal probes keys where some firmware tools leave temperature
// values in tenths of a kelvin. Most machines have none.
func registryThermal(ctx context.Context) telemetry.Result {
	m := telemetry.NewMetrics()
	for _, p := range thermalRegistryPaths {
		if ctx.Err() != nil {
			break
		}
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, p, registry.QUERY_VALUE)
		if err != nil {
			continue
		}
		names, _ := k.ReadValueNames(-1)
		for _, name := range names {
			if !strings.Contains(strings.ToLower(name), "temperature") {
				continue
			}
			raw, _, err := k.GetIntegerValue(name)
			if err != nil || raw == 0 {
				continue
			}
			key := fmt.Sprintf("Registry %s %s", path.Base(strings.ReplaceAll(p, `\`, "/")), name)
			m.Set(uniqueKey(m, key), telemetry.Celsius(telemetry.KelvinTenthsToCelsius(float64(raw))))
		}
		k.Close()
	}
	if m.Empty() {
		return telemetry.Unavailable()
	}
	return telemetry.Success(m)
}
