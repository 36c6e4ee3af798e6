//go:build !windows

package providers

import (
	"context"

	"pulsepc/internal/telemetry"
)

func registryThermal(context.Context) telemetry.Result {
	return telemetry.Unavailable()
}
