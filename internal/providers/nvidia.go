package providers

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"pulsepc/internal/telemetry"
)

const nvidiaSMI = "nvidia-smi"

var nvidiaQuery = []string{
	"--query-gpu=index,name,utilization.gpu,memory.used,memory.total,temperature.gpu,driver_version",
	"--format=csv,noheader,nounits",
}

type nvidiaGPU struct {
	Index       int
	Name        string
	Load        float64
	MemUsedMB   int64
	MemTotalMB  int64
	Temperature float64
	Driver      string
}

// parseNvidiaSMI reads csv,noheader,nounits output. Fields nvidia-smi
// cannot report come back as "[N/A]" and are left zero.
func parseNvidiaSMI(out []byte) []nvidiaGPU {
	var gpus []nvidiaGPU
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		fields := strings.Split(sc.Text(), ",")
		if len(fields) < 7 {
			continue
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		gpu := nvidiaGPU{Name: fields[1], Driver: fields[6]}
		gpu.Index, _ = strconv.Atoi(fields[0])
		gpu.Load, _ = strconv.ParseFloat(fields[2], 64)
		gpu.MemUsedMB, _ = strconv.ParseInt(fields[3], 10, 64)
		gpu.MemTotalMB, _ = strconv.ParseInt(fields[4], 10, 64)
		gpu.Temperature, _ = strconv.ParseFloat(fields[5], 64)
		gpus = append(gpus, gpu)
	}
	return gpus
}

// nvidiaProviders shell out to nvidia-smi. Without the tool they report
// Unavailable.
type nvidiaProviders struct {
	run Runner
}

func (n *nvidiaProviders) query(ctx context.Context) ([]nvidiaGPU, telemetry.Result, bool) {
	if _, err := n.run.LookPath(nvidiaSMI); err != nil {
		return nil, telemetry.Unavailable(), false
	}
	out, err := n.run.Output(ctx, nvidiaSMI, nvidiaQuery...)
	if err != nil {
		return nil, telemetry.Failed(fmt.Errorf("%s: %w", nvidiaSMI, err)), false
	}
	return parseNvidiaSMI(out), telemetry.Result{}, true
}

// graphics keys each GPU by name so WMI adapter details for the same card
// merge into one entry
func (n *nvidiaProviders) graphics(ctx context.Context) telemetry.Result {
	gpus, res, ok := n.query(ctx)
	if !ok {
		return res
	}
	m := telemetry.NewMetrics()
	for _, g := range gpus {
		if g.Name == "" {
			continue
		}
		entry := telemetry.NewMetrics().
			SetText("Name", g.Name).
			Set("GPU Load", telemetry.Number(g.Load, "%")).
			SetText("Memory Usage", fmt.Sprintf("%d MB / %d MB", g.MemUsedMB, g.MemTotalMB))
		if g.Temperature > 0 {
			entry.Set("Temperature", telemetry.Celsius(g.Temperature))
		}
		entry.SetTextOr("Driver", g.Driver)
		m.Set(uniqueKey(m, g.Name), telemetry.Nested(entry))
	}
	return telemetry.Success(m)
}

func (n *nvidiaProviders) temperature(ctx context.Context) telemetry.Result {
	gpus, res, ok := n.query(ctx)
	if !ok {
		return res
	}
	m := telemetry.NewMetrics()
	for i, g := range gpus {
		if g.Temperature <= 0 {
			continue
		}
		key := fmt.Sprintf("GPU %d (%s...)", i+1, headRunes(g.Name, 20))
		m.Set(uniqueKey(m, key), telemetry.Celsius(g.Temperature))
	}
	return telemetry.Success(m)
}
