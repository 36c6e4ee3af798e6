package telemetry

import (
	"context"
	"fmt"
	"time"
)

// Well-known metric keys shared by providers and post-processing
const (
	KeyBootTime        = "Boot Time"
	KeyUptime          = "System Uptime"
	KeyTotal           = "Total"
	KeyUsed            = "Used"
	KeyFree            = "Free"
	KeyUsage           = "Usage"
	KeyTotalRAM        = "Total RAM"
	KeyAvailable       = "Available"
	KeyUsagePercent    = "Usage Percentage"
	KeyAvailablePct    = "Available Percentage"
	KeyCPUUsage        = "CPU Usage"
	KeyRAMUsage        = "RAM Usage"
	KeyTemperaturePref = "Temperature - "
)

// Bytes creates a raw byte count. Resolvers convert these to display units.
func Bytes(n uint64) Value {
	return Value{kind: KindInteger, num: float64(n), unit: "B"}
}

// PostProcessor derives or converts fields after merging
type PostProcessor func(m *Metrics, now time.Time)

// Resolver maps a category to its chain and applies category post-processing
type Resolver struct {
	chains [categoryCount]*Chain
	post   [categoryCount][]PostProcessor
	now    func() time.Time
}

// ResolverOption customizes a resolver
type ResolverOption func(*Resolver)

// WithClock replaces the wall clock used for derived fields
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// WithPostProcessor appends a post-processing step for c
func WithPostProcessor(c Category, p PostProcessor) ResolverOption {
	return func(r *Resolver) {
		if c.Valid() {
			r.post[c] = append(r.post[c], p)
		}
	}
}

// NewResolver creates a resolver over reg with the standard post-processing
func NewResolver(reg *Registry, diag *Diagnostics, opts ...ResolverOption) *Resolver {
	r := &Resolver{now: time.Now}
	for _, c := range AllCategories() {
		r.chains[c] = NewChain(reg, c, diag)
	}

	r.post[SystemSummary] = []PostProcessor{deriveUptime, convertBytes(1)}
	r.post[Memory] = []PostProcessor{deriveMemoryPercentages, convertBytes(2)}
	r.post[Storage] = []PostProcessor{deriveVolumeUsage, convertBytes(1)}
	for _, c := range []Category{OperatingSystem, Cpu, Motherboard, Graphics, Optical, Audio, Peripherals, Network, Thermal} {
		r.post[c] = []PostProcessor{convertBytes(1)}
	}

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve produces the metrics of c. An error means nothing should be
// published for this round; the caller keeps the previous snapshot.
func (r *Resolver) Resolve(ctx context.Context, c Category) (m *Metrics, err error) {
	if !c.Valid() {
		return nil, fmt.Errorf("resolve: invalid category %d", c)
	}
	defer func() {
		if rec := recover(); rec != nil {
			m, err = nil, fmt.Errorf("resolve %s: panic: %v", c, rec)
		}
	}()

	m = r.chains[c].Run(ctx)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", c, err)
	}
	if IsPlaceholder(c, m) {
		return m, nil
	}

	now := r.now()
	for _, p := range r.post[c] {
		p(m, now)
	}
	return m, nil
}

func deriveUptime(m *Metrics, now time.Time) {
	v, ok := m.Get(KeyBootTime)
	if !ok {
		return
	}
	boot, ok := v.Float()
	if !ok {
		return
	}
	uptime := now.Sub(time.Unix(int64(boot), 0))
	m.Delete(KeyBootTime)
	m.SetText(KeyUptime, FormatUptime(uptime))
}

func rawBytes(m *Metrics, key string) (uint64, bool) {
	v, ok := m.Get(key)
	if !ok || v.Unit() != "B" {
		return 0, false
	}
	f, _ := v.Float()
	return uint64(f), true
}

func deriveMemoryPercentages(m *Metrics, _ time.Time) {
	total, ok := rawBytes(m, KeyTotalRAM)
	if !ok {
		return
	}
	// usage is total minus available, the same figure the summary reports
	avail, hasAvail := rawBytes(m, KeyAvailable)
	if !m.Has(KeyUsagePercent) {
		if hasAvail && avail <= total {
			m.Set(KeyUsagePercent, UsagePercent(total-avail, total))
		} else if used, ok := rawBytes(m, KeyUsed); ok {
			m.Set(KeyUsagePercent, UsagePercent(used, total))
		}
	}
	if hasAvail && !m.Has(KeyAvailablePct) {
		m.Set(KeyAvailablePct, UsagePercent(avail, total))
	}
}

// deriveVolumeUsage adds a Usage field to every group holding Total and Used
func deriveVolumeUsage(m *Metrics, _ time.Time) {
	total, okT := rawBytes(m, KeyTotal)
	used, okU := rawBytes(m, KeyUsed)
	if okT && okU {
		m.Set(KeyUsage, UsagePercent(used, total))
	}
	m.Each(func(_ string, v Value) bool {
		if g := v.Group(); g != nil {
			deriveVolumeUsage(g, time.Time{})
		}
		return true
	})
}

// convertBytes rewrites raw byte counts as gigabyte strings, recursively
func convertBytes(decimals int) PostProcessor {
	var conv func(m *Metrics, _ time.Time)
	conv = func(m *Metrics, _ time.Time) {
		for _, k := range m.Keys() {
			v, _ := m.Get(k)
			if g := v.Group(); g != nil {
				conv(g, time.Time{})
				continue
			}
			if b, ok := rawBytes(m, k); ok {
				m.Set(k, GB(b, decimals))
			}
		}
	}
	return conv
}
