package telemetry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ProviderStats counts the outcomes of one provider
type ProviderStats struct {
	Category    Category
	Provider    string
	Successes   uint64
	Empty       uint64
	Unavailable uint64
	Failures    uint64
	Timeouts    uint64
	LastError   string
	LastErrorAt time.Time
	LastLatency time.Duration
}

type statsKey struct {
	category Category
	provider string
}

// Diagnostics records provider outcomes so swallowed failures stay visible
type Diagnostics struct {
	mu    sync.Mutex
	stats map[statsKey]*ProviderStats
}

// NewDiagnostics creates an empty recorder
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{stats: make(map[statsKey]*ProviderStats)}
}

// Record stores the outcome of one invocation
func (d *Diagnostics) Record(c Category, provider string, res Result, latency time.Duration) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	k := statsKey{c, provider}
	s, ok := d.stats[k]
	if !ok {
		s = &ProviderStats{Category: c, Provider: provider}
		d.stats[k] = s
	}
	s.LastLatency = latency

	switch res.Status {
	case StatusSuccess:
		if res.Metrics.Empty() {
			s.Empty++
		} else {
			s.Successes++
		}
	case StatusUnavailable:
		s.Unavailable++
	case StatusFailed:
		s.Failures++
		if errors.Is(res.Err, ErrTimeout) {
			s.Timeouts++
		}
		if res.Err != nil {
			s.LastError = res.Err.Error()
		}
		s.LastErrorAt = time.Now()
	}
}

// Snapshot returns a copy of all counters ordered by category then provider
func (d *Diagnostics) Snapshot() []ProviderStats {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	out := make([]ProviderStats, 0, len(d.stats))
	for _, s := range d.stats {
		out = append(out, *s)
	}
	d.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Provider < out[j].Provider
	})
	return out
}

// Stats returns the counters of a single provider
func (d *Diagnostics) Stats(c Category, provider string) (ProviderStats, bool) {
	if d == nil {
		return ProviderStats{}, false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.stats[statsKey{c, provider}]
	if !ok {
		return ProviderStats{}, false
	}
	return *s, true
}
