package telemetry

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable, versioned set of metrics for one category.
// Any update produces a new Snapshot.
type Snapshot struct {
	category   Category
	sequence   uint64
	capturedAt time.Time
	metrics    *Metrics
}

// Category returns the category the snapshot describes
func (s *Snapshot) Category() Category { return s.category }

// Sequence returns the per-category version. Zero means nothing was ever resolved.
func (s *Snapshot) Sequence() uint64 { return s.sequence }

// CapturedAt returns when the snapshot was assembled
func (s *Snapshot) CapturedAt() time.Time { return s.capturedAt }

// Len returns the number of top-level metrics
func (s *Snapshot) Len() int { return s.metrics.Len() }

// Keys returns top-level keys in presentation order
func (s *Snapshot) Keys() []string { return s.metrics.Keys() }

// Get returns a top-level value. Nested groups must be treated as read-only;
// use Metrics for a mutable copy.
func (s *Snapshot) Get(key string) (Value, bool) { return s.metrics.Get(key) }

// Each visits top-level metrics in order
func (s *Snapshot) Each(fn func(key string, v Value) bool) { s.metrics.Each(fn) }

// Metrics returns a deep copy the caller may modify freely
func (s *Snapshot) Metrics() *Metrics { return s.metrics.Clone() }

// Available reports whether the snapshot carries real data rather than the placeholder
func (s *Snapshot) Available() bool {
	return s.sequence > 0 && !IsPlaceholder(s.category, s.metrics)
}

// NewerThan reports whether s supersedes a previously read sequence number
func (s *Snapshot) NewerThan(seq uint64) bool { return s.sequence > seq }

// emptySnapshot is what the sink hands out before the first publish
func emptySnapshot(c Category) *Snapshot {
	return &Snapshot{category: c, metrics: Placeholder(c)}
}

// Assembler stamps resolver output into snapshots
type Assembler struct {
	counters [categoryCount]atomic.Uint64
	now      func() time.Time
}

// NewAssembler creates an assembler using the wall clock
func NewAssembler() *Assembler {
	return &Assembler{now: time.Now}
}

// Assemble freezes m into the next snapshot of c. The assembler keeps its
// own copy, so later changes to m are not visible through the snapshot.
func (a *Assembler) Assemble(c Category, m *Metrics) *Snapshot {
	if m.Empty() {
		m = Placeholder(c)
	}
	return &Snapshot{
		category:   c,
		sequence:   a.counters[c].Add(1),
		capturedAt: a.now(),
		metrics:    m.Clone(),
	}
}

// LastSequence returns the most recent sequence number issued for c
func (a *Assembler) LastSequence(c Category) uint64 {
	return a.counters[c].Load()
}
