package encoding

import (
	"time"

	"pulsepc/internal/telemetry"
)

// Document is the portable form of one snapshot. Entries keep the
// insertion order of the metrics they came from.
type Document struct {
	Category   string    `json:"category" yaml:"category" cbor:"1,keyasint"`
	Title      string    `json:"title" yaml:"title" cbor:"2,keyasint"`
	Sequence   uint64    `json:"sequence" yaml:"sequence" cbor:"3,keyasint"`
	CapturedAt time.Time `json:"captured_at,omitempty" yaml:"captured_at,omitempty" cbor:"4,keyasint,omitempty"`
	Available  bool      `json:"available" yaml:"available" cbor:"5,keyasint"`
	Metrics    []Entry   `json:"metrics" yaml:"metrics" cbor:"6,keyasint"`
}

// Entry kinds
const (
	KindText    = "text"
	KindNumber  = "number"
	KindInteger = "integer"
	KindGroup   = "group"
)

// Entry is one metric. Kind says which of Text, Value or Children is set.
type Entry struct {
	Key      string   `json:"key" yaml:"key" cbor:"1,keyasint"`
	Kind     string   `json:"kind" yaml:"kind" cbor:"7,keyasint"`
	Text     string   `json:"text,omitempty" yaml:"text,omitempty" cbor:"2,keyasint,omitempty"`
	Value    *float64 `json:"value,omitempty" yaml:"value,omitempty" cbor:"3,keyasint,omitempty"`
	Unit     string   `json:"unit,omitempty" yaml:"unit,omitempty" cbor:"4,keyasint,omitempty"`
	Display  string   `json:"display" yaml:"display" cbor:"5,keyasint"`
	Children []Entry  `json:"children,omitempty" yaml:"children,omitempty" cbor:"6,keyasint,omitempty"`
}

// FromSnapshot converts a snapshot
func FromSnapshot(snap *telemetry.Snapshot) Document {
	doc := Document{
		Category:  snap.Category().String(),
		Title:     snap.Category().Title(),
		Sequence:  snap.Sequence(),
		Available: snap.Available(),
		Metrics:   entries(snap.Metrics()),
	}
	if snap.Sequence() > 0 {
		doc.CapturedAt = snap.CapturedAt().UTC()
	}
	return doc
}

func entries(m *telemetry.Metrics) []Entry {
	out := make([]Entry, 0, m.Len())
	m.Each(func(key string, v telemetry.Value) bool {
		e := Entry{Key: key, Display: v.String()}
		switch v.Kind() {
		case telemetry.KindNested:
			e.Kind = KindGroup
			e.Children = entries(v.Group())
		case telemetry.KindNumber, telemetry.KindInteger:
			e.Kind = KindNumber
			if v.Kind() == telemetry.KindInteger {
				e.Kind = KindInteger
			}
			f, _ := v.Float()
			e.Value = &f
			e.Unit = v.Unit()
		default:
			e.Kind = KindText
			e.Text = v.String()
		}
		out = append(out, e)
		return true
	})
	return out
}

// ToMetrics rebuilds the metric tree of a decoded document
func (d Document) ToMetrics() *telemetry.Metrics {
	return rebuild(d.Metrics)
}

func rebuild(list []Entry) *telemetry.Metrics {
	m := telemetry.NewMetrics()
	for _, e := range list {
		switch {
		case e.Kind == KindGroup:
			m.Set(e.Key, telemetry.Nested(rebuild(e.Children)))
		case e.Kind == KindInteger && e.Value != nil:
			m.Set(e.Key, telemetry.Integer(int64(*e.Value)))
		case e.Kind == KindNumber && e.Value != nil:
			m.Set(e.Key, telemetry.Number(*e.Value, e.Unit))
		default:
			m.SetText(e.Key, e.Text)
		}
	}
	return m
}
