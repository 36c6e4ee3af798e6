package telemetry

import (
	"fmt"
	"strconv"
)

// NotAvailable is the placeholder shown for anything that could not be collected
const NotAvailable = "Information not available"

// Unknown is used for individual fields a source did not report
const Unknown = "Unknown"

// Kind tags the variant held by a Value
type Kind uint8

const (
	KindText Kind = iota
	KindNumber
	KindInteger
	KindNested
)

// Value is a metric value: text, a number with an optional unit, an integer
// count, or a nested group of metrics
type Value struct {
	kind   Kind
	text   string
	num    float64
	unit   string
	nested *Metrics
}

// Text creates a string value
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number creates a floating value rounded to one decimal place
func Number(f float64, unit string) Value {
	return Value{kind: KindNumber, num: Round1(f), unit: unit}
}

// Integer creates a whole-number value
func Integer(n int64) Value {
	return Value{kind: KindInteger, num: float64(n)}
}

// Nested wraps a group of metrics as a single value
func Nested(m *Metrics) Value {
	return Value{kind: KindNested, nested: m}
}

// Kind returns the value variant
func (v Value) Kind() Kind { return v.kind }

// Unit returns the unit attached to a number, or ""
func (v Value) Unit() string { return v.unit }

// Float returns the numeric content and whether the value is numeric
func (v Value) Float() (float64, bool) {
	if v.kind == KindNumber || v.kind == KindInteger {
		return v.num, true
	}
	return 0, false
}

// Group returns the nested metrics, or nil if v is not nested
func (v Value) Group() *Metrics {
	if v.kind != KindNested {
		return nil
	}
	return v.nested
}

// String renders the value for display
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		s := strconv.FormatFloat(v.num, 'f', 1, 64)
		if v.unit == "" {
			return s
		}
		if v.unit == "%" || v.unit == "°C" {
			return s + v.unit
		}
		return s + " " + v.unit
	case KindInteger:
		return strconv.FormatInt(int64(v.num), 10)
	case KindNested:
		return fmt.Sprintf("(%d entries)", v.nested.Len())
	default:
		return v.text
	}
}

// Equal compares two values, descending into nested groups
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNested:
		return v.nested.Equal(o.nested)
	case KindText:
		return v.text == o.text
	default:
		return v.num == o.num && v.unit == o.unit
	}
}

func (v Value) clone() Value {
	if v.kind == KindNested {
		v.nested = v.nested.Clone()
	}
	return v
}

// Metrics is an insertion-ordered mapping of metric keys to values.
// Setting an existing key replaces its value in place without moving it.
type Metrics struct {
	keys   []string
	values map[string]Value
}

// NewMetrics creates an empty set
func NewMetrics() *Metrics {
	return &Metrics{values: make(map[string]Value)}
}

// Set stores v under key, keeping the original position if key exists
func (m *Metrics) Set(key string, v Value) *Metrics {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
	return m
}

// SetText is shorthand for Set(key, Text(s))
func (m *Metrics) SetText(key, s string) *Metrics {
	return m.Set(key, Text(s))
}

// SetTextOr stores s, or Unknown when s is empty
func (m *Metrics) SetTextOr(key, s string) *Metrics {
	if s == "" {
		s = Unknown
	}
	return m.Set(key, Text(s))
}

// Get returns the value stored under key
func (m *Metrics) Get(key string) (Value, bool) {
	if m == nil {
		return Value{}, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present
func (m *Metrics) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key if present
func (m *Metrics) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Len returns the number of keys
func (m *Metrics) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Empty reports whether the set has no keys
func (m *Metrics) Empty() bool {
	return m.Len() == 0
}

// Keys returns a copy of the keys in insertion order
func (m *Metrics) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Each visits every entry in insertion order; returning false stops the walk
func (m *Metrics) Each(fn func(key string, v Value) bool) {
	if m == nil {
		return
	}
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

// Clone returns a deep copy
func (m *Metrics) Clone() *Metrics {
	if m == nil {
		return nil
	}
	out := &Metrics{
		keys:   append([]string(nil), m.keys...),
		values: make(map[string]Value, len(m.values)),
	}
	for k, v := range m.values {
		out.values[k] = v.clone()
	}
	return out
}

// Equal compares keys and values, ignoring key order
func (m *Metrics) Equal(o *Metrics) bool {
	if m.Len() != o.Len() {
		return false
	}
	for _, k := range m.Keys() {
		ov, ok := o.Get(k)
		if !ok || !m.values[k].Equal(ov) {
			return false
		}
	}
	return true
}

// FillFrom copies entries from lower into m for keys m does not have.
// Nested groups present on both sides are filled recursively.
// Existing values in m always win.
func (m *Metrics) FillFrom(lower *Metrics) {
	lower.Each(func(k string, v Value) bool {
		cur, ok := m.values[k]
		switch {
		case !ok:
			m.Set(k, v.clone())
		case cur.kind == KindNested && v.kind == KindNested:
			merged := cur.nested.Clone()
			merged.FillFrom(v.nested)
			m.values[k] = Nested(merged)
		}
		return true
	})
}

// Placeholder returns the sentinel set shown when a category has no working source
func Placeholder(c Category) *Metrics {
	key := "Information"
	if c.Valid() {
		key = placeholderKeys[c]
	}
	return NewMetrics().SetText(key, NotAvailable)
}

// IsPlaceholder reports whether m is the sentinel for c
func IsPlaceholder(c Category, m *Metrics) bool {
	return m.Equal(Placeholder(c))
}
