package telemetry

import (
	"reflect"
	"testing"
)

func TestMetrics_KeepsInsertionOrder(t *testing.T) {
	m := NewMetrics()
	m.SetText("Name", "eth0").SetText("Status", "Up").SetText("MTU", "1500")
	m.SetText("Name", "eth1")

	want := []string{"Name", "Status", "MTU"}
	if got := m.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if v, _ := m.Get("Name"); v.String() != "eth1" {
		t.Errorf("Expected overwritten value eth1, got %s", v)
	}

	m.Delete("Status")
	if got := m.Keys(); !reflect.DeepEqual(got, []string{"Name", "MTU"}) {
		t.Errorf("Unexpected keys after delete: %v", got)
	}
}

func TestMetrics_CloneIsDeep(t *testing.T) {
	inner := metricsOf("Total", "10 GB")
	m := NewMetrics().Set("C:", Nested(inner))

	c := m.Clone()
	inner.SetText("Total", "changed")

	v, _ := c.Get("C:")
	if got, _ := v.Group().Get("Total"); got.String() != "10 GB" {
		t.Errorf("Clone shares nested state, got %s", got)
	}
}

func TestMetrics_FillFromKeepsExisting(t *testing.T) {
	m := metricsOf("a", 1, "b", 2)
	m.FillFrom(metricsOf("b", 9, "c", 3))

	if !m.Equal(metricsOf("a", 1, "b", 2, "c", 3)) {
		t.Errorf("Unexpected merge result: %v", m.Keys())
	}
}

func TestMetrics_SetTextOrUnknown(t *testing.T) {
	m := NewMetrics().SetTextOr("Serial Number", "")
	if v, _ := m.Get("Serial Number"); v.String() != Unknown {
		t.Errorf("Expected %q, got %q", Unknown, v)
	}
}

func TestMetrics_NilSafeReads(t *testing.T) {
	var m *Metrics
	if !m.Empty() || m.Len() != 0 || m.Keys() != nil {
		t.Error("nil metrics should read as empty")
	}
	if _, ok := m.Get("x"); ok {
		t.Error("nil metrics should not contain keys")
	}
}
