package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"pulsepc/internal/telemetry"
)

const (
	maxValueWidth = 48
	barWidth      = 20
)

// RenderSnapshot renders one category as a boxed section
func RenderSnapshot(snap *telemetry.Snapshot, now time.Time) string {
	var b strings.Builder
	b.WriteString(RenderSectionStart(snap.Category().Title()))
	b.WriteString("\n")

	if !snap.Available() {
		b.WriteString(RenderStatus("warning", telemetry.NotAvailable))
		b.WriteString("\n")
	} else {
		renderMetrics(&b, snap.Metrics(), 0)
	}

	b.WriteString(RenderSectionEnd())
	b.WriteString("\n")
	if snap.Sequence() > 0 {
		b.WriteString(MutedStyle.Render(fmt.Sprintf("  updated %s, #%s",
			humanize.RelTime(snap.CapturedAt(), now, "ago", "from now"),
			humanize.Comma(int64(snap.Sequence())))))
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMetrics renders a metric tree without the section frame
func RenderMetrics(m *telemetry.Metrics) string {
	var b strings.Builder
	renderMetrics(&b, m, 0)
	return b.String()
}

func renderMetrics(b *strings.Builder, m *telemetry.Metrics, depth int) {
	m.Each(func(key string, v telemetry.Value) bool {
		if g := v.Group(); g != nil {
			b.WriteString(strings.Repeat("  ", depth+1))
			b.WriteString(GroupTitleStyle.Render(key))
			b.WriteString("\n")
			renderMetrics(b, g, depth+1)
			return true
		}
		line := RenderKeyValue(depth, key, truncateString(v.String(), maxValueWidth))
		if pct, ok := Percent(v); ok {
			line += "  " + RenderProgressBar(pct, barWidth)
		}
		b.WriteString(line)
		b.WriteString("\n")
		return true
	})
}

// Percent returns the value of a percentage metric
func Percent(v telemetry.Value) (float64, bool) {
	if v.Unit() != "%" {
		return 0, false
	}
	return v.Float()
}

// RenderDiagnostics lists provider outcome counters
func RenderDiagnostics(stats []telemetry.ProviderStats) string {
	if len(stats) == 0 {
		return "  No providers have run yet\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("%-12s %-26s %8s %8s %8s %8s %10s", "CATEGORY", "PROVIDER", "OK", "EMPTY", "N/A", "FAILED", "LATENCY")
	b.WriteString("  " + BoldStyle.Render(header) + "\n")
	b.WriteString("  " + SeparatorStyle.Render(strings.Repeat(BoxHorizontal, lipgloss.Width(header))) + "\n")

	for _, s := range stats {
		failed := humanize.Comma(int64(s.Failures))
		if s.Failures > 0 {
			failed = ErrorStyle.Render(fmt.Sprintf("%8s", failed))
		} else {
			failed = fmt.Sprintf("%8s", failed)
		}
		fmt.Fprintf(&b, "  %-12s %-26s %8s %8s %8s %s %10s\n",
			s.Category,
			truncateString(s.Provider, 26),
			humanize.Comma(int64(s.Successes)),
			humanize.Comma(int64(s.Empty)),
			humanize.Comma(int64(s.Unavailable)),
			failed,
			s.LastLatency.Round(time.Millisecond))
		if s.LastError != "" {
			b.WriteString("    " + MutedStyle.Render(truncateString(s.LastError, 80)) + "\n")
		}
	}
	return b.String()
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
