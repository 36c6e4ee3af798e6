package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"pulsepc/internal/telemetry"
)

// Engine is the part of the scheduler the dashboard drives
type Engine interface {
	SetActiveCategories(cats ...telemetry.Category)
	IsDynamic(c telemetry.Category) bool
	Refresh(ctx context.Context, c telemetry.Category) (*telemetry.Snapshot, error)
}

type pollMsg time.Time

type refreshedMsg struct {
	category telemetry.Category
	snap     *telemetry.Snapshot
	err      error
}

// Dashboard is the live view: a category sidebar and the selected snapshot.
// Only the selected category is kept active, so the scheduler idles while
// a static category is on screen.
type Dashboard struct {
	ctx    context.Context
	engine Engine
	sink   *telemetry.Sink

	cats    []telemetry.Category
	cursor  int
	current *telemetry.Snapshot
	lastSeq uint64
	loading bool
	err     error

	spinner spinner.Model
	gauge   progress.Model
	width   int
	height  int
	poll    time.Duration
	now     func() time.Time
}

// NewDashboard creates the model. poll is how often the sink is checked for
// a newer snapshot of the selected category.
func NewDashboard(ctx context.Context, engine Engine, sink *telemetry.Sink, poll time.Duration) *Dashboard {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(PrimaryColor)

	g := progress.New(progress.WithDefaultGradient())
	g.Width = 30

	if poll <= 0 {
		poll = 200 * time.Millisecond
	}
	return &Dashboard{
		ctx:     ctx,
		engine:  engine,
		sink:    sink,
		cats:    telemetry.AllCategories(),
		spinner: s,
		gauge:   g,
		poll:    poll,
		now:     time.Now,
	}
}

// Selected returns the category on screen
func (d *Dashboard) Selected() telemetry.Category { return d.cats[d.cursor] }

func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.selectCategory(d.cursor), d.spinner.Tick, d.tick())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.poll, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func (d *Dashboard) refresh(c telemetry.Category) tea.Cmd {
	return func() tea.Msg {
		snap, err := d.engine.Refresh(d.ctx, c)
		return refreshedMsg{category: c, snap: snap, err: err}
	}
}

// selectCategory switches the view and the active set. Static categories
// that were never collected are refreshed once on demand.
func (d *Dashboard) selectCategory(i int) tea.Cmd {
	d.cursor = i
	c := d.cats[i]
	d.err = nil
	d.current = d.sink.Get(c)
	d.lastSeq = d.current.Sequence()

	if d.engine.IsDynamic(c) {
		d.engine.SetActiveCategories(c)
		d.loading = d.lastSeq == 0
		return nil
	}

	d.engine.SetActiveCategories()
	if d.lastSeq > 0 {
		d.loading = false
		return nil
	}
	d.loading = true
	return d.refresh(c)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			d.engine.SetActiveCategories()
			return d, tea.Quit
		case "up", "k", "shift+tab":
			return d, d.selectCategory((d.cursor + len(d.cats) - 1) % len(d.cats))
		case "down", "j", "tab":
			return d, d.selectCategory((d.cursor + 1) % len(d.cats))
		case "r":
			d.loading = true
			return d, d.refresh(d.Selected())
		}

	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		return d, nil

	case pollMsg:
		if snap, ok := d.sink.Changed(d.Selected(), d.lastSeq); ok {
			d.current = snap
			d.lastSeq = snap.Sequence()
			d.loading = false
		}
		return d, d.tick()

	case refreshedMsg:
		if msg.category != d.Selected() {
			return d, nil
		}
		d.loading = false
		d.err = msg.err
		if msg.snap != nil && msg.snap.Sequence() >= d.lastSeq {
			d.current = msg.snap
			d.lastSeq = msg.snap.Sequence()
		}
		return d, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *Dashboard) View() string {
	var items []string
	for i, c := range d.cats {
		label := c.Title()
		if d.engine.IsDynamic(c) {
			label += " " + IconDot
		}
		if i == d.cursor {
			items = append(items, SidebarSelectedStyle.Width(20).Render(IconArrow+" "+label))
		} else {
			items = append(items, SidebarItemStyle.Width(20).Render("  "+label))
		}
	}
	sidebar := SidebarStyle.Render(strings.Join(items, "\n"))

	return lipgloss.JoinHorizontal(lipgloss.Top, sidebar, ContentStyle.Render(d.content())) + "\n" +
		HelpStyle.Render("  ↑/↓ select • r refresh • q quit • "+IconDot+" live") + "\n"
}

func (d *Dashboard) content() string {
	var b strings.Builder
	if d.loading {
		b.WriteString(d.spinner.View() + " " + GrayStyle.Render("Collecting "+d.Selected().Title()+"..."))
		b.WriteString("\n")
		return b.String()
	}
	if label, pct, ok := headline(d.current); ok {
		b.WriteString(PrimaryStyle.Render(label) + "  " + d.gauge.ViewAs(pct/100) + "\n\n")
	}
	b.WriteString(RenderSnapshot(d.current, d.now()))
	if d.err != nil {
		b.WriteString(RenderStatus("error", d.err.Error()) + "\n")
	}
	return b.String()
}

// headline finds the first top-level percentage of a snapshot
func headline(snap *telemetry.Snapshot) (string, float64, bool) {
	if snap == nil || !snap.Available() {
		return "", 0, false
	}
	var (
		label string
		pct   float64
		found bool
	)
	snap.Each(func(key string, v telemetry.Value) bool {
		if p, ok := Percent(v); ok {
			label, pct, found = key, p, true
			return false
		}
		return true
	})
	return label, pct, found
}
