package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"closconv/internal/driver"
)

type progressModel struct {
	title   string
	events  <-chan driver.Event
	spinner spinner.Model
	prog    progress.Model
	items   []methodItem
	index   map[string]int
	elapsed time.Duration
	width   int
	done    bool
}

type methodItem struct {
	key     string
	status  driver.Status
	elapsed time.Duration
}

// maxRows bounds the method list; working and failed methods are shown first.
const maxRows = 12

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders per-method rewrite
// progress. The model quits when events is closed.
func NewProgressModel(title string, methods []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]methodItem, 0, len(methods))
	index := make(map[string]int, len(methods))
	for i, key := range methods {
		items = append(items, methodItem{key: key, status: driver.StatusQueued})
		index[key] = i
	}
	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	counts := fmt.Sprintf("%d/%d", m.finished(), len(m.items))
	if failed := m.count(driver.StatusError); failed > 0 {
		counts += fmt.Sprintf(", %d failed", failed)
	}
	header := fmt.Sprintf("%s (%s)", m.title, counts)
	if m.done {
		header = fmt.Sprintf("done: %s in %s", header, m.elapsed.Round(time.Millisecond))
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	const statusWidth, timeWidth = 12, 10
	nameWidth := max(m.width-statusWidth-timeWidth-6, 20)
	rows := m.visibleRows()
	for _, idx := range rows {
		item := m.items[idx]
		label := styleStatus(item.status).Render(fmt.Sprintf("%12s", statusLabel(item.status)))
		took := ""
		if item.elapsed > 0 {
			took = item.elapsed.Round(time.Microsecond).String()
		}
		fmt.Fprintf(&b, "  %s %*s %s\n", label, timeWidth, took, truncate(item.key, nameWidth))
	}
	if hidden := len(m.items) - len(rows); hidden > 0 {
		fmt.Fprintf(&b, "  ... and %d more\n", hidden)
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

// visibleRows picks at most maxRows items: working, then failed, then the
// rest in module order. The result is in module order.
func (m *progressModel) visibleRows() []int {
	if len(m.items) <= maxRows {
		rows := make([]int, len(m.items))
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	rank := func(st driver.Status) int {
		switch st {
		case driver.StatusWorking:
			return 0
		case driver.StatusError:
			return 1
		default:
			return 2
		}
	}
	rows := make([]int, 0, maxRows)
	for want := range 3 {
		for i, item := range m.items {
			if len(rows) == maxRows {
				break
			}
			if rank(item.status) == want {
				rows = append(rows, i)
			}
		}
	}
	slices.Sort(rows)
	return rows
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	if ev.Method == "" {
		m.elapsed = ev.Elapsed
		return nil
	}
	idx, ok := m.index[ev.Method]
	if !ok {
		return nil
	}
	m.items[idx].status = ev.Status
	m.items[idx].elapsed = ev.Elapsed

	total := 0.0
	for _, item := range m.items {
		total += progressFromStatus(item.status)
	}
	return m.prog.SetPercent(total / float64(len(m.items)))
}

func (m *progressModel) finished() int {
	n := 0
	for _, item := range m.items {
		if progressFromStatus(item.status) == 1.0 {
			n++
		}
	}
	return n
}

func (m *progressModel) count(status driver.Status) int {
	n := 0
	for _, item := range m.items {
		if item.status == status {
			n++
		}
	}
	return n
}

func progressFromStatus(status driver.Status) float64 {
	switch status {
	case driver.StatusWorking:
		return 0.5
	case driver.StatusDone, driver.StatusUnchanged, driver.StatusError:
		return 1.0
	default:
		return 0.0
	}
}

func statusLabel(status driver.Status) string {
	switch status {
	case driver.StatusWorking:
		return "rewriting"
	case "":
		return ""
	default:
		return string(status)
	}
}

func styleStatus(status driver.Status) lipgloss.Style {
	switch status {
	case driver.StatusDone:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case driver.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case driver.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
