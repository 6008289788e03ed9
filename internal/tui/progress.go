// Package tui renders sweep progress and run summaries in the terminal.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/chemopt/internal/batch"
)

// recentRows is how many finished runs the progress view lists.
const recentRows = 8

type (
	ProgressMsg batch.Progress
	DoneMsg     struct{ Err error }
	tickMsg     time.Time
)

// SweepModel is the bubbletea model behind `sweep --tui`.
type SweepModel struct {
	total, done int
	recent      []batch.Progress
	counts      map[string]int
	start       time.Time
	elapsed     time.Duration
	frame       int
	finished    bool
	Cancelled   bool
	Err         error
	width       int
}

func NewSweepModel(total int) SweepModel {
	return SweepModel{
		total:  total,
		counts: make(map[string]int),
		start:  time.Now(),
		width:  80,
	}
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m SweepModel) Init() tea.Cmd { return tick() }

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Cancelled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ProgressMsg:
		m.done = msg.Done
		m.counts[msg.Summary.Status]++
		m.recent = append(m.recent, batch.Progress(msg))
		if len(m.recent) > recentRows {
			m.recent = m.recent[len(m.recent)-recentRows:]
		}
	case DoneMsg:
		m.finished = true
		m.Err = msg.Err
		m.elapsed = time.Since(m.start)
		return m, tea.Quit
	case tickMsg:
		if m.finished {
			return m, nil
		}
		m.frame++
		m.elapsed = time.Since(m.start)
		return m, tick()
	}
	return m, nil
}

func (m SweepModel) View() string {
	var b strings.Builder

	head := Spinner(m.frame) + " "
	if m.finished {
		head = "✓ "
	}
	b.WriteString(Title.Render(head+"chemopt sweep") + "\n\n")

	fraction := 0.0
	if m.total > 0 {
		fraction = float64(m.done) / float64(m.total)
	}
	barWidth := max(10, min(50, m.width-30))
	fmt.Fprintf(&b, "%s %s %s\n\n",
		ProgressBar(fraction, barWidth),
		Value.Render(fmt.Sprintf("%d/%d", m.done, m.total)),
		Subtle.Render(m.elapsed.Round(time.Second).String()))

	statuses := make([]string, 0, len(m.counts))
	for s := range m.counts {
		statuses = append(statuses, s)
	}
	sort.Strings(statuses)
	for _, s := range statuses {
		fmt.Fprintf(&b, "  %s %s\n", StatusStyle(s).Render(fmt.Sprintf("%-16s", s)), Value.Render(fmt.Sprint(m.counts[s])))
	}
	if len(statuses) > 0 {
		b.WriteString("\n")
	}

	for _, p := range m.recent {
		fmt.Fprintf(&b, "  %s %s  %s\n",
			StatusStyle(p.Summary.Status).Render(fmt.Sprintf("%-16s", p.Summary.Status)),
			fmt.Sprintf("%-36s", p.Name),
			Label.Render(fmt.Sprintf("P=%.4g D=%.4f", p.Summary.FinalProduction, p.Summary.FinalDiversity)))
	}

	if m.Err != nil {
		b.WriteString("\n" + StatusBad.Render("error: "+m.Err.Error()) + "\n")
	}
	if !m.finished {
		b.WriteString("\n" + KeyHint.Render("q to cancel") + "\n")
	}
	return Panel.Render(b.String()) + "\n"
}
