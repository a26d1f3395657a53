// Package tui renders a terminal busy indicator driven by the call tracker.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/iliamunaev/inflight/internal/indicator"
	"github.com/iliamunaev/inflight/internal/model"
	"github.com/iliamunaev/inflight/internal/tracker"
)

type stateMsg tracker.State

// DoneMsg ends the program once the batch has settled.
type DoneMsg struct {
	Results []model.CallResult
	Err     error
}

// Model is the bubbletea model for a running batch.
type Model struct {
	spinner   spinner.Model
	indicator *indicator.Indicator
	states    <-chan tracker.State

	count    int64
	seq      uint64
	results  []model.CallResult
	err      error
	done     bool
	quitting bool
}

// NewModel creates a model that shows ind and reads counter updates from states.
func NewModel(ind *indicator.Indicator, states <-chan tracker.State) Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = spinnerStyle
	return Model{spinner: s, indicator: ind, states: states}
}

// Init starts the spinner and the state listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForState(m.states))
}

func waitForState(states <-chan tracker.State) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-states)
	}
}

// Update handles keys, spinner ticks, counter updates and batch completion.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "h":
			if m.indicator.Enabled() {
				m.indicator.Disable()
			} else {
				m.indicator.Enable()
			}
		}
		return m, nil

	case stateMsg:
		if st := tracker.State(msg); st.NewerThan(m.seq) {
			m.count = st.CallingCount
			if st.Seq != 0 {
				m.seq = st.Seq
			}
		}
		return m, waitForState(m.states)

	case DoneMsg:
		m.done = true
		m.results = msg.Results
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current frame.
func (m Model) View() string {
	if m.done {
		return RenderResults(m.results) + "\n"
	}

	var b strings.Builder
	switch {
	case m.indicator.Visible():
		fmt.Fprintf(&b, "%s %s %s", m.spinner.View(), countStyle.Render(fmt.Sprint(m.count)), dimStyle.Render("call(s) in flight"))
	case !m.indicator.Enabled():
		b.WriteString(dimStyle.Render("indicator hidden"))
	default:
		b.WriteString(dimStyle.Render("idle"))
	}
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(footerKeyStyle.Render("h") + " toggle  " + footerKeyStyle.Render("q") + " quit"))
	b.WriteString("\n")
	return b.String()
}

// Quitting reports whether the user asked to stop.
func (m Model) Quitting() bool { return m.quitting }

// RenderResults formats one line per call.
func RenderResults(results []model.CallResult) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		badge := okStyle.Render("✓")
		if r.Outcome != "ok" {
			badge = failStyle.Render("✗")
		}
		status := "---"
		if r.StatusCode != 0 {
			status = fmt.Sprint(r.StatusCode)
		}
		line := fmt.Sprintf("%s %s %s %s", badge, status, r.URL, dimStyle.Render(fmt.Sprintf("%dms", r.DurationMS)))
		if r.Outcome != "ok" {
			line += " " + failStyle.Render(r.Outcome)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
