// ABOUTME: Terminal rendering of a picker session as a single-choice list.
// ABOUTME: Shows a spinner while loading, previews on select, confirms or cancels the session.

package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/777genius/tonepicker/internal/logging"
	"github.com/777genius/tonepicker/internal/picker"
	"github.com/777genius/tonepicker/internal/selection"
	"github.com/777genius/tonepicker/internal/tones"
)

// Session is the part of *picker.Session the model drives.
type Session interface {
	Wait(ctx context.Context) (picker.Snapshot, error)
	Select(i int) error
	Confirm() (picker.Result, bool, error)
	Cancel() error
}

// Outcome is how the picker ended.
type Outcome int

const (
	Pending Outcome = iota
	Confirmed
	Cancelled
	Failed
)

type loadedMsg struct {
	snap picker.Snapshot
	err  error
}

// chrome is the number of lines used around the list.
const chrome = 6

// Model is the bubbletea model of one picker session.
type Model struct {
	ctx     context.Context
	session Session
	req     picker.Request
	keys    KeyMap
	spinner spinner.Model

	loading  bool
	entries  []tones.Entry
	cursor   int
	selected int
	offset   int
	height   int

	status  string
	outcome Outcome
	result  picker.Result
	chosen  bool
	err     error
}

// New creates a model for a started session.
func New(ctx context.Context, session Session, req picker.Request) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		ctx:      ctx,
		session:  session,
		req:      req,
		keys:     DefaultKeyMap(req.PositiveText, req.NegativeText),
		spinner:  s,
		loading:  true,
		selected: selection.NotFound,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitCmd())
}

func (m Model) waitCmd() tea.Cmd {
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		snap, err := session.Wait(ctx)
		return loadedMsg{snap: snap, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		return m.handleLoaded(msg)

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.scroll()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleLoaded(msg loadedMsg) (tea.Model, tea.Cmd) {
	m.loading = false
	if msg.err != nil {
		logging.Error("Picker failed to load: %v", msg.err)
		m.err = msg.err
		m.outcome = Failed
		return m, tea.Quit
	}

	m.entries = msg.snap.Entries
	m.selected = msg.snap.SelectedIndex
	if m.selected >= 0 {
		m.cursor = m.selected
	}
	m.scroll()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		if err := m.session.Cancel(); err != nil {
			logging.Warn("Cancel: %v", err)
		}
		m.outcome = Cancelled
		return m, tea.Quit
	}
	if m.loading {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		m.scroll()

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.entries)-1 {
			m.cursor++
		}
		m.scroll()

	case key.Matches(msg, m.keys.Select):
		if len(m.entries) == 0 {
			return m, nil
		}
		m.selected = m.cursor
		m.status = ""
		if err := m.session.Select(m.cursor); err != nil {
			m.status = err.Error()
		}

	case key.Matches(msg, m.keys.Confirm):
		res, ok, err := m.session.Confirm()
		if err != nil {
			m.err = err
			m.outcome = Failed
			return m, tea.Quit
		}
		m.result, m.chosen = res, ok
		m.outcome = Confirmed
		return m, tea.Quit
	}
	return m, nil
}

// visibleRows is how many entries fit on screen; 0 means unlimited.
func (m Model) visibleRows() int {
	if m.height <= chrome {
		return 0
	}
	return m.height - chrome
}

func (m *Model) scroll() {
	rows := m.visibleRows()
	if rows == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.req.Title))
	b.WriteString("\n")

	if m.loading {
		fmt.Fprintf(&b, "%s Loading tones...\n", m.spinner.View())
		return b.String()
	}
	if m.outcome != Pending {
		return ""
	}

	if len(m.entries) == 0 {
		b.WriteString(mutedStyle.Render("No tones found"))
		b.WriteString("\n")
	}

	end := len(m.entries)
	if rows := m.visibleRows(); rows > 0 && m.offset+rows < end {
		end = m.offset + rows
	}
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderEntry(i))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(errorStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help())
	return b.String()
}

func (m Model) renderEntry(i int) string {
	radio := "( )"
	style := itemStyle
	if i == m.selected {
		radio = "(•)"
		style = selectedStyle
	}

	line := radio + " " + m.entries[i].Name
	if i == m.cursor {
		return cursorStyle.Render("> ") + style.Render(line)
	}
	return "  " + style.Render(line)
}

func (m Model) help() string {
	parts := make([]string, 0, len(m.keys.ShortHelp()))
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, helpKeyStyle.Render(h.Key)+" "+mutedStyle.Render(h.Desc))
	}
	return strings.Join(parts, mutedStyle.Render(" • "))
}

// Outcome returns how the picker ended.
func (m Model) Outcome() Outcome { return m.outcome }

// Result returns the confirmed tone, if the session reported one.
func (m Model) Result() (picker.Result, bool) { return m.result, m.chosen }

// Err returns the error that ended the picker, if any.
func (m Model) Err() error { return m.err }

// Run shows the picker on out until it is confirmed or cancelled.
func Run(ctx context.Context, session Session, req picker.Request, in io.Reader, out io.Writer) (Model, error) {
	p := tea.NewProgram(New(ctx, session, req),
		tea.WithContext(ctx),
		tea.WithInput(in),
		tea.WithOutput(out),
	)
	final, err := p.Run()
	if err != nil {
		return Model{}, fmt.Errorf("picker UI: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return Model{}, fmt.Errorf("picker UI: unexpected model %T", final)
	}
	return m, m.err
}
