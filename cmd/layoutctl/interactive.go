package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/bespoke-runtime/dispatch"
	"github.com/wippyai/bespoke-runtime/layout"
	"github.com/wippyai/bespoke-runtime/runtime"
)

func fg(c string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(c)) }

var (
	titleStyle    = fg("#F5F5F5").Background(lipgloss.Color("#5B3FA8")).Bold(true).Padding(0, 1)
	selectedStyle = fg("#F5F5F5").Background(lipgloss.Color("#5B3FA8"))
	funcStyle     = fg("#A6E3A1")
	typeStyle     = fg("#89B4FA")
	syncStyle     = fg("#F9E2AF")
	errorStyle    = fg("#F38BA8")
	helpStyle     = fg("#6C7086")
)

var sourceStyles = map[dispatch.Source]lipgloss.Style{
	dispatch.SourceVTable:  funcStyle,
	dispatch.SourceBespoke: typeStyle,
	dispatch.SourceVanilla: syncStyle,
	dispatch.SourceGeneric: errorStyle,
}

func sourceStyle(s dispatch.Source) lipgloss.Style {
	if st, ok := sourceStyles[s]; ok {
		return st
	}
	return helpStyle
}

type modelState int

const (
	stateSelectLayout modelState = iota
	stateInputType
	stateShowTable
)

type interactiveModel struct {
	err      error
	rt       *runtime.Runtime
	opts     []runtime.Option
	witFile  string
	layouts  []layoutRow
	typ      dispatch.Type
	rows     []targetRow
	input    textinput.Model
	selected int
	state    modelState
}

func newInteractiveModel(witFile string, opts []runtime.Option) *interactiveModel {
	return &interactiveModel{
		witFile: witFile,
		opts:    opts,
		state:   stateSelectLayout,
	}
}

type loadedMsg struct {
	err     error
	rt      *runtime.Runtime
	layouts []layoutRow
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadRuntime
}

func (m *interactiveModel) loadRuntime() tea.Msg {
	rt, err := load(context.Background(), m.witFile, m.opts)
	if err != nil {
		return loadedMsg{err: err}
	}
	return loadedMsg{rt: rt, layouts: layoutRows(rt)}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.rt, m.layouts, m.err = msg.rt, msg.layouts, msg.err
		return m, nil
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" || (key == "q" && m.state != stateInputType) {
			if m.rt != nil {
				m.rt.Close(context.Background())
			}
			return m, tea.Quit
		}
		switch m.state {
		case stateSelectLayout:
			m.keyLayouts(key)
		case stateInputType:
			return m.keyInput(msg)
		case stateShowTable:
			if key == "enter" || key == "esc" {
				m.back()
			}
		}
	}
	return m, nil
}

func (m *interactiveModel) keyLayouts(key string) {
	switch key {
	case "up", "k":
		m.selected = max(m.selected-1, 0)
	case "down", "j":
		m.selected = min(m.selected+1, max(len(m.layouts)-1, 0))
	case "t":
		m.prepareInput()
		m.state = stateInputType
	case "enter":
		if m.selected < len(m.layouts) {
			l := m.layouts[m.selected]
			m.showType(fmt.Sprintf("%s@#%d", l.kinds, uint16(l.index)))
		}
	}
}

func (m *interactiveModel) keyInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.showType(m.input.Value())
		return m, nil
	case "esc":
		m.back()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) back() {
	m.state = stateSelectLayout
	m.err = nil
}

func (m *interactiveModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = "vec|dict@bespoke"
	ti.Prompt = "type: "
	ti.Width = 40
	ti.Focus()
	m.input = ti
}

// showType resolves the dispatch table of expr and switches to it.
func (m *interactiveModel) showType(expr string) {
	typ, err := dispatch.ParseType(m.rt.Registry(), expr)
	m.state = stateShowTable
	if err != nil {
		m.err = err
		m.rows = nil
		return
	}
	m.err = nil
	m.typ = typ
	m.rows = dispatchTable(m.rt.Dispatcher(), typ)
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowTable {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n" + helpStyle.Render("q quit")
	}
	if m.rt == nil {
		return "Loading layouts..."
	}

	source := "demo layouts"
	if m.witFile != "" {
		source = m.witFile
	}
	var body, help string
	switch m.state {
	case stateSelectLayout:
		body, help = m.viewLayouts(), "↑/↓ select • enter dispatch table • t type expression • q quit"
	case stateInputType:
		body, help = "Array type as kinds@layout:\n\n"+m.input.View(), "enter resolve • esc back"
	case stateShowTable:
		body, help = m.viewTable(), "enter back • q quit"
	}
	return titleStyle.Render("Layout Inspector") + " " + source + "\n\n" + body + "\n\n" + helpStyle.Render(help)
}

func (m *interactiveModel) viewLayouts() string {
	lines := []string{"Select a layout:", ""}
	for i, l := range m.layouts {
		if i == m.selected {
			lines = append(lines, selectedStyle.Render("> "+m.formatLayout(l)))
		} else {
			lines = append(lines, "  "+m.formatLayout(l))
		}
	}
	return strings.Join(lines, "\n")
}

func (m *interactiveModel) viewTable() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	return fmt.Sprintf("Dispatch for %s\n\n%s", typeStyle.Render(m.typ.String()), m.formatTable())
}

func (m *interactiveModel) formatLayout(l layoutRow) string {
	return fmt.Sprintf("%-6s %s %s %s",
		l.index, funcStyle.Render(l.name), typeStyle.Render(l.kinds+" "+l.class), helpStyle.Render(l.detail))
}

func (m *interactiveModel) formatTable() string {
	width := 0
	for _, r := range m.rows {
		width = max(width, len(r.op))
	}
	lines := make([]string, 0, len(m.rows)+2)
	for _, r := range m.rows {
		line := fmt.Sprintf("%-*s  %s %s", width, r.op,
			sourceStyle(r.source).Render(fmt.Sprintf("%-8s", r.source)), funcStyle.Render(r.symbol))
		if r.sync == dispatch.SyncPoint {
			line += " " + syncStyle.Render("[sync]")
		}
		lines = append(lines, line)
	}
	if _, ok := m.typ.Layout.Index(); ok && m.rt.Dispatcher().MaybeLogging(m.typ) {
		lines = append(lines, "", helpStyle.Render(fmt.Sprintf("may be a logging array (index %s)", layout.LoggingIndex)))
	}
	return strings.Join(lines, "\n")
}

func runInteractive(witFile string, opts []runtime.Option) error {
	p := tea.NewProgram(newInteractiveModel(witFile, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
