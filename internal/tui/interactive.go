package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jb388/ise-fahey/internal/report"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// RunItem is one entry of the run menu.
type RunItem struct {
	ID    string
	Label string
	Info  string
}

// Loader returns the Markdown report of a run.
type Loader func(id string) (string, error)

type state int

const (
	stateMenu state = iota
	statePage
)

type model struct {
	state  state
	cursor int
	runs   []RunItem
	load   Loader

	title  string
	pages  []report.Page
	page   int
	offset int
	err    error

	width  int
	height int
}

// NewBrowser starts at a menu of runs and opens the selected run's report.
func NewBrowser(runs []RunItem, load Loader) *model {
	return &model{state: stateMenu, runs: runs, load: load, width: 80, height: 24}
}

// NewPager pages through one Markdown report.
func NewPager(title, md string) *model {
	m := &model{state: statePage, title: title, width: 80, height: 24}
	m.pages = report.SplitSections(md)
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.offset = m.clampOffset(m.offset)
		return m, nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch m.state {
	case stateMenu:
		return m.menuKey(msg)
	case statePage:
		return m.pageKey(msg)
	}
	return m, nil
}

func (m model) menuKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.runs)-1 {
			m.cursor++
		}
	case "enter", " ":
		if len(m.runs) == 0 || m.load == nil {
			return m, nil
		}
		run := m.runs[m.cursor]
		md, err := m.load(run.ID)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.title = run.Label
		m.pages = report.SplitSections(md)
		m.page, m.offset = 0, 0
		m.state = statePage
		return m, tea.ClearScreen
	}
	return m, nil
}

func (m model) pageKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		if len(m.runs) > 0 {
			m.state = stateMenu
			return m, tea.ClearScreen
		}
		return m, tea.Quit
	case "right", "l", "tab", "n":
		if m.page < len(m.pages)-1 {
			m.page++
			m.offset = 0
		}
	case "left", "h", "shift+tab", "p":
		if m.page > 0 {
			m.page--
			m.offset = 0
		}
	case "down", "j":
		m.offset = m.clampOffset(m.offset + 1)
	case "up", "k":
		m.offset = m.clampOffset(m.offset - 1)
	case "pgdown", " ":
		m.offset = m.clampOffset(m.offset + m.bodyHeight())
	case "pgup":
		m.offset = m.clampOffset(m.offset - m.bodyHeight())
	case "home", "g":
		m.offset = 0
	}
	return m, nil
}

func (m model) bodyHeight() int {
	h := m.height - 7
	if h < 5 {
		h = 5
	}
	return h
}

func (m model) lines() []string {
	if m.page >= len(m.pages) {
		return nil
	}
	return strings.Split(m.pages[m.page].Body, "\n")
}

func (m model) clampOffset(off int) int {
	limit := len(m.lines()) - m.bodyHeight()
	if off > limit {
		off = limit
	}
	if off < 0 {
		off = 0
	}
	return off
}

func (m model) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case statePage:
		return m.viewPage()
	}
	return ""
}

func (m model) viewMenu() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("            " + cyan.Render("i s e c 1 4") + "\n")
	b.WriteString(dimmer.Render("    ╺━━━━━━━━━━━━━━━━━━━━━━━━╸") + "\n")
	b.WriteString("\n")

	if len(m.runs) == 0 {
		b.WriteString("      " + dim.Render("no stored runs; use `isec14 run` first") + "\n")
	}
	for i, run := range m.runs {
		if i == m.cursor {
			b.WriteString("      " + cyan.Render("▸ ") + white.Render(fmt.Sprintf("%-24s", run.Label)) + dim.Render(run.Info) + "\n")
		} else {
			b.WriteString("        " + dim.Render(fmt.Sprintf("%-24s", run.Label)) + dimmer.Render(run.Info) + "\n")
		}
	}
	if m.err != nil {
		b.WriteString("\n      " + red.Render(m.err.Error()) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(dim.Render("      ↑↓ select   enter open   q quit") + "\n")
	return b.String()
}

func (m model) viewPage() string {
	var b strings.Builder
	b.WriteString("\n")
	if len(m.pages) == 0 {
		b.WriteString("      " + dim.Render("report is empty") + "\n")
		b.WriteString("\n" + dim.Render("      q quit") + "\n")
		return b.String()
	}

	pg := m.pages[m.page]
	b.WriteString("  " + cyan.Render(m.title) + "  " + dim.Render(fmt.Sprintf("%d/%d", m.page+1, len(m.pages))) + "\n")
	b.WriteString("  " + yellow.Render(pg.Title) + "\n")
	rule := m.width - 4
	if rule < 10 {
		rule = 10
	}
	b.WriteString(dimmer.Render("  "+strings.Repeat("─", rule)) + "\n")

	lines := m.lines()
	end := m.offset + m.bodyHeight()
	if end > len(lines) {
		end = len(lines)
	}
	for _, l := range lines[m.offset:end] {
		b.WriteString("  " + white.Render(l) + "\n")
	}

	b.WriteString("\n")
	hint := "      ←→ section   ↑↓ scroll   q quit"
	if len(m.runs) > 0 {
		hint += "   esc runs"
	}
	b.WriteString(dim.Render(hint) + "\n")
	return b.String()
}

// Run starts a Bubble Tea program on the alternate screen.
func Run(m tea.Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
