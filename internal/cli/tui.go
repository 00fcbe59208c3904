package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/sldview/pkg/style"
)

var listDimStyle = lipgloss.NewStyle().Foreground(colorDim)

// =============================================================================
// LegendModel - Interactive legend browser
// =============================================================================

// LegendModel is the bubbletea model behind `inspect --interactive`. It
// pages through the legend and toggles to the renderer's class table.
type LegendModel struct {
	Title    string
	Summary  string
	Items    []style.LegendItem
	Renderer style.Renderer

	Cursor      int
	Offset      int
	Height      int
	ShowClasses bool
}

// NewLegendModel creates a browser for a compiled style.
func NewLegendModel(title string, res style.Result) LegendModel {
	return LegendModel{
		Title:    title,
		Summary:  rendererSummary(res),
		Items:    res.Legend,
		Renderer: res.Renderer,
		Height:   15,
	}
}

func (m LegendModel) Init() tea.Cmd {
	return nil
}

func (m LegendModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.move(-1)
		case "down", "j":
			m.move(1)
		case "pgup":
			m.move(-m.Height)
		case "pgdown", " ":
			m.move(m.Height)
		case "home", "g":
			m.move(-len(m.Items))
		case "end", "G":
			m.move(len(m.Items))
		case "tab", "c":
			if classTable(m.Renderer) != "" {
				m.ShowClasses = !m.ShowClasses
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
		m.move(0)
	}
	return m, nil
}

// move shifts the cursor by delta, clamped to the legend, and scrolls the
// window so the cursor stays visible.
func (m *LegendModel) move(delta int) {
	if len(m.Items) == 0 {
		return
	}
	m.Cursor = min(max(m.Cursor+delta, 0), len(m.Items)-1)
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func (m LegendModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(m.Summary))
	b.WriteString("\n")
	help := "↑/↓ navigate  q quit"
	if classTable(m.Renderer) != "" {
		help = "↑/↓ navigate  tab classes  q quit"
	}
	b.WriteString(listDimStyle.Render(help))
	b.WriteString("\n\n")

	if m.ShowClasses {
		b.WriteString(classTable(m.Renderer))
		return b.String()
	}

	if len(m.Items) == 0 {
		b.WriteString(StyleWarning.Render("No legend items"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Items))
	b.WriteString(legendTable(m.Items[m.Offset:end], m.Offset, m.Cursor-m.Offset))
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Items))))
	return b.String()
}
