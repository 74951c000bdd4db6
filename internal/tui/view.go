package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ivrflow/export"
)

var (
	statusStyle = lipgloss.NewStyle().Reverse(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#d32f2f")).Bold(true)
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f9a825")).Bold(true)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

func (m Model) View() string {
	if m.showHelp {
		return m.helpView()
	}

	rows := m.canvasRows()
	grid := export.Rasterize(m.surface, m.surface.ViewBox(), max(m.width, 1), rows)
	lines := renderGrid(grid)
	if m.mode == ModeEditMemo {
		keep := max(rows-editorRows, 0)
		lines = append(lines[:keep], strings.Split(m.editorView(), "\n")...)
	}

	var result strings.Builder
	for _, line := range lines {
		result.WriteString(line)
		result.WriteString("\n")
	}
	result.WriteString(m.statusLine())
	return result.String()
}

// renderGrid colours each run of cells drawn by the same primitive.
func renderGrid(g *export.Grid) []string {
	styles := map[string]lipgloss.Style{}
	out := make([]string, g.Rows)
	for row := 0; row < g.Rows; row++ {
		var line, run strings.Builder
		color := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if color == "" {
				line.WriteString(run.String())
			} else {
				st, ok := styles[color]
				if !ok {
					st = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
					styles[color] = st
				}
				line.WriteString(st.Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < g.Cols; col++ {
			cell := g.At(col, row)
			if cell.Color != color {
				flush()
				color = cell.Color
			}
			run.WriteRune(cell.Ch)
		}
		flush()
		out[row] = line.String()
	}
	return out
}

func (m Model) editorView() string {
	header := titleStyle.Render("Editing memo") + " (esc or ctrl+s to finish)"
	return header + "\n" + m.editor.View()
}

func (m Model) statusLine() string {
	if m.mode == ModeConfirm {
		return promptStyle.Render(m.confirm.prompt())
	}
	if m.errorMessage != "" {
		return errorStyle.Render("Error: " + m.errorMessage)
	}

	name := filepath.Base(m.path)
	if m.dirty {
		name += " [+]"
	}
	status := fmt.Sprintf("Mode: %s | %s | %d components | %d selected",
		m.modeString(), name, m.diagram.Len(), len(m.diagram.Selection()))
	if m.message != "" {
		status += " | " + m.message
	}
	status += " | ? for help | q to quit"
	if w := lipgloss.Width(status); m.width > 0 && w < m.width {
		status += strings.Repeat(" ", m.width-w)
	}
	return statusStyle.Render(status)
}

func (m Model) modeString() string {
	if m.mode == ModeCreate {
		if key := m.diagram.CreateMode(); key != "" {
			return fmt.Sprintf("%s %s", m.mode, key)
		}
	}
	if state := m.diagram.State().String(); state != "idle" {
		return fmt.Sprintf("%s (%s)", m.mode, state)
	}
	return m.mode.String()
}

func (m Model) helpView() string {
	helpLines := []string{
		"ivrflow Help",
		"============",
		"",
		"Mouse:",
		"------",
		"  Click            Select a block, link or memo",
		"  Shift+Click      Toggle a component in the selection",
		"  Drag             Move the selection (snaps to the grid)",
		"  Drag canvas      Marquee select",
		"  Drag anchor      Connect two blocks",
		"  Double click     Edit a memo",
		"  Wheel            Zoom",
		"",
		"Navigation:",
		"-----------",
		"  h/←/j/↓/k/↑/l/→  Pan the view",
		"  Shift+h/j/k/l    Pan 2x faster",
		"  +/-              Zoom in/out",
		"  0                Reset zoom",
		"",
		"Editing:",
		"--------",
		"  1-9              Place a node type (click to drop it)",
		"  m                Place a memo",
		"  e                Edit the selected memo",
		"  d                Delete the selection",
		"  a                Select all",
		"  u                Undo",
		"  Esc              Clear selection and create mode",
		"",
		"Files:",
		"------",
		"  s                Save scenario",
		"  y                Copy scenario XML to clipboard",
		"  p                Paste clipboard text as a memo",
		"  P/S/T            Export PNG, SVG or text",
		"",
		"Node types:",
		"-----------",
	}
	for i, key := range m.meta.NodeKeys() {
		if i >= 9 {
			break
		}
		helpLines = append(helpLines, fmt.Sprintf("  %d                %s (%s)", i+1, m.meta.Nodes[key].DisplayName, key))
	}
	helpLines = append(helpLines, "", "Press any key to return")
	return strings.Join(helpLines, "\n")
}
