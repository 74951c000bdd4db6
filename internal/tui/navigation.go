package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// panCells is how many terminal cells one pan keystroke moves the view.
const panCells = 4

func getMoveSpeed(key string) float64 {
	switch key {
	case "H", "L", "K", "J", "shift+left", "shift+right", "shift+up", "shift+down":
		return 2
	default:
		return 1
	}
}

// handlePan moves the view box and reports whether the key was a pan key.
func (m *Model) handlePan(msg tea.KeyMsg) bool {
	key := msg.String()
	vb := m.surface.ViewBox()
	cols, rows := float64(m.width), float64(m.canvasRows())
	stepX := getMoveSpeed(key) * panCells * vb.W / cols
	stepY := getMoveSpeed(key) * panCells / 2 * vb.H / rows

	switch key {
	case "h", "left", "H", "shift+left":
		m.diagram.Pan(-stepX, 0)
	case "l", "right", "L", "shift+right":
		m.diagram.Pan(stepX, 0)
	case "k", "up", "K", "shift+up":
		m.diagram.Pan(0, -stepY)
	case "j", "down", "J", "shift+down":
		m.diagram.Pan(0, stepY)
	default:
		return false
	}
	return true
}
