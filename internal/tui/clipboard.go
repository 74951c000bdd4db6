package tui

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"

	"ivrflow/diagram"
)

// copyToClipboard puts the scenario document on the system clipboard.
func (m *Model) copyToClipboard() {
	data, err := diagram.Serialize(m.diagram)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		m.errorMessage = fmt.Sprintf("Clipboard unavailable: %v", err)
		return
	}
	m.message = fmt.Sprintf("Copied %d components to clipboard", m.diagram.Len())
}

func readClipboardText() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.TrimRight(text, "\n"), nil
}

// pasteMemo drops the clipboard text as a new memo in the middle of the
// view.
func (m *Model) pasteMemo() {
	text, err := readClipboardText()
	if err != nil {
		m.errorMessage = fmt.Sprintf("Clipboard unavailable: %v", err)
		return
	}
	if text == "" {
		m.message = "Clipboard is empty"
		return
	}
	memo, err := m.diagram.AddMemo(m.surface.ViewBox().Center(), text)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.diagram.ClearSelection()
	memo.Select()
	m.dirty = true
	m.message = "Pasted memo"
}
