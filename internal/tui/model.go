// Package tui is the terminal editor for scenario diagrams. It hosts a
// diagram on an in-memory surface and renders it as a character grid.
package tui

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"ivrflow/diagram"
	"ivrflow/export"
	"ivrflow/internal/config"
	"ivrflow/surface"
)

const (
	defaultCols = 80
	defaultRows = 24
	editorRows  = 4
)

// removeGate answers the diagram's memo removal question. The terminal
// cannot block inside the callback, so the model asks first and opens
// the gate around the removal.
type removeGate struct {
	confirmations bool
	granted       bool
}

func (g *removeGate) allow(*diagram.Memo) bool {
	return !g.confirmations || g.granted
}

type Model struct {
	diagram *diagram.Diagram
	surface *surface.Memory
	meta    *diagram.Metadata
	config  *config.Config
	logger  *slog.Logger
	path    string

	gate    *removeGate
	pointer *pointer
	editor  textarea.Model
	editing *diagram.Memo

	width  int
	height int

	mode     Mode
	confirm  ConfirmAction
	showHelp bool
	dirty    bool

	message      string
	errorMessage string
}

// Open loads the scenario at path, or starts an empty one when the file
// does not exist yet.
func Open(meta *diagram.Metadata, path string, cfg *config.Config, logger *slog.Logger) (Model, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := Model{
		meta:    meta,
		config:  cfg,
		logger:  logger,
		path:    path,
		gate:    &removeGate{confirmations: cfg.Confirmations},
		pointer: newPointer(),
		width:   defaultCols,
		height:  defaultRows,
	}
	m.surface = surface.NewMemory(float64(m.width)*export.CellWidth, float64(m.canvasRows())*export.CellHeight)

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		m.diagram, err = diagram.New(m.surface, meta, m.options())
		if err != nil {
			return Model{}, err
		}
		m.message = fmt.Sprintf("New scenario %s", filepath.Base(path))
	case err != nil:
		return Model{}, fmt.Errorf("tui: %w", err)
	default:
		m.diagram, err = diagram.DeserializeBytes(m.surface, meta, data, m.options())
		if err != nil {
			return Model{}, err
		}
		m.message = fmt.Sprintf("Loaded %s", filepath.Base(path))
	}

	m.editor = newEditor(m.width)
	return m, nil
}

func (m Model) options() diagram.Options {
	opts := m.config.Options()
	opts.MemoRemoveConfirm = m.gate.allow
	opts.Logger = m.logger
	return opts
}

func newEditor(width int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Memo text..."
	ta.CharLimit = 2000
	ta.ShowLineNumbers = false
	ta.SetWidth(width)
	ta.SetHeight(editorRows - 1)
	return ta
}

func (m Model) Diagram() *diagram.Diagram { return m.diagram }
func (m Model) Mode() Mode                { return m.mode }
func (m Model) Dirty() bool               { return m.dirty }

func (m Model) canvasRows() int {
	rows := m.height - 1
	if rows < 1 {
		rows = 1
	}
	return rows
}

// visibleRows is the part of the canvas not covered by the memo editor.
func (m Model) visibleRows() int {
	if m.mode == ModeEditMemo {
		return max(m.canvasRows()-editorRows, 0)
	}
	return m.canvasRows()
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.BlurMsg:
		m.dispatch(m.pointer.leave())
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		m.errorMessage = ""
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		switch m.mode {
		case ModeEditMemo:
			return m.handleEditorKey(msg)
		case ModeConfirm:
			return m.handleConfirmKey(msg)
		default:
			return m.handleKey(msg)
		}
	}
	return m, nil
}

// resize keeps the zoom level: the view box grows with the terminal.
func (m *Model) resize(width, height int) {
	oldW, oldH := m.surface.ClientSize()
	m.width, m.height = width, height
	w := float64(width) * export.CellWidth
	h := float64(m.canvasRows()) * export.CellHeight
	vb := m.surface.ViewBox()
	if oldW > 0 && oldH > 0 {
		vb.W *= w / oldW
		vb.H *= h / oldH
	}
	m.surface.Resize(w, h)
	m.surface.SetViewBox(vb)
	m.editor.SetWidth(width)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action == tea.MouseActionPress {
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.diagram.ZoomIn()
			return m, nil
		case tea.MouseButtonWheelDown:
			m.diagram.ZoomOut()
			return m, nil
		}
	}
	if msg.Y >= m.visibleRows() {
		return m, nil
	}
	// a press elsewhere commits the memo being typed before the diagram
	// blurs it with its stored text
	if m.mode == ModeEditMemo && msg.Action == tea.MouseActionPress {
		m.commitMemo()
	}
	for _, ev := range m.pointer.translate(msg) {
		m.dispatch(ev)
	}
	m.syncMode()
	return m, nil
}

func (m *Model) dispatch(ev surface.PointerEvent) {
	before, armed := m.diagram.State(), m.diagram.CreateMode()
	if err := m.diagram.Dispatch(ev); err != nil {
		m.errorMessage = err.Error()
		m.logger.Warn("pointer event failed", "event", ev.Type.String(), "err", err)
		return
	}
	switch {
	case ev.Type == surface.PointerUp && (before == diagram.Dragging || before == diagram.LinkCreating):
		m.dirty = true
	case ev.Type == surface.Click && armed != "" && m.diagram.CreateMode() == "":
		m.dirty = true
	}
}

// syncMode follows the diagram: create mode ends once a component is
// placed and a double-clicked memo opens the editor.
func (m *Model) syncMode() {
	if memo := m.diagram.EditingMemo(); memo != nil && m.mode != ModeEditMemo {
		m.startEditing(memo)
		return
	}
	if m.mode == ModeCreate && m.diagram.CreateMode() == "" {
		m.mode = ModeNormal
	}
}

func (m *Model) startEditing(memo *diagram.Memo) {
	memo.BeginEdit()
	m.editing = memo
	m.mode = ModeEditMemo
	m.editor.SetValue(memo.Text())
	m.editor.Focus()
}

func (m *Model) commitMemo() {
	if m.editing == nil {
		return
	}
	if text := m.editor.Value(); text != m.editing.Text() {
		m.dirty = true
	}
	m.editing.EndEdit(m.editor.Value())
	m.editing = nil
	m.editor.Blur()
	m.editor.Reset()
	m.mode = ModeNormal
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s":
		m.commitMemo()
		m.message = "Memo updated"
		return m, nil
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	switch strings.ToLower(msg.String()) {
	case "y":
		switch m.confirm {
		case ConfirmDeleteMemo:
			m.removeSelected(true)
		case ConfirmQuit:
			return m, tea.Quit
		}
	default:
		m.message = "Cancelled"
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		if m.dirty && m.config.Confirmations {
			m.mode, m.confirm = ModeConfirm, ConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.showHelp = true
	case "esc":
		m.diagram.SetCreateMode("")
		m.diagram.ClearSelection()
		m.mode = ModeNormal
	case "+", "=":
		m.diagram.ZoomIn()
	case "-", "_":
		m.diagram.ZoomOut()
	case "0":
		m.resetView()
	case "a":
		m.diagram.SelectAll()
	case "u":
		m.undo()
	case "ctrl+r", "U":
		m.diagram.Redo()
		m.message = "Redo is not available"
	case "d", "x", "delete", "backspace":
		m.deleteSelected()
	case "m":
		m.diagram.SetCreateMode(diagram.MemoToken)
		m.mode = ModeCreate
		m.message = "Click to place a memo"
	case "e", "enter":
		m.editSelected()
	case "s", "ctrl+s":
		m.save()
	case "y":
		m.copyToClipboard()
	case "p":
		m.pasteMemo()
	case "P":
		m.exportTo(export.FormatPNG)
	case "S":
		m.exportTo(export.FormatSVG)
	case "T":
		m.exportTo(export.FormatText)
	default:
		if m.handlePan(msg) {
			break
		}
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.armNode(int(key[0] - '1'))
		}
	}
	return m, nil
}

func (m *Model) armNode(index int) {
	keys := m.meta.NodeKeys()
	if index >= len(keys) {
		m.errorMessage = fmt.Sprintf("No node type #%d", index+1)
		return
	}
	m.diagram.SetCreateMode(keys[index])
	m.mode = ModeCreate
	m.message = fmt.Sprintf("Click to place %s", m.meta.Nodes[keys[index]].DisplayName)
}

func (m *Model) undo() {
	if m.diagram.Actions().Len() == 0 {
		m.message = "Nothing to undo"
		return
	}
	if err := m.diagram.Undo(); err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.dirty = true
	m.message = "Undone"
}

func (m *Model) deleteSelected() {
	sel := m.diagram.Selection()
	if len(sel) == 0 {
		return
	}
	for _, c := range sel {
		if c.Type() == diagram.TypeMemo && m.config.Confirmations {
			m.mode, m.confirm = ModeConfirm, ConfirmDeleteMemo
			return
		}
	}
	m.removeSelected(false)
}

func (m *Model) removeSelected(confirmed bool) {
	n := len(m.diagram.Selection())
	m.gate.granted = confirmed
	m.diagram.RemoveSelected()
	m.gate.granted = false
	m.dirty = true
	m.message = fmt.Sprintf("Deleted %d component(s)", n-len(m.diagram.Selection()))
}

func (m *Model) editSelected() {
	sel := m.diagram.Selection()
	if len(sel) != 1 {
		return
	}
	if memo, ok := sel[0].(*diagram.Memo); ok {
		m.startEditing(memo)
	}
}

func (m *Model) resetView() {
	w, h := m.surface.ClientSize()
	vb := m.surface.ViewBox()
	vb.W, vb.H = w, h
	m.surface.SetViewBox(vb)
}

func (m *Model) save() {
	data, err := diagram.Serialize(m.diagram)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		m.errorMessage = fmt.Sprintf("Error saving: %v", err)
		return
	}
	m.dirty = false
	m.message = fmt.Sprintf("Saved to %s", m.path)
	m.logger.Info("scenario saved", "path", m.path, "components", m.diagram.Len())
}

func (m *Model) exportTo(f export.Format) {
	base := strings.TrimSuffix(m.path, filepath.Ext(m.path)) + "." + string(f)
	path := base
	if m.config.SaveDirectory != "" {
		var err error
		if path, err = m.config.SavePath(filepath.Base(base)); err != nil {
			m.errorMessage = err.Error()
			return
		}
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, m.surface, f); err != nil {
		m.errorMessage = fmt.Sprintf("Error exporting: %v", err)
		return
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		m.errorMessage = fmt.Sprintf("Error exporting: %v", err)
		return
	}
	m.message = fmt.Sprintf("Exported %s", path)
}
