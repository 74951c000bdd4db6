package diagram

import (
	"strings"

	"ivrflow/geom"
	"ivrflow/surface"
)

const (
	memoWidth   = 150
	memoHeight  = 100
	memoPadding = 6
)

// Memo is a free text note. It is not part of the flow graph.
type Memo struct {
	base
	text    string
	bounds  geom.Rect
	editing bool

	boxPrim  *surface.Primitive
	textPrim *surface.Primitive
}

func newMemo(d *Diagram, id int, bounds geom.Rect, text string) *Memo {
	if bounds.W == 0 || bounds.H == 0 {
		bounds.W, bounds.H = memoWidth, memoHeight
	}
	m := &Memo{base: base{id: id, diagram: d}, text: text, bounds: bounds}
	m.attach()
	return m
}

func (m *Memo) Type() ComponentType  { return TypeMemo }
func (m *Memo) Text() string         { return m.text }
func (m *Memo) Bounds() geom.Rect    { return m.bounds }
func (m *Memo) Editing() bool        { return m.editing }
func (m *Memo) Position() geom.Point { return m.bounds.Min() }

// Lines splits the text the way it is laid out inside the memo.
func (m *Memo) Lines() []string {
	return strings.Split(m.text, "\n")
}

func (m *Memo) SetText(text string) {
	m.text = text
	m.textPrim.Text = text
	m.diagram.surface.Update(m.textPrim)
}

func (m *Memo) MovePosition(x, y float64) {
	m.bounds.X, m.bounds.Y = x, y
	m.layout()
}

func (m *Memo) Resize(w, h float64) {
	m.bounds.W, m.bounds.H = w, h
	m.layout()
}

// BeginEdit makes the content editable until EndEdit.
func (m *Memo) BeginEdit() {
	if m.editing {
		return
	}
	m.editing = true
	m.diagram.editing = m
	m.restyle()
}

// EndEdit commits the edited text and leaves edit mode.
func (m *Memo) EndEdit(text string) {
	if !m.editing {
		return
	}
	m.editing = false
	if m.diagram.editing == m {
		m.diagram.editing = nil
	}
	m.SetText(text)
	m.restyle()
}

func (m *Memo) Select() {
	if m.selected {
		return
	}
	m.selected = true
	m.restyle()
	m.diagram.appendToSelection(m)
}

func (m *Memo) Unselect() {
	if !m.selected {
		return
	}
	m.selected = false
	m.restyle()
	m.diagram.removeFromSelection(m)
}

// Remove deletes the memo if the confirmation predicate agrees.
func (m *Memo) Remove() {
	if !m.diagram.opts.MemoRemoveConfirm(m) {
		return
	}
	m.remove()
}

func (m *Memo) remove() {
	d := m.diagram
	if d.components[m.id] != Component(m) {
		return
	}
	state := m.state()
	if m.editing {
		m.EndEdit(m.text)
	}
	m.Unselect()
	m.detach()
	d.unregister(m)
	d.actions.Append(OpRemoveMemo, state)
}

func (m *Memo) attach() {
	s := m.diagram.surface
	m.boxPrim = &surface.Primitive{Kind: surface.KindRect, Layer: surface.LayerNodes, Class: "memo"}
	m.textPrim = &surface.Primitive{
		Kind:  surface.KindText,
		Layer: surface.LayerLabels,
		Text:  m.text,
		Class: "memo-text",
		Style: surface.Style{Fill: "#3e2723", FontSize: m.diagram.opts.MemoFontSize, Anchor: "start"},
	}
	s.Add(m.boxPrim)
	s.Add(m.textPrim)
	m.restyle()
	m.layout()
}

func (m *Memo) layout() {
	s := m.diagram.surface
	m.boxPrim.Bounds = m.bounds
	s.Update(m.boxPrim)
	m.textPrim.Center = geom.Pt(m.bounds.X+memoPadding, m.bounds.Y+memoPadding+m.diagram.opts.MemoFontSize)
	s.Update(m.textPrim)
}

func (m *Memo) restyle() {
	opts := m.diagram.opts
	st := surface.Style{Stroke: opts.MemoBorderColor, Fill: opts.MemoBackgroundColor, StrokeWidth: 1}
	if m.selected {
		st.Stroke = opts.MemoBorderColorSelected
	}
	st.Dash = m.editing
	m.boxPrim.Style = st
	m.diagram.surface.Update(m.boxPrim)
}

func (m *Memo) detach() {
	m.drop(m.boxPrim.ID)
	m.drop(m.textPrim.ID)
}

type memoState struct {
	ID       int
	Text     string
	Bounds   geom.Rect
	Selected bool
}

func (m *Memo) state() memoState {
	return memoState{ID: m.id, Text: m.text, Bounds: m.bounds, Selected: m.selected}
}
