package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"ivrflow/export"
	"ivrflow/geom"
	"ivrflow/surface"
)

const doubleClickDelay = 400 * time.Millisecond

// pointer turns terminal mouse reports into the pointer events the
// diagram expects. Terminals only report press, motion and release, so
// click and double-click are synthesized here.
type pointer struct {
	now func() time.Time

	held             bool
	moved            bool
	downCol, downRow int

	lastClick        time.Time
	lastCol, lastRow int
}

func newPointer() *pointer {
	return &pointer{now: time.Now}
}

// cellCenter is the client position of the middle of a terminal cell.
func cellCenter(col, row int) geom.Point {
	return geom.Pt(float64(col)*export.CellWidth+export.CellWidth/2, float64(row)*export.CellHeight+export.CellHeight/2)
}

func (p *pointer) buttons() int {
	if p.held {
		return 1
	}
	return 0
}

func (p *pointer) translate(msg tea.MouseMsg) []surface.PointerEvent {
	at := cellCenter(msg.X, msg.Y)
	ev := surface.PointerEvent{Client: at, Shift: msg.Shift}

	switch msg.Action {
	case tea.MouseActionPress:
		switch msg.Button {
		case tea.MouseButtonLeft:
			p.held, p.moved = true, false
			p.downCol, p.downRow = msg.X, msg.Y
			ev.Type, ev.Button, ev.Buttons = surface.PointerDown, surface.ButtonPrimary, 1
			return []surface.PointerEvent{ev}
		case tea.MouseButtonRight:
			ev.Type, ev.Button, ev.Buttons = surface.ContextMenu, surface.ButtonSecondary, p.buttons()
			return []surface.PointerEvent{ev}
		}
	case tea.MouseActionMotion:
		if p.held && (msg.X != p.downCol || msg.Y != p.downRow) {
			p.moved = true
		}
		ev.Type, ev.Buttons = surface.PointerMove, p.buttons()
		return []surface.PointerEvent{ev}
	case tea.MouseActionRelease:
		if !p.held {
			return nil
		}
		p.held = false
		ev.Type, ev.Button = surface.PointerUp, surface.ButtonPrimary
		out := []surface.PointerEvent{ev}
		if p.moved {
			return out
		}
		click := ev
		click.Type = surface.Click
		out = append(out, click)

		now := p.now()
		if now.Sub(p.lastClick) <= doubleClickDelay && msg.X == p.lastCol && msg.Y == p.lastRow {
			dbl := ev
			dbl.Type = surface.DoubleClick
			out = append(out, dbl)
			p.lastClick = time.Time{}
			return out
		}
		p.lastClick, p.lastCol, p.lastRow = now, msg.X, msg.Y
		return out
	}
	return nil
}

// leave reports the pointer leaving the terminal; any held button is
// considered released.
func (p *pointer) leave() surface.PointerEvent {
	p.held = false
	return surface.PointerEvent{Type: surface.PointerLeave, Client: geom.Pt(-1, -1)}
}
