package diagram

import (
	"log/slog"

	"ivrflow/geom"
)

// LineType selects the link routing style.
type LineType string

const (
	LineStraight   LineType = "L"
	LineBezier     LineType = "B"
	LineOrthogonal LineType = "O"
)

// MemoToken arms create mode for a memo instead of a catalog node.
const MemoToken = "$memo"

const DefaultMoveUnit = 50

type ComponentListener func(Component)

type ContextMenuListener func(ContextMenuEvent)

type ContextMenuEvent struct {
	// Component is nil when the menu was requested on empty canvas.
	Component Component
	Point     geom.Point
}

type Options struct {
	OnContextMenu    ContextMenuListener
	OnNodeCreated    ComponentListener
	OnNodeSelected   ComponentListener
	OnNodeUnSelected ComponentListener

	UseBackgroundPattern bool
	LineType             LineType
	// MoveUnit is the grid-snap size; zero means DefaultMoveUnit and a
	// negative value disables snapping.
	MoveUnit float64
	// RoundedCorners draws orthogonal links with arc corners.
	RoundedCorners bool

	MemoBorderColor         string
	MemoBorderColorSelected string
	MemoBackgroundColor     string
	MemoFontSize            float64
	// MemoRemoveConfirm gates memo deletion. Nil accepts every removal.
	MemoRemoveConfirm func(*Memo) bool

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MoveUnit == 0 {
		o.MoveUnit = DefaultMoveUnit
	}
	if o.MemoBorderColor == "" {
		o.MemoBorderColor = "#c9b458"
	}
	if o.MemoBorderColorSelected == "" {
		o.MemoBorderColorSelected = "#1e88e5"
	}
	if o.MemoBackgroundColor == "" {
		o.MemoBackgroundColor = "#fff8c4"
	}
	if o.MemoFontSize == 0 {
		o.MemoFontSize = 12
	}
	if o.MemoRemoveConfirm == nil {
		o.MemoRemoveConfirm = func(*Memo) bool { return true }
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// margin is the distance a routed link travels straight out of an anchor.
func (o Options) margin() float64 {
	if o.LineType == LineBezier {
		return 80
	}
	return 40
}
