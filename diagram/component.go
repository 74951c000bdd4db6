package diagram

import (
	"strconv"

	"ivrflow/geom"
	"ivrflow/surface"
)

type ComponentType int

const (
	TypeBlock ComponentType = iota
	TypeLink
	TypeMemo
)

func (t ComponentType) String() string {
	switch t {
	case TypeBlock:
		return "block"
	case TypeLink:
		return "link"
	case TypeMemo:
		return "memo"
	default:
		return "unknown"
	}
}

// Component is anything registered in a Diagram. The diagram owns its
// components; Remove deletes both the registry entry and the visuals.
type Component interface {
	Type() ComponentType
	ID() string
	Diagram() *Diagram
	Bounds() geom.Rect
	Selected() bool
	Select()
	Unselect()
	Remove()
	MovePosition(x, y float64)

	seq() int
	detach()
}

type base struct {
	id       int
	diagram  *Diagram
	selected bool
}

func (b *base) ID() string        { return strconv.Itoa(b.id) }
func (b *base) Diagram() *Diagram { return b.diagram }
func (b *base) Selected() bool    { return b.selected }
func (b *base) seq() int          { return b.id }

// drop detaches a primitive, tolerating one that is already gone.
func (b *base) drop(id surface.PrimitiveID) {
	if id == 0 {
		return
	}
	if err := b.diagram.surface.Remove(id); err != nil {
		b.diagram.log.Debug("detach ignored", "primitive", id, "err", err)
	}
}

// FormatID renders a component id the way documents store it.
func FormatID(id string) string {
	n, err := strconv.Atoi(id)
	if err != nil {
		return id
	}
	return formatSeq(n)
}

func formatSeq(n int) string {
	s := strconv.Itoa(n)
	for len(s) < 8 {
		s = "0" + s
	}
	return s
}
