// Package surface defines the drawing surface the diagram engine renders
// onto and the pointer events it receives back from the host.
package surface

import (
	"errors"

	"ivrflow/geom"
)

// ErrDetached is returned when removing a primitive that is not attached.
var ErrDetached = errors.New("surface: primitive not attached")

type PrimitiveID int

type Kind int

const (
	KindRect Kind = iota
	KindCircle
	KindPolygon
	KindPath
	KindLine
	KindText
	KindImage
	KindPattern
)

func (k Kind) String() string {
	switch k {
	case KindRect:
		return "rect"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	case KindPath:
		return "path"
	case KindLine:
		return "line"
	case KindText:
		return "text"
	case KindImage:
		return "image"
	case KindPattern:
		return "pattern"
	default:
		return "unknown"
	}
}

// Layers order primitives back to front.
const (
	LayerBackground = iota
	LayerLinks
	LayerNodes
	LayerLabels
	LayerAnchors
	LayerOverlay
)

type Style struct {
	Stroke      string
	Fill        string
	StrokeWidth float64
	Dash        bool
	FontSize    float64
	Opacity     float64
	ArrowEnd    bool
	Anchor      string // text anchor: start, middle, end
}

// Primitive is a retained vector shape. Which geometry fields apply
// depends on Kind: Rect/Image/Pattern use Bounds, Circle uses Center and
// Radius, Polygon and Line use Points, Path uses Path, Text uses Center
// and Text.
type Primitive struct {
	ID     PrimitiveID
	Kind   Kind
	Layer  int
	Bounds geom.Rect
	Center geom.Point
	Radius float64
	Points []geom.Point
	Path   geom.Path
	Text   string
	Href   string
	Class  string
	Hidden bool
	Style  Style
}

// Surface is the host drawing area. Add attaches a primitive and assigns
// its ID, Update re-applies the attributes of an attached primitive and
// Remove detaches it. IDs are never zero.
type Surface interface {
	Add(p *Primitive) PrimitiveID
	Update(p *Primitive)
	Remove(id PrimitiveID) error
	ViewBox() geom.Rect
	SetViewBox(vb geom.Rect)
	ClientSize() (w, h float64)
}

type EventType int

const (
	PointerDown EventType = iota
	PointerMove
	PointerUp
	Click
	DoubleClick
	ContextMenu
	PointerLeave
)

func (t EventType) String() string {
	switch t {
	case PointerDown:
		return "mousedown"
	case PointerMove:
		return "mousemove"
	case PointerUp:
		return "mouseup"
	case Click:
		return "click"
	case DoubleClick:
		return "dblclick"
	case ContextMenu:
		return "contextmenu"
	case PointerLeave:
		return "mouseleave"
	default:
		return "unknown"
	}
}

const (
	ButtonPrimary   = 0
	ButtonSecondary = 2
)

// PointerEvent is a host pointer event in client coordinates. Buttons is
// the bitmask of buttons held while the event fired (1 = primary).
type PointerEvent struct {
	Type    EventType
	Client  geom.Point
	Button  int
	Buttons int
	Shift   bool
}

func (e PointerEvent) PrimaryHeld() bool {
	return e.Buttons&1 != 0
}
