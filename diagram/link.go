package diagram

import (
	"ivrflow/geom"
	"ivrflow/surface"
)

const linkHitTolerance = 5

// Link is a directed choice from one block anchor to another.
type Link struct {
	base
	caption   string
	origin    *Block
	dest      *Block
	originKey AnchorKey
	destKey   AnchorKey
	path      geom.Path
	label     geom.Point

	pathPrim  *surface.Primitive
	labelPrim *surface.Primitive
}

func newLink(d *Diagram, id int, caption string, origin *Block, originKey AnchorKey, dest *Block, destKey AnchorKey) *Link {
	l := &Link{
		base:      base{id: id, diagram: d},
		caption:   caption,
		origin:    origin,
		dest:      dest,
		originKey: originKey,
		destKey:   destKey,
	}
	origin.links[id] = l
	dest.links[id] = l
	l.attach()
	return l
}

func (l *Link) Type() ComponentType   { return TypeLink }
func (l *Link) Caption() string       { return l.caption }
func (l *Link) Origin() *Block        { return l.origin }
func (l *Link) Dest() *Block          { return l.dest }
func (l *Link) OriginAnchor() *Anchor { return l.origin.Anchor(l.originKey) }
func (l *Link) DestAnchor() *Anchor   { return l.dest.Anchor(l.destKey) }
func (l *Link) Path() geom.Path       { return l.path }

// LabelPosition is where the caption is drawn.
func (l *Link) LabelPosition() geom.Point { return l.label }

func (l *Link) Bounds() geom.Rect { return l.path.Bounds() }

// MovePosition is a no-op: a link's geometry follows its anchors.
func (l *Link) MovePosition(x, y float64) {}

func (l *Link) SetCaption(caption string) {
	l.caption = caption
	l.labelPrim.Text = l.diagram.meta.LinkDescription(caption)
	l.diagram.surface.Update(l.labelPrim)
}

func (l *Link) Select() {
	if l.selected {
		return
	}
	l.selected = true
	l.restyle()
	l.diagram.appendToSelection(l)
}

func (l *Link) Unselect() {
	if !l.selected {
		return
	}
	l.selected = false
	l.restyle()
	l.diagram.removeFromSelection(l)
}

func (l *Link) Remove() {
	d := l.diagram
	if d.components[l.id] != Component(l) {
		return
	}
	state := l.state()
	l.Unselect()
	l.detach()
	delete(l.origin.links, l.id)
	delete(l.dest.links, l.id)
	d.unregister(l)
	d.actions.Append(OpRemoveLink, state)
}

// adjustPoints re-routes the link between the current anchor positions.
func (l *Link) adjustPoints() {
	from := l.OriginAnchor().Position()
	to := l.DestAnchor().Position()
	l.path, l.label = route(l.diagram.opts, from, l.originKey, to, l.destKey)

	s := l.diagram.surface
	l.pathPrim.Path = l.path
	s.Update(l.pathPrim)
	l.labelPrim.Center = l.label
	s.Update(l.labelPrim)
}

func (l *Link) near(p geom.Point) bool {
	pts := l.path.Flatten(16)
	for i := 1; i < len(pts); i++ {
		if geom.SegmentDistance(p, pts[i-1], pts[i]) <= linkHitTolerance {
			return true
		}
	}
	return false
}

func (l *Link) attach() {
	s := l.diagram.surface
	l.pathPrim = &surface.Primitive{Kind: surface.KindPath, Layer: surface.LayerLinks, Class: "link"}
	l.labelPrim = &surface.Primitive{
		Kind:  surface.KindText,
		Layer: surface.LayerLabels,
		Text:  l.diagram.meta.LinkDescription(l.caption),
		Class: "link-label",
		Style: surface.Style{Fill: "#37474f", FontSize: 11, Anchor: "middle"},
	}
	s.Add(l.pathPrim)
	s.Add(l.labelPrim)
	l.restyle()
	l.adjustPoints()
}

func (l *Link) restyle() {
	st := surface.Style{Stroke: "#546e7a", StrokeWidth: 1.5, ArrowEnd: true}
	if l.selected {
		st.Stroke, st.StrokeWidth = "#1e88e5", 2.5
	}
	l.pathPrim.Style = st
	l.diagram.surface.Update(l.pathPrim)
}

func (l *Link) detach() {
	l.drop(l.pathPrim.ID)
	l.drop(l.labelPrim.ID)
}

type linkState struct {
	ID        int
	Caption   string
	Origin    int
	Dest      int
	OriginKey AnchorKey
	DestKey   AnchorKey
	Selected  bool
}

func (l *Link) state() linkState {
	return linkState{
		ID:        l.id,
		Caption:   l.caption,
		Origin:    l.origin.id,
		Dest:      l.dest.id,
		OriginKey: l.originKey,
		DestKey:   l.destKey,
		Selected:  l.selected,
	}
}
