package diagram

import (
	"sort"

	"ivrflow/geom"
	"ivrflow/surface"
)

// Subtree is the opaque XML element a block carries for its node type.
// The engine stores and emits it verbatim and never looks inside.
type Subtree interface {
	RawXML() []byte
}

// RawSubtree is a Subtree backed by the element's serialized bytes.
type RawSubtree []byte

func (r RawSubtree) RawXML() []byte { return r }

const iconSize = 16

// Block is a scenario step. Its outline geometry comes from the shape
// renderer selected by its catalog entry.
type Block struct {
	base
	shape    Shape
	renderer shapeRenderer
	metaName string
	caption  string
	icon     string
	bounds   geom.Rect
	userData Subtree
	links    map[int]*Link
	anchors  *AnchorGroup
	hovered  bool

	outlinePrim *surface.Primitive
	iconPrim    *surface.Primitive
	captionPrim *surface.Primitive
}

func newBlock(d *Diagram, id int, metaName string, nt NodeType, bounds geom.Rect, caption string, data Subtree) *Block {
	shape, _ := ParseShape(string(nt.Shape))
	b := &Block{
		base:     base{id: id, diagram: d},
		shape:    shape,
		renderer: rendererFor(shape),
		metaName: metaName,
		caption:  caption,
		icon:     nt.Icon,
		bounds:   bounds,
		userData: data,
		links:    make(map[int]*Link),
	}
	if b.bounds.W == 0 || b.bounds.H == 0 {
		b.bounds.W, b.bounds.H = b.renderer.defaultSize()
	}
	b.anchors = newAnchorGroup(b)
	b.attach()
	return b
}

func (b *Block) Type() ComponentType { return TypeBlock }
func (b *Block) Shape() Shape        { return b.shape }
func (b *Block) MetaName() string    { return b.metaName }
func (b *Block) Caption() string     { return b.caption }
func (b *Block) Icon() string        { return b.icon }
func (b *Block) Bounds() geom.Rect   { return b.bounds }

func (b *Block) Position() geom.Point { return b.bounds.Min() }

func (b *Block) UserData() Subtree { return b.userData }

func (b *Block) SetUserData(s Subtree) { b.userData = s }

func (b *Block) Anchor(k AnchorKey) *Anchor { return b.anchors.Get(k) }

func (b *Block) Anchors() *AnchorGroup { return b.anchors }

// Contains reports whether p falls inside the block outline.
func (b *Block) Contains(p geom.Point) bool {
	return b.renderer.contains(b.bounds, p)
}

// Links returns the incident links ordered by id.
func (b *Block) Links() []*Link {
	out := make([]*Link, 0, len(b.links))
	for _, l := range b.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// OutgoingLinks returns the links that start at this block.
func (b *Block) OutgoingLinks() []*Link {
	var out []*Link
	for _, l := range b.Links() {
		if l.origin == b {
			out = append(out, l)
		}
	}
	return out
}

func (b *Block) SetCaption(caption string) {
	b.caption = caption
	b.captionPrim.Text = caption
	b.diagram.surface.Update(b.captionPrim)
}

func (b *Block) MovePosition(x, y float64) {
	b.bounds.X, b.bounds.Y = x, y
	b.layout()
}

func (b *Block) Resize(w, h float64) {
	b.bounds.W, b.bounds.H = w, h
	b.layout()
}

func (b *Block) Select() {
	if b.selected {
		return
	}
	b.selected = true
	b.restyle()
	b.anchors.SetVisible(b.diagram.surface, true)
	b.diagram.appendToSelection(b)
}

func (b *Block) Unselect() {
	if !b.selected {
		return
	}
	b.selected = false
	b.restyle()
	b.anchors.SetVisible(b.diagram.surface, b.hovered)
	b.diagram.removeFromSelection(b)
}

// Remove deletes the block and every incident link. The links are kept
// in the recorded action so one undo restores the whole group.
func (b *Block) Remove() {
	d := b.diagram
	if d.components[b.id] != Component(b) {
		return
	}
	state := b.state()
	d.actions.withoutRecording(func() {
		for _, l := range b.Links() {
			l.Remove()
		}
	})
	b.Unselect()
	b.detach()
	d.unregister(b)
	d.actions.Append(OpRemoveBlock, state)
	d.log.Debug("block removed", "id", b.ID(), "links", len(state.Links))
}

func (b *Block) setHover(on bool) {
	if b.hovered == on {
		return
	}
	b.hovered = on
	b.anchors.SetVisible(b.diagram.surface, on || b.selected)
}

func (b *Block) attach() {
	s := b.diagram.surface
	b.outlinePrim = &surface.Primitive{Layer: surface.LayerNodes, Class: "block " + string(b.shape)}
	b.captionPrim = &surface.Primitive{
		Kind:  surface.KindText,
		Layer: surface.LayerLabels,
		Text:  b.caption,
		Class: "caption",
		Style: surface.Style{Fill: "#263238", FontSize: 12, Anchor: "middle"},
	}
	s.Add(b.outlinePrim)
	if b.icon != "" {
		b.iconPrim = &surface.Primitive{Kind: surface.KindImage, Layer: surface.LayerLabels, Href: b.icon, Class: "icon"}
		s.Add(b.iconPrim)
	}
	s.Add(b.captionPrim)
	b.anchors.attach(s)
	b.restyle()
	b.layout()
}

// layout pushes the current bounds to every primitive, the anchors and
// the incident links.
func (b *Block) layout() {
	s := b.diagram.surface
	b.renderer.outline(b.bounds, b.outlinePrim)
	s.Update(b.outlinePrim)

	c := b.bounds.Center()
	b.captionPrim.Center = c
	if b.iconPrim != nil {
		b.iconPrim.Bounds = geom.Rect{X: c.X - iconSize/2, Y: c.Y - iconSize - 2, W: iconSize, H: iconSize}
		s.Update(b.iconPrim)
		b.captionPrim.Center = geom.Pt(c.X, c.Y+12)
	}
	s.Update(b.captionPrim)

	b.anchors.place(s, b.renderer.anchors(b.bounds))
	for _, l := range b.Links() {
		l.adjustPoints()
	}
}

func (b *Block) restyle() {
	st := surface.Style{Stroke: "#455a64", Fill: "#eceff1", StrokeWidth: 1}
	if b.selected {
		st.Stroke, st.StrokeWidth = "#1e88e5", 2
	}
	b.outlinePrim.Style = st
	b.diagram.surface.Update(b.outlinePrim)
}

func (b *Block) detach() {
	b.drop(b.outlinePrim.ID)
	if b.iconPrim != nil {
		b.drop(b.iconPrim.ID)
	}
	b.drop(b.captionPrim.ID)
	for _, k := range anchorKeys {
		if a := b.anchors.Get(k); a.prim != nil {
			b.drop(a.prim.ID)
		}
	}
}

type blockState struct {
	ID       int
	MetaName string
	Caption  string
	Bounds   geom.Rect
	UserData Subtree
	Selected bool
	Links    []linkState
}

func (b *Block) state() blockState {
	st := blockState{
		ID:       b.id,
		MetaName: b.metaName,
		Caption:  b.caption,
		Bounds:   b.bounds,
		UserData: b.userData,
		Selected: b.selected,
	}
	for _, l := range b.Links() {
		st.Links = append(st.Links, l.state())
	}
	return st
}
