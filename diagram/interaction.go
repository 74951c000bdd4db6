package diagram

import (
	"fmt"

	"ivrflow/geom"
	"ivrflow/surface"
)

// State is the pointer interaction mode. The states are mutually
// exclusive: a drag, a marquee and a link gesture never overlap.
type State int

const (
	Idle State = iota
	Dragging
	MarqueeSelecting
	LinkCreating
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case MarqueeSelecting:
		return "marquee"
	case LinkCreating:
		return "link"
	default:
		return "unknown"
	}
}

// arrowThreshold is the drag distance after which the rubber band shows
// an arrowhead.
const arrowThreshold = 15

type interaction struct {
	state State
	down  geom.Point
	moved bool

	dragStart map[int]geom.Point

	marquee     geom.Rect
	marqueePrim *surface.Primitive

	origin     *Anchor
	rubberBand *surface.Primitive

	hover *Block
}

// discard drops any gesture overlay and returns to Idle.
func (f *interaction) discard(d *Diagram) {
	if f.marqueePrim != nil {
		if err := d.surface.Remove(f.marqueePrim.ID); err != nil {
			d.log.Debug("detach ignored", "err", err)
		}
		f.marqueePrim = nil
	}
	if f.rubberBand != nil {
		if err := d.surface.Remove(f.rubberBand.ID); err != nil {
			d.log.Debug("detach ignored", "err", err)
		}
		f.rubberBand = nil
	}
	f.dragStart = nil
	f.origin = nil
	f.state = Idle
}

// Dispatch feeds one host pointer event through the state machine. The
// only error it returns is an unknown node type while create mode fires.
func (d *Diagram) Dispatch(ev surface.PointerEvent) error {
	w, h := d.surface.ClientSize()
	p := geom.ClientToLocal(ev.Client, w, h, d.surface.ViewBox())
	switch ev.Type {
	case surface.PointerDown:
		d.onPointerDown(ev, p)
	case surface.PointerMove:
		d.onPointerMove(ev, p)
	case surface.PointerUp:
		d.onPointerUp(p)
	case surface.PointerLeave:
		d.onPointerLeave(ev)
	case surface.Click:
		return d.onClick(ev, p)
	case surface.DoubleClick:
		d.onDoubleClick(p)
	case surface.ContextMenu:
		d.onContextMenu(p)
	}
	return nil
}

func (d *Diagram) onPointerDown(ev surface.PointerEvent, p geom.Point) {
	if ev.Button != surface.ButtonPrimary {
		return
	}
	if d.fsm.state != Idle {
		// a pointer-up went missing
		d.fsm.discard(d)
	}
	d.fsm.down = p
	d.fsm.moved = false

	if a := d.anchorAt(p, true); a != nil {
		d.blur(nil)
		d.startLink(a)
		return
	}

	target := d.componentAt(p)
	d.blur(target)
	if target == nil {
		d.ClearSelection()
		d.startMarquee(p)
		return
	}
	if target.Selected() && ev.Shift {
		target.Unselect()
		return
	}
	if !target.Selected() {
		if !ev.Shift {
			d.ClearSelection()
		}
		target.Select()
	}
	if target.Type() != TypeLink {
		d.startDrag()
	}
}

func (d *Diagram) onPointerMove(ev surface.PointerEvent, p geom.Point) {
	if ev.PrimaryHeld() && p != d.fsm.down {
		d.fsm.moved = true
	}
	switch d.fsm.state {
	case Idle:
		d.updateHover(p)
	case Dragging:
		if !ev.PrimaryHeld() {
			d.fsm.discard(d)
			return
		}
		d.drag(p)
	case MarqueeSelecting:
		if !ev.PrimaryHeld() {
			d.fsm.discard(d)
			return
		}
		d.updateMarquee(p)
	case LinkCreating:
		if !ev.PrimaryHeld() {
			d.fsm.discard(d)
			return
		}
		d.updateHover(p)
		d.updateRubberBand(p)
	}
}

func (d *Diagram) onPointerUp(p geom.Point) {
	if d.fsm.state == LinkCreating {
		origin := d.fsm.origin
		if target := d.anchorAt(p, false); target != nil && target != origin {
			if _, err := d.AddLink(origin, target, ""); err != nil {
				d.log.Warn("link not created", "err", err)
			}
		}
	}
	d.fsm.discard(d)
}

// onPointerLeave cancels gestures whose button was released outside the
// canvas, where the host never reported the pointer-up.
func (d *Diagram) onPointerLeave(ev surface.PointerEvent) {
	d.updateHover(geom.Pt(-1e9, -1e9))
	if !ev.PrimaryHeld() {
		d.fsm.discard(d)
	}
}

func (d *Diagram) onClick(ev surface.PointerEvent, p geom.Point) error {
	if ev.Button != surface.ButtonPrimary || d.createMode == "" || d.fsm.moved {
		return nil
	}
	if d.componentAt(p) != nil || d.anchorAt(p, true) != nil {
		return nil
	}
	key := d.createMode
	d.createMode = ""
	if key == MemoToken {
		m, err := d.AddMemo(p, "")
		if err != nil {
			return err
		}
		m.Select()
		return nil
	}
	b, err := d.AddBlock(key, p)
	if err != nil {
		return fmt.Errorf("diagram: create mode: %w", err)
	}
	b.Select()
	return nil
}

func (d *Diagram) onDoubleClick(p geom.Point) {
	if m, ok := d.componentAt(p).(*Memo); ok {
		m.BeginEdit()
	}
}

func (d *Diagram) onContextMenu(p geom.Point) {
	target := d.componentAt(p)
	if target != nil && !target.Selected() {
		d.ClearSelection()
		target.Select()
	}
	ev := ContextMenuEvent{Component: target, Point: p}
	for _, fn := range d.contextListeners {
		fn(ev)
	}
}

// blur ends inline memo editing when the pointer goes down elsewhere.
func (d *Diagram) blur(target Component) {
	if d.editing != nil && d.editing != target {
		d.editing.EndEdit(d.editing.text)
	}
}

func (d *Diagram) startDrag() {
	d.fsm.state = Dragging
	d.fsm.dragStart = make(map[int]geom.Point)
	for _, c := range d.Selection() {
		switch v := c.(type) {
		case *Block:
			d.fsm.dragStart[v.id] = v.Position()
		case *Memo:
			d.fsm.dragStart[v.id] = v.Position()
		}
	}
}

// drag moves every selected block and memo by the pointer offset since
// pointer-down, snapped to the grid.
func (d *Diagram) drag(p geom.Point) {
	delta := p.Sub(d.fsm.down)
	for id, start := range d.fsm.dragStart {
		c, ok := d.components[id]
		if !ok {
			continue
		}
		to := geom.SnapPoint(start.Add(delta), d.opts.MoveUnit)
		c.MovePosition(to.X, to.Y)
	}
}

func (d *Diagram) startMarquee(p geom.Point) {
	d.fsm.state = MarqueeSelecting
	d.fsm.marquee = geom.Rect{X: p.X, Y: p.Y}
	d.fsm.marqueePrim = &surface.Primitive{
		Kind:   surface.KindRect,
		Layer:  surface.LayerOverlay,
		Bounds: d.fsm.marquee,
		Class:  "marquee",
		Style:  surface.Style{Stroke: "#1e88e5", Fill: "#1e88e5", Opacity: 0.1, StrokeWidth: 1, Dash: true},
	}
	d.surface.Add(d.fsm.marqueePrim)
}

func (d *Diagram) updateMarquee(p geom.Point) {
	r := geom.RectFromCorners(d.fsm.down, p)
	d.fsm.marquee = r
	d.fsm.marqueePrim.Bounds = r
	d.surface.Update(d.fsm.marqueePrim)

	for _, c := range d.Components() {
		hit := r.Intersects(c.Bounds())
		switch {
		case hit && !c.Selected():
			c.Select()
		case !hit && c.Selected():
			c.Unselect()
		}
	}
}

func (d *Diagram) startLink(a *Anchor) {
	d.fsm.state = LinkCreating
	d.fsm.origin = a
	d.fsm.rubberBand = &surface.Primitive{
		Kind:   surface.KindLine,
		Layer:  surface.LayerOverlay,
		Points: []geom.Point{a.pos, a.pos},
		Class:  "rubber-band",
		Hidden: true,
		Style:  surface.Style{Stroke: "#1e88e5", StrokeWidth: 1.5, Dash: true},
	}
	d.surface.Add(d.fsm.rubberBand)
}

func (d *Diagram) updateRubberBand(p geom.Point) {
	rb := d.fsm.rubberBand
	from := d.fsm.origin.pos
	rb.Points = []geom.Point{from, p}
	rb.Hidden = false
	rb.Style.ArrowEnd = geom.Distance(from, p) > arrowThreshold
	d.surface.Update(rb)
}

// RubberBand returns the in-progress link line, if any.
func (d *Diagram) RubberBand() (*surface.Primitive, bool) {
	return d.fsm.rubberBand, d.fsm.rubberBand != nil
}

// Marquee returns the current selection rectangle, if any.
func (d *Diagram) Marquee() (geom.Rect, bool) {
	return d.fsm.marquee, d.fsm.state == MarqueeSelecting
}

func (d *Diagram) updateHover(p geom.Point) {
	var over *Block
	for _, b := range d.Blocks() {
		if b.Contains(p) || b.anchors.at(p, false) != nil {
			over = b
		}
	}
	if over == d.fsm.hover {
		return
	}
	if prev := d.fsm.hover; prev != nil {
		if _, alive := d.components[prev.id]; alive {
			prev.setHover(false)
		}
	}
	d.fsm.hover = over
	if over != nil {
		over.setHover(true)
	}
}

// anchorAt finds the anchor under p, preferring the newest block.
func (d *Diagram) anchorAt(p geom.Point, onlyVisible bool) *Anchor {
	blocks := d.Blocks()
	for i := len(blocks) - 1; i >= 0; i-- {
		if a := blocks[i].anchors.at(p, onlyVisible); a != nil {
			return a
		}
	}
	return nil
}

// componentAt hit-tests blocks and memos top-most first, then links.
func (d *Diagram) componentAt(p geom.Point) Component {
	all := d.Components()
	for i := len(all) - 1; i >= 0; i-- {
		switch c := all[i].(type) {
		case *Block:
			if c.Contains(p) {
				return c
			}
		case *Memo:
			if c.bounds.Contains(p) {
				return c
			}
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if l, ok := all[i].(*Link); ok && l.near(p) {
			return l
		}
	}
	return nil
}
