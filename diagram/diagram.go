// Package diagram is the scenario diagram engine: a retained scene graph
// of blocks, links and memos drawn on a host surface, driven by pointer
// events, with bounded undo and a lossless XML document form.
package diagram

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"ivrflow/geom"
	"ivrflow/surface"
)

// Diagram owns the component registry, the selection and the
// interaction state of one editing surface.
type Diagram struct {
	id      uuid.UUID
	surface surface.Surface
	meta    *Metadata
	opts    Options
	log     *slog.Logger

	components   map[int]Component
	componentSeq int
	selection    map[int]Component
	actions      *ActionManager

	fsm        interaction
	createMode string
	editing    *Memo
	background *surface.Primitive

	createdListeners    []ComponentListener
	selectedListeners   []ComponentListener
	unselectedListeners []ComponentListener
	contextListeners    []ContextMenuListener
}

// New binds an empty diagram to a surface. It fails when the metadata
// is missing or older than RequiredVersion.
func New(s surface.Surface, meta *Metadata, opts Options) (*Diagram, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()
	d := &Diagram{
		id:           uuid.New(),
		surface:      s,
		meta:         meta,
		opts:         opts,
		components:   make(map[int]Component),
		componentSeq: 1,
		selection:    make(map[int]Component),
	}
	d.log = opts.Logger.With("diagram", d.id.String())
	d.actions = newActionManager(d)
	if opts.OnNodeCreated != nil {
		d.OnNodeCreated(opts.OnNodeCreated)
	}
	if opts.OnNodeSelected != nil {
		d.OnNodeSelected(opts.OnNodeSelected)
	}
	if opts.OnNodeUnSelected != nil {
		d.OnNodeUnSelected(opts.OnNodeUnSelected)
	}
	if opts.OnContextMenu != nil {
		d.OnContextMenu(opts.OnContextMenu)
	}
	if opts.UseBackgroundPattern && opts.MoveUnit > 0 {
		d.background = &surface.Primitive{
			Kind:   surface.KindPattern,
			Layer:  surface.LayerBackground,
			Bounds: geom.Rect{W: opts.MoveUnit, H: opts.MoveUnit},
			Class:  "grid",
			Style:  surface.Style{Stroke: "#e0e0e0", StrokeWidth: 0.5},
		}
		s.Add(d.background)
	}
	return d, nil
}

func (d *Diagram) ID() uuid.UUID            { return d.id }
func (d *Diagram) Surface() surface.Surface { return d.surface }
func (d *Diagram) Metadata() *Metadata      { return d.meta }
func (d *Diagram) Options() Options         { return d.opts }
func (d *Diagram) Actions() *ActionManager  { return d.actions }
func (d *Diagram) State() State             { return d.fsm.state }
func (d *Diagram) CreateMode() string       { return d.createMode }
func (d *Diagram) EditingMemo() *Memo       { return d.editing }
func (d *Diagram) Len() int                 { return len(d.components) }

// NextSeq is the id the next new component will get.
func (d *Diagram) NextSeq() int { return d.componentSeq }

func (d *Diagram) OnNodeCreated(fn ComponentListener) {
	d.createdListeners = append(d.createdListeners, fn)
}

func (d *Diagram) OnNodeSelected(fn ComponentListener) {
	d.selectedListeners = append(d.selectedListeners, fn)
}

func (d *Diagram) OnNodeUnSelected(fn ComponentListener) {
	d.unselectedListeners = append(d.unselectedListeners, fn)
}

func (d *Diagram) OnContextMenu(fn ContextMenuListener) {
	d.contextListeners = append(d.contextListeners, fn)
}

func (d *Diagram) fire(listeners []ComponentListener, c Component) {
	for _, fn := range listeners {
		fn(c)
	}
}

func (d *Diagram) nextID() int {
	id := d.componentSeq
	d.componentSeq++
	return id
}

// reserve fails when id is taken. Components attach to the surface and
// to their blocks on construction, so the check runs before building.
func (d *Diagram) reserve(t ComponentType, id int) error {
	if _, ok := d.components[id]; ok {
		return fmt.Errorf("diagram: %s %d: %w", t, id, ErrDuplicateID)
	}
	return nil
}

func (d *Diagram) register(c Component) {
	id := c.seq()
	d.components[id] = c
	if id >= d.componentSeq {
		d.componentSeq = id + 1
	}
}

func (d *Diagram) unregister(c Component) {
	delete(d.components, c.seq())
	delete(d.selection, c.seq())
	if d.editing == c {
		d.editing = nil
	}
}

// Component looks a component up by id. Both the plain and the
// zero-padded document form are accepted.
func (d *Diagram) Component(id string) (Component, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return nil, false
	}
	c, ok := d.components[n]
	return c, ok
}

// Components returns every registered component in id order.
func (d *Diagram) Components() []Component {
	out := make([]Component, 0, len(d.components))
	for _, c := range d.components {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq() < out[j].seq() })
	return out
}

func (d *Diagram) Blocks() []*Block {
	var out []*Block
	for _, c := range d.Components() {
		if b, ok := c.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

func (d *Diagram) Links() []*Link {
	var out []*Link
	for _, c := range d.Components() {
		if l, ok := c.(*Link); ok {
			out = append(out, l)
		}
	}
	return out
}

func (d *Diagram) Memos() []*Memo {
	var out []*Memo
	for _, c := range d.Components() {
		if m, ok := c.(*Memo); ok {
			out = append(out, m)
		}
	}
	return out
}

// AddBlock creates a block of the given catalog type at p, records it
// for undo and fires the created event.
func (d *Diagram) AddBlock(metaName string, p geom.Point) (*Block, error) {
	nt, err := d.meta.NodeType(metaName)
	if err != nil {
		return nil, err
	}
	b, err := d.restoreBlock(blockState{
		ID:       d.nextID(),
		MetaName: metaName,
		Caption:  nt.DisplayName,
		Bounds:   geom.Rect{X: p.X, Y: p.Y},
		UserData: defaultPayload(nt),
	})
	if err != nil {
		return nil, err
	}
	d.actions.Append(OpAddBlock, b.id)
	d.fire(d.createdListeners, b)
	return b, nil
}

// AddMemo creates a memo at p.
func (d *Diagram) AddMemo(p geom.Point, text string) (*Memo, error) {
	m, err := d.restoreMemo(memoState{ID: d.nextID(), Text: text, Bounds: geom.Rect{X: p.X, Y: p.Y}})
	if err != nil {
		return nil, err
	}
	d.actions.Append(OpAddMemo, m.id)
	d.fire(d.createdListeners, m)
	return m, nil
}

// AddLink connects two anchors. An empty caption picks the first event
// of the origin's catalog entry that is not used yet.
func (d *Diagram) AddLink(from, to *Anchor, caption string) (*Link, error) {
	if from == to {
		return nil, fmt.Errorf("diagram: link needs two distinct anchors")
	}
	if caption == "" {
		caption = d.defaultCaption(from.block)
	}
	l, err := d.restoreLink(linkState{
		ID:        d.nextID(),
		Caption:   caption,
		Origin:    from.block.id,
		Dest:      to.block.id,
		OriginKey: from.key,
		DestKey:   to.key,
	})
	if err != nil {
		return nil, err
	}
	d.actions.Append(OpAddLink, l.id)
	d.fire(d.createdListeners, l)
	return l, nil
}

func (d *Diagram) defaultCaption(b *Block) string {
	nt, err := d.meta.NodeType(b.metaName)
	if err != nil || len(nt.Links) == 0 {
		return ""
	}
	used := make(map[string]bool)
	for _, l := range b.OutgoingLinks() {
		used[l.caption] = true
	}
	for _, ev := range nt.Links {
		if !used[ev] {
			return ev
		}
	}
	return nt.Links[0]
}

func (d *Diagram) restoreBlock(st blockState) (*Block, error) {
	nt, err := d.meta.NodeType(st.MetaName)
	if err != nil {
		return nil, err
	}
	if err := d.reserve(TypeBlock, st.ID); err != nil {
		return nil, err
	}
	b := newBlock(d, st.ID, st.MetaName, nt, st.Bounds, st.Caption, st.UserData)
	d.register(b)
	return b, nil
}

func (d *Diagram) restoreLink(st linkState) (*Link, error) {
	origin, ok := d.components[st.Origin].(*Block)
	if !ok {
		return nil, fmt.Errorf("diagram: link %d origin %d: %w", st.ID, st.Origin, ErrDanglingLink)
	}
	dest, ok := d.components[st.Dest].(*Block)
	if !ok {
		return nil, fmt.Errorf("diagram: link %d target %d: %w", st.ID, st.Dest, ErrDanglingLink)
	}
	if err := d.reserve(TypeLink, st.ID); err != nil {
		return nil, err
	}
	l := newLink(d, st.ID, st.Caption, origin, st.OriginKey, dest, st.DestKey)
	d.register(l)
	return l, nil
}

func (d *Diagram) restoreMemo(st memoState) (*Memo, error) {
	if err := d.reserve(TypeMemo, st.ID); err != nil {
		return nil, err
	}
	m := newMemo(d, st.ID, st.Bounds, st.Text)
	d.register(m)
	return m, nil
}

// SetCreateMode arms the next primary click on empty canvas to create
// a block of the given catalog type, or a memo for MemoToken. An empty
// key disarms.
func (d *Diagram) SetCreateMode(key string) {
	d.createMode = key
}

func (d *Diagram) IsSelected(c Component) bool {
	_, ok := d.selection[c.seq()]
	return ok
}

// Selection returns the selected components in id order.
func (d *Diagram) Selection() []Component {
	out := make([]Component, 0, len(d.selection))
	for _, c := range d.selection {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq() < out[j].seq() })
	return out
}

func (d *Diagram) SelectAll() {
	for _, c := range d.Components() {
		c.Select()
	}
}

func (d *Diagram) ClearSelection() {
	for _, c := range d.Selection() {
		c.Unselect()
	}
}

// UnselectAll is an alias of ClearSelection.
func (d *Diagram) UnselectAll() { d.ClearSelection() }

func (d *Diagram) appendToSelection(c Component) {
	d.selection[c.seq()] = c
	d.fire(d.selectedListeners, c)
}

func (d *Diagram) removeFromSelection(c Component) {
	delete(d.selection, c.seq())
	d.fire(d.unselectedListeners, c)
}

// RemoveSelected removes every selected component. Memos still go
// through their confirmation predicate.
func (d *Diagram) RemoveSelected() {
	for _, c := range d.Selection() {
		if _, ok := d.components[c.seq()]; ok {
			c.Remove()
		}
	}
}

func (d *Diagram) Undo() error {
	_, err := d.actions.Undo()
	return err
}

// Redo is kept for API compatibility and does nothing.
func (d *Diagram) Redo() {
	d.actions.Redo()
}

func (d *Diagram) ZoomIn()  { d.zoom(0.9) }
func (d *Diagram) ZoomOut() { d.zoom(1.1) }

func (d *Diagram) zoom(f float64) {
	d.surface.SetViewBox(d.surface.ViewBox().ScaleAbout(f))
}

// Pan shifts the visible area by dx, dy local units.
func (d *Diagram) Pan(dx, dy float64) {
	d.surface.SetViewBox(d.surface.ViewBox().Translate(dx, dy))
}

// Close detaches every primitive owned by the diagram.
func (d *Diagram) Close() {
	for _, c := range d.Components() {
		c.detach()
	}
	d.fsm.discard(d)
	if d.background != nil {
		if err := d.surface.Remove(d.background.ID); err != nil {
			d.log.Debug("detach ignored", "err", err)
		}
	}
}
