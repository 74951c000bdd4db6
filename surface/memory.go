package surface

import (
	"sort"

	"ivrflow/geom"
)

// Memory is a retained, headless Surface. Renderers walk its primitives
// to produce SVG, PNG or terminal output.
type Memory struct {
	prims   map[PrimitiveID]*Primitive
	nextID  PrimitiveID
	viewBox geom.Rect
	clientW float64
	clientH float64
}

// NewMemory creates a surface whose client area maps 1:1 onto the
// initial view box.
func NewMemory(width, height float64) *Memory {
	return &Memory{
		prims:   make(map[PrimitiveID]*Primitive),
		nextID:  1,
		viewBox: geom.Rect{W: width, H: height},
		clientW: width,
		clientH: height,
	}
}

func (m *Memory) Add(p *Primitive) PrimitiveID {
	p.ID = m.nextID
	m.nextID++
	m.prims[p.ID] = p
	return p.ID
}

func (m *Memory) Update(p *Primitive) {
	if _, ok := m.prims[p.ID]; ok {
		m.prims[p.ID] = p
	}
}

func (m *Memory) Remove(id PrimitiveID) error {
	if _, ok := m.prims[id]; !ok {
		return ErrDetached
	}
	delete(m.prims, id)
	return nil
}

func (m *Memory) ViewBox() geom.Rect { return m.viewBox }

func (m *Memory) SetViewBox(vb geom.Rect) { m.viewBox = vb }

func (m *Memory) ClientSize() (float64, float64) { return m.clientW, m.clientH }

// Resize changes the client area without touching the view box, like a
// browser window resize.
func (m *Memory) Resize(width, height float64) {
	m.clientW, m.clientH = width, height
}

func (m *Memory) Get(id PrimitiveID) (*Primitive, bool) {
	p, ok := m.prims[id]
	return p, ok
}

func (m *Memory) Len() int {
	return len(m.prims)
}

// Primitives returns the visible primitives back to front.
func (m *Memory) Primitives() []*Primitive {
	out := make([]*Primitive, 0, len(m.prims))
	for _, p := range m.prims {
		if !p.Hidden {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Layer != out[j].Layer {
			return out[i].Layer < out[j].Layer
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Extent is the bounding box of every visible primitive except
// background patterns.
func (m *Memory) Extent() geom.Rect {
	var ext geom.Rect
	first := true
	for _, p := range m.Primitives() {
		if p.Kind == KindPattern {
			continue
		}
		b := Bounds(p)
		if first {
			ext, first = b, false
			continue
		}
		ext = ext.Union(b)
	}
	return ext
}

// Bounds approximates the area covered by a primitive.
func Bounds(p *Primitive) geom.Rect {
	switch p.Kind {
	case KindCircle:
		return geom.Rect{X: p.Center.X - p.Radius, Y: p.Center.Y - p.Radius, W: 2 * p.Radius, H: 2 * p.Radius}
	case KindPolygon, KindLine:
		return geom.StraightPath(p.Points...).Bounds()
	case KindPath:
		return p.Path.Bounds()
	case KindText:
		size := p.Style.FontSize
		if size == 0 {
			size = 12
		}
		w := float64(len([]rune(p.Text))) * size * 0.6
		x := p.Center.X
		switch p.Style.Anchor {
		case "middle":
			x -= w / 2
		case "end":
			x -= w
		}
		return geom.Rect{X: x, Y: p.Center.Y - size, W: w, H: size}
	default:
		return p.Bounds
	}
}
