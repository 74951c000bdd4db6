package diagram

import (
	"fmt"

	"ivrflow/geom"
	"ivrflow/surface"
)

// AnchorKey names one of the four connection points of a block.
type AnchorKey int

const (
	AnchorL AnchorKey = iota
	AnchorT
	AnchorR
	AnchorB
)

var anchorKeys = [4]AnchorKey{AnchorL, AnchorT, AnchorR, AnchorB}

func (k AnchorKey) String() string {
	switch k {
	case AnchorL:
		return "L"
	case AnchorT:
		return "T"
	case AnchorR:
		return "R"
	case AnchorB:
		return "B"
	default:
		return "?"
	}
}

// Direction is the outward normal of the anchor.
func (k AnchorKey) Direction() geom.Point {
	switch k {
	case AnchorL:
		return geom.Pt(-1, 0)
	case AnchorT:
		return geom.Pt(0, -1)
	case AnchorR:
		return geom.Pt(1, 0)
	default:
		return geom.Pt(0, 1)
	}
}

func (k AnchorKey) Horizontal() bool {
	return k == AnchorL || k == AnchorR
}

// ParseAnchorCode decodes the document form: 0=L, 1=T, 2=R, 3=B.
func ParseAnchorCode(code int) (AnchorKey, error) {
	if code < 0 || code > 3 {
		return 0, fmt.Errorf("diagram: anchor code %d: %w", code, ErrInvalidDocument)
	}
	return AnchorKey(code), nil
}

const (
	anchorRadius    = 4
	anchorHitRadius = 8
)

type Anchor struct {
	key     AnchorKey
	block   *Block
	pos     geom.Point
	visible bool
	prim    *surface.Primitive
}

func (a *Anchor) Key() AnchorKey       { return a.key }
func (a *Anchor) Block() *Block        { return a.block }
func (a *Anchor) Position() geom.Point { return a.pos }
func (a *Anchor) Visible() bool        { return a.visible }

func (a *Anchor) hit(p geom.Point) bool {
	return geom.Distance(a.pos, p) <= anchorHitRadius
}

// AnchorGroup holds the four anchors of a block and keeps their
// coordinates in step with the block outline.
type AnchorGroup struct {
	anchors [4]*Anchor
}

func newAnchorGroup(b *Block) *AnchorGroup {
	g := &AnchorGroup{}
	for _, k := range anchorKeys {
		g.anchors[k] = &Anchor{key: k, block: b}
	}
	return g
}

func (g *AnchorGroup) Get(k AnchorKey) *Anchor {
	return g.anchors[k]
}

func (g *AnchorGroup) attach(s surface.Surface) {
	for _, a := range g.anchors {
		a.prim = &surface.Primitive{
			Kind:   surface.KindCircle,
			Layer:  surface.LayerAnchors,
			Center: a.pos,
			Radius: anchorRadius,
			Class:  "anchor",
			Hidden: !a.visible,
			Style:  surface.Style{Stroke: "#1e88e5", Fill: "#ffffff", StrokeWidth: 1},
		}
		s.Add(a.prim)
	}
}

func (g *AnchorGroup) place(s surface.Surface, pts [4]geom.Point) {
	for i, a := range g.anchors {
		a.pos = pts[i]
		if a.prim != nil {
			a.prim.Center = a.pos
			s.Update(a.prim)
		}
	}
}

func (g *AnchorGroup) SetVisible(s surface.Surface, visible bool) {
	for _, a := range g.anchors {
		if a.visible == visible {
			continue
		}
		a.visible = visible
		if a.prim != nil {
			a.prim.Hidden = !visible
			s.Update(a.prim)
		}
	}
}

func (g *AnchorGroup) at(p geom.Point, onlyVisible bool) *Anchor {
	for _, a := range g.anchors {
		if onlyVisible && !a.visible {
			continue
		}
		if a.hit(p) {
			return a
		}
	}
	return nil
}
