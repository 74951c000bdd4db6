package diagram

import (
	"fmt"
	"math"
	"strings"

	"ivrflow/geom"
	"ivrflow/surface"
)

type Shape string

const (
	ShapeRectangle Shape = "rectangle"
	ShapeCircle    Shape = "circle"
	ShapeDiamond   Shape = "diamond"
)

// ParseShape accepts the catalog spelling of a shape. An empty value
// means rectangle.
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "", "rect", "rectangle":
		return ShapeRectangle, nil
	case "circle":
		return ShapeCircle, nil
	case "diamond", "rhombus":
		return ShapeDiamond, nil
	}
	return "", fmt.Errorf("diagram: shape %q: %w", s, ErrUnknownNodeType)
}

// shapeRenderer is the per-shape geometry a Block delegates to.
type shapeRenderer interface {
	defaultSize() (w, h float64)
	outline(b geom.Rect, p *surface.Primitive)
	anchors(b geom.Rect) [4]geom.Point
	contains(b geom.Rect, p geom.Point) bool
}

func rendererFor(s Shape) shapeRenderer {
	switch s {
	case ShapeCircle:
		return circleShape{}
	case ShapeDiamond:
		return diamondShape{}
	default:
		return rectShape{}
	}
}

func edgeMidpoints(b geom.Rect) [4]geom.Point {
	c := b.Center()
	return [4]geom.Point{
		AnchorL: {X: b.X, Y: c.Y},
		AnchorT: {X: c.X, Y: b.Y},
		AnchorR: {X: b.X + b.W, Y: c.Y},
		AnchorB: {X: c.X, Y: b.Y + b.H},
	}
}

type rectShape struct{}

func (rectShape) defaultSize() (float64, float64) { return 100, 50 }

func (rectShape) outline(b geom.Rect, p *surface.Primitive) {
	p.Kind = surface.KindRect
	p.Bounds = b
}

func (rectShape) anchors(b geom.Rect) [4]geom.Point { return edgeMidpoints(b) }

func (rectShape) contains(b geom.Rect, p geom.Point) bool { return b.Contains(p) }

type circleShape struct{}

func (circleShape) defaultSize() (float64, float64) { return 50, 50 }

func radius(b geom.Rect) float64 { return math.Min(b.W, b.H) / 2 }

func (circleShape) outline(b geom.Rect, p *surface.Primitive) {
	p.Kind = surface.KindCircle
	p.Center = b.Center()
	p.Radius = radius(b)
}

func (circleShape) anchors(b geom.Rect) [4]geom.Point {
	c, r := b.Center(), radius(b)
	return [4]geom.Point{
		AnchorL: {X: c.X - r, Y: c.Y},
		AnchorT: {X: c.X, Y: c.Y - r},
		AnchorR: {X: c.X + r, Y: c.Y},
		AnchorB: {X: c.X, Y: c.Y + r},
	}
}

func (circleShape) contains(b geom.Rect, p geom.Point) bool {
	return geom.Distance(b.Center(), p) <= radius(b)
}

type diamondShape struct{}

func (diamondShape) defaultSize() (float64, float64) { return 100, 60 }

func (diamondShape) outline(b geom.Rect, p *surface.Primitive) {
	v := edgeMidpoints(b)
	p.Kind = surface.KindPolygon
	p.Points = []geom.Point{v[AnchorT], v[AnchorR], v[AnchorB], v[AnchorL]}
}

func (diamondShape) anchors(b geom.Rect) [4]geom.Point { return edgeMidpoints(b) }

func (diamondShape) contains(b geom.Rect, p geom.Point) bool {
	if b.W == 0 || b.H == 0 {
		return false
	}
	c := b.Center()
	return math.Abs(p.X-c.X)/(b.W/2)+math.Abs(p.Y-c.Y)/(b.H/2) <= 1
}
