// Package geom holds the coordinate helpers shared by the diagram engine
// and its renderers.
package geom

import "math"

type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{p.X * f, p.Y * f}
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// RectFromCorners normalises two opposite corners, so a marquee dragged
// up or left still yields a positive width and height.
func RectFromCorners(a, b Point) Rect {
	return Rect{
		X: math.Min(a.X, b.X),
		Y: math.Min(a.Y, b.Y),
		W: math.Abs(b.X - a.X),
		H: math.Abs(b.Y - a.Y),
	}
}

func (r Rect) Min() Point { return Point{r.X, r.Y} }

func (r Rect) Max() Point { return Point{r.X + r.W, r.Y + r.H} }

func (r Rect) Center() Point {
	return Point{r.X + r.W/2, r.Y + r.H/2}
}

func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Intersects reports whether the two rectangles share any area or edge.
func (r Rect) Intersects(o Rect) bool {
	return r.X <= o.X+o.W && o.X <= r.X+r.W && r.Y <= o.Y+o.H && o.Y <= r.Y+r.H
}

func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{r.X + dx, r.Y + dy, r.W, r.H}
}

func (r Rect) Inset(d float64) Rect {
	return Rect{r.X + d, r.Y + d, r.W - 2*d, r.H - 2*d}
}

func (r Rect) Union(o Rect) Rect {
	minX := math.Min(r.X, o.X)
	minY := math.Min(r.Y, o.Y)
	maxX := math.Max(r.X+r.W, o.X+o.W)
	maxY := math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

func Midpoint(a, b Point) Point {
	return Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}

// SegmentDistance returns the distance from p to the closest point of the
// segment a-b.
func SegmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, Point{a.X + t*dx, a.Y + t*dy})
}

// Snap rounds v half-up to the nearest multiple of unit. A non-positive
// unit disables snapping.
func Snap(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	return math.Floor(v/unit+0.5) * unit
}

func SnapPoint(p Point, unit float64) Point {
	return Point{Snap(p.X, unit), Snap(p.Y, unit)}
}

// ClientToLocal maps a pointer position in client pixels onto the
// coordinate system of the visible view box.
func ClientToLocal(client Point, clientW, clientH float64, viewBox Rect) Point {
	if clientW <= 0 || clientH <= 0 {
		return client.Add(viewBox.Min())
	}
	return Point{
		X: viewBox.X + client.X*viewBox.W/clientW,
		Y: viewBox.Y + client.Y*viewBox.H/clientH,
	}
}

// ScaleAbout scales r by f keeping its top-left corner fixed.
func (r Rect) ScaleAbout(f float64) Rect {
	return Rect{r.X, r.Y, r.W * f, r.H * f}
}
