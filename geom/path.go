package geom

import (
	"math"
	"strconv"
	"strings"
)

type SegmentKind byte

const (
	MoveTo  SegmentKind = 'M'
	LineTo  SegmentKind = 'L'
	CurveTo SegmentKind = 'C'
	ArcTo   SegmentKind = 'A'
)

// Segment is one drawing command. Pts holds the end point last; CurveTo
// carries two control points before it. ArcTo uses Radius and Sweep.
type Segment struct {
	Kind   SegmentKind
	Pts    []Point
	Radius float64
	Sweep  bool
}

func (s Segment) End() Point {
	return s.Pts[len(s.Pts)-1]
}

type Path struct {
	Segments []Segment
}

// StraightPath joins the points with line segments.
func StraightPath(pts ...Point) Path {
	var p Path
	for i, pt := range pts {
		kind := LineTo
		if i == 0 {
			kind = MoveTo
		}
		p.Segments = append(p.Segments, Segment{Kind: kind, Pts: []Point{pt}})
	}
	return p
}

// BezierPath is a single cubic curve from p0 to p3.
func BezierPath(p0, c1, c2, p3 Point) Path {
	return Path{Segments: []Segment{
		{Kind: MoveTo, Pts: []Point{p0}},
		{Kind: CurveTo, Pts: []Point{c1, c2, p3}},
	}}
}

// OrthogonalPath leaves from at along the from direction, turns once and
// enters to along the to direction. The corner is placed on the axis of
// the origin direction so the first leg keeps its orientation.
func OrthogonalPath(from, fromAdj, toAdj, to Point, horizontalFirst bool) Path {
	corner := Point{toAdj.X, fromAdj.Y}
	if !horizontalFirst {
		corner = Point{fromAdj.X, toAdj.Y}
	}
	return StraightPath(from, fromAdj, corner, toAdj, to)
}

// RoundedPath replaces every interior vertex of the polyline with a
// circular arc of the given radius, clamped to half of the shorter
// adjacent leg.
func RoundedPath(pts []Point, radius float64) Path {
	if len(pts) < 3 || radius <= 0 {
		return StraightPath(pts...)
	}
	p := Path{Segments: []Segment{{Kind: MoveTo, Pts: []Point{pts[0]}}}}
	for i := 1; i < len(pts)-1; i++ {
		prev, cur, next := pts[i-1], pts[i], pts[i+1]
		in, out := Distance(prev, cur), Distance(cur, next)
		r := math.Min(radius, math.Min(in, out)/2)
		if r == 0 {
			p.Segments = append(p.Segments, Segment{Kind: LineTo, Pts: []Point{cur}})
			continue
		}
		start := cur.Sub(cur.Sub(prev).Scale(r / in))
		end := cur.Add(next.Sub(cur).Scale(r / out))
		cross := (cur.X-prev.X)*(next.Y-cur.Y) - (cur.Y-prev.Y)*(next.X-cur.X)
		p.Segments = append(p.Segments,
			Segment{Kind: LineTo, Pts: []Point{start}},
			Segment{Kind: ArcTo, Pts: []Point{end}, Radius: r, Sweep: cross > 0},
		)
	}
	p.Segments = append(p.Segments, Segment{Kind: LineTo, Pts: []Point{pts[len(pts)-1]}})
	return p
}

// Points returns every point of the path, control points included.
func (p Path) Points() []Point {
	var out []Point
	for _, s := range p.Segments {
		out = append(out, s.Pts...)
	}
	return out
}

// Vertices returns only the segment end points.
func (p Path) Vertices() []Point {
	out := make([]Point, 0, len(p.Segments))
	for _, s := range p.Segments {
		out = append(out, s.End())
	}
	return out
}

func (p Path) Translate(dx, dy float64) Path {
	out := Path{Segments: make([]Segment, len(p.Segments))}
	for i, s := range p.Segments {
		pts := make([]Point, len(s.Pts))
		for j, pt := range s.Pts {
			pts[j] = Point{pt.X + dx, pt.Y + dy}
		}
		out.Segments[i] = Segment{Kind: s.Kind, Pts: pts, Radius: s.Radius, Sweep: s.Sweep}
	}
	return out
}

func (p Path) Bounds() Rect {
	pts := p.Points()
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, pt := range pts[1:] {
		minX = math.Min(minX, pt.X)
		minY = math.Min(minY, pt.Y)
		maxX = math.Max(maxX, pt.X)
		maxY = math.Max(maxY, pt.Y)
	}
	return Rect{minX, minY, maxX - minX, maxY - minY}
}

func (p Path) Empty() bool {
	return len(p.Segments) == 0
}

// String renders the path as an SVG path data attribute.
func (p Path) String() string {
	var sb strings.Builder
	for i, s := range p.Segments {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteByte(byte(s.Kind))
		if s.Kind == ArcTo {
			sweep := "0"
			if s.Sweep {
				sweep = "1"
			}
			sb.WriteString(num(s.Radius) + "," + num(s.Radius) + " 0 0," + sweep + " ")
		}
		for j, pt := range s.Pts {
			if j > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(num(pt.X) + "," + num(pt.Y))
		}
	}
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Flatten approximates the path as a polyline. Curves are sampled with
// the given number of steps; arcs collapse to their chord.
func (p Path) Flatten(steps int) []Point {
	if steps < 1 {
		steps = 1
	}
	var out []Point
	for _, s := range p.Segments {
		switch s.Kind {
		case CurveTo:
			if len(out) == 0 {
				continue
			}
			p0 := out[len(out)-1]
			c1, c2, p3 := s.Pts[0], s.Pts[1], s.Pts[2]
			for i := 1; i <= steps; i++ {
				t := float64(i) / float64(steps)
				out = append(out, cubic(p0, c1, c2, p3, t))
			}
		default:
			out = append(out, s.End())
		}
	}
	return out
}

func cubic(p0, c1, c2, p3 Point, t float64) Point {
	u := 1 - t
	a, b, c, d := u*u*u, 3*u*u*t, 3*u*t*t, t*t*t
	return Point{
		X: a*p0.X + b*c1.X + c*c2.X + d*p3.X,
		Y: a*p0.Y + b*c1.Y + c*c2.Y + d*p3.Y,
	}
}
