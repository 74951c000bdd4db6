package export

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"ivrflow/geom"
	"ivrflow/surface"
)

// Terminal cell size in local units.
const (
	CellWidth  = 8.0
	CellHeight = 16.0
)

// Cell is one character of a rendered grid. Color is the hex colour of
// the primitive that drew it, empty for blank cells.
type Cell struct {
	Ch    rune
	Color string
}

// Grid is a character raster of a view box.
type Grid struct {
	Cols, Rows int
	view       geom.Rect
	cells      []Cell
}

func NewGrid(view geom.Rect, cols, rows int) *Grid {
	g := &Grid{Cols: cols, Rows: rows, view: view, cells: make([]Cell, cols*rows)}
	for i := range g.cells {
		g.cells[i].Ch = ' '
	}
	return g
}

// Rasterize draws every primitive of the scene that falls into view.
func Rasterize(scene Scene, view geom.Rect, cols, rows int) *Grid {
	g := NewGrid(view, cols, rows)
	for _, p := range scene.Primitives() {
		g.Draw(p)
	}
	return g
}

func (g *Grid) At(col, row int) Cell {
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return Cell{Ch: ' '}
	}
	return g.cells[row*g.Cols+col]
}

// Lines returns the grid rows with trailing blanks trimmed.
func (g *Grid) Lines() []string {
	out := make([]string, g.Rows)
	for r := 0; r < g.Rows; r++ {
		var sb strings.Builder
		for c := 0; c < g.Cols; c++ {
			sb.WriteRune(g.cells[r*g.Cols+c].Ch)
		}
		out[r] = strings.TrimRight(sb.String(), " ")
	}
	return out
}

// CellOf maps a local point to its grid cell.
func (g *Grid) CellOf(p geom.Point) (col, row int) {
	if g.view.W == 0 || g.view.H == 0 {
		return 0, 0
	}
	col = int(math.Floor((p.X - g.view.X) * float64(g.Cols) / g.view.W))
	row = int(math.Floor((p.Y - g.view.Y) * float64(g.Rows) / g.view.H))
	return col, row
}

func (g *Grid) set(col, row int, ch rune, color string) {
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return
	}
	g.cells[row*g.Cols+col] = Cell{Ch: ch, Color: color}
}

func (g *Grid) get(col, row int) rune {
	return g.At(col, row).Ch
}

func (g *Grid) Draw(p *surface.Primitive) {
	st := p.Style
	switch p.Kind {
	case surface.KindRect:
		g.drawBox(p.Bounds, st, boxRunes(st))
	case surface.KindCircle:
		c0, r0 := g.CellOf(geom.Pt(p.Center.X-p.Radius, p.Center.Y-p.Radius))
		c1, r1 := g.CellOf(geom.Pt(p.Center.X+p.Radius, p.Center.Y+p.Radius))
		if c1-c0 < 2 || r1-r0 < 2 {
			c, r := g.CellOf(p.Center)
			g.set(c, r, 'o', st.Stroke)
			return
		}
		b := geom.Rect{X: p.Center.X - p.Radius, Y: p.Center.Y - p.Radius, W: 2 * p.Radius, H: 2 * p.Radius}
		g.drawBox(b, st, [6]rune{'.', '.', '\'', '\'', '-', '('})
	case surface.KindPolygon:
		if len(p.Points) == 0 {
			return
		}
		pts := append(append([]geom.Point{}, p.Points...), p.Points[0])
		g.polyline(pts, st.Stroke)
	case surface.KindLine:
		g.polyline(p.Points, st.Stroke)
		if st.ArrowEnd {
			g.arrow(p.Points, st.Stroke)
		}
	case surface.KindPath:
		pts := p.Path.Flatten(8)
		g.polyline(pts, st.Stroke)
		if st.ArrowEnd {
			g.arrow(pts, st.Stroke)
		}
	case surface.KindText:
		g.drawText(p)
	case surface.KindImage:
		c, r := g.CellOf(p.Bounds.Center())
		g.set(c, r, '*', "#90a4ae")
	}
}

// boxRunes picks corner, edge and side runes: selected outlines are
// drawn with '#', dashed ones with dots.
func boxRunes(st surface.Style) [6]rune {
	switch {
	case st.Dash:
		return [6]rune{'+', '+', '+', '+', '.', ':'}
	case st.StrokeWidth >= 2:
		return [6]rune{'#', '#', '#', '#', '#', '#'}
	default:
		return [6]rune{'+', '+', '+', '+', '-', '|'}
	}
}

// drawBox draws the outline of b and blanks its interior so anything on
// a lower layer is hidden. runes: top-left, top-right, bottom-left,
// bottom-right, horizontal, vertical.
func (g *Grid) drawBox(b geom.Rect, st surface.Style, runes [6]rune) {
	c0, r0 := g.CellOf(b.Min())
	c1, r1 := g.CellOf(b.Max())
	if c1 <= c0 {
		c1 = c0 + 1
	}
	if r1 <= r0 {
		r1 = r0 + 1
	}
	vertical := runes[5]
	right := vertical
	if vertical == '(' {
		right = ')'
	}
	opaque := st.Fill != "" && !st.Dash
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			var ch rune
			switch {
			case r == r0 && c == c0:
				ch = runes[0]
			case r == r0 && c == c1:
				ch = runes[1]
			case r == r1 && c == c0:
				ch = runes[2]
			case r == r1 && c == c1:
				ch = runes[3]
			case r == r0 || r == r1:
				ch = runes[4]
			case c == c0:
				ch = vertical
			case c == c1:
				ch = right
			default:
				if opaque {
					g.set(c, r, ' ', "")
				}
				continue
			}
			g.set(c, r, ch, st.Stroke)
		}
	}
}

func (g *Grid) polyline(pts []geom.Point, color string) {
	for i := 1; i < len(pts); i++ {
		g.line(pts[i-1], pts[i], color)
	}
}

// line rasterizes one segment cell by cell. Crossing a perpendicular
// stroke turns the cell into a corner.
func (g *Grid) line(a, b geom.Point, color string) {
	c0, r0 := g.CellOf(a)
	c1, r1 := g.CellOf(b)
	dc, dr := c1-c0, r1-r0
	steps := max(abs(dc), abs(dr))
	ch := lineRune(dc, dr)
	for i := 0; i <= steps; i++ {
		c, r := c0, r0
		if steps > 0 {
			c = c0 + int(math.Round(float64(dc*i)/float64(steps)))
			r = r0 + int(math.Round(float64(dr*i)/float64(steps)))
		}
		cur := g.get(c, r)
		switch {
		case cur == '+':
			continue
		case (cur == '-' && ch == '|') || (cur == '|' && ch == '-'):
			g.set(c, r, '+', color)
		default:
			g.set(c, r, ch, color)
		}
	}
}

func lineRune(dc, dr int) rune {
	switch {
	case dr == 0:
		return '-'
	case dc == 0:
		return '|'
	case abs(dc) > 2*abs(dr):
		return '-'
	case abs(dr) > 2*abs(dc):
		return '|'
	case (dc > 0) == (dr > 0):
		return '\\'
	default:
		return '/'
	}
}

// arrow marks the last cell of a polyline with a head facing the
// direction of its final leg.
func (g *Grid) arrow(pts []geom.Point, color string) {
	if len(pts) < 2 {
		return
	}
	end := pts[len(pts)-1]
	c1, r1 := g.CellOf(end)
	for i := len(pts) - 2; i >= 0; i-- {
		c0, r0 := g.CellOf(pts[i])
		dc, dr := c1-c0, r1-r0
		if dc == 0 && dr == 0 {
			continue
		}
		ch := '>'
		switch {
		case abs(dr) > abs(dc) && dr > 0:
			ch = 'v'
		case abs(dr) > abs(dc):
			ch = '^'
		case dc < 0:
			ch = '<'
		}
		g.set(c1, r1, ch, color)
		return
	}
}

func (g *Grid) drawText(p *surface.Primitive) {
	size := fontSize(p)
	for i, line := range strings.Split(p.Text, "\n") {
		runes := []rune(line)
		// the baseline sits near the bottom of the cell
		c, r := g.CellOf(geom.Pt(p.Center.X, p.Center.Y-size/2+float64(i)*size*1.2))
		switch p.Style.Anchor {
		case "middle":
			c -= len(runes) / 2
		case "end":
			c -= len(runes)
		}
		for j, ch := range runes {
			g.set(c+j, r, ch, p.Style.Fill)
		}
	}
}

// Text writes the scene as plain text, one character per terminal cell.
func Text(w io.Writer, scene Scene) error {
	view, err := frame(scene)
	if err != nil {
		return err
	}
	cols := int(math.Ceil(view.W / CellWidth))
	rows := int(math.Ceil(view.H / CellHeight))
	g := Rasterize(scene, view, cols, rows)

	bw := bufio.NewWriter(w)
	for _, line := range g.Lines() {
		fmt.Fprintln(bw, line)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("export: write text: %w", err)
	}
	return nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
