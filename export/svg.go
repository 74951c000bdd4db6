package export

import (
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"

	"ivrflow/surface"
)

// errWriter remembers the first write error; svgo does not report them.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

// SVG writes the scene as a standalone SVG document sized to its extent.
func SVG(w io.Writer, scene Scene) error {
	view, err := frame(scene)
	if err != nil {
		return err
	}
	ew := &errWriter{w: w}
	canvas := svg.New(ew)
	vx, vy := int(math.Floor(view.X)), int(math.Floor(view.Y))
	vw, vh := int(math.Ceil(view.W)), int(math.Ceil(view.H))
	canvas.Startview(vw, vh, vx, vy, vw, vh)

	canvas.Def()
	canvas.Marker("arrow", 10, 5, 8, 8, `viewBox="0 0 10 10"`, `orient="auto-start-reverse"`)
	canvas.Path("M0,0 L10,5 L0,10 z", "fill:context-stroke")
	canvas.MarkerEnd()
	canvas.DefEnd()

	for _, p := range scene.Primitives() {
		drawSVG(canvas, p, view.X, view.Y, vw, vh)
	}
	canvas.End()
	if ew.err != nil {
		return fmt.Errorf("export: write svg: %w", ew.err)
	}
	return nil
}

func drawSVG(canvas *svg.SVG, p *surface.Primitive, vx, vy float64, vw, vh int) {
	attrs := []string{svgStyle(p)}
	if p.Class != "" {
		attrs = append(attrs, fmt.Sprintf(`class="%s"`, p.Class))
	}
	if p.Style.ArrowEnd {
		attrs = append(attrs, `marker-end="url(#arrow)"`)
	}

	switch p.Kind {
	case surface.KindRect:
		b := p.Bounds
		canvas.Rect(px(b.X), px(b.Y), px(b.W), px(b.H), attrs...)
	case surface.KindCircle:
		canvas.Circle(px(p.Center.X), px(p.Center.Y), px(p.Radius), attrs...)
	case surface.KindPolygon:
		xs, ys := coords(p)
		canvas.Polygon(xs, ys, attrs...)
	case surface.KindLine:
		xs, ys := coords(p)
		canvas.Polyline(xs, ys, attrs...)
	case surface.KindPath:
		if p.Path.Empty() {
			return
		}
		canvas.Path(p.Path.String(), attrs...)
	case surface.KindText:
		lines := strings.Split(p.Text, "\n")
		size := fontSize(p)
		for i, line := range lines {
			y := p.Center.Y + float64(i)*size*1.2
			canvas.Text(px(p.Center.X), px(y), line, attrs...)
		}
	case surface.KindImage:
		b := p.Bounds
		canvas.Image(px(b.X), px(b.Y), px(b.W), px(b.H), p.Href, attrs[1:]...)
	case surface.KindPattern:
		unit := px(p.Bounds.W)
		if unit <= 0 {
			return
		}
		canvas.Def()
		canvas.Pattern("grid", 0, 0, unit, unit, "user")
		canvas.Path(fmt.Sprintf("M%d,0 L0,0 L0,%d", unit, unit), "fill:none;"+svgStyle(p))
		canvas.PatternEnd()
		canvas.DefEnd()
		canvas.Rect(px(vx), px(vy), vw, vh, "fill:url(#grid)")
	}
}

func svgStyle(p *surface.Primitive) string {
	st := p.Style
	var parts []string
	if p.Kind == surface.KindText {
		fill := st.Fill
		if fill == "" {
			fill = "#000000"
		}
		anchor := st.Anchor
		if anchor == "" {
			anchor = "start"
		}
		parts = append(parts,
			"fill:"+fill,
			fmt.Sprintf("font-size:%gpx", fontSize(p)),
			"font-family:monospace",
			"text-anchor:"+anchor,
		)
		return strings.Join(parts, ";")
	}
	fill := st.Fill
	if fill == "" || p.Kind == surface.KindLine || p.Kind == surface.KindPath {
		fill = "none"
	}
	parts = append(parts, "fill:"+fill)
	if st.Stroke != "" {
		parts = append(parts, "stroke:"+st.Stroke)
	}
	if st.StrokeWidth > 0 {
		parts = append(parts, fmt.Sprintf("stroke-width:%g", st.StrokeWidth))
	}
	if st.Dash {
		parts = append(parts, "stroke-dasharray:4,3")
	}
	if st.Opacity > 0 && st.Opacity < 1 {
		parts = append(parts, fmt.Sprintf("fill-opacity:%g", st.Opacity))
	}
	return strings.Join(parts, ";")
}

func fontSize(p *surface.Primitive) float64 {
	if p.Style.FontSize > 0 {
		return p.Style.FontSize
	}
	return 12
}

func coords(p *surface.Primitive) ([]int, []int) {
	xs := make([]int, len(p.Points))
	ys := make([]int, len(p.Points))
	for i, pt := range p.Points {
		xs[i], ys[i] = px(pt.X), px(pt.Y)
	}
	return xs, ys
}

func px(v float64) int {
	return int(math.Round(v))
}
