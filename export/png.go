package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"ivrflow/geom"
	"ivrflow/surface"
)

const arrowSize = 8.0

// PNG rasterizes the scene. scale is pixels per local unit.
func PNG(w io.Writer, scene Scene, scale float64) error {
	view, err := frame(scene)
	if err != nil {
		return err
	}
	if scale <= 0 {
		scale = 1
	}
	width := int(math.Ceil(view.W * scale))
	height := int(math.Ceil(view.H * scale))

	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(scale, scale)
	dc.Translate(-view.X, -view.Y)

	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return fmt.Errorf("export: parse font: %w", err)
	}
	faces := make(map[float64]font.Face)
	faceFor := func(size float64) font.Face {
		if f, ok := faces[size]; ok {
			return f
		}
		f := truetype.NewFace(ttf, &truetype.Options{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingFull,
		})
		faces[size] = f
		return f
	}

	for _, p := range scene.Primitives() {
		drawPNG(dc, p, view, faceFor)
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("export: encode png: %w", err)
	}
	return nil
}

func drawPNG(dc *gg.Context, p *surface.Primitive, view geom.Rect, faceFor func(float64) font.Face) {
	st := p.Style
	switch p.Kind {
	case surface.KindRect:
		b := p.Bounds
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		fillStroke(dc, st)
	case surface.KindCircle:
		dc.DrawCircle(p.Center.X, p.Center.Y, p.Radius)
		fillStroke(dc, st)
	case surface.KindPolygon:
		for i, pt := range p.Points {
			if i == 0 {
				dc.MoveTo(pt.X, pt.Y)
				continue
			}
			dc.LineTo(pt.X, pt.Y)
		}
		dc.ClosePath()
		fillStroke(dc, st)
	case surface.KindLine:
		for i, pt := range p.Points {
			if i == 0 {
				dc.MoveTo(pt.X, pt.Y)
				continue
			}
			dc.LineTo(pt.X, pt.Y)
		}
		stroke(dc, st)
		if st.ArrowEnd && len(p.Points) > 1 {
			n := len(p.Points)
			drawArrow(dc, p.Points[n-2], p.Points[n-1], st.Stroke)
		}
	case surface.KindPath:
		tracePath(dc, p.Path)
		stroke(dc, st)
		if st.ArrowEnd {
			if pts := p.Path.Flatten(8); len(pts) > 1 {
				drawArrow(dc, pts[len(pts)-2], pts[len(pts)-1], st.Stroke)
			}
		}
	case surface.KindText:
		size := fontSize(p)
		dc.SetFontFace(faceFor(size))
		setHex(dc, st.Fill, 1)
		ax := 0.0
		switch st.Anchor {
		case "middle":
			ax = 0.5
		case "end":
			ax = 1
		}
		for i, line := range strings.Split(p.Text, "\n") {
			dc.DrawStringAnchored(line, p.Center.X, p.Center.Y+float64(i)*size*1.2, ax, 0)
		}
	case surface.KindImage:
		// icons are not fetched; draw a placeholder frame
		b := p.Bounds
		dc.DrawRectangle(b.X, b.Y, b.W, b.H)
		dc.SetLineWidth(0.5)
		setHex(dc, "#90a4ae", 1)
		dc.Stroke()
	case surface.KindPattern:
		unit := p.Bounds.W
		if unit <= 0 {
			return
		}
		setHex(dc, st.Stroke, 1)
		dc.SetLineWidth(math.Max(st.StrokeWidth, 0.5))
		for x := math.Floor(view.X/unit) * unit; x <= view.X+view.W; x += unit {
			dc.DrawLine(x, view.Y, x, view.Y+view.H)
		}
		for y := math.Floor(view.Y/unit) * unit; y <= view.Y+view.H; y += unit {
			dc.DrawLine(view.X, y, view.X+view.W, y)
		}
		dc.Stroke()
	}
}

func tracePath(dc *gg.Context, path geom.Path) {
	for _, s := range path.Segments {
		switch s.Kind {
		case geom.MoveTo:
			dc.MoveTo(s.End().X, s.End().Y)
		case geom.CurveTo:
			dc.CubicTo(s.Pts[0].X, s.Pts[0].Y, s.Pts[1].X, s.Pts[1].Y, s.Pts[2].X, s.Pts[2].Y)
		default:
			// arcs are short corner fillets; a chord is close enough
			dc.LineTo(s.End().X, s.End().Y)
		}
	}
}

func fillStroke(dc *gg.Context, st surface.Style) {
	if st.Fill != "" {
		alpha := 1.0
		if st.Opacity > 0 && st.Opacity < 1 {
			alpha = st.Opacity
		}
		setHex(dc, st.Fill, alpha)
		dc.FillPreserve()
	}
	stroke(dc, st)
}

func stroke(dc *gg.Context, st surface.Style) {
	width := st.StrokeWidth
	if width <= 0 {
		width = 1
	}
	dc.SetLineWidth(width)
	if st.Dash {
		dc.SetDash(4, 3)
	} else {
		dc.SetDash()
	}
	setHex(dc, st.Stroke, 1)
	dc.Stroke()
	dc.SetDash()
}

// drawArrow fills a head at to, pointing away from from.
func drawArrow(dc *gg.Context, from, to geom.Point, hex string) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	if length < 0.1 {
		return
	}
	dx /= length
	dy /= length

	const spread = 0.5
	dc.MoveTo(to.X, to.Y)
	dc.LineTo(to.X-arrowSize*dx+arrowSize*dy*spread, to.Y-arrowSize*dy-arrowSize*dx*spread)
	dc.LineTo(to.X-arrowSize*dx-arrowSize*dy*spread, to.Y-arrowSize*dy+arrowSize*dx*spread)
	dc.ClosePath()
	setHex(dc, hex, 1)
	dc.Fill()
}

func setHex(dc *gg.Context, hex string, alpha float64) {
	r, g, b := parseHex(hex)
	dc.SetRGBA255(int(r), int(g), int(b), int(alpha*255))
}
