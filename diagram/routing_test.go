package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivrflow/geom"
)

func assertPathsClose(t *testing.T, want, got geom.Path) {
	t.Helper()
	wp, gp := want.Points(), got.Points()
	require.Len(t, gp, len(wp))
	for i := range wp {
		assert.InDelta(t, wp[i].X, gp[i].X, 1e-9)
		assert.InDelta(t, wp[i].Y, gp[i].Y, 1e-9)
	}
}

func TestRouteShortDistanceIsStraight(t *testing.T) {
	from, to := geom.Pt(0, 0), geom.Pt(60, 0)

	path, label := route(Options{}, from, AnchorR, to, AnchorL)

	assert.Equal(t, "M0,0 L60,0", path.String())
	assert.Equal(t, geom.Pt(30, 0), label)
}

func TestRouteOrthogonal(t *testing.T) {
	path, label := route(Options{}, geom.Pt(100, 25), AnchorR, geom.Pt(300, 225), AnchorL)

	assert.Equal(t, []geom.Point{
		{X: 100, Y: 25}, {X: 140, Y: 25}, {X: 260, Y: 25}, {X: 260, Y: 225}, {X: 300, Y: 225},
	}, path.Vertices())
	assert.Equal(t, geom.Pt(200, 125), label)
}

func TestRouteStraightPolyline(t *testing.T) {
	path, _ := route(Options{LineType: LineStraight}, geom.Pt(0, 0), AnchorB, geom.Pt(0, 300), AnchorT)

	assert.Equal(t, "M0,0 L0,40 L0,260 L0,300", path.String())
}

func TestRouteBezierUsesWideMargin(t *testing.T) {
	opts := Options{LineType: LineBezier}

	short, _ := route(opts, geom.Pt(0, 0), AnchorR, geom.Pt(150, 0), AnchorL)
	assert.Equal(t, "M0,0 L150,0", short.String())

	path, label := route(opts, geom.Pt(0, 0), AnchorR, geom.Pt(400, 0), AnchorL)
	assert.Equal(t, "M0,0 C80,0 320,0 400,0", path.String())
	assert.Equal(t, geom.Pt(200, 0), label)
}

func TestRouteRoundedCornersOptIn(t *testing.T) {
	from, to := geom.Pt(100, 25), geom.Pt(300, 225)

	sharp, _ := route(Options{}, from, AnchorR, to, AnchorL)
	rounded, _ := route(Options{RoundedCorners: true}, from, AnchorR, to, AnchorL)

	assert.NotContains(t, sharp.String(), "A")
	assert.Contains(t, rounded.String(), "A")
}

func TestRouteTranslationInvariance(t *testing.T) {
	cases := []struct {
		name     string
		opts     Options
		from, to geom.Point
		fk, tk   AnchorKey
	}{
		{"straight", Options{}, geom.Pt(0, 0), geom.Pt(50, 10), AnchorR, AnchorL},
		{"orthogonal", Options{}, geom.Pt(100, 25), geom.Pt(300, 225), AnchorR, AnchorL},
		{"orthogonal vertical", Options{}, geom.Pt(50, 50), geom.Pt(400, 300), AnchorB, AnchorT},
		{"bezier", Options{LineType: LineBezier}, geom.Pt(0, 0), geom.Pt(400, 120), AnchorR, AnchorT},
		{"polyline", Options{LineType: LineStraight}, geom.Pt(0, 0), geom.Pt(200, 200), AnchorB, AnchorL},
		{"rounded", Options{RoundedCorners: true}, geom.Pt(100, 25), geom.Pt(300, 225), AnchorR, AnchorL},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			const dx, dy = 125, -75
			base, baseLabel := route(tc.opts, tc.from, tc.fk, tc.to, tc.tk)
			moved, movedLabel := route(tc.opts, tc.from.Add(geom.Pt(dx, dy)), tc.fk, tc.to.Add(geom.Pt(dx, dy)), tc.tk)

			assertPathsClose(t, base.Translate(dx, dy), moved)
			assert.InDelta(t, baseLabel.X+dx, movedLabel.X, 1e-9)
			assert.InDelta(t, baseLabel.Y+dy, movedLabel.Y, 1e-9)
		})
	}
}
