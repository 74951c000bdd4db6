package diagram

import "ivrflow/geom"

const cornerRadius = 10

// route computes the path between two anchors and where its label sits.
//
// Endpoints closer than twice the margin get a direct segment labelled at
// its midpoint. Otherwise each end first travels margin units along its
// anchor normal, and the two adjacent points are joined according to the
// line type; the label sits halfway between them.
func route(opts Options, from geom.Point, fromKey AnchorKey, to geom.Point, toKey AnchorKey) (geom.Path, geom.Point) {
	margin := opts.margin()
	if geom.Distance(from, to) < 2*margin {
		return geom.StraightPath(from, to), geom.Midpoint(from, to)
	}

	fromAdj := from.Add(fromKey.Direction().Scale(margin))
	toAdj := to.Add(toKey.Direction().Scale(margin))
	label := geom.Midpoint(fromAdj, toAdj)

	switch opts.LineType {
	case LineBezier:
		return geom.BezierPath(from, fromAdj, toAdj, to), label
	case LineStraight:
		return geom.StraightPath(from, fromAdj, toAdj, to), label
	}

	path := geom.OrthogonalPath(from, fromAdj, toAdj, to, fromKey.Horizontal())
	if opts.RoundedCorners {
		path = geom.RoundedPath(path.Vertices(), cornerRadius)
	}
	return path, label
}
