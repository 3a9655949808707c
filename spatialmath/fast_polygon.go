package spatialmath

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
)

// FastPolygon wraps a ConvexPolygon with precomputed data for repeated point containment tests:
// outward edge normals, the bounding box, and circles around the centroid that fully contain
// (circumscribed) or are fully contained by (inscribed) the polygon.
type FastPolygon struct {
	poly ConvexPolygon

	bounds           r2.Rect
	center           r2.Point
	circumscribedSq  float64
	inscribedSq      float64
	edgeStarts       []r2.Point
	edgeNormals      []r2.Point
	edgeOrderLengths []float64
}

// NewFastPolygon precomputes containment data for `poly`.
func NewFastPolygon(poly ConvexPolygon) *FastPolygon {
	fp := &FastPolygon{
		poly:   poly,
		bounds: poly.Bounds(),
		center: poly.Centroid(),
	}

	n := poly.Len()
	fp.edgeStarts = make([]r2.Point, n)
	fp.edgeNormals = make([]r2.Point, n)
	fp.edgeOrderLengths = make([]float64, n)
	fp.inscribedSq = math.Inf(1)
	for i := 0; i < n; i++ {
		start := poly.points[i]
		edge := poly.Edge(i)
		length := edge.Norm()

		// for clockwise winding the left-hand perpendicular points outward
		normal := edge.Ortho()
		if length > 0 {
			normal = normal.Mul(1 / length)
		}
		fp.edgeStarts[i] = start
		fp.edgeNormals[i] = normal
		fp.edgeOrderLengths[i] = length

		fp.circumscribedSq = math.Max(fp.circumscribedSq, normSq(start.Sub(fp.center)))
		if length > 0 {
			distToEdge := -fp.center.Sub(start).Dot(normal)
			fp.inscribedSq = math.Min(fp.inscribedSq, distToEdge*distToEdge)
		}
	}
	if n == 0 {
		fp.inscribedSq = 0
	}
	return fp
}

// Polygon returns the wrapped polygon.
func (fp *FastPolygon) Polygon() ConvexPolygon {
	return fp.poly
}

// Bounds returns the axis-aligned bounding rectangle.
func (fp *FastPolygon) Bounds() r2.Rect {
	return fp.bounds
}

// SortEdgeVectors reorders the edge checks so the longest edges, which reject the most area, are
// tested first. Containment results are unchanged.
func (fp *FastPolygon) SortEdgeVectors() {
	idx := make([]int, len(fp.edgeStarts))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return fp.edgeOrderLengths[idx[a]] > fp.edgeOrderLengths[idx[b]]
	})

	starts := make([]r2.Point, len(idx))
	normals := make([]r2.Point, len(idx))
	lengths := make([]float64, len(idx))
	for newIdx, oldIdx := range idx {
		starts[newIdx] = fp.edgeStarts[oldIdx]
		normals[newIdx] = fp.edgeNormals[oldIdx]
		lengths[newIdx] = fp.edgeOrderLengths[oldIdx]
	}
	fp.edgeStarts, fp.edgeNormals, fp.edgeOrderLengths = starts, normals, lengths
}

// Contains reports whether pt lies inside or on the boundary of the polygon.
func (fp *FastPolygon) Contains(pt r2.Point) bool {
	if !fp.bounds.ContainsPoint(pt) {
		return false
	}

	distSq := normSq(pt.Sub(fp.center))
	if distSq > fp.circumscribedSq {
		return false
	}
	if distSq < fp.inscribedSq {
		return true
	}

	for i, start := range fp.edgeStarts {
		if pt.Sub(start).Dot(fp.edgeNormals[i]) > 0 {
			return false
		}
	}
	return true
}

// ContainsXY is Contains for a bare coordinate pair.
func (fp *FastPolygon) ContainsXY(x, y float64) bool {
	return fp.Contains(r2.Point{X: x, Y: y})
}

func normSq(p r2.Point) float64 {
	return p.Dot(p)
}

// TranslateRect returns r moved by offset.
func TranslateRect(r r2.Rect, offset r2.Point) r2.Rect {
	if r.IsEmpty() {
		return r
	}
	return r2.RectFromPoints(r.Lo().Add(offset), r.Hi().Add(offset))
}
