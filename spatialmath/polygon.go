// Package spatialmath defines the planar geometry used by the lattice planner: convex polygons,
// fast containment tests and configuration-space expansion.
package spatialmath

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

const degenerateAreaEpsilon = 1e-9

// ErrDegeneratePolygon is returned when the given points do not enclose any area.
var ErrDegeneratePolygon = errors.New("polygon has no area")

// ConvexPolygon is a convex polygon with its vertices stored in clockwise order.
type ConvexPolygon struct {
	points []r2.Point
}

// NewConvexPolygon returns the convex hull of the given points. Points may be given in any order.
func NewConvexPolygon(points ...r2.Point) (ConvexPolygon, error) {
	hull := ConvexHull(points)
	if len(hull) < 3 || math.Abs(signedArea(hull)) < degenerateAreaEpsilon {
		return ConvexPolygon{}, errors.Wrapf(ErrDegeneratePolygon, "%d input points", len(points))
	}
	return ConvexPolygon{points: hull}, nil
}

// NewAxisAlignedRectangle returns the rectangle spanning the two corners.
func NewAxisAlignedRectangle(minX, minY, maxX, maxY float64) (ConvexPolygon, error) {
	return NewConvexPolygon(
		r2.Point{X: minX, Y: minY},
		r2.Point{X: maxX, Y: minY},
		r2.Point{X: maxX, Y: maxY},
		r2.Point{X: minX, Y: maxY},
	)
}

// NewRotatedRectangle returns the rectangle with one side from (x0, y0) to (x1, y1) that extends
// `width` to the left of that side.
func NewRotatedRectangle(x0, y0, x1, y1, width float64) (ConvexPolygon, error) {
	p0 := r2.Point{X: x0, Y: y0}
	p1 := r2.Point{X: x1, Y: y1}
	side := p1.Sub(p0)
	if side.Norm() == 0 {
		return ConvexPolygon{}, errors.Wrap(ErrDegeneratePolygon, "rotated rectangle side has zero length")
	}
	offset := side.Ortho().Normalize().Mul(width)
	return NewConvexPolygon(p0, p1, p1.Add(offset), p0.Add(offset))
}

// Points returns the vertices in clockwise order.
func (p ConvexPolygon) Points() []r2.Point {
	out := make([]r2.Point, len(p.points))
	copy(out, p.points)
	return out
}

// Len returns the number of vertices.
func (p ConvexPolygon) Len() int {
	return len(p.points)
}

// Edge returns the vector from vertex i to vertex i+1.
func (p ConvexPolygon) Edge(i int) r2.Point {
	return p.points[(i+1)%len(p.points)].Sub(p.points[i])
}

// Area returns the enclosed area.
func (p ConvexPolygon) Area() float64 {
	return math.Abs(signedArea(p.points))
}

// Centroid returns the area centroid.
func (p ConvexPolygon) Centroid() r2.Point {
	var cx, cy, a float64
	n := len(p.points)
	if n == 0 {
		return r2.Point{}
	}
	for i := 0; i < n; i++ {
		p0, p1 := p.points[i], p.points[(i+1)%n]
		cross := p0.Cross(p1)
		a += cross
		cx += (p0.X + p1.X) * cross
		cy += (p0.Y + p1.Y) * cross
	}
	if a == 0 {
		return p.points[0]
	}
	return r2.Point{X: cx / (3 * a), Y: cy / (3 * a)}
}

// Bounds returns the axis-aligned bounding rectangle.
func (p ConvexPolygon) Bounds() r2.Rect {
	return r2.RectFromPoints(p.points...)
}

// Contains reports whether pt lies inside or on the boundary.
func (p ConvexPolygon) Contains(pt r2.Point) bool {
	n := len(p.points)
	if n == 0 {
		return false
	}
	for i := 0; i < n; i++ {
		// clockwise winding puts the interior on the right of every edge
		if p.Edge(i).Cross(pt.Sub(p.points[i])) > 0 {
			return false
		}
	}
	return true
}

// Translate returns the polygon moved by `offset`.
func (p ConvexPolygon) Translate(offset r2.Point) ConvexPolygon {
	out := make([]r2.Point, len(p.points))
	for i, pt := range p.points {
		out[i] = pt.Add(offset)
	}
	return ConvexPolygon{points: out}
}

// Rotate returns the polygon rotated by `theta` radians about the origin.
func (p ConvexPolygon) Rotate(theta float64) ConvexPolygon {
	out := make([]r2.Point, len(p.points))
	for i, pt := range p.points {
		out[i] = RotatePoint(pt, theta)
	}
	return ConvexPolygon{points: out}
}

// Scale returns the polygon scaled by `factor` about its centroid.
func (p ConvexPolygon) Scale(factor float64) ConvexPolygon {
	c := p.Centroid()
	out := make([]r2.Point, len(p.points))
	for i, pt := range p.points {
		out[i] = c.Add(pt.Sub(c).Mul(factor))
	}
	return ConvexPolygon{points: out}
}

// RadialExpand moves every vertex `amount` further from the centroid.
func (p ConvexPolygon) RadialExpand(amount float64) ConvexPolygon {
	c := p.Centroid()
	out := make([]r2.Point, len(p.points))
	for i, pt := range p.points {
		dir := pt.Sub(c)
		if norm := dir.Norm(); norm > 0 {
			out[i] = pt.Add(dir.Mul(amount / norm))
		} else {
			out[i] = pt
		}
	}
	return ConvexPolygon{points: out}
}

func (p ConvexPolygon) String() string {
	return fmt.Sprintf("poly%v", p.points)
}

type jsonPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// MarshalJSON writes the vertices as [{"x":..,"y":..}, ...].
func (p ConvexPolygon) MarshalJSON() ([]byte, error) {
	pts := make([]jsonPoint, len(p.points))
	for i, pt := range p.points {
		pts[i] = jsonPoint{pt.X, pt.Y}
	}
	return json.Marshal(pts)
}

// UnmarshalJSON reads a vertex list and re-normalizes it to a clockwise hull.
func (p *ConvexPolygon) UnmarshalJSON(data []byte) error {
	var pts []jsonPoint
	if err := json.Unmarshal(data, &pts); err != nil {
		return err
	}
	points := make([]r2.Point, len(pts))
	for i, pt := range pts {
		points[i] = r2.Point{X: pt.X, Y: pt.Y}
	}
	poly, err := NewConvexPolygon(points...)
	if err != nil {
		return err
	}
	*p = poly
	return nil
}

// RotatePoint rotates pt by theta about the origin.
func RotatePoint(pt r2.Point, theta float64) r2.Point {
	s, c := math.Sincos(theta)
	return r2.Point{X: c*pt.X - s*pt.Y, Y: s*pt.X + c*pt.Y}
}

// ConvexHull returns the hull of the points in clockwise order, without collinear vertices.
func ConvexHull(points []r2.Point) []r2.Point {
	pts := make([]r2.Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	if len(pts) < 3 {
		return pts
	}

	// monotone chain, building the counter-clockwise hull
	hull := make([]r2.Point, 0, 2*len(pts))
	for _, pt := range pts {
		for len(hull) >= 2 && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(pt.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		pt := pts[i]
		for len(hull) >= lower && hull[len(hull)-1].Sub(hull[len(hull)-2]).Cross(pt.Sub(hull[len(hull)-2])) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, pt)
	}
	hull = hull[:len(hull)-1]

	for i, j := 0, len(hull)-1; i < j; i, j = i+1, j-1 {
		hull[i], hull[j] = hull[j], hull[i]
	}
	return hull
}

// signedArea is positive for counter-clockwise winding.
func signedArea(points []r2.Point) float64 {
	var a float64
	n := len(points)
	for i := 0; i < n; i++ {
		a += points[i].Cross(points[(i+1)%n])
	}
	return a / 2
}
