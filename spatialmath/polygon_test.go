package spatialmath

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestNewConvexPolygon(t *testing.T) {
	// interior and collinear points are dropped, and the result is clockwise
	poly, err := NewConvexPolygon(
		r2.Point{X: 0, Y: 0},
		r2.Point{X: 5, Y: 5},
		r2.Point{X: 10, Y: 10},
		r2.Point{X: 10, Y: 0},
		r2.Point{X: 5, Y: 0},
		r2.Point{X: 0, Y: 10},
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, poly.Len(), test.ShouldEqual, 4)
	test.That(t, signedArea(poly.Points()), test.ShouldBeLessThan, 0)
	test.That(t, poly.Area(), test.ShouldAlmostEqual, 100)
	test.That(t, poly.Centroid().X, test.ShouldAlmostEqual, 5)
	test.That(t, poly.Centroid().Y, test.ShouldAlmostEqual, 5)

	_, err = NewConvexPolygon(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}, r2.Point{X: 2, Y: 2})
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, ErrDegeneratePolygon.Error())

	_, err = NewRotatedRectangle(1, 1, 1, 1, 5)
	test.That(t, err, test.ShouldNotBeNil)

	var empty ConvexPolygon
	test.That(t, empty.Centroid(), test.ShouldResemble, r2.Point{})
	test.That(t, empty.RadialExpand(10).Len(), test.ShouldEqual, 0)
	_, err = ExpandCSpace(empty.RadialExpand(10), poly)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestPolygonTransforms(t *testing.T) {
	rect, err := NewAxisAlignedRectangle(-10, -5, 10, 5)
	test.That(t, err, test.ShouldBeNil)

	t.Run("contains", func(t *testing.T) {
		test.That(t, rect.Contains(r2.Point{X: 0, Y: 0}), test.ShouldBeTrue)
		test.That(t, rect.Contains(r2.Point{X: 10, Y: 5}), test.ShouldBeTrue)
		test.That(t, rect.Contains(r2.Point{X: 10.1, Y: 0}), test.ShouldBeFalse)
	})

	t.Run("rotate", func(t *testing.T) {
		b := rect.Rotate(math.Pi / 2).Bounds()
		test.That(t, b.X.Lo, test.ShouldAlmostEqual, -5)
		test.That(t, b.X.Hi, test.ShouldAlmostEqual, 5)
		test.That(t, b.Y.Lo, test.ShouldAlmostEqual, -10)
		test.That(t, b.Y.Hi, test.ShouldAlmostEqual, 10)
	})

	t.Run("scale and expand about the centroid", func(t *testing.T) {
		moved := rect.Translate(r2.Point{X: 100, Y: 0})
		b := moved.Scale(2).Bounds()
		test.That(t, b.X.Lo, test.ShouldAlmostEqual, 80)
		test.That(t, b.X.Hi, test.ShouldAlmostEqual, 120)
		test.That(t, b.Y.Hi, test.ShouldAlmostEqual, 10)

		expanded := moved.RadialExpand(math.Hypot(10, 5))
		b = expanded.Bounds()
		test.That(t, b.X.Lo, test.ShouldAlmostEqual, 80)
		test.That(t, b.X.Hi, test.ShouldAlmostEqual, 120)
		test.That(t, b.Y.Lo, test.ShouldAlmostEqual, -10)
		test.That(t, expanded.Area(), test.ShouldAlmostEqual, 4*rect.Area())
	})

	t.Run("rotated rectangle extends to the left", func(t *testing.T) {
		r, err := NewRotatedRectangle(0, 0, 10, 0, 4)
		test.That(t, err, test.ShouldBeNil)
		b := r.Bounds()
		test.That(t, b.Y.Lo, test.ShouldAlmostEqual, 0)
		test.That(t, b.Y.Hi, test.ShouldAlmostEqual, 4)
		test.That(t, r.Area(), test.ShouldAlmostEqual, 40)
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(rect)
		test.That(t, err, test.ShouldBeNil)
		var back ConvexPolygon
		test.That(t, json.Unmarshal(data, &back), test.ShouldBeNil)
		test.That(t, back.Points(), test.ShouldResemble, rect.Points())

		test.That(t, json.Unmarshal([]byte(`[{"x":0,"y":0},{"x":1,"y":0}]`), &back), test.ShouldNotBeNil)
	})
}

func TestFastPolygon(t *testing.T) {
	tri, err := NewConvexPolygon(r2.Point{X: 0, Y: 0}, r2.Point{X: 30, Y: 0}, r2.Point{X: 0, Y: 10})
	test.That(t, err, test.ShouldBeNil)
	fp := NewFastPolygon(tri)
	sorted := NewFastPolygon(tri)
	sorted.SortEdgeVectors()

	for x := -2.3; x <= 32.5; x += 1.1 {
		for y := -2.3; y <= 12.5; y += 0.7 {
			pt := r2.Point{X: x, Y: y}
			test.That(t, fp.Contains(pt), test.ShouldEqual, tri.Contains(pt))
			test.That(t, sorted.ContainsXY(x, y), test.ShouldEqual, tri.Contains(pt))
		}
	}
	test.That(t, fp.Polygon().Area(), test.ShouldAlmostEqual, 150)

	moved := TranslateRect(fp.Bounds(), r2.Point{X: 1, Y: -1})
	test.That(t, moved.X.Lo, test.ShouldAlmostEqual, 1)
	test.That(t, moved.Y.Hi, test.ShouldAlmostEqual, 9)
	test.That(t, TranslateRect(r2.EmptyRect(), r2.Point{X: 1}).IsEmpty(), test.ShouldBeTrue)
}

func TestExpandCSpace(t *testing.T) {
	obstacle, err := NewAxisAlignedRectangle(100, -10, 120, 10)
	test.That(t, err, test.ShouldBeNil)
	// footprint reaching further forward than backward
	robot, err := NewAxisAlignedRectangle(-5, -3, 15, 3)
	test.That(t, err, test.ShouldBeNil)

	cspace, err := ExpandCSpace(obstacle, robot)
	test.That(t, err, test.ShouldBeNil)
	b := cspace.Bounds()
	test.That(t, b.X.Lo, test.ShouldAlmostEqual, 85)
	test.That(t, b.X.Hi, test.ShouldAlmostEqual, 125)
	test.That(t, b.Y.Lo, test.ShouldAlmostEqual, -13)
	test.That(t, b.Y.Hi, test.ShouldAlmostEqual, 13)
	test.That(t, cspace.ContainsXY(86, 0), test.ShouldBeTrue)
	test.That(t, cspace.ContainsXY(84, 0), test.ShouldBeFalse)

	_, err = ExpandCSpace(ConvexPolygon{}, robot)
	test.That(t, err, test.ShouldNotBeNil)
}
