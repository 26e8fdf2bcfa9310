package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func vectorsAlmostEqual(a, b r3.Vector) bool {
	return a.Sub(b).Norm() < 1e-8
}

func TestNewLine(t *testing.T) {
	line, err := NewLine(r3.Vector{}, r3.Vector{X: 3, Y: 4})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, line.Length(), test.ShouldAlmostEqual, 5)
	test.That(t, line.Curvature(), test.ShouldEqual, 0)
	test.That(t, vectorsAlmostEqual(line.Tangent(0), r3.Vector{X: 0.6, Y: 0.8}), test.ShouldBeTrue)
	test.That(t, vectorsAlmostEqual(line.Tangent(5), line.Tangent(0)), test.ShouldBeTrue)
	test.That(t, vectorsAlmostEqual(line.PointAt(2.5), r3.Vector{X: 1.5, Y: 2}), test.ShouldBeTrue)
}

func TestNewLineRejectsZeroLength(t *testing.T) {
	pt := r3.Vector{X: 1, Y: 2, Z: 3}
	_, err := NewLine(pt, pt)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNewArcQuarterCircle(t *testing.T) {
	arc, err := NewArc(
		r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{},
		1, r3.Vector{Z: 1}, false,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arc.Length(), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, arc.Curvature(), test.ShouldAlmostEqual, 1)

	test.That(t, vectorsAlmostEqual(arc.Tangent(0), r3.Vector{Y: 1}), test.ShouldBeTrue)
	test.That(t, vectorsAlmostEqual(arc.Tangent(arc.Length()), r3.Vector{X: -1}), test.ShouldBeTrue)

	halfway := arc.PointAt(arc.Length() / 2)
	s2 := math.Sqrt2 / 2
	test.That(t, vectorsAlmostEqual(halfway, r3.Vector{X: s2, Y: s2}), test.ShouldBeTrue)

	// Centripetal direction points at the center.
	test.That(t, vectorsAlmostEqual(arc.Normal(0), r3.Vector{X: -1}), test.ShouldBeTrue)
}

func TestNewArcClockwise(t *testing.T) {
	arc, err := NewArc(
		r3.Vector{X: 1}, r3.Vector{Y: -1}, r3.Vector{},
		1, r3.Vector{Z: 1}, true,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arc.Length(), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, vectorsAlmostEqual(arc.Tangent(0), r3.Vector{Y: -1}), test.ShouldBeTrue)
	test.That(t, vectorsAlmostEqual(arc.PointAt(arc.Length()), r3.Vector{Y: -1}), test.ShouldBeTrue)
}

func TestNewArcValidation(t *testing.T) {
	start, end, center := r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{}
	normal := r3.Vector{Z: 1}

	_, err := NewArc(start, end, center, 0, normal, false)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewArc(start, end, center, -1, normal, false)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewArc(start, end, center, 1, r3.Vector{}, false)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewArc(start, start, center, 1, normal, false)
	test.That(t, err, test.ShouldNotBeNil)

	// Start off the circle.
	_, err = NewArc(r3.Vector{X: 2}, end, center, 1, normal, false)
	test.That(t, err, test.ShouldNotBeNil)

	// End out of the plane of the normal.
	_, err = NewArc(start, r3.Vector{Y: 1, Z: 0.5}, center, 1, normal, false)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestArcTangentRotatesWithProgress(t *testing.T) {
	arc, err := NewArc(
		r3.Vector{X: 10}, r3.Vector{X: -10}, r3.Vector{},
		10, r3.Vector{Z: 1}, false,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, arc.Length(), test.ShouldAlmostEqual, math.Pi*10)

	for _, s := range []float64{0, arc.Length() / 4, arc.Length() / 2, arc.Length()} {
		test.That(t, arc.Tangent(s).Norm(), test.ShouldAlmostEqual, 1)
		// Tangent is always perpendicular to the radial direction.
		radial := arc.PointAt(s).Sub(arc.Center())
		test.That(t, arc.Tangent(s).Dot(radial), test.ShouldAlmostEqual, 0)
	}
}

func TestTangentExtent(t *testing.T) {
	diag, err := NewLine(r3.Vector{}, r3.Vector{X: 1, Y: 1})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, diag.TangentExtent(r3.Vector{X: 1}), test.ShouldAlmostEqual, math.Sqrt2/2, 1e-9)
	test.That(t, diag.TangentExtent(r3.Vector{Z: 1}), test.ShouldEqual, 0)

	// Quarter circle from (1,0) to (0,1): the X component of the tangent
	// peaks at the far endpoint, the Y component at the start.
	quarter, err := NewArc(r3.Vector{X: 1}, r3.Vector{Y: 1}, r3.Vector{}, 1, r3.Vector{Z: 1}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quarter.TangentExtent(r3.Vector{X: 1}), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, quarter.TangentExtent(r3.Vector{Y: 1}), test.ShouldAlmostEqual, 1, 1e-9)
	test.That(t, quarter.TangentExtent(r3.Vector{Z: 1}), test.ShouldEqual, 0)

	// 30 degree arc: neither peak of the X component lies inside the sweep,
	// so the extreme sits at the far endpoint.
	sweep := math.Pi / 6
	short, err := NewArc(r3.Vector{X: 1},
		r3.Vector{X: math.Cos(sweep), Y: math.Sin(sweep)}, r3.Vector{}, 1, r3.Vector{Z: 1}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, short.TangentExtent(r3.Vector{X: 1}), test.ShouldAlmostEqual, math.Sin(sweep), 1e-9)

	// 120 degree arc: the tangent aligns fully with -X at 90 degrees, an
	// interior extreme no endpoint sampling would see.
	sweep = 2 * math.Pi / 3
	wide, err := NewArc(r3.Vector{X: 1},
		r3.Vector{X: math.Cos(sweep), Y: math.Sin(sweep)}, r3.Vector{}, 1, r3.Vector{Z: 1}, false)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, wide.TangentExtent(r3.Vector{X: 1}), test.ShouldAlmostEqual, 1, 1e-9)
}

func TestTangentAngle(t *testing.T) {
	a, err := NewLine(r3.Vector{}, r3.Vector{X: 1})
	test.That(t, err, test.ShouldBeNil)
	b, err := NewLine(r3.Vector{X: 1}, r3.Vector{X: 1, Y: 1})
	test.That(t, err, test.ShouldBeNil)
	c, err := NewLine(r3.Vector{X: 1}, r3.Vector{X: 2})
	test.That(t, err, test.ShouldBeNil)
	d, err := NewLine(r3.Vector{X: 1}, r3.Vector{})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, TangentAngle(a, b), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, TangentAngle(a, c), test.ShouldAlmostEqual, 0)
	test.That(t, TangentAngle(a, d), test.ShouldAlmostEqual, math.Pi)
}
