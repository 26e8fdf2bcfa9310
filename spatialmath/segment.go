// Package spatialmath provides the path geometry the planner operates on:
// straight line and circular arc segments in 3D space, with unit tangents,
// arc length, and curvature.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

const (
	// floatEpsilon is the tolerance for treating a vector magnitude as zero.
	floatEpsilon = 1e-9
	// geometryEpsilon is the tolerance for validating constructed geometry,
	// e.g. that arc endpoints lie on the circle.
	geometryEpsilon = 1e-6
)

// Segment is a single geometric move between two poses. It is a closed
// variant over Line and Arc; the planner handles both exhaustively and no
// third segment type is anticipated.
type Segment interface {
	// Start is the segment's first point.
	Start() r3.Vector
	// End is the segment's last point.
	End() r3.Vector
	// Length is the segment's scalar arc length.
	Length() float64
	// PointAt returns the point at arc-length progress s in [0, Length].
	PointAt(s float64) r3.Vector
	// Tangent returns the unit tangent at arc-length progress s.
	Tangent(s float64) r3.Vector
	// TangentExtent returns the maximum of |Tangent(s)·dir| over the whole
	// segment. The extreme of a rotating arc tangent can fall strictly
	// between the endpoints, so limit projections must use this rather than
	// sampled tangents.
	TangentExtent(dir r3.Vector) float64
	// Curvature is the segment's constant curvature (0 for a line, 1/R for an arc).
	Curvature() float64

	fmt.Stringer

	// segment restricts implementations to this package.
	segment()
}

// Line is a straight segment between two distinct points.
type Line struct {
	start, end r3.Vector
	dir        r3.Vector
	length     float64
}

// NewLine constructs a line segment, rejecting degenerate (zero-length) geometry.
func NewLine(start, end r3.Vector) (*Line, error) {
	delta := end.Sub(start)
	length := delta.Norm()
	if length < floatEpsilon {
		return nil, errors.Errorf("line from %v to %v has zero length", start, end)
	}
	return &Line{start: start, end: end, dir: delta.Mul(1 / length), length: length}, nil
}

// Start is the line's first point.
func (l *Line) Start() r3.Vector { return l.start }

// End is the line's last point.
func (l *Line) End() r3.Vector { return l.end }

// Length is the straight-line distance between the endpoints.
func (l *Line) Length() float64 { return l.length }

// PointAt returns the point at arc-length progress s.
func (l *Line) PointAt(s float64) r3.Vector {
	return l.start.Add(l.dir.Mul(s))
}

// Tangent is constant along a line.
func (l *Line) Tangent(float64) r3.Vector { return l.dir }

// TangentExtent is the constant tangent's component along dir.
func (l *Line) TangentExtent(dir r3.Vector) float64 {
	return math.Abs(l.dir.Dot(dir))
}

// Curvature of a line is zero.
func (l *Line) Curvature() float64 { return 0 }

// String returns a human readable description of the line.
func (l *Line) String() string {
	return fmt.Sprintf("Line (%.3f, %.3f, %.3f) -> (%.3f, %.3f, %.3f)",
		l.start.X, l.start.Y, l.start.Z, l.end.X, l.end.Y, l.end.Z)
}

func (l *Line) segment() {}

// Arc is a circular segment swept about a center in the plane defined by a
// unit normal. Rotation follows the right-hand rule about the normal unless
// clockwise is set.
type Arc struct {
	start, end r3.Vector
	center     r3.Vector
	radius     float64
	// axis is the rotation axis; the plane normal, negated for clockwise arcs,
	// so motion is always right-handed about axis.
	axis r3.Vector
	// u is the unit vector from center to start, the angular origin.
	u r3.Vector
	// sweep is the total swept angle in (0, 2π).
	sweep  float64
	length float64
}

// NewArc constructs an arc segment and validates its geometry: positive
// radius, a normalizable plane normal, distinct endpoints, and both
// endpoints on the circle in the plane of the normal.
func NewArc(start, end, center r3.Vector, radius float64, normal r3.Vector, clockwise bool) (*Arc, error) {
	if radius <= 0 {
		return nil, errors.Errorf("arc radius must be positive, got %f", radius)
	}
	if normal.Norm() < floatEpsilon {
		return nil, errors.New("arc plane normal must not be the zero vector")
	}
	if end.Sub(start).Norm() < floatEpsilon {
		return nil, errors.Errorf("arc from %v to %v has coincident endpoints", start, end)
	}
	axis := normal.Normalize()
	if clockwise {
		axis = axis.Mul(-1)
	}

	rs := start.Sub(center)
	re := end.Sub(center)
	if math.Abs(rs.Norm()-radius) > geometryEpsilon*(1+radius) {
		return nil, errors.Errorf("arc start %v is not at radius %f from center %v", start, radius, center)
	}
	if math.Abs(re.Norm()-radius) > geometryEpsilon*(1+radius) {
		return nil, errors.Errorf("arc end %v is not at radius %f from center %v", end, radius, center)
	}
	if math.Abs(rs.Dot(axis)) > geometryEpsilon*(1+radius) || math.Abs(re.Dot(axis)) > geometryEpsilon*(1+radius) {
		return nil, errors.New("arc endpoints do not lie in the plane of the normal")
	}

	u := rs.Mul(1 / rs.Norm())
	v := re.Mul(1 / re.Norm())
	// Signed angle from u to v about axis, wrapped into (0, 2π).
	sweep := math.Atan2(axis.Dot(u.Cross(v)), u.Dot(v))
	if sweep <= floatEpsilon {
		sweep += 2 * math.Pi
	}

	return &Arc{
		start:  start,
		end:    end,
		center: center,
		radius: radius,
		axis:   axis,
		u:      u,
		sweep:  sweep,
		length: radius * sweep,
	}, nil
}

// Start is the arc's first point.
func (a *Arc) Start() r3.Vector { return a.start }

// End is the arc's last point.
func (a *Arc) End() r3.Vector { return a.end }

// Length is the swept arc length.
func (a *Arc) Length() float64 { return a.length }

// Center is the arc's center point.
func (a *Arc) Center() r3.Vector { return a.center }

// Radius is the arc's radius.
func (a *Arc) Radius() float64 { return a.radius }

// PointAt returns the point at arc-length progress s.
func (a *Arc) PointAt(s float64) r3.Vector {
	theta := s / a.radius
	w := a.axis.Cross(a.u)
	radial := a.u.Mul(math.Cos(theta)).Add(w.Mul(math.Sin(theta)))
	return a.center.Add(radial.Mul(a.radius))
}

// Tangent returns the unit tangent at arc-length progress s. It rotates with
// progress, so callers sampling an arc must re-evaluate it per sample.
func (a *Arc) Tangent(s float64) r3.Vector {
	theta := s / a.radius
	w := a.axis.Cross(a.u)
	return w.Mul(math.Cos(theta)).Sub(a.u.Mul(math.Sin(theta)))
}

// TangentExtent returns the maximum of |Tangent(s)·dir| over the sweep. The
// tangent component is w·dir·cosθ − u·dir·sinθ, a sinusoid in the sweep
// angle whose extreme may lie strictly between the endpoints; it is found in
// closed form rather than by sampling.
func (a *Arc) TangentExtent(dir r3.Vector) float64 {
	w := a.axis.Cross(a.u)
	cosCoeff := w.Dot(dir)
	sinCoeff := -a.u.Dot(dir)
	amplitude := math.Hypot(cosCoeff, sinCoeff)
	if amplitude < floatEpsilon {
		return 0
	}
	// The component equals amplitude·cos(θ−φ); |·| peaks at φ and φ+π.
	phi := math.Atan2(sinCoeff, cosCoeff)
	for _, peak := range []float64{phi, phi + math.Pi} {
		if wrapAngle(peak) <= a.sweep {
			return amplitude
		}
	}
	atStart := math.Abs(cosCoeff)
	atEnd := math.Abs(cosCoeff*math.Cos(a.sweep) + sinCoeff*math.Sin(a.sweep))
	return math.Max(atStart, atEnd)
}

// wrapAngle maps theta into [0, 2π).
func wrapAngle(theta float64) float64 {
	theta = math.Mod(theta, 2*math.Pi)
	if theta < 0 {
		theta += 2 * math.Pi
	}
	return theta
}

// Normal returns the unit vector from the point at arc-length progress s
// toward the center, the direction of centripetal acceleration.
func (a *Arc) Normal(s float64) r3.Vector {
	return a.center.Sub(a.PointAt(s)).Mul(1 / a.radius)
}

// Curvature of an arc is the reciprocal of its radius.
func (a *Arc) Curvature() float64 { return 1 / a.radius }

// String returns a human readable description of the arc.
func (a *Arc) String() string {
	return fmt.Sprintf("Arc r=%.3f sweep=%.1f° (%.3f, %.3f, %.3f) -> (%.3f, %.3f, %.3f)",
		a.radius, a.sweep*180/math.Pi, a.start.X, a.start.Y, a.start.Z, a.end.X, a.end.Y, a.end.Z)
}

func (a *Arc) segment() {}

// TangentAngle returns the unsigned angle in [0, π] between the exit tangent
// of prev and the entry tangent of next.
func TangentAngle(prev, next Segment) float64 {
	out := prev.Tangent(prev.Length())
	in := next.Tangent(0)
	return math.Atan2(out.Cross(in).Norm(), out.Dot(in))
}
