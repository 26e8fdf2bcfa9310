package motionplan

import (
	"math"

	"github.com/jointspace/toolpath/config"
	"github.com/jointspace/toolpath/spatialmath"
)

// tangentEpsilon is the turning angle in radians under which two segment
// tangents are treated as colinear at a junction.
const tangentEpsilon = 1e-6

// CornerBlender computes, for each junction between consecutive segments,
// the maximum speed with which the tool may pass through the boundary under
// the active tolerance policy.
type CornerBlender struct {
	tol     config.Tolerance
	limiter *AxisLimiter
}

// NewCornerBlender creates a blender for one planning session. The tolerance
// is fixed for the session; changing it only affects junctions not yet
// finalized.
func NewCornerBlender(tol config.Tolerance, limiter *AxisLimiter) *CornerBlender {
	return &CornerBlender{tol: tol, limiter: limiter}
}

// JunctionVelocity returns the junction speed bound between prev and next.
// The result never exceeds either segment's axis velocity limit.
func (b *CornerBlender) JunctionVelocity(prev, next spatialmath.Segment) float64 {
	axisCap := math.Min(b.limiter.VelocityLimit(prev), b.limiter.VelocityLimit(next))
	theta := spatialmath.TangentAngle(prev, next)

	switch b.tol.Mode {
	case config.ExactStop:
		return 0
	case config.ExactPath:
		if theta < tangentEpsilon {
			return axisCap
		}
		return 0
	case config.Blend:
		if theta < tangentEpsilon {
			return axisCap
		}
		if b.tol.MaxDeviation <= 0 {
			// Zero deviation degenerates to exact-path semantics.
			return 0
		}
		// Radius of the largest corner-cutting arc that stays within the
		// deviation bound; sin/(1-cos) is well conditioned for theta in
		// (tangentEpsilon, pi].
		half := theta / 2
		radius := b.tol.MaxDeviation * math.Sin(half) / (1 - math.Cos(half))
		accel := math.Min(b.limiter.AccelerationLimit(prev), b.limiter.AccelerationLimit(next))
		return math.Min(axisCap, math.Sqrt(accel*radius))
	default:
		// Unknown modes are rejected by config validation before planning.
		return 0
	}
}
