package motionplan

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/jointspace/toolpath/config"
	"github.com/jointspace/toolpath/spatialmath"
)

// axisEpsilon is the tangent component magnitude below which an axis is
// considered not in motion and excluded from limit projection.
const axisEpsilon = 1e-9

// arcAccelSplit divides an arc's projected acceleration budget between the
// tangential and centripetal components so their vector sum never exceeds
// the projected bound.
const arcAccelSplit = math.Sqrt2

// AxisLimiter projects a segment's motion direction onto each physical axis
// and derives the tightest achievable velocity and acceleration bound for
// the segment as a whole: total speed is capped by whichever axis saturates
// first.
type AxisLimiter struct {
	limits config.AxisLimits
}

// NewAxisLimiter wraps a set of per-axis limits. The limits are read-only
// for the duration of a planning run.
func NewAxisLimiter(limits config.AxisLimits) *AxisLimiter {
	return &AxisLimiter{limits: limits}
}

// VelocityLimit returns the maximum along-path speed for the segment. For
// arcs it additionally applies the centripetal constraint v <= sqrt(a*R)
// against the centripetal share of the acceleration budget.
func (l *AxisLimiter) VelocityLimit(seg spatialmath.Segment) float64 {
	bound := l.project(seg, func(lim config.Limit) float64 {
		return lim.MaxVelocity
	})
	if arc, ok := seg.(*spatialmath.Arc); ok {
		centripetalBudget := l.AccelerationLimit(seg)
		bound = math.Min(bound, math.Sqrt(centripetalBudget*arc.Radius()))
	}
	return bound
}

// AccelerationLimit returns the maximum along-path (tangential) acceleration
// for the segment. For arcs the projected bound is split so the vector sum
// of tangential and centripetal acceleration stays within it.
func (l *AxisLimiter) AccelerationLimit(seg spatialmath.Segment) float64 {
	bound := l.project(seg, func(lim config.Limit) float64 {
		return lim.MaxAcceleration
	})
	if seg.Curvature() > 0 {
		bound /= arcAccelSplit
	}
	return bound
}

// JerkLimit returns the maximum along-path jerk, or 0 when any moving axis
// carries no jerk limit (jerk-limited synthesis is then unavailable).
func (l *AxisLimiter) JerkLimit(seg spatialmath.Segment) float64 {
	bound := math.Inf(1)
	for _, axis := range config.Axes {
		c := seg.TangentExtent(axisVector(axis))
		if c < axisEpsilon {
			continue
		}
		lim, ok := l.limits[axis]
		if !ok || lim.MaxJerk <= 0 {
			return 0
		}
		bound = math.Min(bound, lim.MaxJerk/c)
	}
	if math.IsInf(bound, 1) {
		return 0
	}
	return bound
}

// CheckConfigured returns an error if the segment moves along an axis the
// limiter has no limits for; planning such a segment would be unbounded.
func (l *AxisLimiter) CheckConfigured(seg spatialmath.Segment) error {
	for _, axis := range config.Axes {
		if _, ok := l.limits[axis]; ok {
			continue
		}
		if seg.TangentExtent(axisVector(axis)) >= axisEpsilon {
			return errors.Errorf("segment %s moves along unconfigured axis %q", seg, axis)
		}
	}
	return nil
}

// project returns the tightest bound over all axes using each axis's worst
// tangent alignment anywhere on the segment; for arcs the extreme can fall
// strictly between the endpoints.
func (l *AxisLimiter) project(seg spatialmath.Segment, bound func(config.Limit) float64) float64 {
	tightest := math.Inf(1)
	for _, axis := range config.Axes {
		c := seg.TangentExtent(axisVector(axis))
		if c < axisEpsilon {
			continue
		}
		lim, ok := l.limits[axis]
		if !ok {
			continue
		}
		tightest = math.Min(tightest, bound(lim)/c)
	}
	return tightest
}

func axisVector(axis config.Axis) r3.Vector {
	switch axis {
	case config.AxisX:
		return r3.Vector{X: 1}
	case config.AxisY:
		return r3.Vector{Y: 1}
	case config.AxisZ:
		return r3.Vector{Z: 1}
	default:
		return r3.Vector{}
	}
}
