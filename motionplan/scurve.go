package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jointspace/toolpath/utils"
)

// SCurveProfile is a jerk-limited seven-phase profile: jerk-bounded ramps in
// and out of a constant-acceleration stretch on both the accelerate and
// decelerate sides, with an optional cruise in between. Compared to the
// trapezoid it trades a longer duration for bounded jerk.
type SCurveProfile struct {
	v0, v1 float64
	length float64

	vlim  float64
	jmax  float64
	tj1   float64
	tj2   float64
	ta    float64
	td    float64
	tv    float64
	total float64

	// Peak acceleration reached on each side.
	aLimA float64
	aLimD float64
}

// scurveFeasible reports whether a displacement of length can connect v0 to
// v1 at all under the jerk and acceleration bounds.
func scurveFeasible(v0, v1, amax, jmax, length float64) bool {
	tjStar := math.Min(math.Sqrt(math.Abs(v1-v0)/jmax), amax/jmax)
	var minDist float64
	if tjStar < amax/jmax {
		minDist = tjStar * (v0 + v1)
	} else {
		minDist = (v0 + v1) / 2 * (tjStar + math.Abs(v1-v0)/amax)
	}
	return length > minDist
}

// NewSCurveProfile computes a jerk-limited profile covering length that
// enters at v0 and exits at v1 under vmax, amax, and jmax. It returns an
// error when the displacement is too short for a jerk-limited solution;
// callers fall back to the trapezoidal form.
func NewSCurveProfile(v0, v1, vmax, amax, jmax, length float64) (*SCurveProfile, error) {
	switch {
	case length <= 0 || math.IsInf(length, 0) || math.IsNaN(length):
		return nil, errors.Errorf("profile length must be positive and finite, got %f", length)
	case vmax <= 0 || amax <= 0 || jmax <= 0:
		return nil, errors.Errorf("limits must all be positive, got vmax=%f amax=%f jmax=%f", vmax, amax, jmax)
	case v0 < 0 || v1 < 0 || v0 > vmax+profileTolerance || v1 > vmax+profileTolerance:
		return nil, errors.Errorf("entry %f and exit %f velocities must lie in [0, %f]", v0, v1, vmax)
	}
	if !scurveFeasible(v0, v1, amax, jmax, length) {
		return nil, errors.Errorf(
			"length %f is too short to connect %f -> %f under jerk limit %f", length, v0, v1, jmax)
	}

	var tj1, ta float64
	if (vmax-v0)*jmax < utils.Square(amax) {
		// Max acceleration is never reached on the way up.
		tj1 = math.Sqrt((vmax - v0) / jmax)
		ta = 2 * tj1
	} else {
		tj1 = amax / jmax
		ta = tj1 + (vmax-v0)/amax
	}

	var tj2, td float64
	if (vmax-v1)*jmax < utils.Square(amax) {
		tj2 = math.Sqrt((vmax - v1) / jmax)
		td = 2 * tj2
	} else {
		tj2 = amax / jmax
		td = tj2 + (vmax-v1)/amax
	}

	tv := length/vmax - ta/2*(1+v0/vmax) - td/2*(1+v1/vmax)

	vlim := vmax
	if tv < 0 {
		// No cruise: both sides saturate jerk, recompute the accel and
		// decel durations for the shorter displacement.
		tj1 = amax / jmax
		tj2 = amax / jmax
		delta := math.Pow(amax, 4)/utils.Square(jmax) +
			2*(utils.Square(v0)+utils.Square(v1)) +
			amax*(4*length-2*amax/jmax*(v0+v1))
		ta = (utils.Square(amax)/jmax - 2*v0 + math.Sqrt(delta)) / (2 * amax)
		td = (utils.Square(amax)/jmax - 2*v1 + math.Sqrt(delta)) / (2 * amax)
		tv = 0
		if ta < 2*tj1 || td < 2*tj2 {
			// One side cannot even reach max acceleration; the segment is
			// too short for this solution family.
			return nil, errors.Errorf("length %f is too short for a jerk-limited profile", length)
		}
		vlim = v0 + (ta-tj1)*jmax*tj1
	}

	return &SCurveProfile{
		v0:     v0,
		v1:     v1,
		length: length,
		vlim:   vlim,
		jmax:   jmax,
		tj1:    tj1,
		tj2:    tj2,
		ta:     ta,
		td:     td,
		tv:     tv,
		total:  ta + tv + td,
		aLimA:  jmax * tj1,
		aLimD:  -jmax * tj2,
	}, nil
}

// TotalTime is the profile duration in seconds.
func (p *SCurveProfile) TotalTime() float64 { return p.total }

// Length is the arc length covered by the profile.
func (p *SCurveProfile) Length() float64 { return p.length }

// EntryVelocity is the speed at t=0.
func (p *SCurveProfile) EntryVelocity() float64 { return p.v0 }

// ExitVelocity is the speed at TotalTime.
func (p *SCurveProfile) ExitVelocity() float64 { return p.v1 }

// PeakVelocity is the highest speed the profile reaches.
func (p *SCurveProfile) PeakVelocity() float64 { return p.vlim }

// Sample returns the state at time t. The seven phases are evaluated with
// the standard closed-form jerk-limited position and velocity expressions.
func (p *SCurveProfile) Sample(t float64) (State, bool) {
	if t < 0 {
		t = 0
	}
	v0, v1, vlim, jmax := p.v0, p.v1, p.vlim, p.jmax
	q1, T := p.length, p.total

	switch {
	// Accelerate, jerk +jmax.
	case t < p.tj1:
		return State{
			Dist: v0*t + jmax*t*t*t/6,
			Vel:  v0 + jmax*t*t/2,
			Acc:  jmax * t,
			Jerk: jmax,
		}, true
	// Accelerate, constant acceleration.
	case t < p.ta-p.tj1:
		return State{
			Dist: v0*t + p.aLimA/6*(3*t*t-3*p.tj1*t+utils.Square(p.tj1)),
			Vel:  v0 + p.aLimA*(t-p.tj1/2),
			Acc:  p.aLimA,
			Jerk: 0,
		}, true
	// Accelerate, jerk -jmax.
	case t < p.ta:
		dt := p.ta - t
		return State{
			Dist: (vlim+v0)*p.ta/2 - vlim*dt + jmax*dt*dt*dt/6,
			Vel:  vlim - jmax*dt*dt/2,
			Acc:  jmax * dt,
			Jerk: -jmax,
		}, true
	// Cruise.
	case t < p.ta+p.tv:
		return State{
			Dist: (vlim+v0)*p.ta/2 + vlim*(t-p.ta),
			Vel:  vlim,
			Acc:  0,
			Jerk: 0,
		}, true
	// Decelerate, jerk -jmax.
	case t < T-p.td+p.tj2:
		dt := t - T + p.td
		return State{
			Dist: q1 - (vlim+v1)*p.td/2 + vlim*dt - jmax*dt*dt*dt/6,
			Vel:  vlim - jmax*dt*dt/2,
			Acc:  -jmax * dt,
			Jerk: -jmax,
		}, true
	// Decelerate, constant deceleration.
	case t < T-p.tj2:
		dt := t - T + p.td
		return State{
			Dist: q1 - (vlim+v1)*p.td/2 + vlim*dt + p.aLimD/6*(3*dt*dt-3*p.tj2*dt+utils.Square(p.tj2)),
			Vel:  vlim + p.aLimD*(dt-p.tj2/2),
			Acc:  p.aLimD,
			Jerk: 0,
		}, true
	// Decelerate, jerk +jmax.
	case t <= T:
		dt := T - t
		return State{
			Dist: q1 - v1*dt - jmax*dt*dt*dt/6,
			Vel:  v1 + jmax*dt*dt/2,
			Acc:  -jmax * dt,
			Jerk: jmax,
		}, true
	default:
		return State{Dist: q1, Vel: v1}, false
	}
}
