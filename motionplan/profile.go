package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jointspace/toolpath/utils"
)

// profileTolerance is the floating-point slack allowed when checking that a
// synthesized profile integrates back to its segment length.
const profileTolerance = 1e-6

// State is an instantaneous sample along a profile: distance traveled along
// the path, along-path velocity and acceleration, and (for jerk-limited
// profiles) jerk.
type State struct {
	Dist float64
	Vel  float64
	Acc  float64
	Jerk float64
}

// Profile is a time-parameterized velocity profile over one segment's arc
// length. Integrating velocity over the full duration reproduces the
// segment's length within floating-point tolerance.
type Profile interface {
	// TotalTime is the profile duration in seconds.
	TotalTime() float64
	// Length is the arc length covered by the profile.
	Length() float64
	// EntryVelocity is the along-path speed at t=0.
	EntryVelocity() float64
	// ExitVelocity is the along-path speed at TotalTime.
	ExitVelocity() float64
	// Sample returns the state at time t since profile start. Past
	// TotalTime it returns the final state and false.
	Sample(t float64) (State, bool)
}

// Phase is one constant-acceleration stretch of a trapezoidal profile.
type Phase struct {
	EntryVel float64
	ExitVel  float64
	Acc      float64
	Duration float64
}

// TrapezoidProfile is an accelerate/cruise/decelerate profile; phases that
// would have zero duration are omitted, so a segment too short to reach
// cruise speed yields the triangular accelerate/decelerate form.
type TrapezoidProfile struct {
	phases []Phase
	length float64
	total  float64
	v0, v1 float64
	peak   float64
}

// NewTrapezoidProfile computes the fastest profile covering length that
// enters at v0, exits at v1, and respects vmax and amax. It returns an error
// when the request is kinematically impossible; callers that have already
// run feasibility correction treat that as a defect.
func NewTrapezoidProfile(v0, v1, vmax, amax, length float64) (*TrapezoidProfile, error) {
	switch {
	case length <= 0 || math.IsNaN(length) || math.IsInf(length, 0):
		return nil, errors.Errorf("profile length must be positive and finite, got %f", length)
	case amax <= 0 || math.IsInf(amax, 0):
		return nil, errors.Errorf("max acceleration must be positive and finite, got %f", amax)
	case vmax <= 0 || math.IsInf(vmax, 0):
		return nil, errors.Errorf("max velocity must be positive and finite, got %f", vmax)
	case v0 < 0 || v1 < 0:
		return nil, errors.Errorf("entry and exit velocities must not be negative, got %f and %f", v0, v1)
	case v0 > vmax+profileTolerance || v1 > vmax+profileTolerance:
		return nil, errors.Errorf("entry %f or exit %f velocity exceeds max velocity %f", v0, v1, vmax)
	}
	v0 = math.Min(v0, vmax)
	v1 = math.Min(v1, vmax)
	if math.Abs(utils.Square(v1)-utils.Square(v0))/(2*amax) > length+profileTolerance {
		return nil, errors.Errorf(
			"cannot change velocity %f -> %f within length %f at acceleration %f", v0, v1, length, amax)
	}

	// Cruise is reached iff the displacement exceeds what accelerating to
	// vmax and back to v1 consumes.
	var peak float64
	if length*amax > utils.Square(vmax)-(utils.Square(v0)+utils.Square(v1))/2 {
		peak = vmax
	} else {
		// Triangular: solve for the peak reachable within length with
		// symmetric accel/decel.
		peak = math.Sqrt(length*amax + (utils.Square(v0)+utils.Square(v1))/2)
		peak = math.Min(peak, vmax)
	}
	peak = math.Max(peak, math.Max(v0, v1))

	accelDist := (utils.Square(peak) - utils.Square(v0)) / (2 * amax)
	decelDist := (utils.Square(peak) - utils.Square(v1)) / (2 * amax)
	cruiseDist := length - accelDist - decelDist
	if cruiseDist < 0 {
		if cruiseDist < -profileTolerance {
			panic(errors.Errorf(
				"trapezoid synthesis produced negative cruise distance %f for length %f", cruiseDist, length))
		}
		cruiseDist = 0
	}

	p := &TrapezoidProfile{length: length, v0: v0, v1: v1, peak: peak}
	if accelTime := (peak - v0) / amax; accelTime > 0 {
		p.phases = append(p.phases, Phase{EntryVel: v0, ExitVel: peak, Acc: amax, Duration: accelTime})
	}
	if peak > 0 && cruiseDist > 0 {
		p.phases = append(p.phases, Phase{EntryVel: peak, ExitVel: peak, Acc: 0, Duration: cruiseDist / peak})
	}
	if decelTime := (peak - v1) / amax; decelTime > 0 {
		p.phases = append(p.phases, Phase{EntryVel: peak, ExitVel: v1, Acc: -amax, Duration: decelTime})
	}
	for _, ph := range p.phases {
		p.total += ph.Duration
	}

	// Integrating the phases must reproduce the segment length; anything
	// else is a synthesis defect, not a recoverable condition.
	var integrated float64
	for _, ph := range p.phases {
		integrated += (ph.EntryVel + ph.ExitVel) / 2 * ph.Duration
	}
	if !utils.Float64AlmostEqual(integrated, length, profileTolerance*(1+length)) {
		panic(errors.Errorf("trapezoid phases integrate to %f, want %f", integrated, length))
	}
	return p, nil
}

// NewStopProfile returns a pure deceleration profile from speed v0 to rest
// at amax; its length is the stopping distance. Used for cancellation and
// underrun handling.
func NewStopProfile(v0, amax float64) (*TrapezoidProfile, error) {
	if v0 <= 0 {
		return nil, errors.Errorf("stop profile needs a positive entry velocity, got %f", v0)
	}
	if amax <= 0 {
		return nil, errors.Errorf("stop profile needs a positive deceleration, got %f", amax)
	}
	duration := v0 / amax
	return &TrapezoidProfile{
		phases: []Phase{{EntryVel: v0, ExitVel: 0, Acc: -amax, Duration: duration}},
		length: v0 * duration / 2,
		total:  duration,
		v0:     v0,
		peak:   v0,
	}, nil
}

// TotalTime is the profile duration in seconds.
func (p *TrapezoidProfile) TotalTime() float64 { return p.total }

// Length is the arc length covered by the profile.
func (p *TrapezoidProfile) Length() float64 { return p.length }

// EntryVelocity is the speed at t=0.
func (p *TrapezoidProfile) EntryVelocity() float64 { return p.v0 }

// ExitVelocity is the speed at TotalTime.
func (p *TrapezoidProfile) ExitVelocity() float64 { return p.v1 }

// PeakVelocity is the highest speed the profile reaches.
func (p *TrapezoidProfile) PeakVelocity() float64 { return p.peak }

// Phases returns the profile's phases in time order.
func (p *TrapezoidProfile) Phases() []Phase { return p.phases }

// Sample returns the state at time t by piecewise-constant acceleration
// integration.
func (p *TrapezoidProfile) Sample(t float64) (State, bool) {
	if t < 0 {
		t = 0
	}
	var elapsed, dist float64
	for _, ph := range p.phases {
		if t < elapsed+ph.Duration {
			dt := t - elapsed
			return State{
				Dist: dist + ph.EntryVel*dt + ph.Acc*dt*dt/2,
				Vel:  ph.EntryVel + ph.Acc*dt,
				Acc:  ph.Acc,
			}, true
		}
		elapsed += ph.Duration
		dist += (ph.EntryVel + ph.ExitVel) / 2 * ph.Duration
	}
	return State{Dist: p.length, Vel: p.v1}, false
}
