// Package config describes the immutable configuration of a planning session:
// per-axis kinematic limits, the corner tolerance policy, and lookahead sizing.
package config

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Axis identifies one physical machine axis.
type Axis string

// The three Cartesian axes.
const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Axes lists every axis in a fixed order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

// Limit holds the kinematic ceiling for a single axis. MaxJerk is optional
// and only consulted when the s_curve profile shape is selected.
type Limit struct {
	MaxVelocity     float64 `json:"max_velocity_mm_per_sec"`
	MaxAcceleration float64 `json:"max_acceleration_mm_per_sec_sq"`
	MaxJerk         float64 `json:"max_jerk_mm_per_sec_cu,omitempty"`
}

// AxisLimits maps each axis to its limit. It is read-only for the duration
// of a planning run.
type AxisLimits map[Axis]Limit

// ToleranceMode selects how much path deviation is traded for corner speed.
type ToleranceMode string

// The supported corner tolerance policies.
const (
	// ExactStop brings the tool to a full stop at every junction.
	ExactStop ToleranceMode = "exact_stop"
	// ExactPath stops at every junction unless the adjoining segments are
	// tangent-continuous.
	ExactPath ToleranceMode = "exact_path"
	// Blend rounds corners within Tolerance.MaxDeviation of the programmed path.
	Blend ToleranceMode = "blend"
)

// Tolerance pairs a mode with its blend deviation bound (millimeters).
type Tolerance struct {
	Mode         ToleranceMode `json:"mode"`
	MaxDeviation float64       `json:"max_deviation_mm,omitempty"`
}

// ProfileShape selects the velocity profile family used at synthesis.
type ProfileShape string

// The supported profile shapes.
const (
	Trapezoidal ProfileShape = "trapezoidal"
	SCurve      ProfileShape = "s_curve"
)

// DefaultLookaheadSize bounds the backward-pass cost when the caller does not
// choose a window size.
const DefaultLookaheadSize = 16

// Planning is the full configuration of one planning session. It is passed
// explicitly into the planner rather than held as ambient state so that
// independent sessions (simulation vs. live) can coexist.
type Planning struct {
	Axes          AxisLimits   `json:"axes"`
	Tolerance     Tolerance    `json:"tolerance"`
	LookaheadSize int          `json:"lookahead_size,omitempty"`
	Shape         ProfileShape `json:"profile_shape,omitempty"`
}

// Validate ensures the session configuration can produce defined motion. The
// planner refuses to start on any validation failure.
func (p *Planning) Validate() error {
	var err error
	if len(p.Axes) == 0 {
		err = multierr.Append(err, errors.New("axis limits must not be empty"))
	}
	for axis, lim := range p.Axes {
		if lim.MaxVelocity <= 0 {
			err = multierr.Append(err, errors.Errorf("axis %q max velocity must be positive, got %f", axis, lim.MaxVelocity))
		}
		if lim.MaxAcceleration <= 0 {
			err = multierr.Append(err, errors.Errorf("axis %q max acceleration must be positive, got %f", axis, lim.MaxAcceleration))
		}
		if lim.MaxJerk < 0 {
			err = multierr.Append(err, errors.Errorf("axis %q max jerk must not be negative, got %f", axis, lim.MaxJerk))
		}
	}
	switch p.Tolerance.Mode {
	case ExactStop, ExactPath:
	case Blend:
		if p.Tolerance.MaxDeviation < 0 {
			err = multierr.Append(err, errors.Errorf("blend deviation must not be negative, got %f", p.Tolerance.MaxDeviation))
		}
	default:
		err = multierr.Append(err, errors.Errorf("unknown tolerance mode %q", p.Tolerance.Mode))
	}
	if p.LookaheadSize < 0 {
		err = multierr.Append(err, errors.Errorf("lookahead size must not be negative, got %d", p.LookaheadSize))
	}
	switch p.Shape {
	case "", Trapezoidal:
	case SCurve:
		for axis, lim := range p.Axes {
			if lim.MaxJerk == 0 {
				err = multierr.Append(err, errors.Errorf("profile shape %q requires a max jerk on axis %q", SCurve, axis))
			}
		}
	default:
		err = multierr.Append(err, errors.Errorf("unknown profile shape %q", p.Shape))
	}
	return err
}

// DefaultTickInterval is the emission period used when the caller does not
// choose one.
const DefaultTickInterval = 10 * time.Millisecond

// Emission configures the fixed-rate setpoint loop.
type Emission struct {
	TickInterval time.Duration `json:"tick_interval,omitempty"`
}

// Validate ensures the emission configuration is usable.
func (e *Emission) Validate() error {
	if e.TickInterval < 0 {
		return errors.Errorf("tick interval must not be negative, got %v", e.TickInterval)
	}
	return nil
}

// Tick returns the configured tick interval, or the default when unset.
func (e *Emission) Tick() time.Duration {
	if e.TickInterval == 0 {
		return DefaultTickInterval
	}
	return e.TickInterval
}

// Lookahead returns the configured window size, or the default when unset.
func (p *Planning) Lookahead() int {
	if p.LookaheadSize == 0 {
		return DefaultLookaheadSize
	}
	return p.LookaheadSize
}
