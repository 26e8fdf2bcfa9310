package config

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func validPlanning() Planning {
	return Planning{
		Axes: AxisLimits{
			AxisX: {MaxVelocity: 100, MaxAcceleration: 500},
			AxisY: {MaxVelocity: 100, MaxAcceleration: 500},
			AxisZ: {MaxVelocity: 20, MaxAcceleration: 100},
		},
		Tolerance: Tolerance{Mode: ExactStop},
	}
}

func TestValidateOK(t *testing.T) {
	cfg := validPlanning()
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg.Tolerance = Tolerance{Mode: Blend, MaxDeviation: 0.05}
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	// Zero deviation is allowed; it degenerates to exact path behavior.
	cfg.Tolerance = Tolerance{Mode: Blend, MaxDeviation: 0}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestValidateRejectsBadLimits(t *testing.T) {
	cfg := validPlanning()
	cfg.Axes = AxisLimits{}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = validPlanning()
	cfg.Axes[AxisX] = Limit{MaxVelocity: 0, MaxAcceleration: 500}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = validPlanning()
	cfg.Axes[AxisY] = Limit{MaxVelocity: 100, MaxAcceleration: -1}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestValidateRejectsBadModes(t *testing.T) {
	cfg := validPlanning()
	cfg.Tolerance.Mode = "smooth"
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = validPlanning()
	cfg.Tolerance = Tolerance{Mode: Blend, MaxDeviation: -0.1}
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	cfg = validPlanning()
	cfg.LookaheadSize = -1
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestValidateSCurveNeedsJerk(t *testing.T) {
	cfg := validPlanning()
	cfg.Shape = SCurve
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)

	for axis, lim := range cfg.Axes {
		lim.MaxJerk = 5000
		cfg.Axes[axis] = lim
	}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
}

func TestEmissionTick(t *testing.T) {
	cfg := Emission{}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	test.That(t, cfg.Tick(), test.ShouldEqual, DefaultTickInterval)

	cfg.TickInterval = time.Millisecond
	test.That(t, cfg.Tick(), test.ShouldEqual, time.Millisecond)

	cfg.TickInterval = -time.Millisecond
	test.That(t, cfg.Validate(), test.ShouldNotBeNil)
}

func TestLookaheadDefault(t *testing.T) {
	cfg := validPlanning()
	test.That(t, cfg.Lookahead(), test.ShouldEqual, DefaultLookaheadSize)
	cfg.LookaheadSize = 8
	test.That(t, cfg.Lookahead(), test.ShouldEqual, 8)
}
