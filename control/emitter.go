// Package control turns finalized velocity profiles into a fixed-rate stream
// of per-axis position, velocity, and acceleration setpoints. Emission runs
// on its own clock, decoupled from planning: when the planner falls behind,
// the emitter decelerates to a hold instead of stalling or skipping ticks.
package control

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/jointspace/toolpath/config"
	"github.com/jointspace/toolpath/motionplan"
	"github.com/jointspace/toolpath/spatialmath"
	"github.com/jointspace/toolpath/utils"
)

// velocityEpsilon is the along-path speed below which the tool is considered
// at rest and no deceleration move is synthesized.
const velocityEpsilon = 1e-6

// limitSlack absorbs floating-point error in the per-axis limit assertion.
const limitSlack = 1e-6

// Setpoint is one tick's command: Cartesian position, velocity, and
// acceleration, stamped with the time since the emitter started.
type Setpoint struct {
	Pos r3.Vector
	Vel r3.Vector
	Acc r3.Vector
	T   time.Duration
}

// Sink consumes the setpoint stream, typically a device driver or an
// inverse-kinematics layer.
type Sink interface {
	SendSetpoint(ctx context.Context, sp Setpoint) error
}

// Source supplies finalized segments in execution order and discards its
// pending geometry on Flush. *motionplan.Planner satisfies it.
type Source interface {
	Next() (*motionplan.PlannedSegment, bool)
	Flush()
}

// activeMove is the motion currently being sampled. planned is nil for
// synthesized deceleration moves, which have no queue entry behind them.
type activeMove struct {
	seg     spatialmath.Segment
	profile motionplan.Profile
	planned *motionplan.PlannedSegment
}

// Emitter samples finalized profiles at a fixed control-loop tick and maps
// the scalar along-path state back to per-axis setpoints through the
// segment's tangent, re-evaluated per sample so arc tangents rotate with
// progress.
type Emitter struct {
	limits  config.AxisLimits
	limiter *motionplan.AxisLimiter
	tick    time.Duration
	source  Source
	sink    Sink
	logger  golog.Logger
	clk     clock.Clock

	mu       sync.Mutex
	active   *activeMove
	elapsed  float64
	now      time.Duration
	lastPos r3.Vector
	lastVel float64
	lastDir r3.Vector

	cancelCtx               context.Context
	cancelFn                context.CancelFunc
	activeBackgroundWorkers sync.WaitGroup
}

// NewEmitter constructs an emitter ticking at cfg.Tick(). The axis limits
// must match the ones the segments were planned under: they bound the
// synthesized deceleration moves and back the per-tick limit assertion.
func NewEmitter(
	cfg config.Emission,
	limits config.AxisLimits,
	source Source,
	sink Sink,
	logger golog.Logger,
) (*Emitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid emission configuration")
	}
	if len(limits) == 0 {
		return nil, errors.New("axis limits must not be empty")
	}
	if source == nil || sink == nil {
		return nil, errors.New("emitter needs both a segment source and a setpoint sink")
	}
	cancelCtx, cancelFn := context.WithCancel(context.Background())
	return &Emitter{
		limits:    limits,
		limiter:   motionplan.NewAxisLimiter(limits),
		tick:      cfg.Tick(),
		source:    source,
		sink:      sink,
		logger:    logger,
		clk:       clock.New(),
		cancelCtx: cancelCtx,
		cancelFn:  cancelFn,
	}, nil
}

// Start launches the tick loop. It returns immediately; Close stops the loop
// and waits for it to exit.
func (e *Emitter) Start() {
	ticker := e.clk.Ticker(e.tick)
	e.activeBackgroundWorkers.Add(1)
	goutils.ManagedGo(func() {
		defer ticker.Stop()
		for {
			select {
			case <-e.cancelCtx.Done():
				return
			case <-ticker.C:
				e.step(e.cancelCtx)
			}
		}
	}, e.activeBackgroundWorkers.Done)
}

// Close stops the tick loop and waits for it to finish.
func (e *Emitter) Close() {
	e.cancelFn()
	e.activeBackgroundWorkers.Wait()
}

// Cancel aborts motion without a velocity discontinuity: the active profile
// is superseded and replaced by a decelerate-to-zero move computed from the
// instantaneous velocity. The source is flushed, since its queued geometry
// no longer starts from the tool's actual pose; the caller pushes fresh
// segments from the hold position to move again.
func (e *Emitter) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.source.Flush()
	if e.active == nil {
		return
	}
	if e.active.planned != nil {
		e.active.planned.Supersede()
	}
	st, _ := e.active.profile.Sample(e.elapsed)
	dist := utils.Clamp(st.Dist, 0, e.active.seg.Length())
	e.lastPos = e.active.seg.PointAt(dist)
	e.lastDir = e.active.seg.Tangent(dist)
	e.lastVel = st.Vel
	e.active = nil
	e.elapsed = 0
	e.logger.Infow("motion cancelled, decelerating to hold", "velocity", e.lastVel)
	if e.lastVel > velocityEpsilon {
		e.beginStop()
	}
}

func (e *Emitter) step(ctx context.Context) {
	e.mu.Lock()
	sp := e.advance()
	e.mu.Unlock()
	e.assertWithinLimits(sp)
	if err := e.sink.SendSetpoint(ctx, sp); err != nil {
		e.logger.Errorw("setpoint delivery failed", "error", err)
	}
}

// advance moves one tick forward, crossing profile boundaries and carrying
// leftover tick time into the successor. Callers hold e.mu.
func (e *Emitter) advance() Setpoint {
	e.now += e.tick
	t := e.elapsed + e.tick.Seconds()

	for {
		if e.active == nil && !e.refill() {
			if e.lastVel > velocityEpsilon {
				// Still moving with nothing to execute: the planner fell
				// behind. Degraded but safe, decelerate along the current
				// heading and hold.
				e.logger.Warnw("planner underrun, decelerating to hold", "velocity", e.lastVel)
				e.beginStop()
				continue
			}
			e.elapsed = 0
			return Setpoint{Pos: e.lastPos, T: e.now}
		}
		if total := e.active.profile.TotalTime(); t > total {
			t -= total
			e.finishActive()
			continue
		}
		break
	}

	e.elapsed = t
	return e.sample(t)
}

func (e *Emitter) refill() bool {
	ps, ok := e.source.Next()
	if !ok {
		return false
	}
	e.active = &activeMove{seg: ps.Segment, profile: ps.Profile, planned: ps}
	return true
}

func (e *Emitter) finishActive() {
	seg, profile := e.active.seg, e.active.profile
	e.lastPos = seg.PointAt(seg.Length())
	e.lastDir = seg.Tangent(seg.Length())
	e.lastVel = profile.ExitVelocity()
	e.active = nil
}

// beginStop installs a decelerate-to-zero move along the current heading,
// used for cancellation and planner underrun. The stop line extends past the
// programmed path; its deceleration comes from the same axis projection the
// planner used, so the move is always within limits.
func (e *Emitter) beginStop() {
	heading, err := spatialmath.NewLine(e.lastPos, e.lastPos.Add(e.lastDir))
	if err != nil {
		e.logger.Debugw("no usable heading for deceleration, holding in place", "error", err)
		e.lastVel = 0
		return
	}
	decel := e.limiter.AccelerationLimit(heading)
	profile, err := motionplan.NewStopProfile(e.lastVel, decel)
	if err != nil {
		e.logger.Debugw("stop profile unavailable, holding in place", "error", err)
		e.lastVel = 0
		return
	}
	line, err := spatialmath.NewLine(e.lastPos, e.lastPos.Add(e.lastDir.Mul(profile.Length())))
	if err != nil {
		e.lastVel = 0
		return
	}
	e.active = &activeMove{seg: line, profile: profile}
}

func (e *Emitter) sample(t float64) Setpoint {
	st, _ := e.active.profile.Sample(t)
	seg := e.active.seg
	dist := utils.Clamp(st.Dist, 0, seg.Length())
	dir := seg.Tangent(dist)
	pos := seg.PointAt(dist)
	e.lastPos, e.lastVel, e.lastDir = pos, st.Vel, dir
	return Setpoint{Pos: pos, Vel: dir.Mul(st.Vel), Acc: dir.Mul(st.Acc), T: e.now}
}

// assertWithinLimits panics when a setpoint exceeds the configured axis
// limits: the planner guarantees every finalized profile fits, so exceeding
// them here is an upstream planning defect, not a recoverable condition.
func (e *Emitter) assertWithinLimits(sp Setpoint) {
	for _, axis := range config.Axes {
		v := math.Abs(axisPart(sp.Vel, axis))
		a := math.Abs(axisPart(sp.Acc, axis))
		lim, ok := e.limits[axis]
		if !ok {
			if v > velocityEpsilon {
				panic(errors.Errorf("setpoint moves unconfigured axis %q at %f", axis, v))
			}
			continue
		}
		if v > lim.MaxVelocity*(1+limitSlack)+limitSlack {
			panic(errors.Errorf("setpoint velocity %f exceeds axis %q limit %f", v, axis, lim.MaxVelocity))
		}
		if a > lim.MaxAcceleration*(1+limitSlack)+limitSlack {
			panic(errors.Errorf("setpoint acceleration %f exceeds axis %q limit %f", a, axis, lim.MaxAcceleration))
		}
	}
}

func axisPart(v r3.Vector, axis config.Axis) float64 {
	switch axis {
	case config.AxisX:
		return v.X
	case config.AxisY:
		return v.Y
	case config.AxisZ:
		return v.Z
	default:
		return 0
	}
}
