// Package motionplan turns a queued sequence of path segments into
// time-parameterized velocity profiles that respect per-axis velocity and
// acceleration limits and the session's corner tolerance policy. Planning is
// a two-pass solve over a bounded lookahead window: a forward pass
// propagates achievable velocities, a backward pass corrects the forward
// pass's optimism around short segments.
package motionplan

import (
	"math"
	"sync"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"

	"github.com/jointspace/toolpath/config"
	"github.com/jointspace/toolpath/spatialmath"
	"github.com/jointspace/toolpath/utils"
)

// queueCapacityFactor sizes the ring buffer relative to the lookahead window
// so pushes are not rejected the moment the window fills.
const queueCapacityFactor = 4

// PlannedSegment is a finalized unit of motion handed to the emitter: the
// segment geometry plus its immutable velocity profile. Ownership transfers
// to the consumer; the queue entry it came from is retired.
type PlannedSegment struct {
	Segment spatialmath.Segment
	Profile Profile

	EntryVelocity float64
	ExitVelocity  float64

	state PlanState
}

// State returns the planning state, Finalized or Superseded.
func (ps *PlannedSegment) State() PlanState { return ps.state }

// Supersede marks a finalized profile replaced by a cancellation decel; the
// transition is one-way.
func (ps *PlannedSegment) Supersede() { ps.state = Superseded }

// Planner composes the queue, blender, limiter, and profiler into one
// planning session. Configuration is immutable for the session's lifetime.
type Planner struct {
	mu      sync.Mutex
	cfg     config.Planning
	queue   *SegmentQueue
	blender *CornerBlender
	limiter *AxisLimiter
	logger  golog.Logger

	// carryVel is the exit velocity of the most recently finalized segment:
	// the committed speed at the front boundary of the window.
	carryVel float64
}

// NewPlanner validates the session configuration and constructs a planner.
// Invalid limits are a fatal configuration error: the planner refuses to
// start rather than produce undefined motion.
func NewPlanner(cfg config.Planning, logger golog.Logger) (*Planner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid planning configuration")
	}
	limiter := NewAxisLimiter(cfg.Axes)
	lookahead := cfg.Lookahead()
	return &Planner{
		cfg:     cfg,
		queue:   NewSegmentQueue(queueCapacityFactor*lookahead, lookahead),
		blender: NewCornerBlender(cfg.Tolerance, limiter),
		limiter: limiter,
		logger:  logger,
	}, nil
}

// Push validates and enqueues a segment, then replans the lookahead window.
func (p *Planner) Push(seg spatialmath.Segment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := validateSegment(seg); err != nil {
		return err
	}
	if err := p.limiter.CheckConfigured(seg); err != nil {
		return errors.Wrap(ErrInvalidGeometry, err.Error())
	}
	if err := p.queue.Push(seg); err != nil {
		return err
	}
	p.plan()
	return nil
}

// Flush discards every queued segment regardless of planning state and
// resets the committed boundary speed, so planning resumes from rest. Used
// on cancellation, where the queued geometry no longer starts from the
// tool's actual pose.
func (p *Planner) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	lookahead := p.cfg.Lookahead()
	p.queue = NewSegmentQueue(queueCapacityFactor*lookahead, lookahead)
	p.carryVel = 0
}

// Pending returns the number of segments awaiting emission.
func (p *Planner) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// Next finalizes and returns the next segment for emission, or false when
// the queue is empty. The returned profile is immutable; the corresponding
// queue entry is retired.
func (p *Planner) Next() (*PlannedSegment, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	win := p.queue.windowEntries()
	if len(win) == 0 {
		return nil, false
	}
	head := win[0]
	if head.state != BackwardCorrected {
		p.plan()
	}

	profile := p.synthesize(head)
	head.state = Finalized
	p.carryVel = head.exitVel
	if p.queue.Retire(1) != 1 {
		panic(errors.New("finalized queue head failed to retire"))
	}
	return &PlannedSegment{
		Segment:       head.seg,
		Profile:       profile,
		EntryVelocity: head.entryVel,
		ExitVelocity:  head.exitVel,
		state:         Finalized,
	}, true
}

// plan runs the forward and backward passes over the current lookahead
// window. It is idempotent: replanning an already corrected window yields
// identical velocities. Callers hold p.mu.
func (p *Planner) plan() {
	win := p.queue.windowEntries()
	n := len(win)
	if n == 0 {
		return
	}

	for _, e := range win {
		if !e.limitsCached {
			e.vLimit = p.limiter.VelocityLimit(e.seg)
			e.aLimit = p.limiter.AccelerationLimit(e.seg)
			e.jLimit = p.limiter.JerkLimit(e.seg)
			e.limitsCached = true
		}
	}

	// v[i] is the speed at the boundary entering segment i; v[n] closes the
	// window with a full stop so the whole window is always executable as
	// planned, whatever arrives later.
	v := make([]float64, n+1)
	v[0] = p.carryVel
	for i := 1; i < n; i++ {
		v[i] = p.blender.JunctionVelocity(win[i-1].seg, win[i].seg)
	}
	v[n] = 0

	// Forward pass: each boundary speed is capped by the junction bound, the
	// segment's axis limit, and what maximum acceleration can reach from the
	// previous boundary.
	for i, e := range win {
		if i > 0 {
			v[i] = math.Min(v[i], e.vLimit)
		}
		reach := math.Sqrt(utils.Square(v[i]) + 2*e.aLimit*e.seg.Length())
		v[i+1] = math.Min(v[i+1], reach)
		e.state = ForwardEstimated
	}

	// Backward pass: where stopping down to the exit speed needs more
	// distance than the segment has, pull the entry speed down and let the
	// reduction propagate toward the front.
	for i := n - 1; i >= 0; i-- {
		e := win[i]
		allowed := math.Sqrt(utils.Square(v[i+1]) + 2*e.aLimit*e.seg.Length())
		if v[i] > allowed {
			if i == 0 && v[0] > allowed+profileTolerance {
				// The front boundary speed was committed when the previous
				// segment finalized; it can never become infeasible because
				// the window always plans to a stop.
				panic(errors.Errorf("committed entry velocity %f became infeasible (allowed %f)", v[0], allowed))
			}
			v[i] = allowed
		}
		e.state = BackwardCorrected
		e.entryVel, e.exitVel = v[i], v[i+1]
	}
}

// synthesize builds the head entry's velocity profile. Infeasibility here is
// a planning defect: the passes guarantee every finalized pair of boundary
// speeds is reachable.
func (p *Planner) synthesize(e *entry) Profile {
	length := e.seg.Length()
	if p.cfg.Shape == config.SCurve && e.jLimit > 0 {
		profile, err := NewSCurveProfile(e.entryVel, e.exitVel, e.vLimit, e.aLimit, e.jLimit, length)
		if err == nil {
			return profile
		}
		p.logger.Debugw("s-curve synthesis unavailable, falling back to trapezoid",
			"segment", e.seg.String(), "error", err)
	}
	profile, err := NewTrapezoidProfile(e.entryVel, e.exitVel, e.vLimit, e.aLimit, length)
	if err != nil {
		panic(errors.Wrapf(err, "profile synthesis failed for %s", e.seg))
	}
	return profile
}
