package motionplan

import (
	"math"

	"github.com/pkg/errors"

	"github.com/jointspace/toolpath/spatialmath"
)

// PlanState tracks a segment through the planning pipeline. A segment is
// immutable once Finalized; Superseded marks a finalized profile replaced by
// a cancellation decel.
type PlanState int

// The planning states, in pipeline order.
const (
	Pending PlanState = iota
	ForwardEstimated
	BackwardCorrected
	Finalized
	Superseded
)

func (s PlanState) String() string {
	switch s {
	case Pending:
		return "pending"
	case ForwardEstimated:
		return "forward_estimated"
	case BackwardCorrected:
		return "backward_corrected"
	case Finalized:
		return "finalized"
	case Superseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// entry is a queued segment plus its planning annotations. Annotations are
// transient: they are recomputed whenever the lookahead window shifts.
type entry struct {
	seg   spatialmath.Segment
	state PlanState

	// Axis-projected bounds, cached on first planning pass.
	vLimit, aLimit, jLimit float64
	limitsCached           bool

	entryVel, exitVel float64
}

// SegmentQueue holds an ordered sequence of pending segments in a
// fixed-capacity ring buffer, plus a bounded lookahead window. Segments
// execute strictly in push order.
type SegmentQueue struct {
	ring   []*entry
	head   int
	count  int
	window int
}

// NewSegmentQueue creates a queue with the given ring capacity and lookahead
// window size. The window bounds the cost of a backward correction pass.
func NewSegmentQueue(capacity, window int) *SegmentQueue {
	if capacity < window {
		capacity = window
	}
	return &SegmentQueue{ring: make([]*entry, capacity), window: window}
}

// Push appends a segment to the queue, re-validating its geometry even
// though the constructors in spatialmath already did: the geometry source is
// untrusted at this boundary.
func (q *SegmentQueue) Push(seg spatialmath.Segment) error {
	if err := validateSegment(seg); err != nil {
		return err
	}
	if q.count == len(q.ring) {
		return errors.Wrapf(ErrQueueFull, "capacity %d", len(q.ring))
	}
	q.ring[(q.head+q.count)%len(q.ring)] = &entry{seg: seg}
	q.count++
	return nil
}

// Len returns the number of queued segments.
func (q *SegmentQueue) Len() int { return q.count }

// Cap returns the ring capacity.
func (q *SegmentQueue) Cap() int { return len(q.ring) }

// WindowSize returns the lookahead window bound.
func (q *SegmentQueue) WindowSize() int { return q.window }

// Window returns a read-only view of up to the window size of upcoming
// segments, in execution order. The slice is freshly built per call.
func (q *SegmentQueue) Window() []spatialmath.Segment {
	entries := q.windowEntries()
	segs := make([]spatialmath.Segment, len(entries))
	for i, e := range entries {
		segs[i] = e.seg
	}
	return segs
}

// windowEntries returns the planner-facing window, annotations included.
func (q *SegmentQueue) windowEntries() []*entry {
	n := q.count
	if n > q.window {
		n = q.window
	}
	out := make([]*entry, n)
	for i := 0; i < n; i++ {
		out[i] = q.ring[(q.head+i)%len(q.ring)]
	}
	return out
}

// Retire removes up to n finalized segments from the front of the queue and
// returns how many were removed.
func (q *SegmentQueue) Retire(n int) int {
	retired := 0
	for retired < n && q.count > 0 {
		e := q.ring[q.head]
		if e.state != Finalized {
			break
		}
		q.ring[q.head] = nil
		q.head = (q.head + 1) % len(q.ring)
		q.count--
		retired++
	}
	return retired
}

func validateSegment(seg spatialmath.Segment) error {
	if seg == nil {
		return errors.Wrap(ErrInvalidGeometry, "nil segment")
	}
	length := seg.Length()
	if math.IsNaN(length) || math.IsInf(length, 0) || length <= 1e-9 {
		return errors.Wrapf(ErrInvalidGeometry, "segment %s has length %f", seg, length)
	}
	for _, pt := range []float64{
		seg.Start().X, seg.Start().Y, seg.Start().Z,
		seg.End().X, seg.End().Y, seg.End().Z,
	} {
		if math.IsNaN(pt) || math.IsInf(pt, 0) {
			return errors.Wrapf(ErrInvalidGeometry, "segment %s has non-finite endpoint", seg)
		}
	}
	if c := seg.Curvature(); math.IsNaN(c) || c < 0 {
		return errors.Wrapf(ErrInvalidGeometry, "segment %s has curvature %f", seg, c)
	}
	return nil
}
