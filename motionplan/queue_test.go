package motionplan

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/jointspace/toolpath/spatialmath"
)

func mustLine(t *testing.T, start, end r3.Vector) *spatialmath.Line {
	t.Helper()
	line, err := spatialmath.NewLine(start, end)
	test.That(t, err, test.ShouldBeNil)
	return line
}

func TestQueueFIFO(t *testing.T) {
	q := NewSegmentQueue(8, 4)
	a := mustLine(t, r3.Vector{}, r3.Vector{X: 1})
	b := mustLine(t, r3.Vector{X: 1}, r3.Vector{X: 2})
	c := mustLine(t, r3.Vector{X: 2}, r3.Vector{X: 3})
	for _, seg := range []spatialmath.Segment{a, b, c} {
		test.That(t, q.Push(seg), test.ShouldBeNil)
	}
	test.That(t, q.Len(), test.ShouldEqual, 3)

	win := q.Window()
	test.That(t, win, test.ShouldHaveLength, 3)
	test.That(t, win[0], test.ShouldEqual, a)
	test.That(t, win[1], test.ShouldEqual, b)
	test.That(t, win[2], test.ShouldEqual, c)
}

func TestQueueWindowBound(t *testing.T) {
	q := NewSegmentQueue(8, 2)
	for i := 0; i < 5; i++ {
		seg := mustLine(t, r3.Vector{X: float64(i)}, r3.Vector{X: float64(i + 1)})
		test.That(t, q.Push(seg), test.ShouldBeNil)
	}
	test.That(t, q.Len(), test.ShouldEqual, 5)
	test.That(t, q.Window(), test.ShouldHaveLength, 2)
}

func TestQueueRejectsInvalidGeometry(t *testing.T) {
	q := NewSegmentQueue(8, 4)
	err := q.Push(nil)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)
	test.That(t, q.Len(), test.ShouldEqual, 0)
}

func TestQueueFull(t *testing.T) {
	q := NewSegmentQueue(2, 2)
	test.That(t, q.Push(mustLine(t, r3.Vector{}, r3.Vector{X: 1})), test.ShouldBeNil)
	test.That(t, q.Push(mustLine(t, r3.Vector{X: 1}, r3.Vector{X: 2})), test.ShouldBeNil)

	err := q.Push(mustLine(t, r3.Vector{X: 2}, r3.Vector{X: 3}))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrQueueFull), test.ShouldBeTrue)
	test.That(t, q.Len(), test.ShouldEqual, 2)
}

func TestQueueRetireOnlyFinalized(t *testing.T) {
	q := NewSegmentQueue(8, 4)
	test.That(t, q.Push(mustLine(t, r3.Vector{}, r3.Vector{X: 1})), test.ShouldBeNil)
	test.That(t, q.Push(mustLine(t, r3.Vector{X: 1}, r3.Vector{X: 2})), test.ShouldBeNil)

	// Nothing is finalized yet.
	test.That(t, q.Retire(2), test.ShouldEqual, 0)
	test.That(t, q.Len(), test.ShouldEqual, 2)

	q.windowEntries()[0].state = Finalized
	test.That(t, q.Retire(2), test.ShouldEqual, 1)
	test.That(t, q.Len(), test.ShouldEqual, 1)
}

func TestQueueRingWraps(t *testing.T) {
	q := NewSegmentQueue(3, 3)
	push := func(i int) {
		seg := mustLine(t, r3.Vector{X: float64(i)}, r3.Vector{X: float64(i + 1)})
		test.That(t, q.Push(seg), test.ShouldBeNil)
	}
	push(0)
	push(1)
	q.windowEntries()[0].state = Finalized
	test.That(t, q.Retire(1), test.ShouldEqual, 1)
	push(2)
	push(3)

	win := q.Window()
	test.That(t, win, test.ShouldHaveLength, 3)
	test.That(t, win[0].Start().X, test.ShouldEqual, 1)
	test.That(t, win[2].End().X, test.ShouldEqual, 4)
}
