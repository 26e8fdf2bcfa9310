package motionplan

import "github.com/pkg/errors"

var (
	// ErrInvalidGeometry is returned when a pushed segment fails re-validation
	// at the queue boundary.
	ErrInvalidGeometry = errors.New("segment geometry is invalid")

	// ErrQueueFull is returned when the segment queue's ring buffer is at
	// capacity; the caller should retry after profiles have been emitted.
	ErrQueueFull = errors.New("segment queue is full")
)
