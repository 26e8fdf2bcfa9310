package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// colinearityEpsilon is the turning angle in radians below which two
// directions are treated as colinear.
const colinearityEpsilon = 1e-6

// BlendPolyline converts a waypoint polyline into Line and Arc segments,
// rounding each interior corner with a circular blend that stays within
// maxDeviation of the programmed corner. The blend radius is limited by the
// deviation bound and by half of each adjoining span so neighboring corners
// never compete for the same stretch of path. Colinear corners are merged;
// full reversals are kept as sharp corners.
func BlendPolyline(points []r3.Vector, maxDeviation float64) ([]Segment, error) {
	if len(points) < 2 {
		return nil, errors.Errorf("polyline needs at least two points, got %d", len(points))
	}
	if maxDeviation < 0 {
		return nil, errors.Errorf("max deviation must not be negative, got %f", maxDeviation)
	}

	var segments []Segment
	cur := points[0]
	for i := 1; i < len(points)-1; i++ {
		mid, next := points[i], points[i+1]

		prevDelta := mid.Sub(cur)
		nextDelta := next.Sub(mid)
		prevLen := prevDelta.Norm()
		nextLen := nextDelta.Norm()
		if prevLen < floatEpsilon {
			// Duplicate waypoint; nothing to blend against.
			continue
		}
		if nextLen < floatEpsilon {
			continue
		}
		prevDir := prevDelta.Mul(1 / prevLen)
		nextDir := nextDelta.Mul(1 / nextLen)

		angle := math.Atan2(prevDir.Cross(nextDir).Norm(), prevDir.Dot(nextDir))
		if angle < colinearityEpsilon {
			// Colinear corner: drop the waypoint and extend the current span.
			continue
		}

		half := angle / 2
		// The longest trim of each leg that keeps the arc within maxDeviation
		// of the corner.
		deviationTrim := maxDeviation * math.Sin(half) / (1 - math.Cos(half))
		trim := math.Min(math.Min(prevLen/2, nextLen/2), deviationTrim)
		radius := trim / math.Tan(half)

		if angle > math.Pi-colinearityEpsilon || radius < floatEpsilon {
			// Reversal, or a blend too tight to round: keep the sharp corner.
			line, err := NewLine(cur, mid)
			if err != nil {
				return nil, err
			}
			segments = append(segments, line)
			cur = mid
			continue
		}

		center := mid.Add(nextDir.Sub(prevDir).Normalize().Mul(radius / math.Cos(half)))
		arcStart := center.Add(mid.Sub(prevDir.Mul(trim)).Sub(center).Normalize().Mul(radius))
		arcEnd := center.Add(mid.Add(nextDir.Mul(trim)).Sub(center).Normalize().Mul(radius))

		axis := prevDir.Cross(nextDir).Normalize()
		clockwise := arcStart.Sub(center).Cross(arcEnd.Sub(center)).Dot(axis) < 0

		if arcStart.Sub(cur).Norm() > floatEpsilon {
			line, err := NewLine(cur, arcStart)
			if err != nil {
				return nil, err
			}
			segments = append(segments, line)
		}
		arc, err := NewArc(arcStart, arcEnd, center, radius, axis, clockwise)
		if err != nil {
			return nil, errors.Wrapf(err, "blending corner at %v", mid)
		}
		segments = append(segments, arc)
		cur = arcEnd
	}

	last := points[len(points)-1]
	if last.Sub(cur).Norm() > floatEpsilon {
		line, err := NewLine(cur, last)
		if err != nil {
			return nil, err
		}
		segments = append(segments, line)
	}
	if len(segments) == 0 {
		return nil, errors.New("polyline is degenerate, no segments produced")
	}
	return segments, nil
}
