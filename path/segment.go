package path

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/spatialmath"
)

const (
	// Resolution is the step in t between samples of one Bezier segment.
	Resolution = 0.05
	// samplesPerSegment is 1 / Resolution.
	samplesPerSegment = 20
)

// PathPoint is one dense sample of a path.
//
//nolint:revive
type PathPoint struct {
	Position          r2.Point
	DistanceAlongPath float64
	// CurveRadius is signed, positive for left turns and ±Inf on straight stretches.
	CurveRadius float64
	// MaxV is the curvature limited velocity at this point.
	MaxV           float64
	RotationTarget *RotationTarget
	// Constraints is the zone override for this point; nil means the path's global constraints.
	Constraints *PathConstraints
	// WaypointRelativePos is the segment index plus the Bezier t this point was sampled at.
	WaypointRelativePos float64
}

// Segment is one cubic Bezier segment of a path.
type Segment struct {
	Index  int
	Points [4]r2.Point
}

// Sample discretizes the segment at Resolution. targets and zones must already be expressed relative
// to this segment, so that 0 is its start and 1 its end, and targets must be sorted by position.
// The endpoint at t = 1 is only emitted for the final segment of a path.
func (s Segment) Sample(targets []RotationTarget, zones []ConstraintsZone, end bool) []PathPoint {
	pending := targets
	points := make([]PathPoint, 0, samplesPerSegment+1)
	p := s.Points

	for i := 0; i < samplesPerSegment; i++ {
		t := float64(i) / samplesPerSegment
		next := math.Min(float64(i+1)/samplesPerSegment, 1)

		point := PathPoint{
			Position:            spatialmath.CubicLerp(p[0], p[1], p[2], p[3], t),
			WaypointRelativePos: float64(s.Index) + t,
		}
		if len(pending) > 0 && math.Abs(pending[0].Position-t) <= math.Abs(pending[0].Position-next) {
			target := pending[0]
			point.RotationTarget = &target
			pending = pending[1:]
		}
		for _, z := range zones {
			if z.Contains(t) {
				constraints := z.Constraints
				point.Constraints = &constraints
				break
			}
		}
		points = append(points, point)
	}

	if end {
		point := PathPoint{
			Position:            p[3],
			WaypointRelativePos: float64(s.Index) + 1,
		}
		if len(pending) > 0 {
			target := pending[0]
			point.RotationTarget = &target
		}
		points = append(points, point)
	}
	return points
}
