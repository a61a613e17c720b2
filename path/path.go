// Package path turns Bezier waypoints into the dense, annotated point list that trajectories are
// generated from and that pure pursuit follows.
package path

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ppgo/pathplanner/spatialmath"
	"github.com/ppgo/pathplanner/utils"
)

// ErrInvalidPathGeometry is returned when a path cannot be built from the points given.
var ErrInvalidPathGeometry = errors.New("invalid path geometry")

// Options carries the optional annotations of a path.
type Options struct {
	RotationTargets []RotationTarget
	ConstraintZones []ConstraintsZone
	EventMarkers    []EventMarker
	// Reversed paths are driven backwards by differential drives.
	Reversed bool
	// PreviewStartingRotation is the rotation a holonomic robot is expected to start at.
	PreviewStartingRotation float64
}

// Path is an immutable, densely sampled path. Build one with New, FromWaypoints or FromPathPoints.
type Path struct {
	bezierPoints      []r2.Point
	rotationTargets   []RotationTarget
	constraintZones   []ConstraintsZone
	eventMarkers      []EventMarker
	globalConstraints PathConstraints
	goalEndState      GoalEndState
	reversed          bool
	previewRotation   float64

	points          []PathPoint
	markerPositions []r2.Point
}

// New builds a path from a flattened list of Bezier control points: anchor, next control, then
// (previous control, anchor, next control) for each middle waypoint, then previous control, anchor.
func New(bezierPoints []r2.Point, constraints PathConstraints, goal GoalEndState, opts Options) (*Path, error) {
	if len(bezierPoints) < 4 {
		return nil, errors.Wrapf(ErrInvalidPathGeometry, "need at least 4 bezier points, got %d", len(bezierPoints))
	}
	if (len(bezierPoints)-1)%3 != 0 {
		return nil, errors.Wrapf(ErrInvalidPathGeometry, "%d bezier points do not form whole segments", len(bezierPoints))
	}

	p := &Path{
		bezierPoints:      append([]r2.Point(nil), bezierPoints...),
		rotationTargets:   append([]RotationTarget(nil), opts.RotationTargets...),
		constraintZones:   append([]ConstraintsZone(nil), opts.ConstraintZones...),
		eventMarkers:      append([]EventMarker(nil), opts.EventMarkers...),
		globalConstraints: constraints,
		goalEndState:      goal,
		reversed:          opts.Reversed,
		previewRotation:   opts.PreviewStartingRotation,
	}
	sort.SliceStable(p.rotationTargets, func(i, j int) bool {
		return p.rotationTargets[i].Position < p.rotationTargets[j].Position
	})
	p.points = createPoints(p.bezierPoints, p.rotationTargets, p.constraintZones)
	p.precalcValues()
	return p, nil
}

// FromWaypoints builds a path from authored waypoints.
func FromWaypoints(waypoints []Waypoint, constraints PathConstraints, goal GoalEndState, opts Options) (*Path, error) {
	bezier, err := BezierFromWaypoints(waypoints)
	if err != nil {
		return nil, err
	}
	return New(bezier, constraints, goal, opts)
}

// FromPathPoints builds a path from an already sampled point list, such as one produced by a
// pathfinder. Distances, curvature and velocity caps are recomputed and each point's waypoint
// relative position is reset to its index times Resolution.
func FromPathPoints(points []PathPoint, constraints PathConstraints, goal GoalEndState) (*Path, error) {
	if len(points) < 2 {
		return nil, errors.Wrapf(ErrInvalidPathGeometry, "need at least 2 path points, got %d", len(points))
	}
	p := &Path{
		globalConstraints: constraints,
		goalEndState:      goal,
		points:            make([]PathPoint, len(points)),
	}
	for i, pt := range points {
		p.points[i] = PathPoint{
			Position:            pt.Position,
			RotationTarget:      pt.RotationTarget,
			Constraints:         pt.Constraints,
			WaypointRelativePos: float64(i) * Resolution,
		}
	}
	p.precalcValues()
	return p, nil
}

// BezierFromWaypoints flattens waypoints into the control point list New expects.
func BezierFromWaypoints(waypoints []Waypoint) ([]r2.Point, error) {
	if len(waypoints) < 2 {
		return nil, errors.Wrapf(ErrInvalidPathGeometry, "need at least 2 waypoints, got %d", len(waypoints))
	}
	bezier := make([]r2.Point, 0, 3*len(waypoints)-2)
	for i, w := range waypoints {
		if i != 0 {
			if w.PrevControl == nil {
				return nil, errors.Wrapf(ErrInvalidPathGeometry, "waypoint %d is missing its previous control point", i)
			}
			bezier = append(bezier, *w.PrevControl)
		}
		bezier = append(bezier, w.Anchor)
		if i != len(waypoints)-1 {
			if w.NextControl == nil {
				return nil, errors.Wrapf(ErrInvalidPathGeometry, "waypoint %d is missing its next control point", i)
			}
			bezier = append(bezier, *w.NextControl)
		}
	}
	return bezier, nil
}

func createPoints(bezier []r2.Point, targets []RotationTarget, zones []ConstraintsZone) []PathPoint {
	numSegments := (len(bezier) - 1) / 3
	points := make([]PathPoint, 0, numSegments*samplesPerSegment+1)
	for s := 0; s < numSegments; s++ {
		lo0, hi0 := float64(s), float64(s+1)
		segTargets := lo.FilterMap(targets, func(t RotationTarget, _ int) (RotationTarget, bool) {
			return t.forSegmentIndex(s), lo0 <= t.Position && t.Position <= hi0
		})
		segZones := lo.FilterMap(zones, func(z ConstraintsZone, _ int) (ConstraintsZone, bool) {
			return z.forSegmentIndex(s), z.Overlaps(lo0, hi0)
		})
		seg := Segment{Index: s, Points: [4]r2.Point{bezier[3*s], bezier[3*s+1], bezier[3*s+2], bezier[3*s+3]}}
		points = append(points, seg.Sample(segTargets, segZones, s == numSegments-1)...)
	}
	return points
}

func (p *Path) precalcValues() {
	n := len(p.points)
	for i := range p.points {
		pt := &p.points[i]
		constraints := p.ConstraintsForPoint(i)
		pt.CurveRadius = p.curveRadiusAt(i)
		if utils.IsFinite(pt.CurveRadius) {
			pt.MaxV = math.Min(math.Sqrt(constraints.MaxAcceleration*math.Abs(pt.CurveRadius)), constraints.MaxVelocity)
		} else {
			pt.MaxV = constraints.MaxVelocity
		}
		if i != 0 {
			prev := p.points[i-1]
			pt.DistanceAlongPath = prev.DistanceAlongPath + spatialmath.Distance(prev.Position, pt.Position)
		}
	}

	p.markerPositions = make([]r2.Point, len(p.eventMarkers))
	for i, m := range p.eventMarkers {
		p.markerPositions[i] = p.points[p.pointIndexFor(m.WaypointRelativePos)].Position
	}

	last := &p.points[n-1]
	last.RotationTarget = &RotationTarget{Position: -1, Rotation: p.goalEndState.Rotation, RotateFast: p.goalEndState.RotateFast}
	last.MaxV = p.goalEndState.Velocity
}

// pointIndexFor maps a waypoint relative position to the nearest sample index.
func (p *Path) pointIndexFor(pos float64) int {
	idx := int(math.Round(pos / Resolution))
	return int(utils.Clamp(float64(idx), 0, float64(len(p.points)-1)))
}

func (p *Path) curveRadiusAt(i int) float64 {
	n := len(p.points)
	if n < 3 {
		return math.Inf(1)
	}
	switch i {
	case 0:
		return spatialmath.CalculateRadius(p.points[0].Position, p.points[1].Position, p.points[2].Position)
	case n - 1:
		return spatialmath.CalculateRadius(p.points[n-3].Position, p.points[n-2].Position, p.points[n-1].Position)
	default:
		return spatialmath.CalculateRadius(p.points[i-1].Position, p.points[i].Position, p.points[i+1].Position)
	}
}

// NumPoints is the number of samples on the path.
func (p *Path) NumPoints() int {
	return len(p.points)
}

// Point returns the i'th sample.
func (p *Path) Point(i int) PathPoint {
	return p.points[i]
}

// Points returns a copy of every sample.
func (p *Path) Points() []PathPoint {
	return append([]PathPoint(nil), p.points...)
}

// ConstraintsForPoint returns the resolved constraints in effect at sample i.
func (p *Path) ConstraintsForPoint(i int) PathConstraints {
	if c := p.points[i].Constraints; c != nil {
		return c.Resolved()
	}
	return p.globalConstraints.Resolved()
}

// GlobalConstraints are the constraints used outside every zone.
func (p *Path) GlobalConstraints() PathConstraints {
	return p.globalConstraints
}

// GoalEndState is the state at the end of the path.
func (p *Path) GoalEndState() GoalEndState {
	return p.goalEndState
}

// BezierPoints returns the control points the path was built from, empty for paths built from
// points.
func (p *Path) BezierPoints() []r2.Point {
	return append([]r2.Point(nil), p.bezierPoints...)
}

// RotationTargets returns the authored rotation targets sorted by position.
func (p *Path) RotationTargets() []RotationTarget {
	return append([]RotationTarget(nil), p.rotationTargets...)
}

// ConstraintZones returns the authored constraint zones.
func (p *Path) ConstraintZones() []ConstraintsZone {
	return append([]ConstraintsZone(nil), p.constraintZones...)
}

// EventMarkers returns the authored event markers.
func (p *Path) EventMarkers() []EventMarker {
	return append([]EventMarker(nil), p.eventMarkers...)
}

// IsReversed reports whether a differential drive should follow the path backwards.
func (p *Path) IsReversed() bool {
	return p.reversed
}

// PreviewStartingRotation is the rotation a holonomic robot is expected to start at.
func (p *Path) PreviewStartingRotation() float64 {
	return p.previewRotation
}

// StartingDifferentialPose is the pose a differential drive starts the path in: facing the second
// sample, or away from it when reversed.
func (p *Path) StartingDifferentialPose() spatialmath.Pose {
	start := p.points[0].Position
	heading := spatialmath.AngleOf(p.points[1].Position.Sub(start))
	if p.reversed {
		heading = utils.WrapAngle(heading + math.Pi)
	}
	return spatialmath.Pose{Point: start, Rotation: heading}
}

// StartingHolonomicPose is the pose a holonomic robot starts the path in.
func (p *Path) StartingHolonomicPose() spatialmath.Pose {
	return spatialmath.Pose{Point: p.points[0].Position, Rotation: p.previewRotation}
}

// Poses returns the position of every sample with zero rotation, for display.
func (p *Path) Poses() []spatialmath.Pose {
	return lo.Map(p.points, func(pt PathPoint, _ int) spatialmath.Pose {
		return spatialmath.Pose{Point: pt.Position}
	})
}
