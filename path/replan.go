package path

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/spatialmath"
)

const (
	// replanMovingSpeed is the field speed above which the robot's momentum shapes the join.
	replanMovingSpeed = 0.1
	// replanStartTolerance is how close the robot must be to the path start to rejoin it there.
	replanStartTolerance = 0.25
	// minWaypointControlLength keeps the control point into the next waypoint from collapsing.
	minWaypointControlLength = 0.15
)

// Replan returns a path that starts at startPose, moving at the robot relative speeds, and smoothly
// joins this one. Rotation targets, zones and markers that still lie ahead are carried over and
// remapped onto the new waypoint numbering.
func (p *Path) Replan(startPose spatialmath.Pose, speeds kinematics.ChassisSpeeds) (*Path, error) {
	start := startPose.Point
	fieldSpeeds := kinematics.FromRobotRelative(speeds, startPose.Rotation)
	linearVel := fieldSpeeds.LinearVelocity()

	var nextControl *r2.Point
	if linearVel > replanMovingSpeed {
		stoppingDistance := linearVel * linearVel / (2 * p.globalConstraints.Resolved().MaxAcceleration)
		c := start.Add(spatialmath.PolarPoint(stoppingDistance, spatialmath.AngleOf(fieldSpeeds.Translation())))
		nextControl = &c
	}

	comparePoint := start
	if nextControl != nil {
		comparePoint = *nextControl
	}
	closestIdx := 0
	closestDist := manhattan(comparePoint, p.points[0].Position)
	for i := 1; i < len(p.points); i++ {
		if d := manhattan(comparePoint, p.points[i].Position); d < closestDist {
			closestIdx, closestDist = i, d
		}
	}

	last := len(p.points) - 1
	lastPos := p.points[last].Position
	first := p.points[0].Position
	opts := Options{Reversed: p.reversed, PreviewStartingRotation: p.previewRotation}

	if closestIdx == last {
		// Everything but the goal is behind the robot.
		if nextControl == nil {
			c := start.Add(spatialmath.PolarPoint(closestDist/3, spatialmath.AngleOf(lastPos.Sub(comparePoint))))
			nextControl = &c
		}
		endPrevControl := lastPos.Sub(spatialmath.PolarPoint(closestDist/3, spatialmath.AngleOf(lastPos.Sub(*nextControl))))
		return New([]r2.Point{start, *nextControl, endPrevControl, lastPos}, p.globalConstraints, p.goalEndState, opts)
	}

	if (closestIdx == 0 && nextControl == nil) ||
		(math.Abs(closestDist-spatialmath.Distance(start, first)) <= replanStartTolerance && linearVel < replanMovingSpeed) {
		return p.joinAtStart(start)
	}

	joinAnchorIdx := last
	for i := closestIdx; i < len(p.points); i++ {
		if p.points[i].DistanceAlongPath >= p.points[closestIdx].DistanceAlongPath+closestDist {
			joinAnchorIdx = i
			break
		}
	}
	joinPrevControl := p.points[closestIdx].Position
	joinAnchor := p.points[joinAnchorIdx].Position

	if nextControl == nil {
		c := start.Add(spatialmath.PolarPoint(
			spatialmath.Distance(start, joinAnchor)/3, spatialmath.AngleOf(joinPrevControl.Sub(start))))
		nextControl = &c
	}

	if joinAnchorIdx == last {
		return New([]r2.Point{start, *nextControl, joinPrevControl, joinAnchor}, p.globalConstraints, p.goalEndState, opts)
	}

	if len(p.bezierPoints) == 0 {
		join := Segment{Points: [4]r2.Point{start, *nextControl, joinPrevControl, joinAnchor}}
		points := append(join.Sample(nil, nil, false), p.points[joinAnchorIdx:]...)
		return FromPathPoints(points, p.globalConstraints, p.goalEndState)
	}

	nextWaypointIdx := (joinAnchorIdx + samplesPerSegment) / samplesPerSegment
	bezierIdx := 3 * nextWaypointIdx
	nextWaypoint := p.bezierPoints[bezierIdx]
	waypointDelta := spatialmath.Distance(joinAnchor, nextWaypoint)

	joinNextControl := joinAnchor.Add(spatialmath.PolarPoint(waypointDelta/3, spatialmath.AngleOf(joinAnchor.Sub(joinPrevControl))))
	var nextWaypointHeading float64
	if bezierIdx == len(p.bezierPoints)-1 {
		nextWaypointHeading = spatialmath.AngleOf(p.bezierPoints[bezierIdx-1].Sub(nextWaypoint))
	} else {
		nextWaypointHeading = spatialmath.AngleOf(nextWaypoint.Sub(p.bezierPoints[bezierIdx+1]))
	}
	nextWaypointPrevControl := nextWaypoint.Add(spatialmath.PolarPoint(
		math.Max(waypointDelta/3, minWaypointControlLength), nextWaypointHeading))

	bezier := []r2.Point{start, *nextControl, joinPrevControl, joinAnchor, joinNextControl, nextWaypointPrevControl}
	bezier = append(bezier, p.bezierPoints[bezierIdx:]...)

	var seg1Length, seg2Length float64
	lastSeg1, lastSeg2 := start, joinAnchor
	for i := 1; i < samplesPerSegment; i++ {
		t := float64(i) / samplesPerSegment
		p1 := spatialmath.CubicLerp(start, *nextControl, joinPrevControl, joinAnchor, t)
		p2 := spatialmath.CubicLerp(joinAnchor, joinNextControl, nextWaypointPrevControl, nextWaypoint, t)
		seg1Length += manhattan(lastSeg1, p1)
		seg2Length += manhattan(lastSeg2, p2)
		lastSeg1, lastSeg2 = p1, p2
	}
	seg1Pct := 0.5
	if total := seg1Length + seg2Length; total > 0 {
		seg1Pct = seg1Length / total
	}

	m := waypointMapper{nextWaypointIdx: float64(nextWaypointIdx), seg1Pct: seg1Pct}
	for _, t := range p.rotationTargets {
		if pos, ok := m.mapPos(t.Position); ok {
			t.Position = pos
			opts.RotationTargets = append(opts.RotationTargets, t)
		}
	}
	for _, z := range p.constraintZones {
		minPos, _ := m.mapPos(z.MinPos)
		maxPos, _ := m.mapPos(z.MaxPos)
		if maxPos > 0 {
			z.MinPos, z.MaxPos = minPos, maxPos
			opts.ConstraintZones = append(opts.ConstraintZones, z)
		}
	}
	for _, marker := range p.eventMarkers {
		pos, ok := m.mapPos(marker.WaypointRelativePos)
		if !ok {
			continue
		}
		marker.WaypointRelativePos = pos
		if marker.IsZoned() {
			if end, ok := m.mapPos(marker.EndWaypointRelativePos); ok {
				marker.EndWaypointRelativePos = end
			} else {
				marker.EndWaypointRelativePos = -1
			}
		}
		opts.EventMarkers = append(opts.EventMarkers, marker)
	}
	return New(bezier, p.globalConstraints, p.goalEndState, opts)
}

// joinAtStart prepends a segment from start onto the beginning of the path.
func (p *Path) joinAtStart(start r2.Point) (*Path, error) {
	first := p.points[0].Position
	distToStart := spatialmath.Distance(start, first)
	nextControl := start.Add(spatialmath.PolarPoint(distToStart/3, spatialmath.AngleOf(first.Sub(start))))
	joinPrevControl := first.Add(spatialmath.PolarPoint(distToStart/2, spatialmath.AngleOf(first.Sub(p.points[1].Position))))

	if len(p.bezierPoints) == 0 {
		join := Segment{Points: [4]r2.Point{start, nextControl, joinPrevControl, first}}
		points := append(join.Sample(nil, nil, false), p.points...)
		return FromPathPoints(points, p.globalConstraints, p.goalEndState)
	}

	opts := Options{Reversed: p.reversed, PreviewStartingRotation: p.previewRotation}
	for _, t := range p.rotationTargets {
		t.Position++
		opts.RotationTargets = append(opts.RotationTargets, t)
	}
	for _, z := range p.constraintZones {
		z.MinPos++
		z.MaxPos++
		opts.ConstraintZones = append(opts.ConstraintZones, z)
	}
	for _, m := range p.eventMarkers {
		m.WaypointRelativePos++
		if m.IsZoned() {
			m.EndWaypointRelativePos++
		}
		opts.EventMarkers = append(opts.EventMarkers, m)
	}
	bezier := append([]r2.Point{start, nextControl, joinPrevControl}, p.bezierPoints...)
	return New(bezier, p.globalConstraints, p.goalEndState, opts)
}

// waypointMapper moves waypoint relative positions onto a replanned path whose first two segments
// replace everything up to the next waypoint of the old one.
type waypointMapper struct {
	nextWaypointIdx float64
	seg1Pct         float64
}

// mapPos returns the new position of pos, or false when pos lies before the replaced segment.
func (m waypointMapper) mapPos(pos float64) (float64, bool) {
	switch {
	case pos >= m.nextWaypointIdx:
		return pos - m.nextWaypointIdx + 2, true
	case pos >= m.nextWaypointIdx-1:
		return m.mapPct(pos - (m.nextWaypointIdx - 1)), true
	default:
		return 0, false
	}
}

// mapPct spreads a fraction of the old segment across the two joining segments by length and
// rounds the result to Resolution.
func (m waypointMapper) mapPct(pct float64) float64 {
	var mapped float64
	switch {
	case m.seg1Pct > 0 && pct <= m.seg1Pct:
		mapped = pct / m.seg1Pct
	default:
		mapped = 1 + (pct-m.seg1Pct)/(1-m.seg1Pct)
	}
	return math.Round(mapped/Resolution) * Resolution
}

func manhattan(a, b r2.Point) float64 {
	d := a.Sub(b)
	return math.Abs(d.X) + math.Abs(d.Y)
}
