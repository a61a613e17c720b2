package path

import (
	"github.com/golang/geo/r2"
	"github.com/samber/lo"

	"github.com/ppgo/pathplanner/spatialmath"
)

// Flip returns the path as it would be driven from the other side of the field. Positions and
// rotations are mirrored or rotated according to the field's symmetry; waypoint relative
// positions do not change.
func (p *Path) Flip(field spatialmath.Field) (*Path, error) {
	flipTarget := func(t RotationTarget) RotationTarget {
		t.Rotation = field.FlipRotation(t.Rotation)
		return t
	}
	goal := p.goalEndState
	goal.Rotation = field.FlipRotation(goal.Rotation)

	if len(p.bezierPoints) == 0 {
		points := lo.Map(p.points, func(pt PathPoint, _ int) PathPoint {
			pt.Position = field.FlipPoint(pt.Position)
			if pt.RotationTarget != nil {
				t := flipTarget(*pt.RotationTarget)
				pt.RotationTarget = &t
			}
			return pt
		})
		return FromPathPoints(points, p.globalConstraints, goal)
	}

	return New(lo.Map(p.bezierPoints, func(pt r2.Point, _ int) r2.Point { return field.FlipPoint(pt) }),
		p.globalConstraints, goal, Options{
			RotationTargets:         lo.Map(p.rotationTargets, func(t RotationTarget, _ int) RotationTarget { return flipTarget(t) }),
			ConstraintZones:         p.constraintZones,
			EventMarkers:            p.eventMarkers,
			Reversed:                p.reversed,
			PreviewStartingRotation: field.FlipRotation(p.previewRotation),
		})
}
