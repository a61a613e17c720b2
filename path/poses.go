package path

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/spatialmath"
)

// WaypointsFromPoses builds waypoints passing through each pose's position, heading along its
// rotation. Control points sit a third of the way to the neighboring anchor.
func WaypointsFromPoses(poses []spatialmath.Pose) ([]Waypoint, error) {
	if len(poses) < 2 {
		return nil, errors.Wrapf(ErrInvalidPathGeometry, "need at least 2 poses, got %d", len(poses))
	}
	waypoints := make([]Waypoint, len(poses))
	for i, pose := range poses {
		w := Waypoint{Anchor: pose.Point}
		if i != 0 {
			d := spatialmath.Distance(pose.Point, poses[i-1].Point)
			c := pose.Point.Add(spatialmath.PolarPoint(d/3, pose.Rotation+math.Pi))
			w.PrevControl = &c
		}
		if i != len(poses)-1 {
			d := spatialmath.Distance(pose.Point, poses[i+1].Point)
			c := pose.Point.Add(spatialmath.PolarPoint(d/3, pose.Rotation))
			w.NextControl = &c
		}
		waypoints[i] = w
	}
	return waypoints, nil
}

// BezierFromPoses is WaypointsFromPoses flattened into Bezier control points.
func BezierFromPoses(poses []spatialmath.Pose) ([]r2.Point, error) {
	waypoints, err := WaypointsFromPoses(poses)
	if err != nil {
		return nil, err
	}
	return BezierFromWaypoints(waypoints)
}
