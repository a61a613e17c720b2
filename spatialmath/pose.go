package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/utils"
)

// Pose is a position on the field plus a rotation in radians, counter-clockwise from +X.
type Pose struct {
	Point    r2.Point
	Rotation float64
}

// NewPose creates a pose from coordinates and a rotation in radians.
func NewPose(x, y, rotation float64) Pose {
	return Pose{Point: r2.Point{X: x, Y: y}, Rotation: rotation}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.3f, %.3f, %.1f°)", p.Point.X, p.Point.Y, utils.RadToDeg(p.Rotation))
}

// PolarPoint returns the vector of the given length pointing at angle (radians).
func PolarPoint(length, angle float64) r2.Point {
	return r2.Point{X: length * math.Cos(angle), Y: length * math.Sin(angle)}
}

// AngleOf returns the direction of v in radians. The zero vector has angle 0.
func AngleOf(v r2.Point) float64 {
	if v.X == 0 && v.Y == 0 {
		return 0
	}
	return math.Atan2(v.Y, v.X)
}

// RotateBy rotates v counter-clockwise by angle radians.
func RotateBy(v r2.Point, angle float64) r2.Point {
	c, s := math.Cos(angle), math.Sin(angle)
	return r2.Point{X: v.X*c - v.Y*s, Y: v.X*s + v.Y*c}
}

// Distance is the euclidean distance between two points.
func Distance(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// PoseAlmostEqual compares two poses with separate position and rotation tolerances.
func PoseAlmostEqual(a, b Pose, posTol, rotTol float64) bool {
	return Distance(a.Point, b.Point) <= posTol &&
		math.Abs(utils.WrapAngle(a.Rotation-b.Rotation)) <= rotTol
}
