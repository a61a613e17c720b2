package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestPolarAndAngle(t *testing.T) {
	p := PolarPoint(2, math.Pi/2)
	test.That(t, p.X, test.ShouldAlmostEqual, 0)
	test.That(t, p.Y, test.ShouldAlmostEqual, 2)
	test.That(t, AngleOf(p), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, AngleOf(r2.Point{}), test.ShouldEqual, 0.0)
	test.That(t, AngleOf(r2.Point{X: -1}), test.ShouldAlmostEqual, math.Pi)
}

func TestRotateBy(t *testing.T) {
	v := RotateBy(r2.Point{X: 1, Y: 0}, math.Pi/2)
	test.That(t, v.X, test.ShouldAlmostEqual, 0)
	test.That(t, v.Y, test.ShouldAlmostEqual, 1)

	v = RotateBy(r2.Point{X: 0.3, Y: 0.3}, math.Pi)
	test.That(t, v.X, test.ShouldAlmostEqual, -0.3)
	test.That(t, v.Y, test.ShouldAlmostEqual, -0.3)
}

func TestPoseAlmostEqual(t *testing.T) {
	a := NewPose(1, 1, math.Pi-0.001)
	b := NewPose(1.0005, 1, -math.Pi+0.001)
	test.That(t, PoseAlmostEqual(a, b, 1e-3, 1e-2), test.ShouldBeTrue)
	test.That(t, PoseAlmostEqual(a, NewPose(2, 1, 0), 1e-3, 1e-2), test.ShouldBeFalse)
	test.That(t, a.String(), test.ShouldContainSubstring, "1.000")
}

func TestFieldFlip(t *testing.T) {
	mirrored := Field{SizeX: 16, SizeY: 8, Symmetry: Mirrored}
	rotational := Field{SizeX: 16, SizeY: 8, Symmetry: Rotational}
	pose := NewPose(2, 1, math.Pi/4)

	t.Run("mirrored", func(t *testing.T) {
		f := mirrored.FlipPose(pose)
		test.That(t, f.Point.X, test.ShouldAlmostEqual, 14)
		test.That(t, f.Point.Y, test.ShouldAlmostEqual, 1)
		test.That(t, f.Rotation, test.ShouldAlmostEqual, 3*math.Pi/4)

		vx, vy, omega := mirrored.FlipVelocity(1, 2, 3)
		test.That(t, []float64{vx, vy, omega}, test.ShouldResemble, []float64{-1, 2, -3})
		test.That(t, mirrored.FlipModuleOrder([]float64{1, 2, 3, 4}), test.ShouldResemble, []float64{2, 1, 4, 3})
		test.That(t, mirrored.FlipModuleOrder([]float64{1, 2}), test.ShouldResemble, []float64{2, 1})
	})

	t.Run("rotational", func(t *testing.T) {
		f := rotational.FlipPose(pose)
		test.That(t, f.Point.X, test.ShouldAlmostEqual, 14)
		test.That(t, f.Point.Y, test.ShouldAlmostEqual, 7)
		test.That(t, f.Rotation, test.ShouldAlmostEqual, -3*math.Pi/4)

		vx, vy, omega := rotational.FlipVelocity(1, 2, 3)
		test.That(t, []float64{vx, vy, omega}, test.ShouldResemble, []float64{-1, -2, 3})
		test.That(t, rotational.FlipModuleOrder([]float64{1, 2, 3, 4}), test.ShouldResemble, []float64{1, 2, 3, 4})
	})

	t.Run("involution", func(t *testing.T) {
		for _, f := range []Field{mirrored, rotational} {
			twice := f.FlipPose(f.FlipPose(pose))
			test.That(t, PoseAlmostEqual(twice, pose, 1e-9, 1e-9), test.ShouldBeTrue)
		}
	})
}
