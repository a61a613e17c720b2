package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"go.viam.com/test"
)

func TestLerp(t *testing.T) {
	test.That(t, Lerp(0, 10, 0.5), test.ShouldEqual, 5.0)
	test.That(t, Lerp(10, 0, 0.25), test.ShouldEqual, 7.5)
	test.That(t, Lerp(-2, 2, 0), test.ShouldEqual, -2.0)
	test.That(t, Lerp(-2, 2, 1), test.ShouldEqual, 2.0)

	p := PointLerp(r2.Point{X: 2, Y: 3}, r2.Point{X: 4, Y: 7}, 0.5)
	test.That(t, p.X, test.ShouldEqual, 3.0)
	test.That(t, p.Y, test.ShouldEqual, 5.0)
}

func TestBezier(t *testing.T) {
	a := r2.Point{X: 1, Y: 2}
	b := r2.Point{X: 3, Y: 4}
	c := r2.Point{X: 5, Y: 1}
	d := r2.Point{X: 6, Y: 6}

	q := QuadraticLerp(a, b, c, 0.5)
	test.That(t, q.X, test.ShouldAlmostEqual, 3)
	test.That(t, q.Y, test.ShouldAlmostEqual, 2.75)

	// Endpoints are interpolated exactly.
	test.That(t, CubicLerp(a, b, c, d, 0), test.ShouldResemble, a)
	test.That(t, CubicLerp(a, b, c, d, 1), test.ShouldResemble, d)

	// Bernstein form at t = 0.5: (a + 3b + 3c + d) / 8.
	m := CubicLerp(a, b, c, d, 0.5)
	test.That(t, m.X, test.ShouldAlmostEqual, (1+9+15+6)/8.0)
	test.That(t, m.Y, test.ShouldAlmostEqual, (2+12+3+6)/8.0)
}

func TestRotationLerp(t *testing.T) {
	deg := math.Pi / 180
	test.That(t, RotationLerp(0, 90*deg, 0.5), test.ShouldAlmostEqual, 45*deg)
	// Takes the short way across the ±180° seam.
	test.That(t, RotationLerp(170*deg, -170*deg, 0.5), test.ShouldAlmostEqual, -180*deg)
	test.That(t, RotationLerp(-170*deg, 170*deg, 0.25), test.ShouldAlmostEqual, -175*deg)
}

func TestCosineInterpolate(t *testing.T) {
	deg := math.Pi / 180
	test.That(t, CosineInterpolate(0, 90*deg, 0), test.ShouldAlmostEqual, 0)
	test.That(t, CosineInterpolate(0, 90*deg, 1), test.ShouldAlmostEqual, 90*deg)
	test.That(t, CosineInterpolate(0, 90*deg, 0.5), test.ShouldAlmostEqual, 45*deg)
	// Eased: slower than linear near the start.
	test.That(t, CosineInterpolate(0, 90*deg, 0.25), test.ShouldBeLessThan, RotationLerp(0, 90*deg, 0.25))
	test.That(t, CosineInterpolate(0, 90*deg, 0.25), test.ShouldAlmostEqual, 90*deg*(1-math.Cos(math.Pi/4))/2)
}

func TestCalculateRadius(t *testing.T) {
	a := r2.Point{X: 1, Y: 0}
	b := r2.Point{X: 0, Y: 1}
	c := r2.Point{X: -1, Y: 0}

	// Counter-clockwise around the unit circle.
	test.That(t, CalculateRadius(a, b, c), test.ShouldAlmostEqual, 1)
	// Same circle the other way round.
	test.That(t, CalculateRadius(c, b, a), test.ShouldAlmostEqual, -1)

	big := CalculateRadius(r2.Point{X: 5}, r2.Point{Y: 5}, r2.Point{X: -5})
	test.That(t, big, test.ShouldAlmostEqual, 5)

	t.Run("degenerate", func(t *testing.T) {
		r := CalculateRadius(r2.Point{}, r2.Point{X: 1}, r2.Point{X: 2})
		test.That(t, math.IsInf(r, 0), test.ShouldBeTrue)

		r = CalculateRadius(r2.Point{X: 3, Y: 3}, r2.Point{X: 3, Y: 3}, r2.Point{X: 3, Y: 3})
		test.That(t, math.IsInf(r, 0), test.ShouldBeTrue)
		test.That(t, math.IsNaN(r), test.ShouldBeFalse)
	})
}
