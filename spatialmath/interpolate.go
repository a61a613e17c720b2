// Package spatialmath holds the 2D geometry used to sample and profile paths: interpolation,
// cubic Bezier evaluation, curvature and field poses.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/utils"
)

// Lerp linearly interpolates between a and b. t is not clamped.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// PointLerp linearly interpolates between two points.
func PointLerp(a, b r2.Point, t float64) r2.Point {
	return r2.Point{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// QuadraticLerp evaluates the quadratic Bezier curve a, b, c at t.
func QuadraticLerp(a, b, c r2.Point, t float64) r2.Point {
	p0 := PointLerp(a, b, t)
	p1 := PointLerp(b, c, t)
	return PointLerp(p0, p1, t)
}

// CubicLerp evaluates the cubic Bezier curve a, b, c, d at t using De Casteljau's algorithm.
func CubicLerp(a, b, c, d r2.Point, t float64) r2.Point {
	p0 := QuadraticLerp(a, b, c, t)
	p1 := QuadraticLerp(b, c, d, t)
	return PointLerp(p0, p1, t)
}

// RotationLerp interpolates between two angles in radians along the shortest arc. The result is
// wrapped into [-pi, pi).
func RotationLerp(a, b, t float64) float64 {
	return utils.WrapAngle(a + utils.WrapAngle(b-a)*t)
}

// CosineInterpolate blends two angles with a cosine-eased t so the angular velocity starts and
// ends at zero.
func CosineInterpolate(a, b, t float64) float64 {
	t2 := (1 - math.Cos(t*math.Pi)) / 2
	return RotationLerp(a, b, t2)
}

// CalculateRadius returns the signed radius of the circle through a, b and c. The sign is positive
// when the path a, b, c turns left. Collinear or coincident points return an infinite radius.
func CalculateRadius(a, b, c r2.Point) float64 {
	vba := a.Sub(b)
	vbc := c.Sub(b)
	crossZ := vba.Cross(vbc)

	sign := -1.0
	if crossZ < 0 {
		sign = 1.0
	}

	ab := a.Sub(b).Norm()
	bc := b.Sub(c).Norm()
	ac := a.Sub(c).Norm()

	p := (ab + bc + ac) / 2
	area := math.Sqrt(math.Abs(p * (p - ab) * (p - bc) * (p - ac)))
	if crossZ == 0 || area == 0 {
		return sign * math.Inf(1)
	}
	return sign * (ab * bc * ac) / (4 * area)
}
