package utils

import (
	"math"
)

// DegToRad converts degrees to radians.
func DegToRad(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(radians float64) float64 {
	return radians * 180 / math.Pi
}

// AngleDiffDeg returns the closest difference from the two given
// angles. The arguments are commutative.
func AngleDiffDeg(a1, a2 float64) float64 {
	return float64(180) - math.Abs(math.Abs(a1-a2)-float64(180))
}

// InputModulus wraps input into the range [minimumInput, maximumInput).
func InputModulus(input, minimumInput, maximumInput float64) float64 {
	modulus := maximumInput - minimumInput
	r := math.Mod(input-minimumInput, modulus)
	if r < 0 {
		r += modulus
	}
	return r + minimumInput
}

// WrapAngle wraps an angle in radians into [-pi, pi).
func WrapAngle(rad float64) float64 {
	return InputModulus(rad, -math.Pi, math.Pi)
}

// Clamp returns x bounded to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Float64AlmostEqual compares two float64s and returns if the difference between them is less
// than epsilon.
func Float64AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}

// IsFinite reports whether x is neither NaN nor an infinity.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FiniteOr returns x if it is finite, else fallback.
func FiniteOr(x, fallback float64) float64 {
	if IsFinite(x) {
		return x
	}
	return fallback
}

// Square is faster than math.Pow(n, 2).
func Square(n float64) float64 {
	return n * n
}
