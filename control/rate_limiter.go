package control

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/utils"
)

// ChassisSpeedsRateLimiter limits how fast commanded chassis speeds change: the translation vector
// by its magnitude and the angular velocity on its own.
type ChassisSpeedsRateLimiter struct {
	translationLimit float64 // m/s²
	rotationLimit    float64 // rad/s²

	prev     kinematics.ChassisSpeeds
	prevTime time.Time
	clock    clock.Clock
}

// NewChassisSpeedsRateLimiter starts a limiter at initial. A nil clk uses the wall clock.
func NewChassisSpeedsRateLimiter(
	translationLimit, rotationLimit float64,
	initial kinematics.ChassisSpeeds,
	clk clock.Clock,
) ChassisSpeedsRateLimiter {
	if clk == nil {
		clk = clock.New()
	}
	l := ChassisSpeedsRateLimiter{translationLimit: translationLimit, rotationLimit: rotationLimit, clock: clk}
	l.Reset(initial)
	return l
}

// Reset jumps to speeds without limiting.
func (l *ChassisSpeedsRateLimiter) Reset(speeds kinematics.ChassisSpeeds) {
	l.prev = speeds
	l.prevTime = l.clock.Now()
}

// SetRateLimits changes the limits used from the next Calculate on.
func (l *ChassisSpeedsRateLimiter) SetRateLimits(translationLimit, rotationLimit float64) {
	l.translationLimit = translationLimit
	l.rotationLimit = rotationLimit
}

// Calculate moves from the last output toward input as far as the limits allow in the time
// elapsed since the last call.
func (l *ChassisSpeedsRateLimiter) Calculate(input kinematics.ChassisSpeeds) kinematics.ChassisSpeeds {
	now := l.clock.Now()
	elapsed := now.Sub(l.prevTime).Seconds()
	l.prevTime = now

	maxRot := l.rotationLimit * elapsed
	l.prev.Omega += utils.Clamp(input.Omega-l.prev.Omega, -maxRot, maxRot)

	prevVel := l.prev.Translation()
	delta := input.Translation().Sub(prevVel)
	next := input.Translation()
	if maxDelta := l.translationLimit * elapsed; delta.Norm() > maxDelta {
		next = prevVel.Add(delta.Normalize().Mul(maxDelta))
	}
	l.prev.Vx, l.prev.Vy = next.X, next.Y
	return l.prev
}

// Last is the most recent output.
func (l *ChassisSpeedsRateLimiter) Last() kinematics.ChassisSpeeds {
	return l.prev
}
