// Package kinematics converts between chassis motion and per-module wheel motion.
package kinematics

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/spatialmath"
)

// ChassisSpeeds is a chassis velocity in m/s (Vx, Vy) and rad/s (Omega). Whether it is field or robot
// relative depends on the caller.
type ChassisSpeeds struct {
	Vx    float64 `json:"vx"`
	Vy    float64 `json:"vy"`
	Omega float64 `json:"omega"`
}

func (c ChassisSpeeds) String() string {
	return fmt.Sprintf("vx=%.3f vy=%.3f omega=%.3f", c.Vx, c.Vy, c.Omega)
}

// Translation returns the linear part of the speeds as a vector.
func (c ChassisSpeeds) Translation() r2.Point {
	return r2.Point{X: c.Vx, Y: c.Vy}
}

// LinearVelocity is the magnitude of the translational velocity.
func (c ChassisSpeeds) LinearVelocity() float64 {
	return math.Hypot(c.Vx, c.Vy)
}

// Plus adds two speeds component-wise.
func (c ChassisSpeeds) Plus(o ChassisSpeeds) ChassisSpeeds {
	return ChassisSpeeds{Vx: c.Vx + o.Vx, Vy: c.Vy + o.Vy, Omega: c.Omega + o.Omega}
}

// Minus subtracts o component-wise.
func (c ChassisSpeeds) Minus(o ChassisSpeeds) ChassisSpeeds {
	return ChassisSpeeds{Vx: c.Vx - o.Vx, Vy: c.Vy - o.Vy, Omega: c.Omega - o.Omega}
}

// Times scales every component.
func (c ChassisSpeeds) Times(s float64) ChassisSpeeds {
	return ChassisSpeeds{Vx: c.Vx * s, Vy: c.Vy * s, Omega: c.Omega * s}
}

// Interpolate linearly blends each component toward end.
func (c ChassisSpeeds) Interpolate(end ChassisSpeeds, t float64) ChassisSpeeds {
	return ChassisSpeeds{
		Vx:    spatialmath.Lerp(c.Vx, end.Vx, t),
		Vy:    spatialmath.Lerp(c.Vy, end.Vy, t),
		Omega: spatialmath.Lerp(c.Omega, end.Omega, t),
	}
}

// FromFieldRelative converts field relative speeds to robot relative speeds for a robot facing
// robotRotation.
func FromFieldRelative(speeds ChassisSpeeds, robotRotation float64) ChassisSpeeds {
	v := spatialmath.RotateBy(speeds.Translation(), -robotRotation)
	return ChassisSpeeds{Vx: v.X, Vy: v.Y, Omega: speeds.Omega}
}

// FromRobotRelative converts robot relative speeds to field relative speeds.
func FromRobotRelative(speeds ChassisSpeeds, robotRotation float64) ChassisSpeeds {
	v := spatialmath.RotateBy(speeds.Translation(), robotRotation)
	return ChassisSpeeds{Vx: v.X, Vy: v.Y, Omega: speeds.Omega}
}

// ModuleState is the speed (m/s) and robot relative angle (rad) of one drive module.
type ModuleState struct {
	Speed float64
	Angle float64
}
