package trajectory

import (
	"math"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/spatialmath"
	"github.com/ppgo/pathplanner/utils"
)

// WheelState is one drive module's speed and the feedforward to command on the way to the next
// state.
type WheelState struct {
	Speed float64 `json:"speed"` // m/s
	// Angle is robot relative.
	Angle        float64 `json:"angle"`
	Acceleration float64 `json:"acceleration"` // m/s²
	// Force is the part of the wheel force along the wheel's rolling direction.
	Force         float64 `json:"force"`
	ForceX        float64 `json:"forceX"`
	ForceY        float64 `json:"forceY"`
	TorqueCurrent float64 `json:"torqueCurrent"` // A
}

func (w WheelState) interpolate(end WheelState, t float64) WheelState {
	return WheelState{
		Speed:         spatialmath.Lerp(w.Speed, end.Speed, t),
		Angle:         spatialmath.RotationLerp(w.Angle, end.Angle, t),
		Acceleration:  spatialmath.Lerp(w.Acceleration, end.Acceleration, t),
		Force:         spatialmath.Lerp(w.Force, end.Force, t),
		ForceX:        spatialmath.Lerp(w.ForceX, end.ForceX, t),
		ForceY:        spatialmath.Lerp(w.ForceY, end.ForceY, t),
		TorqueCurrent: spatialmath.Lerp(w.TorqueCurrent, end.TorqueCurrent, t),
	}
}

func (w WheelState) reverse() WheelState {
	return WheelState{
		Speed:         -w.Speed,
		Angle:         w.Angle,
		Acceleration:  -w.Acceleration,
		Force:         -w.Force,
		ForceX:        -w.ForceX,
		ForceY:        -w.ForceY,
		TorqueCurrent: -w.TorqueCurrent,
	}
}

// State is the robot's target at one instant of a trajectory.
type State struct {
	Time           float64                  `json:"time"`
	Pose           spatialmath.Pose         `json:"pose"`
	FieldSpeeds    kinematics.ChassisSpeeds `json:"fieldSpeeds"`
	LinearVelocity float64                  `json:"linearVelocity"`
	Wheels         []WheelState             `json:"wheels"`

	// Heading is the field relative direction of travel.
	Heading             float64 `json:"heading"`
	DistanceAlongPath   float64 `json:"distanceAlongPath"`
	WaypointRelativePos float64 `json:"waypointRelativePos"`
}

// Interpolate blends s toward end. Interpolation is symmetric: s.Interpolate(end, t) matches
// end.Interpolate(s, 1-t).
func (s State) Interpolate(end State, t float64) State {
	time := spatialmath.Lerp(s.Time, end.Time, t)
	if time-s.Time < 0 {
		return end.Interpolate(s, 1-t)
	}

	out := State{
		Time: time,
		Pose: spatialmath.Pose{
			Point:    spatialmath.PointLerp(s.Pose.Point, end.Pose.Point, t),
			Rotation: spatialmath.RotationLerp(s.Pose.Rotation, end.Pose.Rotation, t),
		},
		FieldSpeeds:         s.FieldSpeeds.Interpolate(end.FieldSpeeds, t),
		LinearVelocity:      spatialmath.Lerp(s.LinearVelocity, end.LinearVelocity, t),
		Heading:             spatialmath.RotationLerp(s.Heading, end.Heading, t),
		DistanceAlongPath:   spatialmath.Lerp(s.DistanceAlongPath, end.DistanceAlongPath, t),
		WaypointRelativePos: spatialmath.Lerp(s.WaypointRelativePos, end.WaypointRelativePos, t),
	}
	out.Wheels = make([]WheelState, len(s.Wheels))
	for i := range s.Wheels {
		if i < len(end.Wheels) {
			out.Wheels[i] = s.Wheels[i].interpolate(end.Wheels[i], t)
		} else {
			out.Wheels[i] = s.Wheels[i]
		}
	}
	return out
}

// Reverse returns the state a differential drive follows when driving the path backwards. Reversing
// twice gives back the original state.
func (s State) Reverse() State {
	out := s
	out.FieldSpeeds = kinematics.ChassisSpeeds{Vx: -s.FieldSpeeds.Vx, Vy: -s.FieldSpeeds.Vy, Omega: s.FieldSpeeds.Omega}
	out.Pose.Rotation = utils.WrapAngle(s.Pose.Rotation + math.Pi)
	out.LinearVelocity = -s.LinearVelocity
	out.Wheels = make([]WheelState, len(s.Wheels))
	for i, w := range s.Wheels {
		out.Wheels[i] = w.reverse()
	}
	return out
}

// Flip returns the state as seen from the other side of field.
func (s State) Flip(field spatialmath.Field) State {
	out := s
	out.Pose = field.FlipPose(s.Pose)
	out.Heading = field.FlipRotation(s.Heading)
	vx, vy, omega := field.FlipVelocity(s.FieldSpeeds.Vx, s.FieldSpeeds.Vy, s.FieldSpeeds.Omega)
	out.FieldSpeeds = kinematics.ChassisSpeeds{Vx: vx, Vy: vy, Omega: omega}
	out.Wheels = make([]WheelState, len(s.Wheels))
	for i, from := range field.FlippedModuleIndex(len(s.Wheels)) {
		out.Wheels[i] = s.Wheels[from]
	}
	return out
}

// RobotRelativeSpeeds are the state's field speeds in the robot's frame.
func (s State) RobotRelativeSpeeds() kinematics.ChassisSpeeds {
	return kinematics.FromFieldRelative(s.FieldSpeeds, s.Pose.Rotation)
}
