package path

import (
	"math"

	"github.com/golang/geo/r2"
)

// PathConstraints are the kinematic limits applied to a stretch of path. Angular values are in
// radians.
//
//nolint:revive
type PathConstraints struct {
	MaxVelocity            float64 `json:"maxVelocity"`
	MaxAcceleration        float64 `json:"maxAcceleration"`
	MaxAngularVelocity     float64 `json:"maxAngularVelocity"`
	MaxAngularAcceleration float64 `json:"maxAngularAcceleration"`
	NominalVoltage         float64 `json:"nominalVoltage"`
	// Unlimited replaces every limit above with +Inf.
	Unlimited bool `json:"unlimited"`
}

// DefaultNominalVoltage is used when constraints leave the nominal voltage unset.
const DefaultNominalVoltage = 12.0

// UnlimitedConstraints returns constraints with no kinematic limits.
func UnlimitedConstraints(nominalVoltage float64) PathConstraints {
	return PathConstraints{NominalVoltage: nominalVoltage, Unlimited: true}
}

// Resolved returns the constraints with Unlimited expanded to +Inf limits and a defaulted nominal
// voltage.
func (c PathConstraints) Resolved() PathConstraints {
	out := c
	if c.Unlimited {
		inf := math.Inf(1)
		out.MaxVelocity, out.MaxAcceleration = inf, inf
		out.MaxAngularVelocity, out.MaxAngularAcceleration = inf, inf
	}
	if out.NominalVoltage <= 0 {
		out.NominalVoltage = DefaultNominalVoltage
	}
	return out
}

// GoalEndState is the state the robot should be in at the end of the path.
type GoalEndState struct {
	Velocity   float64 `json:"velocity"`
	Rotation   float64 `json:"rotation"`
	RotateFast bool    `json:"rotateFast"`
}

// RotationTarget asks a holonomic robot to face Rotation once it reaches Position along the path.
type RotationTarget struct {
	// Position is waypoint relative: 1.5 is halfway between the second and third waypoints.
	Position float64 `json:"waypointRelativePos"`
	Rotation float64 `json:"rotation"`
	// RotateFast turns toward the target as fast as possible instead of blending toward it.
	RotateFast bool `json:"rotateFast"`
}

func (t RotationTarget) forSegmentIndex(segmentIndex int) RotationTarget {
	t.Position -= float64(segmentIndex)
	return t
}

// ConstraintsZone overrides the global constraints between two waypoint relative positions.
type ConstraintsZone struct {
	MinPos      float64         `json:"minWaypointRelativePos"`
	MaxPos      float64         `json:"maxWaypointRelativePos"`
	Constraints PathConstraints `json:"constraints"`
}

// Contains reports whether t falls inside the zone, inclusive.
func (z ConstraintsZone) Contains(t float64) bool {
	return z.MinPos <= t && t <= z.MaxPos
}

// Overlaps reports whether the zone shares any part of [minPos, maxPos].
func (z ConstraintsZone) Overlaps(minPos, maxPos float64) bool {
	return math.Max(minPos, z.MinPos) <= math.Min(maxPos, z.MaxPos)
}

func (z ConstraintsZone) forSegmentIndex(segmentIndex int) ConstraintsZone {
	z.MinPos -= float64(segmentIndex)
	z.MaxPos -= float64(segmentIndex)
	return z
}

// Waypoint is an anchor on the path plus the Bezier control points on either side of it. The first
// waypoint has no previous control and the last has no next control.
type Waypoint struct {
	PrevControl *r2.Point `json:"prevControl"`
	Anchor      r2.Point  `json:"anchor"`
	NextControl *r2.Point `json:"nextControl"`
}
