package spatialmath

import (
	"math"

	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/utils"
)

// FieldSymmetry describes how one alliance's side of the field maps onto the other.
type FieldSymmetry int

const (
	// Mirrored fields flip across the vertical center line.
	Mirrored FieldSymmetry = iota
	// Rotational fields rotate 180° about the field center.
	Rotational
)

// Field is the playing area that paths are flipped across.
type Field struct {
	SizeX    float64
	SizeY    float64
	Symmetry FieldSymmetry
}

// DefaultField is a 16.54 x 8.21 m mirrored field.
var DefaultField = Field{SizeX: 16.54175, SizeY: 8.211, Symmetry: Mirrored}

// FlipPoint maps a field position to the other side.
func (f Field) FlipPoint(p r2.Point) r2.Point {
	if f.Symmetry == Rotational {
		return r2.Point{X: f.SizeX - p.X, Y: f.SizeY - p.Y}
	}
	return r2.Point{X: f.SizeX - p.X, Y: p.Y}
}

// FlipRotation maps a field-relative rotation to the other side.
func (f Field) FlipRotation(rot float64) float64 {
	if f.Symmetry == Rotational {
		return utils.WrapAngle(rot - math.Pi)
	}
	return utils.WrapAngle(math.Pi - rot)
}

// FlipPose maps a pose to the other side.
func (f Field) FlipPose(p Pose) Pose {
	return Pose{Point: f.FlipPoint(p.Point), Rotation: f.FlipRotation(p.Rotation)}
}

// FlipVelocity maps a field-relative velocity (vx, vy, omega) to the other side.
func (f Field) FlipVelocity(vx, vy, omega float64) (float64, float64, float64) {
	if f.Symmetry == Rotational {
		return -vx, -vy, omega
	}
	return -vx, vy, -omega
}

// FlippedModuleIndex returns, for each module of the flipped robot, the index of the module it
// came from. Mirroring swaps left and right modules; rotation keeps the order.
func (f Field) FlippedModuleIndex(numModules int) []int {
	idx := make([]int, numModules)
	for i := range idx {
		idx[i] = i
	}
	if f.Symmetry == Rotational {
		return idx
	}
	switch numModules {
	case 4:
		idx[0], idx[1], idx[2], idx[3] = 1, 0, 3, 2
	case 2:
		idx[0], idx[1] = 1, 0
	}
	return idx
}

// FlipModuleOrder returns the per-module values reordered for the flipped robot.
func (f Field) FlipModuleOrder(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, from := range f.FlippedModuleIndex(len(values)) {
		out[i] = values[from]
	}
	return out
}
