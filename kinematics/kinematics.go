package kinematics

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/ppgo/pathplanner/spatialmath"
)

// Kinematics maps chassis speeds to module states for a drive with independently steered modules at
// fixed robot relative locations. A differential drive is modelled as two modules on the Y axis
// whose angle is either 0 or pi.
type Kinematics struct {
	locations []r2.Point
	// inverse is the 2n x 3 matrix taking [vx vy omega] to module velocity components.
	inverse *mat.Dense
	// forward is the least squares pseudo-inverse of inverse.
	forward *mat.Dense
	// force maps chassis forces and torque to per-module force vectors.
	force *mat.Dense
}

// New builds kinematics for modules at the given robot relative locations (meters).
func New(locations ...r2.Point) (*Kinematics, error) {
	if len(locations) < 2 {
		return nil, errors.Errorf("kinematics need at least 2 modules, got %d", len(locations))
	}
	n := len(locations)
	inverse := mat.NewDense(2*n, 3, nil)
	force := mat.NewDense(2*n, 3, nil)
	for i, loc := range locations {
		inverse.SetRow(2*i, []float64{1, 0, -loc.Y})
		inverse.SetRow(2*i+1, []float64{0, 1, loc.X})

		norm2 := loc.Dot(loc)
		if norm2 == 0 {
			return nil, errors.Errorf("module %d is at the robot center", i)
		}
		recip := loc.Mul(1 / norm2)
		force.SetRow(2*i, []float64{1, 0, -recip.Y})
		force.SetRow(2*i+1, []float64{0, 1, recip.X})
	}

	var ata mat.Dense
	ata.Mul(inverse.T(), inverse)
	var ataInv mat.Dense
	if err := ataInv.Inverse(&ata); err != nil {
		return nil, errors.Wrap(err, "module locations do not determine chassis motion")
	}
	var forward mat.Dense
	forward.Mul(&ataInv, inverse.T())

	locs := make([]r2.Point, n)
	copy(locs, locations)
	return &Kinematics{locations: locs, inverse: inverse, forward: &forward, force: force}, nil
}

// NewSwerve places four modules at the corners of a wheelbase x trackwidth rectangle in the order
// front left, front right, back left, back right.
func NewSwerve(trackwidth, wheelbase float64) (*Kinematics, error) {
	return New(SwerveLocations(trackwidth, wheelbase)...)
}

// NewDifferential places a left and right module trackwidth apart.
func NewDifferential(trackwidth float64) (*Kinematics, error) {
	return New(DifferentialLocations(trackwidth)...)
}

// SwerveLocations returns front left, front right, back left, back right module locations.
func SwerveLocations(trackwidth, wheelbase float64) []r2.Point {
	return []r2.Point{
		{X: wheelbase / 2, Y: trackwidth / 2},
		{X: wheelbase / 2, Y: -trackwidth / 2},
		{X: -wheelbase / 2, Y: trackwidth / 2},
		{X: -wheelbase / 2, Y: -trackwidth / 2},
	}
}

// DifferentialLocations returns left then right module locations.
func DifferentialLocations(trackwidth float64) []r2.Point {
	return []r2.Point{
		{X: 0, Y: trackwidth / 2},
		{X: 0, Y: -trackwidth / 2},
	}
}

// NumModules returns the number of modules.
func (k *Kinematics) NumModules() int {
	return len(k.locations)
}

// Locations returns a copy of the module locations.
func (k *Kinematics) Locations() []r2.Point {
	out := make([]r2.Point, len(k.locations))
	copy(out, k.locations)
	return out
}

// ToModuleStates converts robot relative chassis speeds to module states. Speeds are never
// negative; a module with no velocity reports angle 0.
func (k *Kinematics) ToModuleStates(speeds ChassisSpeeds) []ModuleState {
	var out mat.VecDense
	out.MulVec(k.inverse, mat.NewVecDense(3, []float64{speeds.Vx, speeds.Vy, speeds.Omega}))

	states := make([]ModuleState, len(k.locations))
	for i := range states {
		v := r2.Point{X: out.AtVec(2 * i), Y: out.AtVec(2*i + 1)}
		states[i] = ModuleState{Speed: v.Norm(), Angle: spatialmath.AngleOf(v)}
	}
	return states
}

// ToChassisSpeeds finds the robot relative chassis speeds that best fit the module states.
func (k *Kinematics) ToChassisSpeeds(states []ModuleState) ChassisSpeeds {
	n := len(k.locations)
	data := make([]float64, 2*n)
	for i := 0; i < n && i < len(states); i++ {
		data[2*i] = states[i].Speed * math.Cos(states[i].Angle)
		data[2*i+1] = states[i].Speed * math.Sin(states[i].Angle)
	}
	var out mat.VecDense
	out.MulVec(k.forward, mat.NewVecDense(2*n, data))
	return ChassisSpeeds{Vx: out.AtVec(0), Vy: out.AtVec(1), Omega: out.AtVec(2)}
}

// ChassisForcesToWheelForces splits a robot relative chassis force (X, Y in newtons, torque in N·m
// carried in the Omega slot) into a force vector per module.
func (k *Kinematics) ChassisForcesToWheelForces(forces ChassisSpeeds) []r2.Point {
	n := float64(len(k.locations))
	var out mat.VecDense
	out.MulVec(k.force, mat.NewVecDense(3, []float64{forces.Vx / n, forces.Vy / n, forces.Omega / n}))

	vecs := make([]r2.Point, len(k.locations))
	for i := range vecs {
		vecs[i] = r2.Point{X: out.AtVec(2 * i), Y: out.AtVec(2*i + 1)}
	}
	return vecs
}
