// Package config describes the drivetrain a trajectory is generated for and loads it from robot
// settings files.
package config

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/kinematics"
)

const gravity = 9.8

// ModuleConfig describes one drive module.
type ModuleConfig struct {
	WheelRadius       float64 // m
	MaxDriveVelocity  float64 // m/s at the wheel surface
	WheelCOF          float64
	DriveMotor        DCMotor // already geared down to the wheel
	DriveCurrentLimit float64 // A for all motors on the module

	MaxDriveVelocityRadPerSec float64
	// TorqueLoss is the torque lost to friction in the module, estimated from the current drawn
	// at top speed.
	TorqueLoss float64
}

// NewModuleConfig derives the module's top wheel speed and friction losses.
func NewModuleConfig(wheelRadius, maxDriveVelocity, wheelCOF float64, driveMotor DCMotor, driveCurrentLimit float64) ModuleConfig {
	mc := ModuleConfig{
		WheelRadius:       wheelRadius,
		MaxDriveVelocity:  maxDriveVelocity,
		WheelCOF:          wheelCOF,
		DriveMotor:        driveMotor,
		DriveCurrentLimit: driveCurrentLimit,
	}
	mc.MaxDriveVelocityRadPerSec = maxDriveVelocity / wheelRadius
	mc.TorqueLoss = driveMotor.Torque(math.Min(driveMotor.Current(mc.MaxDriveVelocityRadPerSec, 12), driveCurrentLimit))
	return mc
}

// RobotConfig is everything trajectory generation needs to know about the drivetrain.
type RobotConfig struct {
	Mass       float64 // kg
	MOI        float64 // kg·m²
	Module     ModuleConfig
	Holonomic  bool
	Kinematics *kinematics.Kinematics

	// ModuleLocations are robot relative, in the kinematics order.
	ModuleLocations     []r2.Point
	ModulePivotDistance []float64
	// WheelFrictionForce is the most force one wheel can put into the carpet.
	WheelFrictionForce float64
	MaxTorqueFriction  float64
}

// NewSwerveConfig builds a holonomic four module configuration.
func NewSwerveConfig(mass, moi float64, module ModuleConfig, trackwidth, wheelbase float64) (*RobotConfig, error) {
	return newRobotConfig(mass, moi, module, kinematics.SwerveLocations(trackwidth, wheelbase), true)
}

// NewDifferentialConfig builds a two sided tank drive configuration.
func NewDifferentialConfig(mass, moi float64, module ModuleConfig, trackwidth float64) (*RobotConfig, error) {
	return newRobotConfig(mass, moi, module, kinematics.DifferentialLocations(trackwidth), false)
}

func newRobotConfig(mass, moi float64, module ModuleConfig, locations []r2.Point, holonomic bool) (*RobotConfig, error) {
	if mass <= 0 || moi <= 0 {
		return nil, errors.Errorf("mass and moment of inertia must be positive, got %v and %v", mass, moi)
	}
	if module.WheelRadius <= 0 {
		return nil, errors.Errorf("wheel radius must be positive, got %v", module.WheelRadius)
	}
	kin, err := kinematics.New(locations...)
	if err != nil {
		return nil, err
	}
	cfg := &RobotConfig{
		Mass:            mass,
		MOI:             moi,
		Module:          module,
		Holonomic:       holonomic,
		Kinematics:      kin,
		ModuleLocations: kin.Locations(),
	}
	cfg.ModulePivotDistance = make([]float64, len(locations))
	for i, loc := range locations {
		cfg.ModulePivotDistance[i] = loc.Norm()
	}
	cfg.WheelFrictionForce = module.WheelCOF * (mass / float64(len(locations))) * gravity
	cfg.MaxTorqueFriction = cfg.WheelFrictionForce * module.WheelRadius
	return cfg, nil
}

// NumModules is the number of drive modules.
func (c *RobotConfig) NumModules() int {
	return len(c.ModuleLocations)
}

// ToModuleStates converts robot relative speeds to module states.
func (c *RobotConfig) ToModuleStates(speeds kinematics.ChassisSpeeds) []kinematics.ModuleState {
	return c.Kinematics.ToModuleStates(speeds)
}

// ToChassisSpeeds converts module states to robot relative speeds.
func (c *RobotConfig) ToChassisSpeeds(states []kinematics.ModuleState) kinematics.ChassisSpeeds {
	return c.Kinematics.ToChassisSpeeds(states)
}

// ChassisForcesToWheelForces splits robot relative chassis forces into per-module force vectors.
func (c *RobotConfig) ChassisForcesToWheelForces(forces kinematics.ChassisSpeeds) []r2.Point {
	return c.Kinematics.ChassisForcesToWheelForces(forces)
}
