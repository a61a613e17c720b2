package config

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/ppgo/pathplanner/spatialmath"
)

// Settings is the on-disk robot description shared by the path tools.
type Settings struct {
	RobotMass      float64 `json:"robotMass" jsonschema:"description=robot mass including bumpers and battery (kg)"`
	RobotMOI       float64 `json:"robotMOI" jsonschema:"description=moment of inertia about the vertical axis (kg·m²)"`
	HolonomicMode  bool    `json:"holonomicMode"`
	Trackwidth     float64 `json:"robotTrackwidth" jsonschema:"description=distance between left and right wheels (m)"`
	Wheelbase      float64 `json:"robotWheelbase,omitempty" jsonschema:"description=distance between front and back wheels (m); swerve only"`
	WheelRadius    float64 `json:"driveWheelRadius"`
	DriveGearing   float64 `json:"driveGearing"`
	MaxDriveSpeed  float64 `json:"maxDriveSpeed" jsonschema:"description=top wheel speed (m/s)"`
	DriveMotorType string  `json:"driveMotorType"`
	NumDriveMotors int     `json:"numDriveMotors,omitempty" jsonschema:"description=motors per module; defaults to 1"`
	CurrentLimit   float64 `json:"driveCurrentLimit" jsonschema:"description=current limit per motor (A)"`
	WheelCOF       float64 `json:"wheelCOF"`

	DefaultMaxVel           float64 `json:"defaultMaxVel"`
	DefaultMaxAccel         float64 `json:"defaultMaxAccel"`
	DefaultMaxAngVel        float64 `json:"defaultMaxAngVel" jsonschema:"description=deg/s"`
	DefaultMaxAngAccel      float64 `json:"defaultMaxAngAccel" jsonschema:"description=deg/s²"`
	DefaultNominalVoltage   float64 `json:"defaultNominalVoltage,omitempty"`
	FieldSizeX              float64 `json:"fieldSizeX,omitempty"`
	FieldSizeY              float64 `json:"fieldSizeY,omitempty"`
	RotationalFieldSymmetry bool    `json:"rotationalFieldSymmetry,omitempty"`
}

// Validate ensures all parts of the settings are usable.
func (s *Settings) Validate(path string) error {
	var errs error
	positive := map[string]float64{
		"robotMass":         s.RobotMass,
		"robotMOI":          s.RobotMOI,
		"robotTrackwidth":   s.Trackwidth,
		"driveWheelRadius":  s.WheelRadius,
		"driveGearing":      s.DriveGearing,
		"maxDriveSpeed":     s.MaxDriveSpeed,
		"driveCurrentLimit": s.CurrentLimit,
		"wheelCOF":          s.WheelCOF,
	}
	fields := lo.Keys(positive)
	sort.Strings(fields)
	for _, field := range fields {
		if positive[field] <= 0 {
			errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, field))
		}
	}
	if s.HolonomicMode && s.Wheelbase <= 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "robotWheelbase"))
	}
	if s.DriveMotorType == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError(path, "driveMotorType"))
	} else if _, ok := motorPresets[s.DriveMotorType]; !ok {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("unknown driveMotorType %q, expected one of %v", s.DriveMotorType, MotorTypes())))
	}
	if s.NumDriveMotors < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError(path,
			fmt.Errorf("numDriveMotors must not be negative, got %d", s.NumDriveMotors)))
	}
	return errs
}

// RobotConfig builds the drivetrain model the settings describe.
func (s *Settings) RobotConfig() (*RobotConfig, error) {
	numMotors := s.NumDriveMotors
	if numMotors == 0 {
		numMotors = 1
	}
	motor, err := MotorPreset(s.DriveMotorType, numMotors)
	if err != nil {
		return nil, err
	}
	module := NewModuleConfig(s.WheelRadius, s.MaxDriveSpeed, s.WheelCOF,
		motor.WithReduction(s.DriveGearing), s.CurrentLimit*float64(numMotors))
	if s.HolonomicMode {
		return NewSwerveConfig(s.RobotMass, s.RobotMOI, module, s.Trackwidth, s.Wheelbase)
	}
	return NewDifferentialConfig(s.RobotMass, s.RobotMOI, module, s.Trackwidth)
}

// NominalVoltage is the configured nominal voltage, 12 V when unset.
func (s *Settings) NominalVoltage() float64 {
	if s.DefaultNominalVoltage <= 0 {
		return 12
	}
	return s.DefaultNominalVoltage
}

// Field is the playing field the settings describe, DefaultField when unset.
func (s *Settings) Field() spatialmath.Field {
	f := spatialmath.DefaultField
	if s.FieldSizeX > 0 && s.FieldSizeY > 0 {
		f.SizeX, f.SizeY = s.FieldSizeX, s.FieldSizeY
	}
	if s.RotationalFieldSymmetry {
		f.Symmetry = spatialmath.Rotational
	}
	return f
}
