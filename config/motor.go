package config

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// DCMotor is a linear model of a brushed or brushless DC motor (or a gearbox of identical motors).
type DCMotor struct {
	NominalVoltage float64 // volts
	StallTorque    float64 // N·m
	StallCurrent   float64 // A
	FreeCurrent    float64 // A
	FreeSpeed      float64 // rad/s

	// Winding resistance, velocity constant and torque constant derived from the above.
	R  float64
	Kv float64
	Kt float64
}

// NewDCMotor builds a motor model from datasheet values. numMotors identical motors on one shaft
// scale the torque and current figures.
func NewDCMotor(nominalVoltage, stallTorque, stallCurrent, freeCurrent, freeSpeed float64, numMotors int) DCMotor {
	n := float64(numMotors)
	m := DCMotor{
		NominalVoltage: nominalVoltage,
		StallTorque:    stallTorque * n,
		StallCurrent:   stallCurrent * n,
		FreeCurrent:    freeCurrent * n,
		FreeSpeed:      freeSpeed,
	}
	m.R = m.NominalVoltage / m.StallCurrent
	m.Kv = m.FreeSpeed / (m.NominalVoltage - m.R*m.FreeCurrent)
	m.Kt = m.StallTorque / m.StallCurrent
	return m
}

// Current is the current drawn at the given shaft speed (rad/s) and input voltage.
func (m DCMotor) Current(speed, inputVoltage float64) float64 {
	return -1.0/m.Kv/m.R*speed + 1.0/m.R*inputVoltage
}

// CurrentForTorque is the current needed to produce torque (N·m).
func (m DCMotor) CurrentForTorque(torque float64) float64 {
	return torque / m.Kt
}

// Torque produced at the given current.
func (m DCMotor) Torque(current float64) float64 {
	return current * m.Kt
}

// WithReduction returns the model seen through a gearbox with the given reduction (input/output).
func (m DCMotor) WithReduction(gearing float64) DCMotor {
	return NewDCMotor(m.NominalVoltage, m.StallTorque*gearing, m.StallCurrent, m.FreeCurrent, m.FreeSpeed/gearing, 1)
}

func rpmToRadPerSec(rpm float64) float64 {
	return rpm * 2 * math.Pi / 60
}

type motorSpec struct {
	stallTorque, stallCurrent, freeCurrent, freeSpeedRPM float64
}

var motorPresets = map[string]motorSpec{
	"krakenX60":    {7.09, 366, 2, 6000},
	"krakenX60FOC": {9.37, 483, 2, 5800},
	"falcon500":    {4.69, 257, 1.5, 6380},
	"falcon500FOC": {5.84, 304, 1.5, 6080},
	"neo":          {2.6, 105, 1.8, 5676},
	"neoVortex":    {3.6, 211, 3.6, 6784},
	"neo550":       {0.97, 100, 1.4, 11000},
	"cim":          {2.42, 133, 2.7, 5310},
}

// MotorTypes lists the motor preset names accepted by MotorPreset.
func MotorTypes() []string {
	names := make([]string, 0, len(motorPresets))
	for name := range motorPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MotorPreset returns the 12 V model of numMotors motors of the named type.
func MotorPreset(name string, numMotors int) (DCMotor, error) {
	spec, ok := motorPresets[name]
	if !ok {
		return DCMotor{}, errors.Errorf("unknown motor type %q", name)
	}
	if numMotors < 1 {
		return DCMotor{}, errors.Errorf("motor count must be positive, got %d", numMotors)
	}
	return NewDCMotor(12, spec.stallTorque, spec.stallCurrent, spec.freeCurrent, rpmToRadPerSec(spec.freeSpeedRPM), numMotors), nil
}
