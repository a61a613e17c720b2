// Package control holds the closed loop pieces used to follow a path without a time profile: a PID
// loop, a chassis speed rate limiter and the pure pursuit controller.
package control

import (
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/utils"
)

// DefaultPeriod is the control loop period, in seconds, assumed by PID loops and the decel lock.
const DefaultPeriod = 0.02

// PIDController is a discrete PID loop run at a fixed period. The zero value is not usable; build
// one with NewPIDController.
type PIDController struct {
	Kp float64
	Ki float64
	Kd float64

	period float64

	continuous bool
	minInput   float64
	maxInput   float64

	integratorMin float64
	integratorMax float64

	err            float64
	totalErr       float64
	hasMeasurement bool
}

// NewPIDController returns a PID loop with the given gains run every period seconds.
func NewPIDController(kp, ki, kd, period float64) (PIDController, error) {
	if period <= 0 {
		return PIDController{}, errors.Errorf("pid period must be positive, got %v", period)
	}
	return PIDController{
		Kp:            kp,
		Ki:            ki,
		Kd:            kd,
		period:        period,
		integratorMin: -1,
		integratorMax: 1,
	}, nil
}

// EnableContinuousInput treats minInput and maxInput as the same point, so the loop always takes
// the short way around. Used for angles.
func (c *PIDController) EnableContinuousInput(minInput, maxInput float64) {
	c.continuous = true
	c.minInput = minInput
	c.maxInput = maxInput
}

// SetIntegratorRange bounds the integral term's contribution to the output.
func (c *PIDController) SetIntegratorRange(minOutput, maxOutput float64) {
	c.integratorMin = minOutput
	c.integratorMax = maxOutput
}

// Calculate returns the next output for measurement tracking setpoint.
func (c *PIDController) Calculate(measurement, setpoint float64) float64 {
	prevErr := c.err
	c.err = setpoint - measurement
	if c.continuous {
		bound := (c.maxInput - c.minInput) / 2
		c.err = utils.InputModulus(c.err, -bound, bound)
	}

	var derivative float64
	if c.hasMeasurement {
		derivative = (c.err - prevErr) / c.period
	}
	c.hasMeasurement = true

	if c.Ki != 0 {
		c.totalErr = utils.Clamp(c.totalErr+c.err*c.period, c.integratorMin/c.Ki, c.integratorMax/c.Ki)
	}
	return c.Kp*c.err + c.Ki*c.totalErr + c.Kd*derivative
}

// Error is the error seen by the last Calculate.
func (c *PIDController) Error() float64 {
	return c.err
}

// Reset clears the accumulated error.
func (c *PIDController) Reset() {
	c.err = 0
	c.totalErr = 0
	c.hasMeasurement = false
}
