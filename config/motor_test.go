package config

import (
	"math"
	"testing"

	"go.viam.com/test"
)

func TestDCMotor(t *testing.T) {
	m, err := MotorPreset("krakenX60", 1)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, m.NominalVoltage, test.ShouldEqual, 12.0)
	test.That(t, m.FreeSpeed, test.ShouldAlmostEqual, 6000*2*math.Pi/60)
	test.That(t, m.R, test.ShouldAlmostEqual, 12.0/366)
	test.That(t, m.Kt, test.ShouldAlmostEqual, 7.09/366)

	// Stalled draws the stall current, free spinning draws the free current.
	test.That(t, m.Current(0, 12), test.ShouldAlmostEqual, 366, 1e-9)
	test.That(t, m.Current(m.FreeSpeed, 12), test.ShouldAlmostEqual, 2, 1e-9)
	test.That(t, m.Torque(366), test.ShouldAlmostEqual, 7.09)
	test.That(t, m.CurrentForTorque(m.Torque(40)), test.ShouldAlmostEqual, 40)

	t.Run("reduction", func(t *testing.T) {
		geared := m.WithReduction(5)
		test.That(t, geared.StallTorque, test.ShouldAlmostEqual, 7.09*5)
		test.That(t, geared.FreeSpeed, test.ShouldAlmostEqual, m.FreeSpeed/5)
		test.That(t, geared.Current(geared.FreeSpeed, 12), test.ShouldAlmostEqual, 2, 1e-9)
	})

	t.Run("multiple motors", func(t *testing.T) {
		two, err := MotorPreset("krakenX60", 2)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, two.StallTorque, test.ShouldAlmostEqual, 2*7.09)
		test.That(t, two.StallCurrent, test.ShouldAlmostEqual, 2*366)
		test.That(t, two.Kt, test.ShouldAlmostEqual, m.Kt)
	})

	t.Run("presets", func(t *testing.T) {
		for _, name := range MotorTypes() {
			motor, err := MotorPreset(name, 1)
			test.That(t, err, test.ShouldBeNil)
			test.That(t, motor.Kv, test.ShouldBeGreaterThan, 0)
			test.That(t, motor.Kt, test.ShouldBeGreaterThan, 0)
		}
		_, err := MotorPreset("flux capacitor", 1)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "unknown motor")
		_, err = MotorPreset("neo", 0)
		test.That(t, err, test.ShouldNotBeNil)
	})
}
