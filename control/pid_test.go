package control

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/ppgo/pathplanner/kinematics"
)

func TestPIDController(t *testing.T) {
	_, err := NewPIDController(1, 0, 0, 0)
	test.That(t, err, test.ShouldNotBeNil)

	t.Run("proportional", func(t *testing.T) {
		pid, err := NewPIDController(2, 0, 0, DefaultPeriod)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pid.Calculate(1, 1.5), test.ShouldAlmostEqual, 1)
		test.That(t, pid.Error(), test.ShouldAlmostEqual, 0.5)
	})

	t.Run("continuous input takes the short way", func(t *testing.T) {
		pid, err := NewPIDController(1, 0, 0, DefaultPeriod)
		test.That(t, err, test.ShouldBeNil)
		pid.EnableContinuousInput(-math.Pi, math.Pi)
		test.That(t, pid.Calculate(math.Pi-0.1, -math.Pi+0.1), test.ShouldAlmostEqual, 0.2)
		test.That(t, pid.Calculate(-math.Pi+0.1, math.Pi-0.1), test.ShouldAlmostEqual, -0.2)
	})

	t.Run("integral and derivative", func(t *testing.T) {
		pid, err := NewPIDController(0, 1, 0, 0.5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pid.Calculate(0, 0.5), test.ShouldAlmostEqual, 0.25)
		test.That(t, pid.Calculate(0, 0.5), test.ShouldAlmostEqual, 0.5)
		// The integrator saturates at its range.
		for i := 0; i < 10; i++ {
			pid.Calculate(0, 0.5)
		}
		test.That(t, pid.Calculate(0, 0.5), test.ShouldAlmostEqual, 1)

		pid, err = NewPIDController(0, 0, 1, 0.5)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, pid.Calculate(0, 0.5), test.ShouldEqual, 0.0)
		test.That(t, pid.Calculate(0, 0.3), test.ShouldAlmostEqual, -0.4)
		pid.Reset()
		test.That(t, pid.Calculate(0, 0.3), test.ShouldEqual, 0.0)
	})
}

func TestChassisSpeedsRateLimiter(t *testing.T) {
	clk := clock.NewMock()
	limiter := NewChassisSpeedsRateLimiter(2, 1, kinematics.ChassisSpeeds{}, clk)

	clk.Add(500 * time.Millisecond)
	out := limiter.Calculate(kinematics.ChassisSpeeds{Vx: 4, Omega: 3})
	test.That(t, out.Vx, test.ShouldAlmostEqual, 1)
	test.That(t, out.Vy, test.ShouldAlmostEqual, 0)
	test.That(t, out.Omega, test.ShouldAlmostEqual, 0.5)

	clk.Add(500 * time.Millisecond)
	out = limiter.Calculate(kinematics.ChassisSpeeds{Vx: 4, Omega: 3})
	test.That(t, out.Vx, test.ShouldAlmostEqual, 2)
	test.That(t, out.Omega, test.ShouldAlmostEqual, 1)
	test.That(t, limiter.Last(), test.ShouldResemble, out)

	t.Run("limits the vector, not each axis", func(t *testing.T) {
		limiter.Reset(kinematics.ChassisSpeeds{})
		clk.Add(500 * time.Millisecond)
		out := limiter.Calculate(kinematics.ChassisSpeeds{Vx: 3, Vy: 4})
		test.That(t, out.Vx, test.ShouldAlmostEqual, 0.6)
		test.That(t, out.Vy, test.ShouldAlmostEqual, 0.8)
	})

	t.Run("small changes pass through", func(t *testing.T) {
		limiter.Reset(kinematics.ChassisSpeeds{Vx: 1})
		limiter.SetRateLimits(10, 10)
		clk.Add(time.Second)
		out := limiter.Calculate(kinematics.ChassisSpeeds{Vx: 2, Vy: 1, Omega: -1})
		test.That(t, out, test.ShouldResemble, kinematics.ChassisSpeeds{Vx: 2, Vy: 1, Omega: -1})
	})

	t.Run("no time passed", func(t *testing.T) {
		limiter.Reset(kinematics.ChassisSpeeds{Vx: 1})
		out := limiter.Calculate(kinematics.ChassisSpeeds{Vx: 3})
		test.That(t, out.Vx, test.ShouldAlmostEqual, 1)
	})
}
