package control

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"go.viam.com/test"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
)

var testConstraints = path.PathConstraints{
	MaxVelocity:            4,
	MaxAcceleration:        5,
	MaxAngularVelocity:     2 * math.Pi,
	MaxAngularAcceleration: 4 * math.Pi,
}

func straightPath(t *testing.T, goal path.GoalEndState, opts path.Options) *path.Path {
	t.Helper()
	p, err := path.New([]r2.Point{{X: 0}, {X: 1}, {X: 4}, {X: 5}}, testConstraints, goal, opts)
	test.That(t, err, test.ShouldBeNil)
	return p
}

func pose(x, y, rot float64) spatialmath.Pose {
	return spatialmath.NewPose(x, y, rot)
}

func TestNewPurePursuit(t *testing.T) {
	_, err := NewPurePursuit(nil, true, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pp.Path().NumPoints(), test.ShouldEqual, 21)
}

func TestLookaheadDistance(t *testing.T) {
	test.That(t, LookaheadDistance(0, testConstraints), test.ShouldEqual, minLookahead)
	test.That(t, LookaheadDistance(3, testConstraints), test.ShouldAlmostEqual, 1.5)
	test.That(t, LookaheadDistance(3, path.UnlimitedConstraints(12)), test.ShouldEqual, minLookahead)
	test.That(t, LookaheadDistance(0, path.UnlimitedConstraints(12)), test.ShouldEqual, minLookahead)
}

func TestPurePursuitStep(t *testing.T) {
	clk := clock.NewMock()
	logger, logs := logging.NewObservedTestLogger(t)

	t.Run("starts along the path under the rate limit", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		start := pp.Reset(pose(0, 0, 0), kinematics.ChassisSpeeds{})
		_, ok := start.Lookahead()
		test.That(t, ok, test.ShouldBeFalse)

		clk.Add(20 * time.Millisecond)
		cmd, next := pp.Step(start, pose(0, 0, 0), kinematics.ChassisSpeeds{})
		test.That(t, cmd.Vx, test.ShouldAlmostEqual, 0.1)
		test.That(t, cmd.Vy, test.ShouldAlmostEqual, 0)
		test.That(t, cmd.Omega, test.ShouldAlmostEqual, 0)
		test.That(t, next.Commanded(), test.ShouldResemble, cmd)

		lookahead, ok := next.Lookahead()
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, lookahead.X, test.ShouldAlmostEqual, 0.5)
		test.That(t, lookahead.Y, test.ShouldAlmostEqual, 0)
		test.That(t, next.Inaccuracy(), test.ShouldAlmostEqual, 0)

		// Stepping from the same state again gives the same answer.
		again, _ := pp.Step(start, pose(0, 0, 0), kinematics.ChassisSpeeds{})
		test.That(t, again, test.ShouldResemble, cmd)
	})

	t.Run("falls back to the path start when far away", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		state := pp.Reset(pose(0, 3, 0), kinematics.ChassisSpeeds{})
		clk.Add(20 * time.Millisecond)
		cmd, state := pp.Step(state, pose(0, 3, 0), kinematics.ChassisSpeeds{})
		lookahead, _ := state.Lookahead()
		test.That(t, lookahead, test.ShouldResemble, r2.Point{})
		test.That(t, cmd.Vy, test.ShouldBeLessThan, 0)
		test.That(t, state.Inaccuracy(), test.ShouldAlmostEqual, 3)
		test.That(t, logs.FilterMessage("no lookahead point found near the path, aiming for its start").Len(), test.ShouldEqual, 1)
	})

	t.Run("brakes hard near a stopping goal", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		speeds := kinematics.ChassisSpeeds{Vx: 3}
		state := pp.Reset(pose(4.8, 0, 0), speeds)
		clk.Add(20 * time.Millisecond)
		cmd, state := pp.Step(state, pose(4.8, 0, 0), speeds)
		test.That(t, state.DecelLocked(), test.ShouldBeTrue)
		test.That(t, cmd.Vx, test.ShouldAlmostEqual, 3-9/0.4*DefaultPeriod)
		test.That(t, cmd.Vy, test.ShouldAlmostEqual, 0)
		test.That(t, logs.FilterMessage("braking for goal").Len(), test.ShouldBeGreaterThan, 0)
	})

	t.Run("tracks rotation targets", func(t *testing.T) {
		p := straightPath(t, path.GoalEndState{}, path.Options{
			RotationTargets: []path.RotationTarget{{Position: 0.5, Rotation: math.Pi / 2}},
		})
		pp, err := NewPurePursuit(p, true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		state := pp.Reset(pose(0, 0, 0), kinematics.ChassisSpeeds{})
		clk.Add(20 * time.Millisecond)
		cmd, _ := pp.Step(state, pose(0, 0, 0), kinematics.ChassisSpeeds{})
		test.That(t, cmd.Omega, test.ShouldAlmostEqual, 4*math.Pi*DefaultPeriod)
	})

	t.Run("reversed differential drive", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{Reversed: true}), false, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		state := pp.Reset(pose(0, 0, math.Pi), kinematics.ChassisSpeeds{})
		clk.Add(20 * time.Millisecond)
		cmd, _ := pp.Step(state, pose(0, 0, math.Pi), kinematics.ChassisSpeeds{})
		test.That(t, cmd.Vx, test.ShouldAlmostEqual, -0.1)
		test.That(t, cmd.Vy, test.ShouldEqual, 0.0)
		test.That(t, cmd.Omega, test.ShouldAlmostEqual, 0)
	})

	t.Run("fires markers after passing them", func(t *testing.T) {
		p := straightPath(t, path.GoalEndState{}, path.Options{
			EventMarkers: []path.EventMarker{path.NewEventMarker("shoot", 0.5)},
		})
		pp, err := NewPurePursuit(p, true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		speeds := kinematics.ChassisSpeeds{Vx: 1}
		state := pp.Reset(pose(0, 0, 0), speeds)

		var fired []string
		for _, x := range []float64{2.3, 2.5, 2.7, 2.9} {
			clk.Add(20 * time.Millisecond)
			_, state = pp.Step(state, pose(x, 0, 0), speeds)
			for _, m := range state.Fired() {
				fired = append(fired, m.Name)
			}
			if x == 2.7 {
				test.That(t, len(state.Fired()), test.ShouldEqual, 1)
			}
		}
		test.That(t, fired, test.ShouldResemble, []string{"shoot"})
	})
}

func TestIsAtGoal(t *testing.T) {
	clk := clock.NewMock()
	logger := logging.NewTestLogger(t)

	t.Run("stopping goal", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		stopped := kinematics.ChassisSpeeds{}
		state := pp.Reset(pose(4.5, 0, 0), stopped)

		done, state := pp.IsAtGoal(state, pose(4.5, 0, 0), stopped)
		test.That(t, done, test.ShouldBeFalse)

		clk.Add(20 * time.Millisecond)
		_, state = pp.Step(state, pose(4.5, 0, 0), stopped)
		lookahead, _ := state.Lookahead()
		test.That(t, lookahead, test.ShouldResemble, r2.Point{X: 5})
		for i := 0; i < 3; i++ {
			done, state = pp.IsAtGoal(state, pose(4.5, 0, 0), stopped)
			test.That(t, done, test.ShouldBeFalse)
		}

		moving := kinematics.ChassisSpeeds{Vx: 1}
		clk.Add(20 * time.Millisecond)
		_, state = pp.Step(state, pose(4.95, 0, 0), moving)
		done, state = pp.IsAtGoal(state, pose(4.95, 0, 0), moving)
		test.That(t, done, test.ShouldBeFalse)

		slow := kinematics.ChassisSpeeds{Vx: 0.05}
		clk.Add(20 * time.Millisecond)
		_, state = pp.Step(state, pose(4.96, 0, 0), slow)
		done, _ = pp.IsAtGoal(state, pose(4.96, 0, 0), slow)
		test.That(t, done, test.ShouldBeTrue)
	})

	t.Run("rolling goal", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{Velocity: 1}, path.Options{}), true, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		speeds := kinematics.ChassisSpeeds{Vx: 1}
		state := pp.Reset(pose(4.7, 0, 0), speeds)
		clk.Add(20 * time.Millisecond)
		_, state = pp.Step(state, pose(4.7, 0, 0), speeds)
		done, state := pp.IsAtGoal(state, pose(4.7, 0, 0), speeds)
		test.That(t, done, test.ShouldBeFalse)
		done, _ = pp.IsAtGoal(state, pose(4.92, 0, 0), speeds)
		test.That(t, done, test.ShouldBeTrue)

		loose := pp.WithGoalTolerance(0.5)
		done, _ = loose.IsAtGoal(state, pose(4.7, 0, 0), speeds)
		test.That(t, done, test.ShouldBeTrue)
	})

	t.Run("still on the way", func(t *testing.T) {
		pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), false, clk, logger)
		test.That(t, err, test.ShouldBeNil)
		speeds := kinematics.ChassisSpeeds{Vx: 1}
		state := pp.Reset(pose(2, 0, 0), speeds)
		clk.Add(20 * time.Millisecond)
		_, state = pp.Step(state, pose(2, 0, 0), speeds)
		done, _ := pp.IsAtGoal(state, pose(2, 0, 0), speeds)
		test.That(t, done, test.ShouldBeFalse)
	})
}
