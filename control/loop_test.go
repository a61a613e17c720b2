package control

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
)

// simDrive is a holonomic robot that tracks every command perfectly over one DefaultPeriod.
type simDrive struct {
	mu        sync.Mutex
	pose      spatialmath.Pose
	speeds    kinematics.ChassisSpeeds
	drives    int
	failAfter int
}

func (s *simDrive) Pose(ctx context.Context) (spatialmath.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.drives >= s.failAfter {
		return spatialmath.Pose{}, errors.New("lost localization")
	}
	return s.pose, nil
}

func (s *simDrive) Speeds(ctx context.Context) (kinematics.ChassisSpeeds, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speeds, nil
}

func (s *simDrive) Drive(ctx context.Context, speeds kinematics.ChassisSpeeds) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drives++
	s.speeds = speeds
	s.pose.Point = s.pose.Point.Add(speeds.Translation().Mul(DefaultPeriod))
	s.pose.Rotation += speeds.Omega * DefaultPeriod
	return nil
}

func (s *simDrive) driveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drives
}

func TestNewLoop(t *testing.T) {
	pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, nil, nil)
	test.That(t, err, test.ShouldBeNil)

	_, err = NewLoop(pp, &simDrive{}, LoopConfig{Frequency: -1}, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewLoop(pp, &simDrive{}, LoopConfig{Frequency: 500}, nil, nil)
	test.That(t, err, test.ShouldNotBeNil)

	l, err := NewLoop(pp, &simDrive{}, LoopConfig{}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.Period(), test.ShouldEqual, 20*time.Millisecond)
	l, err = NewLoop(pp, &simDrive{}, LoopConfig{Frequency: 100}, nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.Period(), test.ShouldEqual, 10*time.Millisecond)
}

func TestLoopFollowsToGoal(t *testing.T) {
	clk := clock.NewMock()
	logger := logging.NewTestLogger(t)
	p := straightPath(t, path.GoalEndState{}, path.Options{
		EventMarkers: []path.EventMarker{path.NewEventMarker("shoot", 0.5)},
	})
	pp, err := NewPurePursuit(p, true, clk, logger)
	test.That(t, err, test.ShouldBeNil)

	sim := &simDrive{}
	var markers []string
	l, err := NewLoop(pp, sim, LoopConfig{}, func(m path.EventMarker) { markers = append(markers, m.Name) }, logger)
	test.That(t, err, test.ShouldBeNil)

	ctx := context.Background()
	test.That(t, l.reset(ctx), test.ShouldBeNil)
	atGoal := false
	for i := 0; i < 1000 && !atGoal; i++ {
		clk.Add(20 * time.Millisecond)
		atGoal, err = l.tick(ctx)
		test.That(t, err, test.ShouldBeNil)
	}
	test.That(t, atGoal, test.ShouldBeTrue)
	test.That(t, spatialmath.Distance(sim.pose.Point, r2.Point{X: 5}), test.ShouldBeLessThan, 0.5)
	test.That(t, sim.speeds, test.ShouldResemble, kinematics.ChassisSpeeds{})
	test.That(t, markers, test.ShouldResemble, []string{"shoot"})
	test.That(t, sim.pose.Rotation, test.ShouldAlmostEqual, 0)
}

func TestLoopStartStop(t *testing.T) {
	clk := clock.NewMock()
	logger := logging.NewTestLogger(t)
	pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
	test.That(t, err, test.ShouldBeNil)

	sim := &simDrive{}
	l, err := NewLoop(pp, sim, LoopConfig{}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.Start(context.Background()), test.ShouldBeNil)
	test.That(t, l.Start(context.Background()), test.ShouldNotBeNil)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(20 * time.Millisecond)
		test.That(tb, sim.driveCount(), test.ShouldBeGreaterThan, 0)
	})
	_, ok := l.State().Lookahead()
	test.That(t, ok, test.ShouldBeTrue)

	l.Stop()
	test.That(t, errors.Is(l.Wait(context.Background()), context.Canceled), test.ShouldBeTrue)
	l.Stop()
}

func TestLoopDrivetrainFailure(t *testing.T) {
	clk := clock.NewMock()
	logger, logs := logging.NewObservedTestLogger(t)
	pp, err := NewPurePursuit(straightPath(t, path.GoalEndState{}, path.Options{}), true, clk, logger)
	test.That(t, err, test.ShouldBeNil)

	sim := &simDrive{failAfter: 2}
	l, err := NewLoop(pp, sim, LoopConfig{}, nil, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, l.Start(context.Background()), test.ShouldBeNil)
	defer l.Stop()

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		clk.Add(20 * time.Millisecond)
		select {
		case <-l.Done():
		default:
			tb.Fatal("loop still running")
		}
	})
	err = l.Wait(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "lost localization")
	test.That(t, logs.FilterMessage("follow stopped").Len(), test.ShouldEqual, 1)
}
