package control

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
	"github.com/ppgo/pathplanner/utils"
)

// Drivetrain is the robot a Loop drives. Speeds use the same frames as PurePursuit.
type Drivetrain interface {
	Pose(ctx context.Context) (spatialmath.Pose, error)
	Speeds(ctx context.Context) (kinematics.ChassisSpeeds, error)
	Drive(ctx context.Context, speeds kinematics.ChassisSpeeds) error
}

// LoopConfig configures a follow Loop.
type LoopConfig struct {
	// Frequency in Hz. Zero means one tick per DefaultPeriod.
	Frequency float64 `json:"frequency_hz"`
}

// Loop runs a PurePursuit follow on a Drivetrain at a fixed rate until the goal is reached.
type Loop struct {
	pp       *PurePursuit
	drive    Drivetrain
	dt       time.Duration
	logger   logging.Logger
	onMarker func(path.EventMarker)

	mu      sync.Mutex
	state   PursuitState
	ticks   int
	started bool
	workers *utils.StoppableWorkers

	doneOnce sync.Once
	done     chan struct{}
	err      error
}

// NewLoop returns a stopped loop. onMarker, if set, is called from the loop goroutine for every
// event marker the robot passes.
func NewLoop(pp *PurePursuit, drive Drivetrain, cfg LoopConfig, onMarker func(path.EventMarker), logger logging.Logger) (*Loop, error) {
	if cfg.Frequency < 0 || cfg.Frequency > 200 {
		return nil, errors.Errorf("loop frequency must be between 0 and 200Hz, got %v", cfg.Frequency)
	}
	period := DefaultPeriod
	if cfg.Frequency > 0 {
		period = 1 / cfg.Frequency
	}
	if logger == nil {
		logger = logging.NewBlankLogger("follow_loop")
	}
	return &Loop{
		pp:       pp,
		drive:    drive,
		dt:       time.Duration(period * float64(time.Second)),
		logger:   logger,
		onMarker: onMarker,
		done:     make(chan struct{}),
	}, nil
}

// Period is the time between ticks.
func (l *Loop) Period() time.Duration {
	return l.dt
}

// Start resets the follow from the drivetrain's current pose and speeds and begins ticking.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("loop already started")
	}
	l.started = true
	l.mu.Unlock()

	if err := l.reset(ctx); err != nil {
		return err
	}
	l.logger.Infow("following path", "period", l.dt, "points", l.pp.Path().NumPoints())

	ticker := l.pp.clock.Ticker(l.dt)
	workers := utils.NewStoppableWorkers(ctx, func(ctx context.Context) {
		l.run(ctx, ticker)
	})
	l.mu.Lock()
	l.workers = workers
	l.mu.Unlock()
	return nil
}

func (l *Loop) reset(ctx context.Context) error {
	pose, err := l.drive.Pose(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot read starting pose")
	}
	speeds, err := l.drive.Speeds(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot read starting speeds")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = l.pp.Reset(pose, speeds)
	l.ticks = 0
	return nil
}

func (l *Loop) run(ctx context.Context, ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			l.finish(ctx.Err())
			return
		case <-ticker.C:
		}
		atGoal, err := l.tick(ctx)
		if err != nil {
			l.logger.Errorw("follow stopped", "error", err)
			l.finish(err)
			return
		}
		if atGoal {
			l.finish(nil)
			return
		}
	}
}

// tick runs one control step and reports whether the goal was reached.
func (l *Loop) tick(ctx context.Context) (bool, error) {
	pose, err := l.drive.Pose(ctx)
	if err != nil {
		return false, err
	}
	speeds, err := l.drive.Speeds(ctx)
	if err != nil {
		return false, err
	}

	l.mu.Lock()
	cmd, state := l.pp.Step(l.state, pose, speeds)
	atGoal, state := l.pp.IsAtGoal(state, pose, speeds)
	l.state = state
	l.ticks++
	ticks := l.ticks
	l.mu.Unlock()

	for _, m := range state.Fired() {
		l.logger.Debugw("passed event marker", "name", m.Name)
		if l.onMarker != nil {
			l.onMarker(m)
		}
	}
	if atGoal {
		l.logger.Infow("reached goal", "ticks", ticks, "pose", pose)
		return true, l.drive.Drive(ctx, kinematics.ChassisSpeeds{})
	}
	return false, l.drive.Drive(ctx, cmd)
}

func (l *Loop) finish(err error) {
	l.doneOnce.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.done)
	})
}

// Done is closed once the follow ends.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Wait blocks until the follow ends and returns nil if the goal was reached, or the error that
// ended it early.
func (l *Loop) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// State is a snapshot of the controller state after the last tick.
func (l *Loop) State() PursuitState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stop ends the follow and waits for the loop goroutine to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	workers := l.workers
	l.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	l.finish(context.Canceled)
}
