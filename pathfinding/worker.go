package pathfinding

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/utils"
)

// DefaultPollPeriod is how often a Worker checks for new inputs.
const DefaultPollPeriod = 20 * time.Millisecond

// Worker is a Pathfinder that runs its Planner on a background goroutine. It replans on the next
// poll after the start or goal changes, and again after a failed attempt.
type Worker struct {
	planner Planner
	latest  *LatestPath
	logger  logging.Logger

	mu           sync.Mutex
	start        r2.Point
	goal         r2.Point
	hasStart     bool
	hasGoal      bool
	dirty        bool
	current      []r2.Point
	newAvailable bool

	workers *utils.StoppableWorkers
}

// NewWorker starts a worker polling every period on clk. A nil clk uses the wall clock. Close
// stops it.
func NewWorker(ctx context.Context, planner Planner, period time.Duration, clk clock.Clock, logger logging.Logger) *Worker {
	if clk == nil {
		clk = clock.New()
	}
	if period <= 0 {
		period = DefaultPollPeriod
	}
	if logger == nil {
		logger = logging.NewBlankLogger("pathfinding")
	}
	w := &Worker{planner: planner, latest: NewLatestPath(), logger: logger}
	// The ticker exists before the goroutine so no tick is lost.
	ticker := clk.Ticker(period)
	w.workers = utils.NewStoppableWorkers(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			w.planOnce(ctx)
		}
	})
	return w
}

func (w *Worker) planOnce(ctx context.Context) {
	w.mu.Lock()
	if !w.dirty || !w.hasStart || !w.hasGoal {
		w.mu.Unlock()
		return
	}
	start, goal := w.start, w.goal
	w.dirty = false
	w.mu.Unlock()

	points, err := w.planner.Plan(ctx, start, goal)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.mu.Lock()
		w.dirty = true
		w.mu.Unlock()
		w.logger.Warnw("pathfinding failed, retrying", "start", start, "goal", goal, "error", err)
		return
	}
	w.latest.Publish(points)
	w.logger.Debugw("published new path", "start", start, "goal", goal, "controlPoints", len(points))
}

// SetStartPosition implements Pathfinder.
func (w *Worker) SetStartPosition(start r2.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasStart && w.start == start {
		return
	}
	w.start, w.hasStart, w.dirty = start, true, true
}

// SetGoalPosition implements Pathfinder.
func (w *Worker) SetGoalPosition(goal r2.Point) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasGoal && w.goal == goal {
		return
	}
	w.goal, w.hasGoal, w.dirty = goal, true, true
}

// IsNewPathAvailable implements Pathfinder.
func (w *Worker) IsNewPathAvailable() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.takeLocked()
	return w.newAvailable
}

// CurrentPath implements Pathfinder.
func (w *Worker) CurrentPath() []r2.Point {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.takeLocked()
	w.newAvailable = false
	return append([]r2.Point(nil), w.current...)
}

func (w *Worker) takeLocked() {
	if points, ok := w.latest.TryTake(); ok {
		w.current = points
		w.newAvailable = true
	}
}

// Close stops the background goroutine and waits for it to exit.
func (w *Worker) Close() {
	w.workers.Stop()
}
