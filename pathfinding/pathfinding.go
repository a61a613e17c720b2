// Package pathfinding hands paths produced in the background to a control loop. A Worker polls a
// Planner whenever its start or goal changes and publishes the result through a LatestPath slot,
// so the control loop only ever sees the newest complete path.
package pathfinding

import (
	"context"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/path"
)

// ErrNoPath is returned when no path has been produced yet.
var ErrNoPath = errors.New("no path available")

// Pathfinder produces raw bezier control points between a start and a goal.
type Pathfinder interface {
	SetStartPosition(start r2.Point)
	SetGoalPosition(goal r2.Point)
	// IsNewPathAvailable reports whether a path newer than the last CurrentPath is ready.
	IsNewPathAvailable() bool
	// CurrentPath is the newest path's bezier control points, or nil before the first one.
	CurrentPath() []r2.Point
}

// Planner computes bezier control points from start to goal. Implementations may block and should
// honor ctx.
type Planner interface {
	Plan(ctx context.Context, start, goal r2.Point) ([]r2.Point, error)
}

// PlannerFunc adapts a function to a Planner.
type PlannerFunc func(ctx context.Context, start, goal r2.Point) ([]r2.Point, error)

// Plan calls f.
func (f PlannerFunc) Plan(ctx context.Context, start, goal r2.Point) ([]r2.Point, error) {
	return f(ctx, start, goal)
}

// BuildPath turns pf's current path into a Path with the given constraints and goal.
func BuildPath(pf Pathfinder, constraints path.PathConstraints, goal path.GoalEndState) (*path.Path, error) {
	points := pf.CurrentPath()
	if len(points) == 0 {
		return nil, ErrNoPath
	}
	return path.New(points, constraints, goal, path.Options{})
}

// LatestPath is a single slot, last write wins handoff. Publishing never blocks; a path nobody took
// is replaced by the next one.
type LatestPath struct {
	mu sync.Mutex
	ch chan []r2.Point
}

// NewLatestPath returns an empty slot.
func NewLatestPath() *LatestPath {
	return &LatestPath{ch: make(chan []r2.Point, 1)}
}

// Publish replaces whatever is in the slot with points.
func (l *LatestPath) Publish(points []r2.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
	}
	l.ch <- points
}

// TryTake empties the slot without blocking.
func (l *LatestPath) TryTake() ([]r2.Point, bool) {
	select {
	case points := <-l.ch:
		return points, true
	default:
		return nil, false
	}
}

// C is the channel behind the slot, for use in a select.
func (l *LatestPath) C() <-chan []r2.Point {
	return l.ch
}

// StraightLine plans a single segment with its control points at thirds of the way from start to
// goal.
type StraightLine struct{}

// Plan implements Planner.
func (StraightLine) Plan(ctx context.Context, start, goal r2.Point) ([]r2.Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start == goal {
		return nil, errors.Errorf("start and goal are both %v", start)
	}
	delta := goal.Sub(start)
	return []r2.Point{start, start.Add(delta.Mul(1.0 / 3)), start.Add(delta.Mul(2.0 / 3)), goal}, nil
}
