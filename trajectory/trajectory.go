// Package trajectory profiles a path into time stamped robot states and samples them for a
// control loop.
package trajectory

import (
	"sort"

	"github.com/samber/lo"

	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
)

// EventKind says whether an event is a point in time or one edge of a marker's span.
type EventKind int

const (
	// EventInstant fires once for a marker with no span.
	EventInstant EventKind = iota
	// EventStart fires where a spanning marker begins.
	EventStart
	// EventEnd fires where a spanning marker ends.
	EventEnd
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventEnd:
		return "end"
	default:
		return "instant"
	}
}

// Event is an event marker resolved to a time on a trajectory.
type Event struct {
	Name string    `json:"name"`
	Kind EventKind `json:"kind"`
	Time float64   `json:"time"`
	// Position is the marker's waypoint relative position.
	Position float64 `json:"position"`
}

func pendingEvents(markers []path.EventMarker) []Event {
	events := lo.FlatMap(markers, func(m path.EventMarker, _ int) []Event {
		if !m.IsZoned() {
			return []Event{{Name: m.Name, Kind: EventInstant, Position: m.WaypointRelativePos}}
		}
		return []Event{
			{Name: m.Name, Kind: EventStart, Position: m.WaypointRelativePos},
			{Name: m.Name, Kind: EventEnd, Position: m.EndWaypointRelativePos},
		}
	})
	sort.SliceStable(events, func(i, j int) bool { return events[i].Position < events[j].Position })
	return events
}

// Trajectory is an immutable, time ordered list of states. It is safe for concurrent use.
type Trajectory struct {
	states []State
	events []Event
}

// New wraps already generated states, which must be sorted by time.
func New(states []State, events []Event) *Trajectory {
	return newTrajectory(append([]State(nil), states...), append([]Event(nil), events...))
}

func newTrajectory(states []State, events []Event) *Trajectory {
	return &Trajectory{states: states, events: events}
}

// Sample returns the state at time t, interpolating between the two states around it. Times
// outside the trajectory return the first or last state.
func (t *Trajectory) Sample(time float64) State {
	if len(t.states) == 0 {
		return State{}
	}
	if time <= t.InitialState().Time {
		return t.InitialState()
	}
	if time >= t.TotalTime() {
		return t.EndState()
	}

	idx := 1 + sort.Search(len(t.states)-1, func(i int) bool { return t.states[i+1].Time >= time })
	sample := t.states[idx]
	prev := t.states[idx-1]
	if sample.Time-prev.Time < 1e-3 {
		return sample
	}
	return prev.Interpolate(sample, (time-prev.Time)/(sample.Time-prev.Time))
}

// NumStates is the number of generated states.
func (t *Trajectory) NumStates() int {
	return len(t.states)
}

// State returns the i'th generated state.
func (t *Trajectory) State(i int) State {
	return t.states[i]
}

// States returns a copy of every generated state.
func (t *Trajectory) States() []State {
	return append([]State(nil), t.states...)
}

// Events returns the resolved event markers sorted by time.
func (t *Trajectory) Events() []Event {
	return append([]Event(nil), t.events...)
}

// InitialState is the first state.
func (t *Trajectory) InitialState() State {
	return t.states[0]
}

// EndState is the last state.
func (t *Trajectory) EndState() State {
	return t.states[len(t.states)-1]
}

// TotalTime is the duration of the trajectory in seconds.
func (t *Trajectory) TotalTime() float64 {
	return t.EndState().Time
}

// InitialPose is where the robot should be when the trajectory starts.
func (t *Trajectory) InitialPose() spatialmath.Pose {
	return t.InitialState().Pose
}

// Reverse returns the trajectory a differential drive follows when driving it backwards.
func (t *Trajectory) Reverse() *Trajectory {
	return newTrajectory(lo.Map(t.states, func(s State, _ int) State { return s.Reverse() }), t.Events())
}

// Flip returns the trajectory as driven from the other side of field.
func (t *Trajectory) Flip(field spatialmath.Field) *Trajectory {
	return newTrajectory(lo.Map(t.states, func(s State, _ int) State { return s.Flip(field) }), t.Events())
}
