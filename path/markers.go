package path

import (
	"github.com/golang/geo/r2"

	"github.com/ppgo/pathplanner/spatialmath"
)

// DefaultMinimumTriggerDistance is used by markers that leave their trigger distance unset.
const DefaultMinimumTriggerDistance = 0.5

// EventMarker names an event to fire at a position along the path.
type EventMarker struct {
	Name                string  `json:"name"`
	WaypointRelativePos float64 `json:"waypointRelativePos"`
	// EndWaypointRelativePos is negative for instantaneous markers. Otherwise the marker spans
	// the range and fires a start and end event.
	EndWaypointRelativePos float64 `json:"endWaypointRelativePos"`
	MinimumTriggerDistance float64 `json:"minimumTriggerDistance"`
}

// NewEventMarker returns an instantaneous marker with the default trigger distance.
func NewEventMarker(name string, pos float64) EventMarker {
	return EventMarker{
		Name:                   name,
		WaypointRelativePos:    pos,
		EndWaypointRelativePos: -1,
		MinimumTriggerDistance: DefaultMinimumTriggerDistance,
	}
}

// IsZoned reports whether the marker spans a range instead of a point.
func (m EventMarker) IsZoned() bool {
	return m.EndWaypointRelativePos >= 0
}

func (m EventMarker) triggerDistance() float64 {
	if m.MinimumTriggerDistance <= 0 {
		return DefaultMinimumTriggerDistance
	}
	return m.MinimumTriggerDistance
}

// MarkerPosition returns the field position marker i resolves to on this path.
func (p *Path) MarkerPosition(i int) r2.Point {
	return p.markerPositions[i]
}

// MarkerTrigger tracks a robot passing one resolved marker position. It fires on the first update
// where the robot is within the trigger distance and has started moving away from the marker, that
// is once it has passed its closest approach.
type MarkerTrigger struct {
	marker    EventMarker
	markerPos r2.Point
	lastPos   *r2.Point
}

// NewMarkerTrigger tracks marker i of p.
func (p *Path) NewMarkerTrigger(i int) *MarkerTrigger {
	return &MarkerTrigger{marker: p.eventMarkers[i], markerPos: p.markerPositions[i]}
}

// Marker is the marker being tracked.
func (mt *MarkerTrigger) Marker() EventMarker {
	return mt.marker
}

// Reset forgets the last robot position, typically at the start of a follow.
func (mt *MarkerTrigger) Reset(robotPos r2.Point) {
	pos := robotPos
	mt.lastPos = &pos
}

// ShouldTrigger updates the tracked robot position and reports whether the marker fires.
func (mt *MarkerTrigger) ShouldTrigger(robotPos r2.Point) bool {
	if mt.lastPos == nil {
		mt.Reset(robotPos)
		return false
	}
	dist := spatialmath.Distance(robotPos, mt.markerPos)
	lastDist := spatialmath.Distance(*mt.lastPos, mt.markerPos)
	trigger := mt.marker.triggerDistance() >= dist && dist > lastDist
	mt.Reset(robotPos)
	return trigger
}
