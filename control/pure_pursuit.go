package control

import (
	"math"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
	"github.com/ppgo/pathplanner/utils"
)

const (
	minLookahead      = 0.5
	lookaheadStep     = 0.2
	maxExtraLookahead = 1.0

	rotationKp = 4.0

	// DefaultGoalTolerance is how close, in meters, the robot must get to the end of the path.
	DefaultGoalTolerance = 0.1
	stoppedSpeed         = 0.1
	// Differential drives hold their heading this close to the end so they do not spin in place.
	headingHoldDistance = 0.1
)

// PurePursuit follows a path by steering toward a point a speed dependent distance ahead of the
// robot. It does not use a time profile.
//
// The controller itself is immutable. Everything that changes from tick to tick lives in a
// PursuitState that Reset creates and Step and IsAtGoal return updated copies of, so one
// controller can drive any number of independent follows.
//
// Speeds are field relative for holonomic drives and robot relative for differential drives.
type PurePursuit struct {
	path          *path.Path
	holonomic     bool
	goalTolerance float64
	clock         clock.Clock
	logger        logging.Logger
}

// NewPurePursuit returns a controller following p. A nil clk uses the wall clock.
func NewPurePursuit(p *path.Path, holonomic bool, clk clock.Clock, logger logging.Logger) (*PurePursuit, error) {
	if p == nil || p.NumPoints() < 2 {
		return nil, errors.New("pure pursuit needs a path with at least two points")
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = logging.NewBlankLogger("pure_pursuit")
	}
	return &PurePursuit{path: p, holonomic: holonomic, goalTolerance: DefaultGoalTolerance, clock: clk, logger: logger}, nil
}

// WithGoalTolerance returns a copy of the controller that treats the goal as reached within tol
// meters.
func (pp *PurePursuit) WithGoalTolerance(tol float64) *PurePursuit {
	out := *pp
	out.goalTolerance = tol
	return &out
}

// Path is the path being followed.
func (pp *PurePursuit) Path() *path.Path {
	return pp.path
}

// PursuitState is the controller's memory between ticks.
type PursuitState struct {
	limiter  ChassisSpeedsRateLimiter
	rotation PIDController

	lookahead     r2.Point
	hasLookahead  bool
	lastDistToEnd float64
	targetHeading float64
	lastCommanded kinematics.ChassisSpeeds
	nextRotation  int
	lockDecel     bool
	inaccuracy    float64

	triggers []path.MarkerTrigger
	fired    []path.EventMarker
}

// Lookahead is the point the last Step steered toward. ok is false before the first Step.
func (s PursuitState) Lookahead() (point r2.Point, ok bool) {
	return s.lookahead, s.hasLookahead
}

// Inaccuracy is the distance from the robot to the closest path point at the last Step.
func (s PursuitState) Inaccuracy() float64 {
	return s.inaccuracy
}

// DecelLocked reports whether the controller is braking for the goal without rate limiting.
func (s PursuitState) DecelLocked() bool {
	return s.lockDecel
}

// Commanded is the last commanded speed.
func (s PursuitState) Commanded() kinematics.ChassisSpeeds {
	return s.lastCommanded
}

// Fired lists the event markers the robot passed during the last Step.
func (s PursuitState) Fired() []path.EventMarker {
	return s.fired
}

// Reset starts a follow from pose moving at speeds.
func (pp *PurePursuit) Reset(pose spatialmath.Pose, speeds kinematics.ChassisSpeeds) PursuitState {
	global := pp.path.GlobalConstraints()
	rotation := PIDController{Kp: rotationKp, period: DefaultPeriod, integratorMin: -1, integratorMax: 1}
	rotation.EnableContinuousInput(-math.Pi, math.Pi)

	s := PursuitState{
		limiter:       NewChassisSpeedsRateLimiter(global.MaxAcceleration, global.MaxAngularAcceleration, speeds, pp.clock),
		rotation:      rotation,
		lastDistToEnd: math.Inf(1),
		lastCommanded: speeds,
	}
	if pp.holonomic {
		s.nextRotation = pp.nextRotationTarget(0)
	}
	for i := range pp.path.EventMarkers() {
		trigger := pp.path.NewMarkerTrigger(i)
		trigger.Reset(pose.Point)
		s.triggers = append(s.triggers, *trigger)
	}
	return s
}

func (pp *PurePursuit) nextRotationTarget(start int) int {
	for i := start; i < pp.path.NumPoints()-1; i++ {
		if pp.path.Point(i).RotationTarget != nil {
			return i
		}
	}
	return pp.path.NumPoints() - 1
}

// Step computes the speed command for the robot at pose moving at speeds. state is not modified.
func (pp *PurePursuit) Step(state PursuitState, pose spatialmath.Pose, speeds kinematics.ChassisSpeeds) (kinematics.ChassisSpeeds, PursuitState) {
	s := state
	s.triggers = append([]path.MarkerTrigger(nil), state.triggers...)
	s.fired = nil
	p := pp.path
	robotPos := pose.Point

	closest := closestPointIndex(robotPos, p.Points())
	s.inaccuracy = spatialmath.Distance(robotPos, p.Point(closest).Position)
	constraints := p.ConstraintsForPoint(closest)
	s.limiter.SetRateLimits(constraints.MaxAcceleration, constraints.MaxAngularAcceleration)

	currentVel := speeds.LinearVelocity()
	lookaheadDist := LookaheadDistance(currentVel, constraints)

	lookahead, ok := pp.lookaheadPoint(robotPos, lookaheadDist)
	for extra := lookaheadStep; !ok; extra += lookaheadStep {
		if extra > maxExtraLookahead {
			pp.logger.Debugw("no lookahead point found near the path, aiming for its start",
				"inaccuracy", s.inaccuracy)
			lookahead, ok = p.Point(0).Position, true
			break
		}
		lookahead, ok = pp.lookaheadPoint(robotPos, lookaheadDist+extra)
	}
	s.lookahead, s.hasLookahead = lookahead, true

	goal := p.GoalEndState()
	distToEnd := spatialmath.Distance(robotPos, p.Point(p.NumPoints()-1).Position)
	if pp.holonomic || distToEnd > headingHoldDistance {
		s.targetHeading = spatialmath.AngleOf(lookahead.Sub(robotPos))
		if !pp.holonomic && p.IsReversed() {
			s.targetHeading = utils.WrapAngle(s.targetHeading + math.Pi)
		}
	}

	if pp.holonomic && p.Point(closest).DistanceAlongPath > p.Point(s.nextRotation).DistanceAlongPath {
		s.nextRotation = pp.nextRotationTarget(closest)
	}
	setpoint := s.targetHeading
	if pp.holonomic {
		setpoint = p.Point(s.nextRotation).RotationTarget.Rotation
	}
	maxAngVel := constraints.MaxAngularVelocity
	rotationVel := utils.Clamp(s.rotation.Calculate(pose.Rotation, setpoint), -maxAngVel, maxAngVel)

	if goal.Velocity == 0 && !s.lockDecel && stoppingDecel(currentVel, distToEnd) >= constraints.MaxAcceleration {
		s.lockDecel = true
		pp.logger.Debugw("braking for goal", "distanceToEnd", distToEnd, "speed", currentVel)
	}

	if s.lockDecel {
		// Braking may need more than the nominal acceleration limit, so skip the limiter.
		needed := stoppingDecel(currentVel, distToEnd)
		nextVel := math.Max(goal.Velocity, currentVel-needed*DefaultPeriod)
		if needed < constraints.MaxAcceleration*0.9 {
			nextVel = s.lastCommanded.LinearVelocity()
		}
		s.lastCommanded = pp.command(nextVel, s.targetHeading, rotationVel)
		s.limiter.Reset(s.lastCommanded)
	} else {
		maxV := math.Min(constraints.MaxVelocity, p.Point(closest).MaxV)
		lastVel := s.lastCommanded.LinearVelocity()
		stoppingDist := utils.Square(lastVel) / (2 * constraints.MaxAcceleration)

		for i := closest; i < p.NumPoints(); i++ {
			pt := p.Point(i)
			dist := spatialmath.Distance(robotPos, pt.Position)
			if dist > stoppingDist {
				break
			}
			if pt.MaxV < lastVel && (utils.Square(lastVel)-utils.Square(pt.MaxV))/(2*dist) >= constraints.MaxAcceleration {
				maxV = pt.MaxV
				break
			}
		}
		maxV = utils.FiniteOr(maxV, constraints.MaxVelocity)
		s.lastCommanded = s.limiter.Calculate(pp.command(maxV, s.targetHeading, rotationVel))
	}

	// Each marker fires once per follow.
	pending := s.triggers[:0]
	for i := range s.triggers {
		if s.triggers[i].ShouldTrigger(robotPos) {
			s.fired = append(s.fired, s.triggers[i].Marker())
			continue
		}
		pending = append(pending, s.triggers[i])
	}
	s.triggers = pending
	return s.lastCommanded, s
}

func (pp *PurePursuit) command(speed, heading, omega float64) kinematics.ChassisSpeeds {
	if pp.holonomic {
		v := spatialmath.PolarPoint(speed, heading)
		return kinematics.ChassisSpeeds{Vx: v.X, Vy: v.Y, Omega: omega}
	}
	if pp.path.IsReversed() {
		speed = -speed
	}
	return kinematics.ChassisSpeeds{Vx: speed, Omega: omega}
}

// IsAtGoal reports whether the follow is finished. The robot must be steering at the end of the
// path and then either be stopped within the goal tolerance for a stopping goal, be within the
// tolerance for a rolling goal, or have started moving away from the end.
func (pp *PurePursuit) IsAtGoal(state PursuitState, pose spatialmath.Pose, speeds kinematics.ChassisSpeeds) (bool, PursuitState) {
	s := state
	end := pp.path.Point(pp.path.NumPoints() - 1).Position
	if !s.hasLookahead || s.lookahead != end {
		return false, s
	}

	dist := spatialmath.Distance(pose.Point, end)
	overshot := dist > s.lastDistToEnd
	s.lastDistToEnd = dist

	if pp.path.GoalEndState().Velocity != 0 {
		return dist <= pp.goalTolerance || overshot, s
	}
	stopped := speeds.LinearVelocity() <= stoppedSpeed
	if !pp.holonomic && overshot {
		return true, s
	}
	return stopped && (dist <= pp.goalTolerance || overshot), s
}

// LookaheadDistance is the pure pursuit lookahead radius at currentVel.
func LookaheadDistance(currentVel float64, constraints path.PathConstraints) float64 {
	factor := 1 - 0.1*constraints.MaxAcceleration
	return math.Max(utils.FiniteOr(factor*currentVel, 0), minLookahead)
}

// stoppingDecel is the constant deceleration that stops from v within dist.
func stoppingDecel(v, dist float64) float64 {
	switch {
	case v == 0:
		return 0
	case dist <= 0:
		return math.Inf(1)
	}
	return v * v / (2 * dist)
}

// lookaheadPoint intersects a circle of radius r around robotPos with the path polyline and
// returns the intersection furthest along the path. The end of the path wins once it is inside the
// circle.
func (pp *PurePursuit) lookaheadPoint(robotPos r2.Point, r float64) (r2.Point, bool) {
	p := pp.path
	end := p.Point(p.NumPoints() - 1).Position
	if spatialmath.Distance(end, robotPos) <= r {
		return end, true
	}

	var lookahead r2.Point
	var found bool
	for i := 0; i < p.NumPoints()-1; i++ {
		p1 := p.Point(i).Position.Sub(robotPos)
		p2 := p.Point(i + 1).Position.Sub(robotPos)
		if p1 == p2 {
			continue
		}

		dx, dy := p2.X-p1.X, p2.Y-p1.Y
		d2 := dx*dx + dy*dy
		det := p1.X*p2.Y - p2.X*p1.Y
		discriminant := r*r*d2 - det*det
		if discriminant < 0 {
			continue
		}
		sqrtDisc := math.Sqrt(discriminant)
		signDy := 1.0
		if dy < 0 {
			signDy = -1
		}

		i1 := r2.Point{X: (det*dy + signDy*dx*sqrtDisc) / d2, Y: (-det*dx + math.Abs(dy)*sqrtDisc) / d2}
		i2 := r2.Point{X: (det*dy - signDy*dx*sqrtDisc) / d2, Y: (-det*dx - math.Abs(dy)*sqrtDisc) / d2}
		valid1 := withinSegment(i1, p1, p2)
		valid2 := withinSegment(i2, p1, p2)

		switch {
		case valid1 && !(valid2 && signDy < 0):
			lookahead, found = i1.Add(robotPos), true
		case valid2:
			lookahead, found = i2.Add(robotPos), true
		}
	}
	return lookahead, found
}

// withinSegment reports whether q, already known to be on the line through a and b, lies strictly
// between them along x or y.
func withinSegment(q, a, b r2.Point) bool {
	return (math.Min(a.X, b.X) < q.X && q.X < math.Max(a.X, b.X)) ||
		(math.Min(a.Y, b.Y) < q.Y && q.Y < math.Max(a.Y, b.Y))
}

// closestPointIndex uses L1 distance; only the ordering matters.
func closestPointIndex(pos r2.Point, points []path.PathPoint) int {
	closest := 0
	closestDist := math.Inf(1)
	for i, pt := range points {
		if d := math.Abs(pos.X-pt.Position.X) + math.Abs(pos.Y-pt.Position.Y); d < closestDist {
			closest, closestDist = i, d
		}
	}
	return closest
}
