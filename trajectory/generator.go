package trajectory

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/ppgo/pathplanner/config"
	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/spatialmath"
	"github.com/ppgo/pathplanner/utils"
)

const (
	epsilon = 1e-6
	// Modules that turn at least this much between samples are left out of speed resynchronization.
	sharpModuleTurn = math.Pi / 3
)

type genModule struct {
	fieldPos r2.Point
	// deltaPos is the distance the module travelled from the previous sample.
	deltaPos float64
	// fieldAngle is the direction the module travels toward the next sample.
	fieldAngle float64
	// angle is fieldAngle relative to the robot.
	angle float64
	speed float64
}

// genState is a State plus the working values only needed while profiling.
type genState struct {
	State
	constraints path.PathConstraints
	deltaPos    float64
	deltaRot    float64
	// kinematicV is the bound from the plain acceleration passes.
	kinematicV float64
	modules    []genModule
}

func (s *genState) moduleStates() []kinematics.ModuleState {
	out := make([]kinematics.ModuleState, len(s.modules))
	for i, m := range s.modules {
		out[i] = kinematics.ModuleState{Speed: m.speed, Angle: m.angle}
	}
	return out
}

type generator struct {
	path *path.Path
	cfg  *config.RobotConfig
}

// Generate profiles p for the robot described by cfg, starting at the robot relative startSpeeds
// and field relative startRotation. The result is deterministic and p is not modified.
func Generate(p *path.Path, startSpeeds kinematics.ChassisSpeeds, startRotation float64, cfg *config.RobotConfig) (*Trajectory, error) {
	if p == nil || p.NumPoints() < 2 {
		return nil, errors.New("path must have at least two points to generate a trajectory")
	}
	if cfg == nil || cfg.Kinematics == nil || cfg.NumModules() == 0 {
		return nil, errors.New("robot config with kinematics is required to generate a trajectory")
	}
	g := &generator{path: p, cfg: cfg}

	states := g.generateStates(startRotation)
	g.kinematicPasses(states, startSpeeds.LinearVelocity())

	first := &states[0]
	first.Time = 0
	first.FieldSpeeds = kinematics.FromRobotRelative(startSpeeds, first.Pose.Rotation)
	first.LinearVelocity = first.FieldSpeeds.LinearVelocity()
	for m, ms := range cfg.ToModuleStates(startSpeeds) {
		first.modules[m].speed = ms.Speed
	}

	g.forwardPass(states)

	last := &states[len(states)-1]
	goalV := p.GoalEndState().Velocity
	endVel := spatialmath.PolarPoint(goalV, last.Heading)
	last.FieldSpeeds = kinematics.ChassisSpeeds{Vx: endVel.X, Vy: endVel.Y}
	last.LinearVelocity = goalV
	for m, ms := range cfg.ToModuleStates(kinematics.FromFieldRelative(last.FieldSpeeds, last.Pose.Rotation)) {
		last.modules[m].speed = ms.Speed
	}

	g.reversePass(states)
	events := g.timePass(states)

	return newTrajectory(compact(states, cfg.Module.MaxDriveVelocity), events), nil
}

func (g *generator) generateStates(startRotation float64) []genState {
	p := g.path
	n := p.NumPoints()
	states := make([]genState, n)

	prevTargetIdx := 0
	prevTargetRot := startRotation
	nextTargetIdx := nextRotationTargetIdx(p, 0)
	nextTarget := *p.Point(nextTargetIdx).RotationTarget

	for i := 0; i < n; i++ {
		pt := p.Point(i)
		if i > nextTargetIdx {
			prevTargetIdx, prevTargetRot = nextTargetIdx, nextTarget.Rotation
			nextTargetIdx = nextRotationTargetIdx(p, i)
			nextTarget = *p.Point(nextTargetIdx).RotationTarget
		}

		// Rotation progresses with distance since samples are not evenly spaced.
		rotation := nextTarget.Rotation
		if !nextTarget.RotateFast {
			prevDist := p.Point(prevTargetIdx).DistanceAlongPath
			t := (pt.DistanceAlongPath - prevDist) / (p.Point(nextTargetIdx).DistanceAlongPath - prevDist)
			t = utils.Clamp(utils.FiniteOr(t, 1), 0, 1)
			rotation = spatialmath.CosineInterpolate(prevTargetRot, nextTarget.Rotation, t)
		}

		s := &states[i]
		s.constraints = p.ConstraintsForPoint(i)
		s.DistanceAlongPath = pt.DistanceAlongPath
		s.WaypointRelativePos = pt.WaypointRelativePos

		switch {
		case i < n-1 && spatialmath.Distance(p.Point(i+1).Position, pt.Position) > epsilon:
			s.Heading = spatialmath.AngleOf(p.Point(i + 1).Position.Sub(pt.Position))
		case i > 0:
			s.Heading = states[i-1].Heading
		}

		if !g.cfg.Holonomic {
			rotation = s.Heading
			if p.IsReversed() {
				rotation = utils.WrapAngle(rotation + math.Pi)
			}
		}
		s.Pose = spatialmath.Pose{Point: pt.Position, Rotation: rotation}

		s.modules = make([]genModule, g.cfg.NumModules())
		for m, loc := range g.cfg.ModuleLocations {
			s.modules[m].fieldPos = pt.Position.Add(spatialmath.RotateBy(loc, rotation))
		}
		if i != 0 {
			prev := &states[i-1]
			s.deltaPos = spatialmath.Distance(pt.Position, prev.Pose.Point)
			s.deltaRot = utils.WrapAngle(rotation - prev.Pose.Rotation)
			for m := range s.modules {
				s.modules[m].deltaPos = spatialmath.Distance(s.modules[m].fieldPos, prev.modules[m].fieldPos)
			}
		}
	}

	for i := range states {
		s := &states[i]
		for m := range s.modules {
			mod := &s.modules[m]
			switch {
			case i < n-1 && spatialmath.Distance(states[i+1].modules[m].fieldPos, mod.fieldPos) > epsilon:
				mod.fieldAngle = spatialmath.AngleOf(states[i+1].modules[m].fieldPos.Sub(mod.fieldPos))
			case i > 0:
				mod.fieldAngle = states[i-1].modules[m].fieldAngle
			}
			mod.angle = utils.WrapAngle(mod.fieldAngle - s.Pose.Rotation)
		}
	}
	return states
}

func nextRotationTargetIdx(p *path.Path, start int) int {
	for i := start; i < p.NumPoints()-1; i++ {
		if p.Point(i).RotationTarget != nil {
			return i
		}
	}
	return p.NumPoints() - 1
}

// kinematicPasses bound each sample's chassis speed by the acceleration constraints alone, forward
// from the start speed and backward from the goal.
func (g *generator) kinematicPasses(states []genState, startV float64) {
	n := len(states)
	states[0].kinematicV = startV
	for i := 1; i < n; i++ {
		s := &states[i]
		reachable := math.Sqrt(utils.Square(states[i-1].kinematicV) + 2*s.constraints.MaxAcceleration*s.deltaPos)
		s.kinematicV = math.Min(reachable, g.path.Point(i).MaxV)
	}
	for i := n - 2; i > 0; i-- {
		s := &states[i]
		stoppable := math.Sqrt(utils.Square(states[i+1].kinematicV) + 2*s.constraints.MaxAcceleration*states[i+1].deltaPos)
		s.kinematicV = math.Min(s.kinematicV, stoppable)
	}
	for i := range states {
		states[i].kinematicV = utils.FiniteOr(states[i].kinematicV, g.cfg.Module.MaxDriveVelocity)
	}
}

func (g *generator) forwardPass(states []genState) {
	cfg := g.cfg
	mc := cfg.Module
	for i := 1; i < len(states)-1; i++ {
		prev, cur, next := &states[i-1], &states[i], &states[i+1]

		// Friction losses fight the motor while accelerating.
		forces := make([]float64, len(cur.modules))
		for m := range cur.modules {
			current := math.Min(mc.DriveMotor.Current(prev.modules[m].speed/mc.WheelRadius, cur.constraints.NominalVoltage), mc.DriveCurrentLimit)
			torque := math.Min(mc.DriveMotor.Torque(current)-mc.TorqueLoss, cfg.MaxTorqueFriction)
			forces[m] = torque / mc.WheelRadius
		}
		accels := g.moduleAccelerations(cur, forces, 0)

		for m := range cur.modules {
			v := math.Sqrt(math.Abs(utils.Square(prev.modules[m].speed) + 2*accels[m]*cur.modules[m].deltaPos))
			cur.modules[m].speed = g.frictionLimited(prev, cur, next, m, v)
		}

		g.resync(cur, next, prev)
		g.desaturate(cur, math.Min(cur.constraints.MaxVelocity, cur.kinematicV), cur.constraints.MaxAngularVelocity)
		g.updateChassisSpeeds(cur)
	}
}

func (g *generator) reversePass(states []genState) {
	cfg := g.cfg
	mc := cfg.Module
	for i := len(states) - 2; i > 0; i-- {
		cur, next := &states[i], &states[i+1]

		forces := make([]float64, len(cur.modules))
		for m := range cur.modules {
			current := math.Min(mc.DriveMotor.Current(next.modules[m].speed/mc.WheelRadius, cur.constraints.NominalVoltage), mc.DriveCurrentLimit)
			torque := math.Min(mc.DriveMotor.Torque(current), cfg.MaxTorqueFriction)
			forces[m] = torque / mc.WheelRadius
		}
		accels := g.moduleAccelerations(cur, forces, math.Pi)

		for m := range cur.modules {
			maxVel := math.Sqrt(math.Abs(utils.Square(next.modules[m].speed) + 2*accels[m]*next.modules[m].deltaPos))
			cur.modules[m].speed = math.Min(maxVel, cur.modules[m].speed)
		}

		g.resync(cur, next, &states[i-1])
		maxVel := math.Min(math.Min(cur.constraints.MaxVelocity, cur.LinearVelocity), cur.kinematicV)
		maxAngVel := math.Min(cur.constraints.MaxAngularVelocity, math.Abs(cur.FieldSpeeds.Omega))
		g.desaturate(cur, maxVel, maxAngVel)
		g.updateChassisSpeeds(cur)
	}
}

// moduleAccelerations sums the wheel forces, applied along each module's direction of travel
// rotated by offset, into a chassis acceleration limited by the sample's constraints and returns
// the acceleration each module sees.
func (g *generator) moduleAccelerations(s *genState, forces []float64, offset float64) []float64 {
	cfg := g.cfg
	var linearForce r2.Point
	var torque float64
	for m, mod := range s.modules {
		forceVec := spatialmath.PolarPoint(forces[m], mod.fieldAngle+offset)
		linearForce = linearForce.Add(forceVec)

		angleToModule := spatialmath.AngleOf(mod.fieldPos.Sub(s.Pose.Point))
		var forceAngle float64
		if forceVec.Norm() > epsilon {
			forceAngle = spatialmath.AngleOf(forceVec)
		}
		torque += forces[m] * cfg.ModulePivotDistance[m] * math.Sin(forceAngle-angleToModule)
	}

	maxAngAccel := s.constraints.MaxAngularAcceleration
	angularAccel := utils.Clamp(torque/cfg.MOI, -maxAngAccel, maxAngAccel)

	accel := linearForce.Mul(1 / cfg.Mass)
	if norm := accel.Norm(); norm > s.constraints.MaxAcceleration {
		accel = accel.Mul(s.constraints.MaxAcceleration / norm)
	}

	chassisAccel := kinematics.FromFieldRelative(
		kinematics.ChassisSpeeds{Vx: accel.X, Vy: accel.Y, Omega: angularAccel}, s.Pose.Rotation)
	out := make([]float64, len(s.modules))
	for m, ms := range cfg.ToModuleStates(chassisAccel) {
		out[m] = math.Abs(ms.Speed)
	}
	return out
}

// frictionLimited caps v so the centripetal force on module m stays under the wheel's grip.
func (g *generator) frictionLimited(prev, cur, next *genState, m int, v float64) float64 {
	radius := spatialmath.CalculateRadius(prev.modules[m].fieldPos, cur.modules[m].fieldPos, next.modules[m].fieldPos)
	if !utils.IsFinite(radius) {
		return v
	}
	massPerModule := g.cfg.Mass / float64(g.cfg.NumModules())
	return math.Min(v, math.Sqrt(g.cfg.WheelFrictionForce*math.Abs(radius)/massPerModule))
}

// resync makes every module that is not turning sharply reach the next sample at the same time, the
// time of the slowest such module. ref is the sample module turning is measured against.
func (g *generator) resync(cur, next, ref *genState) {
	sharp := make([]bool, len(cur.modules))
	var maxDT, realMaxDT float64
	for m := range cur.modules {
		sharp[m] = math.Abs(utils.WrapAngle(cur.modules[m].angle-ref.modules[m].angle)) >= sharpModuleTurn
		dt := next.modules[m].deltaPos / cur.modules[m].speed
		if !utils.IsFinite(dt) {
			continue
		}
		realMaxDT = math.Max(realMaxDT, dt)
		if !sharp[m] {
			maxDT = math.Max(maxDT, dt)
		}
	}
	if maxDT == 0 {
		maxDT = realMaxDT
	}
	if maxDT <= 0 {
		return
	}
	for m := range cur.modules {
		if !sharp[m] {
			cur.modules[m].speed = next.modules[m].deltaPos / maxDT
		}
	}
}

// desaturate scales the module speeds uniformly so no module exceeds its top speed and the chassis
// stays within maxVel and maxAngVel.
func (g *generator) desaturate(s *genState, maxVel, maxAngVel float64) {
	speeds := make([]float64, len(s.modules))
	for m, mod := range s.modules {
		speeds[m] = math.Abs(mod.speed)
	}
	realMax := floats.Max(speeds)
	if realMax == 0 {
		return
	}

	desired := g.cfg.ToChassisSpeeds(s.moduleStates())
	var translationPct, rotationPct float64
	if math.Abs(maxVel) > 1e-8 {
		translationPct = desired.LinearVelocity() / maxVel
	}
	if math.Abs(maxAngVel) > 1e-8 {
		rotationPct = math.Abs(desired.Omega) / math.Abs(maxAngVel)
	}
	maxPct := math.Max(translationPct, rotationPct)

	scale := math.Min(1, g.cfg.Module.MaxDriveVelocity/realMax)
	if maxPct > 0 {
		scale = math.Min(scale, 1/maxPct)
	}
	for m := range s.modules {
		s.modules[m].speed *= scale
	}
}

func (g *generator) updateChassisSpeeds(s *genState) {
	for m := range s.modules {
		s.modules[m].speed = utils.FiniteOr(s.modules[m].speed, g.cfg.Module.MaxDriveVelocity)
	}
	s.FieldSpeeds = kinematics.FromRobotRelative(g.cfg.ToChassisSpeeds(s.moduleStates()), s.Pose.Rotation)
	s.LinearVelocity = utils.FiniteOr(s.FieldSpeeds.LinearVelocity(), s.kinematicV)
}

// timePass integrates time along the profile, derives each sample's angular velocity and wheel
// feedforwards, and resolves event markers to timestamps.
func (g *generator) timePass(states []genState) []Event {
	cfg := g.cfg
	numModules := cfg.NumModules()
	for i := range states {
		states[i].Wheels = make([]WheelState, numModules)
	}

	pending := pendingEvents(g.path.EventMarkers())
	var events []Event

	for i := 1; i < len(states); i++ {
		prev, cur := &states[i-1], &states[i]
		sumV := prev.LinearVelocity + cur.LinearVelocity

		if math.Abs(sumV) < epsilon || math.Abs(cur.deltaPos) < epsilon {
			cur.Time = prev.Time
			if i != 1 {
				copy(prev.Wheels, states[i-2].Wheels)
			}
		} else {
			dt := 2 * cur.deltaPos / sumV
			cur.Time = prev.Time + dt
			cur.FieldSpeeds.Omega = cur.deltaRot / dt

			prevRobot := kinematics.FromFieldRelative(prev.FieldSpeeds, prev.Pose.Rotation)
			robot := kinematics.FromFieldRelative(cur.FieldSpeeds, cur.Pose.Rotation)
			chassisForces := kinematics.ChassisSpeeds{
				Vx:    (robot.Vx - prevRobot.Vx) / dt * cfg.Mass,
				Vy:    (robot.Vy - prevRobot.Vy) / dt * cfg.Mass,
				Omega: (robot.Omega - prevRobot.Omega) / dt * cfg.MOI,
			}
			for m, f := range cfg.ChassisForcesToWheelForces(chassisForces) {
				var applied float64
				if f.Norm() > epsilon {
					applied = f.Norm() * math.Cos(spatialmath.AngleOf(f)-cur.modules[m].angle)
				}
				prev.Wheels[m].Acceleration = (cur.modules[m].speed - prev.modules[m].speed) / dt
				prev.Wheels[m].Force = applied
				prev.Wheels[m].ForceX = f.X
				prev.Wheels[m].ForceY = f.Y
				prev.Wheels[m].TorqueCurrent = cfg.Module.DriveMotor.CurrentForTorque(applied * cfg.Module.WheelRadius)
			}
		}

		for len(pending) > 0 &&
			math.Abs(pending[0].Position-prev.WaypointRelativePos) <= math.Abs(pending[0].Position-cur.WaypointRelativePos) {
			e := pending[0]
			e.Time = prev.Time
			events = append(events, e)
			pending = pending[1:]
		}
	}
	for _, e := range pending {
		e.Time = states[len(states)-1].Time
		events = append(events, e)
	}

	for i := range states {
		for m, mod := range states[i].modules {
			states[i].Wheels[m].Speed = mod.speed
			states[i].Wheels[m].Angle = mod.angle
		}
	}
	// The end state has nothing left to feed forward to.
	last := states[len(states)-1].Wheels
	for m := range last {
		last[m] = WheelState{Speed: last[m].Speed, Angle: last[m].Angle}
	}
	return events
}

// compact drops samples that add no time so the result is strictly increasing in time, keeping the
// final sample, and replaces anything non-finite.
func compact(states []genState, maxSpeed float64) []State {
	out := make([]State, 0, len(states))
	out = append(out, sanitize(states[0].State, maxSpeed))
	for i := 1; i < len(states); i++ {
		s := sanitize(states[i].State, maxSpeed)
		switch {
		case s.Time > out[len(out)-1].Time:
			out = append(out, s)
		case i == len(states)-1 && len(out) > 1:
			out[len(out)-1] = s
		case i == len(states)-1:
			out = append(out, s)
		}
	}
	return out
}

// sanitize replaces non-finite values: speeds with maxSpeed, feedforwards and angular rates with 0.
func sanitize(s State, maxSpeed float64) State {
	s.Time = utils.FiniteOr(s.Time, 0)
	s.LinearVelocity = utils.FiniteOr(s.LinearVelocity, maxSpeed)
	if !utils.IsFinite(s.FieldSpeeds.Vx) || !utils.IsFinite(s.FieldSpeeds.Vy) {
		v := spatialmath.PolarPoint(s.LinearVelocity, s.Heading)
		s.FieldSpeeds.Vx, s.FieldSpeeds.Vy = v.X, v.Y
	}
	s.FieldSpeeds.Omega = utils.FiniteOr(s.FieldSpeeds.Omega, 0)
	s.Pose.Rotation = utils.FiniteOr(s.Pose.Rotation, 0)
	s.Heading = utils.FiniteOr(s.Heading, 0)

	wheels := make([]WheelState, len(s.Wheels))
	for m, w := range s.Wheels {
		wheels[m] = WheelState{
			Speed:         utils.FiniteOr(w.Speed, maxSpeed),
			Angle:         utils.FiniteOr(w.Angle, 0),
			Acceleration:  utils.FiniteOr(w.Acceleration, 0),
			Force:         utils.FiniteOr(w.Force, 0),
			ForceX:        utils.FiniteOr(w.ForceX, 0),
			ForceY:        utils.FiniteOr(w.ForceY, 0),
			TorqueCurrent: utils.FiniteOr(w.TorqueCurrent, 0),
		}
	}
	s.Wheels = wheels
	return s
}
