package cli

import (
	"math"

	"github.com/montanaflynn/stats"

	"github.com/ppgo/pathplanner/trajectory"
)

type trajectorySummary struct {
	meanVelocity     float64
	p95Velocity      float64
	maxVelocity      float64
	meanAcceleration float64
	maxCurrent       float64
}

// summarize computes the statistics of traj's states. Speeds are taken as magnitudes so reversed
// trajectories read the same as forward ones.
func summarize(traj *trajectory.Trajectory) (trajectorySummary, error) {
	var velocities, accelerations, currents stats.Float64Data
	for _, s := range traj.States() {
		velocities = append(velocities, math.Abs(s.LinearVelocity))
		for _, w := range s.Wheels {
			accelerations = append(accelerations, math.Abs(w.Acceleration))
			currents = append(currents, math.Abs(w.TorqueCurrent))
		}
	}

	var sum trajectorySummary
	var err error
	if sum.meanVelocity, err = stats.Mean(velocities); err != nil {
		return sum, err
	}
	if sum.p95Velocity, err = stats.Percentile(velocities, 95); err != nil {
		return sum, err
	}
	if sum.maxVelocity, err = stats.Max(velocities); err != nil {
		return sum, err
	}
	if sum.meanAcceleration, err = stats.Mean(accelerations); err != nil {
		return sum, err
	}
	if sum.maxCurrent, err = stats.Max(currents); err != nil {
		return sum, err
	}
	return sum, nil
}
