package cli

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ppgo/pathplanner/trajectory"
)

// plotTrajectory saves a velocity over time plot and a top down route plot of traj into dir and
// returns the files it wrote.
func plotTrajectory(name string, traj *trajectory.Trajectory, dir string) ([]string, error) {
	states := traj.States()
	velocity := make(plotter.XYs, len(states))
	route := make(plotter.XYs, len(states))
	for i, s := range states {
		velocity[i].X, velocity[i].Y = s.Time, s.LinearVelocity
		route[i].X, route[i].Y = s.Pose.Point.X, s.Pose.Point.Y
	}

	vp := plot.New()
	vp.Title.Text = name + " velocity"
	vp.X.Label.Text = "time (s)"
	vp.Y.Label.Text = "velocity (m/s)"
	if err := addLine(vp, velocity); err != nil {
		return nil, err
	}

	rp := plot.New()
	rp.Title.Text = name + " route"
	rp.X.Label.Text = "x (m)"
	rp.Y.Label.Text = "y (m)"
	if err := addLine(rp, route); err != nil {
		return nil, err
	}
	start, err := plotter.NewScatter(route[:1])
	if err != nil {
		return nil, err
	}
	rp.Add(start)

	velocityFile := filepath.Join(dir, name+"_velocity.png")
	if err := vp.Save(8*vg.Inch, 4*vg.Inch, velocityFile); err != nil {
		return nil, errors.Wrapf(err, "cannot save %q", velocityFile)
	}
	routeFile := filepath.Join(dir, name+"_route.png")
	if err := rp.Save(6*vg.Inch, 6*vg.Inch, routeFile); err != nil {
		return nil, errors.Wrapf(err, "cannot save %q", routeFile)
	}
	return []string{velocityFile, routeFile}, nil
}

func addLine(p *plot.Plot, xys plotter.XYs) error {
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	return nil
}
