// Package cli contains the ppgen command line tool, which generates trajectories from path editor
// files and robot settings.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ppgo/pathplanner/config"
	"github.com/ppgo/pathplanner/kinematics"
	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/trajectory"
	"github.com/ppgo/pathplanner/utils"
)

const (
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagSettings    = "settings"
	flagOutDir      = "out-dir"
	flagFlip        = "flip"
	flagPeriod      = "period"
	flagConcurrency = "concurrency"
)

var settingsFlag = &cli.StringFlag{
	Name:     flagSettings,
	Aliases:  []string{"s"},
	Usage:    "robot settings `FILE`",
	Required: true,
}

var flipFlag = &cli.BoolFlag{
	Name:  flagFlip,
	Usage: "flip the trajectory to the other alliance's side of the field",
}

// NewApp returns the ppgen app with its Writer set to out.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:            "ppgen",
		Usage:           "generate and inspect robot trajectories",
		HideHelpCommand: true,
		Writer:          out,
		Metadata:        map[string]interface{}{},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.StringFlag{
				Name:  flagLogFile,
				Usage: "write logs to `FILE` instead of stdout, rotating it as it grows",
			},
		},
		Before: setupLogger,
		After:  closeLogger,
		Commands: []*cli.Command{
			{
				Name:      "generate",
				Usage:     "generate trajectories for one or more paths",
				ArgsUsage: "<path files...>",
				Flags: []cli.Flag{
					settingsFlag,
					flipFlag,
					&cli.StringFlag{
						Name:  flagOutDir,
						Usage: "write each trajectory as JSON into `DIR`",
					},
					&cli.IntFlag{
						Name:  flagConcurrency,
						Usage: "paths to generate at once",
						Value: runtime.NumCPU(),
					},
				},
				Action: GenerateAction,
			},
			{
				Name:      "print",
				Usage:     "print a trajectory sampled at a fixed period",
				ArgsUsage: "<path file>",
				Flags: []cli.Flag{
					settingsFlag,
					flipFlag,
					&cli.Float64Flag{
						Name:  flagPeriod,
						Usage: "sample period in seconds",
						Value: 0.1,
					},
				},
				Action: PrintAction,
			},
			{
				Name:      "summary",
				Usage:     "print velocity and current statistics for one or more paths",
				ArgsUsage: "<path files...>",
				Flags:     []cli.Flag{settingsFlag},
				Action:    SummaryAction,
			},
			{
				Name:      "plot",
				Usage:     "plot velocity over time and the driven route of a path",
				ArgsUsage: "<path file>",
				Flags: []cli.Flag{
					settingsFlag,
					flipFlag,
					&cli.StringFlag{
						Name:     flagOutDir,
						Usage:    "write the PNG plots into `DIR`",
						Required: true,
					},
				},
				Action: PlotAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schema of the robot settings file",
				Action: SchemaAction,
			},
			{
				Name:      "watch",
				Usage:     "regenerate a path every time the robot settings change",
				ArgsUsage: "<path file>",
				Flags:     []cli.Flag{settingsFlag},
				Action:    WatchAction,
			},
		},
	}
}

const (
	loggerKey  = "logger"
	logFileKey = "logFile"
)

func setupLogger(c *cli.Context) error {
	level := logging.INFO
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	var logger logging.Logger
	if name := c.String(flagLogFile); name != "" {
		file := &lumberjack.Logger{Filename: name, MaxSize: 10, MaxBackups: 3}
		c.App.Metadata[logFileKey] = file
		logger = logging.NewWriterLogger("ppgen", level, file)
	} else if level == logging.DEBUG {
		logger = logging.NewDebugLogger("ppgen")
	} else {
		logger = logging.NewLogger("ppgen")
	}
	c.App.Metadata[loggerKey] = logger
	return nil
}

func closeLogger(c *cli.Context) error {
	if logger, ok := c.App.Metadata[loggerKey].(logging.Logger); ok {
		_ = logger.Sync()
	}
	if file, ok := c.App.Metadata[logFileKey].(*lumberjack.Logger); ok {
		return file.Close()
	}
	return nil
}

func loggerFromContext(c *cli.Context) logging.Logger {
	if logger, ok := c.App.Metadata[loggerKey].(logging.Logger); ok {
		return logger
	}
	return logging.NewLogger("ppgen")
}

func pathArgs(c *cli.Context, exactlyOne bool) ([]string, error) {
	args := c.Args().Slice()
	switch {
	case len(args) == 0:
		return nil, errors.New("no path files given")
	case exactlyOne && len(args) > 1:
		return nil, errors.Errorf("expected one path file, got %d", len(args))
	}
	return args, nil
}

// generated is one path file's trajectory.
type generated struct {
	name string
	traj *trajectory.Trajectory
}

func generateFile(filePath string, settings *config.Settings, flip bool) (generated, error) {
	def, err := readPathFile(filePath, settings)
	if err != nil {
		return generated{}, err
	}
	cfg, err := settings.RobotConfig()
	if err != nil {
		return generated{}, err
	}
	start := kinematics.ChassisSpeeds{Vx: def.startVelocity}
	traj, err := trajectory.Generate(def.path, start, def.startRotation, cfg)
	if err != nil {
		return generated{}, errors.Wrapf(err, "cannot generate %q", def.name)
	}
	if flip {
		traj = traj.Flip(settings.Field())
	}
	return generated{name: def.name, traj: traj}, nil
}

// generateAll generates every file with at most limit running at once, keeping the input order.
func generateAll(c *cli.Context, files []string, settings *config.Settings, flip bool, limit int) ([]generated, error) {
	results := make([]generated, len(files))
	g, ctx := errgroup.WithContext(c.Context)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := generateFile(f, settings, flip)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// trajectoryFile is the JSON document written by generate --out-dir.
type trajectoryFile struct {
	Name      string             `json:"name"`
	TotalTime float64            `json:"totalTime"`
	States    []trajectory.State `json:"states"`
	Events    []trajectory.Event `json:"events"`
}

func writeTrajectory(dir string, res generated) error {
	data, err := json.MarshalIndent(trajectoryFile{
		Name:      res.name,
		TotalTime: res.traj.TotalTime(),
		States:    res.traj.States(),
		Events:    res.traj.Events(),
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, res.name+".traj.json"), data, 0o600)
}

// GenerateAction is the corresponding Action for 'generate'.
func GenerateAction(c *cli.Context) error {
	files, err := pathArgs(c, false)
	if err != nil {
		return err
	}
	logger := loggerFromContext(c)
	settings, err := config.Read(c.String(flagSettings), logger)
	if err != nil {
		return err
	}
	results, err := generateAll(c, files, settings, c.Bool(flagFlip), c.Int(flagConcurrency))
	if err != nil {
		return err
	}

	outDir := c.String(flagOutDir)
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o750); err != nil {
			return err
		}
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Path", "States", "Time (s)", "Peak Velocity (m/s)", "Events"})
	for _, res := range results {
		peak := 0.0
		for _, s := range res.traj.States() {
			peak = max(peak, math.Abs(s.LinearVelocity))
		}
		t.AppendRow(table.Row{
			res.name,
			res.traj.NumStates(),
			fmt.Sprintf("%.3f", res.traj.TotalTime()),
			fmt.Sprintf("%.3f", peak),
			len(res.traj.Events()),
		})
		if outDir != "" {
			if err := writeTrajectory(outDir, res); err != nil {
				return errors.Wrapf(err, "cannot write trajectory %q", res.name)
			}
			logger.Debugw("wrote trajectory", "name", res.name, "dir", outDir)
		}
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// PrintAction is the corresponding Action for 'print'.
func PrintAction(c *cli.Context) error {
	files, err := pathArgs(c, true)
	if err != nil {
		return err
	}
	period := c.Float64(flagPeriod)
	if period <= 0 {
		return errors.Errorf("--%s must be positive, got %v", flagPeriod, period)
	}
	settings, err := config.Read(c.String(flagSettings), loggerFromContext(c))
	if err != nil {
		return err
	}
	res, err := generateFile(files[0], settings, c.Bool(flagFlip))
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Time (s)", "X (m)", "Y (m)", "Heading (deg)", "Rotation (deg)", "Velocity (m/s)"})
	total := res.traj.TotalTime()
	for i := 0; ; i++ {
		tm := min(float64(i)*period, total)
		s := res.traj.Sample(tm)
		t.AppendRow(table.Row{
			fmt.Sprintf("%.2f", s.Time),
			fmt.Sprintf("%.3f", s.Pose.Point.X),
			fmt.Sprintf("%.3f", s.Pose.Point.Y),
			fmt.Sprintf("%.1f", utils.RadToDeg(s.Heading)),
			fmt.Sprintf("%.1f", utils.RadToDeg(s.Pose.Rotation)),
			fmt.Sprintf("%.3f", s.LinearVelocity),
		})
		if tm >= total {
			break
		}
	}
	printf(c.App.Writer, "%s", t.Render())
	for _, e := range res.traj.Events() {
		printf(c.App.Writer, "%.3fs %s %s", e.Time, e.Kind, e.Name)
	}
	return nil
}

// SummaryAction is the corresponding Action for 'summary'.
func SummaryAction(c *cli.Context) error {
	files, err := pathArgs(c, false)
	if err != nil {
		return err
	}
	settings, err := config.Read(c.String(flagSettings), loggerFromContext(c))
	if err != nil {
		return err
	}
	results, err := generateAll(c, files, settings, false, 0)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row{"Path", "Time (s)", "Mean v", "P95 v", "Max v", "Mean |a|", "Max Current (A)"})
	for _, res := range results {
		sum, err := summarize(res.traj)
		if err != nil {
			return errors.Wrapf(err, "cannot summarize %q", res.name)
		}
		t.AppendRow(table.Row{
			res.name,
			fmt.Sprintf("%.3f", res.traj.TotalTime()),
			fmt.Sprintf("%.3f", sum.meanVelocity),
			fmt.Sprintf("%.3f", sum.p95Velocity),
			fmt.Sprintf("%.3f", sum.maxVelocity),
			fmt.Sprintf("%.3f", sum.meanAcceleration),
			fmt.Sprintf("%.1f", sum.maxCurrent),
		})
	}
	printf(c.App.Writer, "%s", t.Render())
	return nil
}

// PlotAction is the corresponding Action for 'plot'.
func PlotAction(c *cli.Context) error {
	files, err := pathArgs(c, true)
	if err != nil {
		return err
	}
	settings, err := config.Read(c.String(flagSettings), loggerFromContext(c))
	if err != nil {
		return err
	}
	res, err := generateFile(files[0], settings, c.Bool(flagFlip))
	if err != nil {
		return err
	}
	outDir := c.String(flagOutDir)
	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return err
	}
	written, err := plotTrajectory(res.name, res.traj, outDir)
	if err != nil {
		return err
	}
	for _, f := range written {
		printf(c.App.Writer, "wrote %s", f)
	}
	return nil
}

// SchemaAction is the corresponding Action for 'schema'.
func SchemaAction(c *cli.Context) error {
	data, err := json.MarshalIndent(config.Schema(), "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", data)
	return nil
}

// WatchAction is the corresponding Action for 'watch'.
func WatchAction(c *cli.Context) error {
	files, err := pathArgs(c, true)
	if err != nil {
		return err
	}
	logger := loggerFromContext(c)
	settingsPath := c.String(flagSettings)
	settings, err := config.Read(settingsPath, logger)
	if err != nil {
		return err
	}

	report := func(settings *config.Settings) {
		res, err := generateFile(files[0], settings, false)
		if err != nil {
			logger.Warnw("cannot regenerate trajectory", "path", files[0], "error", err)
			return
		}
		printf(c.App.Writer, "%s: %d states, %.3fs", res.name, res.traj.NumStates(), res.traj.TotalTime())
	}
	report(settings)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return config.Watch(ctx, settingsPath, logger, report)
}

func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	_, _ = fmt.Fprintf(w, format+"\n", a...)
}
