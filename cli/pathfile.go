package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/ppgo/pathplanner/config"
	"github.com/ppgo/pathplanner/path"
	"github.com/ppgo/pathplanner/utils"
)

// constraintsFile is PathConstraints as saved by the path editor, with angles in degrees.
type constraintsFile struct {
	MaxVelocity            float64 `json:"maxVelocity"`
	MaxAcceleration        float64 `json:"maxAcceleration"`
	MaxAngularVelocity     float64 `json:"maxAngularVelocity"`
	MaxAngularAcceleration float64 `json:"maxAngularAcceleration"`
	NominalVoltage         float64 `json:"nominalVoltage"`
	Unlimited              bool    `json:"unlimited"`
}

func (c constraintsFile) constraints() path.PathConstraints {
	return path.PathConstraints{
		MaxVelocity:            c.MaxVelocity,
		MaxAcceleration:        c.MaxAcceleration,
		MaxAngularVelocity:     utils.DegToRad(c.MaxAngularVelocity),
		MaxAngularAcceleration: utils.DegToRad(c.MaxAngularAcceleration),
		NominalVoltage:         c.NominalVoltage,
		Unlimited:              c.Unlimited,
	}
}

type rotationTargetFile struct {
	Position        float64 `json:"waypointRelativePos"`
	RotationDegrees float64 `json:"rotationDegrees"`
	RotateFast      bool    `json:"rotateFast"`
}

type zoneFile struct {
	Name        string          `json:"name"`
	MinPos      float64         `json:"minWaypointRelativePos"`
	MaxPos      float64         `json:"maxWaypointRelativePos"`
	Constraints constraintsFile `json:"constraints"`
}

type markerFile struct {
	Name                   string   `json:"name"`
	WaypointRelativePos    float64  `json:"waypointRelativePos"`
	EndWaypointRelativePos *float64 `json:"endWaypointRelativePos"`
	MinimumTriggerDistance float64  `json:"minimumTriggerDistance"`
}

type endStateFile struct {
	Velocity   float64 `json:"velocity"`
	Rotation   float64 `json:"rotation"`
	RotateFast bool    `json:"rotateFast"`
}

// pathFile is the path editor's .path document.
type pathFile struct {
	Version            string               `json:"version"`
	Waypoints          []path.Waypoint      `json:"waypoints"`
	RotationTargets    []rotationTargetFile `json:"rotationTargets"`
	ConstraintZones    []zoneFile           `json:"constraintZones"`
	EventMarkers       []markerFile         `json:"eventMarkers"`
	GlobalConstraints  constraintsFile      `json:"globalConstraints"`
	GoalEndState       endStateFile         `json:"goalEndState"`
	Reversed           bool                 `json:"reversed"`
	IdealStartingState *endStateFile        `json:"idealStartingState"`
	// UseDefaultConstraints takes the global constraints from the robot settings instead.
	UseDefaultConstraints bool `json:"useDefaultConstraints"`
}

// pathDefinition is a loaded path plus the state the robot is expected to start in.
type pathDefinition struct {
	name          string
	path          *path.Path
	startVelocity float64
	startRotation float64
}

func readPathFile(filePath string, settings *config.Settings) (*pathDefinition, error) {
	//nolint:gosec
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(data, &attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to decode path %q", filePath)
	}

	var pf pathFile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &pf,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attributes); err != nil {
		return nil, errors.Wrapf(err, "failed to process path %q", filePath)
	}

	def, err := pf.definition(settings)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid path %q", filePath)
	}
	def.name = strings.TrimSuffix(filepath.Base(filePath), filepath.Ext(filePath))
	return def, nil
}

func (pf pathFile) definition(settings *config.Settings) (*pathDefinition, error) {
	opts := path.Options{
		RotationTargets: lo.Map(pf.RotationTargets, func(t rotationTargetFile, _ int) path.RotationTarget {
			return path.RotationTarget{Position: t.Position, Rotation: utils.DegToRad(t.RotationDegrees), RotateFast: t.RotateFast}
		}),
		ConstraintZones: lo.Map(pf.ConstraintZones, func(z zoneFile, _ int) path.ConstraintsZone {
			return path.ConstraintsZone{MinPos: z.MinPos, MaxPos: z.MaxPos, Constraints: z.Constraints.constraints()}
		}),
		EventMarkers: lo.Map(pf.EventMarkers, func(m markerFile, _ int) path.EventMarker {
			marker := path.NewEventMarker(m.Name, m.WaypointRelativePos)
			if m.EndWaypointRelativePos != nil {
				marker.EndWaypointRelativePos = *m.EndWaypointRelativePos
			}
			if m.MinimumTriggerDistance > 0 {
				marker.MinimumTriggerDistance = m.MinimumTriggerDistance
			}
			return marker
		}),
		Reversed: pf.Reversed,
	}
	def := &pathDefinition{}
	if pf.IdealStartingState != nil {
		def.startVelocity = pf.IdealStartingState.Velocity
		def.startRotation = utils.DegToRad(pf.IdealStartingState.Rotation)
		opts.PreviewStartingRotation = def.startRotation
	}
	goal := path.GoalEndState{
		Velocity:   pf.GoalEndState.Velocity,
		Rotation:   utils.DegToRad(pf.GoalEndState.Rotation),
		RotateFast: pf.GoalEndState.RotateFast,
	}

	global := pf.GlobalConstraints
	if pf.UseDefaultConstraints && settings != nil {
		global = constraintsFile{
			MaxVelocity:            settings.DefaultMaxVel,
			MaxAcceleration:        settings.DefaultMaxAccel,
			MaxAngularVelocity:     settings.DefaultMaxAngVel,
			MaxAngularAcceleration: settings.DefaultMaxAngAccel,
			NominalVoltage:         settings.NominalVoltage(),
		}
	}
	p, err := path.FromWaypoints(pf.Waypoints, global.constraints(), goal, opts)
	if err != nil {
		return nil, err
	}
	def.path = p
	return def, nil
}
