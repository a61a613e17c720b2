package config

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ppgo/pathplanner/logging"
	"github.com/ppgo/pathplanner/spatialmath"
)

const swerveSettings = `{
	"robotMass": 74.088,
	"robotMOI": 6.883,
	"holonomicMode": true,
	"robotTrackwidth": 0.546,
	"robotWheelbase": 0.546,
	"driveWheelRadius": 0.048,
	"driveGearing": 5.143,
	"maxDriveSpeed": 5.45,
	"driveMotorType": "krakenX60",
	"driveCurrentLimit": 60,
	"wheelCOF": 1.2,
	"defaultMaxVel": 3.0,
	"defaultMaxAccel": 3.0,
	"defaultMaxAngVel": 540,
	"defaultMaxAngAccel": 720,
	"bumperOffsetX": 0.1
}`

func TestFromReader(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)

	settings, err := FromReader("settings.json", strings.NewReader(swerveSettings), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, settings.RobotMass, test.ShouldEqual, 74.088)
	test.That(t, settings.HolonomicMode, test.ShouldBeTrue)
	test.That(t, settings.DriveMotorType, test.ShouldEqual, "krakenX60")
	test.That(t, settings.NominalVoltage(), test.ShouldEqual, 12.0)
	test.That(t, settings.Field(), test.ShouldResemble, spatialmath.DefaultField)
	test.That(t, logs.FilterMessage("ignoring unknown settings field").Len(), test.ShouldEqual, 1)

	cfg, err := settings.RobotConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.NumModules(), test.ShouldEqual, 4)
	test.That(t, cfg.Module.DriveCurrentLimit, test.ShouldEqual, 60.0)

	t.Run("differential", func(t *testing.T) {
		var attrs map[string]interface{}
		test.That(t, json.Unmarshal([]byte(swerveSettings), &attrs), test.ShouldBeNil)
		attrs["holonomicMode"] = false
		attrs["numDriveMotors"] = 2
		delete(attrs, "robotWheelbase")
		raw, err := json.Marshal(attrs)
		test.That(t, err, test.ShouldBeNil)

		settings, err := FromReader("tank.json", strings.NewReader(string(raw)), logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, settings.NumDriveMotors, test.ShouldEqual, 2)
		cfg, err := settings.RobotConfig()
		test.That(t, err, test.ShouldBeNil)
		test.That(t, cfg.NumModules(), test.ShouldEqual, 2)
		test.That(t, cfg.Module.DriveCurrentLimit, test.ShouldEqual, 120.0)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := FromReader("bad.json", strings.NewReader(`{"robotMass": 10, "driveMotorType": "warp"`), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode")

		_, err = FromReader("bad.json", strings.NewReader(`{"robotMass": "heavy"}`), logger)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "failed to process")

		_, err = FromReader("bad.json", strings.NewReader(`{"robotMass": 10, "holonomicMode": true, "driveMotorType": "warp"}`), logger)
		test.That(t, err, test.ShouldNotBeNil)
		for _, field := range []string{"robotMOI", "robotWheelbase", "wheelCOF", "unknown driveMotorType"} {
			test.That(t, err.Error(), test.ShouldContainSubstring, field)
		}
		test.That(t, err.Error(), test.ShouldNotContainSubstring, "robotMass")
	})
}

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.json")
	test.That(t, os.WriteFile(file, []byte(swerveSettings), 0o600), test.ShouldBeNil)

	settings, err := Read(file, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, settings.Trackwidth, test.ShouldEqual, 0.546)

	_, err = Read(filepath.Join(dir, "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSchema(t *testing.T) {
	s := Schema()
	test.That(t, s.Title, test.ShouldEqual, "Robot settings")
	test.That(t, s.Required, test.ShouldContain, "robotMass")
	test.That(t, s.Required, test.ShouldNotContain, "robotWheelbase")

	raw, err := json.Marshal(s)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(raw), test.ShouldContainSubstring, `"driveMotorType"`)
	test.That(t, string(raw), test.ShouldContainSubstring, "top wheel speed")
}

func TestWatch(t *testing.T) {
	logger := logging.NewTestLogger(t)
	dir := t.TempDir()
	file := filepath.Join(dir, "settings.json")
	test.That(t, os.WriteFile(file, []byte(swerveSettings), 0o600), test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	changes := make(chan *Settings, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, file, logger, func(s *Settings) {
			select {
			case changes <- s:
			default:
			}
		})
	}()

	// The watcher must be registered before the write lands; retry until it is seen.
	updated := strings.Replace(swerveSettings, `"robotMass": 74.088`, `"robotMass": 60`, 1)
	var got *Settings
	for i := 0; i < 50 && got == nil; i++ {
		test.That(t, os.WriteFile(file, []byte(updated), 0o600), test.ShouldBeNil)
		select {
		case got = <-changes:
		case <-time.After(100 * time.Millisecond):
		}
	}
	test.That(t, got, test.ShouldNotBeNil)
	test.That(t, got.RobotMass, test.ShouldEqual, 60.0)

	cancel()
	select {
	case err := <-done:
		test.That(t, err, test.ShouldBeNil)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
