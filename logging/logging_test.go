package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.viam.com/test"
)

func splitLine(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("planner", DEBUG, &buf)

	logger.Info("generated trajectory")
	parts := splitLine(t, &buf)
	test.That(t, len(parts), test.ShouldEqual, 5)
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "planner")
	test.That(t, strings.HasPrefix(parts[3], "logging/logging_test.go:"), test.ShouldBeTrue)
	test.That(t, parts[4], test.ShouldEqual, "generated trajectory")

	logger.Debugf("states: %d", 21)
	parts = splitLine(t, &buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[4], test.ShouldEqual, "states: 21")
}

func TestStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("planner", DEBUG, &buf)

	logger.Warnw("lookahead fallback", "radius", 1.5, "idx", 3)
	parts := splitLine(t, &buf)
	test.That(t, len(parts), test.ShouldEqual, 6)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[4], test.ShouldEqual, "lookahead fallback")

	fields := map[string]any{}
	test.That(t, json.Unmarshal([]byte(parts[5]), &fields), test.ShouldBeNil)
	test.That(t, fields["radius"], test.ShouldEqual, 1.5)
	test.That(t, fields["idx"], test.ShouldEqual, 3.0)
}

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("planner", WARN, &buf)
	logger.Debug("hidden")
	logger.Info("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Error("shown")
	test.That(t, splitLine(t, &buf)[1], test.ShouldEqual, "ERROR")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debug("now shown")
	test.That(t, splitLine(t, &buf)[1], test.ShouldEqual, "DEBUG")

	for _, tc := range []struct {
		in       string
		expected Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"Warning", WARN},
		{"error", ERROR},
	} {
		level, err := LevelFromString(tc.in)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, tc.expected)
		test.That(t, levelFromZap(level.AsZap()), test.ShouldEqual, level)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSublogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger("ppgen", INFO, &buf)
	sub := logger.Sublogger("pathfinding")
	sub.Info("hello")
	test.That(t, splitLine(t, &buf)[2], test.ShouldEqual, "ppgen.pathfinding")

	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
	sub.Warn("hidden")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	logger.Warn("shown")
	test.That(t, splitLine(t, &buf)[2], test.ShouldEqual, "ppgen")
}

func TestBlankLogger(t *testing.T) {
	logger := NewBlankLogger("quiet")
	logger.Errorw("dropped", "key", "value")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Infow("new path available", "points", 4)
	logger.Sublogger("sub").Error("failed")

	test.That(t, logs.FilterMessage("new path available").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("fail").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterField(logs.All()[0].Context[0]).Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[1].LoggerName, test.ShouldEqual, "sub")
}
