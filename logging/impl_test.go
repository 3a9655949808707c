package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func newBufferLogger(name string, level Level) (*logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := newLogger(name, level, true)
	l.AddAppender(NewWriterAppender(buf))
	return l, buf
}

func readParts(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	line, err := buf.ReadString('\n')
	test.That(t, err, test.ShouldBeNil)
	return strings.Split(strings.TrimSuffix(line, "\n"), "\t")
}

func TestConsoleFormat(t *testing.T) {
	logger, buf := newBufferLogger("impl", INFO)

	logger.Infow("hello planner")
	parts := readParts(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 5)
	test.That(t, len(parts[0]), test.ShouldEqual, len("2006-01-02T15:04:05.000Z"))
	test.That(t, parts[1], test.ShouldEqual, "INFO")
	test.That(t, parts[2], test.ShouldEqual, "impl")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "hello planner")

	logger.Warnw("dropped goals", "count", 2)
	parts = readParts(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "WARN")
	test.That(t, parts[4], test.ShouldEqual, "dropped goals")
	test.That(t, parts[5], test.ShouldEqual, `{"count":2}`)

	logger.Infow("expanded", "expansions", 12, "goal")
	parts = readParts(t, buf)
	test.That(t, parts, test.ShouldHaveLength, 6)
	test.That(t, parts[5], test.ShouldEqual, `{"expansions":12,"goal":"unpaired log key"}`)
}

func TestLevels(t *testing.T) {
	logger, buf := newBufferLogger("impl", WARN)

	logger.Debugw("no")
	logger.Infow("no")
	test.That(t, buf.Len(), test.ShouldEqual, 0)

	logger.Errorw("yes")
	test.That(t, readParts(t, buf)[1], test.ShouldEqual, "ERROR")

	logger.SetLevel(DEBUG)
	test.That(t, logger.GetLevel(), test.ShouldEqual, DEBUG)
	logger.Debugw("now", "k", "v")
	test.That(t, readParts(t, buf)[1], test.ShouldEqual, "DEBUG")
}

func TestContextDebug(t *testing.T) {
	logger, buf := newBufferLogger("impl", INFO)

	logger.CDebugw(context.Background(), "quiet")
	test.That(t, buf.Len(), test.ShouldEqual, 0)
	test.That(t, IsDebugMode(context.Background()), test.ShouldBeFalse)

	ctx := EnableDebugMode(context.Background())
	test.That(t, IsDebugMode(ctx), test.ShouldBeTrue)
	logger.CDebugw(ctx, "loud", "n", 2)
	parts := readParts(t, buf)
	test.That(t, parts[1], test.ShouldEqual, "DEBUG")
	test.That(t, parts[3], test.ShouldStartWith, "logging/impl_test.go:")
	test.That(t, parts[4], test.ShouldEqual, "loud")
	test.That(t, parts[5], test.ShouldStartWith, `{"n":2,"debug_id":"`)

	// each context gets its own id
	other := EnableDebugMode(context.Background())
	test.That(t, debugID(other), test.ShouldHaveLength, 8)
	test.That(t, debugID(other), test.ShouldNotEqual, debugID(ctx))
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("latticeplanner", INFO)
	sub := logger.Sublogger("search")
	sub.Infow("hi")
	test.That(t, readParts(t, buf)[2], test.ShouldEqual, "latticeplanner.search")

	// levels are copied, not shared
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestObservedLogger(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	logger.Warnw("goal dropped", "goalID", 3)
	logger.Infow("other")

	dropped := logs.FilterMessage("goal dropped").All()
	test.That(t, dropped, test.ShouldHaveLength, 1)
	test.That(t, dropped[0].ContextMap()["goalID"], test.ShouldEqual, int64(3))
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestLevelStrings(t *testing.T) {
	for _, level := range []Level{DEBUG, INFO, WARN, ERROR} {
		parsed, err := LevelFromString(strings.ToUpper(level.String()))
		test.That(t, err, test.ShouldBeNil)
		test.That(t, parsed, test.ShouldEqual, level)

		data, err := level.MarshalJSON()
		test.That(t, err, test.ShouldBeNil)
		var roundTrip Level
		test.That(t, roundTrip.UnmarshalJSON(data), test.ShouldBeNil)
		test.That(t, roundTrip, test.ShouldEqual, level)
	}

	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileAppender(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "planner.log")
	appender := NewFileAppender(filename, 1, 1)
	logger := NewBlankLogger("file")
	logger.SetLevel(INFO)
	logger.AddAppender(appender)

	logger.Infow("plan found", "cost", 2.5)
	logger.Debugw("hidden")
	test.That(t, appender.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, "plan found")
	test.That(t, string(data), test.ShouldContainSubstring, `{"cost":2.5}`)
	test.That(t, string(data), test.ShouldNotContainSubstring, "hidden")
}
