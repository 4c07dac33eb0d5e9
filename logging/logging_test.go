package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"
)

func newBufferLogger(name string) (Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	logger := NewBlankLogger(name)
	logger.AddAppender(NewWriterAppender(buf))
	return logger, buf
}

func TestLevelFiltering(t *testing.T) {
	logger, buf := newBufferLogger("touch")
	logger.SetLevel(WARN)

	logger.Debug("dropped")
	logger.Infof("dropped %d", 1)
	logger.Warnw("kept", "pressure", 12)
	logger.Errorf("also kept %s", "here")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)
	test.That(t, lines[0], test.ShouldContainSubstring, "WARN")
	test.That(t, lines[0], test.ShouldContainSubstring, "touch")
	test.That(t, lines[0], test.ShouldContainSubstring, `"pressure": 12`)
	test.That(t, lines[1], test.ShouldContainSubstring, "also kept here")
}

func TestCallerIsLogSite(t *testing.T) {
	logger, buf := newBufferLogger("")
	logger.Info("where am i")
	test.That(t, buf.String(), test.ShouldContainSubstring, "logging/logging_test.go:")
}

func TestSublogger(t *testing.T) {
	logger, buf := newBufferLogger("touchctl")
	logger.SetLevel(INFO)
	sub := logger.Sublogger("ads7846")
	test.That(t, sub.GetLevel(), test.ShouldEqual, INFO)

	sub.Info("hello")
	test.That(t, buf.String(), test.ShouldContainSubstring, "touchctl.ads7846")

	// Changing the child's level does not move the parent's.
	sub.SetLevel(ERROR)
	test.That(t, logger.GetLevel(), test.ShouldEqual, INFO)
}

func TestUnpairedKey(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.Infow("odd fields", "only-key")
	entries := observed.All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	test.That(t, entries[0].ContextMap()["only-key"], test.ShouldNotBeNil)
}

func TestAsZap(t *testing.T) {
	logger, observed := NewObservedTestLogger(t)
	logger.SetLevel(INFO)
	zl := logger.AsZap()
	zl.Debugw("below level")
	zl.Infow("from zap", "x", 1)
	test.That(t, observed.FilterMessage("below level").Len(), test.ShouldEqual, 0)
	test.That(t, observed.FilterMessage("from zap").Len(), test.ShouldEqual, 1)
}

func TestLevelFromString(t *testing.T) {
	for inp, expected := range map[string]Level{
		"debug":   DEBUG,
		"Info":    INFO,
		"WARNING": WARN,
		" error ": ERROR,
	} {
		level, err := LevelFromString(inp)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestFileAppender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "touch.log")
	appender, closer := NewFileAppender(path, 1)
	logger := NewBlankLogger("touch")
	logger.AddAppender(appender)

	logger.Infow("touch down", "pressure", 40)
	test.That(t, logger.Sync(), test.ShouldBeNil)
	test.That(t, closer.Close(), test.ShouldBeNil)

	contents, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "touch down")
	test.That(t, string(contents), test.ShouldContainSubstring, `"pressure": 40`)
}
