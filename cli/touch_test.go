package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/ads7846/components/touch"
	"go.viam.com/ads7846/components/touch/ads7846"
	"go.viam.com/ads7846/logging"
)

var testPairs = []touch.CalibrationPair{
	{Screen: touch.Point{X: 0, Y: 0}, Panel: touch.Point{X: 100, Y: 100}},
	{Screen: touch.Point{X: 100, Y: 0}, Panel: touch.Point{X: 900, Y: 100}},
	{Screen: touch.Point{X: 0, Y: 100}, Panel: touch.Point{X: 100, Y: 900}},
}

func writeTestJSON(t *testing.T, name string, v interface{}) string {
	t.Helper()
	out, err := json.Marshal(v)
	test.That(t, err, test.ShouldBeNil)
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, out, 0o600), test.ShouldBeNil)
	return path
}

func runApp(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := NewApp(&out, &errOut).Run(append([]string{"touchctl"}, args...))
	return out.String(), errOut.String(), err
}

// runPoll advances mock until fn returns.
func runPoll(mock *clock.Mock, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	for {
		select {
		case err := <-done:
			return err
		default:
			mock.Add(defaultPollInterval)
		}
	}
}

func TestPoll(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	panel := ads7846.NewSimulatedPanel()
	tch, err := ads7846.NewTouch(panel, &simulatedConfig, logger)
	test.That(t, err, test.ShouldBeNil)

	panel.Press(1000, 1000, 60)
	panel.QueuePressure(60, 60, 60, 0)
	panel.QueueX(1000, 1000, 2000, 2000)

	mock := clock.NewMock()
	err = runPoll(mock, func() error {
		return poll(context.Background(), mock, tch, defaultPollInterval, 4, logger)
	})
	test.That(t, err, test.ShouldBeNil)

	test.That(t, logs.FilterMessage("touch down").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("touch moved").Len(), test.ShouldEqual, 2)
	test.That(t, logs.FilterMessage("touch up").Len(), test.ShouldEqual, 1)
	test.That(t, tch.Contact(), test.ShouldBeFalse)

	opened, closed, xfers := panel.Stats()
	test.That(t, opened, test.ShouldEqual, closed)
	test.That(t, xfers, test.ShouldEqual, 3*3+1)
}

func TestPollStopsOnCancel(t *testing.T) {
	logger := logging.NewTestLogger(t)
	tch, err := ads7846.NewTouch(ads7846.NewSimulatedPanel(), &simulatedConfig, logger)
	test.That(t, err, test.ShouldBeNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = poll(ctx, clock.NewMock(), tch, defaultPollInterval, 0, logger)
	test.That(t, err, test.ShouldBeNil)

	err = poll(context.Background(), clock.NewMock(), tch, 0, 1, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "poll interval must be positive")
}

func TestCalibrateAction(t *testing.T) {
	points := writeTestJSON(t, "points.json", testPairs)
	output := filepath.Join(t.TempDir(), "coefficients.json")

	out, _, err := runApp(t, "calibrate", "--points", points, "--output", output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "residual error (px): mean 0.00, max 0.00, rms 0.00")
	test.That(t, out, test.ShouldContainSubstring, "coefficients written to")

	m, err := loadCoefficients(output)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Apply(touch.Point{X: 500, Y: 500}), test.ShouldResemble, touch.Point{X: 50, Y: 50})
}

func TestCalibrateActionWarnsOnRepeats(t *testing.T) {
	pairs := append([]touch.CalibrationPair{}, testPairs...)
	pairs = append(pairs, touch.CalibrationPair{Screen: touch.Point{X: 1, Y: 1}, Panel: touch.Point{X: 100, Y: 100}})
	points := writeTestJSON(t, "points.json", pairs)

	_, errOut, err := runApp(t, "calibrate", "--points", points)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut, test.ShouldContainSubstring, "appears more than once")
}

func TestCalibrateActionRejectsCollinear(t *testing.T) {
	points := writeTestJSON(t, "points.json", []touch.CalibrationPair{
		{Screen: touch.Point{X: 0, Y: 0}, Panel: touch.Point{X: 100, Y: 100}},
		{Screen: touch.Point{X: 50, Y: 50}, Panel: touch.Point{X: 200, Y: 200}},
		{Screen: touch.Point{X: 100, Y: 100}, Panel: touch.Point{X: 300, Y: 300}},
	})
	_, _, err := runApp(t, "calibrate", "--points", points)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "collinear")
}

func TestSchemaAction(t *testing.T) {
	out, _, err := runApp(t, "schema")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out, test.ShouldContainSubstring, "spi_bus")
	test.That(t, out, test.ShouldContainSubstring, "pressure_threshold")
}

func TestLoadConfig(t *testing.T) {
	path := writeTestJSON(t, "panel.json", map[string]interface{}{
		"spi_bus":     "0",
		"chip_select": "1",
		"width":       480,
		"height":      320,
		"orientation": 180,
		"calibration": testPairs,
	})
	conf, err := loadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.Width, test.ShouldEqual, 480)
	test.That(t, conf.Orientation, test.ShouldEqual, 180)
	test.That(t, conf.Calibration, test.ShouldResemble, testPairs)

	t.Setenv("TOUCH_TEST_BUS", "2")
	path = filepath.Join(t.TempDir(), "env.json")
	test.That(t, os.WriteFile(path,
		[]byte(`{"spi_bus": "${TOUCH_TEST_BUS}", "chip_select": "0", "width": 320, "height": 240}`), 0o600),
		test.ShouldBeNil)
	conf, err = loadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.SPIBus, test.ShouldEqual, "2")

	bad := writeTestJSON(t, "bad.json", map[string]interface{}{"spi_bus": "0", "chip_select": "1"})
	_, err = loadConfig(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "width")
}

func TestWatchAction(t *testing.T) {
	_, _, err := runApp(t, "watch", "--count", "1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--config is required")

	coefficients := filepath.Join(t.TempDir(), "coefficients.json")
	m, err := touch.ComputeCalibration(touch.SplitPairs(testPairs))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, writeJSON(coefficients, m.Coefficients()), test.ShouldBeNil)

	logFile := filepath.Join(t.TempDir(), "touchctl.log")
	_, _, err = runApp(t, "--log-file", logFile,
		"watch", "--simulate", "--count", "2", "--interval", "1ms", "--calibration", coefficients)
	test.That(t, err, test.ShouldBeNil)

	logs, err := os.ReadFile(logFile)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(logs), test.ShouldContainSubstring, "touch down")
}

func TestWatchActionLogLevel(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "touchctl.log")
	_, _, err := runApp(t, "--log-level", "warn", "--log-file", logFile,
		"watch", "--simulate", "--count", "2", "--interval", "1ms")
	test.That(t, err, test.ShouldBeNil)

	// the file is only created on the first write
	logs, _ := os.ReadFile(logFile)
	test.That(t, string(logs), test.ShouldNotContainSubstring, "touch down")

	_, _, err = runApp(t, "--log-level", "loud", "watch", "--simulate", "--count", "1")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "--log-level")
}
