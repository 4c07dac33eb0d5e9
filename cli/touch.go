package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/a8m/envsubst"
	"github.com/benbjohnson/clock"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"periph.io/x/host/v3"

	"go.viam.com/ads7846/components/board/buses"
	"go.viam.com/ads7846/components/touch"
	"go.viam.com/ads7846/components/touch/ads7846"
	"go.viam.com/ads7846/logging"
)

// simulatedConfig is used by watch --simulate when no config file is given.
var simulatedConfig = ads7846.Config{
	SPIBus:     "0",
	ChipSelect: "0",
	Width:      320,
	Height:     240,
}

const logFileMaxSizeMB = 10

// newLogger builds the command's logger. The returned func flushes and closes the log file,
// if any.
func newLogger(c *cli.Context) (logging.Logger, func(), error) {
	level, err := logging.LevelFromString(c.String(flagLogLevel))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing --%s", flagLogLevel)
	}
	if c.Bool(flagDebug) {
		level = logging.DEBUG
	}
	logger := logging.NewLogger("touchctl")
	logger.SetLevel(level)

	path := c.Path(flagLogFile)
	if path == "" {
		return logger, func() {}, nil
	}
	appender, closer := logging.NewFileAppender(path, logFileMaxSizeMB)
	logger.AddAppender(appender)
	return logger, func() {
		//nolint:errcheck
		logger.Sync()
		//nolint:errcheck
		closer.Close()
	}, nil
}

// WatchAction polls a panel on a fixed interval and logs touch down, move and up events.
func WatchAction(c *cli.Context) error {
	logger, closeLogger, err := newLogger(c)
	if err != nil {
		return err
	}
	defer closeLogger()

	conf := simulatedConfig
	if path := c.Path(flagConfig); path != "" {
		loaded, err := loadConfig(path)
		if err != nil {
			return err
		}
		conf = *loaded
	} else if !c.Bool(flagSimulate) {
		return errors.Errorf("--%s is required unless --%s is set", flagConfig, flagSimulate)
	}

	var bus buses.SPI
	if c.Bool(flagSimulate) {
		panel := ads7846.NewSimulatedPanel()
		panel.Press(2048, 2048, 100)
		bus = panel
	} else {
		if _, err := host.Init(); err != nil {
			return errors.Wrap(err, "initializing periph host drivers")
		}
		bus = buses.NewSPIBus(conf.SPIBus)
	}

	tch, err := ads7846.NewTouch(bus, &conf, logger.Sublogger("ads7846"))
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		tch.Close(c.Context)
	}()

	if path := c.Path(flagCalibration); path != "" {
		m, err := loadCoefficients(path)
		if err != nil {
			return err
		}
		tch.SetCalibrationMatrix(m)
	}

	return poll(c.Context, clock.New(), tch, c.Duration(flagInterval), c.Int(flagCount), logger)
}

// poll services tch once per tick until count samples were taken (forever when count is 0)
// or ctx is done.
func poll(
	ctx context.Context,
	clk clock.Clock,
	tch *ads7846.Touch,
	interval time.Duration,
	count int,
	logger logging.Logger,
) error {
	if interval <= 0 {
		return errors.Errorf("poll interval must be positive, got %s", interval)
	}
	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	var last ads7846.State
	for samples := 0; count == 0 || samples < count; samples++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if err := tch.Service(ctx); err != nil {
			return err
		}
		state := tch.State()
		switch {
		case state.Contact && !last.Contact:
			logger.Infow("touch down",
				"screen", state.Screen.String(), "raw", state.Raw.String(), "pressure", state.Pressure)
		case state.Contact && state.Screen != last.Screen:
			logger.Infow("touch moved",
				"screen", state.Screen.String(), "raw", state.Raw.String(), "pressure", state.Pressure)
		case !state.Contact && last.Contact:
			logger.Infow("touch up", "screen", state.Screen.String())
		}
		last = state
	}
	return nil
}

// CalibrateAction computes a calibration matrix from a file of reference point pairs, prints
// how well it fits, and optionally saves its coefficients.
func CalibrateAction(c *cli.Context) error {
	pairs, err := loadPairs(c.Path(flagPoints))
	if err != nil {
		return err
	}
	if dups := lo.FindDuplicatesBy(pairs, func(p touch.CalibrationPair) touch.Point { return p.Panel }); len(dups) != 0 {
		warningf(c.App.ErrWriter, "panel reading %s appears more than once", dups[0].Panel)
	}

	screen, panel := touch.SplitPairs(pairs)
	m, err := touch.ComputeCalibration(screen, panel)
	if err != nil {
		return err
	}
	residuals, err := touch.CalibrationResiduals(m, screen, panel)
	if err != nil {
		return err
	}

	printf(c.App.Writer, "%s", calibrationTable(m, pairs))
	printf(c.App.Writer, "residual error (px): mean %.2f, max %.2f, rms %.2f",
		residuals.Mean, residuals.Max, residuals.RMS)

	if path := c.Path(flagOutput); path != "" {
		if err := writeJSON(path, m.Coefficients()); err != nil {
			return err
		}
		printf(c.App.Writer, "coefficients written to %s", path)
	}
	return nil
}

func calibrationTable(m touch.CalibrationMatrix, pairs []touch.CalibrationPair) string {
	coeffs := m.Coefficients()
	t := table.NewWriter()
	t.AppendHeader(table.Row{"A", "B", "C", "D", "E", "F", "Divider"})
	t.AppendRow(table.Row{coeffs.A, coeffs.B, coeffs.C, coeffs.D, coeffs.E, coeffs.F, coeffs.Div})
	t.AppendSeparator()
	t.AppendRow(table.Row{"#", "Panel", "Screen", "Mapped"})
	t.AppendRows(lo.Map(pairs, func(pair touch.CalibrationPair, i int) table.Row {
		return table.Row{i + 1, pair.Panel.String(), pair.Screen.String(), m.Apply(pair.Panel).String()}
	}))
	return t.Render()
}

// SchemaAction prints the JSON schema of the ads7846 configuration.
func SchemaAction(c *cli.Context) error {
	schema := jsonschema.Reflect(&ads7846.Config{})
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}

// loadConfig reads a panel config file, expanding environment variables such as
// ${TOUCH_SPI_BUS} before decoding.
func loadConfig(path string) (*ads7846.Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var attributes map[string]interface{}
	if err := json.Unmarshal(buf, &attributes); err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	conf, err := ads7846.ConfigFromAttributes(attributes)
	if err != nil {
		return nil, err
	}
	if err := conf.Validate(filepath.Base(path)); err != nil {
		return nil, err
	}
	return conf, nil
}

func loadPairs(path string) ([]touch.CalibrationPair, error) {
	var pairs []touch.CalibrationPair
	if err := readJSON(path, &pairs); err != nil {
		return nil, err
	}
	return pairs, nil
}

func loadCoefficients(path string) (touch.CalibrationMatrix, error) {
	var coeffs touch.CalibrationCoefficients
	if err := readJSON(path, &coeffs); err != nil {
		return touch.CalibrationMatrix{}, err
	}
	m, err := touch.RestoreCalibration(coeffs)
	if err != nil {
		return touch.CalibrationMatrix{}, errors.Wrapf(err, "restoring calibration from %s", path)
	}
	return m, nil
}

func readJSON(path string, v interface{}) error {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		f.Close()
	}()
	if err := json.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	//nolint:gosec
	if err := os.WriteFile(path, append(out, '\n'), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}
