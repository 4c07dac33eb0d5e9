// Package ads7846 implements a driver for the TI ADS7846 resistive touch screen controller
// over SPI. The host calls Service once per tick; each call samples pressure and, while the
// panel is pressed, both position axes, then publishes calibrated screen coordinates.
//
// Datasheet: https://www.ti.com/lit/ds/symlink/ads7846.pdf
package ads7846

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"go.viam.com/ads7846/components/board/buses"
	"go.viam.com/ads7846/components/touch"
	"go.viam.com/ads7846/logging"
)

// State is one published sample. Raw and LastRaw are panel readings, Screen is in display
// pixels for the current orientation.
type State struct {
	Raw      touch.Point
	LastRaw  touch.Point
	Screen   touch.Point
	Pressure int
	Contact  bool
}

// Touch is a single ADS7846 on a shared SPI bus.
type Touch struct {
	bus        buses.SPI
	chipSelect string
	baud       uint

	width             int
	height            int
	pressureThreshold int
	tolerance         int

	logger logging.Logger

	// serviceMu serializes Service calls so LastRaw always trails Raw by one sample.
	serviceMu sync.Mutex

	mu          sync.Mutex
	orientation touch.Orientation
	matrix      touch.CalibrationMatrix
	state       State
}

// NewTouch binds a driver to bus and the configured chip select. The config is validated and
// its orientation and calibration points, if any, are applied.
func NewTouch(bus buses.SPI, conf *Config, logger logging.Logger) (*Touch, error) {
	if bus == nil {
		return nil, errors.New("ads7846 requires an spi bus")
	}
	if err := conf.Validate("ads7846"); err != nil {
		return nil, err
	}
	orientation, err := touch.OrientationFromDegrees(conf.Orientation)
	if err != nil {
		return nil, err
	}

	t := &Touch{
		bus:               bus,
		chipSelect:        conf.ChipSelect,
		baud:              conf.baud(),
		width:             conf.Width,
		height:            conf.Height,
		pressureThreshold: conf.pressureThreshold(),
		tolerance:         conf.tolerance(),
		logger:            logger,
		orientation:       orientation,
	}

	if len(conf.Calibration) != 0 {
		screen, panel := touch.SplitPairs(conf.Calibration)
		if err := t.SetCalibration(screen, panel); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Service takes one sample and publishes the result. Transport errors are returned and leave
// the published state as it was.
func (t *Touch) Service(ctx context.Context) error {
	t.serviceMu.Lock()
	defer t.serviceMu.Unlock()

	t.mu.Lock()
	next := t.state
	orientation, matrix := t.orientation, t.matrix
	t.mu.Unlock()

	pressure, err := t.readPressure(ctx)
	if err != nil {
		return errors.Wrap(err, "reading pressure")
	}
	next.Pressure = pressure
	if pressure < t.pressureThreshold {
		next.Contact = false
		t.publish(next)
		return nil
	}

	raw := next.Raw
	x, ok, err := t.readRawX(ctx)
	if err != nil {
		return errors.Wrap(err, "reading x position")
	}
	if ok {
		raw.X = x
	}
	y, ok, err := t.readRawY(ctx)
	if err != nil {
		return errors.Wrap(err, "reading y position")
	}
	if ok {
		raw.Y = y
	}

	next.LastRaw = next.Raw
	next.Raw = raw
	next.Screen = touch.Rotate(matrix.Apply(raw), orientation, t.width, t.height)
	next.Contact = true
	t.publish(next)
	return nil
}

func (t *Touch) publish(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

// SetOrientation sets the absolute display orientation used from the next Service call on.
func (t *Touch) SetOrientation(o touch.Orientation) error {
	if err := o.Validate(); err != nil {
		return err
	}
	t.mu.Lock()
	t.orientation = o
	t.mu.Unlock()
	t.logger.Infow("orientation changed", "orientation", o.String())
	return nil
}

// SetRotation is SetOrientation in degrees. Anything but 0, 90, 180 or 270 is rejected and the
// current orientation kept.
func (t *Touch) SetRotation(degrees int) error {
	o, err := touch.OrientationFromDegrees(degrees)
	if err != nil {
		return err
	}
	return t.SetOrientation(o)
}

// Rotate turns the orientation by a number of quarter turns, clockwise for positive values,
// and returns the result.
func (t *Touch) Rotate(quarterTurns int) touch.Orientation {
	t.mu.Lock()
	t.orientation = t.orientation.Add(quarterTurns)
	o := t.orientation
	t.mu.Unlock()
	t.logger.Infow("orientation changed", "orientation", o.String())
	return o
}

// Orientation returns the current display orientation.
func (t *Touch) Orientation() touch.Orientation {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orientation
}

// SetCalibration computes a new matrix from screen/panel point pairs given in the display's
// native frame. On error the previous matrix stays in effect.
func (t *Touch) SetCalibration(screen, panel []touch.Point) error {
	m, err := touch.ComputeCalibration(screen, panel)
	if err != nil {
		t.logger.Warnw("calibration rejected", "error", err)
		return err
	}
	t.SetCalibrationMatrix(m)
	return nil
}

// SetCalibrationMatrix installs a previously computed or restored matrix.
func (t *Touch) SetCalibrationMatrix(m touch.CalibrationMatrix) {
	t.mu.Lock()
	t.matrix = m
	t.mu.Unlock()
	t.logger.Infow("calibration changed", "coefficients", m.Coefficients())
}

// Calibration returns the matrix in effect.
func (t *Touch) Calibration() touch.CalibrationMatrix {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matrix
}

// State returns the last published sample.
func (t *Touch) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// RawX returns the last accepted raw X reading. RawX and RawY each read their own snapshot, so
// a Service call may land between them; use State for an X/Y pair from the same sample.
func (t *Touch) RawX() int {
	return t.State().Raw.X
}

// RawY returns the last accepted raw Y reading. See RawX.
func (t *Touch) RawY() int {
	return t.State().Raw.Y
}

// Pressure returns the last pressure reading.
func (t *Touch) Pressure() int {
	return t.State().Pressure
}

// Screen returns the last computed screen position. Its X and Y always come from the same
// sample.
func (t *Touch) Screen() touch.Point {
	return t.State().Screen
}

// Contact reports whether the last sample saw the panel pressed.
func (t *Touch) Contact() bool {
	return t.State().Contact
}

// Close does nothing. The bus belongs to the caller.
func (t *Touch) Close(ctx context.Context) error {
	return nil
}
