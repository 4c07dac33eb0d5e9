// Package touch converts raw resistive panel readings into screen coordinates: the affine
// calibration matrix and the quarter-turn display orientation. It knows nothing about buses;
// chip drivers such as ads7846 feed it samples.
package touch

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTooFewCalibrationPoints is returned when fewer than three reference pairs are given.
	ErrTooFewCalibrationPoints = errors.New("calibration needs at least 3 reference points")
	// ErrMismatchedCalibrationPoints is returned when screen and panel point counts differ.
	ErrMismatchedCalibrationPoints = errors.New("screen and panel reference point counts differ")
	// ErrDegenerateCalibration is returned when the panel points are collinear or the
	// resulting divisor is zero.
	ErrDegenerateCalibration = errors.New("degenerate calibration: panel points are collinear")
	// ErrInvalidOrientation is returned for anything other than a quarter turn.
	ErrInvalidOrientation = errors.New("orientation must be one of 0, 90, 180 or 270 degrees")
)

// Point is a coordinate pair, either in panel space (raw ADC counts) or in screen space
// (pixels).
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// CalibrationPair matches a screen reference point with the panel reading taken while that
// point was touched.
type CalibrationPair struct {
	Screen Point `json:"screen"`
	Panel  Point `json:"panel"`
}

// SplitPairs returns the screen and panel halves of pairs, in order.
func SplitPairs(pairs []CalibrationPair) (screen, panel []Point) {
	screen = make([]Point, 0, len(pairs))
	panel = make([]Point, 0, len(pairs))
	for _, pair := range pairs {
		screen = append(screen, pair.Screen)
		panel = append(panel, pair.Panel)
	}
	return screen, panel
}
