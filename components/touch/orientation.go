package touch

import (
	"github.com/pkg/errors"
)

// Orientation is the display rotation as a count of clockwise quarter turns.
type Orientation int

// The four supported orientations.
const (
	Orientation0 Orientation = iota
	Orientation90
	Orientation180
	Orientation270
)

// OrientationFromDegrees converts 0, 90, 180 or 270 to an Orientation.
func OrientationFromDegrees(degrees int) (Orientation, error) {
	switch degrees {
	case 0:
		return Orientation0, nil
	case 90:
		return Orientation90, nil
	case 180:
		return Orientation180, nil
	case 270:
		return Orientation270, nil
	}
	return Orientation0, errors.Wrapf(ErrInvalidOrientation, "got %d", degrees)
}

// Validate returns an error if o is not one of the four quarter turns.
func (o Orientation) Validate() error {
	if o < Orientation0 || o > Orientation270 {
		return errors.Wrapf(ErrInvalidOrientation, "got %d quarter turns", int(o))
	}
	return nil
}

// Degrees returns the rotation in degrees.
func (o Orientation) Degrees() int {
	return int(o) * 90
}

// Add rotates o by quarterTurns, which may be negative.
func (o Orientation) Add(quarterTurns int) Orientation {
	return Orientation(((int(o)+quarterTurns)%4 + 4) % 4)
}

// Inverse is the orientation that undoes o.
func (o Orientation) Inverse() Orientation {
	return Orientation0.Add(-int(o))
}

func (o Orientation) String() string {
	switch o {
	case Orientation0:
		return "0°"
	case Orientation90:
		return "90°"
	case Orientation180:
		return "180°"
	case Orientation270:
		return "270°"
	}
	return "invalid"
}

// RotatedSize returns the dimensions of a width x height frame after rotating it by o.
func RotatedSize(o Orientation, width, height int) (int, int) {
	if o == Orientation90 || o == Orientation270 {
		return height, width
	}
	return width, height
}

// Rotate maps p from a width x height frame into the frame rotated by o:
//
//	0°:   (x, y)
//	90°:  (y, width-1-x)
//	180°: (width-1-x, height-1-y)
//	270°: (height-1-y, x)
//
// Points are not clamped, so rotating by o and then by o.Inverse() in the rotated frame
// always returns p.
func Rotate(p Point, o Orientation, width, height int) Point {
	switch o {
	case Orientation90:
		return Point{X: p.Y, Y: width - 1 - p.X}
	case Orientation180:
		return Point{X: width - 1 - p.X, Y: height - 1 - p.Y}
	case Orientation270:
		return Point{X: height - 1 - p.Y, Y: p.X}
	default:
		return p
	}
}
