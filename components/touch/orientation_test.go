package touch

import (
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestOrientationFromDegrees(t *testing.T) {
	for degrees, expected := range map[int]Orientation{
		0:   Orientation0,
		90:  Orientation90,
		180: Orientation180,
		270: Orientation270,
	} {
		o, err := OrientationFromDegrees(degrees)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, o, test.ShouldEqual, expected)
		test.That(t, o.Degrees(), test.ShouldEqual, degrees)
		test.That(t, o.Validate(), test.ShouldBeNil)
	}

	for _, degrees := range []int{-90, 45, 360, 1} {
		_, err := OrientationFromDegrees(degrees)
		test.That(t, errors.Is(err, ErrInvalidOrientation), test.ShouldBeTrue)
	}
	test.That(t, errors.Is(Orientation(4).Validate(), ErrInvalidOrientation), test.ShouldBeTrue)
	test.That(t, errors.Is(Orientation(-1).Validate(), ErrInvalidOrientation), test.ShouldBeTrue)
}

func TestOrientationArithmetic(t *testing.T) {
	test.That(t, Orientation270.Add(1), test.ShouldEqual, Orientation0)
	test.That(t, Orientation0.Add(-1), test.ShouldEqual, Orientation270)
	test.That(t, Orientation90.Add(6), test.ShouldEqual, Orientation270)
	test.That(t, Orientation90.Inverse(), test.ShouldEqual, Orientation270)
	test.That(t, Orientation180.Inverse(), test.ShouldEqual, Orientation180)
	test.That(t, Orientation0.Inverse(), test.ShouldEqual, Orientation0)
	test.That(t, Orientation90.String(), test.ShouldEqual, "90°")
}

func TestRotateQuarterTurn(t *testing.T) {
	const width, height = 320, 240
	test.That(t, Rotate(Point{10, 20}, Orientation90, width, height), test.ShouldResemble, Point{20, width - 1 - 10})
	test.That(t, Rotate(Point{10, 20}, Orientation180, width, height), test.ShouldResemble, Point{309, 219})
	test.That(t, Rotate(Point{10, 20}, Orientation270, width, height), test.ShouldResemble, Point{219, 10})
	test.That(t, Rotate(Point{10, 20}, Orientation0, width, height), test.ShouldResemble, Point{10, 20})

	// Corners stay inside the rotated frame.
	for _, o := range []Orientation{Orientation0, Orientation90, Orientation180, Orientation270} {
		w, h := RotatedSize(o, width, height)
		for _, corner := range []Point{{0, 0}, {width - 1, 0}, {0, height - 1}, {width - 1, height - 1}} {
			p := Rotate(corner, o, width, height)
			test.That(t, p.X, test.ShouldBeBetweenOrEqual, 0, w-1)
			test.That(t, p.Y, test.ShouldBeBetweenOrEqual, 0, h-1)
		}
	}
}

func TestRotateClosure(t *testing.T) {
	const width, height = 320, 240
	points := []Point{{0, 0}, {10, 20}, {319, 239}, {4000, -12}}
	all := []Orientation{Orientation0, Orientation90, Orientation180, Orientation270}

	for _, p := range points {
		for _, o := range all {
			w, h := RotatedSize(o, width, height)
			back := Rotate(Rotate(p, o, width, height), o.Inverse(), w, h)
			test.That(t, back, test.ShouldResemble, p)
		}

		q := p
		w, h := width, height
		for i := 0; i < 4; i++ {
			q = Rotate(q, Orientation90, w, h)
			w, h = RotatedSize(Orientation90, w, h)
		}
		test.That(t, q, test.ShouldResemble, p)

		w, h = RotatedSize(Orientation90, width, height)
		twice := Rotate(Rotate(p, Orientation90, width, height), Orientation90, w, h)
		test.That(t, twice, test.ShouldResemble, Rotate(p, Orientation180, width, height))
	}
}
