package touch

import (
	"math"

	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// leastSquaresDivisor is the fixed-point divisor used when more than three reference points
// are fitted.
const leastSquaresDivisor = 1 << 16

// CalibrationMatrix maps panel space to screen space:
//
//	screen_x = (a*x + b*y + c) / div
//	screen_y = (d*x + e*y + f) / div
//
// The zero value is the uncalibrated matrix, which passes points through unchanged. A
// calibrated matrix only comes out of ComputeCalibration or RestoreCalibration and is never
// edited in place.
type CalibrationMatrix struct {
	a, b, c int64
	d, e, f int64
	div     int64
}

// CalibrationCoefficients is the exported form of a matrix, for hosts that persist it.
type CalibrationCoefficients struct {
	A   int64 `json:"a"`
	B   int64 `json:"b"`
	C   int64 `json:"c"`
	D   int64 `json:"d"`
	E   int64 `json:"e"`
	F   int64 `json:"f"`
	Div int64 `json:"div"`
}

// IsCalibrated reports whether m holds a computed calibration.
func (m CalibrationMatrix) IsCalibrated() bool {
	return m.div != 0
}

// Apply maps a panel point to screen space. Division truncates toward zero.
func (m CalibrationMatrix) Apply(p Point) Point {
	if m.div == 0 {
		return p
	}
	x, y := int64(p.X), int64(p.Y)
	return Point{
		X: int((m.a*x + m.b*y + m.c) / m.div),
		Y: int((m.d*x + m.e*y + m.f) / m.div),
	}
}

// Coefficients exports the matrix.
func (m CalibrationMatrix) Coefficients() CalibrationCoefficients {
	return CalibrationCoefficients{A: m.a, B: m.b, C: m.c, D: m.d, E: m.e, F: m.f, Div: m.div}
}

// RestoreCalibration rebuilds a matrix from coefficients previously taken from Coefficients.
func RestoreCalibration(coeffs CalibrationCoefficients) (CalibrationMatrix, error) {
	if coeffs.Div == 0 {
		return CalibrationMatrix{}, errors.Wrap(ErrDegenerateCalibration, "divisor is zero")
	}
	return normalized(CalibrationMatrix{
		a: coeffs.A, b: coeffs.B, c: coeffs.C,
		d: coeffs.D, e: coeffs.E, f: coeffs.F,
		div: coeffs.Div,
	}), nil
}

// ComputeCalibration derives the matrix that maps each panel[i] onto screen[i]. Three pairs
// are solved exactly in integers; more pairs are fitted by least squares and stored in fixed
// point. Collinear panel points are rejected.
func ComputeCalibration(screen, panel []Point) (CalibrationMatrix, error) {
	if len(screen) != len(panel) {
		return CalibrationMatrix{}, errors.Wrapf(ErrMismatchedCalibrationPoints,
			"%d screen points, %d panel points", len(screen), len(panel))
	}
	if len(panel) < 3 {
		return CalibrationMatrix{}, errors.Wrapf(ErrTooFewCalibrationPoints, "got %d", len(panel))
	}
	if collinear(panel) {
		return CalibrationMatrix{}, ErrDegenerateCalibration
	}
	if len(panel) == 3 {
		return solveThreePoint(screen, panel)
	}
	return solveLeastSquares(screen, panel)
}

func solveThreePoint(screen, panel []Point) (CalibrationMatrix, error) {
	x0, y0 := int64(panel[0].X), int64(panel[0].Y)
	x1, y1 := int64(panel[1].X), int64(panel[1].Y)
	x2, y2 := int64(panel[2].X), int64(panel[2].Y)
	sx0, sy0 := int64(screen[0].X), int64(screen[0].Y)
	sx1, sy1 := int64(screen[1].X), int64(screen[1].Y)
	sx2, sy2 := int64(screen[2].X), int64(screen[2].Y)

	div := (x0-x2)*(y1-y2) - (x1-x2)*(y0-y2)
	if div == 0 {
		return CalibrationMatrix{}, ErrDegenerateCalibration
	}

	m := CalibrationMatrix{
		a:   (sx0-sx2)*(y1-y2) - (sx1-sx2)*(y0-y2),
		b:   (x0-x2)*(sx1-sx2) - (sx0-sx2)*(x1-x2),
		c:   (x2*sx1-x1*sx2)*y0 + (x0*sx2-x2*sx0)*y1 + (x1*sx0-x0*sx1)*y2,
		d:   (sy0-sy2)*(y1-y2) - (sy1-sy2)*(y0-y2),
		e:   (x0-x2)*(sy1-sy2) - (sy0-sy2)*(x1-x2),
		f:   (x2*sy1-x1*sy2)*y0 + (x0*sy2-x2*sy0)*y1 + (x1*sy0-x0*sy1)*y2,
		div: div,
	}
	return normalized(m), nil
}

func solveLeastSquares(screen, panel []Point) (CalibrationMatrix, error) {
	n := len(panel)
	design := mat.NewDense(n, 3, nil)
	targetX := mat.NewVecDense(n, nil)
	targetY := mat.NewVecDense(n, nil)
	for i := range panel {
		design.SetRow(i, []float64{float64(panel[i].X), float64(panel[i].Y), 1})
		targetX.SetVec(i, float64(screen[i].X))
		targetY.SetVec(i, float64(screen[i].Y))
	}

	var qr mat.QR
	qr.Factorize(design)
	var kx, ky mat.VecDense
	if err := qr.SolveVecTo(&kx, false, targetX); err != nil {
		return CalibrationMatrix{}, errors.Wrap(ErrDegenerateCalibration, err.Error())
	}
	if err := qr.SolveVecTo(&ky, false, targetY); err != nil {
		return CalibrationMatrix{}, errors.Wrap(ErrDegenerateCalibration, err.Error())
	}

	fixed := func(v float64) int64 {
		return int64(math.Round(v * leastSquaresDivisor))
	}
	return CalibrationMatrix{
		a: fixed(kx.AtVec(0)), b: fixed(kx.AtVec(1)), c: fixed(kx.AtVec(2)),
		d: fixed(ky.AtVec(0)), e: fixed(ky.AtVec(1)), f: fixed(ky.AtVec(2)),
		div: leastSquaresDivisor,
	}, nil
}

// normalized keeps div positive; the mapped values are unchanged.
func normalized(m CalibrationMatrix) CalibrationMatrix {
	if m.div >= 0 {
		return m
	}
	return CalibrationMatrix{a: -m.a, b: -m.b, c: -m.c, d: -m.d, e: -m.e, f: -m.f, div: -m.div}
}

// collinear reports whether every point lies on one line, including the case where they
// are all the same point.
func collinear(points []Point) bool {
	origin := points[0]
	var dir Point
	found := false
	for _, p := range points[1:] {
		if p != origin {
			dir = Point{p.X - origin.X, p.Y - origin.Y}
			found = true
			break
		}
	}
	if !found {
		return true
	}
	for _, p := range points[1:] {
		cross := int64(dir.X)*int64(p.Y-origin.Y) - int64(dir.Y)*int64(p.X-origin.X)
		if cross != 0 {
			return false
		}
	}
	return true
}

// Residuals summarizes how far the mapped panel points land from their screen targets, in
// pixels.
type Residuals struct {
	Mean float64 `json:"mean"`
	Max  float64 `json:"max"`
	RMS  float64 `json:"rms"`
}

// CalibrationResiduals measures m against the reference pairs it was computed from (or any
// other set of pairs).
func CalibrationResiduals(m CalibrationMatrix, screen, panel []Point) (Residuals, error) {
	if len(screen) != len(panel) {
		return Residuals{}, ErrMismatchedCalibrationPoints
	}
	if len(screen) == 0 {
		return Residuals{}, ErrTooFewCalibrationPoints
	}
	distances := make(stats.Float64Data, 0, len(panel))
	squares := make(stats.Float64Data, 0, len(panel))
	for i := range panel {
		got := m.Apply(panel[i])
		dx, dy := float64(got.X-screen[i].X), float64(got.Y-screen[i].Y)
		distances = append(distances, math.Hypot(dx, dy))
		squares = append(squares, dx*dx+dy*dy)
	}

	mean, err := stats.Mean(distances)
	if err != nil {
		return Residuals{}, err
	}
	maxDist, err := stats.Max(distances)
	if err != nil {
		return Residuals{}, err
	}
	meanSquare, err := stats.Mean(squares)
	if err != nil {
		return Residuals{}, err
	}
	return Residuals{Mean: mean, Max: maxDist, RMS: math.Sqrt(meanSquare)}, nil
}
