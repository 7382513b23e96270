// Package homography computes and applies the 4-point perspective transform
// between the projector's native pixel grid and the physical press surface.
//
// A Calibration is immutable once constructed: every calibration update
// builds a new value with freshly derived matrices, so readers can never
// observe a matrix inconsistent with the corner set that produced it.
package homography

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pressalign/projector/internal/geom"
)

var (
	// ErrDegenerateCalibration indicates the four projector corners cannot
	// define a perspective transform (collinear or coincident points).
	ErrDegenerateCalibration = errors.New("degenerate calibration: corners do not form a proper quadrilateral")

	// ErrSingularMatrix indicates the computed transform could not be
	// inverted. Callers treat this the same as a degenerate calibration.
	ErrSingularMatrix = errors.New("singular transformation matrix")
)

// collinearTol is the minimum triangle area (px²) below which three corners
// are considered collinear.
const collinearTol = 1e-6

// singularEps is the minimum |det| for the forward matrix to be invertible.
const singularEps = 1e-12

// Calibration holds the projector corner quad, the physical press dimensions
// and the derived forward/inverse perspective matrices.
type Calibration struct {
	corners       geom.Quad // projector px: TL, TR, BR, BL
	pressWidthMm  float64
	pressHeightMm float64

	pixelsPerMm float64
	forward     [9]float64 // projector px -> press mm, row-major 3x3
	inverse     [9]float64 // press mm -> projector px
}

// New computes a Calibration from the four projector-space corners (in
// top-left, top-right, bottom-right, bottom-left order) and the physical
// press rectangle dimensions in millimetres.
func New(corners geom.Quad, pressWidthMm, pressHeightMm float64) (*Calibration, error) {
	if pressWidthMm <= 0 || pressHeightMm <= 0 {
		return nil, fmt.Errorf("press dimensions must be positive, got %gx%g mm", pressWidthMm, pressHeightMm)
	}
	if corners.Degenerate(collinearTol) {
		return nil, ErrDegenerateCalibration
	}

	dst := geom.Quad{
		geom.Pt(0, 0),
		geom.Pt(pressWidthMm, 0),
		geom.Pt(pressWidthMm, pressHeightMm),
		geom.Pt(0, pressHeightMm),
	}

	forward, err := solveHomography(corners, dst)
	if err != nil {
		// The solver only fails on a singular system, which means the
		// corner configuration was unusable.
		return nil, fmt.Errorf("%w: %v", ErrDegenerateCalibration, err)
	}

	inverse, err := invert3x3(forward)
	if err != nil {
		return nil, err
	}

	c := &Calibration{
		corners:       corners,
		pressWidthMm:  pressWidthMm,
		pressHeightMm: pressHeightMm,
		forward:       forward,
		inverse:       inverse,
	}
	c.pixelsPerMm = derivePixelsPerMm(corners, pressWidthMm, pressHeightMm)
	return c, nil
}

// solveHomography solves the standard 8-unknown linear system mapping the
// four source points onto the four destination points exactly (h22 = 1).
func solveHomography(src, dst geom.Quad) ([9]float64, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)

	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		r := 2 * i

		// dx = (h0 sx + h1 sy + h2) / (h6 sx + h7 sy + 1)
		a.SetRow(r, []float64{sx, sy, 1, 0, 0, 0, -sx * dx, -sy * dx})
		b.SetVec(r, dx)

		// dy = (h3 sx + h4 sy + h5) / (h6 sx + h7 sy + 1)
		a.SetRow(r+1, []float64{0, 0, 0, sx, sy, 1, -sx * dy, -sy * dy})
		b.SetVec(r+1, dy)
	}

	var h mat.VecDense
	if err := h.SolveVec(a, b); err != nil {
		return [9]float64{}, fmt.Errorf("homography system is singular: %w", err)
	}

	return [9]float64{
		h.AtVec(0), h.AtVec(1), h.AtVec(2),
		h.AtVec(3), h.AtVec(4), h.AtVec(5),
		h.AtVec(6), h.AtVec(7), 1,
	}, nil
}

// invert3x3 inverts a row-major 3x3 matrix, rejecting near-singular input.
func invert3x3(m [9]float64) ([9]float64, error) {
	d := mat.NewDense(3, 3, m[:])
	if det := mat.Det(d); math.Abs(det) < singularEps {
		return [9]float64{}, ErrSingularMatrix
	}
	var inv mat.Dense
	if err := inv.Inverse(d); err != nil {
		return [9]float64{}, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	var out [9]float64
	copy(out[:], inv.RawMatrix().Data)
	return out, nil
}

// derivePixelsPerMm averages the pixel-per-millimetre ratio over the four
// edges of the calibrated quad. This scalar is an approximation used only
// for length-like quantities (stroke widths, radii); positions always go
// through the full perspective transform.
func derivePixelsPerMm(corners geom.Quad, wMm, hMm float64) float64 {
	px := corners.EdgeLengths()
	mm := [4]float64{wMm, hMm, wMm, hMm}
	var sum float64
	for i := range px {
		sum += px[i] / mm[i]
	}
	return sum / 4
}

// apply multiplies the homogeneous point (x, y, 1) by h and performs the
// perspective divide.
func apply(h [9]float64, x, y float64) geom.Point {
	w := h[6]*x + h[7]*y + h[8]
	return geom.Point{
		X: (h[0]*x + h[1]*y + h[2]) / w,
		Y: (h[3]*x + h[4]*y + h[5]) / w,
	}
}

// ToPress converts a projector-pixel coordinate to press millimetres.
func (c *Calibration) ToPress(xPx, yPx float64) geom.Point {
	return apply(c.forward, xPx, yPx)
}

// ToProjector converts a press-millimetre coordinate to projector pixels.
func (c *Calibration) ToProjector(xMm, yMm float64) geom.Point {
	return apply(c.inverse, xMm, yMm)
}

// PixelsPerMm returns the average projector-pixels-per-millimetre scale.
func (c *Calibration) PixelsPerMm() float64 { return c.pixelsPerMm }

// Corners returns the projector-space corner quad in calibration order.
func (c *Calibration) Corners() geom.Quad { return c.corners }

// PressWidthMm returns the physical press width in millimetres.
func (c *Calibration) PressWidthMm() float64 { return c.pressWidthMm }

// PressHeightMm returns the physical press height in millimetres.
func (c *Calibration) PressHeightMm() float64 { return c.pressHeightMm }

// ForwardMatrix returns a copy of the projector-to-press matrix (row-major).
func (c *Calibration) ForwardMatrix() [9]float64 { return c.forward }

// InverseMatrix returns a copy of the press-to-projector matrix (row-major).
func (c *Calibration) InverseMatrix() [9]float64 { return c.inverse }
