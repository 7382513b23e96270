// Package projection composes the homography with metric scale factors to
// convert between the four coordinate spaces of the system: design/press
// millimetres, the rectified target raster, and projector pixels.
//
// Design space and press space share the same metric space by convention:
// guide elements are authored directly in press millimetres.
package projection

import (
	"errors"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
)

// ErrUncalibrated is returned when a conversion is requested and no
// calibration is present. There is deliberately no identity fallback: a
// silently unmapped guide would be projected at wrong physical coordinates,
// which is the worst possible failure on a running press.
var ErrUncalibrated = errors.New("no calibration present")

// Chain converts between press millimetres, rectified target-buffer pixels
// and projector pixels for one calibration snapshot. A Chain is cheap to
// build and is rebuilt whenever the calibration is replaced.
type Chain struct {
	cal           *homography.Calibration
	targetPxPerMm float64
}

// NewChain builds a conversion chain for the given calibration snapshot and
// target raster density. A nil calibration yields ErrUncalibrated.
func NewChain(cal *homography.Calibration, targetPxPerMm float64) (*Chain, error) {
	if cal == nil {
		return nil, ErrUncalibrated
	}
	if targetPxPerMm <= 0 {
		return nil, errors.New("target pixel density must be positive")
	}
	return &Chain{cal: cal, targetPxPerMm: targetPxPerMm}, nil
}

// TargetPxPerMm returns the rectified buffer's pixel density.
func (ch *Chain) TargetPxPerMm() float64 { return ch.targetPxPerMm }

// Calibration returns the calibration snapshot backing this chain.
func (ch *Chain) Calibration() *homography.Calibration { return ch.cal }

// PixelsPerMm returns the projector-space scale used for length-like
// quantities (stroke widths, radii).
func (ch *Chain) PixelsPerMm() float64 { return ch.cal.PixelsPerMm() }

// PressToTarget converts press millimetres to rectified target-buffer
// pixels. This is a plain affine scale, independent of the perspective
// transform: the target buffer is by construction an undistorted picture of
// the press surface.
func (ch *Chain) PressToTarget(xMm, yMm float64) geom.Point {
	return geom.Pt(xMm*ch.targetPxPerMm, yMm*ch.targetPxPerMm)
}

// LengthToTarget converts a millimetre length to target-buffer pixels.
func (ch *Chain) LengthToTarget(mm float64) float64 {
	return mm * ch.targetPxPerMm
}

// TargetToProjector converts rectified target-buffer pixels to projector
// pixels by reinterpreting them as press millimetres and applying the
// inverse homography.
func (ch *Chain) TargetToProjector(xPx, yPx float64) geom.Point {
	return ch.cal.ToProjector(xPx/ch.targetPxPerMm, yPx/ch.targetPxPerMm)
}

// PressToProjector converts press millimetres directly to projector pixels,
// bypassing the target buffer. Used for the boundary pattern, which must be
// positioned by calibration alone.
func (ch *Chain) PressToProjector(xMm, yMm float64) geom.Point {
	return ch.cal.ToProjector(xMm, yMm)
}

// TargetSize returns the rectified buffer dimensions in whole pixels for
// the calibrated press rectangle.
func (ch *Chain) TargetSize() (w, h int) {
	w = int(ch.cal.PressWidthMm()*ch.targetPxPerMm + 0.5)
	h = int(ch.cal.PressHeightMm()*ch.targetPxPerMm + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
