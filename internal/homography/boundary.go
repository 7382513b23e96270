package homography

import "github.com/pressalign/projector/internal/geom"

// DefaultBoundaryMarginMm is the margin used for the press boundary pattern
// when the caller does not configure one.
const DefaultBoundaryMarginMm = 5.0

// BoundaryPattern maps the corners of the press rectangle, expanded by
// marginMm on every side, into projector-pixel space. The returned quad is
// in calibration corner order (1=TL .. 4=BL) so an operator can match the
// numbered markers against the physical press edges to verify that the
// stored calibration still fits.
//
// This is the one overlay computed directly in projector space: its whole
// purpose is to validate the calibration, so it must not pass through the
// rectified target buffer.
func (c *Calibration) BoundaryPattern(marginMm float64) geom.Quad {
	cornersMm := geom.Quad{
		geom.Pt(-marginMm, -marginMm),
		geom.Pt(c.pressWidthMm+marginMm, -marginMm),
		geom.Pt(c.pressWidthMm+marginMm, c.pressHeightMm+marginMm),
		geom.Pt(-marginMm, c.pressHeightMm+marginMm),
	}

	var out geom.Quad
	for i, p := range cornersMm {
		out[i] = c.ToProjector(p.X, p.Y)
	}
	return out
}
