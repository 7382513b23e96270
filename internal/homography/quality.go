package homography

import "github.com/pressalign/projector/internal/geom"

// maxAcceptableErrorMm is the round-trip residual above which a calibration
// is reported as invalid. One millimetre of drift is visible against a press
// edge and means the physical quad no longer matches the stored corners.
const maxAcceptableErrorMm = 1.0

// Quality summarises the round-trip accuracy of a calibration.
type Quality struct {
	Valid       bool    `json:"valid"`
	MaxErrorMm  float64 `json:"max_error_mm"`
	AvgErrorMm  float64 `json:"avg_error_mm"`
	PixelsPerMm float64 `json:"pixels_per_mm"`
}

// ValidateQuality round-trips the four corners of the press rectangle through
// the inverse and forward transforms and measures the residual distance in
// millimetres. The transform is an exact fit at its defining points, so a
// healthy calibration reports residuals at floating-point noise level.
func (c *Calibration) ValidateQuality() Quality {
	testPoints := [4]geom.Point{
		geom.Pt(0, 0),
		geom.Pt(c.pressWidthMm, 0),
		geom.Pt(c.pressWidthMm, c.pressHeightMm),
		geom.Pt(0, c.pressHeightMm),
	}

	var maxErr, sumErr float64
	for _, p := range testPoints {
		px := c.ToProjector(p.X, p.Y)
		back := c.ToPress(px.X, px.Y)
		err := p.Dist(back)
		sumErr += err
		if err > maxErr {
			maxErr = err
		}
	}

	return Quality{
		Valid:       maxErr < maxAcceptableErrorMm,
		MaxErrorMm:  maxErr,
		AvgErrorMm:  sumErr / float64(len(testPoints)),
		PixelsPerMm: c.pixelsPerMm,
	}
}
