package homography

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressalign/projector/internal/geom"
)

// benchCorners is the reference calibration used across these tests: a
// 1720x880 px axis-aligned quad covering a 600x400 mm press.
var benchCorners = geom.Quad{
	geom.Pt(100, 100),
	geom.Pt(1820, 100),
	geom.Pt(1820, 980),
	geom.Pt(100, 980),
}

func benchCalibration(t *testing.T) *Calibration {
	t.Helper()
	c, err := New(benchCorners, 600, 400)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadInput(t *testing.T) {
	t.Run("zero press width", func(t *testing.T) {
		_, err := New(benchCorners, 0, 400)
		require.Error(t, err)
	})

	t.Run("negative press height", func(t *testing.T) {
		_, err := New(benchCorners, 600, -1)
		require.Error(t, err)
	})

	t.Run("collinear corners", func(t *testing.T) {
		q := geom.Quad{geom.Pt(0, 0), geom.Pt(100, 0), geom.Pt(200, 0), geom.Pt(300, 0)}
		_, err := New(q, 600, 400)
		require.ErrorIs(t, err, ErrDegenerateCalibration)
	})

	t.Run("coincident corners", func(t *testing.T) {
		q := geom.Quad{geom.Pt(50, 50), geom.Pt(50, 50), geom.Pt(500, 400), geom.Pt(50, 400)}
		_, err := New(q, 600, 400)
		require.ErrorIs(t, err, ErrDegenerateCalibration)
	})
}

func TestPixelsPerMmScenario(t *testing.T) {
	c := benchCalibration(t)
	// (1720/600 + 880/400) / 2
	assert.InDelta(t, 2.5333, c.PixelsPerMm(), 1e-3)
}

func TestCenterPointScenario(t *testing.T) {
	c := benchCalibration(t)

	// Press centre maps to the quad midpoint.
	p := c.ToProjector(300, 200)
	assert.InDelta(t, 960, p.X, 0.1)
	assert.InDelta(t, 540, p.Y, 0.1)

	// Quad corners map exactly onto the press rectangle corners.
	tl := c.ToPress(100, 100)
	assert.InDelta(t, 0, tl.X, 1e-6)
	assert.InDelta(t, 0, tl.Y, 1e-6)
	br := c.ToPress(1820, 980)
	assert.InDelta(t, 600, br.X, 1e-6)
	assert.InDelta(t, 400, br.Y, 1e-6)
}

func TestRoundTripInvariant(t *testing.T) {
	// A non-rectangular (true perspective) quad exercises the projective
	// part of the transform, not just the affine part.
	skewed := geom.Quad{
		geom.Pt(120, 80),
		geom.Pt(1790, 140),
		geom.Pt(1700, 1010),
		geom.Pt(90, 930),
	}
	c, err := New(skewed, 600, 400)
	require.NoError(t, err)

	for _, p := range []geom.Point{
		geom.Pt(0, 0), geom.Pt(600, 0), geom.Pt(600, 400), geom.Pt(0, 400),
		geom.Pt(300, 200), geom.Pt(12.5, 399.9), geom.Pt(599, 1),
	} {
		px := c.ToProjector(p.X, p.Y)
		back := c.ToPress(px.X, px.Y)
		assert.InDelta(t, p.X, back.X, 1e-3, "x round trip for %v", p)
		assert.InDelta(t, p.Y, back.Y, 1e-3, "y round trip for %v", p)
	}

	// And the other direction, starting from projector pixels.
	for _, p := range []geom.Point{
		geom.Pt(960, 540), geom.Pt(150, 120), geom.Pt(1600, 900),
	} {
		mm := c.ToPress(p.X, p.Y)
		back := c.ToProjector(mm.X, mm.Y)
		assert.InDelta(t, p.X, back.X, 1e-1)
		assert.InDelta(t, p.Y, back.Y, 1e-1)
	}
}

func TestForwardInverseIdentity(t *testing.T) {
	c := benchCalibration(t)
	f := c.ForwardMatrix()
	inv := c.InverseMatrix()

	// forward x inverse ~ identity (row-major 3x3 multiply).
	var prod [9]float64
	for r := 0; r < 3; r++ {
		for col := 0; col < 3; col++ {
			var sum float64
			for k := 0; k < 3; k++ {
				sum += f[r*3+k] * inv[k*3+col]
			}
			prod[r*3+col] = sum
		}
	}
	// Normalise by the homogeneous scale before comparing.
	scale := prod[8]
	require.NotZero(t, scale)
	for i, v := range prod {
		want := 0.0
		if i == 0 || i == 4 || i == 8 {
			want = 1.0
		}
		assert.InDelta(t, want, v/scale, 1e-9, "element %d", i)
	}
}

func TestValidateQuality(t *testing.T) {
	c := benchCalibration(t)
	q := c.ValidateQuality()

	// Exact fit at the defining points.
	assert.True(t, q.Valid)
	assert.InDelta(t, 0, q.MaxErrorMm, 1e-6)
	assert.InDelta(t, 0, q.AvgErrorMm, 1e-6)
	assert.InDelta(t, c.PixelsPerMm(), q.PixelsPerMm, 1e-12)
	assert.GreaterOrEqual(t, q.MaxErrorMm, q.AvgErrorMm)
}

func TestBoundaryPatternLiesOutsideQuad(t *testing.T) {
	c := benchCalibration(t)
	const margin = 5.0
	boundary := c.BoundaryPattern(margin)

	centre := benchCorners.Centroid()
	for i := range boundary {
		dOrig := benchCorners[i].Dist(centre)
		dBound := boundary[i].Dist(centre)
		assert.Greater(t, dBound, dOrig, "boundary corner %d must lie outside the calibrated quad", i+1)

		// The outward displacement is proportional to margin x pixelsPerMm:
		// for a 5mm margin on this calibration each corner moves by
		// margin x ppm along both axes, i.e. sqrt(2)*margin*ppm total.
		moved := boundary[i].Dist(benchCorners[i])
		want := margin * c.PixelsPerMm() * math.Sqrt2
		assert.InDelta(t, want, moved, 0.5, "corner %d displacement", i+1)
	}
}

func TestSingularMatrixClassification(t *testing.T) {
	// invert3x3 must reject a rank-deficient matrix with ErrSingularMatrix.
	_, err := invert3x3([9]float64{1, 2, 3, 2, 4, 6, 0, 0, 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSingularMatrix))
}
