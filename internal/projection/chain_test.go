package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
)

func testCalibration(t *testing.T) *homography.Calibration {
	t.Helper()
	c, err := homography.New(geom.Quad{
		geom.Pt(100, 100),
		geom.Pt(1820, 100),
		geom.Pt(1820, 980),
		geom.Pt(100, 980),
	}, 600, 400)
	require.NoError(t, err)
	return c
}

func TestNewChainRequiresCalibration(t *testing.T) {
	_, err := NewChain(nil, 4)
	require.ErrorIs(t, err, ErrUncalibrated)

	_, err = NewChain(testCalibration(t), 0)
	require.Error(t, err)
}

func TestPressToTargetIsPlainScale(t *testing.T) {
	ch, err := NewChain(testCalibration(t), 4)
	require.NoError(t, err)

	p := ch.PressToTarget(150, 75)
	assert.Equal(t, geom.Pt(600, 300), p)
	assert.Equal(t, 40.0, ch.LengthToTarget(10))
}

func TestTargetToProjectorAgreesWithDirectConversion(t *testing.T) {
	cal := testCalibration(t)
	ch, err := NewChain(cal, 4)
	require.NoError(t, err)

	// A target pixel reinterpreted as press mm must land on the same
	// projector pixel as the direct press conversion.
	target := ch.PressToTarget(300, 200)
	viaTarget := ch.TargetToProjector(target.X, target.Y)
	direct := ch.PressToProjector(300, 200)

	assert.InDelta(t, direct.X, viaTarget.X, 1e-9)
	assert.InDelta(t, direct.Y, viaTarget.Y, 1e-9)
	assert.InDelta(t, 960, direct.X, 0.1)
	assert.InDelta(t, 540, direct.Y, 0.1)
}

func TestTargetSize(t *testing.T) {
	ch, err := NewChain(testCalibration(t), 2)
	require.NoError(t, err)

	w, h := ch.TargetSize()
	assert.Equal(t, 1200, w)
	assert.Equal(t, 800, h)
}
