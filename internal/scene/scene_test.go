package scene

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/projection"
)

type stubResolver struct {
	aspect float64
	err    error
}

func (s stubResolver) AspectRatio(string) (float64, error) { return s.aspect, s.err }

func testChain(t *testing.T) *projection.Chain {
	t.Helper()
	cal, err := homography.New(geom.Quad{
		geom.Pt(100, 100),
		geom.Pt(1820, 100),
		geom.Pt(1820, 980),
		geom.Pt(100, 980),
	}, 600, 400)
	require.NoError(t, err)
	ch, err := projection.NewChain(cal, 2)
	require.NoError(t, err)
	return ch
}

func testState() layout.State {
	y := 200.0
	st := layout.State{ObjectOrientationDeg: 15}
	elems := []layout.Element{
		{Kind: layout.KindLine, Start: geom.Pt(50, 50), End: geom.Pt(250, 50), Label: "Top line"},
		{Kind: layout.KindRectangle, Position: geom.Pt(100, 100), WidthMm: 50, HeightMm: 30, RotationDeg: 10},
		{Kind: layout.KindCircle, Position: geom.Pt(200, 150), RadiusMm: 20, ColorHex: "#ff8800"},
		{Kind: layout.KindText, Position: geom.Pt(30, 30), Content: "station 4", FontSizePx: 18},
	}
	st, _ = st.Apply(layout.Delta{
		CenterLines: &layout.CenterLines{HorizontalYMm: &y},
		Elements:    &elems,
	})
	return st
}

func TestComposeGeometry(t *testing.T) {
	ch := testChain(t)
	sc := Compose(testState(), ch, nil, Options{})

	assert.Equal(t, 1200, sc.Width)
	assert.Equal(t, 800, sc.Height)
	assert.Equal(t, 15.0, sc.RotationDeg)

	// centre line + 4 elements
	require.Len(t, sc.Primitives, 5)

	centre := sc.Primitives[0]
	assert.Equal(t, PrimLine, centre.Kind)
	assert.Equal(t, 400.0, centre.Y, "200mm at 2 px/mm")
	assert.Equal(t, 0.0, centre.X)
	assert.Equal(t, 1200.0, centre.X2)

	line := sc.Primitives[1]
	assert.Equal(t, PrimLine, line.Kind)
	assert.Equal(t, 100.0, line.X)
	assert.Equal(t, 500.0, line.X2)

	rect := sc.Primitives[2]
	assert.Equal(t, PrimRect, rect.Kind)
	assert.Equal(t, 200.0, rect.X)
	assert.Equal(t, 100.0, rect.W)
	assert.Equal(t, 60.0, rect.H)
	assert.Equal(t, 10.0, rect.RotationDeg)

	circle := sc.Primitives[3]
	assert.Equal(t, PrimCircle, circle.Kind)
	assert.Equal(t, 40.0, circle.R)
	assert.Equal(t, "#ff8800", circle.Color)
}

func TestComposeDefaultStrokeWidth(t *testing.T) {
	ch := testChain(t)
	sc := Compose(testState(), ch, nil, Options{})

	// Unset line width falls back to 2mm, scaled by target density.
	assert.Equal(t, 4.0, sc.Primitives[1].StrokeWidth)
}

func TestComposeDefaultFontSize(t *testing.T) {
	ch := testChain(t)
	st := layout.State{Elements: []layout.Element{{
		ID:       "text_0",
		Kind:     layout.KindText,
		Position: geom.Pt(100, 100),
		Content:  "press two",
	}}}
	sc := Compose(st, ch, nil, Options{})

	// Unset font size gets the shared default at compose time, so the SVG
	// preview shows the same text the raster path draws.
	require.Len(t, sc.Primitives, 1)
	assert.Equal(t, DefaultFontSizePx, sc.Primitives[0].FontSizePx)
	assert.Contains(t, sc.SVG(), "font-size=\"16\"")
	assert.NotContains(t, sc.SVG(), "font-size=\"0\"")
}

func TestComposeLabelsAreMetadataOnly(t *testing.T) {
	ch := testChain(t)
	sc := Compose(testState(), ch, nil, Options{})

	require.Len(t, sc.Labels, 1)
	assert.Equal(t, "Top line", sc.Labels[0].Text)
	assert.Equal(t, "line_0", sc.Labels[0].ElementID)

	// The label text never appears in the SVG output.
	svg := sc.SVG()
	assert.NotContains(t, svg, "Top line")
	// But real text elements do.
	assert.Contains(t, svg, "station 4")
}

func TestComposeIdempotent(t *testing.T) {
	ch := testChain(t)
	st := testState()

	a := Compose(st, ch, nil, Options{ShowBoundary: true}).SVG()
	b := Compose(st, ch, nil, Options{ShowBoundary: true}).SVG()
	assert.Equal(t, a, b, "identical inputs must produce byte-identical scenes")
}

func TestComposeBoundaryPattern(t *testing.T) {
	ch := testChain(t)
	sc := Compose(layout.State{}, ch, nil, Options{ShowBoundary: true, BoundaryMarginMm: 5})

	// Polygon + 4 markers + 4 numbers, in both spaces.
	require.Len(t, sc.Boundary, 9)
	require.Len(t, sc.BoundaryPreview, 9)

	poly := sc.Boundary[0]
	assert.Equal(t, PrimPolygon, poly.Kind)
	require.Len(t, poly.Points, 4)

	// Markers are numbered 1-4 in calibration corner order.
	var numbers []string
	for _, p := range sc.Boundary {
		if p.Kind == PrimText {
			numbers = append(numbers, p.Text)
		}
	}
	assert.Equal(t, []string{"1", "2", "3", "4"}, numbers)

	// Projector-space polygon lies outside the calibrated quad.
	quad := ch.Calibration().Corners()
	centre := quad.Centroid()
	for i, p := range poly.Points {
		assert.Greater(t, p.Dist(centre), quad[i].Dist(centre), "corner %d", i+1)
	}

	// Preview polygon brackets the target buffer (margin pushes corners
	// slightly outside 0..W, 0..H).
	prev := sc.BoundaryPreview[0]
	assert.InDelta(t, -10, prev.Points[0].X, 0.5, "5mm margin at 2 px/mm")
	assert.InDelta(t, -10, prev.Points[0].Y, 0.5)
	assert.InDelta(t, 1210, prev.Points[2].X, 0.5)
	assert.InDelta(t, 810, prev.Points[2].Y, 0.5)
}

func TestComposeDegradedImage(t *testing.T) {
	ch := testChain(t)
	elems := []layout.Element{
		{Kind: layout.KindImage, Position: geom.Pt(10, 10), WidthMm: 40, SourceRef: "/uploads/missing.png"},
	}
	st, err := layout.State{}.Apply(layout.Delta{Elements: &elems})
	require.NoError(t, err)

	t.Run("unresolved reference falls back to square", func(t *testing.T) {
		sc := Compose(st, ch, stubResolver{err: errors.New("no such upload")}, Options{})
		require.Len(t, sc.Primitives, 1)
		img := sc.Primitives[0]
		assert.Equal(t, img.W, img.H, "fallback aspect ratio is 1:1")
		assert.True(t, sc.Degraded)
		assert.NotEmpty(t, sc.DegradedReasons)
	})

	t.Run("resolved reference uses native aspect", func(t *testing.T) {
		sc := Compose(st, ch, stubResolver{aspect: 0.5}, Options{})
		img := sc.Primitives[0]
		assert.Equal(t, 80.0, img.W)
		assert.Equal(t, 40.0, img.H)
		assert.False(t, sc.Degraded)
	})
}

func TestSVGStructure(t *testing.T) {
	ch := testChain(t)
	svg := Compose(testState(), ch, nil, Options{}).SVG()

	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `<svg width="1200" height="800"`)
	assert.Contains(t, svg, `rotate(15 600 400)`)
	assert.Contains(t, svg, "stroke-dasharray=\"10,5\"")
	assert.Contains(t, svg, "</svg>")
}

func TestErrorSVG(t *testing.T) {
	svg := ErrorSVG(1920, 1080, "Calibration required")
	assert.Contains(t, svg, `width="1920"`)
	assert.Contains(t, svg, "Calibration required")
	assert.Contains(t, svg, `fill="#ff0000"`)
}
