package monitor

import (
	"fmt"
	"net/http"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
)

// HandleCalibrationPlot renders the calibration geometry as a PNG: the
// corner quad in projector pixels plus the margin-expanded boundary
// outline. Useful for sanity-checking a calibration without a projector
// attached.
func (m *Monitor) HandleCalibrationPlot(w http.ResponseWriter, r *http.Request) {
	cal := m.calibration()
	if cal == nil {
		http.Error(w, "no calibration present", http.StatusNotFound)
		return
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Press Calibration (%.0fx%.0fmm, %.2f px/mm)",
		cal.PressWidthMm(), cal.PressHeightMm(), cal.PixelsPerMm())
	p.X.Label.Text = "Projector X (px)"
	p.Y.Label.Text = "Projector Y (px)"
	// Projector pixel Y grows downward.
	p.Y.Scale = invertedScale{}

	quadLine, err := closedQuad(cal.Corners())
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to build plot: %v", err), http.StatusInternalServerError)
		return
	}
	quadLine.Width = vg.Points(2)
	p.Add(quadLine)
	p.Legend.Add("press corners", quadLine)

	boundary, err := closedQuad(cal.BoundaryPattern(homography.DefaultBoundaryMarginMm))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to build plot: %v", err), http.StatusInternalServerError)
		return
	}
	boundary.Width = vg.Points(1)
	boundary.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(boundary)
	p.Legend.Add("boundary pattern", boundary)

	corners, err := plotter.NewScatter(quadPoints(cal.Corners()))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to build plot: %v", err), http.StatusInternalServerError)
		return
	}
	corners.GlyphStyle.Radius = vg.Points(4)
	p.Add(corners)

	p.Legend.Top = true

	wt, err := p.WriterTo(8*vg.Inch, 4.5*vg.Inch, "png")
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to render plot: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = wt.WriteTo(w)
}

func closedQuad(q geom.Quad) (*plotter.Line, error) {
	pts := quadPoints(q)
	pts = append(pts, pts[0])
	return plotter.NewLine(pts)
}

func quadPoints(q geom.Quad) plotter.XYs {
	pts := make(plotter.XYs, 0, len(q))
	for _, c := range q {
		pts = append(pts, plotter.XY{X: c.X, Y: c.Y})
	}
	return pts
}

// invertedScale flips the Y axis so the plot matches screen coordinates.
type invertedScale struct{}

func (invertedScale) Normalize(min, max, x float64) float64 {
	return (max - x) / (max - min)
}
