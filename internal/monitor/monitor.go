package monitor

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/render"
)

const defaultHistorySize = 200

// Monitor collects pipeline samples and serves the debug pages.
type Monitor struct {
	history *History

	// calibration returns the current calibration, nil when absent.
	calibration func() *homography.Calibration
}

// New creates a Monitor reading calibration state through the given
// accessor.
func New(calibration func() *homography.Calibration) *Monitor {
	return &Monitor{
		history:     NewHistory(defaultHistorySize),
		calibration: calibration,
	}
}

// Observe records a completed pipeline run. Wire it to the engine's frame
// subscription.
func (m *Monitor) Observe(res render.Result) {
	m.history.Add(Sample{
		FrameID:  res.FrameID,
		At:       time.Now(),
		Stage:    res.Stage,
		Degraded: res.Degraded,
		Timings:  res.Timings,
	})
}

// AttachRoutes mounts the debug pages.
func (m *Monitor) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/render-timings", m.HandleTimingChart)
	mux.HandleFunc("/debug/calibration-plot", m.HandleCalibrationPlot)
}

// HandleTimingChart renders a line chart (HTML) of per-stage render times
// for the recent frame history. Debugging-only endpoint.
func (m *Monitor) HandleTimingChart(w http.ResponseWriter, r *http.Request) {
	samples := m.history.Samples()
	if len(samples) == 0 {
		http.Error(w, "no render samples recorded yet", http.StatusNotFound)
		return
	}

	x := make([]string, 0, len(samples))
	vectorize := make([]opts.LineData, 0, len(samples))
	rasterize := make([]opts.LineData, 0, len(samples))
	warp := make([]opts.LineData, 0, len(samples))
	encode := make([]opts.LineData, 0, len(samples))
	total := make([]opts.LineData, 0, len(samples))
	for i, s := range samples {
		x = append(x, fmt.Sprintf("%d", i-len(samples)+1))
		vectorize = append(vectorize, opts.LineData{Value: ms(s.Timings.Vectorize)})
		rasterize = append(rasterize, opts.LineData{Value: ms(s.Timings.Rasterize)})
		warp = append(warp, opts.LineData{Value: ms(s.Timings.Warp)})
		encode = append(encode, opts.LineData{Value: ms(s.Timings.Encode)})
		total = append(total, opts.LineData{Value: ms(s.Timings.Total)})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Render Timings", Theme: "dark", Width: "1200px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Render Pipeline Timings", Subtitle: fmt.Sprintf("last %d frames, milliseconds per stage", len(samples))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "ms"}),
	)
	line.SetXAxis(x).
		AddSeries("vectorize", vectorize).
		AddSeries("rasterize", rasterize).
		AddSeries("warp", warp).
		AddSeries("encode", encode).
		AddSeries("total", total)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		http.Error(w, fmt.Sprintf("failed to render chart: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
