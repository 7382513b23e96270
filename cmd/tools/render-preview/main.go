// Command render-preview runs the render pipeline once against a
// calibration and layout read from disk and writes the encoded frame and
// SVG preview next to them. Useful for checking a layout without a
// projector attached.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/pressalign/projector/internal/assets"
	"github.com/pressalign/projector/internal/fsutil"
	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/render"
	"github.com/pressalign/projector/internal/security"
)

type calibrationInput struct {
	Corners       geom.Quad `json:"corners"`
	PressWidthMm  float64   `json:"press_width_mm"`
	PressHeightMm float64   `json:"press_height_mm"`
}

func main() {
	calPath := flag.String("calibration", "calibration.json", "calibration JSON file")
	layoutPath := flag.String("layout", "layout.json", "layout JSON file")
	uploadsDir := flag.String("uploads", "uploads", "directory holding referenced images")
	outFrame := flag.String("o", "frame.png", "output frame path")
	outSVG := flag.String("svg", "preview.svg", "output preview path")
	width := flag.Int("w", 1920, "projector width in px")
	height := flag.Int("h", 1080, "projector height in px")
	boundary := flag.Bool("boundary", false, "draw the boundary pattern")
	flag.Parse()

	var calIn calibrationInput
	readJSON(*calPath, &calIn)
	cal, err := homography.New(calIn.Corners, calIn.PressWidthMm, calIn.PressHeightMm)
	if err != nil {
		log.Fatalf("calibration rejected: %v", err)
	}

	var state layout.State
	readJSON(*layoutPath, &state)

	store, err := assets.NewStore(fsutil.OSFileSystem{}, *uploadsDir)
	if err != nil {
		log.Fatalf("failed to open uploads directory: %v", err)
	}

	res := render.RunOnce(render.Request{
		Layout:           state,
		Calibration:      cal,
		TargetPxPerMm:    2,
		ProjectorWidth:   *width,
		ProjectorHeight:  *height,
		ShowBoundary:     *boundary,
		BoundaryMarginMm: homography.DefaultBoundaryMarginMm,
		Format:           render.FormatPNG,
	}, store)
	if res.Failed() {
		log.Fatalf("render failed: %v", res.Err)
	}
	for _, reason := range res.DegradedReasons {
		log.Printf("degraded: %s", reason)
	}

	for _, out := range []string{*outFrame, *outSVG} {
		if err := security.ValidateExportPath(out); err != nil {
			log.Fatalf("refusing output path: %v", err)
		}
	}
	if err := os.WriteFile(*outFrame, res.Frame, 0o644); err != nil {
		log.Fatalf("failed to write frame: %v", err)
	}
	if err := os.WriteFile(*outSVG, []byte(res.SVG), 0o644); err != nil {
		log.Fatalf("failed to write preview: %v", err)
	}
	log.Printf("✓ Wrote %s and %s (%v total)", *outFrame, *outSVG, res.Timings.Total)
}

func readJSON(path string, v interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		log.Fatalf("failed to parse %s: %v", path, err)
	}
}
