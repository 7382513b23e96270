// Command calibrate checks a four-point calibration offline: it reads the
// corner/press-size JSON the API accepts and prints the derived transform
// quality without touching a running server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
)

type input struct {
	Corners       geom.Quad `json:"corners"`
	PressWidthMm  float64   `json:"press_width_mm"`
	PressHeightMm float64   `json:"press_height_mm"`
}

func main() {
	path := flag.String("f", "calibration.json", "calibration JSON file")
	marginMm := flag.Float64("margin", homography.DefaultBoundaryMarginMm, "boundary margin in mm")
	flag.Parse()

	data, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("failed to read %s: %v", *path, err)
	}
	var in input
	if err := json.Unmarshal(data, &in); err != nil {
		log.Fatalf("failed to parse %s: %v", *path, err)
	}

	cal, err := homography.New(in.Corners, in.PressWidthMm, in.PressHeightMm)
	if err != nil {
		log.Fatalf("calibration rejected: %v", err)
	}

	q := cal.ValidateQuality()
	fmt.Printf("press:         %.1f x %.1f mm\n", cal.PressWidthMm(), cal.PressHeightMm())
	fmt.Printf("pixels per mm: %.4f\n", q.PixelsPerMm)
	fmt.Printf("max error:     %.6f mm\n", q.MaxErrorMm)
	fmt.Printf("avg error:     %.6f mm\n", q.AvgErrorMm)
	fmt.Printf("valid:         %v\n", q.Valid)

	fmt.Println("boundary pattern (projector px):")
	for i, p := range cal.BoundaryPattern(*marginMm) {
		fmt.Printf("  corner %d: (%.1f, %.1f)\n", i, p.X, p.Y)
	}

	if !q.Valid {
		os.Exit(1)
	}
}
