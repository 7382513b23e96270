// Package render drives the projector frame pipeline: vectorize the layout,
// rasterize it into the rectified target buffer, warp it into projector
// pixels through the inverse homography, and encode the result for
// transport. A single-flight engine with latest-wins coalescing serialises
// pipeline runs under concurrent update pressure.
package render

import (
	"errors"
	"time"

	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/scene"
)

// ErrEncode indicates frame serialization failed. The frame is dropped and
// the pipeline stays healthy; the next render request supersedes it.
var ErrEncode = errors.New("frame encode failed")

// Stage names the pipeline state machine states.
type Stage string

const (
	StageVectorized Stage = "vectorized"
	StageRasterized Stage = "rasterized"
	StageWarped     Stage = "warped"
	StageEncoded    Stage = "encoded"
	StageDelivered  Stage = "delivered"
	StageFailed     Stage = "failed"
)

// Format selects the frame encoding.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

// MIME returns the transport content type for the format.
func (f Format) MIME() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// Request is an atomic snapshot of everything one pipeline run needs. It is
// taken at admission time: a calibration or layout change mid-render never
// retroactively affects an already admitted request.
type Request struct {
	Layout      layout.State
	Calibration *homography.Calibration

	TargetPxPerMm    float64
	ProjectorWidth   int
	ProjectorHeight  int
	ShowBoundary     bool
	BoundaryMarginMm float64

	// BypassWarp replaces the perspective warp with an identity resize.
	// Debug preview only; never used for the physical frame in production.
	BypassWarp bool

	Format Format
}

// Timings records per-stage wall time for diagnostics.
type Timings struct {
	Vectorize time.Duration `json:"vectorize"`
	Rasterize time.Duration `json:"rasterize"`
	Warp      time.Duration `json:"warp"`
	Encode    time.Duration `json:"encode"`
	Total     time.Duration `json:"total"`
}

// Result is the outcome of one pipeline run: either an encoded frame or a
// terminal failure, plus diagnostic metadata.
type Result struct {
	FrameID string
	Stage   Stage

	// Frame holds the encoded warped image when Stage is Encoded or
	// Delivered.
	Frame []byte
	MIME  string

	// SVG is the vector preview of the composed scene.
	SVG string

	Degraded        bool
	DegradedReasons []string

	Timings Timings
	Err     error
}

// Failed reports whether the run ended in the terminal failure state.
func (r Result) Failed() bool { return r.Stage == StageFailed }

// failed builds a terminal failure result, reachable from any stage.
func failed(frameID string, err error, t Timings) Result {
	return Result{FrameID: frameID, Stage: StageFailed, Err: err, Timings: t}
}

// sceneFromRequest composes the vector scene for the request snapshot.
func sceneFromRequest(req Request, res scene.AspectResolver) (*scene.Scene, error) {
	ch, err := newChain(req)
	if err != nil {
		return nil, err
	}
	sc := scene.Compose(req.Layout, ch, res, scene.Options{
		ShowBoundary:     req.ShowBoundary,
		BoundaryMarginMm: req.BoundaryMarginMm,
	})
	return sc, nil
}
