package render

import (
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"

	"github.com/pressalign/projector/internal/projection"
	"github.com/pressalign/projector/internal/scene"
)

// ImageSource resolves image element references into decoded pixel data and
// aspect ratios. Implemented by the asset store; nil disables image
// resolution (every image element degrades to a placeholder).
type ImageSource interface {
	scene.AspectResolver
	Image(sourceRef string) (image.Image, error)
}

func newChain(req Request) (*projection.Chain, error) {
	return projection.NewChain(req.Calibration, req.TargetPxPerMm)
}

// RunOnce executes a single pipeline pass outside the engine, for offline
// tooling. Live rendering goes through Engine, which adds scheduling and
// fan-out on top of the same pass.
func RunOnce(req Request, src ImageSource) Result {
	return run(req, src)
}

// run executes one complete pipeline pass for an admitted request snapshot.
// Geometry errors (no calibration, degenerate transform) fail the run;
// per-frame raster and asset problems degrade the frame instead, because a
// blank or partial guide is less harmful during live alignment work than no
// frame at all.
func run(req Request, src ImageSource) Result {
	start := time.Now()
	var t Timings
	frameID := uuid.NewString()

	// Vectorize. Fails closed when uncalibrated: no projector-pixel
	// conversion may happen without a valid calibration.
	vstart := time.Now()
	sc, err := sceneFromRequest(req, aspectOnly(src))
	if err != nil {
		t.Vectorize = time.Since(vstart)
		t.Total = time.Since(start)
		return failed(frameID, err, t)
	}
	t.Vectorize = time.Since(vstart)

	result := Result{
		FrameID:         frameID,
		Stage:           StageVectorized,
		SVG:             sc.SVG(),
		Degraded:        sc.Degraded,
		DegradedReasons: sc.DegradedReasons,
	}

	// Rasterize into the rectified target buffer. Malformed scene content
	// degrades to an empty buffer rather than aborting the frame.
	rstart := time.Now()
	raster, reasons, rasterErr := rasterize(sc, src)
	if rasterErr != nil {
		raster = emptyBuffer(sc.Width, sc.Height)
		result.Degraded = true
		result.DegradedReasons = append(result.DegradedReasons,
			fmt.Sprintf("rasterize: %v", rasterErr))
	}
	if len(reasons) > 0 {
		result.Degraded = true
		result.DegradedReasons = append(result.DegradedReasons, reasons...)
	}
	t.Rasterize = time.Since(rstart)
	result.Stage = StageRasterized

	// Warp into projector pixels, or identity-resize when bypassed.
	wstart := time.Now()
	var warped *image.NRGBA
	if req.BypassWarp {
		warped = resizeIdentity(raster, req.ProjectorWidth, req.ProjectorHeight)
	} else {
		warped = warpPerspective(raster, req.Calibration, req.TargetPxPerMm,
			req.ProjectorWidth, req.ProjectorHeight)
	}
	// The boundary pattern is positioned by calibration alone, so it is
	// painted after the warp, directly in projector space.
	if len(sc.Boundary) > 0 {
		warped = drawOverlay(warped, sc.Boundary)
	}
	t.Warp = time.Since(wstart)
	result.Stage = StageWarped

	// Encode for transport.
	estart := time.Now()
	frame, err := encodeFrame(warped, req.Format)
	t.Encode = time.Since(estart)
	if err != nil {
		t.Total = time.Since(start)
		return failed(frameID, fmt.Errorf("%w: %v", ErrEncode, err), t)
	}
	result.Stage = StageEncoded
	result.Frame = frame
	result.MIME = req.Format.MIME()

	t.Total = time.Since(start)
	result.Timings = t
	return result
}

// aspectOnly adapts an ImageSource to the compositor's resolver interface,
// tolerating a nil source.
func aspectOnly(src ImageSource) scene.AspectResolver {
	if src == nil {
		return nil
	}
	return src
}

func emptyBuffer(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	fillBackground(img)
	return img
}
