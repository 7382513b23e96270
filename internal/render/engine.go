package render

import (
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/projection"
	"github.com/pressalign/projector/internal/scene"
	"github.com/pressalign/projector/internal/timeutil"
)

// EngineConfig carries the render parameters that rarely change at runtime.
type EngineConfig struct {
	ProjectorWidth   int
	ProjectorHeight  int
	TargetPxPerMm    float64
	BoundaryMarginMm float64
	Format           Format
	Source           ImageSource
}

// Engine owns the two atomically-replaced state values (calibration and
// layout) and drives the pipeline with a single-flight, latest-wins
// scheduling policy: at most one run executes at a time, and at most one
// pending request is retained — a newer submission replaces any queued one.
// This bounds both staleness (never more than one frame behind) and memory
// (no request queue) under a fast-changing layout.
type Engine struct {
	cfg EngineConfig

	mu           sync.Mutex
	cal          *homography.Calibration
	layoutState  layout.State
	showBoundary bool
	bypassWarp   bool
	projW, projH int
	pending      *Request
	lastResult   *Result

	// kick wakes the run loop; capacity one makes Submit non-blocking.
	kick chan struct{}

	// runFn is the pipeline entry point, replaceable in tests.
	runFn func(Request) Result

	subMu       sync.Mutex
	subscribers map[string]chan Result
}

// NewEngine builds an idle engine. Call Run to start processing.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TargetPxPerMm <= 0 {
		cfg.TargetPxPerMm = 2
	}
	if cfg.ProjectorWidth <= 0 {
		cfg.ProjectorWidth = 1920
	}
	if cfg.ProjectorHeight <= 0 {
		cfg.ProjectorHeight = 1080
	}
	if cfg.BoundaryMarginMm <= 0 {
		cfg.BoundaryMarginMm = homography.DefaultBoundaryMarginMm
	}
	if cfg.Format == "" {
		cfg.Format = FormatPNG
	}
	e := &Engine{
		cfg:         cfg,
		projW:       cfg.ProjectorWidth,
		projH:       cfg.ProjectorHeight,
		kick:        make(chan struct{}, 1),
		subscribers: make(map[string]chan Result),
	}
	e.runFn = func(req Request) Result {
		return run(req, cfg.Source)
	}
	return e
}

// UpdateCalibration replaces the calibration wholesale and schedules a
// render. The previous calibration stays active until the new value is in
// place; partial mutation is impossible because Calibration is immutable.
func (e *Engine) UpdateCalibration(cal *homography.Calibration) {
	e.mu.Lock()
	e.cal = cal
	e.mu.Unlock()
	e.Submit()
}

// Calibration returns the current calibration snapshot (nil when
// uncalibrated).
func (e *Engine) Calibration() *homography.Calibration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cal
}

// ApplyLayout applies a partial layout update as one atomic transition and
// schedules a render. Last writer wins per field; concurrent partial
// updates are never merged.
func (e *Engine) ApplyLayout(d layout.Delta) (layout.State, error) {
	e.mu.Lock()
	next, err := e.layoutState.Apply(d)
	if err != nil {
		e.mu.Unlock()
		return layout.State{}, err
	}
	e.layoutState = next
	snapshot := next.Clone()
	e.mu.Unlock()

	e.Submit()
	return snapshot, nil
}

// Layout returns a copy of the current layout state.
func (e *Engine) Layout() layout.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layoutState.Clone()
}

// SetBoundaryVisible toggles the press boundary pattern and schedules a
// render.
func (e *Engine) SetBoundaryVisible(visible bool) {
	e.mu.Lock()
	e.showBoundary = visible
	e.mu.Unlock()
	e.Submit()
}

// BoundaryVisible reports whether the boundary pattern is shown.
func (e *Engine) BoundaryVisible() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.showBoundary
}

// SetBypassWarp toggles the debug identity-resize mode.
func (e *Engine) SetBypassWarp(bypass bool) {
	e.mu.Lock()
	e.bypassWarp = bypass
	e.mu.Unlock()
	e.Submit()
}

// SetProjectorResolution records the resolution reported by the projector
// client and schedules a render at the new size.
func (e *Engine) SetProjectorResolution(w, h int) {
	if w < 1 || h < 1 {
		return
	}
	e.mu.Lock()
	e.projW, e.projH = w, h
	e.mu.Unlock()
	e.Submit()
}

// ProjectorResolution returns the current output size.
func (e *Engine) ProjectorResolution() (int, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.projW, e.projH
}

// Submit takes an atomic snapshot of the current state and admits it for
// rendering. It never blocks: if a run is in flight the snapshot replaces
// any previously pending request (intermediate requests are dropped, never
// queued). Returns whether the request was admitted.
func (e *Engine) Submit() bool {
	e.mu.Lock()
	req := e.snapshotLocked()
	e.pending = &req
	e.mu.Unlock()

	select {
	case e.kick <- struct{}{}:
	default:
		// Run loop already has a wakeup pending; the new request is in
		// the slot and will be picked up.
	}
	return true
}

// snapshotLocked builds a Request from current state. Caller holds e.mu.
func (e *Engine) snapshotLocked() Request {
	return Request{
		Layout:           e.layoutState.Clone(),
		Calibration:      e.cal,
		TargetPxPerMm:    e.cfg.TargetPxPerMm,
		ProjectorWidth:   e.projW,
		ProjectorHeight:  e.projH,
		ShowBoundary:     e.showBoundary,
		BoundaryMarginMm: e.cfg.BoundaryMarginMm,
		BypassWarp:       e.bypassWarp,
		Format:           e.cfg.Format,
	}
}

// PreviewSVG composes the vector scene for the current state and returns
// its SVG form without rasterizing. Cheap enough to call on every layout
// edit. With no calibration present it returns the error card rather than
// a silently mis-positioned preview.
func (e *Engine) PreviewSVG() string {
	e.mu.Lock()
	req := e.snapshotLocked()
	e.mu.Unlock()

	sc, err := sceneFromRequest(req, aspectOnly(e.cfg.Source))
	if err != nil {
		return scene.ErrorSVG(req.ProjectorWidth, req.ProjectorHeight, "Calibration required")
	}
	return sc.SVG()
}

// Uncalibrated reports whether conversions would fail for lack of a
// calibration.
func (e *Engine) Uncalibrated() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cal == nil {
		return true
	}
	_, err := projection.NewChain(e.cal, e.cfg.TargetPxPerMm)
	return err != nil
}

// LastResult returns the most recent pipeline result, or nil before the
// first completed run.
func (e *Engine) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// Subscribe registers a frame observer. Every completed (non-dropped)
// pipeline run is sent to each subscriber; a subscriber that cannot keep
// up misses frames rather than stalling the pipeline.
func (e *Engine) Subscribe() (string, chan Result) {
	id := randomID()
	ch := make(chan Result, 1)
	e.subMu.Lock()
	defer e.subMu.Unlock()
	e.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a frame observer and closes its channel.
func (e *Engine) Unsubscribe(id string) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	if ch, ok := e.subscribers[id]; ok {
		close(ch)
		delete(e.subscribers, id)
	}
}

func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (e *Engine) publish(res Result) {
	e.mu.Lock()
	e.lastResult = &res
	e.mu.Unlock()

	e.subMu.Lock()
	defer e.subMu.Unlock()
	for _, ch := range e.subscribers {
		select {
		case ch <- res:
		default:
			// Slow consumer: skip this frame for them. The next render
			// supersedes it anyway.
		}
	}
}

// Run executes the scheduling loop until the context is cancelled. Exactly
// one pipeline run is in flight at any time; when a run completes, any
// pending request is dequeued and started immediately, otherwise the loop
// goes idle. There is no mid-run cancellation: a stale request can only be
// dropped at admission, never interrupted.
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.kick:
			for {
				e.mu.Lock()
				req := e.pending
				e.pending = nil
				e.mu.Unlock()
				if req == nil {
					break
				}

				res := e.runFn(*req)
				if !res.Failed() {
					res.Stage = StageDelivered
				}
				e.publish(res)
			}
		}
	}
}

// RunPeriodic submits a refresh on a fixed interval through the same
// coalescing admission path as every other producer. It exists so a slow
// or reconnecting projector client eventually converges on the latest
// state without special-cased scheduling in the core.
func (e *Engine) RunPeriodic(ctx context.Context, clk timeutil.Clock, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := clk.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			e.Submit()
		}
	}
}
