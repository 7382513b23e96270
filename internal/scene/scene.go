// Package scene turns a layout plus a calibration snapshot into a single
// ordered vector scene in rectified target-buffer pixels, ready for SVG
// preview or rasterization.
package scene

import (
	"fmt"

	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/projection"
)

// PrimKind discriminates vector primitives.
type PrimKind string

const (
	PrimLine    PrimKind = "line"
	PrimRect    PrimKind = "rect"
	PrimCircle  PrimKind = "circle"
	PrimPolygon PrimKind = "polygon"
	PrimImage   PrimKind = "image"
	PrimText    PrimKind = "text"
)

// Primitive is one drawable item. Coordinates are pixels in the space the
// owning scene list implies (target buffer, or projector for the boundary
// overlay).
type Primitive struct {
	Kind PrimKind

	// X, Y anchor the primitive: line start, rect/image top-left, circle
	// centre, text baseline origin.
	X, Y float64
	// X2, Y2 is the line end point.
	X2, Y2 float64
	// W, H are rect/image extents; R is the circle radius.
	W, H, R float64
	// Points holds polygon vertices.
	Points []geom.Point

	// RotationDeg rotates the primitive about (PivotX, PivotY).
	RotationDeg    float64
	PivotX, PivotY float64

	Color       string
	Fill        string
	StrokeWidth float64
	Dash        []float64

	// Text primitives.
	Text       string
	FontSizePx float64

	// Image primitives carry the unresolved reference; pixel data is
	// resolved by the raster stage.
	SourceRef string
}

// Label is authoring-view metadata attached to an element. Labels are never
// rasterized into the projected frame: a warped label would be mirrored or
// rotated on the physical surface and become unreadable, so they exist only
// for the control view.
type Label struct {
	ElementID string     `json:"element_id"`
	Text      string     `json:"text"`
	AnchorPx  geom.Point `json:"anchor_px"`
}

// Scene is the composed vector scene. Identical inputs always produce an
// identical Scene: there are no hidden counters or random ids in the
// geometry, so composition is idempotent.
type Scene struct {
	// Width, Height of the rectified target buffer in pixels.
	Width, Height int

	// RotationDeg is the root object-orientation transform, applied about
	// the buffer centre ahead of all element transforms.
	RotationDeg float64

	// Primitives are in target-buffer pixels, in paint order.
	Primitives []Primitive

	// Boundary holds the press boundary pattern in projector pixels. It is
	// exempt from the rectified buffer because its purpose is to validate
	// the calibration itself; the raster pipeline draws it after the warp.
	Boundary []Primitive

	// BoundaryPreview is the same pattern mapped into target-buffer pixels
	// for the unwarped SVG preview.
	BoundaryPreview []Primitive

	Labels []Label

	// Degraded is set when a best-effort fallback was taken (for example an
	// unresolvable image reference); the reasons list what happened.
	Degraded        bool
	DegradedReasons []string
}

// AspectResolver resolves an image source reference into its native aspect
// ratio (height/width). Implemented by the asset collaborator.
type AspectResolver interface {
	AspectRatio(sourceRef string) (float64, error)
}

// Options tune composition.
type Options struct {
	// ShowBoundary appends the press boundary pattern, always topmost.
	ShowBoundary bool
	// BoundaryMarginMm expands the press rectangle for the boundary
	// pattern; zero means the default margin.
	BoundaryMarginMm float64
}

// DefaultLineWidthMm is the stroke width for elements that do not set one.
const DefaultLineWidthMm = 2.0

// DefaultFontSizePx is the text size for elements that do not set one.
// Applied at compose time so the SVG preview and the raster path draw the
// same thing.
const DefaultFontSizePx = 16.0

const (
	centerLineColor  = "#ff0000"
	boundaryColor    = "#ffff00"
	boundaryFill     = "rgba(255, 255, 0, 0.2)"
	markerTextColor  = "#000000"
	markerRadiusPx   = 8.0
	markerFontSizePx = 12.0
)

// Compose builds the vector scene for one (layout, calibration) snapshot.
// The chain must be calibrated; callers handle the uncalibrated case before
// composing (see projection.ErrUncalibrated).
func Compose(st layout.State, ch *projection.Chain, res AspectResolver, opts Options) *Scene {
	w, h := ch.TargetSize()
	sc := &Scene{
		Width:       w,
		Height:      h,
		RotationDeg: st.ObjectOrientationDeg,
	}

	sc.composeCenterLines(st, ch)
	for _, e := range st.Elements {
		sc.composeElement(e, ch, res)
	}

	if opts.ShowBoundary {
		margin := opts.BoundaryMarginMm
		if margin <= 0 {
			margin = 5
		}
		sc.composeBoundary(ch, margin)
	}

	return sc
}

func (sc *Scene) degrade(reason string) {
	sc.Degraded = true
	sc.DegradedReasons = append(sc.DegradedReasons, reason)
}

// strokeWidth converts a millimetre line width to target pixels, falling
// back to the default width and clamping to a minimum of one pixel so thin
// guides stay visible.
func strokeWidth(lineWidthMm float64, ch *projection.Chain) float64 {
	if lineWidthMm <= 0 {
		lineWidthMm = DefaultLineWidthMm
	}
	w := ch.LengthToTarget(lineWidthMm)
	if w < 1 {
		w = 1
	}
	return w
}

func (sc *Scene) composeCenterLines(st layout.State, ch *projection.Chain) {
	dash := []float64{10, 5}
	width := float64(sc.Width)
	height := float64(sc.Height)

	if st.CenterLines.HorizontalYMm != nil {
		y := ch.PressToTarget(0, *st.CenterLines.HorizontalYMm).Y
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimLine, X: 0, Y: y, X2: width, Y2: y,
			Color: centerLineColor, StrokeWidth: 3, Dash: dash,
		})
	}
	if st.CenterLines.VerticalXMm != nil {
		x := ch.PressToTarget(*st.CenterLines.VerticalXMm, 0).X
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimLine, X: x, Y: 0, X2: x, Y2: height,
			Color: centerLineColor, StrokeWidth: 3, Dash: dash,
		})
	}
}

func (sc *Scene) composeElement(e layout.Element, ch *projection.Chain, res AspectResolver) {
	if e.Label != "" {
		anchor := e.Position
		if e.Kind == layout.KindLine {
			anchor = e.Start
		}
		sc.Labels = append(sc.Labels, Label{
			ElementID: e.ID,
			Text:      e.Label,
			AnchorPx:  ch.PressToTarget(anchor.X, anchor.Y),
		})
	}

	switch e.Kind {
	case layout.KindLine:
		start := ch.PressToTarget(e.Start.X, e.Start.Y)
		end := ch.PressToTarget(e.End.X, e.End.Y)
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimLine,
			X:    start.X, Y: start.Y, X2: end.X, Y2: end.Y,
			RotationDeg: e.RotationDeg, PivotX: start.X, PivotY: start.Y,
			Color:       e.Color(),
			StrokeWidth: strokeWidth(e.LineWidthMm, ch),
			Dash:        []float64{5, 5},
		})

	case layout.KindRectangle:
		p := ch.PressToTarget(e.Position.X, e.Position.Y)
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimRect,
			X:    p.X, Y: p.Y,
			W: ch.LengthToTarget(e.WidthMm), H: ch.LengthToTarget(e.HeightMm),
			RotationDeg: e.RotationDeg, PivotX: p.X, PivotY: p.Y,
			Color:       e.Color(),
			StrokeWidth: strokeWidth(e.LineWidthMm, ch),
		})

	case layout.KindCircle:
		p := ch.PressToTarget(e.Position.X, e.Position.Y)
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimCircle,
			X:    p.X, Y: p.Y, R: ch.LengthToTarget(e.RadiusMm),
			Color:       e.Color(),
			StrokeWidth: strokeWidth(e.LineWidthMm, ch),
		})

	case layout.KindImage:
		p := ch.PressToTarget(e.Position.X, e.Position.Y)
		aspect := 1.0
		if res == nil {
			sc.degrade(fmt.Sprintf("image %s: no asset resolver, assuming square", e.ID))
		} else if a, err := res.AspectRatio(e.SourceRef); err != nil {
			sc.degrade(fmt.Sprintf("image %s: %v, assuming square", e.ID, err))
		} else {
			aspect = a
		}
		wPx := ch.LengthToTarget(e.WidthMm)
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimImage,
			X:    p.X, Y: p.Y, W: wPx, H: wPx * aspect,
			RotationDeg: e.RotationDeg, PivotX: p.X, PivotY: p.Y,
			SourceRef:   e.SourceRef,
		})

	case layout.KindText:
		p := ch.PressToTarget(e.Position.X, e.Position.Y)
		fontSize := e.FontSizePx
		if fontSize <= 0 {
			fontSize = DefaultFontSizePx
		}
		sc.Primitives = append(sc.Primitives, Primitive{
			Kind: PrimText,
			X:    p.X, Y: p.Y,
			RotationDeg: e.RotationDeg, PivotX: p.X, PivotY: p.Y,
			Color:       e.Color(),
			Text:        e.Content,
			FontSizePx:  fontSize,
		})
	}
}

// composeBoundary appends the press boundary pattern: a closed polygon plus
// one numbered marker per corner, matching calibration corner order 1-4.
func (sc *Scene) composeBoundary(ch *projection.Chain, marginMm float64) {
	cal := ch.Calibration()
	quad := cal.BoundaryPattern(marginMm)

	sc.Boundary = boundaryPrimitives(quad)

	// Preview copy mapped back into target-buffer pixels so the unwarped
	// SVG shows the pattern in the right place.
	var preview geom.Quad
	for i, p := range quad {
		mm := cal.ToPress(p.X, p.Y)
		preview[i] = ch.PressToTarget(mm.X, mm.Y)
	}
	sc.BoundaryPreview = boundaryPrimitives(preview)
}

func boundaryPrimitives(quad geom.Quad) []Primitive {
	prims := []Primitive{{
		Kind:        PrimPolygon,
		Points:      quad[:],
		Color:       boundaryColor,
		Fill:        boundaryFill,
		StrokeWidth: 4,
	}}
	for i, p := range quad {
		prims = append(prims, Primitive{
			Kind: PrimCircle,
			X:    p.X, Y: p.Y, R: markerRadiusPx,
			Color: boundaryColor,
			Fill:  boundaryColor,
		})
		prims = append(prims, Primitive{
			Kind: PrimText,
			X:    p.X, Y: p.Y + markerFontSizePx/3,
			Color:      markerTextColor,
			Text:       fmt.Sprintf("%d", i+1),
			FontSizePx: markerFontSizePx,
		})
	}
	return prims
}
