// Package layout defines the guide element model and the layout state that
// collaborators (transport, persistence, UI) replace through the engine.
//
// Elements are a closed tagged variant: one struct with a Kind discriminator
// and per-variant required fields, enforced at construction time so a
// malformed element is rejected at the boundary instead of deep inside the
// render pipeline.
package layout

import (
	"fmt"
	"regexp"

	"github.com/pressalign/projector/internal/geom"
)

// Kind discriminates the element variants.
type Kind string

const (
	KindLine      Kind = "line"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindImage     Kind = "image"
	KindText      Kind = "text"
)

// DefaultColorHex is used when an element does not specify a colour.
const DefaultColorHex = "#00ffff"

var colorHexRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Element is a single guide element authored in press-space millimetres.
// Which fields are meaningful depends on Kind; Validate enforces the
// per-variant requirements.
type Element struct {
	ID   string `json:"id,omitempty"`
	Kind Kind   `json:"type"`

	// Position anchors every variant except Line, which uses Start/End.
	Position geom.Point `json:"position"`
	Start    geom.Point `json:"start"`
	End      geom.Point `json:"end"`

	RotationDeg float64 `json:"rotation"`
	ColorHex    string  `json:"color,omitempty"`
	Label       string  `json:"label,omitempty"`

	// LineWidthMm of zero means "unset": the renderer falls back to its
	// default stroke width.
	LineWidthMm float64 `json:"line_width_mm,omitempty"`

	// Rectangle and Image.
	WidthMm float64 `json:"width,omitempty"`
	// Rectangle only.
	HeightMm float64 `json:"height,omitempty"`
	// Circle only.
	RadiusMm float64 `json:"radius,omitempty"`
	// Image only: reference resolved by the asset collaborator into an
	// aspect ratio. The element never owns pixel data.
	SourceRef string `json:"image_url,omitempty"`
	// Text only.
	Content    string  `json:"text,omitempty"`
	FontSizePx float64 `json:"font_size,omitempty"`
}

// Validate checks the per-variant required fields. Metric fields may be
// zero (a degenerate element is valid) but never negative; negative input
// is an error, not silently clamped.
func (e Element) Validate() error {
	if e.ColorHex != "" && !colorHexRe.MatchString(e.ColorHex) {
		return fmt.Errorf("element %q: invalid color %q", e.Kind, e.ColorHex)
	}
	if e.LineWidthMm < 0 {
		return fmt.Errorf("element %q: line width must not be negative, got %g", e.Kind, e.LineWidthMm)
	}

	switch e.Kind {
	case KindLine:
		// Any start/end pair is drawable, including a zero-length line.
		return nil
	case KindRectangle:
		if e.WidthMm < 0 || e.HeightMm < 0 {
			return fmt.Errorf("rectangle dimensions must not be negative, got %gx%g mm", e.WidthMm, e.HeightMm)
		}
		return nil
	case KindCircle:
		if e.RadiusMm < 0 {
			return fmt.Errorf("circle radius must not be negative, got %g mm", e.RadiusMm)
		}
		return nil
	case KindImage:
		if e.WidthMm < 0 {
			return fmt.Errorf("image width must not be negative, got %g mm", e.WidthMm)
		}
		if e.SourceRef == "" {
			return fmt.Errorf("image element requires a source reference")
		}
		return nil
	case KindText:
		if e.FontSizePx < 0 {
			return fmt.Errorf("text font size must not be negative, got %g px", e.FontSizePx)
		}
		return nil
	default:
		return fmt.Errorf("unknown element type %q", e.Kind)
	}
}

// Color returns the element colour, falling back to the default guide colour.
func (e Element) Color() string {
	if e.ColorHex == "" {
		return DefaultColorHex
	}
	return e.ColorHex
}

// WithRotationDeg returns a copy of the element with its rotation replaced.
func (e Element) WithRotationDeg(angle float64) Element {
	e.RotationDeg = angle
	return e
}

// BoundingBoxMm returns the axis-aligned bounding box of the element in
// press millimetres, ignoring rotation. Callers use it for hit-testing in
// the authoring view. For image elements the aspect ratio is unknown at
// this layer, so the box assumes 1:1.
func (e Element) BoundingBoxMm() (min, max geom.Point) {
	switch e.Kind {
	case KindLine:
		min = geom.Pt(minf(e.Start.X, e.End.X), minf(e.Start.Y, e.End.Y))
		max = geom.Pt(maxf(e.Start.X, e.End.X), maxf(e.Start.Y, e.End.Y))
	case KindRectangle:
		min = e.Position
		max = e.Position.Add(geom.Pt(e.WidthMm, e.HeightMm))
	case KindCircle:
		min = e.Position.Sub(geom.Pt(e.RadiusMm, e.RadiusMm))
		max = e.Position.Add(geom.Pt(e.RadiusMm, e.RadiusMm))
	case KindImage:
		min = e.Position
		max = e.Position.Add(geom.Pt(e.WidthMm, e.WidthMm))
	case KindText:
		// Text extent depends on the rendered glyphs; expose the anchor.
		min, max = e.Position, e.Position
	}
	return min, max
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
