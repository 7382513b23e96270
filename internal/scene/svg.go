package scene

import (
	"fmt"
	"html"
	"strings"
)

// svgStyle mirrors the stylesheet the projector view has always shipped;
// per-primitive attributes override it where an element sets its own colour
// or stroke width.
const svgStyle = `        <style>
            .guide-line { stroke: #00ff00; stroke-width: 2; stroke-dasharray: 5,5; }
            .center-line { stroke: #ff0000; stroke-width: 3; stroke-dasharray: 10,5; }
            .boundary { stroke: #ffff00; stroke-width: 4; fill: rgba(255, 255, 0, 0.2); }
            .element-text { fill: #ffffff; font-family: Arial, sans-serif; font-size: 16px; text-anchor: middle; }
            .element-shape { stroke: #00ffff; stroke-width: 2; fill: none; }
        </style>`

// SVG renders the scene as an SVG document in target-buffer coordinates.
// The output is deterministic: composing the same inputs twice yields
// byte-identical SVG. Labels are intentionally absent — they are metadata
// for the authoring view, never part of the projected geometry.
func (sc *Scene) SVG() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(&b, "<svg width=\"%d\" height=\"%d\" xmlns=\"http://www.w3.org/2000/svg\" xmlns:xlink=\"http://www.w3.org/1999/xlink\">\n", sc.Width, sc.Height)
	b.WriteString("    <defs>\n")
	b.WriteString(svgStyle)
	b.WriteString("\n    </defs>\n")

	rotated := sc.RotationDeg != 0
	if rotated {
		fmt.Fprintf(&b, "    <g transform=\"rotate(%s %d %d)\">\n",
			ftoa(sc.RotationDeg), sc.Width/2, sc.Height/2)
	}
	for _, p := range sc.Primitives {
		writePrimitive(&b, p)
	}
	if rotated {
		b.WriteString("    </g>\n")
	}

	// The boundary pattern validates calibration; it is never subject to
	// the object orientation transform and always paints topmost.
	for _, p := range sc.BoundaryPreview {
		writePrimitive(&b, p)
	}

	b.WriteString("</svg>\n")
	return b.String()
}

// ErrorSVG is the full-frame error card shown when no calibration is
// present: a red field with a centred message, so the operator cannot
// mistake a missing calibration for a valid blank frame.
func ErrorSVG(width, height int, message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink">
    <rect width="100%%" height="100%%" fill="#ff0000"/>
    <text x="50%%" y="50%%" text-anchor="middle" fill="white" font-size="48" font-family="Arial">%s</text>
</svg>
`, width, height, html.EscapeString(message))
}

func writePrimitive(b *strings.Builder, p Primitive) {
	transform := ""
	if p.RotationDeg != 0 {
		transform = fmt.Sprintf(" transform=\"rotate(%s %s %s)\"", ftoa(p.RotationDeg), ftoa(p.PivotX), ftoa(p.PivotY))
	}
	stroke := ""
	if p.Color != "" {
		stroke = fmt.Sprintf(" stroke=\"%s\"", p.Color)
	}
	width := ""
	if p.StrokeWidth > 0 {
		width = fmt.Sprintf(" stroke-width=\"%s\"", ftoa(p.StrokeWidth))
	}
	dash := ""
	if len(p.Dash) > 0 {
		parts := make([]string, len(p.Dash))
		for i, d := range p.Dash {
			parts[i] = ftoa(d)
		}
		dash = fmt.Sprintf(" stroke-dasharray=\"%s\"", strings.Join(parts, ","))
	}
	fill := " fill=\"none\""
	if p.Fill != "" {
		fill = fmt.Sprintf(" fill=\"%s\"", p.Fill)
	}

	switch p.Kind {
	case PrimLine:
		fmt.Fprintf(b, "    <line x1=\"%s\" y1=\"%s\" x2=\"%s\" y2=\"%s\" class=\"guide-line\"%s%s%s%s/>\n",
			ftoa(p.X), ftoa(p.Y), ftoa(p.X2), ftoa(p.Y2), stroke, width, dash, transform)
	case PrimRect:
		fmt.Fprintf(b, "    <rect x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" class=\"element-shape\"%s%s%s%s/>\n",
			ftoa(p.X), ftoa(p.Y), ftoa(p.W), ftoa(p.H), fill, stroke, width, transform)
	case PrimCircle:
		fmt.Fprintf(b, "    <circle cx=\"%s\" cy=\"%s\" r=\"%s\" class=\"element-shape\"%s%s%s/>\n",
			ftoa(p.X), ftoa(p.Y), ftoa(p.R), fill, stroke, width)
	case PrimPolygon:
		pts := make([]string, len(p.Points))
		for i, pt := range p.Points {
			pts[i] = fmt.Sprintf("%s,%s", ftoa(pt.X), ftoa(pt.Y))
		}
		fmt.Fprintf(b, "    <polygon points=\"%s\" class=\"boundary\"/>\n", strings.Join(pts, " "))
	case PrimImage:
		fmt.Fprintf(b, "    <image x=\"%s\" y=\"%s\" width=\"%s\" height=\"%s\" xlink:href=\"%s\"%s/>\n",
			ftoa(p.X), ftoa(p.Y), ftoa(p.W), ftoa(p.H), html.EscapeString(p.SourceRef), transform)
	case PrimText:
		fill := p.Color
		if fill == "" {
			fill = "#ffffff"
		}
		fmt.Fprintf(b, "    <text x=\"%s\" y=\"%s\" fill=\"%s\" font-size=\"%s\" font-family=\"Arial, sans-serif\"%s>%s</text>\n",
			ftoa(p.X), ftoa(p.Y), fill, ftoa(p.FontSizePx), transform, html.EscapeString(p.Text))
	}
}

// ftoa formats coordinates with three decimal places, trimmed. Fixed
// precision keeps SVG output byte-stable across composes.
func ftoa(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}
