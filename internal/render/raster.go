package render

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/pressalign/projector/internal/scene"
)

// supersample is the fixed oversampling factor applied while rasterizing,
// before the Catmull-Rom downsample. Matches the 2x policy the projector
// output has always used to keep thin guide lines smooth.
const supersample = 2

var guideFont = mustParseFont()

func mustParseFont() *truetype.Font {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		panic("render: parsing embedded font: " + err.Error())
	}
	return f
}

// rasterize draws the scene's target-space primitives into a pixel buffer
// of the scene's target dimensions. Any panic from malformed content is
// recovered and returned as an error so the caller can degrade to an empty
// buffer instead of losing the frame.
func rasterize(sc *scene.Scene, src ImageSource) (img *image.NRGBA, reasons []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("raster panic: %v", r)
		}
	}()

	if sc.Width <= 0 || sc.Height <= 0 {
		return nil, nil, fmt.Errorf("invalid target size %dx%d", sc.Width, sc.Height)
	}

	dc := gg.NewContext(sc.Width*supersample, sc.Height*supersample)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.Scale(supersample, supersample)

	// Root object-orientation transform about the buffer centre, ahead of
	// all element transforms.
	if sc.RotationDeg != 0 {
		dc.RotateAbout(gg.Radians(sc.RotationDeg), float64(sc.Width)/2, float64(sc.Height)/2)
	}

	for _, p := range sc.Primitives {
		if reason := drawPrimitive(dc, p, src); reason != "" {
			reasons = append(reasons, reason)
		}
	}

	// Downsample back to the target resolution.
	full := toNRGBA(dc.Image())
	out := image.NewNRGBA(image.Rect(0, 0, sc.Width, sc.Height))
	draw.CatmullRom.Scale(out, out.Bounds(), full, full.Bounds(), draw.Src, nil)
	return out, reasons, nil
}

// drawPrimitive paints one primitive. It returns a non-empty degradation
// reason when a best-effort substitution was made (unresolvable image).
func drawPrimitive(dc *gg.Context, p scene.Primitive, src ImageSource) (reason string) {
	if p.RotationDeg != 0 {
		dc.Push()
		dc.RotateAbout(gg.Radians(p.RotationDeg), p.PivotX, p.PivotY)
		defer dc.Pop()
	}

	switch p.Kind {
	case scene.PrimLine:
		setStroke(dc, p)
		dc.DrawLine(p.X, p.Y, p.X2, p.Y2)
		dc.Stroke()

	case scene.PrimRect:
		setStroke(dc, p)
		dc.DrawRectangle(p.X, p.Y, p.W, p.H)
		dc.Stroke()

	case scene.PrimCircle:
		dc.DrawCircle(p.X, p.Y, p.R)
		if p.Fill != "" {
			dc.SetColor(parseColor(p.Fill))
			dc.FillPreserve()
		}
		setStroke(dc, p)
		dc.Stroke()

	case scene.PrimPolygon:
		if len(p.Points) == 0 {
			return ""
		}
		dc.MoveTo(p.Points[0].X, p.Points[0].Y)
		for _, pt := range p.Points[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.ClosePath()
		if p.Fill != "" {
			dc.SetColor(parseColor(p.Fill))
			dc.FillPreserve()
		}
		setStroke(dc, p)
		dc.Stroke()

	case scene.PrimImage:
		return drawImagePrimitive(dc, p, src)

	case scene.PrimText:
		size := p.FontSizePx
		if size <= 0 {
			size = scene.DefaultFontSizePx
		}
		dc.SetFontFace(truetype.NewFace(guideFont, &truetype.Options{Size: size}))
		dc.SetColor(parseColor(p.Color))
		dc.DrawString(p.Text, p.X, p.Y)
	}
	return ""
}

func drawImagePrimitive(dc *gg.Context, p scene.Primitive, src ImageSource) string {
	w, h := int(p.W+0.5), int(p.H+0.5)
	if w < 1 || h < 1 {
		return ""
	}

	var decoded image.Image
	if src != nil {
		var err error
		decoded, err = src.Image(p.SourceRef)
		if err != nil {
			decoded = nil
		}
	}
	if decoded == nil {
		// Placeholder outline so the operator sees where the asset would
		// sit instead of silently losing it.
		dc.SetColor(parseColor("#00ffff"))
		dc.SetLineWidth(2)
		dc.SetDash()
		dc.DrawRectangle(p.X, p.Y, p.W, p.H)
		dc.Stroke()
		return fmt.Sprintf("image %s: pixel data unavailable, drew placeholder", p.SourceRef)
	}

	scaled := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(scaled, scaled.Bounds(), decoded, decoded.Bounds(), draw.Over, nil)
	dc.DrawImage(scaled, int(p.X+0.5), int(p.Y+0.5))
	return ""
}

func setStroke(dc *gg.Context, p scene.Primitive) {
	dc.SetColor(parseColor(p.Color))
	width := p.StrokeWidth
	if width < 1 {
		width = 1
	}
	dc.SetLineWidth(width)
	if len(p.Dash) > 0 {
		dc.SetDash(p.Dash...)
	} else {
		dc.SetDash()
	}
}

// drawOverlay paints projector-space primitives (the boundary pattern) onto
// an already warped frame.
func drawOverlay(dst *image.NRGBA, prims []scene.Primitive) *image.NRGBA {
	dc := gg.NewContextForImage(dst)
	for _, p := range prims {
		drawPrimitive(dc, p, nil)
	}
	return toNRGBA(dc.Image())
}

func fillBackground(img *image.NRGBA) {
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0
		img.Pix[i+1] = 0
		img.Pix[i+2] = 0
		img.Pix[i+3] = 0xff
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	out := image.NewNRGBA(img.Bounds())
	draw.Draw(out, out.Bounds(), img, img.Bounds().Min, draw.Src)
	return out
}

// parseColor understands the two colour forms the scene emits: #rrggbb hex
// and rgba(r, g, b, a) with a fractional alpha.
func parseColor(s string) color.Color {
	s = strings.TrimSpace(s)
	if s == "" {
		return color.NRGBA{0, 255, 255, 255}
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		r, errR := strconv.ParseUint(s[1:3], 16, 8)
		g, errG := strconv.ParseUint(s[3:5], 16, 8)
		b, errB := strconv.ParseUint(s[5:7], 16, 8)
		if errR == nil && errG == nil && errB == nil {
			return color.NRGBA{uint8(r), uint8(g), uint8(b), 255}
		}
	}
	if strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")") {
		parts := strings.Split(s[5:len(s)-1], ",")
		if len(parts) == 4 {
			r, _ := strconv.Atoi(strings.TrimSpace(parts[0]))
			g, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
			b, _ := strconv.Atoi(strings.TrimSpace(parts[2]))
			a, _ := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
			return color.NRGBA{uint8(r), uint8(g), uint8(b), uint8(a*255 + 0.5)}
		}
	}
	return color.NRGBA{0, 255, 255, 255}
}
