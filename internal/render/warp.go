package render

import (
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/pressalign/projector/internal/homography"
)

// warpPerspective resamples the rectified target buffer into the
// projector's native resolution. For every output (projector) pixel the
// forward homography gives the press-millimetre position, which scaled by
// the target density is the sub-pixel source location in the rectified
// buffer; the sample is taken with a Catmull-Rom bicubic filter. Samples
// falling outside the buffer produce the constant black background.
func warpPerspective(src *image.NRGBA, cal *homography.Calibration, targetPxPerMm float64, outW, outH int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	fillBackground(out)

	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()

	for y := 0; y < outH; y++ {
		for x := 0; x < outW; x++ {
			mm := cal.ToPress(float64(x), float64(y))
			sx := mm.X * targetPxPerMm
			sy := mm.Y * targetPxPerMm

			// Fully outside the source (with filter support margin):
			// keep the background fill.
			if sx < -2 || sy < -2 || sx > float64(sw)+2 || sy > float64(sh)+2 {
				continue
			}

			r, g, b, a := sampleBicubic(src, sx, sy)
			i := out.PixOffset(x, y)
			out.Pix[i] = r
			out.Pix[i+1] = g
			out.Pix[i+2] = b
			out.Pix[i+3] = a
		}
	}
	return out
}

// resizeIdentity is the debug bypass: a plain smooth resize with no
// perspective correction, used only for local preview.
func resizeIdentity(src *image.NRGBA, outW, outH int) *image.NRGBA {
	out := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	draw.CatmullRom.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	return out
}

// catmullRom is the bicubic filter kernel (a = -0.5).
func catmullRom(t float64) float64 {
	t = math.Abs(t)
	switch {
	case t < 1:
		return 1.5*t*t*t - 2.5*t*t + 1
	case t < 2:
		return -0.5*t*t*t + 2.5*t*t - 4*t + 2
	default:
		return 0
	}
}

// sampleBicubic samples the 4x4 neighbourhood around (fx, fy) with the
// Catmull-Rom kernel, clamping coordinates at the edge and treating pixels
// outside the buffer as the black background.
func sampleBicubic(src *image.NRGBA, fx, fy float64) (uint8, uint8, uint8, uint8) {
	sw := src.Bounds().Dx()
	sh := src.Bounds().Dy()

	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	dx := fx - float64(x0)
	dy := fy - float64(y0)

	var wr, wg, wb, wa, wsum float64
	for j := -1; j <= 2; j++ {
		wy := catmullRom(float64(j) - dy)
		if wy == 0 {
			continue
		}
		sy := y0 + j
		for i := -1; i <= 2; i++ {
			wx := catmullRom(float64(i) - dx)
			if wx == 0 {
				continue
			}
			sx := x0 + i
			w := wx * wy
			wsum += w

			if sx < 0 || sy < 0 || sx >= sw || sy >= sh {
				// Background contributes opaque black.
				wa += w * 255
				continue
			}
			o := src.PixOffset(sx, sy)
			wr += w * float64(src.Pix[o])
			wg += w * float64(src.Pix[o+1])
			wb += w * float64(src.Pix[o+2])
			wa += w * float64(src.Pix[o+3])
		}
	}
	if wsum == 0 {
		return 0, 0, 0, 255
	}

	return clampU8(wr / wsum), clampU8(wg / wsum), clampU8(wb / wsum), clampU8(wa / wsum)
}

func clampU8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
