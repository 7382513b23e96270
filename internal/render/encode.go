package render

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/HugoSmits86/nativewebp"
)

// encodeFrame serialises the warped buffer for transport. PNG is the
// default; lossless WebP is available where the projector client supports
// it and transfer size matters.
func encodeFrame(img *image.NRGBA, format Format) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatWebP:
		if err := nativewebp.Encode(&buf, img, nil); err != nil {
			return nil, fmt.Errorf("webp: %w", err)
		}
	default:
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("png: %w", err)
		}
	}
	return buf.Bytes(), nil
}
