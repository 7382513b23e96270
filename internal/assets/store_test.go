package assets

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressalign/projector/internal/fsutil"
	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/projection"
	"github.com/pressalign/projector/internal/scene"
	"github.com/pressalign/projector/internal/timeutil"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(fsutil.NewMemoryFileSystem(), "uploads")
	require.NoError(t, err)
	return s
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"logo.png", true},
		{"photo.JPG", true},
		{"art.jpeg", true},
		{"design.svg", true},
		{"anim.gif", true},
		{"frame.webp", true},
		{"scan.bmp", true},
		{"script.exe", false},
		{"noext", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Allowed(tt.name), "Allowed(%q)", tt.name)
	}
}

func TestUniqueName(t *testing.T) {
	a := UniqueName("my logo.png")
	b := UniqueName("my logo.png")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "my_logo_"))
	assert.True(t, strings.HasSuffix(a, ".png"))

	// Path components are stripped.
	c := UniqueName("../../etc/passwd.png")
	assert.False(t, strings.Contains(c, "/"))
	assert.False(t, strings.Contains(c, ".."))
}

func TestSaveAndRoundTrip(t *testing.T) {
	s := newTestStore(t)
	data := pngBytes(t, 40, 20)

	info, err := s.Save("logo.png", bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), info.Size)
	assert.Equal(t, "png", info.Extension)
	assert.True(t, strings.HasPrefix(info.URL, URLPrefix))

	got, err := s.Open(info.Filename)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	meta, err := s.Get(info.Filename)
	require.NoError(t, err)
	assert.Equal(t, info, meta)

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, info.Filename, list[0].Filename)
}

func TestSaveRejectsBadType(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("malware.exe", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestSaveRejectsOversize(t *testing.T) {
	s := newTestStore(t)
	big := bytes.Repeat([]byte{0}, MaxFileSize+1)
	_, err := s.Save("big.png", bytes.NewReader(big))
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Save("logo.png", bytes.NewReader(pngBytes(t, 4, 4)))
	require.NoError(t, err)

	require.NoError(t, s.Delete(info.Filename))
	assert.ErrorIs(t, s.Delete(info.Filename), ErrNotFound)
	_, err = s.Open(info.Filename)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAspectRatioRaster(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Save("wide.png", bytes.NewReader(pngBytes(t, 40, 20)))
	require.NoError(t, err)

	// Height/width: a 40x20 image is half as tall as it is wide. Both the
	// bare filename and the serving URL resolve.
	ar, err := s.AspectRatio(info.Filename)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ar, 1e-9)

	ar, err = s.AspectRatio(info.URL)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ar, 1e-9)

	_, err = s.AspectRatio("nope.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAspectRatioSVG(t *testing.T) {
	s := newTestStore(t)
	svg := `<?xml version="1.0"?><svg width="300" height="150" xmlns="http://www.w3.org/2000/svg"></svg>`
	info, err := s.Save("design.svg", strings.NewReader(svg))
	require.NoError(t, err)

	ar, err := s.AspectRatio(info.Filename)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ar, 1e-9)

	// No dimensions declared: the caller falls back to 1:1.
	bad, err := s.Save("nodims.svg", strings.NewReader(`<svg xmlns="x"></svg>`))
	require.NoError(t, err)
	_, err = s.AspectRatio(bad.Filename)
	assert.Error(t, err)
}

func TestAspectRatioDrivesComposedImageHeight(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Save("wide.png", bytes.NewReader(pngBytes(t, 40, 20)))
	require.NoError(t, err)

	cal, err := homography.New(geom.Quad{
		geom.Pt(100, 100), geom.Pt(1820, 100), geom.Pt(1820, 980), geom.Pt(100, 980),
	}, 600, 400)
	require.NoError(t, err)
	ch, err := projection.NewChain(cal, 2)
	require.NoError(t, err)

	st := layout.State{Elements: []layout.Element{{
		ID:        "image_0",
		Kind:      layout.KindImage,
		Position:  geom.Pt(10, 10),
		WidthMm:   40,
		SourceRef: info.URL,
	}}}
	sc := scene.Compose(st, ch, s, scene.Options{})
	require.False(t, sc.Degraded)

	var img *scene.Primitive
	for i := range sc.Primitives {
		if sc.Primitives[i].Kind == scene.PrimImage {
			img = &sc.Primitives[i]
		}
	}
	require.NotNil(t, img)

	// 40mm wide at 2 px/mm is 80px; the 40x20 source is half as tall as
	// it is wide, so the derived height is 40px, not 160.
	assert.InDelta(t, 80, img.W, 1e-9)
	assert.InDelta(t, 40, img.H, 1e-9)
}

func TestImageDecode(t *testing.T) {
	s := newTestStore(t)
	info, err := s.Save("logo.png", bytes.NewReader(pngBytes(t, 8, 6)))
	require.NoError(t, err)

	img, err := s.Image(info.Filename)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 6, img.Bounds().Dy())

	// SVG has no raster decode path.
	svg, err := s.Save("v.svg", strings.NewReader(`<svg width="1" height="1"></svg>`))
	require.NoError(t, err)
	_, err = s.Image(svg.Filename)
	assert.Error(t, err)
}

func TestCleanupOlderThan(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Save("old.png", bytes.NewReader(pngBytes(t, 2, 2)))
	require.NoError(t, err)

	// MemoryFileSystem reports the zero mod time, so everything is stale
	// relative to a present-day cutoff.
	clk := timeutil.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	n, err := s.CleanupOlderThan(clk, 30*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, list)
}
