package render

import (
	"path/filepath"

	"github.com/pressalign/projector/internal/fsutil"
	"github.com/pressalign/projector/internal/monitoring"
)

// Dump writes the most recent render artifacts to disk so an operator can
// inspect exactly what the projector was sent. Everything here is best
// effort: a dump failure is logged and never disturbs the pipeline.
type Dump struct {
	fs  fsutil.FileSystem
	dir string
}

// NewDump prepares the dump directory.
func NewDump(fsys fsutil.FileSystem, dir string) (*Dump, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Dump{fs: fsys, dir: dir}, nil
}

// Observe writes the frame and preview for a completed run. Failed runs
// leave the previous dump in place for comparison.
func (d *Dump) Observe(res Result) {
	if res.Failed() {
		return
	}
	if len(res.Frame) > 0 {
		ext := ".png"
		if res.MIME == "image/webp" {
			ext = ".webp"
		}
		path := filepath.Join(d.dir, "latest_frame"+ext)
		if err := d.fs.WriteFile(path, res.Frame, 0o644); err != nil {
			monitoring.Logf("failed to dump frame %s: %v", res.FrameID, err)
		}
	}
	if res.SVG != "" {
		path := filepath.Join(d.dir, "latest_preview.svg")
		if err := d.fs.WriteFile(path, []byte(res.SVG), 0o644); err != nil {
			monitoring.Logf("failed to dump preview %s: %v", res.FrameID, err)
		}
	}
}
