// Package assets stores uploaded design files (logos, artwork references)
// and resolves image references for the compositor: aspect ratios for
// layout, decoded pixels for rasterization. Elements never embed pixel
// data; they carry a reference into this store.
package assets

import (
	"errors"
	"fmt"
	"image"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pressalign/projector/internal/fsutil"
	"github.com/pressalign/projector/internal/monitoring"
	"github.com/pressalign/projector/internal/security"
	"github.com/pressalign/projector/internal/timeutil"

	// Decoders for AspectRatio and Image resolution.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MaxFileSize bounds a single upload.
const MaxFileSize = 16 << 20 // 16MB

// URLPrefix is the serving path prefix recorded in element references.
const URLPrefix = "/uploads/"

var (
	// ErrInvalidType rejects uploads whose extension is not allowed.
	ErrInvalidType = errors.New("invalid file type")
	// ErrTooLarge rejects uploads over MaxFileSize.
	ErrTooLarge = errors.New("file too large")
	// ErrNotFound indicates the referenced file does not exist.
	ErrNotFound = errors.New("file not found")
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".svg":  true,
}

// Info describes one stored file.
type Info struct {
	Filename  string `json:"filename"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	URL       string `json:"url"`
}

// Store is a flat-directory file store with extension and size validation.
// It implements the render pipeline's image source.
type Store struct {
	fs  fsutil.FileSystem
	dir string
}

// NewStore opens (creating if needed) the upload directory.
func NewStore(fsys fsutil.FileSystem, dir string) (*Store, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{fs: fsys, dir: dir}, nil
}

// Allowed reports whether the filename carries an accepted extension.
func Allowed(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// sanitizeName flattens a client-supplied filename to a safe basename.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	return security.SanitizeFilename(name)
}

// UniqueName derives a collision-free stored name from the original
// filename, keeping the original stem recognisable.
func UniqueName(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	stem := sanitizeName(strings.TrimSuffix(filepath.Base(original), filepath.Ext(original)))
	if stem == "" {
		stem = "upload"
	}
	return fmt.Sprintf("%s_%s%s", stem, uuid.NewString()[:8], ext)
}

// Save validates and stores an upload under a unique name derived from
// originalName. The reader is capped at MaxFileSize.
func (s *Store) Save(originalName string, r io.Reader) (Info, error) {
	if !Allowed(originalName) {
		return Info{}, fmt.Errorf("%w: %q", ErrInvalidType, filepath.Ext(originalName))
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return Info{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxFileSize {
		return Info{}, ErrTooLarge
	}

	name := UniqueName(originalName)
	if err := s.fs.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return Info{}, fmt.Errorf("store upload: %w", err)
	}
	return s.info(name, int64(len(data))), nil
}

// Get returns metadata for a stored file.
func (s *Store) Get(filename string) (Info, error) {
	name := sanitizeName(filename)
	fi, err := s.fs.Stat(filepath.Join(s.dir, name))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.info(name, fi.Size()), nil
}

// Open returns the stored file contents for serving.
func (s *Store) Open(filename string) ([]byte, error) {
	name := sanitizeName(filename)
	data, err := s.fs.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return data, nil
}

// Delete removes a stored file. Deleting a missing file is an ErrNotFound.
func (s *Store) Delete(filename string) error {
	name := sanitizeName(filename)
	p := filepath.Join(s.dir, name)
	if !s.fs.Exists(p) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.fs.Remove(p)
}

// List returns metadata for every stored file, sorted by name.
func (s *Store) List() ([]Info, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	infos := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, s.info(e.Name(), fi.Size()))
	}
	return infos, nil
}

// CleanupOlderThan removes stored files whose modification time predates
// now-maxAge and returns how many were removed. Best effort: individual
// failures are logged, not fatal.
func (s *Store) CleanupOlderThan(clk timeutil.Clock, maxAge time.Duration) (int, error) {
	entries, err := s.fs.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("list uploads: %w", err)
	}
	cutoff := clk.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		fi, err := e.Info()
		if err != nil || !fi.ModTime().Before(cutoff) {
			continue
		}
		if err := s.fs.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			monitoring.Logf("assets: cleanup of %s failed: %v", e.Name(), err)
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Store) info(name string, size int64) Info {
	return Info{
		Filename:  name,
		Size:      size,
		Extension: strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), "."),
		URL:       URLPrefix + name,
	}
}

// refToName maps an element's source reference (either a bare filename or
// a /uploads/ URL) to a stored filename.
func refToName(ref string) string {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(ref, URLPrefix) {
		ref = strings.TrimPrefix(ref, URLPrefix)
	}
	return sanitizeName(path.Base(ref))
}

// AspectRatio resolves the height/width ratio of a referenced image
// without fully decoding it, matching the compositor's contract (element
// height in mm is width * aspect). SVG references are parsed for their
// root width/height attributes.
func (s *Store) AspectRatio(ref string) (float64, error) {
	name := refToName(ref)
	if name == "" {
		return 0, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	p := filepath.Join(s.dir, name)

	if strings.EqualFold(filepath.Ext(name), ".svg") {
		data, err := s.fs.ReadFile(p)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return svgAspect(data)
	}

	f, err := s.fs.Open(p)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("decode %s: %w", name, err)
	}
	if cfg.Width == 0 {
		return 0, fmt.Errorf("decode %s: zero width", name)
	}
	return float64(cfg.Height) / float64(cfg.Width), nil
}

// Image fully decodes a referenced raster image. SVG references are not
// rasterized here; the pipeline substitutes its placeholder for them.
func (s *Store) Image(ref string) (image.Image, error) {
	name := refToName(ref)
	if name == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	if strings.EqualFold(filepath.Ext(name), ".svg") {
		return nil, fmt.Errorf("no raster decode for %s", name)
	}

	f, err := s.fs.Open(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return img, nil
}

var (
	svgWidthRe  = regexp.MustCompile(`(?i)width="([0-9.]+)(?:px)?"`)
	svgHeightRe = regexp.MustCompile(`(?i)height="([0-9.]+)(?:px)?"`)
)

// svgAspect reads the root width/height attributes and returns
// height/width. A missing or zero-width declaration yields an error so the
// caller applies its 1:1 fallback.
func svgAspect(data []byte) (float64, error) {
	wm := svgWidthRe.FindSubmatch(data)
	hm := svgHeightRe.FindSubmatch(data)
	if wm == nil || hm == nil {
		return 0, errors.New("svg: no width/height attributes")
	}
	w, err := strconv.ParseFloat(string(wm[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("svg width: %w", err)
	}
	h, err := strconv.ParseFloat(string(hm[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("svg height: %w", err)
	}
	if w == 0 {
		return 0, errors.New("svg: zero width")
	}
	return h / w, nil
}
