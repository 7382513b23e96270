package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	c := Empty()

	if got := c.GetListenAddr(); got != ":8080" {
		t.Errorf("GetListenAddr() = %q", got)
	}
	if got := c.GetProjectorWidth(); got != 1920 {
		t.Errorf("GetProjectorWidth() = %d", got)
	}
	if got := c.GetProjectorHeight(); got != 1080 {
		t.Errorf("GetProjectorHeight() = %d", got)
	}
	if got := c.GetTargetPxPerMm(); got != 2.0 {
		t.Errorf("GetTargetPxPerMm() = %g", got)
	}
	if got := c.GetBoundaryMarginMm(); got != 5.0 {
		t.Errorf("GetBoundaryMarginMm() = %g", got)
	}
	if got := c.GetFrameFormat(); got != "png" {
		t.Errorf("GetFrameFormat() = %q", got)
	}
	if got := c.GetBroadcastInterval(); got != 0 {
		t.Errorf("GetBroadcastInterval() = %v", got)
	}
	if got := c.GetDBPath(); got != "projector.db" {
		t.Errorf("GetDBPath() = %q", got)
	}
	if got := c.GetUploadsDir(); got != "uploads" {
		t.Errorf("GetUploadsDir() = %q", got)
	}
	if got := c.GetRendersDir(); got != "renders" {
		t.Errorf("GetRendersDir() = %q", got)
	}
	if c.GetDebugRenderDump() {
		t.Error("GetDebugRenderDump() = true")
	}
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, `{
		"projector_width": 1280,
		"projector_height": 720,
		"frame_format": "webp",
		"broadcast_interval": "2s"
	}`)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := c.GetProjectorWidth(); got != 1280 {
		t.Errorf("GetProjectorWidth() = %d", got)
	}
	if got := c.GetProjectorHeight(); got != 720 {
		t.Errorf("GetProjectorHeight() = %d", got)
	}
	if got := c.GetFrameFormat(); got != "webp" {
		t.Errorf("GetFrameFormat() = %q", got)
	}
	if got := c.GetBroadcastInterval(); got != 2*time.Second {
		t.Errorf("GetBroadcastInterval() = %v", got)
	}
	// Omitted fields keep their defaults.
	if got := c.GetTargetPxPerMm(); got != 2.0 {
		t.Errorf("GetTargetPxPerMm() = %g", got)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		contents string
	}{
		{"bad width", `{"projector_width": 0}`},
		{"bad height", `{"projector_height": -1}`},
		{"bad density", `{"target_px_per_mm": 0}`},
		{"bad margin", `{"boundary_margin_mm": -1}`},
		{"bad format", `{"frame_format": "jpeg"}`},
		{"bad interval", `{"broadcast_interval": "soon"}`},
		{"bad json", `{projector_width}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.contents)
			if _, err := Load(path); err == nil {
				t.Errorf("Load accepted %s", tt.contents)
			}
		})
	}
}

func TestLoadRejectsNonJSONExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load accepted a non-JSON extension")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("Load accepted a missing file")
	}
}
