// Package config loads the server configuration from JSON. All fields are
// pointers so a partial file only overrides what it names; the Get*
// accessors supply defaults for everything else.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root server configuration. The schema matches the
// /api/config endpoint so the same JSON serves startup configuration and
// runtime inspection.
type Config struct {
	// HTTP
	ListenAddr *string `json:"listen_addr,omitempty"`

	// Projector output
	ProjectorWidth  *int `json:"projector_width,omitempty"`
	ProjectorHeight *int `json:"projector_height,omitempty"`

	// Render pipeline
	TargetPxPerMm     *float64 `json:"target_px_per_mm,omitempty"`
	BoundaryMarginMm  *float64 `json:"boundary_margin_mm,omitempty"`
	FrameFormat       *string  `json:"frame_format,omitempty"` // "png" or "webp"
	BroadcastInterval *string  `json:"broadcast_interval,omitempty"`

	// Storage
	DBPath     *string `json:"db_path,omitempty"`
	UploadsDir *string `json:"uploads_dir,omitempty"`
	RendersDir *string `json:"renders_dir,omitempty"`

	// Debug
	DebugRenderDump *bool `json:"debug_render_dump,omitempty"`
}

// Empty returns a Config with all fields unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a JSON file. Fields omitted from the file keep
// their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 << 20
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate rejects values the server cannot run with.
func (c *Config) Validate() error {
	if c.ProjectorWidth != nil && *c.ProjectorWidth < 1 {
		return fmt.Errorf("projector_width must be positive, got %d", *c.ProjectorWidth)
	}
	if c.ProjectorHeight != nil && *c.ProjectorHeight < 1 {
		return fmt.Errorf("projector_height must be positive, got %d", *c.ProjectorHeight)
	}
	if c.TargetPxPerMm != nil && *c.TargetPxPerMm <= 0 {
		return fmt.Errorf("target_px_per_mm must be positive, got %g", *c.TargetPxPerMm)
	}
	if c.BoundaryMarginMm != nil && *c.BoundaryMarginMm < 0 {
		return fmt.Errorf("boundary_margin_mm must not be negative, got %g", *c.BoundaryMarginMm)
	}
	if c.FrameFormat != nil {
		switch *c.FrameFormat {
		case "png", "webp":
		default:
			return fmt.Errorf("frame_format must be png or webp, got %q", *c.FrameFormat)
		}
	}
	if c.BroadcastInterval != nil && *c.BroadcastInterval != "" {
		if _, err := time.ParseDuration(*c.BroadcastInterval); err != nil {
			return fmt.Errorf("broadcast_interval: %w", err)
		}
	}
	return nil
}

// GetListenAddr returns the listen address or the default.
func (c *Config) GetListenAddr() string {
	if c.ListenAddr == nil || *c.ListenAddr == "" {
		return ":8080"
	}
	return *c.ListenAddr
}

// GetProjectorWidth returns the projector width or the default.
func (c *Config) GetProjectorWidth() int {
	if c.ProjectorWidth == nil {
		return 1920
	}
	return *c.ProjectorWidth
}

// GetProjectorHeight returns the projector height or the default.
func (c *Config) GetProjectorHeight() int {
	if c.ProjectorHeight == nil {
		return 1080
	}
	return *c.ProjectorHeight
}

// GetTargetPxPerMm returns the rectified buffer density or the default.
func (c *Config) GetTargetPxPerMm() float64 {
	if c.TargetPxPerMm == nil {
		return 2.0
	}
	return *c.TargetPxPerMm
}

// GetBoundaryMarginMm returns the boundary margin or the default.
func (c *Config) GetBoundaryMarginMm() float64 {
	if c.BoundaryMarginMm == nil {
		return 5.0
	}
	return *c.BoundaryMarginMm
}

// GetFrameFormat returns the frame encoding or the default.
func (c *Config) GetFrameFormat() string {
	if c.FrameFormat == nil || *c.FrameFormat == "" {
		return "png"
	}
	return *c.FrameFormat
}

// GetBroadcastInterval returns the periodic refresh interval or the
// default. Zero disables the periodic producer.
func (c *Config) GetBroadcastInterval() time.Duration {
	if c.BroadcastInterval == nil || *c.BroadcastInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(*c.BroadcastInterval)
	if err != nil {
		return 0
	}
	return d
}

// GetDBPath returns the sqlite path or the default.
func (c *Config) GetDBPath() string {
	if c.DBPath == nil || *c.DBPath == "" {
		return "projector.db"
	}
	return *c.DBPath
}

// GetUploadsDir returns the asset directory or the default.
func (c *Config) GetUploadsDir() string {
	if c.UploadsDir == nil || *c.UploadsDir == "" {
		return "uploads"
	}
	return *c.UploadsDir
}

// GetRendersDir returns the debug render dump directory or the default.
func (c *Config) GetRendersDir() string {
	if c.RendersDir == nil || *c.RendersDir == "" {
		return "renders"
	}
	return *c.RendersDir
}

// GetDebugRenderDump reports whether rendered frames are dumped to disk.
func (c *Config) GetDebugRenderDump() bool {
	if c.DebugRenderDump == nil {
		return false
	}
	return *c.DebugRenderDump
}
