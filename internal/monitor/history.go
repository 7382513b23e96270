// Package monitor exposes render diagnostics over HTTP: a gonum/plot
// rendering of the current calibration geometry and a go-echarts chart of
// recent per-stage pipeline timings.
package monitor

import (
	"sync"
	"time"

	"github.com/pressalign/projector/internal/render"
)

// Sample is one observed pipeline run.
type Sample struct {
	FrameID  string         `json:"frame_id"`
	At       time.Time      `json:"at"`
	Stage    render.Stage   `json:"stage"`
	Degraded bool           `json:"degraded"`
	Timings  render.Timings `json:"timings"`
}

// History is a fixed-capacity ring of recent samples.
type History struct {
	mu   sync.Mutex
	buf  []Sample
	next int
	full bool
}

// NewHistory creates a ring holding the most recent capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]Sample, capacity)}
}

// Add records a sample, evicting the oldest when full.
func (h *History) Add(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = s
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Samples returns the recorded samples oldest first.
func (h *History) Samples() []Sample {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.full {
		out := make([]Sample, h.next)
		copy(out, h.buf[:h.next])
		return out
	}
	out := make([]Sample, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	out = append(out, h.buf[:h.next]...)
	return out
}
