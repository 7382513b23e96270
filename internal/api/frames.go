package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/pressalign/projector/internal/httputil"
	"github.com/pressalign/projector/internal/monitoring"
)

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteSVG(w, s.engine.PreviewSVG())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	res := s.engine.LastResult()
	if res == nil || res.Failed() || len(res.Frame) == 0 {
		httputil.NotFound(w, "no frame available")
		return
	}
	w.Header().Set("X-Frame-ID", res.FrameID)
	httputil.WriteBinary(w, res.MIME, res.Frame)
}

// handleFrameStream pushes frames over multipart/x-mixed-replace as the
// engine produces them. Slow clients skip frames rather than stall the
// pipeline.
func (s *Server) handleFrameStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.InternalServerError(w, "streaming unsupported")
		return
	}

	id, frames := s.engine.Subscribe()
	defer s.engine.Unsubscribe(id)

	mw := multipart.NewWriter(w)
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Replay the most recent frame so a new client does not wait for the
	// next layout change.
	if res := s.engine.LastResult(); res != nil && !res.Failed() && len(res.Frame) > 0 {
		if err := writeFramePart(mw, res.MIME, res.FrameID, res.Frame); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case res, open := <-frames:
			if !open {
				return
			}
			if res.Failed() || len(res.Frame) == 0 {
				continue
			}
			if err := writeFramePart(mw, res.MIME, res.FrameID, res.Frame); err != nil {
				monitoring.Logf("frame stream client gone: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeFramePart(mw *multipart.Writer, mime, frameID string, frame []byte) error {
	hdr := textproto.MIMEHeader{
		"Content-Type":   {mime},
		"Content-Length": {fmt.Sprint(len(frame))},
		"X-Frame-Id":     {frameID},
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return err
	}
	_, err = part.Write(frame)
	return err
}
