package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/httputil"
	"github.com/pressalign/projector/internal/layout"
	"github.com/pressalign/projector/internal/monitoring"
	"github.com/pressalign/projector/internal/version"
)

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.engine.Layout())
	case http.MethodPost:
		var delta layout.Delta
		if err := json.NewDecoder(r.Body).Decode(&delta); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		state, err := s.engine.ApplyLayout(delta)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.persistLastScene(state)
		httputil.WriteJSONOK(w, state)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// persistLastScene stores the full layout so a restart resumes where the
// operator left off. Persistence is best effort; the live engine state is
// authoritative.
func (s *Server) persistLastScene(state layout.State) {
	data, err := json.Marshal(state)
	if err != nil {
		monitoring.Logf("failed to marshal last scene: %v", err)
		return
	}
	if err := s.db.SetLastScene(data); err != nil {
		monitoring.Logf("failed to persist last scene: %v", err)
	}
}

func (s *Server) handleLastScene(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data, err := s.db.LastScene()
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "no scene stored")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to load last scene: "+err.Error())
			return
		}
		httputil.WriteJSONOK(w, json.RawMessage(data))
	case http.MethodPost:
		var state layout.State
		if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		applied, err := s.replaceLayout(state)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		s.persistLastScene(applied)
		httputil.WriteJSONOK(w, applied)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// replaceLayout swaps in a complete layout state, as opposed to the partial
// deltas the layout endpoint takes.
func (s *Server) replaceLayout(state layout.State) (layout.State, error) {
	delta := layout.Delta{
		ObjectOrientationDeg: &state.ObjectOrientationDeg,
		CenterLines:          &state.CenterLines,
		Elements:             &state.Elements,
	}
	return s.engine.ApplyLayout(delta)
}

// RestoreLastScene loads the persisted layout, if any, into the engine.
// Called once at startup.
func (s *Server) RestoreLastScene() error {
	data, err := s.db.LastScene()
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var state layout.State
	if err := json.Unmarshal(data, &state); err != nil {
		monitoring.Logf("ignoring stored scene: %v", err)
		return nil
	}
	if _, err := s.replaceLayout(state); err != nil {
		monitoring.Logf("ignoring stored scene: %v", err)
	}
	return nil
}

type boundaryPatternRequest struct {
	Visible bool `json:"visible"`
}

func (s *Server) handleBoundaryPattern(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, boundaryPatternRequest{Visible: s.engine.BoundaryVisible()})
	case http.MethodPost:
		var req boundaryPatternRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		s.engine.SetBoundaryVisible(req.Visible)
		httputil.WriteJSONOK(w, req)
	default:
		httputil.MethodNotAllowed(w)
	}
}

type debugModeRequest struct {
	BypassWarp bool `json:"bypass_warp"`
}

func (s *Server) handleDebugMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	var req debugModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	s.engine.SetBypassWarp(req.BypassWarp)
	httputil.WriteJSONOK(w, req)
}

type projectorResolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (s *Server) handleProjectorResolution(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		pw, ph := s.engine.ProjectorResolution()
		httputil.WriteJSONOK(w, projectorResolution{Width: pw, Height: ph})
	case http.MethodPost:
		var req projectorResolution
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		if req.Width < 1 || req.Height < 1 {
			httputil.BadRequest(w, "resolution must be positive")
			return
		}
		s.engine.SetProjectorResolution(req.Width, req.Height)
		pw, ph := s.engine.ProjectorResolution()
		httputil.WriteJSONOK(w, projectorResolution{Width: pw, Height: ph})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleShowConfig reports the effective settings, with defaults applied.
func (s *Server) handleShowConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{
		"version":            version.Version,
		"listen_addr":        s.cfg.GetListenAddr(),
		"projector_width":    s.cfg.GetProjectorWidth(),
		"projector_height":   s.cfg.GetProjectorHeight(),
		"target_px_per_mm":   s.cfg.GetTargetPxPerMm(),
		"boundary_margin_mm": s.cfg.GetBoundaryMarginMm(),
		"frame_format":       s.cfg.GetFrameFormat(),
		"broadcast_interval": s.cfg.GetBroadcastInterval().String(),
		"uploads_dir":        s.cfg.GetUploadsDir(),
	})
}
