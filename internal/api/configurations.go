package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/httputil"
	"github.com/pressalign/projector/internal/layout"
)

type saveConfigurationRequest struct {
	Name string `json:"name"`
}

// handleConfigurations lists saved layouts or snapshots the live layout
// under a name.
func (s *Server) handleConfigurations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		configs, err := s.db.ListConfigurations()
		if err != nil {
			httputil.InternalServerError(w, "failed to list configurations: "+err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]interface{}{"configurations": configs})
	case http.MethodPost:
		var req saveConfigurationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		data, err := json.Marshal(s.engine.Layout())
		if err != nil {
			httputil.InternalServerError(w, "failed to marshal layout: "+err.Error())
			return
		}
		if err := s.db.SaveConfiguration(req.Name, data); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, map[string]string{"name": req.Name})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleConfigurationByName loads a saved layout into the engine or deletes
// it. Loading also updates the last scene so a restart resumes the loaded
// configuration.
func (s *Server) handleConfigurationByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/configurations/")
	if name == "" || strings.Contains(name, "/") {
		httputil.BadRequest(w, "invalid configuration name")
		return
	}

	switch r.Method {
	case http.MethodGet, http.MethodPost:
		cfg, err := s.db.LoadConfiguration(name)
		if errors.Is(err, db.ErrNotFound) {
			httputil.NotFound(w, "configuration not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to load configuration: "+err.Error())
			return
		}
		var state layout.State
		if err := json.Unmarshal(cfg.Layout, &state); err != nil {
			httputil.InternalServerError(w, "stored configuration is corrupt: "+err.Error())
			return
		}
		applied, err := s.replaceLayout(state)
		if err != nil {
			httputil.InternalServerError(w, "failed to apply configuration: "+err.Error())
			return
		}
		s.persistLastScene(applied)
		httputil.WriteJSONOK(w, applied)
	case http.MethodDelete:
		if err := s.db.DeleteConfiguration(name); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				httputil.NotFound(w, "configuration not found")
				return
			}
			httputil.InternalServerError(w, "failed to delete configuration: "+err.Error())
			return
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": name})
	default:
		httputil.MethodNotAllowed(w)
	}
}
