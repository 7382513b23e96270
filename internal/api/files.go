package api

import (
	"errors"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressalign/projector/internal/assets"
	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/httputil"
	"github.com/pressalign/projector/internal/monitoring"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	if err := r.ParseMultipartForm(assets.MaxFileSize); err != nil {
		httputil.BadRequest(w, "invalid multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.BadRequest(w, "missing file field")
		return
	}
	defer file.Close()

	info, err := s.store.Save(header.Filename, file)
	switch {
	case errors.Is(err, assets.ErrInvalidType):
		httputil.BadRequest(w, "file type not allowed")
		return
	case errors.Is(err, assets.ErrTooLarge):
		httputil.WriteJSONError(w, http.StatusRequestEntityTooLarge, "file exceeds size limit")
		return
	case err != nil:
		httputil.InternalServerError(w, "failed to store file: "+err.Error())
		return
	}

	if err := s.db.RecordUpload(db.Upload{
		Filename:  info.Filename,
		Size:      info.Size,
		Extension: info.Extension,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		// The file is on disk either way; surface the bookkeeping failure
		// in the log only.
		monitoring.Logf("failed to record upload %s: %v", info.Filename, err)
	}

	httputil.WriteJSON(w, http.StatusCreated, info)
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	infos, err := s.store.List()
	if err != nil {
		httputil.InternalServerError(w, "failed to list files: "+err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]interface{}{"files": infos})
}

func (s *Server) handleFileByName(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/files/")
	if name == "" || strings.Contains(name, "/") {
		httputil.BadRequest(w, "invalid filename")
		return
	}

	switch r.Method {
	case http.MethodGet:
		info, err := s.store.Get(name)
		if errors.Is(err, assets.ErrNotFound) {
			httputil.NotFound(w, "file not found")
			return
		}
		if err != nil {
			httputil.InternalServerError(w, "failed to stat file: "+err.Error())
			return
		}
		httputil.WriteJSONOK(w, info)
	case http.MethodDelete:
		if err := s.store.Delete(name); err != nil {
			if errors.Is(err, assets.ErrNotFound) {
				httputil.NotFound(w, "file not found")
				return
			}
			httputil.InternalServerError(w, "failed to delete file: "+err.Error())
			return
		}
		if err := s.db.DeleteUpload(name); err != nil && !errors.Is(err, db.ErrNotFound) {
			monitoring.Logf("failed to delete upload record %s: %v", name, err)
		}
		httputil.WriteJSONOK(w, map[string]string{"deleted": name})
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handleServeUpload serves stored image bytes at the URL recorded in each
// image element's source reference.
func (s *Server) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, assets.URLPrefix)
	if name == "" || strings.Contains(name, "/") {
		httputil.BadRequest(w, "invalid filename")
		return
	}
	data, err := s.store.Open(name)
	if errors.Is(err, assets.ErrNotFound) {
		httputil.NotFound(w, "file not found")
		return
	}
	if err != nil {
		httputil.InternalServerError(w, "failed to read file: "+err.Error())
		return
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	httputil.WriteBinary(w, contentType, data)
}
