// Package api exposes the press projector over HTTP: calibration,
// layout, boundary pattern, uploads, saved configurations and the frame
// endpoints consumed by the projector client.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/pressalign/projector/internal/assets"
	"github.com/pressalign/projector/internal/config"
	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/monitor"
	"github.com/pressalign/projector/internal/monitoring"
	"github.com/pressalign/projector/internal/render"
)

// ANSI escape codes for request logging
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db     *db.DB
	engine *render.Engine
	store  *assets.Store
	cfg    *config.Config
	mon    *monitor.Monitor
}

func NewServer(database *db.DB, engine *render.Engine, store *assets.Store, cfg *config.Config, mon *monitor.Monitor) *Server {
	if cfg == nil {
		cfg = config.Empty()
	}
	return &Server{
		db:     database,
		engine: engine,
		store:  store,
		cfg:    cfg,
		mon:    mon,
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Logf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/calibration", s.handleCalibration)
	mux.HandleFunc("/api/press-size", s.handlePressSize)
	mux.HandleFunc("/api/layout", s.handleLayout)
	mux.HandleFunc("/api/boundary-pattern", s.handleBoundaryPattern)
	mux.HandleFunc("/api/debug-mode", s.handleDebugMode)
	mux.HandleFunc("/api/projector-resolution", s.handleProjectorResolution)
	mux.HandleFunc("/api/preview", s.handlePreview)
	mux.HandleFunc("/api/frame", s.handleFrame)
	mux.HandleFunc("/api/frame/stream", s.handleFrameStream)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/files", s.handleFiles)
	mux.HandleFunc("/api/files/", s.handleFileByName)
	mux.HandleFunc("/uploads/", s.handleServeUpload)
	mux.HandleFunc("/api/configurations", s.handleConfigurations)
	mux.HandleFunc("/api/configurations/", s.handleConfigurationByName)
	mux.HandleFunc("/api/last-scene", s.handleLastScene)
	mux.HandleFunc("/api/config", s.handleShowConfig)

	if s.mon != nil {
		s.mon.AttachRoutes(mux)
	}
	if s.db != nil {
		s.db.AttachAdminRoutes(mux)
	}

	return mux
}
