package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/pressalign/projector/internal/db"
	"github.com/pressalign/projector/internal/geom"
	"github.com/pressalign/projector/internal/homography"
	"github.com/pressalign/projector/internal/httputil"
	"github.com/pressalign/projector/internal/monitoring"
	"github.com/pressalign/projector/internal/units"
)

// calibrationRequest carries the four projector-space corners and physical
// press dimensions needed to build a transform.
type calibrationRequest struct {
	Corners       geom.Quad `json:"corners"`
	PressWidthMm  float64   `json:"press_width_mm"`
	PressHeightMm float64   `json:"press_height_mm"`
}

type calibrationResponse struct {
	Calibrated    bool               `json:"calibrated"`
	Corners       *geom.Quad         `json:"corners,omitempty"`
	PressWidthMm  float64            `json:"press_width_mm,omitempty"`
	PressHeightMm float64            `json:"press_height_mm,omitempty"`
	Quality       *homography.Quality `json:"quality,omitempty"`
}

func (s *Server) handleCalibration(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getCalibration(w)
	case http.MethodPost:
		s.postCalibration(w, r)
	case http.MethodDelete:
		s.deleteCalibration(w)
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (s *Server) getCalibration(w http.ResponseWriter) {
	cal := s.engine.Calibration()
	if cal == nil {
		httputil.WriteJSONOK(w, calibrationResponse{Calibrated: false})
		return
	}
	corners := cal.Corners()
	quality := cal.ValidateQuality()
	httputil.WriteJSONOK(w, calibrationResponse{
		Calibrated:    true,
		Corners:       &corners,
		PressWidthMm:  cal.PressWidthMm(),
		PressHeightMm: cal.PressHeightMm(),
		Quality:       &quality,
	})
}

func (s *Server) postCalibration(w http.ResponseWriter, r *http.Request) {
	var req calibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.BadRequest(w, "invalid JSON body: "+err.Error())
		return
	}
	s.applyCalibration(w, req.Corners, req.PressWidthMm, req.PressHeightMm)
}

func (s *Server) deleteCalibration(w http.ResponseWriter) {
	if err := s.db.ClearCalibration(); err != nil {
		httputil.InternalServerError(w, "failed to clear calibration: "+err.Error())
		return
	}
	s.engine.UpdateCalibration(nil)
	httputil.WriteJSONOK(w, calibrationResponse{Calibrated: false})
}

// pressSizeRequest updates the physical dimensions while keeping the corner
// points already on record, so re-measuring the press does not force the
// operator to redo the four-point alignment. Unit defaults to millimetres;
// geometry is always stored in mm.
type pressSizeRequest struct {
	Width  float64 `json:"width_mm"`
	Height float64 `json:"height_mm"`
	Unit   string  `json:"unit,omitempty"`
}

func (s *Server) handlePressSize(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cal := s.engine.Calibration()
		if cal == nil {
			httputil.WriteJSONError(w, http.StatusNotFound, "no calibration present")
			return
		}
		unit := r.URL.Query().Get("unit")
		if unit == "" {
			unit = units.MM
		}
		if !units.IsValid(unit) {
			httputil.BadRequest(w, "invalid unit, must be one of: "+units.GetValidUnitsString())
			return
		}
		httputil.WriteJSONOK(w, pressSizeRequest{
			Width:  units.ConvertLength(cal.PressWidthMm(), unit),
			Height: units.ConvertLength(cal.PressHeightMm(), unit),
			Unit:   unit,
		})
	case http.MethodPost:
		cal := s.engine.Calibration()
		if cal == nil {
			httputil.WriteJSONError(w, http.StatusConflict, "calibrate corner points before setting press size")
			return
		}
		var req pressSizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid JSON body: "+err.Error())
			return
		}
		if req.Unit == "" {
			req.Unit = units.MM
		}
		if !units.IsValid(req.Unit) {
			httputil.BadRequest(w, "invalid unit, must be one of: "+units.GetValidUnitsString())
			return
		}
		s.applyCalibration(w, cal.Corners(), units.ToMm(req.Width, req.Unit), units.ToMm(req.Height, req.Unit))
	default:
		httputil.MethodNotAllowed(w)
	}
}

// applyCalibration builds, persists and activates a calibration, reporting
// its quality back to the caller. A quality failure is not an error: the
// calibration is still stored so the operator can inspect and redo it.
func (s *Server) applyCalibration(w http.ResponseWriter, corners geom.Quad, widthMm, heightMm float64) {
	cal, err := homography.New(corners, widthMm, heightMm)
	if err != nil {
		httputil.BadRequest(w, "invalid calibration: "+err.Error())
		return
	}
	quality := cal.ValidateQuality()

	rec := db.CalibrationRecord{
		Corners:       corners,
		PressWidthMm:  widthMm,
		PressHeightMm: heightMm,
		PixelsPerMm:   cal.PixelsPerMm(),
		MaxErrorMm:    quality.MaxErrorMm,
		AvgErrorMm:    quality.AvgErrorMm,
		Valid:         quality.Valid,
		UpdatedAt:     time.Now().UTC(),
	}
	if err := s.db.SaveCalibration(rec); err != nil {
		httputil.InternalServerError(w, "failed to save calibration: "+err.Error())
		return
	}

	s.engine.UpdateCalibration(cal)
	if !quality.Valid {
		monitoring.Logf("calibration stored with poor quality: max error %.3fmm", quality.MaxErrorMm)
	}

	httputil.WriteJSONOK(w, calibrationResponse{
		Calibrated:    true,
		Corners:       &corners,
		PressWidthMm:  widthMm,
		PressHeightMm: heightMm,
		Quality:       &quality,
	})
}

// RestoreCalibration loads the persisted calibration, if any, and activates
// it on the engine. Called once at startup.
func (s *Server) RestoreCalibration() error {
	rec, err := s.db.LoadCalibration()
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cal, err := homography.New(rec.Corners, rec.PressWidthMm, rec.PressHeightMm)
	if err != nil {
		// Stored corners no longer form a usable quad; start uncalibrated
		// rather than refuse to boot.
		monitoring.Logf("ignoring stored calibration: %v", err)
		return nil
	}
	s.engine.UpdateCalibration(cal)
	return nil
}
