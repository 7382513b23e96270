package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pressalign/projector/internal/geom"
)

// CalibrationRecord is the persisted calibration input and quality report.
// Only the corner points and press dimensions are stored; the transform
// matrices are recomputed from them on load.
type CalibrationRecord struct {
	Corners       geom.Quad `json:"corners"`
	PressWidthMm  float64   `json:"press_width_mm"`
	PressHeightMm float64   `json:"press_height_mm"`
	PixelsPerMm   float64   `json:"pixels_per_mm"`
	MaxErrorMm    float64   `json:"max_error_mm"`
	AvgErrorMm    float64   `json:"avg_error_mm"`
	Valid         bool      `json:"valid"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SaveCalibration upserts the single current calibration row.
func (db *DB) SaveCalibration(rec CalibrationRecord) error {
	corners, err := json.Marshal(rec.Corners)
	if err != nil {
		return fmt.Errorf("failed to encode corners: %w", err)
	}

	query := `
		INSERT INTO calibration (
			id, corners_json, press_width_mm, press_height_mm,
			pixels_per_mm, max_error_mm, avg_error_mm, valid, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			corners_json    = excluded.corners_json,
			press_width_mm  = excluded.press_width_mm,
			press_height_mm = excluded.press_height_mm,
			pixels_per_mm   = excluded.pixels_per_mm,
			max_error_mm    = excluded.max_error_mm,
			avg_error_mm    = excluded.avg_error_mm,
			valid           = excluded.valid,
			updated_at      = CURRENT_TIMESTAMP
	`

	valid := 0
	if rec.Valid {
		valid = 1
	}
	_, err = db.DB.Exec(query, string(corners),
		rec.PressWidthMm, rec.PressHeightMm, rec.PixelsPerMm,
		rec.MaxErrorMm, rec.AvgErrorMm, valid)
	if err != nil {
		return fmt.Errorf("failed to save calibration: %w", err)
	}
	return nil
}

// LoadCalibration returns the current calibration, or ErrNotFound when the
// press has never been calibrated.
func (db *DB) LoadCalibration() (*CalibrationRecord, error) {
	query := `
		SELECT corners_json, press_width_mm, press_height_mm,
		       pixels_per_mm, max_error_mm, avg_error_mm, valid, updated_at
		FROM calibration WHERE id = 1
	`

	var rec CalibrationRecord
	var cornersJSON string
	var valid int
	err := db.DB.QueryRow(query).Scan(&cornersJSON,
		&rec.PressWidthMm, &rec.PressHeightMm, &rec.PixelsPerMm,
		&rec.MaxErrorMm, &rec.AvgErrorMm, &valid, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calibration: %w", err)
	}

	if err := json.Unmarshal([]byte(cornersJSON), &rec.Corners); err != nil {
		return nil, fmt.Errorf("failed to decode corners: %w", err)
	}
	rec.Valid = valid != 0
	return &rec, nil
}

// ClearCalibration removes the stored calibration row.
func (db *DB) ClearCalibration() error {
	if _, err := db.DB.Exec(`DELETE FROM calibration WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear calibration: %w", err)
	}
	return nil
}
