package db

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pressalign/projector/internal/geom"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrateUpIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.MigrateUp(); err != nil {
		t.Fatalf("second MigrateUp failed: %v", err)
	}
	version, dirty, err := db.MigrateVersion()
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	if dirty {
		t.Error("migration state is dirty")
	}
	if version == 0 {
		t.Error("expected a non-zero migration version")
	}
}

func TestCalibrationRoundTrip(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.LoadCalibration(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before save, got %v", err)
	}

	rec := CalibrationRecord{
		Corners: geom.Quad{
			geom.Pt(100, 100), geom.Pt(1820, 100),
			geom.Pt(1820, 980), geom.Pt(100, 980),
		},
		PressWidthMm:  600,
		PressHeightMm: 400,
		PixelsPerMm:   2.5333,
		MaxErrorMm:    0.12,
		AvgErrorMm:    0.05,
		Valid:         true,
	}
	if err := db.SaveCalibration(rec); err != nil {
		t.Fatalf("SaveCalibration failed: %v", err)
	}

	got, err := db.LoadCalibration()
	if err != nil {
		t.Fatalf("LoadCalibration failed: %v", err)
	}
	if got.Corners != rec.Corners {
		t.Errorf("corners mismatch: got %+v want %+v", got.Corners, rec.Corners)
	}
	if got.PressWidthMm != 600 || got.PressHeightMm != 400 {
		t.Errorf("press size mismatch: %gx%g", got.PressWidthMm, got.PressHeightMm)
	}
	if !got.Valid {
		t.Error("valid flag lost")
	}
	if got.UpdatedAt.IsZero() {
		t.Error("updated_at not populated")
	}

	// Saving again replaces the single row.
	rec.PressWidthMm = 650
	rec.Valid = false
	if err := db.SaveCalibration(rec); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}
	got, err = db.LoadCalibration()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got.PressWidthMm != 650 || got.Valid {
		t.Errorf("upsert did not replace: %+v", got)
	}

	if err := db.ClearCalibration(); err != nil {
		t.Fatalf("ClearCalibration failed: %v", err)
	}
	if _, err := db.LoadCalibration(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestConfigurations(t *testing.T) {
	db := newTestDB(t)

	layout := json.RawMessage(`{"object_orientation":90,"elements":[]}`)
	if err := db.SaveConfiguration("job-42", layout); err != nil {
		t.Fatalf("SaveConfiguration failed: %v", err)
	}

	got, err := db.LoadConfiguration("job-42")
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if string(got.Layout) != string(layout) {
		t.Errorf("layout mismatch: %s", got.Layout)
	}

	// Same name replaces the payload.
	layout2 := json.RawMessage(`{"object_orientation":0,"elements":[]}`)
	if err := db.SaveConfiguration("job-42", layout2); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}
	if err := db.SaveConfiguration("job-43", layout); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	list, err := db.ListConfigurations()
	if err != nil {
		t.Fatalf("ListConfigurations failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 configurations, got %d", len(list))
	}
	for _, c := range list {
		if len(c.Layout) != 0 {
			t.Error("list should not carry layout payloads")
		}
	}

	if err := db.DeleteConfiguration("job-42"); err != nil {
		t.Fatalf("DeleteConfiguration failed: %v", err)
	}
	if err := db.DeleteConfiguration("job-42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
	if _, err := db.LoadConfiguration("job-42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSaveConfigurationRejectsBadInput(t *testing.T) {
	db := newTestDB(t)
	if err := db.SaveConfiguration("", json.RawMessage(`{}`)); err == nil {
		t.Error("empty name accepted")
	}
	if err := db.SaveConfiguration("x", json.RawMessage(`{not json`)); err == nil {
		t.Error("invalid JSON accepted")
	}
}

func TestLastScene(t *testing.T) {
	db := newTestDB(t)

	if _, err := db.LastScene(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first set, got %v", err)
	}

	if err := db.SetLastScene(json.RawMessage(`{"elements":[]}`)); err != nil {
		t.Fatalf("SetLastScene failed: %v", err)
	}
	if err := db.SetLastScene(json.RawMessage(`{"elements":[{"type":"line"}]}`)); err != nil {
		t.Fatalf("second SetLastScene failed: %v", err)
	}

	got, err := db.LastScene()
	if err != nil {
		t.Fatalf("LastScene failed: %v", err)
	}
	if string(got) != `{"elements":[{"type":"line"}]}` {
		t.Errorf("unexpected last scene: %s", got)
	}
}

func TestUploads(t *testing.T) {
	db := newTestDB(t)

	u := Upload{Filename: "logo_ab12cd34.png", Size: 2048, Extension: "png"}
	if err := db.RecordUpload(u); err != nil {
		t.Fatalf("RecordUpload failed: %v", err)
	}
	if err := db.RecordUpload(Upload{Filename: "art_ef56.svg", Size: 100, Extension: "svg"}); err != nil {
		t.Fatalf("second RecordUpload failed: %v", err)
	}

	list, err := db.ListUploads()
	if err != nil {
		t.Fatalf("ListUploads failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(list))
	}
	for _, got := range list {
		if got.CreatedAt.After(time.Now().Add(time.Minute)) {
			t.Errorf("implausible created_at: %v", got.CreatedAt)
		}
	}

	if err := db.DeleteUpload("logo_ab12cd34.png"); err != nil {
		t.Fatalf("DeleteUpload failed: %v", err)
	}
	if err := db.DeleteUpload("logo_ab12cd34.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}
