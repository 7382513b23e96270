package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SetLastScene records the most recently projected layout so a restart
// resumes where the operator left off.
func (db *DB) SetLastScene(layout json.RawMessage) error {
	if !json.Valid(layout) {
		return fmt.Errorf("last scene: layout is not valid JSON")
	}

	query := `
		INSERT INTO last_scene (id, layout_json)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET
			layout_json = excluded.layout_json,
			updated_at  = CURRENT_TIMESTAMP
	`
	if _, err := db.DB.Exec(query, string(layout)); err != nil {
		return fmt.Errorf("failed to save last scene: %w", err)
	}
	return nil
}

// LastScene returns the most recently projected layout, or ErrNotFound
// when nothing has ever been projected.
func (db *DB) LastScene() (json.RawMessage, error) {
	var layoutJSON string
	err := db.DB.QueryRow(`SELECT layout_json FROM last_scene WHERE id = 1`).Scan(&layoutJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load last scene: %w", err)
	}
	return json.RawMessage(layoutJSON), nil
}
