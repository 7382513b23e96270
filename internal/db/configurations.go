package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Configuration is a named, saved layout.
type Configuration struct {
	ID        int             `json:"id"`
	Name      string          `json:"name"`
	Layout    json.RawMessage `json:"layout"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SaveConfiguration stores a layout under a name, replacing any previous
// layout saved under the same name.
func (db *DB) SaveConfiguration(name string, layout json.RawMessage) error {
	if name == "" {
		return fmt.Errorf("configuration name must not be empty")
	}
	if !json.Valid(layout) {
		return fmt.Errorf("configuration %q: layout is not valid JSON", name)
	}

	query := `
		INSERT INTO configurations (name, layout_json)
		VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET
			layout_json = excluded.layout_json,
			updated_at  = CURRENT_TIMESTAMP
	`
	if _, err := db.DB.Exec(query, name, string(layout)); err != nil {
		return fmt.Errorf("failed to save configuration %q: %w", name, err)
	}
	return nil
}

// LoadConfiguration returns the named saved layout.
func (db *DB) LoadConfiguration(name string) (*Configuration, error) {
	query := `
		SELECT id, name, layout_json, created_at, updated_at
		FROM configurations WHERE name = ?
	`

	var c Configuration
	var layoutJSON string
	err := db.DB.QueryRow(query, name).Scan(
		&c.ID, &c.Name, &layoutJSON, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration %q: %w", name, err)
	}
	c.Layout = json.RawMessage(layoutJSON)
	return &c, nil
}

// ListConfigurations returns all saved configurations, newest first,
// without their layout payloads.
func (db *DB) ListConfigurations() ([]Configuration, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM configurations ORDER BY updated_at DESC
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list configurations: %w", err)
	}
	defer rows.Close()

	var out []Configuration
	for rows.Next() {
		var c Configuration
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan configuration: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteConfiguration removes a named layout.
func (db *DB) DeleteConfiguration(name string) error {
	res, err := db.DB.Exec(`DELETE FROM configurations WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete configuration %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete configuration %q: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
