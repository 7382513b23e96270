package db

import (
	"fmt"
	"time"
)

// Upload is the stored metadata for one uploaded asset. The file bytes
// live in the asset store; this row exists so the design browser can list
// uploads without touching the filesystem.
type Upload struct {
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Extension string    `json:"extension"`
	CreatedAt time.Time `json:"created_at"`
}

// RecordUpload inserts or refreshes upload metadata.
func (db *DB) RecordUpload(u Upload) error {
	query := `
		INSERT INTO uploads (filename, size, extension)
		VALUES (?, ?, ?)
		ON CONFLICT(filename) DO UPDATE SET
			size      = excluded.size,
			extension = excluded.extension
	`
	if _, err := db.DB.Exec(query, u.Filename, u.Size, u.Extension); err != nil {
		return fmt.Errorf("failed to record upload %q: %w", u.Filename, err)
	}
	return nil
}

// ListUploads returns upload metadata, newest first.
func (db *DB) ListUploads() ([]Upload, error) {
	query := `
		SELECT filename, size, extension, created_at
		FROM uploads ORDER BY created_at DESC, filename
	`

	rows, err := db.DB.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var out []Upload
	for rows.Next() {
		var u Upload
		if err := rows.Scan(&u.Filename, &u.Size, &u.Extension, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// DeleteUpload removes upload metadata.
func (db *DB) DeleteUpload(filename string) error {
	res, err := db.DB.Exec(`DELETE FROM uploads WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("failed to delete upload %q: %w", filename, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete upload %q: %w", filename, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
