package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/gebo/internal/annotation"
)

// LoadState returns the saved shared document for a page, or nil when the
// page has no saved state.
func (db *DB) LoadState(pageID string) (*annotation.Document, error) {
	var raw []byte
	err := db.conn.QueryRow(`SELECT state FROM page_states WHERE page_id = ?`, pageID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load state %q: %w", pageID, err)
	}
	var doc annotation.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("store: decode state %q: %w", pageID, err)
	}
	return &doc, nil
}

// SaveState persists the shared document for a page.
func (db *DB) SaveState(pageID string, doc *annotation.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode state %q: %w", pageID, err)
	}
	_, err = db.conn.Exec(`
		INSERT INTO page_states (page_id, state, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(page_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at
	`, pageID, raw, time.Now())
	if err != nil {
		return fmt.Errorf("store: save state %q: %w", pageID, err)
	}
	return nil
}

// RemoveState forgets a page's saved document.
func (db *DB) RemoveState(pageID string) error {
	_, err := db.conn.Exec(`DELETE FROM page_states WHERE page_id = ?`, pageID)
	if err != nil {
		return fmt.Errorf("store: remove state %q: %w", pageID, err)
	}
	return nil
}

// Pages lists every page with a saved state, ordered by identifier.
func (db *DB) Pages() ([]string, error) {
	rows, err := db.conn.Query(`SELECT page_id FROM page_states ORDER BY page_id`)
	if err != nil {
		return nil, fmt.Errorf("store: list pages: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
