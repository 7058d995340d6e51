package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GlobalFor returns the global id mapped to localID, or empty string when
// the block has never been shared.
func (db *DB) GlobalFor(localID string) (string, error) {
	var gid string
	err := db.conn.QueryRow(`SELECT global_id FROM id_map WHERE local_id = ?`, localID).Scan(&gid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: global for %q: %w", localID, err)
	}
	return gid, nil
}

// LocalFor returns the local id mapped to globalID, or empty string.
func (db *DB) LocalFor(globalID string) (string, error) {
	var lid string
	err := db.conn.QueryRow(`SELECT local_id FROM id_map WHERE global_id = ?`, globalID).Scan(&lid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: local for %q: %w", globalID, err)
	}
	return lid, nil
}

// Put records a local/global pair. Re-putting the same pair is a no-op; a
// conflicting pair for either side replaces the stale entry.
func (db *DB) Put(localID, globalID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// A global id is a bijection key too: clear any stale row claiming it.
	if _, err := tx.Exec(`DELETE FROM id_map WHERE global_id = ? AND local_id != ?`, globalID, localID); err != nil {
		return fmt.Errorf("store: clear stale mapping: %w", err)
	}
	_, err = tx.Exec(`
		INSERT INTO id_map (local_id, global_id) VALUES (?, ?)
		ON CONFLICT(local_id) DO UPDATE SET global_id = excluded.global_id
	`, localID, globalID)
	if err != nil {
		return fmt.Errorf("store: put mapping: %w", err)
	}
	return tx.Commit()
}

// Remove deletes the mapping pair.
func (db *DB) Remove(localID, globalID string) error {
	_, err := db.conn.Exec(`DELETE FROM id_map WHERE local_id = ? AND global_id = ?`, localID, globalID)
	if err != nil {
		return fmt.Errorf("store: remove mapping: %w", err)
	}
	return nil
}
