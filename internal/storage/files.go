package storage

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"time"
)

// ComputeFileHash returns the SHA-256 hex digest of a file's content
func ComputeFileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// UpsertFile records the content hash of an indexed file
func (db *DB) UpsertFile(path, hash string) error {
	_, err := db.conn.Exec(
		`INSERT INTO files (path, hash, indexed_at) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, indexed_at = excluded.indexed_at`,
		path, hash, time.Now().UTC(),
	)
	return err
}

// GetFileHash returns the recorded hash for a file
func (db *DB) GetFileHash(path string) (string, error) {
	var hash string
	err := db.conn.QueryRow(`SELECT hash FROM files WHERE path = ?`, path).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return hash, err
}

// NeedsReindex reports whether a file's content differs from what was
// last indexed
func (db *DB) NeedsReindex(path, hash string) (bool, error) {
	stored, err := db.GetFileHash(path)
	if err == ErrNotFound {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return stored != hash, nil
}

// DeleteFileData removes a file's symbols, the edges touching them, and
// its hash record
func (db *DB) DeleteFileData(path string) error {
	_, err := db.conn.Exec(
		`DELETE FROM edges WHERE caller_id IN (SELECT id FROM symbols WHERE file = ?)
		    OR callee_id IN (SELECT id FROM symbols WHERE file = ?)`,
		path, path,
	)
	if err != nil {
		return err
	}
	if _, err := db.conn.Exec(`DELETE FROM symbols WHERE file = ?`, path); err != nil {
		return err
	}
	_, err = db.conn.Exec(`DELETE FROM files WHERE path = ?`, path)
	return err
}

// Stats summarizes database contents
type Stats struct {
	Symbols     int64            `json:"symbols"`
	Edges       int64            `json:"edges"`
	Files       int64            `json:"files"`
	SymbolKinds map[string]int64 `json:"symbol_kinds"`
	EdgeKinds   map[string]int64 `json:"edge_kinds"`
	LastIndexed string           `json:"last_indexed,omitempty"`
}

// GetStats returns database statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{
		SymbolKinds: make(map[string]int64),
		EdgeKinds:   make(map[string]int64),
	}

	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&stats.Symbols); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&stats.Edges); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM files`).Scan(&stats.Files); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`SELECT type, COUNT(*) FROM symbols GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.SymbolKinds[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	edgeRows, err := db.conn.Query(`SELECT call_type, COUNT(*) FROM edges GROUP BY call_type`)
	if err != nil {
		return nil, err
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var kind string
		var count int64
		if err := edgeRows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		stats.EdgeKinds[kind] = count
	}
	if err := edgeRows.Err(); err != nil {
		return nil, err
	}

	var last sql.NullString
	if err := db.conn.QueryRow(`SELECT MAX(indexed_at) FROM files`).Scan(&last); err != nil {
		return nil, err
	}
	if last.Valid {
		stats.LastIndexed = last.String
	}

	return stats, nil
}
