// Package genstore is the generation cache the CLI runner (§11.3)
// consults before writing files: a SQLite-backed record, keyed by the
// content hash of the network IR plus GenConfig (internal/ir.ContentHash),
// of the SHA-256 sums of the files last emitted for that key. A cache
// hit means "generate" can skip writing unchanged output — Testable
// Property 2's byte-identical-repeated-generation guarantee, extended
// to the filesystem.
package genstore

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store wraps a SQLite connection dedicated to the generation cache.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at path, applying the WAL /
// busy-timeout pragmas and schema the same way internal/store does for
// the teacher's event log.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("genstore: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("genstore: connect: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("genstore: apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("genstore: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the recorded file->SHA256 map for contentHash, and
// whether an entry was found at all.
func (s *Store) Lookup(contentHash string) (map[string]string, bool, error) {
	var networkName, fileShasJSON string
	err := s.db.QueryRow(
		`SELECT network_name, file_shas FROM generations WHERE content_hash = ?`,
		contentHash,
	).Scan(&networkName, &fileShasJSON)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("genstore: lookup %s: %w", contentHash, err)
	}

	var shas map[string]string
	if err := json.Unmarshal([]byte(fileShasJSON), &shas); err != nil {
		return nil, false, fmt.Errorf("genstore: decode file_shas for %s: %w", contentHash, err)
	}
	return shas, true, nil
}

// Record upserts the file->SHA256 map for contentHash.
func (s *Store) Record(contentHash, networkName string, fileShas map[string]string) error {
	blob, err := json.Marshal(fileShas)
	if err != nil {
		return fmt.Errorf("genstore: encode file_shas: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO generations (content_hash, network_name, file_shas) VALUES (?, ?, ?)
		 ON CONFLICT(content_hash) DO UPDATE SET network_name = excluded.network_name, file_shas = excluded.file_shas`,
		contentHash, networkName, string(blob),
	)
	if err != nil {
		return fmt.Errorf("genstore: record %s: %w", contentHash, err)
	}
	return nil
}
