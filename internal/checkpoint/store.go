// Package checkpoint keeps resume bookkeeping in SQLite: which source
// files were already converted, and per-run accounting.
package checkpoint

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed processed-file ledger.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the ledger at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("checkpoint database ping failed: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		path TEXT NOT NULL,
		content_hash TEXT UNIQUE NOT NULL,
		processed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_processed_files_hash ON processed_files(content_hash);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		activities INTEGER DEFAULT 0,
		failures INTEGER DEFAULT 0,
		summary TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// FileHash returns the hex SHA-256 of a file's contents.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IsProcessed reports whether a content hash was already converted.
func (s *Store) IsProcessed(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(1) FROM processed_files WHERE content_hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkProcessed records a converted source file.
func (s *Store) MarkProcessed(path, hash string) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO processed_files (path, content_hash) VALUES (?, ?)`,
		path, hash,
	)
	return err
}

// FilterUnprocessed returns the subset of paths whose contents have not
// been converted yet. Unreadable files are passed through so the parser
// can report them.
func (s *Store) FilterUnprocessed(paths []string) ([]string, error) {
	var out []string
	for _, path := range paths {
		hash, err := FileHash(path)
		if err != nil {
			out = append(out, path)
			continue
		}
		done, err := s.IsProcessed(hash)
		if err != nil {
			return nil, err
		}
		if !done {
			out = append(out, path)
		}
	}
	return out, nil
}

// BeginRun opens a run row and returns its id.
func (s *Store) BeginRun() (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(`INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// FinishRun closes a run row with its final accounting.
func (s *Store) FinishRun(id string, activities, failures int, summary string) error {
	_, err := s.db.Exec(
		`UPDATE runs SET finished_at = ?, activities = ?, failures = ?, summary = ? WHERE id = ?`,
		time.Now().UTC(), activities, failures, summary, id,
	)
	return err
}

// LastRun returns when the most recent finished run completed, or the
// zero time when none exists.
func (s *Store) LastRun() (time.Time, error) {
	var finished sql.NullTime
	err := s.db.QueryRow(`SELECT finished_at FROM runs WHERE finished_at IS NOT NULL ORDER BY finished_at DESC LIMIT 1`).Scan(&finished)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if !finished.Valid {
		return time.Time{}, nil
	}
	return finished.Time, nil
}
