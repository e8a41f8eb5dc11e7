// Package history keeps an append-only audit log of build outcomes in SQLite.
//
// The log is written after a run finishes and is only read by the history
// command. Builds never consult it.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/epubbuild/internal/foundation/errors"
)

// Entry is one recorded run.
type Entry struct {
	ID               int64
	BuildID          string
	StartedAt        time.Time
	FinishedAt       time.Time
	Status           string
	ArtifactPath     string
	PackagerExitCode int
	ProvisionError   string
	Metadata         map[string]string
}

// Duration is the wall time of the run.
func (e Entry) Duration() time.Duration {
	return e.FinishedAt.Sub(e.StartedAt)
}

// Recorder appends entries. *Store implements it.
type Recorder interface {
	Append(ctx context.Context, e Entry) error
}

// Store is the SQLite-backed history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens (creating if needed) the history database at path. Use
// ":memory:" for an in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "create history directory").
				WithContext("path", path).
				Build()
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "open history database").Build()
	}
	// A single connection keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryHistory, "initialize history schema").Build()
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		status TEXT NOT NULL,
		artifact_path TEXT,
		packager_exit_code INTEGER NOT NULL,
		provision_error TEXT,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_build_id ON runs(build_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records e.
func (s *Store) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if e.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (build_id, started_at, finished_at, status, artifact_path, packager_exit_code, provision_error, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.BuildID, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), e.Status,
		e.ArtifactPath, e.PackagerExitCode, e.ProvisionError, metadataJSON,
	)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryHistory, "insert history entry").
			WithContext("build_id", e.BuildID).
			Build()
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, build_id, started_at, finished_at, status, artifact_path, packager_exit_code, provision_error, metadata
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var (
			e                       Entry
			started, finished       int64
			artifactPath, provision sql.NullString
			metadataJSON            []byte
		)
		if err := rows.Scan(&e.ID, &e.BuildID, &started, &finished, &e.Status,
			&artifactPath, &e.PackagerExitCode, &provision, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.FinishedAt = time.UnixMilli(finished)
		e.ArtifactPath = artifactPath.String
		e.ProvisionError = provision.String
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
