// Package store provides checkpoint storage backends for FormDesk.
//
// This file implements an SQLite-backed checkpoint store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/formdesk/formdesk/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists sessions in a local SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given options.
// The DSN is a file path to the SQLite database file; its directory is
// created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: creating SQLite store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLiteStore.NewSQLiteStore: migrations applied")

	return &SQLiteStore{db: db}, nil
}

// SaveSession upserts a session keyed by its thread id.
func (s *SQLiteStore) SaveSession(session models.SessionState) error {
	stateJSON, err := session.ToJSON()
	if err != nil {
		slog.Error("SQLiteStore.SaveSession marshal failed", "error", err, "threadID", session.ThreadID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO sessions (thread_id, state_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)`,
		session.ThreadID, stateJSON, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("SQLiteStore.SaveSession failed", "error", err, "threadID", session.ThreadID)
		return fmt.Errorf("failed to save session for %s: %w", session.ThreadID, err)
	}
	slog.Debug("SQLiteStore.SaveSession succeeded", "threadID", session.ThreadID)
	return nil
}

// GetSession returns the session for the thread id, or nil if absent.
func (s *SQLiteStore) GetSession(threadID string) (*models.SessionState, error) {
	var stateJSON string
	err := s.db.QueryRow(`SELECT state_json FROM sessions WHERE thread_id = ?`, threadID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore.GetSession query failed", "error", err, "threadID", threadID)
		return nil, fmt.Errorf("failed to query session for %s: %w", threadID, err)
	}
	var session models.SessionState
	if err := session.FromJSON(stateJSON); err != nil {
		slog.Error("SQLiteStore.GetSession unmarshal failed", "error", err, "threadID", threadID)
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes the session for the thread id. Missing ids are a no-op.
func (s *SQLiteStore) DeleteSession(threadID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE thread_id = ?`, threadID)
	if err != nil {
		slog.Error("SQLiteStore.DeleteSession failed", "error", err, "threadID", threadID)
		return fmt.Errorf("failed to delete session for %s: %w", threadID, err)
	}
	return nil
}

// ListThreads returns the ids of all stored sessions.
func (s *SQLiteStore) ListThreads() ([]string, error) {
	rows, err := s.db.Query(`SELECT thread_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		slog.Error("SQLiteStore.ListThreads query failed", "error", err)
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
