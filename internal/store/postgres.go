// Package store provides checkpoint storage backends for FormDesk.
//
// This file implements a PostgreSQL-backed checkpoint store.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/formdesk/formdesk/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists sessions in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("PostgresStore.NewPostgresStore: migrations applied")

	return &PostgresStore{db: db}, nil
}

// SaveSession upserts a session keyed by its thread id.
func (s *PostgresStore) SaveSession(session models.SessionState) error {
	stateJSON, err := session.ToJSON()
	if err != nil {
		slog.Error("PostgresStore.SaveSession marshal failed", "error", err, "threadID", session.ThreadID)
		return err
	}
	_, err = s.db.Exec(`
		INSERT INTO sessions (thread_id, state_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (thread_id) DO UPDATE SET state_json = $2, updated_at = $4`,
		session.ThreadID, stateJSON, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		slog.Error("PostgresStore.SaveSession failed", "error", err, "threadID", session.ThreadID)
		return fmt.Errorf("failed to save session for %s: %w", session.ThreadID, err)
	}
	slog.Debug("PostgresStore.SaveSession succeeded", "threadID", session.ThreadID)
	return nil
}

// GetSession returns the session for the thread id, or nil if absent.
func (s *PostgresStore) GetSession(threadID string) (*models.SessionState, error) {
	var stateJSON string
	err := s.db.QueryRow(`SELECT state_json FROM sessions WHERE thread_id = $1`, threadID).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore.GetSession query failed", "error", err, "threadID", threadID)
		return nil, fmt.Errorf("failed to query session for %s: %w", threadID, err)
	}
	var session models.SessionState
	if err := session.FromJSON(stateJSON); err != nil {
		slog.Error("PostgresStore.GetSession unmarshal failed", "error", err, "threadID", threadID)
		return nil, err
	}
	return &session, nil
}

// DeleteSession removes the session for the thread id. Missing ids are a no-op.
func (s *PostgresStore) DeleteSession(threadID string) error {
	_, err := s.db.Exec(`DELETE FROM sessions WHERE thread_id = $1`, threadID)
	if err != nil {
		slog.Error("PostgresStore.DeleteSession failed", "error", err, "threadID", threadID)
		return fmt.Errorf("failed to delete session for %s: %w", threadID, err)
	}
	return nil
}

// ListThreads returns the ids of all stored sessions.
func (s *PostgresStore) ListThreads() ([]string, error) {
	rows, err := s.db.Query(`SELECT thread_id FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		slog.Error("PostgresStore.ListThreads query failed", "error", err)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
