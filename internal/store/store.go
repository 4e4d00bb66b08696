// Package store provides checkpoint storage backends for FormDesk.
//
// A Store holds one SessionState per thread id between turns. Backends are
// selected at startup: in-memory (default for tests), SQLite, or PostgreSQL.
package store

import (
	"strings"
	"sync"

	"github.com/formdesk/formdesk/internal/models"
)

// Store defines the checkpoint store consumed by the session manager.
type Store interface {
	SaveSession(session models.SessionState) error
	GetSession(threadID string) (*models.SessionState, error)
	DeleteSession(threadID string) error
	ListThreads() ([]string, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN    string
	Driver string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database DSN (file path for SQLite, URL for Postgres).
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// WithDriver sets the database driver name ("sqlite3" or "postgres").
func WithDriver(driver string) Option {
	return func(o *Opts) { o.Driver = driver }
}

// DetectDSNType classifies a DSN string as "postgres", "sqlite", or "unknown".
// Postgres URLs and key=value connection strings are recognized; anything
// else shaped like a file path is treated as SQLite.
func DetectDSNType(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "host="):
		return "postgres"
	case dsn != "":
		return "sqlite"
	default:
		return "unknown"
	}
}

// New selects and opens a store backend from the options. An explicit driver
// wins; otherwise the DSN shape decides, and no DSN at all means in-memory.
func New(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DetectDSNType(cfg.DSN)
	}
	switch driver {
	case "postgres":
		return NewPostgresStore(opts...)
	case "sqlite", "sqlite3":
		return NewSQLiteStore(opts...)
	default:
		return NewInMemoryStore(), nil
	}
}

// InMemoryStore is a thread-safe in-memory checkpoint store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.SessionState
}

// NewInMemoryStore creates a new in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]models.SessionState)}
}

// SaveSession stores a session keyed by its thread id.
func (s *InMemoryStore) SaveSession(session models.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ThreadID] = session
	return nil
}

// GetSession returns the session for the thread id, or nil if absent.
func (s *InMemoryStore) GetSession(threadID string) (*models.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[threadID]
	if !ok {
		return nil, nil
	}
	// Return a copy so callers cannot mutate the stored record in place.
	copied := session
	copied.FormValues = make(map[string]string, len(session.FormValues))
	for k, v := range session.FormValues {
		copied.FormValues[k] = v
	}
	return &copied, nil
}

// DeleteSession removes the session for the thread id. Missing ids are a no-op.
func (s *InMemoryStore) DeleteSession(threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, threadID)
	return nil
}

// ListThreads returns the ids of all stored sessions.
func (s *InMemoryStore) ListThreads() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
