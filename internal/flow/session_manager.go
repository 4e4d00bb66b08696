// Package flow implements the FormDesk conversation engine.
//
// This file provides session persistence over a checkpoint store.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/formdesk/formdesk/internal/models"
	"github.com/formdesk/formdesk/internal/store"
)

// SessionManager loads and persists per-thread session state.
type SessionManager interface {
	// Load returns the session for a thread id, creating defaults when absent.
	Load(ctx context.Context, threadID string) (*models.SessionState, error)
	// Exists reports whether a checkpoint exists for the thread id.
	Exists(ctx context.Context, threadID string) (bool, error)
	// Save persists the session. The transient turn slot is cleared first so
	// the checkpoint never carries conversational scratch state.
	Save(ctx context.Context, session *models.SessionState) error
	// Reset deletes the checkpoint for a thread id.
	Reset(ctx context.Context, threadID string) error
	// ListThreads returns the ids of all threads with a checkpoint.
	ListThreads(ctx context.Context) ([]string, error)
}

// StoreBasedSessionManager implements SessionManager using a Store backend.
type StoreBasedSessionManager struct {
	store store.Store
}

// NewStoreBasedSessionManager creates a new SessionManager backed by a Store.
func NewStoreBasedSessionManager(st store.Store) *StoreBasedSessionManager {
	slog.Debug("Creating StoreBasedSessionManager")
	return &StoreBasedSessionManager{store: st}
}

// Load retrieves the session for a thread, constructing defaults on first
// contact. Loaded sessions pass through the defaults repair so checkpoints
// written before a field existed stay valid.
func (sm *StoreBasedSessionManager) Load(ctx context.Context, threadID string) (*models.SessionState, error) {
	session, err := sm.store.GetSession(threadID)
	if err != nil {
		slog.Error("SessionManager.Load error", "error", err, "threadID", threadID)
		return nil, err
	}
	if session == nil {
		slog.Debug("SessionManager.Load: new session", "threadID", threadID)
		return models.NewSessionState(threadID), nil
	}
	session.EnsureDefaults()
	return session, nil
}

// Exists reports whether a checkpoint exists for the thread id.
func (sm *StoreBasedSessionManager) Exists(ctx context.Context, threadID string) (bool, error) {
	session, err := sm.store.GetSession(threadID)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// Save persists the session after clearing the single-turn scratch slot.
func (sm *StoreBasedSessionManager) Save(ctx context.Context, session *models.SessionState) error {
	session.PendingUserText = ""
	session.UpdatedAt = time.Now()
	if err := sm.store.SaveSession(*session); err != nil {
		slog.Error("SessionManager.Save error", "error", err, "threadID", session.ThreadID)
		return err
	}
	slog.Debug("SessionManager.Save succeeded", "threadID", session.ThreadID)
	return nil
}

// ListThreads returns the ids of all threads with a checkpoint.
func (sm *StoreBasedSessionManager) ListThreads(ctx context.Context) ([]string, error) {
	threads, err := sm.store.ListThreads()
	if err != nil {
		slog.Error("SessionManager.ListThreads error", "error", err)
		return nil, err
	}
	return threads, nil
}

// Reset deletes the checkpoint for a thread id.
func (sm *StoreBasedSessionManager) Reset(ctx context.Context, threadID string) error {
	if err := sm.store.DeleteSession(threadID); err != nil {
		slog.Error("SessionManager.Reset error", "error", err, "threadID", threadID)
		return err
	}
	return nil
}
