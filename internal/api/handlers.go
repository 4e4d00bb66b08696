// Package api provides HTTP handlers for FormDesk endpoints.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/formdesk/formdesk/internal/models"
)

// startChatHandler handles POST /api/chat/start. It allocates a fresh thread
// id and runs the opening turn, which produces the greeting.
func (s *Server) startChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	threadID := uuid.NewString()
	slog.Debug("Server.startChatHandler: starting chat session", "thread_id", threadID)

	lock := s.threadLock(threadID)
	lock.Lock()
	replies, session, err := s.orchestrator.HandleTurn(r.Context(), threadID, nil)
	lock.Unlock()
	if err != nil {
		slog.Error("Server.startChatHandler: opening turn failed", "error", err, "thread_id", threadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to start chat session"))
		return
	}

	slog.Info("Server.startChatHandler: chat session started", "thread_id", threadID)
	writeJSONResponse(w, http.StatusCreated, models.Success(models.ChatTurnResponse{
		ThreadID: threadID,
		Messages: replies,
		Phase:    string(s.orchestrator.Phase(session)),
	}))
}

// respondHandler handles POST /api/chat/respond: one conversation turn for an
// existing thread.
func (s *Server) respondHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	var req models.ChatRespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.respondHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if err := req.Validate(); err != nil {
		slog.Warn("Server.respondHandler: validation failed", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	exists, err := s.sessions.Exists(r.Context(), req.ThreadID)
	if err != nil {
		slog.Error("Server.respondHandler: session lookup failed", "error", err, "thread_id", req.ThreadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to look up session"))
		return
	}
	if !exists {
		slog.Warn("Server.respondHandler: unknown thread", "thread_id", req.ThreadID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrUnknownThread.Error()))
		return
	}

	lock := s.threadLock(req.ThreadID)
	lock.Lock()
	replies, session, err := s.orchestrator.HandleTurn(r.Context(), req.ThreadID, req.Turn())
	lock.Unlock()
	if err != nil {
		slog.Error("Server.respondHandler: turn failed", "error", err, "thread_id", req.ThreadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to process turn"))
		return
	}

	phase := s.orchestrator.Phase(session)
	writeJSONResponse(w, http.StatusOK, models.Success(models.ChatTurnResponse{
		ThreadID: req.ThreadID,
		Messages: replies,
		Phase:    string(phase),
		Complete: phase == models.PhaseDone,
	}))
}

// listThreadsHandler handles GET /api/chat/threads: the ids of all sessions
// with a stored checkpoint.
func (s *Server) listThreadsHandler(w http.ResponseWriter, r *http.Request) {
	threads, err := s.sessions.ListThreads(r.Context())
	if err != nil {
		slog.Error("Server.listThreadsHandler: listing failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list sessions"))
		return
	}
	if threads == nil {
		threads = []string{}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(models.ThreadList{Threads: threads}))
}

// formHandler handles GET /api/chat/{id}/form: the schema, collected values,
// and theme for the thread as they stand.
func (s *Server) formHandler(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	exists, err := s.sessions.Exists(r.Context(), threadID)
	if err != nil {
		slog.Error("Server.formHandler: session lookup failed", "error", err, "thread_id", threadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to look up session"))
		return
	}
	if !exists {
		writeJSONResponse(w, http.StatusNotFound, models.Error(models.ErrUnknownThread.Error()))
		return
	}

	session, err := s.sessions.Load(r.Context(), threadID)
	if err != nil {
		slog.Error("Server.formHandler: session load failed", "error", err, "thread_id", threadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load session"))
		return
	}

	writeJSONResponse(w, http.StatusOK, models.Success(models.FormSnapshot{
		ThreadID: threadID,
		FormType: session.FormType,
		Schema:   session.Schema,
		Values:   session.FormValues,
		Theme:    session.Theme,
		Complete: s.orchestrator.Phase(session) == models.PhaseDone,
	}))
}

// resetHandler handles DELETE /api/chat/{id}: the session checkpoint is
// removed and the thread id can be reused from scratch.
func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("id")

	lock := s.threadLock(threadID)
	lock.Lock()
	err := s.sessions.Reset(r.Context(), threadID)
	lock.Unlock()
	if err != nil {
		slog.Error("Server.resetHandler: reset failed", "error", err, "thread_id", threadID)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset session"))
		return
	}
	s.releaseThreadLock(threadID)

	slog.Info("Server.resetHandler: session reset", "thread_id", threadID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Session reset", nil))
}

// healthHandler handles GET /health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"service": "formdesk"}))
}
