package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formdesk/formdesk/internal/flow"
	"github.com/formdesk/formdesk/internal/models"
	"github.com/formdesk/formdesk/internal/store"
)

func newTestServer() *Server {
	sessions := flow.NewStoreBasedSessionManager(store.NewInMemoryStore())
	orchestrator := flow.NewOrchestrator(sessions, nil, nil, nil)
	return NewServer(orchestrator, sessions, "")
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func startChat(t *testing.T, handler http.Handler) models.ChatTurnResponse {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/start", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, want %d", rec.Code, http.StatusCreated)
	}
	resp := decodeResponse(t, rec)
	raw, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to re-marshal result: %v", err)
	}
	var turn models.ChatTurnResponse
	if err := json.Unmarshal(raw, &turn); err != nil {
		t.Fatalf("failed to decode turn response: %v", err)
	}
	return turn
}

func respond(t *testing.T, handler http.Handler, req models.ChatRespondRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/respond", bytes.NewReader(body)))
	return rec
}

func TestStartChatReturnsGreeting(t *testing.T) {
	handler := newTestServer().Handler()
	turn := startChat(t, handler)

	if turn.ThreadID == "" {
		t.Error("empty thread id")
	}
	if len(turn.Messages) != 1 {
		t.Fatalf("got %d messages, want 1", len(turn.Messages))
	}
	if turn.Messages[0].Role != models.RoleAssistant {
		t.Errorf("message role = %s, want assistant", turn.Messages[0].Role)
	}
	if turn.Phase != string(models.PhaseSelectingForm) {
		t.Errorf("phase = %s, want %s", turn.Phase, models.PhaseSelectingForm)
	}
}

func TestRespondUnknownThread(t *testing.T) {
	handler := newTestServer().Handler()
	rec := respond(t, handler, models.ChatRespondRequest{ThreadID: "no-such-thread", Message: "hello"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	resp := decodeResponse(t, rec)
	if resp.Message != models.ErrUnknownThread.Error() {
		t.Errorf("error message = %q, want %q", resp.Message, models.ErrUnknownThread.Error())
	}
}

func TestRespondValidation(t *testing.T) {
	handler := newTestServer().Handler()
	rec := respond(t, handler, models.ChatRespondRequest{ThreadID: "t1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestChatAndFormSnapshot(t *testing.T) {
	handler := newTestServer().Handler()
	turn := startChat(t, handler)

	rec := respond(t, handler, models.ChatRespondRequest{ThreadID: turn.ThreadID, Message: "service request"})
	if rec.Code != http.StatusOK {
		t.Fatalf("respond status = %d, want %d", rec.Code, http.StatusOK)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/"+turn.ThreadID+"/form", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("form status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rec)
	raw, _ := json.Marshal(resp.Result)
	var snapshot models.FormSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snapshot.FormType != "service_request" {
		t.Errorf("form type = %q, want service_request", snapshot.FormType)
	}
	if snapshot.Schema == nil || len(snapshot.Schema.Fields) != 6 {
		t.Errorf("schema = %+v, want 6 fields", snapshot.Schema)
	}
	if snapshot.Complete {
		t.Error("form reported complete before any value was collected")
	}
}

func TestListThreads(t *testing.T) {
	handler := newTestServer().Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/threads", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("threads status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rec)
	raw, _ := json.Marshal(resp.Result)
	var list models.ThreadList
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("failed to decode thread list: %v", err)
	}
	if len(list.Threads) != 0 {
		t.Errorf("got %d threads before any chat, want 0", len(list.Threads))
	}

	turn := startChat(t, handler)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/threads", nil))
	resp = decodeResponse(t, rec)
	raw, _ = json.Marshal(resp.Result)
	if err := json.Unmarshal(raw, &list); err != nil {
		t.Fatalf("failed to decode thread list: %v", err)
	}
	if len(list.Threads) != 1 || list.Threads[0] != turn.ThreadID {
		t.Errorf("threads = %v, want [%s]", list.Threads, turn.ThreadID)
	}
}

func TestFormSnapshotUnknownThread(t *testing.T) {
	handler := newTestServer().Handler()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/nope/form", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestResetSession(t *testing.T) {
	handler := newTestServer().Handler()
	turn := startChat(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/"+turn.ThreadID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want %d", rec.Code, http.StatusOK)
	}

	// The thread is gone; responding to it is rejected.
	rec = respond(t, handler, models.ChatRespondRequest{ThreadID: turn.ThreadID, Message: "hello"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("respond after reset status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
