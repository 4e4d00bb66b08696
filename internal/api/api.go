// Package api provides HTTP handlers and the main API server logic for
// FormDesk.
//
// It exposes RESTful endpoints for starting conversational form sessions,
// exchanging turns, and reading the collected form state. The API integrates
// with the flow, catalog, store, and genai modules.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/formdesk/formdesk/internal/catalog"
	"github.com/formdesk/formdesk/internal/flow"
	"github.com/formdesk/formdesk/internal/genai"
	"github.com/formdesk/formdesk/internal/store"
)

// DefaultAddr is the API server listen address when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string
	CatalogPath   string
	KnowledgePath string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the server listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithCatalogPath sets a YAML file that replaces the built-in forms catalog.
func WithCatalogPath(path string) Option {
	return func(o *Opts) { o.CatalogPath = path }
}

// WithKnowledgePath sets a YAML file that replaces the built-in field
// knowledge base.
func WithKnowledgePath(path string) Option {
	return func(o *Opts) { o.KnowledgePath = path }
}

// Server hosts the FormDesk HTTP API. Turns for the same thread are
// serialized through a per-thread lock; concurrent turns for different
// threads proceed independently.
type Server struct {
	orchestrator *flow.Orchestrator
	sessions     flow.SessionManager
	addr         string

	mu          sync.Mutex
	threadLocks map[string]*sync.Mutex
}

// NewServer creates an API server around a turn orchestrator.
func NewServer(orchestrator *flow.Orchestrator, sessions flow.SessionManager, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		orchestrator: orchestrator,
		sessions:     sessions,
		addr:         addr,
		threadLocks:  make(map[string]*sync.Mutex),
	}
}

// Handler returns the routed HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/start", s.startChatHandler)
	mux.HandleFunc("POST /api/chat/respond", s.respondHandler)
	mux.HandleFunc("GET /api/chat/threads", s.listThreadsHandler)
	mux.HandleFunc("GET /api/chat/{id}/form", s.formHandler)
	mux.HandleFunc("DELETE /api/chat/{id}", s.resetHandler)
	mux.HandleFunc("GET /health", s.healthHandler)
	return mux
}

// threadLock returns the mutex serializing turns for one thread.
func (s *Server) threadLock(threadID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.threadLocks[threadID]
	if !ok {
		lock = &sync.Mutex{}
		s.threadLocks[threadID] = lock
	}
	return lock
}

// releaseThreadLock drops the lock entry for a reset thread.
func (s *Server) releaseThreadLock(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threadLocks, threadID)
}

// Run wires the configured modules together and serves the API until the
// listener fails. The store backend is chosen from the store options, and the
// GenAI client is optional: without an API key every generative step falls
// back to its deterministic path.
func Run(storeOpts []store.Option, genaiOpts []genai.Option, apiOpts []Option) error {
	var cfg Opts
	for _, opt := range apiOpts {
		opt(&cfg)
	}

	st, err := store.New(storeOpts...)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Warn("api.Run: failed to close store", "error", closeErr)
		}
	}()

	var genaiClient genai.ClientInterface
	if len(genaiOpts) > 0 {
		client, err := genai.NewClient(genaiOpts...)
		if err != nil {
			slog.Warn("api.Run: GenAI client unavailable, using deterministic fallbacks", "error", err)
		} else {
			genaiClient = client
		}
	} else {
		slog.Info("api.Run: no GenAI options configured, using deterministic fallbacks")
	}

	cat := catalog.Default()
	if cfg.CatalogPath != "" {
		cat, err = catalog.Load(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("failed to load forms catalog: %w", err)
		}
	}
	knowledge := catalog.DefaultKnowledge()
	if cfg.KnowledgePath != "" {
		knowledge, err = catalog.LoadKnowledge(cfg.KnowledgePath)
		if err != nil {
			return fmt.Errorf("failed to load field knowledge base: %w", err)
		}
	}

	sessions := flow.NewStoreBasedSessionManager(st)
	orchestrator := flow.NewOrchestrator(sessions, genaiClient, knowledge, cat)
	server := NewServer(orchestrator, sessions, cfg.Addr)

	httpServer := &http.Server{
		Addr:         server.addr,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	slog.Info("api.Run: FormDesk API listening", "addr", server.addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}
