// Package api exposes the Concord collaboration service over a JSON HTTP
// API. Responses use a uniform envelope: {"success": true, ...} on success
// and {"success": false, "error": "..."} on failure.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/concord-ai/concord/internal/discovery"
	"github.com/concord-ai/concord/internal/evolution"
	"github.com/concord-ai/concord/internal/hub"
	"github.com/concord-ai/concord/internal/protocol"
	"github.com/concord-ai/concord/pkg/docstore"
)

// Server is the Concord HTTP API server.
type Server struct {
	store      *docstore.Client
	harmonizer *protocol.Harmonizer
	manager    *evolution.Manager
	hub        *hub.Store
	trails     *discovery.Trails
	addr       string
	server     *http.Server
}

// NewServer creates an API server over the given components.
func NewServer(store *docstore.Client, harmonizer *protocol.Harmonizer, manager *evolution.Manager, hubStore *hub.Store, trails *discovery.Trails, addr string) *Server {
	return &Server{
		store:      store,
		harmonizer: harmonizer,
		manager:    manager,
		hub:        hubStore,
		trails:     trails,
		addr:       addr,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /ai-collaboration/protocols/register", s.handleRegisterProtocol)
	mux.HandleFunc("GET /ai-collaboration/protocols", s.handleListProtocols)
	mux.HandleFunc("GET /ai-collaboration/protocols/primary", s.handleGetPrimary)
	mux.HandleFunc("POST /ai-collaboration/protocols/primary", s.handleSetPrimary)
	mux.HandleFunc("POST /ai-collaboration/protocols/usage", s.handleReportUsage)
	mux.HandleFunc("GET /ai-collaboration/protocols/log", s.handleProtocolLog)

	mux.HandleFunc("GET /ai-collaboration/threads", s.handleListThreads)
	mux.HandleFunc("POST /ai-collaboration/threads/create", s.handleCreateThread)
	mux.HandleFunc("GET /ai-collaboration/threads/{id}", s.handleGetThread)
	mux.HandleFunc("POST /ai-collaboration/threads/{id}/steps", s.handleAddStep)
	mux.HandleFunc("POST /ai-collaboration/threads/{id}/goals/{goalID}/progress", s.handleGoalProgress)

	mux.HandleFunc("POST /ai-collaboration/messages", s.handleCreateMessage)

	mux.HandleFunc("POST /ai-collaboration/contribute", s.handleContribute)
	mux.HandleFunc("POST /ai-collaboration/discussions/start", s.handleStartDiscussion)
	mux.HandleFunc("GET /ai-collaboration/discussions/recent", s.handleRecentDiscussions)
	mux.HandleFunc("POST /ai-collaboration/evolution/record", s.handleRecordEvolution)
	mux.HandleFunc("GET /ai-collaboration/evolution/history", s.handleEvolutionHistory)

	return mux
}

// Start starts the HTTP server in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[API] server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// handleHealth reports service health based on document store connectivity.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "unhealthy",
			"redis":  "disconnected",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"redis":  "connected",
	})
}
