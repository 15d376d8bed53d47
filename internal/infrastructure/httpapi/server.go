// Package httpapi exposes the plan engine over a JSON REST API. The acting
// participant is taken from the X-Participant-ID header.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kevinbrodzinski/comesocial-sub003/pkg/application"
	"github.com/kevinbrodzinski/comesocial-sub003/pkg/domain/outing"
)

// ParticipantHeader carries the acting participant's id.
const ParticipantHeader = "X-Participant-ID"

// Server is the REST front of an engine.
type Server struct {
	engine *application.Engine
	logger *slog.Logger
	mux    *http.ServeMux
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHandler mounts an extra handler, such as the websocket hub or the SSE
// stream, on pattern.
func WithHandler(pattern string, h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.mux.Handle(pattern, h)
		}
	}
}

// NewServer creates a server over engine.
func NewServer(engine *application.Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
		mux:    http.NewServeMux(),
	}
	s.routes()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.mux.HandleFunc("POST /drafts", s.handleCreateDraft)
	s.mux.HandleFunc("GET /drafts/{id}", s.handleGetDraft)
	s.mux.HandleFunc("POST /drafts/{id}/stops", s.handleAddStop)
	s.mux.HandleFunc("PATCH /drafts/{id}/stops/{stopId}", s.handleUpdateStop)
	s.mux.HandleFunc("DELETE /drafts/{id}/stops/{stopId}", s.handleDeleteStop)
	s.mux.HandleFunc("POST /drafts/{id}/stops/{stopId}/reorder", s.handleReorderStop)
	s.mux.HandleFunc("POST /drafts/{id}/lock/toggle", s.handleToggleLock)
	s.mux.HandleFunc("POST /drafts/{id}/lock", s.handleLock)
	s.mux.HandleFunc("POST /drafts/{id}/unlock", s.handleUnlock)
	s.mux.HandleFunc("POST /drafts/{id}/suggestions", s.handleSuggestion)
	s.mux.HandleFunc("PUT /drafts/{id}/policy", s.handleSetPolicy)
	s.mux.HandleFunc("POST /drafts/{id}/participants", s.handleInvite)
	s.mux.HandleFunc("DELETE /drafts/{id}/participants/{pid}", s.handleRemoveParticipant)
	s.mux.HandleFunc("POST /drafts/{id}/convert", s.handleConvert)
	s.mux.HandleFunc("GET /drafts/{id}/plan", s.handlePlanForDraft)
	s.mux.HandleFunc("POST /drafts/{id}/presence/heartbeat", s.handleHeartbeat)
	s.mux.HandleFunc("PUT /drafts/{id}/presence/editing", s.handleSetEditing)
	s.mux.HandleFunc("DELETE /drafts/{id}/presence/editing", s.handleClearEditing)

	s.mux.HandleFunc("GET /plans/{id}", s.handleGetPlan)
	s.mux.HandleFunc("POST /plans/{id}/start", s.handleStartPlan)
	s.mux.HandleFunc("POST /plans/{id}/check-in", s.handleCheckIn)
	s.mux.HandleFunc("POST /plans/{id}/next", s.handleMoveToNext)
	s.mux.HandleFunc("POST /plans/{id}/ping", s.handlePing)
	s.mux.HandleFunc("POST /plans/{id}/end", s.handleEndPlan)
	s.mux.HandleFunc("PUT /plans/{id}/friends/{participantId}", s.handleFriendStatus)
	s.mux.HandleFunc("GET /plans/{id}/attendance", s.handlePlanAttendance)
	s.mux.HandleFunc("GET /plans/{id}/stops/{stopId}/attendance", s.handleStopAttendance)
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// actor returns the acting participant or writes a 400.
func (s *Server) actor(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(ParticipantHeader)
	if id == "" {
		writeError(w, s.logger, fmt.Errorf("%w: %s header is required", outing.ErrInvalidInput, ParticipantHeader))
		return "", false
	}
	return id, true
}

// respond writes v, or the mapped error.
func (s *Server) respond(w http.ResponseWriter, status int, v any, err error) {
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, status, v)
}
