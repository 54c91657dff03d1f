// Package server exposes the orchestration service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	cgerrors "github.com/sweetpotato0/chatgraph/errors"
	"github.com/sweetpotato0/chatgraph/pkg/logging"
)

// Orchestrator is the service surface the HTTP layer depends on.
type Orchestrator interface {
	ProcessMessage(ctx context.Context, sessionID, userID, input string) (string, error)
	Ask(ctx context.Context, query string) (string, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// ChatbotRequest is the session chat payload.
type ChatbotRequest struct {
	SessionID  string `json:"session_id"`
	UserID     string `json:"user_id"`
	InputQuery string `json:"input_query"`
}

// ChatbotResponse carries the chatbot answer.
type ChatbotResponse struct {
	Response string `json:"response"`
}

// ChatRequest is the one-shot chat payload.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse carries the one-shot answer.
type ChatResponse struct {
	Response string `json:"response"`
}

type handler struct {
	svc    Orchestrator
	logger *slog.Logger
}

// NewHandler builds the HTTP routes over the orchestration service.
func NewHandler(svc Orchestrator) http.Handler {
	h := &handler{
		svc:    svc,
		logger: logging.WithComponent("server"),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", h.root)
	r.Get("/healthz", h.health)

	r.Route("/chatbot", func(r chi.Router) {
		r.Post("/chat", h.chatbotChat)
		r.Delete("/session/{session_id}", h.clearSession)
	})
	r.Post("/chat/", h.chat)

	return r
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to the chatgraph API!"})
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) chatbotChat(w http.ResponseWriter, r *http.Request) {
	var req ChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		h.logger.Warn("chatbot chat: invalid request body", "error", err)
		return
	}

	response, err := h.svc.ProcessMessage(r.Context(), req.SessionID, req.UserID, req.InputQuery)
	if err != nil {
		h.writeError(w, "Error processing message", err)
		return
	}

	writeJSON(w, http.StatusOK, ChatbotResponse{Response: response})
}

func (h *handler) clearSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	if err := h.svc.ClearSession(r.Context(), sessionID); err != nil {
		h.writeError(w, "Error clearing session", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s cleared", sessionID),
	})
}

func (h *handler) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		h.logger.Warn("chat: invalid request body", "error", err)
		return
	}

	response, err := h.svc.Ask(r.Context(), req.Query)
	if err != nil {
		h.writeError(w, "Error processing query", err)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{Response: response})
}

func (h *handler) writeError(w http.ResponseWriter, prefix string, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, cgerrors.ErrInvalidInput) {
		status = http.StatusBadRequest
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(prefix, "error", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", prefix, err), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

// Server wraps an http.Server with sensible timeouts and graceful shutdown.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a server listening on addr.
func New(addr string, svc Orchestrator) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(svc),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logging.WithComponent("server"),
	}
}

// ListenAndServe starts serving until Shutdown or failure.
func (s *Server) ListenAndServe() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
