// Package server exposes the HTTP API for chat turns and session
// browsing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/axiomhub/axiom-gateway/internal/chat"
	"github.com/axiomhub/axiom-gateway/internal/config"
	"github.com/axiomhub/axiom-gateway/internal/metrics"
	"github.com/axiomhub/axiom-gateway/internal/store"
)

const (
	version = "1.0.0"
	// userHeader identifies the caller; authentication itself lives in
	// front of this service.
	userHeader = "X-User-ID"

	sidebarLimit = 25
)

// Server represents the HTTP server
type Server struct {
	cfg        *config.Config
	controller *chat.Controller
	httpServer *http.Server
	startTime  time.Time
	logger     *slog.Logger
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// SessionsResponse represents the sessions list
type SessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionInfo represents session info
type SessionInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// MessagesResponse represents a session transcript
type MessagesResponse struct {
	Messages []MessageInfo `json:"messages"`
}

// MessageInfo represents one transcript entry. Assistant rows with no
// content yet are reported as pending.
type MessageInfo struct {
	ID          string           `json:"id"`
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	Status      string           `json:"status"`
	Attachments []AttachmentInfo `json:"attachments"`
}

// AttachmentInfo describes a stored image without its bytes
type AttachmentInfo struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	ByteSize int `json:"byte_size"`
}

type sendRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New creates a new HTTP server
func New(cfg *config.Config, controller *chat.Controller, logger *slog.Logger) *Server {
	s := &Server{
		cfg:        cfg,
		controller: controller,
		logger:     logger,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/v1/chat/send", s.sendHandler)
	mux.HandleFunc("/api/v1/sessions", s.sessionsHandler)
	mux.HandleFunc("/api/v1/sessions/", s.sessionMessagesHandler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      s.instrument(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		metrics.RequestDuration(r.Method, r.URL.Path, time.Since(start))
	})
}

// healthHandler handles health check requests
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   version,
		Uptime:    time.Since(s.startTime).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// sendHandler handles one chat turn, as JSON or as multipart with an
// optional image file field.
func (s *Server) sendHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	userID := callerID(r)
	req := chat.TurnRequest{UserID: userID}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
			return
		}
		req.Text = r.FormValue("message")
		req.SessionID = r.FormValue("session_id")
		if file, _, err := r.FormFile("image"); err == nil {
			defer file.Close()
			data, err := io.ReadAll(file)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read image"})
				return
			}
			req.Image = data
		}
	} else {
		var body sendRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON"})
			return
		}
		req.Text = body.Message
		req.SessionID = body.SessionID
	}

	result, err := s.controller.SendTurn(r.Context(), req)
	if err != nil {
		s.writeTurnError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// sessionsHandler handles the sidebar sessions list
func (s *Server) sessionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessions, err := s.controller.Sessions(r.Context(), callerID(r), sidebarLimit)
	if err != nil {
		s.logger.Error("failed to list sessions", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to retrieve sessions"})
		return
	}

	resp := SessionsResponse{Sessions: []SessionInfo{}}
	for _, session := range sessions {
		resp.Sessions = append(resp.Sessions, SessionInfo{
			ID:        session.ID,
			Title:     session.Title,
			CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339),
			UpdatedAt: session.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// sessionMessagesHandler serves GET /api/v1/sessions/{id}/messages
func (s *Server) sessionMessagesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	sessionID, tail, _ := strings.Cut(rest, "/")
	if sessionID == "" || tail != "messages" {
		http.NotFound(w, r)
		return
	}

	messages, err := s.controller.SessionMessages(r.Context(), callerID(r), sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
			return
		}
		s.logger.Error("failed to list messages", "session", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to retrieve messages"})
		return
	}

	resp := MessagesResponse{Messages: []MessageInfo{}}
	for _, message := range messages {
		status := "complete"
		if message.Role == "assistant" && message.Content == "" {
			status = "pending"
		}
		info := MessageInfo{
			ID:          message.ID,
			Role:        message.Role,
			Content:     message.Content,
			Status:      status,
			Attachments: []AttachmentInfo{},
		}
		attachments, err := s.controller.Attachments(r.Context(), message.ID)
		if err == nil {
			for _, att := range attachments {
				info.Attachments = append(info.Attachments, AttachmentInfo{
					Width:    att.Width,
					Height:   att.Height,
					ByteSize: att.ByteSize,
				})
			}
		}
		resp.Messages = append(resp.Messages, info)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "session not found"})
	case chat.IsUserError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error("turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func callerID(r *http.Request) string {
	if user := r.Header.Get(userHeader); user != "" {
		return user
	}
	return "anonymous"
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
