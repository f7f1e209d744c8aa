// Package gateway exposes the turn controller over HTTP and WebSocket.
// Every ingress path uses the same request shape: conversation id, user
// text, and a reply sink.
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/careboard-ai/careboard/slogger"
	"github.com/careboard-ai/careboard/turn"
)

// Server handles HTTP and WebSocket ingress for the orchestrator.
type Server struct {
	controller *turn.Controller
	logger     slogger.Logger
	upgrader   websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux
	muxOnce    sync.Once
}

// NewServer creates a gateway Server bound to the given controller.
func NewServer(controller *turn.Controller, addr string, logger slogger.Logger) *Server {
	if logger == nil {
		logger = slogger.DefaultLogger
	}
	s := &Server{
		controller: controller,
		logger:     logger,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.BuildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// BuildMux creates and caches the HTTP mux with all routes registered.
func (s *Server) BuildMux() *http.ServeMux {
	s.muxOnce.Do(func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/health", s.handleHealth)
		mux.HandleFunc("/api/messages", s.handleMessages)
		mux.HandleFunc("/ws", s.handleWebSocket)
		s.mux = mux
	})
	return s.mux
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("gateway listening", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type messageRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type messageResponse struct {
	Replies []string `json:"replies"`
	Error   string   `json:"error,omitempty"`
}

// handleMessages runs one turn synchronously and returns every reply the
// turn produced.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConversationID == "" {
		http.Error(w, "conversation_id required", http.StatusBadRequest)
		return
	}

	var (
		mu      sync.Mutex
		replies []string
	)
	err := s.controller.HandleTurn(r.Context(), turn.Request{
		ConversationID: req.ConversationID,
		UserText:       req.Text,
		Reply: func(text string) {
			mu.Lock()
			defer mu.Unlock()
			replies = append(replies, text)
		},
	})

	response := messageResponse{Replies: replies}
	status := http.StatusOK
	if err != nil {
		s.logger.Error("turn failed", "conversation_id", req.ConversationID, "error", err)
		response.Error = "turn failed"
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(response)
}
