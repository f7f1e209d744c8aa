package gateway

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/careboard-ai/careboard/turn"
)

// Frame is the JSON message exchanged over the WebSocket connection.
type Frame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
	Content        string `json:"content,omitempty"`
	Error          string `json:"error,omitempty"`
}

// Frame types.
const (
	FrameMessage = "message"
	FrameReply   = "reply"
	FrameDone    = "done"
	FrameError   = "error"
)

// handleWebSocket upgrades the connection and processes message frames
// until the peer disconnects. Replies stream back as they are produced.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	clientID := uuid.NewString()
	logger := s.logger.With("client_id", clientID)
	logger.Info("websocket client connected", "remote", r.RemoteAddr)

	// gorilla connections allow one concurrent writer.
	var writeMu sync.Mutex
	send := func(frame Frame) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(frame); err != nil {
			logger.Warn("websocket write failed", "error", err)
		}
	}

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if frame.Type != FrameMessage {
			send(Frame{Type: FrameError, Error: "unsupported frame type: " + frame.Type})
			continue
		}
		conversationID := frame.ConversationID
		if conversationID == "" {
			send(Frame{Type: FrameError, Error: "conversation_id required"})
			continue
		}

		err := s.controller.HandleTurn(r.Context(), turn.Request{
			ConversationID: conversationID,
			UserText:       frame.Text,
			Reply: func(text string) {
				send(Frame{Type: FrameReply, ConversationID: conversationID, Content: text})
			},
		})
		if err != nil {
			logger.Error("turn failed", "conversation_id", conversationID, "error", err)
			send(Frame{Type: FrameError, ConversationID: conversationID, Error: "turn failed"})
			continue
		}
		send(Frame{Type: FrameDone, ConversationID: conversationID})
	}
}
