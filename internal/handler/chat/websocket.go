package chat

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	chatmodel "github.com/civibot-ba/backend/internal/model/chat"
	chatservice "github.com/civibot-ba/backend/internal/service/chat"
	"github.com/civibot-ba/backend/pkg/utils"
)

// WebSocketHandler streams merged message snapshots to the UI and routes
// inbound text through the session coordinator.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the stream handler.
func NewWebSocketHandler(chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes mounts the websocket endpoint.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type outboundFrame struct {
	Type      string              `json:"type"`
	Messages  []chatmodel.Message `json:"messages,omitempty"`
	Error     string              `json:"error,omitempty"`
	Timestamp int64               `json:"timestamp"`
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	updates, cancel, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[ws] upgrade failed for session=%s: %v", sessionID, err)
		return
	}
	defer conn.Close()

	log.Printf("[ws] stream opened for session=%s", sessionID)

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	// The greeting may take the assistant's full cold-start budget; do not
	// hold up the snapshot pump for it.
	go func() {
		if err := h.chatSvc.EnsureGreeting(ctx, sessionID); err != nil {
			log.Printf("[ws] greeting failed for session=%s: %v", sessionID, err)
		}
	}()

	go h.writeSnapshots(ctx, conn, sessionID, updates)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Printf("[ws] stream closed for session=%s: %v", sessionID, err)
			return
		}
		if frame.Type != "message" || frame.Content == "" {
			continue
		}

		// Each send runs independently so quick actions are not serialized
		// behind an in-flight assistant call.
		go func(content string) {
			if err := h.chatSvc.Send(ctx, sessionID, content); err != nil {
				log.Printf("[ws] send failed for session=%s: %v", sessionID, err)
			}
		}(frame.Content)
	}
}

func (h *WebSocketHandler) writeSnapshots(ctx context.Context, conn *websocket.Conn, sessionID string, updates <-chan []chatmodel.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-updates:
			frame := outboundFrame{
				Type:      "messages",
				Messages:  snapshot,
				Timestamp: time.Now().UnixMilli(),
			}
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("[ws] write failed for session=%s: %v", sessionID, err)
				return
			}
		}
	}
}
