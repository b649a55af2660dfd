package stream

import (
	"context"
	"log"
	"net/http"

	chatmodel "github.com/civibot-ba/backend/internal/model/chat"
	chatservice "github.com/civibot-ba/backend/internal/service/chat"
	"github.com/civibot-ba/backend/pkg/utils"
)

// Handler streams merged message snapshots over Server-Sent Events for
// clients that cannot hold a websocket.
type Handler struct {
	chatSvc *chatservice.Service
}

// New creates the SSE stream handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

type snapshotEvent struct {
	Event    string              `json:"event"`
	Messages []chatmodel.Message `json:"messages"`
}

// HandleStream attaches to a session and pushes a snapshot event for every
// change to the merged message list until the client disconnects.
func (h *Handler) HandleStream(ctx context.Context, w http.ResponseWriter, sessionID string) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return http.ErrNotSupported
	}

	updates, cancel, err := h.chatSvc.Subscribe(sessionID)
	if err != nil {
		return err
	}
	defer cancel()

	utils.SetupSSEHeaders(w)

	log.Printf("[sse] stream opened for session=%s", sessionID)

	go func() {
		if err := h.chatSvc.EnsureGreeting(ctx, sessionID); err != nil {
			log.Printf("[sse] greeting failed for session=%s: %v", sessionID, err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] stream closed for session=%s", sessionID)
			return nil
		case snapshot := <-updates:
			utils.SendSSEChunk(w, flusher, snapshotEvent{
				Event:    "messages",
				Messages: snapshot,
			})
		}
	}
}
