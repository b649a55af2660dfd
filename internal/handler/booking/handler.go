package booking

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	records "github.com/civibot-ba/backend/internal/model/records"
	bookingservice "github.com/civibot-ba/backend/internal/service/booking"
	chatservice "github.com/civibot-ba/backend/internal/service/chat"
	"github.com/civibot-ba/backend/pkg/utils"
)

// How long a detached booking run may keep talking to the records backend.
const workflowTimeout = time.Minute

// Handler accepts appointment form submissions and hands them to the
// booking workflow.
type Handler struct {
	bookingSvc *bookingservice.Service
	chatSvc    *chatservice.Service
}

// New creates the booking handler.
func New(bookingSvc *bookingservice.Service, chatSvc *chatservice.Service) *Handler {
	return &Handler{bookingSvc: bookingSvc, chatSvc: chatSvc}
}

// RegisterRoutes mounts the booking endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sessions/{sessionID}/appointments", h.handleCreateAppointment)
}

func (h *Handler) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, chatservice.ErrSessionNotFound) {
			status = http.StatusNotFound
		}
		utils.RespondError(w, status, err.Error())
		return
	}

	var payload records.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := payload.Validate(time.Now()); err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The workflow reports through the chat stream, so the submission can
	// return immediately; it is detached from the request context.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), workflowTimeout)
		defer cancel()
		h.bookingSvc.Book(ctx, sessionID, payload)
	}()

	utils.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "processing"})
}
