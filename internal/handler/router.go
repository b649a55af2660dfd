package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	bookingHandler "github.com/civibot-ba/backend/internal/handler/booking"
	chatHandler "github.com/civibot-ba/backend/internal/handler/chat"
	streamHandler "github.com/civibot-ba/backend/internal/handler/stream"
	middlewarePkg "github.com/civibot-ba/backend/internal/middleware"
	bookingService "github.com/civibot-ba/backend/internal/service/booking"
	chatService "github.com/civibot-ba/backend/internal/service/chat"
	"github.com/civibot-ba/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(chatSvc *chatService.Service, bookingSvc *bookingService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	chat := chatHandler.New(chatSvc)
	ws := chatHandler.NewWebSocketHandler(chatSvc)
	booking := bookingHandler.New(bookingSvc, chatSvc)
	stream := streamHandler.New(chatSvc)

	r.Route("/api", func(api chi.Router) {
		chat.RegisterRoutes(api)
		booking.RegisterRoutes(api)
		ws.RegisterWebSocketRoutes(api)

		api.Get("/stream/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
			sessionID := chi.URLParam(r, "sessionID")
			if err := stream.HandleStream(r.Context(), w, sessionID); err != nil {
				log.Printf("[stream] error handling request: %v", err)
				utils.RespondError(w, http.StatusNotFound, err.Error())
			}
		})
	})

	return r
}
