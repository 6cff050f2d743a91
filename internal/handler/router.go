package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/healbuddy/backend/internal/handler/chat"
	"github.com/healbuddy/backend/internal/handler/profile"
	"github.com/healbuddy/backend/internal/handler/reference"
	"github.com/healbuddy/backend/internal/handler/speech"
	"github.com/healbuddy/backend/internal/handler/stream"
	middlewarePkg "github.com/healbuddy/backend/internal/middleware"
	profileModel "github.com/healbuddy/backend/internal/model/profile"
	chatService "github.com/healbuddy/backend/internal/service/chat"
	"github.com/healbuddy/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. speechSvc may be nil.
func NewRouter(chatSvc *chatService.Service, profiles profileModel.Store, speechSvc speech.SpeechService) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)
	r.Use(middlewarePkg.UserID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		chat.New(chatSvc).RegisterRoutes(api)
		stream.New(chatSvc).RegisterRoutes(api)
		speech.New(speechSvc, chatSvc).RegisterRoutes(api)
		profile.New(profiles).RegisterRoutes(api)
		reference.New().RegisterRoutes(api)
	})

	return r
}
