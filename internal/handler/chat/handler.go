package chat

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/healbuddy/backend/internal/analysis/presentation"
	"github.com/healbuddy/backend/internal/middleware"
	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/language"
	chatService "github.com/healbuddy/backend/internal/service/chat"
	"github.com/healbuddy/backend/pkg/utils"
)

const defaultHistoryLimit = 20

// Handler serves the conversation endpoints.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// SessionView is a session snapshot with its rendered transcript.
type SessionView struct {
	Session  chat.Session        `json:"session"`
	Messages []presentation.View `json:"messages"`
}

// RegisterRoutes mounts the chat routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat/sessions", h.handleCreateSession)
	r.Get("/chat/sessions/{sessionID}", h.handleGetSession)
	r.Delete("/chat/sessions/{sessionID}", h.handleCloseSession)
	r.Post("/chat/sessions/{sessionID}/messages", h.handleSubmit)
	r.Put("/chat/sessions/{sessionID}/language", h.handleSetLanguage)
	r.Get("/chat/history", h.handleHistory)
}

func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.chatSvc.CreateSession(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusCreated, viewOf(session))
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	utils.RespondJSON(w, http.StatusOK, viewOf(session))
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.chatSvc.CloseSession(r.Context(), session.ID()); err != nil {
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	reply, err := session.Submit(r.Context(), payload.Text)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"session":  session.Snapshot(),
		"messages": presentation.RenderAll(reply.Messages),
	})
}

func (h *Handler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	session, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var payload struct {
		Language string `json:"language"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang, err := session.SetLanguage(r.Context(), payload.Language)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, struct {
		Language language.Language `json:"language"`
		Fallback bool              `json:"fallback"`
	}{Language: lang, Fallback: !language.Known(payload.Language)})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserIDFrom(r.Context())
	if userID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to view history")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.chatSvc.History(r.Context(), userID, limit)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{"turns": records})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*chatService.Session, bool) {
	session, err := h.chatSvc.SessionFor(r.Context(), chi.URLParam(r, "sessionID"), middleware.UserIDFrom(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	return session, true
}

func viewOf(session *chatService.Session) SessionView {
	return SessionView{
		Session:  session.Snapshot(),
		Messages: presentation.RenderAll(session.Messages()),
	}
}

// respondServiceError maps orchestrator errors onto HTTP statuses. Empty
// input is a silent no-op.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrEmptyMessage):
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, chatService.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, chatService.ErrRequestInFlight):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, chatService.ErrSessionClosed):
		utils.RespondError(w, http.StatusGone, err.Error())
	default:
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
	}
}
