package stream

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/healbuddy/backend/internal/analysis/presentation"
	"github.com/healbuddy/backend/internal/middleware"
	chatService "github.com/healbuddy/backend/internal/service/chat"
	"github.com/healbuddy/backend/pkg/utils"
)

// DefaultHeartbeat is how often an idle stream sends a keep-alive comment.
const DefaultHeartbeat = 15 * time.Second

// Handler pushes session transcript updates to clients via Server-Sent Events.
type Handler struct {
	chatSvc   *chatService.Service
	heartbeat time.Duration
}

// New creates a new stream handler
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc, heartbeat: DefaultHeartbeat}
}

// StreamEvent is the payload of every SSE event except the snapshot.
type StreamEvent struct {
	SessionID string             `json:"sessionId"`
	Message   *presentation.View `json:"message,omitempty"`
	Reason    string             `json:"reason,omitempty"`
}

// RegisterRoutes mounts the stream endpoint on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/chat/sessions/{sessionID}/stream", h.handleStream)
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.SessionFor(ctx, sessionID, middleware.UserIDFrom(ctx))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}

	// Subscribe before the snapshot so nothing appended in between is lost.
	updates, cancel := session.Subscribe()
	defer cancel()

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	snapshot := map[string]any{
		"session":  session.Snapshot(),
		"messages": presentation.RenderAll(session.Messages()),
	}
	if err := utils.SendSSEEvent(w, flusher, "snapshot", snapshot); err != nil {
		return
	}
	log.Printf("[sse] opened stream for session=%s", sessionID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sse] client left stream for session=%s", sessionID)
			return
		case msg, ok := <-updates:
			if !ok {
				_ = utils.SendSSEEvent(w, flusher, "closed", StreamEvent{SessionID: sessionID, Reason: "session closed"})
				log.Printf("[sse] session=%s closed, ending stream", sessionID)
				return
			}
			view := presentation.Render(msg)
			if err := utils.SendSSEEvent(w, flusher, "message", StreamEvent{SessionID: sessionID, Message: &view}); err != nil {
				log.Printf("[sse] write failed for session=%s: %v", sessionID, err)
				return
			}
		case t := <-ticker.C:
			if err := utils.SendSSEComment(w, flusher, "heartbeat "+t.UTC().Format(time.RFC3339)); err != nil {
				return
			}
		}
	}
}
