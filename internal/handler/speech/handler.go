package speech

import (
	"context"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/healbuddy/backend/internal/middleware"
	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/speech"
	chatservice "github.com/healbuddy/backend/internal/service/chat"
	"github.com/healbuddy/backend/pkg/utils"
)

const maxUploadBytes = 25 << 20

// SpeechService abstracts transcription and synthesis so tests can swap it.
type SpeechService interface {
	Available() bool
	TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error)
	SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, languageID string) (*speech.ASRResponse, error)
	SynthesizeToBuffer(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error)
}

// Handler serves voice input and read-aloud endpoints.
type Handler struct {
	speechSvc SpeechService
	chatSvc   *chatservice.Service
}

// New creates the speech handler. speechSvc may be nil.
func New(speechSvc SpeechService, chatSvc *chatservice.Service) *Handler {
	return &Handler{speechSvc: speechSvc, chatSvc: chatSvc}
}

// RegisterRoutes mounts the speech endpoints and the voice websocket.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/speech/transcribe", h.handleTranscribe)
	r.Post("/speech/transcribe/{sessionID}", h.handleTranscribe)
	r.Post("/speech/synthesize", h.handleSynthesize)
	r.Post("/speech/synthesize/{sessionID}", h.handleSynthesize)
	r.Get("/speech/health", h.handleHealth)

	if h.chatSvc != nil {
		ws := NewWebSocketHandler(h.speechSvc, h.chatSvc)
		ws.RegisterWebSocketRoutes(r)
	}
}

func (h *Handler) available() bool {
	return h.speechSvc != nil && h.speechSvc.Available()
}

func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	if !h.available() {
		utils.RespondError(w, http.StatusNotImplemented, "voice input is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID, lang, ok := h.sessionDefaults(w, r, r.FormValue("language"))
	if !ok {
		return
	}

	resp, err := h.speechSvc.TranscribeAudio(r.Context(), &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: file,
		Format:    inferAudioFormat(header.Filename),
		Language:  lang,
	})
	if err != nil {
		log.Printf("[speech] ASR error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	if !h.available() {
		utils.RespondError(w, http.StatusNotImplemented, "read aloud is not available")
		return
	}

	var req speech.TTSRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	sessionID, lang, ok := h.sessionDefaults(w, r, req.Language)
	if !ok {
		return
	}
	if sessionID != "" {
		req.SessionID = sessionID
	}
	req.Language = lang

	resp, err := h.speechSvc.SynthesizeSpeech(r.Context(), &req)
	if err != nil {
		log.Printf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	format := resp.Format
	if format == "" {
		format = "mpeg"
	}
	w.Header().Set("Content-Type", "audio/"+format)
	w.Header().Set("Content-Length", strconv.Itoa(len(resp.AudioData)))
	if resp.Locale != "" {
		w.Header().Set("Content-Language", resp.Locale)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.AudioData); err != nil {
		log.Printf("[speech] failed to write audio response: %v", err)
	}
}

// sessionDefaults resolves the optional session in the path. A bound session
// supplies the language when the request does not name one.
func (h *Handler) sessionDefaults(w http.ResponseWriter, r *http.Request, requested string) (string, string, bool) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		return "", language.Lookup(requested).ID, true
	}
	if h.chatSvc == nil {
		utils.RespondError(w, http.StatusNotFound, chatservice.ErrSessionNotFound.Error())
		return "", "", false
	}

	session, err := h.chatSvc.SessionFor(r.Context(), sessionID, middleware.UserIDFrom(r.Context()))
	if err != nil {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return "", "", false
	}
	if strings.TrimSpace(requested) == "" {
		return sessionID, session.Language(), true
	}
	return sessionID, language.Lookup(requested).ID, true
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "unavailable"
	if h.available() {
		status = "healthy"
	}
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"service": "speech",
		"asr":     h.available(),
		"tts":     h.available(),
	})
}

func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".wav", ".webm", ".m4a", ".ogg", ".mp4":
		return strings.TrimPrefix(ext, ".")
	default:
		return "webm"
	}
}
