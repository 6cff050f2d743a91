package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/healbuddy/backend/internal/analysis/presentation"
	"github.com/healbuddy/backend/internal/middleware"
	"github.com/healbuddy/backend/internal/model/chat"
	"github.com/healbuddy/backend/internal/model/speech"
	chatservice "github.com/healbuddy/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	maxAudioSize = 10 << 20
)

// WebSocketHandler runs a voice-capable conversation over a websocket.
type WebSocketHandler struct {
	speechSvc SpeechService
	chatSvc   *chatservice.Service
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler creates the websocket handler. speechSvc may be nil,
// in which case the socket carries text only.
func NewWebSocketHandler(speechSvc SpeechService, chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		speechSvc: speechSvc,
		chatSvc:   chatSvc,
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
	r.Get("/chat/sessions/{sessionID}/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AudioMessage carries a recorded clip. AudioData is base64 on the wire.
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Format    string `json:"format"`
	IsFinal   bool   `json:"isFinal"`
}

// TextMessage carries typed input.
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage changes the session language or read-aloud settings.
type ConfigMessage struct {
	Language   string `json:"language"`
	Voice      string `json:"voice"`
	TTSEnabled *bool  `json:"ttsEnabled,omitempty"`
}

type outgoingMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// connection serialises writes; gorilla connections allow one writer.
type connection struct {
	conn      *websocket.Conn
	sessionID string

	writeMu sync.Mutex

	mu          sync.Mutex
	voice       string
	ttsEnabled  bool
	audioFormat string
	buffer      bytes.Buffer
}

func (c *connection) send(kind string, data any) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	msg := outgoingMessage{Type: kind, SessionID: c.sessionID, Data: data, Timestamp: time.Now().Unix()}
	if err := c.conn.WriteJSON(msg); err != nil {
		log.Printf("[websocket] write %s failed: %v", kind, err)
	}
}

func (c *connection) sendError(message string) {
	c.send("error", map[string]string{"message": message})
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
}

func (c *connection) speaking() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttsEnabled, c.voice
}

func (h *WebSocketHandler) voiceAvailable() bool {
	return h.speechSvc != nil && h.speechSvc.Available()
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	session, err := h.chatSvc.SessionFor(r.Context(), sessionID, middleware.UserIDFrom(r.Context()))
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer ws.Close()
	ws.SetReadLimit(maxAudioSize * 2)

	log.Printf("[websocket] new connection for session: %s", sessionID)

	conn := &connection{conn: ws, sessionID: sessionID, ttsEnabled: h.voiceAvailable()}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := session.Subscribe()
	defer unsubscribe()

	_ = ws.SetReadDeadline(time.Now().Add(readTimeout))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readTimeout))
	})

	conn.send("connected", map[string]any{
		"language": session.Language(),
		"voice":    h.voiceAvailable(),
		"session":  session.Snapshot(),
	})

	go h.pingLoop(ctx, conn)
	go h.forward(ctx, cancel, conn, session, updates)

	var submits sync.WaitGroup
	defer submits.Wait()

	for {
		var msg inboundMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			cancel()
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readTimeout))

		switch msg.Type {
		case "text":
			var text TextMessage
			if err := json.Unmarshal(msg.Data, &text); err != nil {
				conn.sendError("invalid text payload")
				continue
			}
			h.submit(ctx, &submits, conn, session, text.Text)
		case "audio":
			h.handleAudio(ctx, &submits, conn, session, msg.Data)
		case "config":
			h.handleConfig(ctx, conn, session, msg.Data)
		default:
			conn.sendError("unsupported message type: " + msg.Type)
		}
	}
}

// forward relays appended session messages to the client and reads
// assistant messages aloud when enabled.
func (h *WebSocketHandler) forward(ctx context.Context, cancel context.CancelFunc, conn *connection, session *chatservice.Session, updates <-chan chat.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-updates:
			if !ok {
				conn.send("closed", map[string]string{"reason": "session closed"})
				cancel()
				conn.writeMu.Lock()
				_ = conn.conn.Close()
				conn.writeMu.Unlock()
				return
			}
			conn.send("message", presentation.Render(msg))
			if msg.IsAssistant() {
				h.speak(ctx, conn, session, msg)
			}
		}
	}
}

// submit runs the query off the read loop so config changes and pings are
// still processed while the model is thinking. Replies arrive through the
// subscription.
func (h *WebSocketHandler) submit(ctx context.Context, wg *sync.WaitGroup, conn *connection, session *chatservice.Session, text string) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		h.runSubmit(ctx, conn, session, text)
	}()
}

func (h *WebSocketHandler) runSubmit(ctx context.Context, conn *connection, session *chatservice.Session, text string) {
	_, err := session.Submit(ctx, text)
	switch {
	case err == nil, errors.Is(err, chatservice.ErrEmptyMessage):
	case errors.Is(err, chatservice.ErrRequestInFlight):
		conn.sendError("please wait for the current reply")
	case errors.Is(err, chatservice.ErrSessionClosed):
	default:
		conn.sendError(err.Error())
	}
}

func (h *WebSocketHandler) handleAudio(ctx context.Context, wg *sync.WaitGroup, conn *connection, session *chatservice.Session, raw json.RawMessage) {
	if !h.voiceAvailable() {
		conn.sendError("voice input is not available")
		return
	}

	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		conn.sendError("invalid audio payload")
		return
	}

	conn.mu.Lock()
	if conn.buffer.Len()+len(audio.AudioData) > maxAudioSize {
		conn.buffer.Reset()
		conn.mu.Unlock()
		conn.sendError("recording too long")
		return
	}
	conn.buffer.Write(audio.AudioData)
	if audio.Format != "" {
		conn.audioFormat = audio.Format
	}
	if !audio.IsFinal {
		conn.mu.Unlock()
		return
	}
	clip := append([]byte(nil), conn.buffer.Bytes()...)
	conn.buffer.Reset()
	format := conn.audioFormat
	conn.mu.Unlock()

	if len(clip) == 0 {
		return
	}
	if format == "" {
		format = "webm"
	}

	lang := session.Language()
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("[websocket] processing ASR audio session=%s format=%s bytes=%d", conn.sessionID, format, len(clip))
		resp, err := h.speechSvc.TranscribeBuffer(ctx, conn.sessionID, clip, format, lang)
		if err != nil {
			log.Printf("[websocket] ASR failed session=%s: %v", conn.sessionID, err)
			conn.sendError("speech recognition failed")
			return
		}

		conn.send("asr", map[string]any{"text": resp.Text, "locale": resp.Locale})
		if resp.Text != "" {
			h.runSubmit(ctx, conn, session, resp.Text)
		}
	}()
}

func (h *WebSocketHandler) handleConfig(ctx context.Context, conn *connection, session *chatservice.Session, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		conn.sendError("invalid config payload")
		return
	}

	if cfg.Language != "" {
		if _, err := session.SetLanguage(ctx, cfg.Language); err != nil {
			conn.sendError(err.Error())
			return
		}
	}

	conn.mu.Lock()
	if cfg.Voice != "" {
		conn.voice = cfg.Voice
	}
	if cfg.TTSEnabled != nil {
		conn.ttsEnabled = *cfg.TTSEnabled && h.voiceAvailable()
	}
	tts, voice := conn.ttsEnabled, conn.voice
	conn.mu.Unlock()

	log.Printf("[websocket] config applied session=%s language=%s tts=%t", conn.sessionID, session.Language(), tts)
	conn.send("config", map[string]any{
		"language": session.Language(),
		"voice":    voice,
		"tts":      tts,
		"asr":      h.voiceAvailable(),
	})
}

func (h *WebSocketHandler) speak(ctx context.Context, conn *connection, session *chatservice.Session, msg chat.Message) {
	enabled, voice := conn.speaking()
	if !enabled || !h.voiceAvailable() {
		return
	}

	resp, err := h.speechSvc.SynthesizeToBuffer(ctx, &speech.TTSRequest{
		SessionID: conn.sessionID,
		Text:      msg.Text,
		Voice:     voice,
		Language:  session.Language(),
	})
	if err != nil {
		log.Printf("[websocket] TTS failed: %v", err)
		conn.send("tts", map[string]any{"messageId": msg.ID, "error": "synthesis failed"})
		return
	}
	if len(resp.AudioData) == 0 {
		return
	}

	conn.send("tts", map[string]any{
		"messageId": msg.ID,
		"audioData": base64.StdEncoding.EncodeToString(resp.AudioData),
		"format":    resp.Format,
		"locale":    resp.Locale,
	})
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}
