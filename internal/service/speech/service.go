package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healbuddy/backend/internal/config"
	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/speech"
)

// ErrUnavailable is returned when no speech credentials are configured.
var ErrUnavailable = errors.New("speech service not configured")

// Service adapts the OpenAI audio endpoints to transcription and synthesis.
type Service struct {
	client   *openai.Client
	asrModel string
	ttsModel string
	voice    string
}

// NewService creates the speech service. Without an API key the service
// reports itself unavailable and every call fails with ErrUnavailable.
func NewService(cfg config.SpeechConfig) *Service {
	svc := &Service{
		asrModel: cfg.ASRModel,
		ttsModel: cfg.TTSModel,
		voice:    NormalizeVoice(cfg.TTSVoice, "alloy"),
	}
	if svc.asrModel == "" {
		svc.asrModel = openai.Whisper1
	}
	if svc.ttsModel == "" {
		svc.ttsModel = string(openai.TTSModel1)
	}
	if !cfg.Enabled() {
		return svc
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	svc.client = openai.NewClientWithConfig(clientCfg)
	return svc
}

// Available reports whether speech calls can be served.
func (s *Service) Available() bool {
	return s != nil && s.client != nil
}

// TranscribeAudio converts recorded audio into text.
func (s *Service) TranscribeAudio(ctx context.Context, req *speech.ASRRequest) (*speech.ASRResponse, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if req == nil || req.AudioData == nil {
		return nil, fmt.Errorf("audio data is required")
	}

	format := req.Format
	if format == "" {
		format = "wav"
	}
	locale, hasLocale := language.SpeechLocale(req.Language)
	isoCode := ""
	if hasLocale {
		isoCode = language.ISOCode(req.Language)
	} else {
		locale = language.DefaultLocale
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.asrModel,
		FilePath: "audio." + format,
		Reader:   req.AudioData,
		Language: isoCode,
	})
	if err != nil {
		return nil, fmt.Errorf("transcription failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	log.Printf("[speech] transcribed session=%s language=%s chars=%d", req.SessionID, req.Language, len(text))
	return &speech.ASRResponse{
		SessionID: req.SessionID,
		Text:      text,
		Language:  language.Lookup(req.Language).ID,
		Locale:    locale,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// SynthesizeSpeech renders text as mp3 audio.
func (s *Service) SynthesizeSpeech(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}
	if req == nil || strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("text is required")
	}

	audio, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(s.ttsModel),
		Input:          req.Text,
		Voice:          openai.SpeechVoice(NormalizeVoice(req.Voice, s.voice)),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          clampSpeed(req.Speed),
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	defer audio.Close()

	data, err := io.ReadAll(audio)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}

	return &speech.TTSResponse{
		SessionID: req.SessionID,
		AudioData: data,
		Format:    "mp3",
		Locale:    language.Locale(req.Language),
		CreatedAt: time.Now().UTC(),
	}, nil
}

// TranscribeBuffer transcribes an in-memory audio clip.
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, format, languageID string) (*speech.ASRResponse, error) {
	return s.TranscribeAudio(ctx, &speech.ASRRequest{
		SessionID: sessionID,
		AudioData: bytes.NewReader(audioData),
		Format:    format,
		Language:  languageID,
	})
}

// SynthesizeToBuffer is SynthesizeSpeech for callers that already hold a request.
func (s *Service) SynthesizeToBuffer(ctx context.Context, req *speech.TTSRequest) (*speech.TTSResponse, error) {
	return s.SynthesizeSpeech(ctx, req)
}
