package speech

import (
	"io"
)

// ASRRequest is a speech-to-text request.
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	AudioData io.Reader `json:"-"`
	Format    string    `json:"format"`   // mp3, wav, webm, etc.
	Language  string    `json:"language"` // catalog id: english, hindi, ...
}

// TTSRequest is a text-to-speech request.
type TTSRequest struct {
	SessionID string  `json:"sessionId"`
	Text      string  `json:"text"`
	Voice     string  `json:"voice"`
	Speed     float64 `json:"speed"` // 0.25-4.0, zero means default
	Format    string  `json:"format"`
	Language  string  `json:"language"`
}
