package speech

import "time"

// ASRResponse carries a transcript.
type ASRResponse struct {
	SessionID string    `json:"sessionId"`
	Text      string    `json:"text"`
	Language  string    `json:"language"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"createdAt"`
}

// TTSResponse carries synthesised audio.
type TTSResponse struct {
	SessionID string    `json:"sessionId"`
	AudioData []byte    `json:"-"`
	Format    string    `json:"format"`
	Locale    string    `json:"locale"`
	CreatedAt time.Time `json:"createdAt"`
}
