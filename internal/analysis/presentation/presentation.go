package presentation

import (
	"strings"
	"time"

	"github.com/healbuddy/backend/internal/model/chat"
)

// QuickReplyMarker is the phrase that identifies a follow-up question.
const QuickReplyMarker = "may I ask"

// quickReplies are offered under follow-up questions.
var quickReplies = []string{"Yes", "No", "Sometimes"}

// Tone is the colour family used for a message bubble.
type Tone string

const (
	ToneNeutral Tone = "neutral"
	ToneYellow  Tone = "yellow"
	ToneOrange  Tone = "orange"
	ToneRed     Tone = "red"
)

// Style is the visual treatment derived from a severity.
type Style struct {
	Tone  Tone   `json:"tone"`
	Label string `json:"label,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// View is a message ready for display.
type View struct {
	ID           int           `json:"id"`
	Text         string        `json:"text"`
	IsBot        bool          `json:"isBot"`
	Severity     chat.Severity `json:"severity,omitempty"`
	Style        *Style        `json:"style,omitempty"`
	QuickReplies []string      `json:"quickReplies,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}

// StyleFor maps a severity to its styling. Unknown values render as low.
func StyleFor(severity chat.Severity) Style {
	switch severity {
	case chat.SeverityEmergency:
		return Style{Tone: ToneRed, Label: "Emergency Alert", Icon: "phone"}
	case chat.SeverityHigh:
		return Style{Tone: ToneOrange, Label: "Important", Icon: "alert"}
	case chat.SeverityMedium:
		return Style{Tone: ToneYellow, Label: "Advisory"}
	default:
		return Style{Tone: ToneNeutral}
	}
}

// QuickReplies returns the reply shortcuts for an assistant message that
// asks a follow-up question, or nil.
func QuickReplies(msg chat.Message) []string {
	if !msg.IsAssistant() || !strings.Contains(msg.Text, QuickReplyMarker) {
		return nil
	}
	return append([]string(nil), quickReplies...)
}

// Render converts a message into its view. User messages carry no style.
func Render(msg chat.Message) View {
	view := View{
		ID:        msg.ID,
		Text:      msg.Text,
		IsBot:     msg.IsAssistant(),
		Timestamp: msg.CreatedAt,
	}
	if view.IsBot {
		style := StyleFor(msg.Severity)
		view.Severity = msg.Severity
		view.Style = &style
		view.QuickReplies = QuickReplies(msg)
	}
	return view
}

// RenderAll renders a transcript in order.
func RenderAll(messages []chat.Message) []View {
	views := make([]View, 0, len(messages))
	for _, msg := range messages {
		views = append(views, Render(msg))
	}
	return views
}
