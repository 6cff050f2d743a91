package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/healbuddy/backend/internal/analysis/presentation"
	"github.com/healbuddy/backend/internal/model/chat"
)

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	botStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	quickReplyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	toneStyles = map[presentation.Tone]lipgloss.Style{
		presentation.ToneRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		presentation.ToneOrange: lipgloss.NewStyle().Foreground(lipgloss.Color("#F97316")).Bold(true),
		presentation.ToneYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("#EAB308")),
	}
)

// printMessage renders one transcript entry with its severity styling.
func printMessage(out io.Writer, msg chat.Message) {
	view := presentation.Render(msg)
	if !view.IsBot {
		fmt.Fprintf(out, "\n%s %s\n", userStyle.Render("you:"), view.Text)
		return
	}

	prefix := botStyle.Render("HealBuddy:")
	if view.Style != nil && view.Style.Label != "" {
		label := "[" + view.Style.Label + "]"
		if style, ok := toneStyles[view.Style.Tone]; ok {
			label = style.Render(label)
		}
		prefix += " " + label
	}
	fmt.Fprintf(out, "\n%s %s\n", prefix, view.Text)
	for _, reply := range view.QuickReplies {
		fmt.Fprintln(out, quickReplyStyle.Render("  ("+reply+")"))
	}
}

func printError(out io.Writer, err error) {
	fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
}
