// Package cli implements the healthcli terminal client, which drives the
// conversation orchestrator without the HTTP layer.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/healbuddy/backend/internal/app"
	"github.com/healbuddy/backend/internal/config"
	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/reference"
	chatservice "github.com/healbuddy/backend/internal/service/chat"
)

type options struct {
	configPath string
	userID     string
	language   string
	pickLang   bool
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "healthcli",
		Short: "HealBuddy - health advice in your terminal",
		Long: `healthcli runs a HealBuddy conversation in the terminal using the same
orchestrator, model gateway and stores as the API server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pickLang {
				picked, err := PromptForLanguage(opts.language)
				if err != nil {
					return err
				}
				opts.language = picked
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				return runInteractive(ctx, a, opts, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&opts.userID, "user", "", "User id for profile and history")
	rootCmd.PersistentFlags().StringVar(&opts.language, "lang", "", "Reply language; saved as the preferred language when --user is set")
	rootCmd.Flags().BoolVar(&opts.pickLang, "pick-lang", false, "Choose the reply language from a menu before chatting")

	rootCmd.AddCommand(newAskCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newEmergencyCmd())
	rootCmd.AddCommand(newLanguagesCmd())

	return rootCmd
}

// newAskCmd answers a single question and exits.
func newAskCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [QUESTION]",
		Short: "Ask one health question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				session, err := openSession(ctx, a, opts)
				if err != nil {
					return err
				}
				reply, err := session.Submit(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				for _, msg := range reply.Messages {
					printMessage(cmd.OutOrStdout(), msg)
				}
				return nil
			})
		},
	}
}

func newHistoryCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent consultations for --user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.userID == "" {
				return errors.New("--user is required")
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app.App) error {
				records, err := a.Chat.History(ctx, opts.userID, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No consultations yet.")
				}
				for _, rec := range records {
					fmt.Fprintf(out, "%s  [%s] %s\n    → %s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.SeverityAssessment, rec.UserMessage, rec.BotResponse)
				}
				return nil
			})
		},
	}
	cmd.Flags().Int("limit", 10, "Number of consultations to show")
	return cmd
}

func newEmergencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "emergency",
		Short: "List emergency numbers",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, n := range reference.EmergencyNumbers() {
				fmt.Fprintf(out, "%s %-28s %s\n", n.Icon, n.Name, n.Number)
			}
		},
	}
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported reply languages",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			for _, l := range language.List() {
				fmt.Fprintf(out, "%-10s %-10s %s\n", l.ID, l.Name, l.Native)
			}
		},
	}
}

func withApp(ctx context.Context, opts *options, fn func(context.Context, *app.App) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// openSession starts a chat for opts.userID. A --lang choice goes through
// SetLanguage, so it also becomes that user's preferred language.
func openSession(ctx context.Context, a *app.App, opts *options) (*chatservice.Session, error) {
	session, err := a.Chat.CreateSession(ctx, opts.userID)
	if err != nil {
		return nil, err
	}
	if opts.language != "" {
		if _, err := session.SetLanguage(ctx, opts.language); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// runInteractive reads one query per line. Lines starting with a slash are
// commands: /lang <id>, /quit.
func runInteractive(ctx context.Context, a *app.App, opts *options, in io.Reader, out io.Writer) error {
	session, err := openSession(ctx, a, opts)
	if err != nil {
		return err
	}
	out = &lockedWriter{w: out}

	for _, msg := range session.Messages() {
		printMessage(out, msg)
	}

	updates, cancel := session.Subscribe()
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range updates {
			if msg.IsAssistant() {
				printMessage(out, msg)
			}
		}
	}()

	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "/quit" || line == "/exit":
			cancel()
			<-done
			return nil
		case strings.HasPrefix(line, "/lang"):
			lang, err := session.SetLanguage(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/lang")))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Replies will be in %s (%s).\n", lang.Name, lang.Native)
		default:
			if _, err := session.Submit(ctx, line); err != nil && !errors.Is(err, chatservice.ErrEmptyMessage) {
				printError(out, err)
			}
		}
		fmt.Fprint(out, "> ")
	}
	cancel()
	<-done
	return scanner.Err()
}

// lockedWriter serialises writes from the reader loop and the subscriber.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Execute runs the root command and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
