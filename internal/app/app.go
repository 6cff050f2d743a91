// Package app assembles the services shared by the API server and the
// command-line tools.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/healbuddy/backend/internal/config"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
	"github.com/healbuddy/backend/internal/service/ai"
	"github.com/healbuddy/backend/internal/service/chat"
	"github.com/healbuddy/backend/internal/service/speech"
	"github.com/healbuddy/backend/internal/service/websearch"
	"github.com/healbuddy/backend/internal/storage/postgres"
)

// App holds the wired services.
type App struct {
	Chat     *chat.Service
	Profiles profile.Store
	Turns    turn.Store
	Speech   *speech.Service

	db *sql.DB
}

// New wires stores, the inference gateway and the orchestrator from cfg.
// A missing model configuration is not fatal: every query then receives the
// fallback advisory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	switch cfg.Store.Driver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		a.db = db
		a.Turns = postgres.NewTurnStore(db)
		a.Profiles = postgres.NewProfileStore(db)
		log.Println("[app] using postgres store")
	case config.StoreMemory:
		a.Turns = turn.NewMemoryStore()
		a.Profiles = profile.NewMemoryStore()
		log.Println("[app] using in-memory store")
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}

	var web ai.ContextProvider
	if cfg.AI.WebContext {
		web = websearch.NewClient(websearch.Config{
			Endpoint:   cfg.WebSearch.Endpoint,
			MaxResults: cfg.WebSearch.MaxResults,
		})
	}

	var gateway *ai.Service
	if cfg.AI.Enabled() {
		svc, err := ai.NewService(ctx, cfg.AI, web)
		if err != nil {
			log.Printf("warning: failed to initialize AI service: %v", err)
		} else {
			gateway = svc
			log.Printf("[app] AI service initialized provider=%s model=%s", cfg.AI.Provider, cfg.AI.Model)
		}
	} else {
		log.Println("[app] AI credentials not configured, answering with fallback advisories")
	}

	a.Chat = chat.NewService(gateway, a.Turns, a.Profiles, chat.Options{
		Timeout:                    cfg.AI.Timeout,
		FollowUpDelay:              cfg.Chat.FollowUpDelay,
		AugmentWithExternalContext: cfg.AI.WebContext,
	})

	a.Speech = speech.NewService(cfg.Speech)
	if a.Speech.Available() {
		log.Println("[app] speech service initialized")
	} else {
		log.Println("[app] speech credentials not configured, voice features disabled")
	}

	return a, nil
}

// Close ends every session, waits for pending writes and releases the
// database.
func (a *App) Close() {
	a.Chat.Shutdown()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("[app] closing database: %v", err)
		}
	}
}
