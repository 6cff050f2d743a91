package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/healbuddy/backend/internal/model/advisory"
	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/internal/model/turn"
	"github.com/healbuddy/backend/internal/service/ai"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrRequestInFlight = errors.New("a request is already in flight for this session")
	ErrSessionClosed   = errors.New("session closed")
)

const (
	// DefaultTimeout bounds a single gateway call.
	DefaultTimeout = 30 * time.Second
	// DefaultFollowUpDelay separates an advisory from its follow-up question.
	DefaultFollowUpDelay = 1500 * time.Millisecond

	persistTimeout = 10 * time.Second
)

// Gateway produces advisories from prompts.
type Gateway interface {
	Advise(ctx context.Context, req ai.Request) (advisory.Result, error)
}

// Options tunes the orchestrator.
type Options struct {
	Timeout                    time.Duration
	FollowUpDelay              time.Duration
	AugmentWithExternalContext bool
}

// DefaultOptions returns the production settings.
func DefaultOptions() Options {
	return Options{
		Timeout:                    DefaultTimeout,
		FollowUpDelay:              DefaultFollowUpDelay,
		AugmentWithExternalContext: true,
	}
}

// Service owns the active conversation sessions.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	gateway  Gateway
	turns    turn.Store
	profiles profile.Store
	opts     Options

	writes sync.WaitGroup
}

// NewService wires the orchestrator to its collaborators. profiles may be nil.
func NewService(gateway Gateway, turns turn.Store, profiles profile.Store, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.FollowUpDelay < 0 {
		opts.FollowUpDelay = 0
	}
	return &Service{
		sessions: make(map[string]*Session),
		gateway:  gateway,
		turns:    turns,
		profiles: profiles,
		opts:     opts,
	}
}

// CreateSession starts a conversation for userID (empty for anonymous
// callers) and emits the welcome banner.
func (s *Service) CreateSession(ctx context.Context, userID string) (*Session, error) {
	userID = strings.TrimSpace(userID)
	prof := s.loadProfile(ctx, userID)

	lang := language.Default().ID
	if prof != nil && language.Known(prof.PreferredLanguage) {
		lang = language.Lookup(prof.PreferredLanguage).ID
	}

	session := newSession(s, uuid.NewString(), userID, lang, prof)

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	log.Printf("[chat] session=%s created user=%q language=%s", session.id, userID, lang)
	return session, nil
}

// GetSession retrieves a live session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// SessionFor returns the session when callerID may access it. Sessions
// owned by a user are hidden from everyone else.
func (s *Service) SessionFor(ctx context.Context, sessionID, callerID string) (*Session, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.userID != "" && session.userID != callerID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CloseSession tears a session down, cancelling any in-flight work.
func (s *Service) CloseSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	log.Printf("[chat] session=%s closed", sessionID)
	return nil
}

// Shutdown closes every session and waits for background profile writes.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
	s.writes.Wait()
}

// History returns the persisted turns of a user, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]turn.Record, error) {
	if strings.TrimSpace(userID) == "" || s.turns == nil {
		return []turn.Record{}, nil
	}
	return s.turns.List(ctx, userID, limit)
}

func (s *Service) loadProfile(ctx context.Context, userID string) *profile.Profile {
	if userID == "" || s.profiles == nil {
		return nil
	}
	p, err := s.profiles.Read(ctx, userID)
	if err != nil {
		if !errors.Is(err, profile.ErrNotFound) {
			log.Printf("[chat] profile read failed for user=%q, continuing without profile: %v", userID, err)
		}
		return nil
	}
	return &p
}

// writeLanguage persists a language change in the background. Failures are
// logged only.
func (s *Service) writeLanguage(sessionID, userID, languageID string) {
	if userID == "" || s.profiles == nil {
		return
	}
	s.writes.Add(1)
	go func() {
		defer s.writes.Done()
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.profiles.Update(ctx, userID, profile.LanguageUpdate(languageID)); err != nil {
			log.Printf("[chat] session=%s could not save language preference: %v", sessionID, err)
		}
	}()
}
